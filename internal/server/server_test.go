package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loja-backend/internal/config"
	"loja-backend/internal/infrastructure/docstore"
	"loja-backend/internal/infrastructure/whatsapp"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.AdminEmail = "admin@loja.com"
	return New(cfg, log, docstore.NewMemory(), &whatsapp.Client{})
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func login(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	code, resp := do(t, r, http.MethodPost, "/api/login", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func errCode(resp map[string]any) string {
	e, _ := resp["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAuthRequired(t *testing.T) {
	r := newTestServer().Router()

	code, resp := do(t, r, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", errCode(resp))

	code, _ = do(t, r, http.MethodGet, "/api/cart", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminGate(t *testing.T) {
	r := newTestServer().Router()

	customer := login(t, r, "maria@loja.com")
	code, resp := do(t, r, http.MethodGet, "/api/admin/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Forbidden", errCode(resp))

	admin := login(t, r, "Admin@Loja.com") // gate is case-insensitive
	code, _ = do(t, r, http.MethodGet, "/api/admin/orders", admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminGateClosedWithoutConfiguredEmail(t *testing.T) {
	s := newTestServer()
	s.cfg.AdminEmail = ""
	r := s.Router()

	token := login(t, r, "admin@loja.com")
	code, _ := do(t, r, http.MethodGet, "/api/admin/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestStorefrontFlow(t *testing.T) {
	r := newTestServer().Router()

	admin := login(t, r, "admin@loja.com")
	code, resp := do(t, r, http.MethodPost, "/api/admin/products/batch", admin, map[string]any{
		"produtos": []map[string]any{
			{"codigo": "P1", "codigo_barras": "789P1", "descricao": "Perfume Amadeirado", "valor_unitario": "10", "quantidade": 5, "categoria": "Perfumes"},
			{"codigo": "P2", "codigo_barras": "789P2", "descricao": "Sabonete", "valor_unitario": "5", "quantidade": 8, "categoria": "Perfumes"},
		},
	})
	require.Equal(t, http.StatusOK, code, resp)
	assert.EqualValues(t, 2, resp["imported"])

	token := login(t, r, "maria@loja.com")

	code, resp = do(t, r, http.MethodPut, "/api/profile", token, map[string]string{
		"name": "Maria Silva", "phone": "82999990000", "address": "Rua A, 123", "cpf": "11144477735",
	})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = do(t, r, http.MethodGet, "/api/products/Perfumes", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp["products"], 2)

	code, resp = do(t, r, http.MethodPost, "/api/cart/items", token, map[string]any{
		"codigo": "P1", "descricao": "Perfume Amadeirado", "valor_unitario": "10", "categoria": "Perfumes",
	})
	require.Equal(t, http.StatusOK, code, resp)
	code, resp = do(t, r, http.MethodPost, "/api/cart/items/P1/increase", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, resp = do(t, r, http.MethodPost, "/api/cart/items", token, map[string]any{
		"codigo": "P2", "descricao": "Sabonete", "valor_unitario": "5", "categoria": "Perfumes",
	})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp["items"], 2)
	assert.Equal(t, "25", resp["subtotal"])

	// a bad coupon is rejected at the discount endpoint
	code, resp = do(t, r, http.MethodPost, "/api/cart/discount", token, map[string]string{"code": "NADA"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidDiscountCode", errCode(resp))

	code, resp = do(t, r, http.MethodPost, "/api/cart/discount", token, map[string]string{"code": "FRETEGRATIS"})
	require.Equal(t, http.StatusOK, code)

	code, resp = do(t, r, http.MethodPost, "/api/checkout", token, map[string]string{
		"paymentMethod": "PIX", "discountCode": "FRETEGRATIS",
	})
	require.Equal(t, http.StatusOK, code, resp)
	wa, _ := resp["whatsappUrl"].(string)
	assert.Contains(t, wa, "https://wa.me/5582988478510?text=")
	order, _ := resp["order"].(map[string]any)
	require.NotNil(t, order)
	assert.Equal(t, "21.25", order["total"])
	assert.Equal(t, "Em Andamento", order["status"])
	orderID, _ := order["orderId"].(string)
	require.NotEmpty(t, orderID)

	code, resp = do(t, r, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp["items"], "checkout must clear the cart")

	code, resp = do(t, r, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp["orders"], 1)

	// admin confirms the order, stock goes down
	code, resp = do(t, r, http.MethodPost, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{
		"status": "Pedido Confirmado",
	})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Nil(t, resp["warnings"])

	code, resp = do(t, r, http.MethodGet, "/api/products/Perfumes", token, nil)
	require.Equal(t, http.StatusOK, code)
	for _, v := range resp["products"].([]any) {
		p := v.(map[string]any)
		switch p["codigo"] {
		case "P1":
			assert.EqualValues(t, 3, p["quantidade"])
		case "P2":
			assert.EqualValues(t, 7, p["quantidade"])
		}
	}

	// moving backwards is a conflict
	code, resp = do(t, r, http.MethodPost, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{
		"status": "Em Andamento",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "InvalidTransition", errCode(resp))
}

func TestCancelReasonFlow(t *testing.T) {
	r := newTestServer().Router()
	admin := login(t, r, "admin@loja.com")
	token := login(t, r, "maria@loja.com")

	_, _ = do(t, r, http.MethodPut, "/api/profile", token, map[string]string{
		"name": "Maria Silva", "phone": "82999990000", "address": "Rua A, 123", "cpf": "11144477735",
	})
	_, _ = do(t, r, http.MethodPost, "/api/cart/items", token, map[string]any{
		"codigo": "P1", "descricao": "Perfume", "valor_unitario": "10",
	})
	code, resp := do(t, r, http.MethodPost, "/api/checkout", token, map[string]string{"paymentMethod": "CASH"})
	require.Equal(t, http.StatusOK, code, resp)
	orderID := resp["order"].(map[string]any)["orderId"].(string)

	code, resp = do(t, r, http.MethodPost, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{
		"status": "Pedido Cancelado",
	})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, true, resp["order"].(map[string]any)["awaitingCancelReason"])

	code, resp = do(t, r, http.MethodPost, "/api/admin/orders/"+orderID+"/cancel-reason", admin, map[string]string{
		"reason": "cliente desistiu",
	})
	require.Equal(t, http.StatusOK, code, resp)
	order := resp["order"].(map[string]any)
	assert.Equal(t, "cliente desistiu", order["cancelReason"])
	assert.Nil(t, order["awaitingCancelReason"])
}

func TestCheckoutWithoutProfile(t *testing.T) {
	r := newTestServer().Router()
	token := login(t, r, "maria@loja.com")

	_, _ = do(t, r, http.MethodPost, "/api/cart/items", token, map[string]any{
		"codigo": "P1", "descricao": "Perfume", "valor_unitario": "10",
	})
	code, resp := do(t, r, http.MethodPost, "/api/checkout", token, map[string]string{"paymentMethod": "PIX"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ValidationError", errCode(resp))
}

func TestAdminOrderFilters(t *testing.T) {
	r := newTestServer().Router()
	admin := login(t, r, "admin@loja.com")

	code, resp := do(t, r, http.MethodGet, "/api/admin/orders?since=not-a-date", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BadRequest", errCode(resp))

	code, resp = do(t, r, http.MethodGet, fmt.Sprintf("/api/admin/orders?status=%s&since=2026-01-01", "Entregue"), admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp["orders"])
}
