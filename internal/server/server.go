package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"loja-backend/internal/config"
	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
	"loja-backend/internal/usecase"
)

const identityKey = "identity"

// Server wires the storefront and admin HTTP surface over the
// services. It keeps one CartStore per signed-in customer, created on
// the sign-in event (or lazily after a restart) and evicted on
// sign-out.
type Server struct {
	cfg      config.Config
	log      *logrus.Logger
	auth     *usecase.AuthService
	hub      *usecase.AuthHub
	pricing  *usecase.PricingEngine
	checkout *usecase.CheckoutService
	orders   *usecase.OrderService
	catalog  *usecase.CatalogService
	store    docstore.Store

	mu    sync.Mutex
	carts map[string]*usecase.CartStore
}

func New(cfg config.Config, log *logrus.Logger, store docstore.Store, messenger usecase.Messenger) *Server {
	entry := log.WithField("component", "server")
	s := &Server{
		cfg:     cfg,
		log:     log,
		auth:    &usecase.AuthService{Store: store, JWTSecret: cfg.JWTSecret, Log: entry},
		hub:     usecase.NewAuthHub(),
		pricing: usecase.NewPricingEngine(),
		orders:  &usecase.OrderService{Store: store, Log: entry},
		catalog: &usecase.CatalogService{Store: store, Log: entry},
		store:   store,
		carts:   make(map[string]*usecase.CartStore),
	}
	s.checkout = &usecase.CheckoutService{
		Store:      store,
		Pricing:    s.pricing,
		Messenger:  messenger,
		StorePhone: cfg.StorePhone,
		Log:        entry,
	}
	s.hub.Subscribe(s.onAuthEvent)
	return s
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.cors())

	api := r.Group("/api")
	api.POST("/login", s.handleLogin)

	authed := api.Group("", s.requireAuth())
	authed.POST("/logout", s.handleLogout)
	authed.GET("/profile", s.handleGetProfile)
	authed.PUT("/profile", s.handleSaveProfile)
	authed.GET("/products/:category", s.handleListProducts)
	authed.GET("/cart", s.handleGetCart)
	authed.POST("/cart/items", s.handleAddItem)
	authed.POST("/cart/items/:id/increase", s.handleIncrease)
	authed.POST("/cart/items/:id/decrease", s.handleDecrease)
	authed.DELETE("/cart/items/:id", s.handleRemoveItem)
	authed.DELETE("/cart", s.handleClearCart)
	authed.POST("/cart/discount", s.handleApplyDiscount)
	authed.POST("/checkout", s.handleCheckout)
	authed.GET("/orders", s.handleMyOrders)

	admin := authed.Group("/admin", s.requireAdmin())
	admin.GET("/orders", s.handleAdminOrders)
	admin.POST("/orders/:id/status", s.handleTransition)
	admin.POST("/orders/:id/cancel-reason", s.handleCancelReason)
	admin.POST("/products/batch", s.handleImportProducts)

	return r
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			s.errJSON(c, http.StatusUnauthorized, "Unauthorized", "bearer token required")
			c.Abort()
			return
		}
		id, err := s.auth.Verify(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
		if err != nil {
			s.errJSON(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := s.identity(c)
		if s.cfg.AdminEmail == "" || !strings.EqualFold(id.Email, s.cfg.AdminEmail) {
			s.errJSON(c, http.StatusForbidden, "Forbidden", "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) identity(c *gin.Context) domain.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(domain.Identity)
	return id
}

// onAuthEvent keeps the per-customer cart registry in step with auth
// transitions: sign-in loads the persisted cart, sign-out evicts it.
func (s *Server) onAuthEvent(ev usecase.AuthEvent) {
	if !ev.SignedIn {
		s.mu.Lock()
		if cs, ok := s.carts[ev.User.UserID]; ok {
			cs.Reset()
			delete(s.carts, ev.User.UserID)
		}
		s.mu.Unlock()
		return
	}
	s.cartFor(ev.User.UserID)
}

// cartFor returns the signed-in customer's cart, loading it from the
// document store on first use.
func (s *Server) cartFor(customerID string) *usecase.CartStore {
	s.mu.Lock()
	cs, ok := s.carts[customerID]
	if !ok {
		cs = usecase.NewCartStore(s.store, s.log.WithField("component", "cart"))
		s.carts[customerID] = cs
	}
	s.mu.Unlock()
	if !ok {
		if err := cs.Load(context.Background(), customerID); err != nil {
			s.log.WithError(err).WithField("userId", customerID).Warn("load cart")
		}
	}
	return cs
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	token, u, err := s.auth.Login(c.Request.Context(), req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.hub.SignIn(domain.Identity{UserID: u.UserID, Email: u.Email})
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.hub.SignOut(s.identity(c))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	u, err := s.auth.Profile(c.Request.Context(), s.identity(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		CPF     string `json:"cpf"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	u, err := s.auth.SaveProfile(c.Request.Context(), s.identity(c).UserID, req.Name, req.Phone, req.Address, req.CPF)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.catalog.ListCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) handleImportProducts(c *gin.Context) {
	var req struct {
		Produtos []domain.Product `json:"produtos"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	count, err := s.catalog.ImportBatch(c.Request.Context(), req.Produtos)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": count})
}

func (s *Server) handleGetCart(c *gin.Context) {
	cart := s.cartFor(s.identity(c).UserID)
	lines := cart.Lines()
	c.JSON(http.StatusOK, gin.H{
		"items":    lines,
		"subtotal": s.pricing.Subtotal(lines),
	})
}

func (s *Server) handleAddItem(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil || p.Code == "" {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "product with codigo required")
		return
	}
	s.cartMutation(c, func(cart *usecase.CartStore) error {
		return cart.AddItem(c.Request.Context(), p)
	})
}

func (s *Server) handleIncrease(c *gin.Context) {
	s.cartMutation(c, func(cart *usecase.CartStore) error {
		return cart.IncreaseQuantity(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) handleDecrease(c *gin.Context) {
	s.cartMutation(c, func(cart *usecase.CartStore) error {
		return cart.DecreaseQuantity(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	s.cartMutation(c, func(cart *usecase.CartStore) error {
		return cart.RemoveItem(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) handleClearCart(c *gin.Context) {
	s.cartMutation(c, func(cart *usecase.CartStore) error {
		return cart.Clear(c.Request.Context())
	})
}

// cartMutation applies the mutation and replies with the updated read
// model. A persistence failure still carries the optimistically updated
// cart back to the client, flagged so the UI can surface it.
func (s *Server) cartMutation(c *gin.Context, fn func(*usecase.CartStore) error) {
	cart := s.cartFor(s.identity(c).UserID)
	err := fn(cart)
	var pe *usecase.ErrPersistence
	if err != nil && !errors.As(err, &pe) {
		s.fail(c, err)
		return
	}
	lines := cart.Lines()
	resp := gin.H{
		"items":    lines,
		"subtotal": s.pricing.Subtotal(lines),
	}
	if pe != nil {
		resp["warning"] = pe.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleApplyDiscount(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	cart := s.cartFor(s.identity(c).UserID)
	subtotal := s.pricing.Subtotal(cart.Lines())
	d, err := s.pricing.ApplyDiscount(subtotal, req.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtotal": subtotal, "discount": d})
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req struct {
		PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
		DiscountCode  string               `json:"discountCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	id := s.identity(c)
	cart := s.cartFor(id.UserID)
	o, waURL, err := s.checkout.Checkout(c.Request.Context(), cart, id.UserID, req.PaymentMethod, req.DiscountCode)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "whatsappUrl": waURL})
}

func (s *Server) handleMyOrders(c *gin.Context) {
	list, err := s.orders.List(c.Request.Context(), usecase.OrderFilters{CustomerID: s.identity(c).UserID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (s *Server) handleAdminOrders(c *gin.Context) {
	f := usecase.OrderFilters{
		Status: domain.OrderStatus(c.Query("status")),
		Search: c.Query("q"),
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.errJSON(c, http.StatusBadRequest, "BadRequest", "since must be YYYY-MM-DD")
			return
		}
		f.Since = t
	}
	list, err := s.orders.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (s *Server) handleTransition(c *gin.Context) {
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	o, warnings, err := s.orders.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := gin.H{"order": o}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCancelReason(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errJSON(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	o, err := s.orders.RecordCancelReason(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// fail maps service errors onto the HTTP error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errorsAs[usecase.ErrValidation](err):
		s.errJSON(c, http.StatusBadRequest, "ValidationError", err.Error())
	case errorsAs[usecase.ErrInvalidDiscount](err):
		s.errJSON(c, http.StatusBadRequest, "InvalidDiscountCode", err.Error())
	case errorsAs[usecase.ErrNotFound](err):
		s.errJSON(c, http.StatusNotFound, "NotFound", err.Error())
	case errorsAs[usecase.ErrInvalidTransition](err):
		s.errJSON(c, http.StatusConflict, "InvalidTransition", err.Error())
	case errorsAs[*usecase.ErrPersistence](err):
		s.errJSON(c, http.StatusInternalServerError, "PersistenceError", err.Error())
	default:
		s.errJSON(c, http.StatusInternalServerError, "ServerError", err.Error())
	}
}

func errorsAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func (s *Server) errJSON(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}
