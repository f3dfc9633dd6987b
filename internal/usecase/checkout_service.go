package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

const ordersCollection = "orders"

// Messenger composes the outbound hand-off for a rendered order
// summary. No delivery confirmation exists: the returned URL opens an
// external compose flow and the channel takes over from there.
type Messenger interface {
	Compose(to, body string) string
}

type CheckoutService struct {
	Store      docstore.Store
	Pricing    *PricingEngine
	Messenger  Messenger
	StorePhone string
	Log        *logrus.Entry
}

// NewOrderID returns a human-readable id of the form PED-XXXXXXXX. The
// suffix is the first segment of a random UUID, so uniqueness is
// probabilistic rather than sequence-based.
func NewOrderID() string {
	return "PED-" + strings.ToUpper(uuid.NewString()[:8])
}

// BuildOrder assembles the immutable order record from the cart, the
// customer profile, the chosen payment method and the priced discount.
func (s *CheckoutService) BuildOrder(lines []domain.CartLine, profile *domain.User, pm domain.PaymentMethod, d DiscountResult) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrValidation("cart is empty")
	}
	if !pm.Valid() {
		return nil, ErrValidation("payment method required")
	}
	switch {
	case profile == nil:
		return nil, ErrValidation("customer profile required")
	case strings.TrimSpace(profile.Name) == "":
		return nil, ErrValidation("customer name required")
	case strings.TrimSpace(profile.Phone) == "":
		return nil, ErrValidation("customer phone required")
	case strings.TrimSpace(profile.Address) == "":
		return nil, ErrValidation("customer address required")
	case !ValidateCPF(profile.CPF):
		return nil, ErrValidation("invalid CPF")
	}
	now := time.Now().UTC()
	return &domain.Order{
		OrderID:       NewOrderID(),
		CustomerID:    profile.UserID,
		CustomerName:  profile.Name,
		Phone:         profile.Phone,
		Address:       profile.Address,
		CPF:           profile.CPF,
		Lines:         lines,
		Subtotal:      s.Pricing.Subtotal(lines),
		DiscountCode:  d.Code,
		DiscountRate:  d.Rate,
		Total:         d.Total,
		PaymentMethod: pm,
		Status:        domain.StatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// RenderSummary produces the message body handed to the store's
// WhatsApp. Humans read this on the other end; field order and labels
// are a stable contract.
func RenderSummary(o *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛍️ *Novo Pedido* - ID: %s\n\n", o.OrderID)
	fmt.Fprintf(&b, "👤 *Nome:* %s\n", o.CustomerName)
	fmt.Fprintf(&b, "📞 *Telefone:* %s\n", o.Phone)
	fmt.Fprintf(&b, "🏠 *Endereço:* %s\n", o.Address)
	fmt.Fprintf(&b, "🆔 *CPF:* %s\n\n", o.CPF)
	b.WriteString("📦 *Produtos:*")
	for i, l := range o.Lines {
		fmt.Fprintf(&b, "\n%d. %dx %s - R$ %s", i+1, l.Quantity, l.Description, l.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\n\n💰 *Total sem desconto:* R$ %s\n", o.Subtotal.StringFixed(2))
	cupom := "Nenhum"
	if o.DiscountCode != "" {
		cupom = o.DiscountCode
	}
	fmt.Fprintf(&b, "🎁 *Cupom:* %s\n", cupom)
	fmt.Fprintf(&b, "💸 *Desconto aplicado:* %s%%\n", o.DiscountRate.Mul(decimalHundred).StringFixed(0))
	fmt.Fprintf(&b, "✅ *Total com desconto:* R$ %s\n\n", o.Total.StringFixed(2))
	fmt.Fprintf(&b, "💳 *Forma de pagamento:* %s\n", o.PaymentMethod.Label())
	return b.String()
}

// Checkout converts the cart into a durable order. The order write must
// succeed before the hand-off URL is composed; the cart is cleared best
// effort afterwards. An unknown discount code does not block checkout,
// it just prices at zero rate (the dedicated discount endpoint is where
// the customer learns a code is bad).
func (s *CheckoutService) Checkout(ctx context.Context, cart *CartStore, customerID string, pm domain.PaymentMethod, discountCode string) (*domain.Order, string, error) {
	profile, err := s.profile(ctx, customerID)
	if err != nil {
		return nil, "", err
	}
	lines := cart.Lines()
	subtotal := s.Pricing.Subtotal(lines)
	d, err := s.Pricing.ApplyDiscount(subtotal, discountCode)
	if err != nil {
		s.Log.WithField("code", discountCode).Warn("checkout with unknown discount code")
	}
	o, err := s.BuildOrder(lines, profile, pm, d)
	if err != nil {
		return nil, "", err
	}
	if err := s.Store.Set(ctx, ordersCollection, o.OrderID, o); err != nil {
		return nil, "", &ErrPersistence{Op: "create order", Err: err}
	}
	waURL := s.Messenger.Compose(s.StorePhone, RenderSummary(o))
	if err := cart.Clear(ctx); err != nil {
		s.Log.WithError(err).WithField("orderId", o.OrderID).Warn("clear cart after checkout")
	}
	return o, waURL, nil
}

func (s *CheckoutService) profile(ctx context.Context, customerID string) (*domain.User, error) {
	raw, err := s.Store.Get(ctx, usersCollection, customerID)
	if err == docstore.ErrNoDocument {
		return nil, ErrNotFound("customer profile")
	}
	if err != nil {
		return nil, &ErrPersistence{Op: "load customer profile", Err: err}
	}
	return decodeUser(raw)
}
