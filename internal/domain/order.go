package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus values are the display strings shown to the admin and
// stored on the order document.
type OrderStatus string

const (
	StatusInProgress     OrderStatus = "Em Andamento"
	StatusConfirmed      OrderStatus = "Pedido Confirmado"
	StatusPreparing      OrderStatus = "Preparando Pedido"
	StatusOutForDelivery OrderStatus = "Saiu para Entrega"
	StatusDelivered      OrderStatus = "Entregue"
	StatusCancelled      OrderStatus = "Pedido Cancelado"
)

// statusRank orders the forward progression. Cancelled sits outside the
// linear chain and is reachable from any non-terminal state.
var statusRank = map[OrderStatus]int{
	StatusInProgress:     0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvanceTo reports whether a transition from s to next is legal:
// never out of a terminal state, cancellation from anywhere else, and
// otherwise strictly forward (skipping ahead is allowed, re-selecting
// the same or an earlier state is not).
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	nr, ok := statusRank[next]
	if !ok {
		return false
	}
	return nr > statusRank[s]
}

func (s OrderStatus) String() string { return string(s) }

type PaymentMethod string

const (
	PaymentPix        PaymentMethod = "PIX"
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentPix, PaymentCash, PaymentCreditCard, PaymentDebitCard:
		return true
	}
	return false
}

// Label is the customer-facing name used in the order summary.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentPix:
		return "PIX"
	case PaymentCash:
		return "DINHEIRO"
	case PaymentCreditCard:
		return "CARTÃO CRÉDITO"
	case PaymentDebitCard:
		return "CARTÃO DÉBITO"
	}
	return string(p)
}

// Order is immutable after creation except for Status, CancelReason and
// the awaiting-reason flag, all owned by the admin workflow.
type Order struct {
	OrderID              string          `json:"orderId"`
	CustomerID           string          `json:"userId"`
	CustomerName         string          `json:"customerName"`
	Phone                string          `json:"phone"`
	Address              string          `json:"address"`
	CPF                  string          `json:"cpf"`
	Lines                []CartLine      `json:"cart"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountCode         string          `json:"discountCode,omitempty"`
	DiscountRate         decimal.Decimal `json:"discountRate"`
	Total                decimal.Decimal `json:"total"`
	PaymentMethod        PaymentMethod   `json:"paymentMethod"`
	Status               OrderStatus     `json:"status"`
	CancelReason         string          `json:"cancelReason,omitempty"`
	AwaitingCancelReason bool            `json:"awaitingCancelReason,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}
