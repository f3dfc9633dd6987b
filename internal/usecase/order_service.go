package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

// defaultCategory is the catalog collection assumed for legacy lines
// that carry no category of their own.
const defaultCategory = "Perfumes"

// OrderService runs the admin-side order lifecycle. Two admins hitting
// the same order race last-write-wins; the order is re-read right
// before validating, nothing more.
type OrderService struct {
	Store docstore.Store
	Log   *logrus.Entry
}

type OrderFilters struct {
	Status     domain.OrderStatus
	Since      time.Time
	Search     string // matches customer name or order id, case-insensitive
	CustomerID string
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	raw, err := s.Store.Get(ctx, ordersCollection, orderID)
	if err == docstore.ErrNoDocument {
		return nil, ErrNotFound("order")
	}
	if err != nil {
		return nil, &ErrPersistence{Op: "load order", Err: err}
	}
	return decodeOrder(raw)
}

func (s *OrderService) List(ctx context.Context, f OrderFilters) ([]domain.Order, error) {
	q := docstore.Query{OrderBy: "createdAt", Desc: true}
	if f.Status != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Op: "==", Value: string(f.Status)})
	}
	if !f.Since.IsZero() {
		q.Filters = append(q.Filters, docstore.Filter{Field: "createdAt", Op: ">=", Value: f.Since.UTC().Format(time.RFC3339)})
	}
	if f.CustomerID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "userId", Op: "==", Value: f.CustomerID})
	}
	docs, err := s.Store.Query(ctx, ordersCollection, q)
	if err != nil {
		return nil, &ErrPersistence{Op: "list orders", Err: err}
	}
	out := make([]domain.Order, 0, len(docs))
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for _, d := range docs {
		o, err := decodeOrder(d.Data)
		if err != nil {
			s.Log.WithField("id", d.ID).Warn("skipping malformed order record")
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(o.OrderID), needle) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

// Transition moves an order to newStatus. Terminal orders never move
// again; forward skips are allowed, same or earlier states are not.
// The first transition into Pedido Confirmado decrements stock for
// every line, best effort: lookup failures come back as warnings while
// the remaining lines still get processed. Cancelling flags the order
// as awaiting a reason.
func (s *OrderService) Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, []string, error) {
	if !newStatus.Valid() {
		return nil, nil, ErrValidation("unknown order status")
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !o.Status.CanAdvanceTo(newStatus) {
		return nil, nil, ErrInvalidTransition(fmt.Sprintf("cannot move order %s from %q to %q", o.OrderID, o.Status, newStatus))
	}
	var warnings []string
	if newStatus == domain.StatusConfirmed {
		warnings = s.decrementStock(ctx, o)
	}
	if newStatus == domain.StatusCancelled {
		o.AwaitingCancelReason = true
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	if err := s.Store.Set(ctx, ordersCollection, o.OrderID, o); err != nil {
		return nil, warnings, &ErrPersistence{Op: "update order", Err: err}
	}
	return o, warnings, nil
}

// RecordCancelReason attaches the free-text reason after a
// cancellation and clears the awaiting flag.
func (s *OrderService) RecordCancelReason(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrValidation("cancel reason required")
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.StatusCancelled {
		return nil, ErrValidation("order is not cancelled")
	}
	o.CancelReason = reason
	o.AwaitingCancelReason = false
	o.UpdatedAt = time.Now().UTC()
	if err := s.Store.Set(ctx, ordersCollection, o.OrderID, o); err != nil {
		return nil, &ErrPersistence{Op: "update order", Err: err}
	}
	return o, nil
}

func (s *OrderService) decrementStock(ctx context.Context, o *domain.Order) []string {
	var warnings []string
	for _, line := range o.Lines {
		category := line.Category
		if category == "" {
			category = defaultCategory
		}
		docs, err := s.Store.Query(ctx, category, docstore.Query{
			Filters: []docstore.Filter{{Field: "codigo", Op: "==", Value: line.ProductID}},
			Limit:   1,
		})
		if err != nil || len(docs) == 0 {
			w := fmt.Sprintf("product %s not found in %s", line.ProductID, category)
			s.Log.WithField("orderId", o.OrderID).Warn(w)
			warnings = append(warnings, w)
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(docs[0].Data, &p); err != nil {
			w := fmt.Sprintf("product %s has a malformed record", line.ProductID)
			s.Log.WithField("orderId", o.OrderID).Warn(w)
			warnings = append(warnings, w)
			continue
		}
		p.Stock -= line.Quantity
		if p.Stock < 0 {
			p.Stock = 0
		}
		if err := s.Store.Set(ctx, category, docs[0].ID, p); err != nil {
			w := fmt.Sprintf("stock update failed for product %s", line.ProductID)
			s.Log.WithError(err).WithField("orderId", o.OrderID).Warn(w)
			warnings = append(warnings, w)
		}
	}
	return warnings
}

func decodeOrder(raw json.RawMessage) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(raw, &o); err != nil || o.OrderID == "" || !o.Status.Valid() {
		return nil, ErrValidation("malformed order record")
	}
	return &o, nil
}
