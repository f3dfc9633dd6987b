package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

const cartCollection = "carts"

// CartStore owns the in-memory cart of one customer and writes every
// mutation through to the carts collection. The in-memory state is
// updated before the write is attempted; a failed write is surfaced to
// the caller without rollback, so local and stored state may diverge
// until the next successful write. With no customer bound the cart
// stays local-only and writes are skipped.
type CartStore struct {
	store docstore.Store
	log   *logrus.Entry

	mu         sync.Mutex
	customerID string
	lines      []domain.CartLine
}

func NewCartStore(store docstore.Store, log *logrus.Entry) *CartStore {
	return &CartStore{store: store, log: log}
}

// Load binds the cart to a customer and replaces its contents with the
// persisted cart, or an empty one when no record exists.
func (c *CartStore) Load(ctx context.Context, customerID string) error {
	var cart domain.Cart
	raw, err := c.store.Get(ctx, cartCollection, customerID)
	switch {
	case err == docstore.ErrNoDocument:
	case err != nil:
		return &ErrPersistence{Op: "load cart", Err: err}
	default:
		if err := json.Unmarshal(raw, &cart); err != nil {
			return ErrValidation("malformed cart record")
		}
	}
	c.mu.Lock()
	c.customerID = customerID
	c.lines = cart.Items
	c.mu.Unlock()
	return nil
}

// Reset drops the in-memory cart and its customer binding. Invoked on
// sign-out; the persisted record is left untouched.
func (c *CartStore) Reset() {
	c.mu.Lock()
	c.customerID = ""
	c.lines = nil
	c.mu.Unlock()
}

// BindAuth ties the cart lifecycle to auth-state transitions: load on
// sign-in, reset on sign-out. The returned func unsubscribes.
func (c *CartStore) BindAuth(hub *AuthHub) func() {
	return hub.Subscribe(func(ev AuthEvent) {
		if !ev.SignedIn {
			c.Reset()
			return
		}
		if err := c.Load(context.Background(), ev.User.UserID); err != nil {
			c.warn("load cart on sign-in", err)
		}
	})
}

func (c *CartStore) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// AddItem merges into an existing line for the same product or appends
// a new line with quantity 1.
func (c *CartStore) AddItem(ctx context.Context, p domain.Product) error {
	c.mu.Lock()
	merged := false
	for i := range c.lines {
		if c.lines[i].ProductID == p.Code {
			c.lines[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		c.lines = append(c.lines, domain.LineFromProduct(p))
	}
	c.mu.Unlock()
	return c.persist(ctx)
}

func (c *CartStore) IncreaseQuantity(ctx context.Context, productID string) error {
	c.mu.Lock()
	found := false
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return ErrNotFound("cart line")
	}
	return c.persist(ctx)
}

// DecreaseQuantity drops the line entirely when its quantity reaches
// zero; a line never holds quantity 0.
func (c *CartStore) DecreaseQuantity(ctx context.Context, productID string) error {
	c.mu.Lock()
	found := false
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		found = true
		if c.lines[i].Quantity <= 1 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity--
		}
		break
	}
	c.mu.Unlock()
	if !found {
		return ErrNotFound("cart line")
	}
	return c.persist(ctx)
}

func (c *CartStore) RemoveItem(ctx context.Context, productID string) error {
	c.mu.Lock()
	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	c.mu.Unlock()
	return c.persist(ctx)
}

// Clear empties the cart and deletes the backing record rather than
// persisting an empty list.
func (c *CartStore) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.lines = nil
	id := c.customerID
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	if err := c.store.Delete(ctx, cartCollection, id); err != nil {
		c.warn("delete cart", err)
		return &ErrPersistence{Op: "delete cart", Err: err}
	}
	return nil
}

func (c *CartStore) persist(ctx context.Context) error {
	c.mu.Lock()
	id := c.customerID
	cart := domain.Cart{Items: make([]domain.CartLine, len(c.lines))}
	copy(cart.Items, c.lines)
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	if err := c.store.Set(ctx, cartCollection, id, cart); err != nil {
		c.warn("save cart", err)
		return &ErrPersistence{Op: "save cart", Err: err}
	}
	return nil
}

func (c *CartStore) warn(op string, err error) {
	if c.log != nil {
		c.log.WithError(err).Warn(op)
	}
}
