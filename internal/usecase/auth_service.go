package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

const usersCollection = "users"

type AuthService struct {
	Store     docstore.Store
	JWTSecret string
	Log       *logrus.Entry
}

// Login resolves the e-mail to a stored user, creating one on first
// sign-in, and issues a week-long HS256 token.
func (s *AuthService) Login(ctx context.Context, email string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil, ErrValidation("email required")
	}
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		now := time.Now().UTC()
		u = &domain.User{
			UserID:    uuid.NewString(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Store.Set(ctx, usersCollection, u.UserID, u); err != nil {
			return "", nil, &ErrPersistence{Op: "create user", Err: err}
		}
	}
	claims := jwt.MapClaims{
		"user_id": u.UserID,
		"email":   u.Email,
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, u, nil
}

func (s *AuthService) Verify(token string) (domain.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrValidation("invalid token")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, ErrValidation("invalid token claims")
	}
	uid, _ := m["user_id"].(string)
	email, _ := m["email"].(string)
	if uid == "" {
		return domain.Identity{}, ErrValidation("invalid token claims")
	}
	return domain.Identity{UserID: uid, Email: email}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := s.Store.Get(ctx, usersCollection, userID)
	if err == docstore.ErrNoDocument {
		return nil, ErrNotFound("user")
	}
	if err != nil {
		return nil, &ErrPersistence{Op: "load user", Err: err}
	}
	return decodeUser(raw)
}

// SaveProfile stores the checkout-relevant customer fields. All of them
// are required and the CPF must pass its checksum.
func (s *AuthService) SaveProfile(ctx context.Context, userID, name, phone, address, cpf string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	address = strings.TrimSpace(address)
	cpf = strings.TrimSpace(cpf)
	switch {
	case name == "":
		return nil, ErrValidation("name required")
	case phone == "":
		return nil, ErrValidation("phone required")
	case address == "":
		return nil, ErrValidation("address required")
	case !ValidateCPF(cpf):
		return nil, ErrValidation("invalid CPF")
	}
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.Phone = phone
	u.Address = address
	u.CPF = cpf
	u.UpdatedAt = time.Now().UTC()
	if err := s.Store.Set(ctx, usersCollection, userID, u); err != nil {
		return nil, &ErrPersistence{Op: "save user", Err: err}
	}
	return u, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	docs, err := s.Store.Query(ctx, usersCollection, docstore.Query{
		Filters: []docstore.Filter{{Field: "email", Op: "==", Value: email}},
		Limit:   1,
	})
	if err != nil {
		return nil, &ErrPersistence{Op: "find user", Err: err}
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeUser(docs[0].Data)
}

func decodeUser(raw json.RawMessage) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil || u.UserID == "" {
		return nil, ErrValidation("malformed user record")
	}
	return &u, nil
}

// AuthEvent is published on every sign-in or sign-out transition.
type AuthEvent struct {
	SignedIn bool
	User     domain.Identity
}

// AuthHub fans auth-state transitions out to subscribers. Replaces the
// callback-per-screen pattern with a single stream carrying explicit
// unsubscribe semantics.
type AuthHub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(AuthEvent)
}

func NewAuthHub() *AuthHub {
	return &AuthHub{subs: make(map[int]func(AuthEvent))}
}

// Subscribe registers fn for future events. The returned func removes
// the subscription; calling it more than once is harmless.
func (h *AuthHub) Subscribe(fn func(AuthEvent)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *AuthHub) SignIn(user domain.Identity) {
	h.publish(AuthEvent{SignedIn: true, User: user})
}

func (h *AuthHub) SignOut(user domain.Identity) {
	h.publish(AuthEvent{SignedIn: false, User: user})
}

func (h *AuthHub) publish(ev AuthEvent) {
	h.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
