package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/redis"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

// CartLine is one product entry in the ephemeral cart.
type CartLine struct {
	ProductID uuid.UUID `json:"productId"`
	Qty       int       `json:"qty"`
}

// Session is the redis-backed state of one buyer's checkout. The cart
// never touches the database before submit; only the attempt id links a
// session to the order it eventually creates.
type Session struct {
	UserID        uuid.UUID           `json:"userId"`
	Items         []CartLine          `json:"items"`
	Address       *types.Address      `json:"address,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod,omitempty"`
	CouponCode    string              `json:"couponCode,omitempty"`
	Step          enums.CheckoutStep  `json:"step"`
	AttemptID     string              `json:"attemptId"`
	VerifiedAt    *time.Time          `json:"verifiedAt,omitempty"`
	OrderNumber   string              `json:"orderNumber,omitempty"`
	RedirectURL   string              `json:"redirectUrl,omitempty"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// RotateAttempt assigns a fresh attempt nonce. Called whenever the cart
// mutates, so a replayed submit can never reuse a stale snapshot.
func (s *Session) RotateAttempt() {
	s.AttemptID = uuid.NewString()
	s.OrderNumber = ""
	s.RedirectURL = ""
}

type sessionRedis interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(userID string) string
}

// SessionStore persists checkout sessions in redis with a rolling TTL.
type SessionStore struct {
	store sessionRedis
	ttl   time.Duration
}

// NewSessionStore builds a session store with the configured TTL.
func NewSessionStore(store sessionRedis, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{store: store, ttl: ttl}
}

// Load returns the buyer's session, or a fresh one when none exists.
func (s *SessionStore) Load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	raw, err := s.store.Get(ctx, s.store.CheckoutSessionKey(userID.String()))
	if err != nil {
		if redis.IsNil(err) {
			session := &Session{UserID: userID, Step: enums.CheckoutStepAddress}
			session.RotateAttempt()
			return session, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading checkout session")
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session")
	}
	return &session, nil
}

// Save writes the session back, refreshing the TTL.
func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout session")
	}
	key := s.store.CheckoutSessionKey(session.UserID.String())
	if err := s.store.Set(ctx, key, string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving checkout session")
	}
	return nil
}

// Delete discards the buyer's session.
func (s *SessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Del(ctx, s.store.CheckoutSessionKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting checkout session")
	}
	return nil
}
