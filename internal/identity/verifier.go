package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/config"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/redis"
	"github.com/anandkp/shelfwise-backend/pkg/security"
)

// CodeSender delivers an OTP code to a phone number. SMS delivery is an
// external collaborator; production wires a provider, tests a stub.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

type otpStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	OTPKey(verificationID string) string
}

// verificationRecord is the redis-stored state of one in-flight
// verification. Only the code's digest is stored.
type verificationRecord struct {
	Phone    string `json:"phone"`
	CodeHash string `json:"codeHash"`
	Attempts int    `json:"attempts"`
}

// Verifications creates and resumes phone verifications. At most one
// verification per user is in flight; starting a new one replaces it.
type Verifications struct {
	store  otpStore
	sender CodeSender
	cfg    config.OTPConfig
	logg   *logger.Logger
}

// NewVerifications builds the verification factory.
func NewVerifications(store otpStore, sender CodeSender, cfg config.OTPConfig, logg *logger.Logger) (*Verifications, error) {
	if store == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if sender == nil {
		return nil, fmt.Errorf("code sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Verifications{store: store, sender: sender, cfg: cfg, logg: logg}, nil
}

// Verifier is the handle to one user's in-flight verification. It owns
// the stored code: Confirm proves possession, Close tears it down.
type Verifier struct {
	parent *Verifications
	userID uuid.UUID
}

// Start generates a fresh code, stores its digest with the configured
// TTL, and sends it to the phone.
func (f *Verifications) Start(ctx context.Context, userID uuid.UUID, phone string) (*Verifier, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	code, err := security.GenerateOTPCode(f.cfg.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating otp code")
	}

	record, err := json.Marshal(verificationRecord{
		Phone:    phone,
		CodeHash: security.HashOTPCode(code),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding verification record")
	}

	key := f.store.OTPKey(userID.String())
	if err := f.store.Set(ctx, key, string(record), f.cfg.TTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing verification")
	}

	if err := f.sender.Send(ctx, phone, code); err != nil {
		// Undo the stored code so a failed delivery cannot be confirmed.
		_ = f.store.Del(ctx, key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending otp code")
	}

	f.logg.Info(f.logg.WithUserID(ctx, userID.String()), "phone verification started")
	return &Verifier{parent: f, userID: userID}, nil
}

// Resume returns the handle to an already-started verification without
// sending a new code.
func (f *Verifications) Resume(userID uuid.UUID) *Verifier {
	return &Verifier{parent: f, userID: userID}
}

// Confirm checks the presented code. Each wrong attempt counts against
// the configured budget; exhausting it closes the verification.
func (v *Verifier) Confirm(ctx context.Context, code string) (string, error) {
	f := v.parent
	key := f.store.OTPKey(v.userID.String())

	raw, err := f.store.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "no verification in progress")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading verification")
	}

	var record verificationRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding verification record")
	}

	if !security.VerifyOTPCode(code, record.CodeHash) {
		record.Attempts++
		if record.Attempts >= f.cfg.MaxAttempts {
			_ = v.Close(ctx)
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "verification code attempts exhausted")
		}
		if updated, merr := json.Marshal(record); merr == nil {
			_ = f.store.Set(ctx, key, string(updated), f.cfg.TTL)
		}
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "incorrect verification code")
	}

	if err := v.Close(ctx); err != nil {
		return "", err
	}

	f.logg.Info(f.logg.WithUserID(ctx, v.userID.String()), "phone verification confirmed")
	return record.Phone, nil
}

// Close discards the stored verification state.
func (v *Verifier) Close(ctx context.Context) error {
	key := v.parent.store.OTPKey(v.userID.String())
	if err := v.parent.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "closing verification")
	}
	return nil
}
