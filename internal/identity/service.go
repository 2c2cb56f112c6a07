package identity

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/anandkp/shelfwise-backend/pkg/auth"
	"github.com/anandkp/shelfwise-backend/pkg/config"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/security"
)

var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// Service authenticates buyers. Two variants exist: password login and
// phone OTP; both issue the same token shape and resolve to the same
// opaque user id.
type Service interface {
	Login(ctx context.Context, phone, password string) (string, Identity, error)
	StartOTP(ctx context.Context, phone string) error
	ConfirmOTP(ctx context.Context, phone, code string) (string, Identity, error)
}

type service struct {
	repo          Repository
	verifications *Verifications
	jwtCfg        config.JWTConfig
	logg          *logger.Logger
}

// NewService builds the identity service with the required dependencies.
func NewService(repo Repository, verifications *Verifications, jwtCfg config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	if verifications == nil {
		return nil, fmt.Errorf("verifications required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, verifications: verifications, jwtCfg: jwtCfg, logg: logg}, nil
}

// Login verifies the password variant and mints an access token. The
// phone-verified claim stays false until the buyer completes the
// checkout verification step.
func (s *service) Login(ctx context.Context, phone, password string) (string, Identity, error) {
	if !mobilePattern.MatchString(phone) {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "phone must be a 10-digit mobile number")
	}
	if password == "" {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return "", Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return "", Identity{}, err
	}
	if user.PasswordHash == nil {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return "", Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ident := Identity{UserID: user.ID, Kind: enums.IdentityKindPassword}
	token, err := s.mint(ident)
	if err != nil {
		return "", Identity{}, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password login succeeded")
	return token, ident, nil
}

// StartOTP begins the OTP variant: the account is created on first use,
// then a code is sent to the phone.
func (s *service) StartOTP(ctx context.Context, phone string) error {
	if !mobilePattern.MatchString(phone) {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone must be a 10-digit mobile number")
	}

	user, err := s.findOrCreate(ctx, phone)
	if err != nil {
		return err
	}

	_, err = s.verifications.Start(ctx, user.ID, phone)
	return err
}

// ConfirmOTP proves code possession and mints a phone-verified token.
func (s *service) ConfirmOTP(ctx context.Context, phone, code string) (string, Identity, error) {
	if !mobilePattern.MatchString(phone) {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "phone must be a 10-digit mobile number")
	}
	if code == "" {
		return "", Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return "", Identity{}, err
	}

	if _, err := s.verifications.Resume(user.ID).Confirm(ctx, code); err != nil {
		return "", Identity{}, err
	}

	ident := Identity{UserID: user.ID, Kind: enums.IdentityKindOTP, PhoneVerified: true}
	token, err := s.mint(ident)
	if err != nil {
		return "", Identity{}, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "otp login succeeded")
	return token, ident, nil
}

func (s *service) findOrCreate(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		return nil, err
	}

	created := &models.User{Phone: phone}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating user")
	}
	return created, nil
}

func (s *service) mint(ident Identity) (string, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID:        ident.UserID,
		Kind:          ident.Kind,
		PhoneVerified: ident.PhoneVerified,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return token, nil
}
