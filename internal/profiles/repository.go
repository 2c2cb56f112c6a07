package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// Repository manages the buyer contact/address profile. The profile is
// upserted inside the checkout transaction so the latest shipping
// details always survive a successful submit.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, profile *models.BuyerProfile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.BuyerProfile, error)
	MarkPhoneVerified(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a profile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes the profile, replacing contact fields and the default
// address on conflict. PhoneVerifiedAt is only overwritten when set.
func (r *repository) Upsert(ctx context.Context, profile *models.BuyerProfile) error {
	if profile == nil || profile.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile user id required")
	}

	columns := []string{"full_name", "phone", "email", "default_address", "updated_at"}
	if profile.PhoneVerifiedAt != nil {
		columns = append(columns, "phone_verified_at")
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(profile).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.BuyerProfile, error) {
	var profile models.BuyerProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) MarkPhoneVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.BuyerProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("phone_verified_at", at).Error
}
