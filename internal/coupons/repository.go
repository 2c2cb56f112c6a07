package coupons

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// Repository manages coupon reads for checkout. Coupon writes belong to
// the admin surface and are not exposed here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCode matches codes case-insensitively; codes are stored upper-case.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		Where("code = ?", normalized).
		First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, err
	}
	return &coupon, nil
}
