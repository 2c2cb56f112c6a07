package identity

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// Repository manages user accounts backing both identity variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	normalized := strings.TrimSpace(phone)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "phone = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}
