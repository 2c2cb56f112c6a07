package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// Repository manages catalog reads and the stock-adjustment write path.
// All stock mutation outside checkout reservation goes through
// AdjustStock so that rivals serialize on the same row lock.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a product repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the given products in one query. Missing ids are not
// an error here; callers compare against the requested set.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// ListActive returns the purchasable catalog.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var found []models.Product
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("title ASC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// AdjustStock applies a signed stock delta under a row lock. A negative
// delta that would take stock below zero fails without mutating the row.
// The read and write share one transaction so the lock is still held
// when the decrement lands; a rival reservation cannot be overwritten.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := LockForUpdate(tx).First(&product, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return err
		}

		if product.StockQty+delta < 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("insufficient stock for %s, available: %d", product.Title, product.StockQty))
		}

		return tx.Model(&models.Product{}).
			Where("id = ?", id).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", delta)).Error
	})
}

// LockForUpdate adds a row-level lock where the dialect supports one.
// sqlite (tests) has a single writer, which serializes rivals anyway.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
