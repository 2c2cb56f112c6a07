package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/internal/products"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// Request asks for a quantity of one product to be reserved.
type Request struct {
	ProductID uuid.UUID
	Qty       int
}

// Result is the locked product snapshot taken at reservation time; the
// order ledger freezes these values into order items.
type Result struct {
	ProductID      uuid.UUID
	Title          string
	UnitPricePaise int64
	WeightGrams    int
	Qty            int
}

// StockShortage is the structured detail attached to an out-of-stock
// failure, citing what was actually available.
type StockShortage struct {
	ProductID    uuid.UUID `json:"productId"`
	Title        string    `json:"title"`
	RequestedQty int       `json:"requestedQty"`
	AvailableQty int       `json:"availableQty"`
}

// Reserve checks and decrements stock for every request inside the
// caller's transaction. Any failure returns an error so the enclosing
// transaction rolls back; stock is never partially decremented.
// Duplicate product lines are aggregated before locking.
func Reserve(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reservation requires a transaction")
	}
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items to reserve")
	}

	needed := make(map[uuid.UUID]int, len(requests))
	order := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("reservation quantity must be positive for product %s", req.ProductID))
		}
		if _, seen := needed[req.ProductID]; !seen {
			order = append(order, req.ProductID)
		}
		needed[req.ProductID] += req.Qty
	}

	// Lock rows in a stable order so concurrent checkouts cannot deadlock.
	lockOrder := make([]uuid.UUID, len(order))
	copy(lockOrder, order)
	sort.Slice(lockOrder, func(i, j int) bool { return lockOrder[i].String() < lockOrder[j].String() })

	var locked []models.Product
	if err := products.LockForUpdate(tx.WithContext(ctx)).
		Where("id IN ?", lockOrder).
		Find(&locked).Error; err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}

	byID := make(map[uuid.UUID]models.Product, len(locked))
	for _, product := range locked {
		byID[product.ID] = product
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		product, ok := byID[id]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s is not available", id))
		}

		qty := needed[id]
		if product.StockQty < qty {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("insufficient stock for %s, available: %d", product.Title, product.StockQty)).
				WithDetails(StockShortage{
					ProductID:    product.ID,
					Title:        product.Title,
					RequestedQty: qty,
					AvailableQty: product.StockQty,
				})
		}

		results = append(results, Result{
			ProductID:      product.ID,
			Title:          product.Title,
			UnitPricePaise: product.UnitPricePaise,
			WeightGrams:    product.WeightGrams,
			Qty:            qty,
		})
	}

	for _, result := range results {
		if err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", result.ProductID).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", result.Qty)).Error; err != nil {
			return nil, fmt.Errorf("decrementing stock for %s: %w", result.ProductID, err)
		}
	}

	return results, nil
}
