// Package inventory owns the stock counter. Every decrement goes through a
// single compare-and-swap UPDATE so that concurrent reservations for the
// same product can never drive stock negative.
package inventory

import (
	"context"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLedger(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// WithTx returns a ledger bound to an open transaction. Reservations made
// through it are undone when the transaction rolls back, which is how a
// failed multi-line order restores stock taken by its earlier lines.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, logger: l.logger}
}

// Reserve atomically checks and decrements available stock:
//
//	UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?
//
// Zero affected rows means the guard failed; a follow-up existence check
// separates a missing product from insufficient stock.
func (l *Ledger) Reserve(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := l.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID).
			Count(&count).Error; err != nil {
			return apperrors.Systemf(err, "reserve stock")
		}
		if count == 0 {
			return apperrors.NotFoundf("product %d", productID)
		}
		return apperrors.InsufficientStockf("product %d: requested %d", productID, quantity)
	}

	l.logger.Debug("Stock reserved",
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity))
	return nil
}

// Release puts quantity back, compensating a reservation that will not be
// fulfilled (e.g. a cancelled order).
func (l *Ledger) Release(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("product %d", productID)
	}

	l.logger.Debug("Stock released",
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity))
	return nil
}

// Restock adds sellable units outside of any checkout.
func (l *Ledger) Restock(ctx context.Context, productID uint, quantity int) error {
	return l.Release(ctx, productID, quantity)
}

// Adjust sets the counter to an absolute value, for inventory corrections.
func (l *Ledger) Adjust(ctx context.Context, productID uint, stock int) error {
	if stock < 0 {
		return apperrors.InvalidArgumentf("stock cannot be negative, got %d", stock)
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", stock)
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "adjust stock")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("product %d", productID)
	}
	return nil
}

// Stock reads the current counter, mainly for handlers and tests.
func (l *Ledger) Stock(ctx context.Context, productID uint) (int, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, apperrors.NotFoundf("product %d", productID)
		}
		return 0, apperrors.Systemf(err, "read stock")
	}
	return product.Stock, nil
}
