// Package cart owns the pre-checkout shopping cart. Adding an existing
// product merges quantities instead of creating a second line; stock is
// only capacity-checked here, never reserved.
package cart

import (
	"context"
	"errors"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/locks"
	"github.com/example/marketplace/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemView is one cart line as returned to clients.
type ItemView struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	TotalPrice  float64 `json:"total_price"`
}

// View is the recomputed cart state returned by every operation.
type View struct {
	ID             uint       `json:"id"`
	UserID         uint       `json:"user_id"`
	TotalCartPrice float64    `json:"total_cart_price"`
	Items          []ItemView `json:"items"`
}

type Service struct {
	db     *gorm.DB
	locks  *locks.Keyed
	logger *zap.Logger
}

func NewService(db *gorm.DB, userLocks *locks.Keyed, logger *zap.Logger) *Service {
	return &Service{db: db, locks: userLocks, logger: logger}
}

// GetUserCart returns the user's cart, creating an empty one on first
// access.
func (s *Service) GetUserCart(ctx context.Context, userID uint) (*View, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		view, err = buildView(tx, cart)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "get cart")
	}
	return view, nil
}

// AddItem puts quantity units of a product into the cart. If the product is
// already there the quantities merge into a single line and the unit price
// snapshot is refreshed. The stock comparison here is a capacity check
// only; reservation happens at order placement.
func (s *Service) AddItem(ctx context.Context, userID, productID uint, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("product %d", productID)
			}
			return err
		}

		var existing models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&existing).Error
		switch {
		case err == nil:
			newQuantity := existing.Quantity + quantity
			if product.Stock < newQuantity {
				return apperrors.InsufficientStockf("product %q: %d in stock, %d requested", product.Name, product.Stock, newQuantity)
			}
			existing.Quantity = newQuantity
			existing.UnitPrice = product.Price
			existing.LineTotal = float64(newQuantity) * product.Price
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			if product.Stock < quantity {
				return apperrors.InsufficientStockf("product %q: %d in stock, %d requested", product.Name, product.Stock, quantity)
			}
			item := models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.Price,
				LineTotal: float64(quantity) * product.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}

		default:
			return err
		}

		view, err = buildView(tx, cart)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "add cart item")
	}

	s.logger.Info("Cart item added",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity))
	return view, nil
}

// RemoveItem deletes one line from the user's cart. Removing a line that
// sits in someone else's cart is refused.
func (s *Service) RemoveItem(ctx context.Context, userID, cartItemID uint) (*View, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.First(&item, cartItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("cart item %d", cartItemID)
			}
			return err
		}
		if item.CartID != cart.ID {
			return apperrors.Unauthorizedf("cart item %d does not belong to user %d", cartItemID, userID)
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		view, err = buildView(tx, cart)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "remove cart item")
	}
	return view, nil
}

// ClearCart deletes every line; the cart row itself stays.
func (s *Service) ClearCart(ctx context.Context, userID uint) (*View, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		view, err = buildView(tx, cart)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "clear cart")
	}
	return view, nil
}

func getOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperrors.NotFoundf("user %d", userID)
	}

	cart = models.Cart{UserID: userID}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// buildView recomputes the response shape from the rows: line items in
// insertion order plus the summed cart total.
func buildView(tx *gorm.DB, cart *models.Cart) (*View, error) {
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	view := &View{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]ItemView, 0, len(items)),
	}
	if len(items) == 0 {
		return view, nil
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	for _, item := range items {
		view.Items = append(view.Items, ItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: names[item.ProductID],
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
			TotalPrice:  item.LineTotal,
		})
		view.TotalCartPrice += item.LineTotal
	}
	return view, nil
}

