// Package order converts a mutable cart into an immutable order. Stock
// decrements, the order insert and the cart clear form one transaction:
// either all of them land or none do.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/inventory"
	"github.com/example/marketplace/pkg/locks"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/notify"
	"github.com/example/marketplace/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemView is one order line as returned to clients.
type ItemView struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	SubTotal    float64 `json:"sub_total"`
}

// View is the response shape for a single order.
type View struct {
	OrderID         uint       `json:"order_id"`
	UserID          uint       `json:"user_id"`
	TotalAmount     float64    `json:"total_amount"`
	Status          string     `json:"status"`
	ShippingAddress string     `json:"shipping_address"`
	PaymentMethod   string     `json:"payment_method"`
	OrderedAt       time.Time  `json:"ordered_at"`
	Items           []ItemView `json:"items"`
}

// Deps wires the service. Cache, Audit and Notifier are optional; a nil
// value just disables that side channel.
type Deps struct {
	DB       *gorm.DB
	Ledger   *inventory.Ledger
	Locks    *locks.Keyed
	Cache    *repository.RedisRepository
	Audit    *repository.MongoRepository
	Notifier *notify.Notifier
	Logger   *zap.Logger
}

type Service struct {
	db       *gorm.DB
	ledger   *inventory.Ledger
	locks    *locks.Keyed
	cache    *repository.RedisRepository
	audit    *repository.MongoRepository
	notifier *notify.Notifier
	logger   *zap.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		db:       d.DB,
		ledger:   d.Ledger,
		locks:    d.Locks,
		cache:    d.Cache,
		audit:    d.Audit,
		notifier: d.Notifier,
		logger:   d.Logger,
	}
}

// PlaceOrder checks out the user's cart. Lines are reserved in insertion
// order; the first failing reservation aborts the transaction, which also
// returns the stock taken by the lines before it. Cache, audit and
// notification run strictly after commit.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, paymentMethod, shippingAddress string) (*View, error) {
	if paymentMethod == "" {
		return nil, apperrors.InvalidArgumentf("payment method is required")
	}
	if shippingAddress == "" {
		return nil, apperrors.InvalidArgumentf("shipping address is required")
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("user %d", userID)
			}
			return err
		}

		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("cart for user %d", userID)
			}
			return err
		}

		var cartItems []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&cartItems).Error; err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return apperrors.InvalidArgumentf("cart is empty")
		}

		products, err := loadProducts(tx, cartItems)
		if err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		order := models.Order{
			UserID:          userID,
			Status:          models.OrderPending,
			PaymentMethod:   paymentMethod,
			ShippingAddress: shippingAddress,
		}

		for _, item := range cartItems {
			product, ok := products[item.ProductID]
			if !ok {
				return apperrors.NotFoundf("product %d", item.ProductID)
			}
			if err := ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, apperrors.ErrInsufficientStock) {
					return apperrors.InsufficientStockf("product %q: %d in stock, %d requested",
						product.Name, product.Stock, item.Quantity)
				}
				return err
			}

			subTotal := float64(item.Quantity) * item.UnitPrice
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Price:       item.UnitPrice,
				SubTotal:    subTotal,
			})
			order.TotalAmount += subTotal
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		view = buildView(&order)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "place order")
	}

	s.afterPlace(view)
	return view, nil
}

func (s *Service) afterPlace(view *View) {
	s.logger.Info("Order placed",
		zap.Uint("order_id", view.OrderID),
		zap.Uint("user_id", view.UserID),
		zap.Float64("total_amount", view.TotalAmount),
		zap.Int("item_count", len(view.Items)))

	if s.cache != nil {
		if err := s.cache.CacheOrderView(context.Background(), view.OrderID, view); err != nil {
			s.logger.Warn("Failed to cache order", zap.Uint("order_id", view.OrderID), zap.Error(err))
		}
	}
	if s.audit != nil {
		go s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Service:  "order-service",
			Action:   "place_order",
			EntityID: view.OrderID,
			Data:     bson.M{"user_id": view.UserID, "total_amount": view.TotalAmount},
		})
	}
	if s.notifier != nil {
		s.notifier.OrderPlaced(view.OrderID, view.UserID, view.TotalAmount)
	}
}

// GetOrder looks one order up, trying the cache first.
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*View, error) {
	if s.cache != nil {
		var cached View
		if err := s.cache.GetOrderView(ctx, orderID, &cached); err == nil {
			return &cached, nil
		}
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := buildView(order)
	if s.cache != nil {
		if err := s.cache.CacheOrderView(ctx, orderID, view); err != nil {
			s.logger.Warn("Failed to cache order", zap.Uint("order_id", orderID), zap.Error(err))
		}
	}
	return view, nil
}

// GetUserOrders lists a user's orders, most recent first.
func (s *Service) GetUserOrders(ctx context.Context, userID uint) ([]*View, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Systemf(err, "list orders")
	}

	views := make([]*View, 0, len(orders))
	for i := range orders {
		views = append(views, buildView(&orders[i]))
	}
	return views, nil
}

// UpdateStatus moves an order along its lifecycle. Illegal transitions
// (from a terminal state, or skipping a step) are rejected.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*View, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidArgumentf("unknown order status %q", status)
	}

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return apperrors.InvalidArgumentf("cannot transition order %d from %s to %s", orderID, order.Status, status)
		}
		if err := tx.Model(order).Update("status", status).Error; err != nil {
			return err
		}
		order.Status = status
		view = buildView(order)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "update order status")
	}

	s.afterStatusChange(view, "update_status")
	return view, nil
}

// Cancel transitions an order to CANCELLED and releases the stock its
// lines had reserved, in the same transaction.
func (s *Service) Cancel(ctx context.Context, orderID uint) (*View, error) {
	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(models.OrderCancelled) {
			return apperrors.InvalidArgumentf("cannot cancel order %d in status %s", orderID, order.Status)
		}
		if err := tx.Model(order).Update("status", models.OrderCancelled).Error; err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		for _, item := range order.Items {
			if err := ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		order.Status = models.OrderCancelled
		view = buildView(order)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "cancel order")
	}

	s.afterStatusChange(view, "cancel_order")
	if s.notifier != nil {
		s.notifier.OrderCancelled(view.OrderID, view.UserID)
	}
	return view, nil
}

func (s *Service) afterStatusChange(view *View, action string) {
	s.logger.Info("Order status changed",
		zap.Uint("order_id", view.OrderID),
		zap.String("status", view.Status))

	if s.cache != nil {
		if err := s.cache.InvalidateOrder(context.Background(), view.OrderID); err != nil {
			s.logger.Warn("Failed to invalidate order cache", zap.Uint("order_id", view.OrderID), zap.Error(err))
		}
	}
	if s.audit != nil {
		go s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Service:  "order-service",
			Action:   action,
			EntityID: view.OrderID,
			Data:     bson.M{"user_id": view.UserID, "status": view.Status},
		})
	}
}

func (s *Service) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("order %d", orderID)
		}
		return nil, apperrors.Systemf(err, "load order")
	}
	return &order, nil
}

func loadOrderTx(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("order %d", orderID)
		}
		return nil, err
	}
	return &order, nil
}

func loadProducts(tx *gorm.DB, items []models.CartItem) (map[uint]models.Product, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func buildView(order *models.Order) *View {
	view := &View{
		OrderID:         order.ID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		OrderedAt:       order.CreatedAt,
		Items:           make([]ItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, ItemView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			SubTotal:    item.SubTotal,
		})
	}
	return view
}
