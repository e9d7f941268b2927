package order

import (
	"context"
	"sync"
	"testing"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/cart"
	"github.com/example/marketplace/pkg/inventory"
	"github.com/example/marketplace/pkg/locks"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	orders *Service
	carts  *cart.Service
}

func newFixture(t *testing.T) *fixture {
	db := testutil.OpenDB(t)
	logger := zap.NewNop()
	userLocks := locks.NewKeyed()
	return &fixture{
		db:    db,
		carts: cart.NewService(db, userLocks, logger),
		orders: NewService(Deps{
			DB:     db,
			Ledger: inventory.NewLedger(db, logger),
			Locks:  userLocks,
			Logger: logger,
		}),
	}
}

func (f *fixture) addToCart(t *testing.T, userID, productID uint, quantity int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, productID, quantity)
	require.NoError(t, err)
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Count(&count).Error)
	return count
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)
	mouse := testutil.SeedProduct(t, f.db, "Mouse", 20, 5)

	f.addToCart(t, user.ID, laptop.ID, 2)
	f.addToCart(t, user.ID, mouse.ID, 1)

	view, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)

	assert.NotZero(t, view.OrderID)
	assert.Equal(t, user.ID, view.UserID)
	assert.Equal(t, string(models.OrderPending), view.Status)
	assert.Equal(t, "card", view.PaymentMethod)
	assert.Equal(t, "1 Main St", view.ShippingAddress)
	assert.InDelta(t, 40, view.TotalAmount, 0.001)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "Laptop", view.Items[0].ProductName)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.InDelta(t, 20, view.Items[0].SubTotal, 0.001)
	assert.Equal(t, "Mouse", view.Items[1].ProductName)
	assert.InDelta(t, 20, view.Items[1].SubTotal, 0.001)

	// Total equals the sum of line subtotals.
	var sum float64
	for _, item := range view.Items {
		sum += item.SubTotal
	}
	assert.InDelta(t, sum, view.TotalAmount, 0.001)

	// Stock was reserved and the cart emptied, atomically with the insert.
	assert.Equal(t, 8, testutil.ProductStock(t, f.db, laptop.ID))
	assert.Equal(t, 4, testutil.ProductStock(t, f.db, mouse.ID))
	cartView, err := f.carts.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, cartView.Items)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	_, err := f.carts.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Zero(t, f.countRows(t, &models.Order{}))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")

	_, err := f.orders.PlaceOrder(context.Background(), user.ID, "", "1 Main St")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = f.orders.PlaceOrder(context.Background(), user.ID, "card", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = f.orders.PlaceOrder(context.Background(), 42, "card", "1 Main St")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// A user who never touched their cart has none yet.
	_, err = f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// A later line failing its reservation must roll back the stock taken by
// earlier lines, the order insert and the cart clear.
func TestPlaceOrderPartialFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)
	mouse := testutil.SeedProduct(t, f.db, "Mouse", 20, 4)

	f.addToCart(t, user.ID, laptop.ID, 1)
	f.addToCart(t, user.ID, mouse.ID, 10)

	_, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.Equal(t, 10, testutil.ProductStock(t, f.db, laptop.ID))
	assert.Equal(t, 4, testutil.ProductStock(t, f.db, mouse.ID))
	assert.Zero(t, f.countRows(t, &models.Order{}))
	assert.Zero(t, f.countRows(t, &models.OrderItem{}))

	cartView, err := f.carts.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, cartView.Items, 2)
}

func TestPlaceOrderSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 100, 10)

	f.addToCart(t, user.ID, laptop.ID, 1)
	require.NoError(t, f.db.Model(laptop).Update("price", 150.0).Error)

	view, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	// The order charges the price captured when the item entered the cart.
	assert.Equal(t, 100.0, view.Items[0].Price)
	assert.InDelta(t, 100, view.TotalAmount, 0.001)
}

// Two users race to check out 3 units each from a stock of 5. Exactly one
// order may be placed; the loser keeps their cart.
func TestPlaceOrderConcurrentContention(t *testing.T) {
	f := newFixture(t)
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 5)

	f.addToCart(t, alice.ID, laptop.ID, 3)
	f.addToCart(t, bob.ID, laptop.ID, 3)

	users := []uint{alice.ID, bob.ID}
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, userID := range users {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = f.orders.PlaceOrder(context.Background(), userID, "card", "1 Main St")
		}(i, userID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, testutil.ProductStock(t, f.db, laptop.ID))
	assert.EqualValues(t, 1, f.countRows(t, &models.Order{}))
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)
	f.addToCart(t, user.ID, laptop.ID, 2)

	placed, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)

	view, err := f.orders.GetOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderID, view.OrderID)
	assert.InDelta(t, placed.TotalAmount, view.TotalAmount, 0.001)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Laptop", view.Items[0].ProductName)

	_, err = f.orders.GetOrder(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetUserOrdersMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)

	f.addToCart(t, user.ID, laptop.ID, 1)
	first, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)

	f.addToCart(t, user.ID, laptop.ID, 2)
	second, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)

	views, err := f.orders.GetUserOrders(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.OrderID, views[0].OrderID)
	assert.Equal(t, first.OrderID, views[1].OrderID)

	// A user without orders gets an empty list, not an error.
	other := testutil.SeedUser(t, f.db, "bob")
	views, err = f.orders.GetUserOrders(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)
	f.addToCart(t, user.ID, laptop.ID, 1)

	placed, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)

	// PENDING cannot skip straight to SHIPPED.
	_, err = f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderShipped)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	view, err := f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderConfirmed), view.Status)

	view, err = f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderShipped)
	require.NoError(t, err)
	view, err = f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderDelivered), view.Status)

	// DELIVERED is terminal.
	_, err = f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = f.orders.UpdateStatus(context.Background(), placed.OrderID, models.OrderStatus("LOST"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = f.orders.UpdateStatus(context.Background(), 999, models.OrderConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "alice")
	laptop := testutil.SeedProduct(t, f.db, "Laptop", 10, 10)
	f.addToCart(t, user.ID, laptop.ID, 3)

	placed, err := f.orders.PlaceOrder(context.Background(), user.ID, "card", "1 Main St")
	require.NoError(t, err)
	require.Equal(t, 7, testutil.ProductStock(t, f.db, laptop.ID))

	view, err := f.orders.Cancel(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), view.Status)
	assert.Equal(t, 10, testutil.ProductStock(t, f.db, laptop.ID))

	// Cancelling twice must not release stock again.
	_, err = f.orders.Cancel(context.Background(), placed.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Equal(t, 10, testutil.ProductStock(t, f.db, laptop.ID))
}
