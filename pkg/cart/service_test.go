package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/locks"
	"github.com/example/marketplace/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(db *gorm.DB) *Service {
	return NewService(db, locks.NewKeyed(), zap.NewNop())
}

func TestGetUserCartCreatesLazily(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")

	view, err := svc.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
	assert.Equal(t, user.ID, view.UserID)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalCartPrice)

	// Second call finds the same cart instead of creating another.
	again, err := svc.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID)
}

func TestGetUserCartUnknownUser(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)

	_, err := svc.GetUserCart(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddItemNewLine(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 999.99, 10)

	view, err := svc.AddItem(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	assert.Equal(t, product.ID, item.ProductID)
	assert.Equal(t, "Laptop", item.ProductName)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 999.99, item.Price)
	assert.InDelta(t, 1999.98, item.TotalPrice, 0.001)
	assert.InDelta(t, 1999.98, view.TotalCartPrice, 0.001)

	// Adding to the cart must not reserve stock.
	assert.Equal(t, 10, testutil.ProductStock(t, db, product.ID))
}

func TestAddItemMergesDuplicate(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 10)

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)

	view, err := svc.AddItem(context.Background(), user.ID, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.InDelta(t, 500, view.Items[0].TotalPrice, 0.001)
}

func TestAddItemMergeRefreshesUnitPrice(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 10)

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, db.Model(product).Update("price", 120.0).Error)

	view, err := svc.AddItem(context.Background(), user.ID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 120.0, view.Items[0].Price)
	assert.InDelta(t, 360, view.Items[0].TotalPrice, 0.001)
}

func TestAddItemInsufficientStockOnMerge(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 4)

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)

	// The merged quantity of 5 exceeds the 4 in stock.
	_, err = svc.AddItem(context.Background(), user.ID, product.ID, 3)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	view, err := svc.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 10)

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.AddItem(context.Background(), user.ID, 42, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.AddItem(context.Background(), 42, product.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	laptop := testutil.SeedProduct(t, db, "Laptop", 100, 10)
	mouse := testutil.SeedProduct(t, db, "Mouse", 20, 10)

	_, err := svc.AddItem(context.Background(), user.ID, laptop.ID, 1)
	require.NoError(t, err)
	view, err := svc.AddItem(context.Background(), user.ID, mouse.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	view, err = svc.RemoveItem(context.Background(), user.ID, view.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, mouse.ID, view.Items[0].ProductID)
	assert.InDelta(t, 40, view.TotalCartPrice, 0.001)
}

func TestRemoveItemFromAnotherUsersCart(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	alice := testutil.SeedUser(t, db, "alice")
	bob := testutil.SeedUser(t, db, "bob")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 10)

	aliceView, err := svc.AddItem(context.Background(), alice.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), bob.ID, aliceView.Items[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Alice's cart is untouched.
	view, err := svc.GetUserCart(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestRemoveItemUnknown(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")

	_, err := svc.RemoveItem(context.Background(), user.ID, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClearCart(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 10)

	before, err := svc.AddItem(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)

	view, err := svc.ClearCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, view.ID)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalCartPrice)
}

// Concurrent adds for the same user must merge into one line with the
// summed quantity, never lose an increment or create duplicate lines.
func TestConcurrentAddItemMerges(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := newService(db)
	user := testutil.SeedUser(t, db, "alice")
	product := testutil.SeedProduct(t, db, "Laptop", 100, 100)

	const adders = 20
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(context.Background(), user.ID, product.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := svc.GetUserCart(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, adders, view.Items[0].Quantity)
}
