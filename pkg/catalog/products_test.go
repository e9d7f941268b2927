package catalog

import (
	"context"
	"testing"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/inventory"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newProductService(t *testing.T) (*ProductService, *gorm.DB) {
	db := testutil.OpenDB(t)
	logger := zap.NewNop()
	return NewProductService(db, inventory.NewLedger(db, logger), nil, logger), db
}

func seedReferences(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Category{Name: "Electronics"}).Error)
	require.NoError(t, db.Create(&models.Seller{ShopName: "Gadget Hub", Email: "shop@example.com"}).Error)
	require.NoError(t, db.Create(&models.Region{Name: "North"}).Error)
}

func TestCreateProduct(t *testing.T) {
	svc, db := newProductService(t)
	seedReferences(t, db)

	product, err := svc.Create(context.Background(), &models.Product{
		Name:       "Laptop",
		Price:      999.99,
		Stock:      10,
		CategoryID: 1,
		SellerID:   1,
		RegionID:   1,
	})
	require.NoError(t, err)
	assert.NotZero(t, product.ID)

	got, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", got.Name)
	assert.Equal(t, 10, got.Stock)
}

func TestCreateProductValidation(t *testing.T) {
	svc, db := newProductService(t)
	seedReferences(t, db)

	_, err := svc.Create(context.Background(), &models.Product{
		Name: "Laptop", Price: 0, CategoryID: 1, SellerID: 1, RegionID: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.Create(context.Background(), &models.Product{
		Name: "Laptop", Price: 10, Stock: -1, CategoryID: 1, SellerID: 1, RegionID: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	// Dangling references are rejected.
	_, err = svc.Create(context.Background(), &models.Product{
		Name: "Laptop", Price: 10, CategoryID: 99, SellerID: 1, RegionID: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSearchProducts(t *testing.T) {
	svc, db := newProductService(t)
	testutil.SeedProduct(t, db, "Gaming Laptop", 1500, 5)
	testutil.SeedProduct(t, db, "Office Laptop", 800, 5)
	testutil.SeedProduct(t, db, "Mouse", 20, 5)

	products, err := svc.Search(context.Background(), "Laptop")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = svc.Search(context.Background(), "Keyboard")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestUpdateProductKeepsStock(t *testing.T) {
	svc, db := newProductService(t)
	seedReferences(t, db)
	product := testutil.SeedProduct(t, db, "Laptop", 100, 7)

	updated, err := svc.Update(context.Background(), product.ID, &models.Product{
		Name: "Laptop Pro", Price: 150, Stock: 999,
		CategoryID: 1, SellerID: 1, RegionID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", updated.Name)
	assert.Equal(t, 150.0, updated.Price)

	// Stock only moves through the ledger, never through Update.
	assert.Equal(t, 7, testutil.ProductStock(t, db, product.ID))
}

func TestDeleteProduct(t *testing.T) {
	svc, db := newProductService(t)
	product := testutil.SeedProduct(t, db, "Laptop", 100, 7)

	require.NoError(t, svc.Delete(context.Background(), product.ID))

	_, err := svc.Get(context.Background(), product.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), 42), apperrors.ErrNotFound)
}

func TestUpdateStock(t *testing.T) {
	svc, db := newProductService(t)
	product := testutil.SeedProduct(t, db, "Laptop", 100, 5)

	stock, err := svc.UpdateStock(context.Background(), product.ID, "restock", 10, "new shipment")
	require.NoError(t, err)
	assert.Equal(t, 15, stock)

	stock, err = svc.UpdateStock(context.Background(), product.ID, "adjustment", 8, "shelf count")
	require.NoError(t, err)
	assert.Equal(t, 8, stock)

	_, err = svc.UpdateStock(context.Background(), product.ID, "teleport", 1, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
