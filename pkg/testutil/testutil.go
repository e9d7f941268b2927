// Package testutil opens throwaway databases for service tests. SQLite
// runs in memory on a single connection, which both keeps each test
// isolated and serializes concurrent transactions the way a real pool
// with row locks would.
package testutil

import (
	"testing"

	"github.com/example/marketplace/pkg/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection pins everything to one in-memory database.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Seller{},
		&models.Category{},
		&models.Region{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		FullName: name,
		Email:    name + "@example.com",
		Password: "secret",
		Role:     models.RoleCustomer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func SeedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:       name,
		Price:      price,
		Stock:      stock,
		CategoryID: 1,
		SellerID:   1,
		RegionID:   1,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func ProductStock(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, productID).Error)
	return product.Stock
}
