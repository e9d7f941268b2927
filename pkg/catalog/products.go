// Package catalog holds the plain data-access services around the checkout
// core: products, taxonomy and profiles. No invariants beyond referential
// checks live here.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/inventory"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProductService struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	audit  *repository.MongoRepository
	logger *zap.Logger
}

func NewProductService(db *gorm.DB, ledger *inventory.Ledger, audit *repository.MongoRepository, logger *zap.Logger) *ProductService {
	return &ProductService{db: db, ledger: ledger, audit: audit, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Price <= 0 {
		return nil, apperrors.InvalidArgumentf("price must be positive")
	}
	if product.Stock < 0 {
		return nil, apperrors.InvalidArgumentf("stock cannot be negative")
	}
	if err := s.checkReferences(ctx, product); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, apperrors.Systemf(err, "create product")
	}
	s.logger.Info("Product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("product %d", id)
		}
		return nil, apperrors.Systemf(err, "get product")
	}
	return &product, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, apperrors.Systemf(err, "list products")
	}
	return products, nil
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("category_id = ?", categoryID).Order("id ASC").Find(&products).Error; err != nil {
		return nil, apperrors.Systemf(err, "list products by category")
	}
	return products, nil
}

func (s *ProductService) ListByRegion(ctx context.Context, regionID uint) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("region_id = ?", regionID).Order("id ASC").Find(&products).Error; err != nil {
		return nil, apperrors.Systemf(err, "list products by region")
	}
	return products, nil
}

func (s *ProductService) Search(ctx context.Context, name string) ([]models.Product, error) {
	var products []models.Product
	pattern := fmt.Sprintf("%%%s%%", name)
	if err := s.db.WithContext(ctx).Where("name LIKE ?", pattern).Order("id ASC").Find(&products).Error; err != nil {
		return nil, apperrors.Systemf(err, "search products")
	}
	return products, nil
}

// Update replaces the descriptive fields. Stock is excluded here; it only
// moves through the inventory ledger.
func (s *ProductService) Update(ctx context.Context, id uint, update *models.Product) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Price <= 0 {
		return nil, apperrors.InvalidArgumentf("price must be positive")
	}
	if err := s.checkReferences(ctx, update); err != nil {
		return nil, err
	}

	product.Name = update.Name
	product.Description = update.Description
	product.Price = update.Price
	product.ImageURL = update.ImageURL
	product.CategoryID = update.CategoryID
	product.SellerID = update.SellerID
	product.RegionID = update.RegionID

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, apperrors.Systemf(err, "update product")
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "delete product")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("product %d", id)
	}
	return nil
}

// UpdateStock handles admin restocks and corrections through the ledger
// and records a stock movement for the audit trail.
func (s *ProductService) UpdateStock(ctx context.Context, id uint, movementType string, quantity int, reason string) (int, error) {
	switch movementType {
	case "restock":
		if err := s.ledger.Restock(ctx, id, quantity); err != nil {
			return 0, err
		}
	case "adjustment":
		if err := s.ledger.Adjust(ctx, id, quantity); err != nil {
			return 0, err
		}
	default:
		return 0, apperrors.InvalidArgumentf("unknown stock movement type %q", movementType)
	}

	stock, err := s.ledger.Stock(ctx, id)
	if err != nil {
		return 0, err
	}

	if s.audit != nil {
		go s.audit.RecordStockMovement(context.Background(), &repository.StockMovement{
			ProductID: id,
			Type:      movementType,
			Quantity:  quantity,
			Reason:    reason,
		})
	}

	s.logger.Info("Stock updated",
		zap.Uint("product_id", id),
		zap.String("type", movementType),
		zap.Int("new_stock", stock))
	return stock, nil
}

func (s *ProductService) checkReferences(ctx context.Context, product *models.Product) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", product.CategoryID).Count(&count).Error; err != nil {
		return apperrors.Systemf(err, "check category")
	}
	if count == 0 {
		return apperrors.NotFoundf("category %d", product.CategoryID)
	}
	if err := s.db.WithContext(ctx).Model(&models.Seller{}).Where("id = ?", product.SellerID).Count(&count).Error; err != nil {
		return apperrors.Systemf(err, "check seller")
	}
	if count == 0 {
		return apperrors.NotFoundf("seller %d", product.SellerID)
	}
	if err := s.db.WithContext(ctx).Model(&models.Region{}).Where("id = ?", product.RegionID).Count(&count).Error; err != nil {
		return apperrors.Systemf(err, "check region")
	}
	if count == 0 {
		return apperrors.NotFoundf("region %d", product.RegionID)
	}
	return nil
}
