package catalog

import (
	"context"
	"errors"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/models"
	"gorm.io/gorm"
)

// CategoryService and RegionService are straight CRUD over the two
// taxonomy tables.

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.Name == "" {
		return nil, apperrors.InvalidArgumentf("category name is required")
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, apperrors.Systemf(err, "create category")
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("category %d", id)
		}
		return nil, apperrors.Systemf(err, "get category")
	}
	return &category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Systemf(err, "list categories")
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, update *models.Category) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = update.Name
	category.Description = update.Description
	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, apperrors.Systemf(err, "update category")
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "delete category")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("category %d", id)
	}
	return nil
}

type RegionService struct {
	db *gorm.DB
}

func NewRegionService(db *gorm.DB) *RegionService {
	return &RegionService{db: db}
}

func (s *RegionService) Create(ctx context.Context, region *models.Region) (*models.Region, error) {
	if region.Name == "" {
		return nil, apperrors.InvalidArgumentf("region name is required")
	}
	if err := s.db.WithContext(ctx).Create(region).Error; err != nil {
		return nil, apperrors.Systemf(err, "create region")
	}
	return region, nil
}

func (s *RegionService) Get(ctx context.Context, id uint) (*models.Region, error) {
	var region models.Region
	if err := s.db.WithContext(ctx).First(&region, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("region %d", id)
		}
		return nil, apperrors.Systemf(err, "get region")
	}
	return &region, nil
}

func (s *RegionService) List(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&regions).Error; err != nil {
		return nil, apperrors.Systemf(err, "list regions")
	}
	return regions, nil
}

func (s *RegionService) Update(ctx context.Context, id uint, update *models.Region) (*models.Region, error) {
	region, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	region.Name = update.Name
	region.Description = update.Description
	if err := s.db.WithContext(ctx).Save(region).Error; err != nil {
		return nil, apperrors.Systemf(err, "update region")
	}
	return region, nil
}

func (s *RegionService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Region{}, id)
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "delete region")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("region %d", id)
	}
	return nil
}
