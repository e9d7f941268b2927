package catalog

import (
	"context"
	"errors"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	cache  *repository.RedisRepository
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, cache *repository.RedisRepository, logger *zap.Logger) *UserService {
	return &UserService{db: db, cache: cache, logger: logger}
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Email == "" || user.FullName == "" {
		return nil, apperrors.InvalidArgumentf("full name and email are required")
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.Systemf(err, "create user")
	}
	s.logger.Info("User created", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetUserCache(ctx, id); err == nil {
			return &models.User{
				ID:       cached.ID,
				FullName: cached.FullName,
				Email:    cached.Email,
				Phone:    cached.Phone,
			}, nil
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("user %d", id)
		}
		return nil, apperrors.Systemf(err, "get user")
	}

	if s.cache != nil {
		if err := s.cache.CacheUser(ctx, &repository.UserCache{
			ID:       user.ID,
			FullName: user.FullName,
			Email:    user.Email,
			Phone:    user.Phone,
		}); err != nil {
			s.logger.Warn("Failed to cache user", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperrors.Systemf(err, "list users")
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, id uint, update *models.User) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("user %d", id)
		}
		return nil, apperrors.Systemf(err, "get user")
	}

	user.FullName = update.FullName
	user.Phone = update.Phone
	if update.Email != "" {
		user.Email = update.Email
	}
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, apperrors.Systemf(err, "update user")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, id); err != nil {
			s.logger.Warn("Failed to invalidate user cache", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return &user, nil
}

// Delete removes the user and cascades to the cart: the cart and its items
// go with the user, in one transaction.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFoundf("user %d", id)
		}

		var cart models.Cart
		err := tx.Where("user_id = ?", id).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
	if err != nil {
		return apperrors.Wrap(err, "delete user")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, id); err != nil {
			s.logger.Warn("Failed to invalidate user cache", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return nil
}

type SellerService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSellerService(db *gorm.DB, logger *zap.Logger) *SellerService {
	return &SellerService{db: db, logger: logger}
}

func (s *SellerService) Create(ctx context.Context, seller *models.Seller) (*models.Seller, error) {
	if seller.ShopName == "" || seller.Email == "" {
		return nil, apperrors.InvalidArgumentf("shop name and email are required")
	}
	if err := s.db.WithContext(ctx).Create(seller).Error; err != nil {
		return nil, apperrors.Systemf(err, "create seller")
	}
	s.logger.Info("Seller registered", zap.Uint("seller_id", seller.ID), zap.String("shop", seller.ShopName))
	return seller, nil
}

func (s *SellerService) Get(ctx context.Context, id uint) (*models.Seller, error) {
	var seller models.Seller
	if err := s.db.WithContext(ctx).First(&seller, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("seller %d", id)
		}
		return nil, apperrors.Systemf(err, "get seller")
	}
	return &seller, nil
}

func (s *SellerService) List(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&sellers).Error; err != nil {
		return nil, apperrors.Systemf(err, "list sellers")
	}
	return sellers, nil
}

func (s *SellerService) Update(ctx context.Context, id uint, update *models.Seller) (*models.Seller, error) {
	seller, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	seller.ShopName = update.ShopName
	seller.OwnerName = update.OwnerName
	seller.Phone = update.Phone
	seller.BusinessAddress = update.BusinessAddress
	seller.GSTNumber = update.GSTNumber
	seller.PANNumber = update.PANNumber
	if update.Email != "" {
		seller.Email = update.Email
	}
	if err := s.db.WithContext(ctx).Save(seller).Error; err != nil {
		return nil, apperrors.Systemf(err, "update seller")
	}
	return seller, nil
}

func (s *SellerService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Seller{}, id)
	if res.Error != nil {
		return apperrors.Systemf(res.Error, "delete seller")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("seller %d", id)
	}
	return nil
}
