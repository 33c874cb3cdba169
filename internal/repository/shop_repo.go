package repository

import (
	"ShopTalk/internal/model"
	"context"

	"gorm.io/gorm"
)

type ShopRepo interface {
	CreateShop(ctx context.Context, shop *model.Shop) error
	GetShop(ctx context.Context, shopID string) (*model.Shop, error)
	GetShopsByOwner(ctx context.Context, ownerID uint64) ([]*model.Shop, error)
	IsOwner(ctx context.Context, shopID string, staffID uint64) (bool, error)
}

type shopRepoImpl struct {
	db *gorm.DB
}

func NewShopRepo(db *gorm.DB) ShopRepo {
	return &shopRepoImpl{db: db}
}

func (s *shopRepoImpl) CreateShop(ctx context.Context, shop *model.Shop) error {
	return s.db.WithContext(ctx).Create(shop).Error
}

func (s *shopRepoImpl) GetShop(ctx context.Context, shopID string) (*model.Shop, error) {
	var shop model.Shop
	err := s.db.WithContext(ctx).Where("id = ?", shopID).First(&shop).Error
	return &shop, err
}

func (s *shopRepoImpl) GetShopsByOwner(ctx context.Context, ownerID uint64) ([]*model.Shop, error) {
	var shops []*model.Shop
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at ASC").Find(&shops).Error
	return shops, err
}

// IsOwner 检查客服是否拥有该店铺
func (s *shopRepoImpl) IsOwner(ctx context.Context, shopID string, staffID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Shop{}).
		Where("id = ? AND owner_id = ?", shopID, staffID).
		Count(&count).Error
	return count > 0, err
}
