package service

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/model"
	"ShopTalk/internal/repository"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ShopService 店铺管理服务接口定义
type ShopService interface {
	CreateShop(ctx context.Context, staffID uint64, req *dto.CreateShopReq) (*dto.ShopDTO, error)
	GetShop(ctx context.Context, staffID uint64, shopID string) (*dto.ShopDTO, error)
	ListShops(ctx context.Context, staffID uint64) ([]*dto.ShopDTO, error)
}

type shopServiceImpl struct {
	shopRepo repository.ShopRepo
	unread   *ledger.Ledger
}

// NewShopService 构造函数
func NewShopService(shopRepo repository.ShopRepo, unread *ledger.Ledger) ShopService {
	return &shopServiceImpl{shopRepo: shopRepo, unread: unread}
}

// CreateShop 创建店铺，业务键格式 shop_<millis>_<n>
func (s *shopServiceImpl) CreateShop(ctx context.Context, staffID uint64, req *dto.CreateShopReq) (*dto.ShopDTO, error) {
	shop := &model.Shop{
		ID:      fmt.Sprintf("shop_%d_%d", time.Now().UnixMilli(), rand.Intn(10)),
		OwnerID: staffID,
		Name:    req.Name,
		Domain:  req.Domain,
	}
	if err := s.shopRepo.CreateShop(ctx, shop); err != nil {
		return nil, UnExpectedError
	}
	return s.toShopDTO(shop), nil
}

// GetShop 查询店铺，附带台账派生的未读总数
func (s *shopServiceImpl) GetShop(ctx context.Context, staffID uint64, shopID string) (*dto.ShopDTO, error) {
	shop, err := s.shopRepo.GetShop(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, UnExpectedError
	}
	if shop.OwnerID != staffID {
		return nil, ErrShopNotOwned
	}
	return s.toShopDTO(shop), nil
}

// ListShops 查询客服名下全部店铺
func (s *shopServiceImpl) ListShops(ctx context.Context, staffID uint64) ([]*dto.ShopDTO, error) {
	shops, err := s.shopRepo.GetShopsByOwner(ctx, staffID)
	if err != nil {
		return nil, UnExpectedError
	}
	res := make([]*dto.ShopDTO, 0, len(shops))
	for _, shop := range shops {
		res = append(res, s.toShopDTO(shop))
	}
	return res, nil
}

func (s *shopServiceImpl) toShopDTO(shop *model.Shop) *dto.ShopDTO {
	item := &dto.ShopDTO{}
	_ = copier.Copy(item, shop)
	item.UnreadTotal = s.unread.ShopTotal(shop.ID)
	return item
}
