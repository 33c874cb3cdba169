package repository

import (
	"ShopTalk/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CustomerRepo interface {
	UpsertCustomer(ctx context.Context, customer *model.Customer) error
	GetCustomersByShop(ctx context.Context, shopID string) ([]*model.Customer, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepo {
	return &customerRepoImpl{db: db}
}

// UpsertCustomer 存在则刷新活跃时间，不存在则建档
func (s *customerRepoImpl) UpsertCustomer(ctx context.Context, customer *model.Customer) error {
	var existing model.Customer
	err := s.db.WithContext(ctx).Where("id = ?", customer.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		customer.LastSeenAt = time.Now()
		return s.db.WithContext(ctx).Create(customer).Error
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&model.Customer{}).
		Where("id = ?", customer.ID).
		Update("last_seen_at", time.Now()).Error
}

func (s *customerRepoImpl) GetCustomersByShop(ctx context.Context, shopID string) ([]*model.Customer, error) {
	var customers []*model.Customer
	err := s.db.WithContext(ctx).Where("shop_id = ?", shopID).
		Order("last_seen_at DESC").Find(&customers).Error
	return customers, err
}
