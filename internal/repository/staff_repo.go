package repository

import (
	"ShopTalk/internal/model"
	"context"

	"gorm.io/gorm"
)

type StaffRepo interface {
	CreateStaff(ctx context.Context, staff *model.Staff) error
	GetStaffByUsername(ctx context.Context, username string) (*model.Staff, error)
	GetStaffByID(ctx context.Context, staffID uint64) (*model.Staff, error)
}

type staffRepoImpl struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepo {
	return &staffRepoImpl{db: db}
}

func (s *staffRepoImpl) CreateStaff(ctx context.Context, staff *model.Staff) error {
	return s.db.WithContext(ctx).Create(staff).Error
}

func (s *staffRepoImpl) GetStaffByUsername(ctx context.Context, username string) (*model.Staff, error) {
	var staff model.Staff
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&staff).Error
	return &staff, err
}

func (s *staffRepoImpl) GetStaffByID(ctx context.Context, staffID uint64) (*model.Staff, error) {
	var staff model.Staff
	err := s.db.WithContext(ctx).First(&staff, staffID).Error
	return &staff, err
}
