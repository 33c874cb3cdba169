package service

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/model"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/redis"
	"ShopTalk/internal/pkg/security"
	"ShopTalk/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"gorm.io/gorm"
)

// AuthService 客服账号与凭据服务接口定义
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterReq) (*dto.StaffDTO, error)
	Login(ctx context.Context, req *dto.LoginReq) (*dto.LoginResp, error)
	Logout(ctx context.Context, token string) error
	GetStaff(ctx context.Context, staffID uint64) (*dto.StaffDTO, error)
}

type authServiceImpl struct {
	staffRepo repository.StaffRepo
}

// NewAuthService 构造函数
func NewAuthService(staffRepo repository.StaffRepo) AuthService {
	return &authServiceImpl{staffRepo: staffRepo}
}

// Register 注册客服账号
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterReq) (*dto.StaffDTO, error) {
	if _, err := s.staffRepo.GetStaffByUsername(ctx, req.Username); err == nil {
		return nil, ErrStaffExist
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, UnExpectedError
	}

	staff := &model.Staff{
		Username:     req.Username,
		PasswordHash: hash,
		Nickname:     req.Nickname,
	}
	if staff.Nickname == "" {
		staff.Nickname = req.Username
	}
	if err := s.staffRepo.CreateStaff(ctx, staff); err != nil {
		return nil, UnExpectedError
	}

	return toStaffDTO(staff), nil
}

// Login 校验口令并签发 Token
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginReq) (*dto.LoginResp, error) {
	staff, err := s.staffRepo.GetStaffByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, UnExpectedError
	}

	if err := security.CheckPasswordHash(req.Password, staff.PasswordHash); err != nil {
		return nil, ErrPasswordIncorrect
	}

	token, err := security.GenerateToken(staff.ID)
	if err != nil {
		log.Error("Token 签发失败", "staffID", staff.ID, "err", err)
		return nil, UnExpectedError
	}

	return &dto.LoginResp{Token: token, Staff: *toStaffDTO(staff)}, nil
}

// Logout 将 Token 签名拉黑至其自然过期
func (s *authServiceImpl) Logout(ctx context.Context, token string) error {
	sig, err := security.ExtractSignature(token)
	if err != nil {
		return UnauthorizedError
	}
	if err := redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+sig, 1, security.JWTExpirationTime); err != nil {
		return UnExpectedError
	}
	return nil
}

// GetStaff 查询客服信息
func (s *authServiceImpl) GetStaff(ctx context.Context, staffID uint64) (*dto.StaffDTO, error) {
	staff, err := s.staffRepo.GetStaffByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, UnExpectedError
	}
	return toStaffDTO(staff), nil
}

func toStaffDTO(staff *model.Staff) *dto.StaffDTO {
	return &dto.StaffDTO{
		ID:       staff.ID,
		Username: staff.Username,
		Nickname: staff.Nickname,
	}
}
