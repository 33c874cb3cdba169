package handler

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/pkg/response"
	"ShopTalk/internal/service"
	"strings"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register 客服注册接口
func (s *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.authService.Register(c, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Login 登录接口
func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.authService.Login(c, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Logout 注销接口，将当前 Token 拉黑
func (s *AuthHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := s.authService.Logout(c, token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Me 当前客服信息
func (s *AuthHandler) Me(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	res, err := s.authService.GetStaff(c, staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
