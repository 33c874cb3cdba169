package handler

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/pkg/response"
	"ShopTalk/internal/service"

	"github.com/gin-gonic/gin"
)

type ShopHandler struct {
	shopService service.ShopService
}

func NewShopHandler(shopService service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

// CreateShop 创建店铺接口
func (s *ShopHandler) CreateShop(c *gin.Context) {
	var req dto.CreateShopReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	staffID := c.GetUint64("staffID")
	res, err := s.shopService.CreateShop(c, staffID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetShop 店铺详情接口
func (s *ShopHandler) GetShop(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	res, err := s.shopService.GetShop(c, staffID, c.Param("shopId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListShops 名下店铺列表接口
func (s *ShopHandler) ListShops(c *gin.Context) {
	staffID := c.GetUint64("staffID")
	res, err := s.shopService.ListShops(c, staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
