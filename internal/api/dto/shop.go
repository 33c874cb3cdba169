package dto

import "time"

// CreateShopReq 创建店铺请求体
type CreateShopReq struct {
	Name   string `json:"name" binding:"required,max=128"`
	Domain string `json:"domain" binding:"max=128"`
}

// UpdateShopReq 更新店铺请求体
type UpdateShopReq struct {
	Name   string `json:"name" binding:"max=128"`
	Domain string `json:"domain" binding:"max=128"`
}

// ShopDTO 店铺响应
type ShopDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain"`
	UnreadTotal int64     `json:"unreadTotal"`
	CreatedAt   time.Time `json:"createdAt"`
}
