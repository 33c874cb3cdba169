package model

import "time"

// Customer 访客档案
// ID 固定携带 user_ 前缀，是旧版会话复合 ID 的解码锚点
type Customer struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ShopID     string    `gorm:"index;type:varchar(64);not null" json:"shopId"`
	Name       string    `gorm:"type:varchar(64)" json:"name"`
	Email      string    `gorm:"type:varchar(128)" json:"email"`
	IP         string    `gorm:"type:varchar(45)" json:"ip"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Customer) TableName() string { return "customers" }
