package model

import "time"

// Shop 店铺主表
// ID 为字符串业务键 (shop_<millis>_<n>)，会话复合 ID 与推送频道均以其为前缀
type Shop struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID   uint64    `gorm:"index;not null" json:"ownerId"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Domain    string    `gorm:"type:varchar(128)" json:"domain"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Shop) TableName() string { return "shops" }
