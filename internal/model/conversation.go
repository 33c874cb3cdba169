package model

import "time"

// Conversation 会话表
// 旧版布局下它只是摘要行，规范化布局下它是消息外键指向的持久行
// 两种布局共用同一张表结构，ID 均为 shopID 与访客 ID 的复合键
type Conversation struct {
	ID            string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	ShopID        string    `gorm:"uniqueIndex:idx_shop_customer;type:varchar(64);not null" json:"shopId"`
	CustomerID    string    `gorm:"uniqueIndex:idx_shop_customer;type:varchar(64);not null" json:"customerId"`
	CustomerName  string    `gorm:"type:varchar(64)" json:"customerName"`
	LastMessage   string    `gorm:"type:varchar(255)" json:"lastMessage"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	UnreadCount   int64     `gorm:"not null;default:0" json:"unreadCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }
