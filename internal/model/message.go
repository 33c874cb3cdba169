package model

import "time"

// Message 规范化布局的消息行，写入后除已读状态外不可变
type Message struct {
	ID             string     `gorm:"primaryKey;type:varchar(32)" json:"id"`
	ConversationID string     `gorm:"index;type:varchar(191);not null" json:"conversationId"`
	SenderType     string     `gorm:"type:varchar(16);not null" json:"senderType"` // customer / staff / system
	Content        string     `gorm:"type:text" json:"content"`
	MsgType        string     `gorm:"type:varchar(16);not null;default:text" json:"msgType"` // text / image / file / voice
	IsRead         bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

// LegacyMessage 旧版扁平布局的消息行，直接以 (shop_id, user_id) 定位
// 与 Message 指向同一张物理表，进程内只会启用其中一种映射
type LegacyMessage struct {
	ID        string     `gorm:"primaryKey;type:varchar(32)" json:"id"`
	ShopID    string     `gorm:"index:idx_shop_user;column:shop_id;type:varchar(64);not null" json:"shopId"`
	UserID    string     `gorm:"index:idx_shop_user;column:user_id;type:varchar(64);not null" json:"userId"`
	Message   string     `gorm:"type:text" json:"message"`
	Sender    string     `gorm:"type:varchar(16);not null" json:"sender"`
	MsgType   string     `gorm:"type:varchar(16);not null;default:text" json:"msgType"`
	IsRead    bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

func (LegacyMessage) TableName() string { return "messages" }
