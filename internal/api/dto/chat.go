package dto

import "time"

// SendMessageReq 客服发送消息请求体
type SendMessageReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
	MsgType   string `json:"msg_type"` // text / image / file / voice，缺省 text
}

// CustomerMessageReq 访客侧入站消息请求体，会话不存在时按需建立
type CustomerMessageReq struct {
	ShopID  string `json:"shop_id" binding:"required"`
	UserID  string `json:"user_id"` // 为空时由服务端签发
	Name    string `json:"name" binding:"max=64"`
	Email   string `json:"email" binding:"omitempty,email"`
	Content string `json:"content" binding:"required"`
	MsgType string `json:"msg_type"`
}

// MarkReadReq 标记会话已读请求体
type MarkReadReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	SenderType string    `json:"sender_type"`
	Content    string    `json:"content"`
	MsgType    string    `json:"msg_type"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	SessionID     string    `json:"session_id"`
	ShopID        string    `json:"shop_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int64     `json:"unread_count"`
}

// CustomerDTO 访客档案响应
type CustomerDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// MarkReadResp 标记已读响应，cleared 用于前端对账
type MarkReadResp struct {
	SessionID string `json:"session_id"`
	Cleared   int64  `json:"cleared"`
}
