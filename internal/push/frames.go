// Package push 定义推送通道的线格式与服务端会话状态机。
// 帧为 JSON 对象：messageType 判别字段 + metadata 路由元信息 + 内容载荷。
package push

import (
	"ShopTalk/internal/model"
	"ShopTalk/internal/pkg/consts"
	"time"

	"github.com/goccy/go-json"
)

// Metadata 帧路由元信息
type Metadata struct {
	ShopID        string `json:"shopId"`
	SessionID     string `json:"sessionId,omitempty"`
	CounterpartID string `json:"counterpartId,omitempty"`
}

// Frame 推送帧
type Frame struct {
	MessageType string          `json:"messageType"`
	Metadata    Metadata        `json:"metadata"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// MessagePayload new_message 帧携带的消息快照
type MessagePayload struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	SenderType string    `json:"sender_type"`
	Content    string    `json:"content"`
	MsgType    string    `json:"msg_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// EncodeMessageFrame 将持久化后的消息封装为 new_message 帧
func EncodeMessageFrame(msg *model.Message, meta Metadata) ([]byte, error) {
	payload, err := json.Marshal(MessagePayload{
		ID:         msg.ID,
		SessionID:  msg.ConversationID,
		SenderType: msg.SenderType,
		Content:    msg.Content,
		MsgType:    msg.MsgType,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(Frame{
		MessageType: consts.FrameNewMessage,
		Metadata:    meta,
		Payload:     payload,
	})
}

// DecodeFrame 解析一帧，格式错误原样返回
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DecodeMessagePayload 解出 new_message 帧的消息快照
func (f *Frame) DecodeMessagePayload() (*MessagePayload, error) {
	var p MessagePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
