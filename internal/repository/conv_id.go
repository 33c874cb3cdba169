package repository

import (
	"errors"
	"strings"
)

// convSeparator 复合会话 ID 中店铺段与访客段的分隔锚点
// 访客 ID 固定以 user_ 开头，因此锚点串一定出现在访客段之前
const convSeparator = "_user_"

var (
	// ErrInvalidConversationID 复合 ID 格式非法，属调用方缺陷，禁止重试
	ErrInvalidConversationID = errors.New("会话ID格式非法")
	// ErrStorageWriteFailed 底层写入被拒绝，消息不得视为已送达
	ErrStorageWriteFailed = errors.New("消息写入失败")
)

// EncodeConversationID 由 (shopID, counterpartID) 组装复合会话 ID
// counterpartID 必须携带 user_ 前缀且其余部分不得包含锚点串，
// 满足该约束时 Decode(Encode(s, c)) 恒等于 (s, c)
func EncodeConversationID(shopID, counterpartID string) string {
	return shopID + "_" + counterpartID
}

// ValidCounterpartID 校验访客标识是否满足编码前置条件：
// 携带 user_ 前缀，且编码后锚点串只出现在店铺段与访客段的交界处。
// 违反约束的标识会让 Decode 在错误的位置切分，还原出别家店铺的 ID
func ValidCounterpartID(counterpartID string) bool {
	if !strings.HasPrefix(counterpartID, "user_") || counterpartID == "user_" {
		return false
	}
	// 编码时访客段前会补一个下划线，在这个视角下锚点串必须恰好落在开头
	return strings.LastIndex("_"+counterpartID, convSeparator) == 0
}

// DecodeConversationID 将复合会话 ID 还原为 (shopID, counterpartID)
// 店铺 ID 自身可能包含锚点串，必须取最右一次出现，首次匹配会截坏这类 ID
func DecodeConversationID(convID string) (shopID, counterpartID string, err error) {
	idx := strings.LastIndex(convID, convSeparator)
	if idx <= 0 {
		return "", "", ErrInvalidConversationID
	}

	shopID = convID[:idx]
	counterpartID = convID[idx+1:]

	if shopID == "" || !strings.HasPrefix(counterpartID, "user_") {
		return "", "", ErrInvalidConversationID
	}

	return shopID, counterpartID, nil
}
