package repository

import (
	"ShopTalk/internal/model"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/util"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// legacyStore 旧版扁平布局：消息直接以 (shop_id, user_id) 定位，
// 会话表仅作摘要行
type legacyStore struct {
	db *gorm.DB
}

func (s *legacyStore) Mode() StoreMode { return ModeLegacy }

func (s *legacyStore) CreateOrGetConversation(ctx context.Context, shopID, counterpartID string, meta CustomerMeta) (*model.Conversation, error) {
	convID := EncodeConversationID(shopID, counterpartID)

	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", convID).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{
		ID:            convID,
		ShopID:        shopID,
		CustomerID:    counterpartID,
		CustomerName:  meta.Name,
		LastMessageAt: time.Now(),
	}
	if err = s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	return &conv, nil
}

// EnsureConversationExists 写消息后兜底补建/刷新摘要行
func (s *legacyStore) EnsureConversationExists(ctx context.Context, shopID, counterpartID, previewText string) error {
	convID := EncodeConversationID(shopID, counterpartID)
	now := time.Now()

	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_message":    previewText,
			"last_message_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	conv := model.Conversation{
		ID:            convID,
		ShopID:        shopID,
		CustomerID:    counterpartID,
		LastMessage:   previewText,
		LastMessageAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	return nil
}

func (s *legacyStore) AppendMessage(ctx context.Context, convID, senderType, content, msgType string) (*model.Message, error) {
	shopID, counterpartID, err := DecodeConversationID(convID)
	if err != nil {
		return nil, err
	}

	row := model.LegacyMessage{
		ID:        util.GenerateMessageID(),
		ShopID:    shopID,
		UserID:    counterpartID,
		Message:   content,
		Sender:    senderType,
		MsgType:   msgType,
		CreatedAt: time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_message":    content,
			"last_message_at": row.CreatedAt,
		}
		if senderType == consts.SenderCustomer {
			updates["unread_count"] = gorm.Expr("unread_count + 1")
		}
		return tx.Model(&model.Conversation{}).Where("id = ?", convID).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	return legacyToMessage(&row, convID), nil
}

func (s *legacyStore) ListMessages(ctx context.Context, convID string, page Pagination) ([]*model.Message, error) {
	shopID, counterpartID, err := DecodeConversationID(convID)
	if err != nil {
		return nil, err
	}

	var rows []*model.LegacyMessage
	err = s.db.WithContext(ctx).
		Where("shop_id = ? AND user_id = ?", shopID, counterpartID).
		Order("created_at ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	res := make([]*model.Message, 0, len(rows))
	for _, r := range rows {
		res = append(res, legacyToMessage(r, convID))
	}
	return res, nil
}

func (s *legacyStore) ListConversations(ctx context.Context, shopID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

func (s *legacyStore) MarkConversationRead(ctx context.Context, convID string) (int64, error) {
	shopID, counterpartID, err := DecodeConversationID(convID)
	if err != nil {
		return 0, err
	}

	var cleared int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Conversation{}).Select("unread_count").
			Where("id = ?", convID).Scan(&cleared).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.LegacyMessage{}).
			Where("shop_id = ? AND user_id = ? AND sender = ? AND is_read = ?",
				shopID, counterpartID, consts.SenderCustomer, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
			return err
		}

		return tx.Model(&model.Conversation{}).Where("id = ?", convID).
			Update("unread_count", 0).Error
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	return cleared, nil
}

func (s *legacyStore) UnreadSnapshot(ctx context.Context) ([]UnreadRow, error) {
	return unreadSnapshot(ctx, s.db)
}

// legacyToMessage 旧版行到统一消息视图的转换
func legacyToMessage(r *model.LegacyMessage, convID string) *model.Message {
	return &model.Message{
		ID:             r.ID,
		ConversationID: convID,
		SenderType:     r.Sender,
		Content:        r.Message,
		MsgType:        r.MsgType,
		IsRead:         r.IsRead,
		ReadAt:         r.ReadAt,
		CreatedAt:      r.CreatedAt,
	}
}

// unreadSnapshot 两种布局共用：摘要表即未读权威来源
func unreadSnapshot(ctx context.Context, db *gorm.DB) ([]UnreadRow, error) {
	var convs []*model.Conversation
	err := db.WithContext(ctx).
		Select("id", "shop_id", "unread_count").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	rows := make([]UnreadRow, 0, len(convs))
	for _, c := range convs {
		rows = append(rows, UnreadRow{
			ShopID:         c.ShopID,
			ConversationID: c.ID,
			Count:          c.UnreadCount,
		})
	}
	return rows, nil
}
