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

// normalizedStore 规范化布局：消息行通过 conversation_id 外键
// 引用持久会话行
type normalizedStore struct {
	db *gorm.DB
}

func (s *normalizedStore) Mode() StoreMode { return ModeNormalized }

func (s *normalizedStore) CreateOrGetConversation(ctx context.Context, shopID, counterpartID string, meta CustomerMeta) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND customer_id = ?", shopID, counterpartID).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{
		ID:            EncodeConversationID(shopID, counterpartID),
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

func (s *normalizedStore) EnsureConversationExists(ctx context.Context, shopID, counterpartID, previewText string) error {
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

func (s *normalizedStore) AppendMessage(ctx context.Context, convID, senderType, content, msgType string) (*model.Message, error) {
	// 外键引用要求会话行已存在；ID 不可解码说明调用方传了坏值
	if _, _, err := DecodeConversationID(convID); err != nil {
		return nil, err
	}

	row := model.Message{
		ID:             util.GenerateMessageID(),
		ConversationID: convID,
		SenderType:     senderType,
		Content:        content,
		MsgType:        msgType,
		CreatedAt:      time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Conversation{}).Where("id = ?", convID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

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
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	return &row, nil
}

func (s *normalizedStore) ListMessages(ctx context.Context, convID string, page Pagination) ([]*model.Message, error) {
	var rows []*model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error
	return rows, err
}

func (s *normalizedStore) ListConversations(ctx context.Context, shopID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

func (s *normalizedStore) MarkConversationRead(ctx context.Context, convID string) (int64, error) {
	var cleared int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Conversation{}).Select("unread_count").
			Where("id = ?", convID).Scan(&cleared).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_type = ? AND is_read = ?",
				convID, consts.SenderCustomer, false).
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

func (s *normalizedStore) UnreadSnapshot(ctx context.Context) ([]UnreadRow, error) {
	return unreadSnapshot(ctx, s.db)
}
