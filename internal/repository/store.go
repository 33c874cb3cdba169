package repository

import (
	"ShopTalk/internal/model"
	"context"
	log "log/slog"

	"gorm.io/gorm"
)

// StoreMode 物理消息布局
type StoreMode string

const (
	ModeLegacy     StoreMode = "legacy"     // 扁平表，(shop_id, user_id) 直接定位
	ModeNormalized StoreMode = "normalized" // 消息行外键引用持久会话行
)

// Pagination 消息分页参数
type Pagination struct {
	Limit  int
	Offset int
}

// CustomerMeta 首次建会话时附带的访客信息
type CustomerMeta struct {
	Name  string
	Email string
	IP    string
}

// UnreadRow 校准任务使用的未读快照行
type UnreadRow struct {
	ShopID         string
	ConversationID string
	Count          int64
}

// ChatStore 屏蔽两种物理消息布局的统一接口
// 布局在进程启动时一次性选定，此后所有调用方都不再感知模式差异
type ChatStore interface {
	Mode() StoreMode

	CreateOrGetConversation(ctx context.Context, shopID, counterpartID string, meta CustomerMeta) (*model.Conversation, error)
	EnsureConversationExists(ctx context.Context, shopID, counterpartID, previewText string) error
	AppendMessage(ctx context.Context, convID, senderType, content, msgType string) (*model.Message, error)
	ListMessages(ctx context.Context, convID string, page Pagination) ([]*model.Message, error)

	ListConversations(ctx context.Context, shopID string) ([]*model.Conversation, error)
	// MarkConversationRead 清零会话未读并返回被清除的数量
	MarkConversationRead(ctx context.Context, convID string) (int64, error)
	// UnreadSnapshot 返回全量未读快照，供台账冷启动与周期校准
	UnreadSnapshot(ctx context.Context) ([]UnreadRow, error)
}

// DetectChatStore 通过表结构自省一次性选定物理布局
// 判据：messages 表携带 conversation_id 外键列即为规范化布局；
// 进程生命周期内不再切换
func DetectChatStore(db *gorm.DB) (ChatStore, error) {
	migrator := db.Migrator()

	if !migrator.HasTable("messages") {
		// 全新安装，直接建规范化结构
		if err := db.AutoMigrate(&model.Conversation{}, &model.Message{}); err != nil {
			return nil, err
		}
		log.Info("消息表不存在，初始化规范化布局")
		return &normalizedStore{db: db}, nil
	}

	if migrator.HasColumn(&model.Message{}, "conversation_id") {
		if err := db.AutoMigrate(&model.Conversation{}); err != nil {
			return nil, err
		}
		log.Info("检测到 conversation_id 外键列，使用规范化布局")
		return &normalizedStore{db: db}, nil
	}

	// 旧版扁平表，补齐摘要表后以兼容模式运行
	if err := db.AutoMigrate(&model.Conversation{}); err != nil {
		return nil, err
	}
	log.Info("检测到旧版扁平消息表，使用兼容模式")
	return &legacyStore{db: db}, nil
}
