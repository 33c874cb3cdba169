package service

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/model"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/kafka"
	"ShopTalk/internal/pkg/redis"
	"ShopTalk/internal/pkg/util"
	"ShopTalk/internal/push"
	"ShopTalk/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// ChatService 会话同步服务接口定义
type ChatService interface {
	ListConversations(ctx context.Context, staffID uint64, shopID string) ([]*dto.ConversationDTO, error)
	ListCustomers(ctx context.Context, staffID uint64, shopID string) ([]*dto.CustomerDTO, error)
	ListMessages(ctx context.Context, staffID uint64, sessionID string, page int) ([]*dto.MessageDTO, error)
	SendStaffMessage(ctx context.Context, staffID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	HandleCustomerMessage(ctx context.Context, req *dto.CustomerMessageReq, clientIP string) (*dto.MessageDTO, error)
	MarkSessionRead(ctx context.Context, staffID uint64, sessionID string) (*dto.MarkReadResp, error)
	RelayTyping(frame *push.Frame)
	AuthorizeShop(ctx context.Context, staffID uint64, shopID string) error
}

type chatServiceImpl struct {
	store    repository.ChatStore
	shopRepo repository.ShopRepo
	custRepo repository.CustomerRepo
	unread   *ledger.Ledger
	notify   *kafka.NotifyProducer
	pageSize int
	publish  func(ctx context.Context, channel string, payload []byte) error
}

// NewChatService 构造函数。notify 可为 nil（未配置 Kafka 时退化为纯日志）
func NewChatService(store repository.ChatStore, shopRepo repository.ShopRepo, custRepo repository.CustomerRepo,
	unread *ledger.Ledger, notify *kafka.NotifyProducer, pageSize int) ChatService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &chatServiceImpl{
		store:    store,
		shopRepo: shopRepo,
		custRepo: custRepo,
		unread:   unread,
		notify:   notify,
		pageSize: pageSize,
		publish:  redis.Publish,
	}
}

// AuthorizeShop 校验客服对店铺的归属权
func (s *chatServiceImpl) AuthorizeShop(ctx context.Context, staffID uint64, shopID string) error {
	ok, err := s.shopRepo.IsOwner(ctx, shopID, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShopNotFound
		}
		return UnExpectedError
	}
	if !ok {
		return ErrShopNotOwned
	}
	return nil
}

// ListConversations 拉取店铺会话列表，未读数以内存台账为准
func (s *chatServiceImpl) ListConversations(ctx context.Context, staffID uint64, shopID string) ([]*dto.ConversationDTO, error) {
	if err := s.AuthorizeShop(ctx, staffID, shopID); err != nil {
		return nil, err
	}

	convs, err := s.store.ListConversations(ctx, shopID)
	if err != nil {
		return nil, UnExpectedError
	}

	res := make([]*dto.ConversationDTO, 0, len(convs))
	for _, c := range convs {
		res = append(res, &dto.ConversationDTO{
			SessionID:     c.ID,
			ShopID:        c.ShopID,
			CustomerID:    c.CustomerID,
			CustomerName:  c.CustomerName,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
			UnreadCount:   s.unread.ConversationCount(c.ShopID, c.ID),
		})
	}
	return res, nil
}

// ListCustomers 店铺访客档案列表
func (s *chatServiceImpl) ListCustomers(ctx context.Context, staffID uint64, shopID string) ([]*dto.CustomerDTO, error) {
	if err := s.AuthorizeShop(ctx, staffID, shopID); err != nil {
		return nil, err
	}

	customers, err := s.custRepo.GetCustomersByShop(ctx, shopID)
	if err != nil {
		return nil, UnExpectedError
	}

	res := make([]*dto.CustomerDTO, 0, len(customers))
	for _, c := range customers {
		res = append(res, &dto.CustomerDTO{
			ID:         c.ID,
			Name:       c.Name,
			Email:      c.Email,
			LastSeenAt: c.LastSeenAt,
		})
	}
	return res, nil
}

// ListMessages 按页拉取会话历史，最新页在前
func (s *chatServiceImpl) ListMessages(ctx context.Context, staffID uint64, sessionID string, page int) ([]*dto.MessageDTO, error) {
	shopID, _, err := repository.DecodeConversationID(sessionID)
	if err != nil {
		return nil, ErrConversationInvalid
	}
	if err := s.AuthorizeShop(ctx, staffID, shopID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	msgs, err := s.store.ListMessages(ctx, sessionID, repository.Pagination{
		Limit:  s.pageSize,
		Offset: (page - 1) * s.pageSize,
	})
	if err != nil {
		return nil, UnExpectedError
	}

	res := make([]*dto.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

// SendStaffMessage 客服出站消息：落库后推送至店铺频道，不计未读
func (s *chatServiceImpl) SendStaffMessage(ctx context.Context, staffID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	shopID, counterpartID, err := repository.DecodeConversationID(req.SessionID)
	if err != nil {
		return nil, ErrConversationInvalid
	}
	if err := s.AuthorizeShop(ctx, staffID, shopID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	// 旧数据可能缺少摘要行，客服首条回复前补齐
	if err := s.store.EnsureConversationExists(ctx, shopID, counterpartID, content); err != nil {
		return nil, s.translateStoreErr(err)
	}

	msg, err := s.store.AppendMessage(ctx, req.SessionID, consts.SenderStaff, content, normalizeMsgType(req.MsgType))
	if err != nil {
		return nil, s.translateStoreErr(err)
	}

	s.publishFrame(msg, push.Metadata{
		ShopID:        shopID,
		SessionID:     req.SessionID,
		CounterpartID: counterpartID,
	})
	return toMessageDTO(msg), nil
}

// HandleCustomerMessage 访客入站消息：按需建会话、累加未读、推送、投递通知事实
func (s *chatServiceImpl) HandleCustomerMessage(ctx context.Context, req *dto.CustomerMessageReq, clientIP string) (*dto.MessageDTO, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if _, err := s.shopRepo.GetShop(ctx, req.ShopID); err != nil {
		return nil, ErrShopNotFound
	}

	// 公开端点提交的访客标识必须满足编码前置条件，
	// 伪造的标识会让会话 ID 还原到错误的店铺名下
	counterpartID := req.UserID
	if counterpartID == "" {
		counterpartID = util.GenerateCounterpartID()
	} else if !repository.ValidCounterpartID(counterpartID) {
		return nil, ErrConversationInvalid
	}

	if err := s.custRepo.UpsertCustomer(ctx, &model.Customer{
		ID:         counterpartID,
		ShopID:     req.ShopID,
		Name:       req.Name,
		Email:      req.Email,
		IP:         clientIP,
		LastSeenAt: time.Now(),
	}); err != nil {
		log.Warn("访客档案写入失败", "shopID", req.ShopID, "userID", counterpartID, "err", err)
	}

	conv, err := s.store.CreateOrGetConversation(ctx, req.ShopID, counterpartID, repository.CustomerMeta{
		Name:  req.Name,
		Email: req.Email,
		IP:    clientIP,
	})
	if err != nil {
		return nil, s.translateStoreErr(err)
	}

	msg, err := s.store.AppendMessage(ctx, conv.ID, consts.SenderCustomer, content, normalizeMsgType(req.MsgType))
	if err != nil {
		return nil, s.translateStoreErr(err)
	}

	// 入站消息计入未读台账，店铺总数由台账派生
	s.unread.IncrementConversation(req.ShopID, conv.ID, 1)

	s.publishFrame(msg, push.Metadata{
		ShopID:        req.ShopID,
		SessionID:     conv.ID,
		CounterpartID: counterpartID,
	})

	if s.notify != nil {
		s.notify.Emit(&kafka.InboundFact{
			ShopID:    req.ShopID,
			SessionID: conv.ID,
			Preview:   truncatePreview(content),
			Sender:    counterpartID,
		})
	}
	return toMessageDTO(msg), nil
}

// MarkSessionRead 清零会话未读。台账按实际清除量扣减店铺总数，而非直接归零
func (s *chatServiceImpl) MarkSessionRead(ctx context.Context, staffID uint64, sessionID string) (*dto.MarkReadResp, error) {
	shopID, _, err := repository.DecodeConversationID(sessionID)
	if err != nil {
		return nil, ErrConversationInvalid
	}
	if err := s.AuthorizeShop(ctx, staffID, shopID); err != nil {
		return nil, err
	}

	cleared, err := s.store.MarkConversationRead(ctx, sessionID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	s.unread.ResetConversation(shopID, sessionID)

	return &dto.MarkReadResp{SessionID: sessionID, Cleared: cleared}, nil
}

// RelayTyping 将输入中状态帧原样转发回店铺频道
func (s *chatServiceImpl) RelayTyping(frame *push.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publish(ctx, consts.ChatShopKey+frame.Metadata.ShopID, data); err != nil {
		log.Warn("typing 帧转发失败", "shopID", frame.Metadata.ShopID, "err", err)
	}
}

// publishFrame 向店铺频道发布 new_message 帧，失败不阻断主链路
func (s *chatServiceImpl) publishFrame(msg *model.Message, meta push.Metadata) {
	data, err := push.EncodeMessageFrame(msg, meta)
	if err != nil {
		log.Error("推送帧编码失败", "session", meta.SessionID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publish(ctx, consts.ChatShopKey+meta.ShopID, data); err != nil {
		log.Error("推送帧发布失败", "session", meta.SessionID, "err", err)
	}
}

func (s *chatServiceImpl) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidConversationID):
		return ErrConversationInvalid
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrConversationMissing
	default:
		return UnExpectedError
	}
}

func normalizeMsgType(t string) string {
	switch t {
	case consts.MsgTypeImage, consts.MsgTypeFile, consts.MsgTypeVoice:
		return t
	default:
		return consts.MsgTypeText
	}
}

func truncatePreview(content string) string {
	const max = 80
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}

func toMessageDTO(m *model.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:         m.ID,
		SessionID:  m.ConversationID,
		SenderType: m.SenderType,
		Content:    m.Content,
		MsgType:    m.MsgType,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}
