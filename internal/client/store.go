package client

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/push"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"
)

const (
	cacheTTLShops     = 60 * time.Second
	cacheTTLCustomers = 20 * time.Second
	cacheTTLMessages  = 60 * time.Second
)

func shopsKey() string                  { return "shops:list" }
func customersKey(shopID string) string { return "customers:shop:" + shopID }
func messagesKey(sessionID string, page int) string {
	return fmt.Sprintf("messages:session:%s:p%d", sessionID, page)
}

// ChatClient 工作台同步层的装配体：
// REST 访问 + 推送通道 + 乐观写时间线 + 未读台账镜像 + 灰度缓存。
// 推送只是延迟优化，权威拉取永远是对账的最终依据
type ChatClient struct {
	api    *APIClient
	cache  *Cache
	flags  *FeatureFlags
	unread *ledger.Ledger

	wsEndpoint string

	mu        sync.Mutex
	timelines map[string]*Timeline
	channel   *PushChannel
	shopID    string
	degraded  bool

	// OnSessionInvalid 鉴权失效时向上层发出的信号，可为 nil
	OnSessionInvalid func()
}

// NewChatClient 构造函数
func NewChatClient(api *APIClient, wsEndpoint string, flags *FeatureFlags) *ChatClient {
	return &ChatClient{
		api:        api,
		cache:      NewCache(0),
		flags:      flags,
		unread:     ledger.NewLedger(),
		wsEndpoint: wsEndpoint,
		timelines:  make(map[string]*Timeline),
	}
}

// Unread 未读台账镜像，只读方应通过其公开操作访问
func (s *ChatClient) Unread() *ledger.Ledger { return s.unread }

// Cache 缓存实例，用于诊断统计
func (s *ChatClient) Cache() *Cache { return s.cache }

// Degraded 推送通道是否已退化为轮询对账
func (s *ChatClient) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Timeline 取会话时间线，不存在则建立
func (s *ChatClient) Timeline(sessionID string) *Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.timelines[sessionID]
	if !ok {
		tl = NewTimeline()
		s.timelines[sessionID] = tl
	}
	return tl
}

// GetShops 名下店铺列表，shops 域开启缓存时优先走缓存
func (s *ChatClient) GetShops() ([]*dto.ShopDTO, error) {
	if s.flags.Enabled(DomainShops) {
		if v, ok := s.cache.Get(shopsKey()); ok {
			return v.([]*dto.ShopDTO), nil
		}
	}
	shops, err := s.api.ListShops()
	if err != nil {
		return nil, s.interceptAuth(err)
	}
	if s.flags.Enabled(DomainShops) {
		s.cache.Set(shopsKey(), shops, cacheTTLShops)
	}
	return shops, nil
}

// GetConversations 店铺会话列表。权威结果顺带校准未读镜像
func (s *ChatClient) GetConversations(shopID string) ([]*dto.ConversationDTO, error) {
	if s.flags.Enabled(DomainCustomers) {
		if v, ok := s.cache.Get(customersKey(shopID)); ok {
			return v.([]*dto.ConversationDTO), nil
		}
	}

	convs, err := s.api.ListConversations(shopID)
	if err != nil {
		return nil, s.interceptAuth(err)
	}

	entries := make([]ledger.Entry, 0, len(convs))
	for _, c := range convs {
		entries = append(entries, ledger.Entry{
			ShopID:         c.ShopID,
			ConversationID: c.SessionID,
			Count:          c.UnreadCount,
		})
	}
	s.unread.ReplaceShop(shopID, entries)

	if s.flags.Enabled(DomainCustomers) {
		s.cache.Set(customersKey(shopID), convs, cacheTTLCustomers)
	}
	return convs, nil
}

// GetMessages 会话历史。首页承载活跃尾部，权威结果整体替换
// 时间线的已确认区间；更早的历史页都是已确认消息，原样返回拉取结果
func (s *ChatClient) GetMessages(sessionID string, page int) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	key := messagesKey(sessionID, page)

	if s.flags.Enabled(DomainMessages) {
		if v, ok := s.cache.Get(key); ok {
			return v.([]Entry), nil
		}
	}

	msgs, err := s.api.ListMessages(sessionID, page)
	if err != nil {
		return nil, s.interceptAuth(err)
	}

	fetched := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		fetched = append(fetched, Entry{
			ID:         m.ID,
			SenderType: m.SenderType,
			Content:    m.Content,
			MsgType:    m.MsgType,
			CreatedAt:  m.CreatedAt,
		})
	}

	view := fetched
	if page == 1 {
		tl := s.Timeline(sessionID)
		tl.ApplyFetch(fetched)
		view = tl.Entries()
	}

	if s.flags.Enabled(DomainMessages) {
		s.cache.Set(key, view, cacheTTLMessages)
	}
	return view, nil
}

// SendMessage 乐观发送：先入时间线再走网络，
// 失败条目以 failed 状态留在列表中等待手动重发
func (s *ChatClient) SendMessage(sessionID, content, msgType string) (int64, error) {
	tl := s.Timeline(sessionID)
	tempID := tl.AppendOptimistic(consts.SenderStaff, content, msgType, time.Now())
	// 时间线任何变动都必须让缓存的页面快照失效，
	// 否则 pending / failed 条目会被旧快照遮蔽
	s.invalidateSession(sessionID)

	msg, err := s.api.SendMessage(&dto.SendMessageReq{
		SessionID: sessionID,
		Content:   content,
		MsgType:   msgType,
	})
	if err != nil {
		tl.MarkFailed(tempID)
		s.invalidateSession(sessionID)
		return tempID, s.interceptAuth(err)
	}

	tl.Confirm(tempID, msg.ID, msg.CreatedAt)
	s.invalidateSession(sessionID)
	return tempID, nil
}

// ResendMessage 手动重发一条失败消息
func (s *ChatClient) ResendMessage(sessionID string, tempID int64) (int64, error) {
	tl := s.Timeline(sessionID)
	entry, ok := tl.TakeFailed(tempID)
	if !ok {
		return 0, fmt.Errorf("no failed entry %d", tempID)
	}
	return s.SendMessage(sessionID, entry.Content, entry.MsgType)
}

// MarkRead 标记会话已读并同步镜像台账
func (s *ChatClient) MarkRead(shopID, sessionID string) error {
	if _, err := s.api.MarkRead(sessionID); err != nil {
		return s.interceptAuth(err)
	}
	s.unread.ResetConversation(shopID, sessionID)
	s.cache.Delete(customersKey(shopID))
	return nil
}

// Connect 建立店铺作用域的推送通道
// 鉴权失败只做一次重连尝试，再失败就退化为轮询，聊天仍然可用
func (s *ChatClient) Connect(token, shopID string) error {
	s.mu.Lock()
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	s.shopID = shopID
	s.degraded = false
	s.mu.Unlock()

	ch := NewPushChannel(s.wsEndpoint, token, shopID)
	err := ch.Open()
	if errors.Is(err, ErrChannelAuthFailed) {
		log.Warn("推送通道鉴权失败，重连一次", "shopID", shopID)
		ch = NewPushChannel(s.wsEndpoint, token, shopID)
		err = ch.Open()
	}
	if err != nil {
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
		log.Warn("推送通道不可用，退化为轮询对账", "shopID", shopID, "err", err)
		return err
	}

	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()

	go s.consume(ch)
	return nil
}

// Disconnect 拆除推送通道。切换店铺作用域前必须调用
func (s *ChatClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
}

// PollOnce 退化模式下的一次权威对账
func (s *ChatClient) PollOnce(shopID string) error {
	s.cache.Delete(customersKey(shopID))
	_, err := s.GetConversations(shopID)
	return err
}

func (s *ChatClient) consume(ch *PushChannel) {
	for frame := range ch.Frames {
		switch frame.MessageType {
		case consts.FrameNewMessage:
			s.handleNewMessage(frame)
		case consts.FrameTyping:
			// 输入中状态只影响 UI 展示，不进入时间线
		}
	}
	// 读循环结束即连接终止，后续对账走轮询
	s.mu.Lock()
	if s.channel == ch {
		s.channel = nil
		s.degraded = true
	}
	s.mu.Unlock()
}

func (s *ChatClient) handleNewMessage(frame *push.Frame) {
	payload, err := frame.DecodeMessagePayload()
	if err != nil {
		log.Warn("new_message 载荷解析失败", "err", err)
		return
	}

	s.Timeline(payload.SessionID).ApplyPush(payload)

	if payload.SenderType == consts.SenderCustomer {
		s.unread.IncrementConversation(frame.Metadata.ShopID, payload.SessionID, 1)
	}

	// 会话列表与该会话的消息页都可能过期
	s.cache.Delete(customersKey(frame.Metadata.ShopID))
	s.cache.ClearByPrefix("messages:session:" + payload.SessionID)
}

// interceptAuth 鉴权失效时清空受影响店铺的本地状态并向上发出会话失效信号
func (s *ChatClient) interceptAuth(err error) error {
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	s.mu.Lock()
	shopID := s.shopID
	onInvalid := s.OnSessionInvalid
	s.mu.Unlock()

	if shopID != "" {
		s.unread.PurgeShop(shopID)
		s.cache.Delete(customersKey(shopID))
		s.cache.ClearByPrefix("messages:session:" + shopID)
	}
	s.cache.Delete(shopsKey())

	if onInvalid != nil {
		onInvalid()
	}
	return err
}

func (s *ChatClient) invalidateSession(sessionID string) {
	s.cache.ClearByPrefix("messages:session:" + sessionID)
}
