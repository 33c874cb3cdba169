package service

import (
	"ShopTalk/internal/api/dto"
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/model"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/push"
	"ShopTalk/internal/repository"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeStore struct {
	convs map[string]*model.Conversation
	msgs  map[string][]*model.Message
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[string]*model.Conversation),
		msgs:  make(map[string][]*model.Message),
	}
}

func (s *fakeStore) Mode() repository.StoreMode { return repository.ModeNormalized }

func (s *fakeStore) CreateOrGetConversation(_ context.Context, shopID, counterpartID string, meta repository.CustomerMeta) (*model.Conversation, error) {
	id := repository.EncodeConversationID(shopID, counterpartID)
	if conv, ok := s.convs[id]; ok {
		return conv, nil
	}
	conv := &model.Conversation{ID: id, ShopID: shopID, CustomerID: counterpartID, CustomerName: meta.Name}
	s.convs[id] = conv
	return conv, nil
}

func (s *fakeStore) EnsureConversationExists(_ context.Context, shopID, counterpartID, preview string) error {
	id := repository.EncodeConversationID(shopID, counterpartID)
	if _, ok := s.convs[id]; !ok {
		s.convs[id] = &model.Conversation{ID: id, ShopID: shopID, CustomerID: counterpartID, LastMessage: preview}
	}
	return nil
}

func (s *fakeStore) AppendMessage(_ context.Context, convID, senderType, content, msgType string) (*model.Message, error) {
	conv, ok := s.convs[convID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.seq++
	msg := &model.Message{
		ID:             fmt.Sprintf("m%d", s.seq),
		ConversationID: convID,
		SenderType:     senderType,
		Content:        content,
		MsgType:        msgType,
		CreatedAt:      time.Now(),
	}
	s.msgs[convID] = append(s.msgs[convID], msg)
	conv.LastMessage = content
	conv.LastMessageAt = msg.CreatedAt
	if senderType == consts.SenderCustomer {
		conv.UnreadCount++
	}
	return msg, nil
}

func (s *fakeStore) ListMessages(_ context.Context, convID string, page repository.Pagination) ([]*model.Message, error) {
	all := s.msgs[convID]
	if page.Offset >= len(all) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}

func (s *fakeStore) ListConversations(_ context.Context, shopID string) ([]*model.Conversation, error) {
	var res []*model.Conversation
	for _, c := range s.convs {
		if c.ShopID == shopID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (s *fakeStore) MarkConversationRead(_ context.Context, convID string) (int64, error) {
	conv, ok := s.convs[convID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	cleared := conv.UnreadCount
	conv.UnreadCount = 0
	return cleared, nil
}

func (s *fakeStore) UnreadSnapshot(_ context.Context) ([]repository.UnreadRow, error) {
	var rows []repository.UnreadRow
	for _, c := range s.convs {
		rows = append(rows, repository.UnreadRow{ShopID: c.ShopID, ConversationID: c.ID, Count: c.UnreadCount})
	}
	return rows, nil
}

type fakeShopRepo struct {
	shops map[string]*model.Shop
}

func (r *fakeShopRepo) CreateShop(_ context.Context, shop *model.Shop) error {
	r.shops[shop.ID] = shop
	return nil
}

func (r *fakeShopRepo) GetShop(_ context.Context, shopID string) (*model.Shop, error) {
	if s, ok := r.shops[shopID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeShopRepo) GetShopsByOwner(_ context.Context, ownerID uint64) ([]*model.Shop, error) {
	var res []*model.Shop
	for _, s := range r.shops {
		if s.OwnerID == ownerID {
			res = append(res, s)
		}
	}
	return res, nil
}

func (r *fakeShopRepo) IsOwner(_ context.Context, shopID string, staffID uint64) (bool, error) {
	s, ok := r.shops[shopID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	return s.OwnerID == staffID, nil
}

type fakeCustomerRepo struct {
	customers map[string]*model.Customer
}

func (r *fakeCustomerRepo) UpsertCustomer(_ context.Context, c *model.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetCustomersByShop(_ context.Context, shopID string) ([]*model.Customer, error) {
	var res []*model.Customer
	for _, c := range r.customers {
		if c.ShopID == shopID {
			res = append(res, c)
		}
	}
	return res, nil
}

type published struct {
	channel string
	payload []byte
}

func newTestChatService(shop *model.Shop) (*chatServiceImpl, *fakeStore, *ledger.Ledger, *[]published) {
	store := newFakeStore()
	shopRepo := &fakeShopRepo{shops: map[string]*model.Shop{shop.ID: shop}}
	custRepo := &fakeCustomerRepo{customers: make(map[string]*model.Customer)}
	unread := ledger.NewLedger()

	svc := NewChatService(store, shopRepo, custRepo, unread, nil, 50).(*chatServiceImpl)
	var sent []published
	svc.publish = func(_ context.Context, channel string, payload []byte) error {
		sent = append(sent, published{channel: channel, payload: payload})
		return nil
	}
	return svc, store, unread, &sent
}

// 完整链路：访客入站 → 客服可见未读 → 标记已读清零
func TestCustomerMessageLifecycle(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7, Name: "测试店铺"}
	svc, _, unread, sent := newTestChatService(shop)
	ctx := context.Background()

	msg, err := svc.HandleCustomerMessage(ctx, &dto.CustomerMessageReq{
		ShopID:  shop.ID,
		UserID:  "user_abc_123",
		Name:    "访客甲",
		Content: "请问发货了吗",
	}, "1.2.3.4")
	if err != nil {
		t.Fatalf("HandleCustomerMessage: %v", err)
	}
	if msg.SenderType != consts.SenderCustomer {
		t.Fatalf("sender = %s", msg.SenderType)
	}
	wantSession := shop.ID + "_user_abc_123"
	if msg.SessionID != wantSession {
		t.Fatalf("session = %s, want %s", msg.SessionID, wantSession)
	}

	// 入站消息必须推送到店铺频道
	if len(*sent) != 1 {
		t.Fatalf("published %d frames, want 1", len(*sent))
	}
	if (*sent)[0].channel != consts.ChatShopKey+shop.ID {
		t.Fatalf("channel = %s", (*sent)[0].channel)
	}
	frame, err := push.DecodeFrame((*sent)[0].payload)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if frame.MessageType != consts.FrameNewMessage || frame.Metadata.SessionID != wantSession {
		t.Fatalf("frame = %+v", frame)
	}

	// 未读台账同步累加
	if got := unread.ShopTotal(shop.ID); got != 1 {
		t.Fatalf("shop total = %d, want 1", got)
	}

	convs, err := svc.ListConversations(ctx, 7, shop.ID)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 1 {
		t.Fatalf("convs = %+v", convs)
	}

	resp, err := svc.MarkSessionRead(ctx, 7, wantSession)
	if err != nil {
		t.Fatalf("MarkSessionRead: %v", err)
	}
	if resp.Cleared != 1 {
		t.Fatalf("cleared = %d, want 1", resp.Cleared)
	}
	if got := unread.ShopTotal(shop.ID); got != 0 {
		t.Fatalf("shop total after read = %d, want 0", got)
	}
}

// 客服出站消息不计未读
func TestStaffMessageDoesNotCountUnread(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, store, unread, _ := newTestChatService(shop)
	ctx := context.Background()

	if _, err := store.CreateOrGetConversation(ctx, shop.ID, "user_abc_123", repository.CustomerMeta{}); err != nil {
		t.Fatal(err)
	}
	session := shop.ID + "_user_abc_123"

	if _, err := svc.SendStaffMessage(ctx, 7, &dto.SendMessageReq{SessionID: session, Content: "已发货"}); err != nil {
		t.Fatalf("SendStaffMessage: %v", err)
	}
	if got := unread.ShopTotal(shop.ID); got != 0 {
		t.Fatalf("shop total = %d, want 0", got)
	}
}

// 归属校验：他人店铺一律拒绝
func TestShopOwnershipEnforced(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, store, _, _ := newTestChatService(shop)
	ctx := context.Background()

	if _, err := store.CreateOrGetConversation(ctx, shop.ID, "user_abc_123", repository.CustomerMeta{}); err != nil {
		t.Fatal(err)
	}
	session := shop.ID + "_user_abc_123"

	if _, err := svc.ListConversations(ctx, 99, shop.ID); !errors.Is(err, ErrShopNotOwned) {
		t.Fatalf("ListConversations err = %v, want ErrShopNotOwned", err)
	}
	if _, err := svc.SendStaffMessage(ctx, 99, &dto.SendMessageReq{SessionID: session, Content: "x"}); !errors.Is(err, ErrShopNotOwned) {
		t.Fatalf("SendStaffMessage err = %v, want ErrShopNotOwned", err)
	}
	if _, err := svc.MarkSessionRead(ctx, 99, session); !errors.Is(err, ErrShopNotOwned) {
		t.Fatalf("MarkSessionRead err = %v, want ErrShopNotOwned", err)
	}
}

// 非法会话 ID 必须立即判为不可重试的参数错误
func TestInvalidSessionIDRejected(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, _, _, _ := newTestChatService(shop)
	ctx := context.Background()

	for _, bad := range []string{"", "shop_1", "shop_1_visitor_9", "_user_abc"} {
		if _, err := svc.ListMessages(ctx, 7, bad, 1); !errors.Is(err, ErrConversationInvalid) {
			t.Fatalf("ListMessages(%q) err = %v, want ErrConversationInvalid", bad, err)
		}
	}
}

// 伪造的访客 ID 会让会话 ID 还原到错误的店铺名下，必须在入口拒绝
func TestForgedCustomerIDRejected(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, _, _, _ := newTestChatService(shop)
	ctx := context.Background()

	for _, bad := range []string{"user_a_user_b", "user_user_x", "visitor_9", "user_"} {
		if _, err := svc.HandleCustomerMessage(ctx, &dto.CustomerMessageReq{
			ShopID:  shop.ID,
			UserID:  bad,
			Content: "hi",
		}, "1.2.3.4"); !errors.Is(err, ErrConversationInvalid) {
			t.Fatalf("HandleCustomerMessage(UserID=%q) err = %v, want ErrConversationInvalid", bad, err)
		}
	}

	// 合法标识的会话，店主必须能读回
	msg, err := svc.HandleCustomerMessage(ctx, &dto.CustomerMessageReq{
		ShopID:  shop.ID,
		UserID:  "user_abc_123",
		Content: "hi",
	}, "1.2.3.4")
	if err != nil {
		t.Fatalf("HandleCustomerMessage: %v", err)
	}
	if _, err := svc.ListMessages(ctx, 7, msg.SessionID, 1); err != nil {
		t.Fatalf("店主无法读取该会话: %v", err)
	}
}

// 店铺访客档案列表同样受归属校验约束
func TestListCustomers(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, _, _, _ := newTestChatService(shop)
	ctx := context.Background()

	if _, err := svc.HandleCustomerMessage(ctx, &dto.CustomerMessageReq{
		ShopID:  shop.ID,
		UserID:  "user_abc_123",
		Name:    "访客甲",
		Content: "hi",
	}, "1.2.3.4"); err != nil {
		t.Fatalf("HandleCustomerMessage: %v", err)
	}

	customers, err := svc.ListCustomers(ctx, 7, shop.ID)
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(customers) != 1 || customers[0].ID != "user_abc_123" || customers[0].Name != "访客甲" {
		t.Fatalf("customers = %+v", customers)
	}

	if _, err := svc.ListCustomers(ctx, 99, shop.ID); !errors.Is(err, ErrShopNotOwned) {
		t.Fatalf("ListCustomers err = %v, want ErrShopNotOwned", err)
	}
}

// 未携带访客 ID 时由服务端签发
func TestCustomerIDIssuedWhenMissing(t *testing.T) {
	shop := &model.Shop{ID: "shop_1757591780450_1", OwnerID: 7}
	svc, _, _, _ := newTestChatService(shop)

	msg, err := svc.HandleCustomerMessage(context.Background(), &dto.CustomerMessageReq{
		ShopID:  shop.ID,
		Content: "hi",
	}, "")
	if err != nil {
		t.Fatalf("HandleCustomerMessage: %v", err)
	}
	_, counterpartID, err := repository.DecodeConversationID(msg.SessionID)
	if err != nil {
		t.Fatalf("issued session id %q does not decode: %v", msg.SessionID, err)
	}
	if counterpartID == "" {
		t.Fatal("empty counterpart id")
	}
}
