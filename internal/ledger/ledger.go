// Package ledger 维护会话与店铺两个维度的未读计数。
// 服务端与客户端镜像共用同一实现：所有变更只能经由导出操作进入，
// 单把互斥锁串行化全部写路径，外部永远观察不到半更新状态。
package ledger

import "sync"

// Update 一次变更后的派生视图，推送给订阅者
type Update struct {
	ShopID            string
	ConversationID    string
	ConversationCount int64
	ShopTotal         int64
}

// Entry 冷启动批量装载的快照行
type Entry struct {
	ShopID         string
	ConversationID string
	Count          int64
}

// Ledger 未读台账
type Ledger struct {
	mu sync.Mutex
	// shopID -> convID -> 未读数；店铺总数始终等于各会话之和
	convs map[string]map[string]int64
	subs  []func(Update)
}

func NewLedger() *Ledger {
	return &Ledger{convs: make(map[string]map[string]int64)}
}

// Subscribe 注册派生视图回调，回调在锁外执行
func (l *Ledger) Subscribe(fn func(Update)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// IncrementConversation 会话未读增量，负增量在零处截断
// 只有客户入站消息应走到这里，客服消息不改动任何计数
func (l *Ledger) IncrementConversation(shopID, convID string, delta int64) {
	l.mu.Lock()
	byConv := l.convs[shopID]
	if byConv == nil {
		byConv = make(map[string]int64)
		l.convs[shopID] = byConv
	}

	next := byConv[convID] + delta
	if next < 0 {
		next = 0
	}
	byConv[convID] = next

	update := Update{
		ShopID:            shopID,
		ConversationID:    convID,
		ConversationCount: next,
		ShopTotal:         shopTotalLocked(byConv),
	}
	subs := l.subs
	l.mu.Unlock()

	notify(subs, update)
}

// ResetConversation 读确认：会话清零，店铺按被清数量递减
// 递减而非归零——同店铺其余会话的未读不受影响
func (l *Ledger) ResetConversation(shopID, convID string) int64 {
	l.mu.Lock()
	byConv := l.convs[shopID]
	var cleared int64
	if byConv != nil {
		cleared = byConv[convID]
		delete(byConv, convID)
	}

	update := Update{
		ShopID:            shopID,
		ConversationID:    convID,
		ConversationCount: 0,
		ShopTotal:         shopTotalLocked(byConv),
	}
	subs := l.subs
	l.mu.Unlock()

	notify(subs, update)
	return cleared
}

// ConversationCount 指定会话当前未读
func (l *Ledger) ConversationCount(shopID, convID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.convs[shopID][convID]
}

// ShopTotal 店铺维度未读总数
func (l *Ledger) ShopTotal(shopID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return shopTotalLocked(l.convs[shopID])
}

// BulkSet 用权威快照整体替换台账，冷启动装载与周期校准共用
func (l *Ledger) BulkSet(entries []Entry) {
	l.mu.Lock()
	l.convs = make(map[string]map[string]int64, len(entries))
	for _, e := range entries {
		if e.Count <= 0 {
			continue
		}
		byConv := l.convs[e.ShopID]
		if byConv == nil {
			byConv = make(map[string]int64)
			l.convs[e.ShopID] = byConv
		}
		byConv[e.ConversationID] = e.Count
	}

	updates := make([]Update, 0, len(l.convs))
	for shopID, byConv := range l.convs {
		updates = append(updates, Update{
			ShopID:    shopID,
			ShopTotal: shopTotalLocked(byConv),
		})
	}
	subs := l.subs
	l.mu.Unlock()

	for _, u := range updates {
		notify(subs, u)
	}
}

// ReplaceShop 用单店铺的权威快照替换该店铺的计数，其他店铺不受影响
// 工作台镜像按当前作用域拉取会话列表后以此校准
func (l *Ledger) ReplaceShop(shopID string, entries []Entry) {
	l.mu.Lock()
	byConv := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.ShopID != shopID || e.Count <= 0 {
			continue
		}
		byConv[e.ConversationID] = e.Count
	}
	if len(byConv) == 0 {
		delete(l.convs, shopID)
	} else {
		l.convs[shopID] = byConv
	}
	total := shopTotalLocked(byConv)
	subs := l.subs
	l.mu.Unlock()

	notify(subs, Update{ShopID: shopID, ShopTotal: total})
}

// PurgeShop 清空单店铺的全部计数 (鉴权失效时调用)
func (l *Ledger) PurgeShop(shopID string) {
	l.mu.Lock()
	delete(l.convs, shopID)
	subs := l.subs
	l.mu.Unlock()

	notify(subs, Update{ShopID: shopID})
}

func shopTotalLocked(byConv map[string]int64) int64 {
	var total int64
	for _, c := range byConv {
		total += c
	}
	return total
}

func notify(subs []func(Update), u Update) {
	for _, fn := range subs {
		fn(u)
	}
}
