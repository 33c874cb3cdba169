package client

import (
	"ShopTalk/internal/push"
	"sort"
	"sync"
	"time"
)

// DeliveryState 时间线条目的投递状态
type DeliveryState int

const (
	DeliveryPending   DeliveryState = iota // 乐观写入，等待服务端确认
	DeliveryConfirmed                      // 已有服务端消息 ID
	DeliveryFailed                         // 发送失败，保留在列表中供手动重发
)

// dedupWindow 乐观条目与推送事件判定为同一消息的最大时间差。
// 取 5 秒：足以覆盖一次往返加推送延迟，又短到不会把
// 相邻的两条同文案消息误判成一条。
const dedupWindow = 5 * time.Second

// Entry 时间线条目。乐观写入先持有负数临时 ID，确认后换成服务端 ID
type Entry struct {
	ID         string
	TempID     int64
	State      DeliveryState
	SenderType string
	Content    string
	MsgType    string
	CreatedAt  time.Time

	arrival int64
}

// Timeline 单个会话的消息时间线
// 把推送事件、乐观本地写与权威拉取合并成一份有序无重复的视图。
// 展示顺序按创建时间非降序，同时刻按到达先后
type Timeline struct {
	mu       sync.Mutex
	entries  []Entry
	nextTemp int64
	arrival  int64
}

func NewTimeline() *Timeline {
	return &Timeline{nextTemp: -1}
}

// AppendOptimistic 乐观写入一条待确认消息，返回负数临时 ID
func (s *Timeline) AppendOptimistic(senderType, content, msgType string, at time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID := s.nextTemp
	s.nextTemp--
	s.arrival++
	s.entries = append(s.entries, Entry{
		TempID:     tempID,
		State:      DeliveryPending,
		SenderType: senderType,
		Content:    content,
		MsgType:    msgType,
		CreatedAt:  at,
		arrival:    s.arrival,
	})
	s.sortLocked()
	return tempID
}

// Confirm 本次发送的网络应答到达，就地确认对应的乐观条目
func (s *Timeline) Confirm(tempID int64, serverID string, serverAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].TempID == tempID && s.entries[i].State != DeliveryConfirmed {
			s.entries[i].ID = serverID
			s.entries[i].State = DeliveryConfirmed
			s.entries[i].CreatedAt = serverAt
			s.sortLocked()
			return
		}
	}
}

// MarkFailed 发送失败。条目保留并显式标记，绝不无声回滚
func (s *Timeline) MarkFailed(tempID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].TempID == tempID && s.entries[i].State == DeliveryPending {
			s.entries[i].State = DeliveryFailed
			return
		}
	}
}

// TakeFailed 取出一条失败条目用于手动重发，取出即从时间线移除
func (s *Timeline) TakeFailed(tempID int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].TempID == tempID && s.entries[i].State == DeliveryFailed {
			entry := s.entries[i]
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return entry, true
		}
	}
	return Entry{}, false
}

// ApplyPush 合并一条推送事件
// 先按服务端 ID 去重（同一事件到达两次不产生新条目）；
// 再尝试与未确认的乐观条目配对：同发送方、同内容、创建时间
// 落在 dedupWindow 内即视为该乐观条目的服务端确认，就地替换；
// 都不匹配才是真正的新消息，追加入列
func (s *Timeline) ApplyPush(p *push.MessagePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == p.ID && s.entries[i].State == DeliveryConfirmed {
			return
		}
	}

	for i := range s.entries {
		e := &s.entries[i]
		if e.State != DeliveryPending {
			continue
		}
		if e.SenderType == p.SenderType && e.Content == p.Content && within(e.CreatedAt, p.CreatedAt, dedupWindow) {
			e.ID = p.ID
			e.State = DeliveryConfirmed
			e.CreatedAt = p.CreatedAt
			s.sortLocked()
			return
		}
	}

	s.arrival++
	s.entries = append(s.entries, Entry{
		ID:         p.ID,
		State:      DeliveryConfirmed,
		SenderType: p.SenderType,
		Content:    p.Content,
		MsgType:    p.MsgType,
		CreatedAt:  p.CreatedAt,
		arrival:    s.arrival,
	})
	s.sortLocked()
}

// ApplyFetch 权威拉取胜出：已确认区间整体替换为服务端结果，
// 仍未确认的乐观条目能与拉取结果配对的就地确认，其余重挂尾部，
// 在途发送不会因一次刷新而丢失
func (s *Timeline) ApplyFetch(fetched []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var local []Entry
	for _, e := range s.entries {
		if e.State != DeliveryConfirmed {
			local = append(local, e)
		}
	}

	s.entries = s.entries[:0]
	for _, f := range fetched {
		s.arrival++
		f.State = DeliveryConfirmed
		f.arrival = s.arrival
		s.entries = append(s.entries, f)
	}

	for _, e := range local {
		if e.State == DeliveryPending {
			if i := s.matchLocked(e); i >= 0 {
				continue // 拉取结果已包含这条在途消息
			}
		}
		s.arrival++
		e.arrival = s.arrival
		s.entries = append(s.entries, e)
	}
	s.sortLocked()
}

// Entries 返回展示视图的副本
func (s *Timeline) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Timeline) matchLocked(e Entry) int {
	for i := range s.entries {
		c := &s.entries[i]
		if c.State == DeliveryConfirmed && c.SenderType == e.SenderType &&
			c.Content == e.Content && within(c.CreatedAt, e.CreatedAt, dedupWindow) {
			return i
		}
	}
	return -1
}

func (s *Timeline) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].CreatedAt.Equal(s.entries[j].CreatedAt) {
			return s.entries[i].arrival < s.entries[j].arrival
		}
		return s.entries[i].CreatedAt.Before(s.entries[j].CreatedAt)
	})
}

func within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
