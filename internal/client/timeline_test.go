package client

import (
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/push"
	"testing"
	"time"
)

func confirmedContents(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}

// 乐观发送后 2 秒到达的同内容推送必须折叠成一条，且携带服务端 ID
func TestPushConfirmsOptimisticEcho(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tempID := tl.AppendOptimistic(consts.SenderStaff, "Test", consts.MsgTypeText, base)
	if tempID >= 0 {
		t.Fatalf("temp id = %d, want negative", tempID)
	}

	tl.ApplyPush(&push.MessagePayload{
		ID:         "srv-1",
		SenderType: consts.SenderStaff,
		Content:    "Test",
		MsgType:    consts.MsgTypeText,
		CreatedAt:  base.Add(2 * time.Second),
	})

	entries := tl.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want exactly one", confirmedContents(entries))
	}
	if entries[0].ID != "srv-1" || entries[0].State != DeliveryConfirmed {
		t.Fatalf("entry = %+v", entries[0])
	}
}

// 同一推送事件应用两次，结果与应用一次完全相同
func TestApplyPushIdempotent(t *testing.T) {
	tl := NewTimeline()
	event := &push.MessagePayload{
		ID:         "srv-1",
		SenderType: consts.SenderCustomer,
		Content:    "hi",
		MsgType:    consts.MsgTypeText,
		CreatedAt:  time.Now(),
	}

	tl.ApplyPush(event)
	tl.ApplyPush(event)

	if entries := tl.Entries(); len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

// 超出判重窗口的同内容推送是一条真正的新消息
func TestPushOutsideWindowAppends(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.AppendOptimistic(consts.SenderStaff, "ok", consts.MsgTypeText, base)
	tl.ApplyPush(&push.MessagePayload{
		ID:         "srv-2",
		SenderType: consts.SenderStaff,
		Content:    "ok",
		MsgType:    consts.MsgTypeText,
		CreatedAt:  base.Add(dedupWindow + time.Second),
	})

	if entries := tl.Entries(); len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

// 权威拉取整体替换已确认区间，在途的乐观条目不丢失
func TestFetchReplacesConfirmedKeepsPending(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.ApplyPush(&push.MessagePayload{
		ID: "stale", SenderType: consts.SenderCustomer, Content: "old", CreatedAt: base,
	})
	tl.AppendOptimistic(consts.SenderStaff, "in flight", consts.MsgTypeText, base.Add(time.Minute))

	tl.ApplyFetch([]Entry{
		{ID: "m1", SenderType: consts.SenderCustomer, Content: "one", CreatedAt: base.Add(1 * time.Second)},
		{ID: "m2", SenderType: consts.SenderStaff, Content: "two", CreatedAt: base.Add(2 * time.Second)},
	})

	entries := tl.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %v", confirmedContents(entries))
	}
	for _, e := range entries {
		if e.ID == "stale" {
			t.Fatal("stale entry survived authoritative fetch")
		}
	}
	last := entries[len(entries)-1]
	if last.Content != "in flight" || last.State != DeliveryPending {
		t.Fatalf("pending entry lost, tail = %+v", last)
	}
}

// 拉取结果已包含在途消息时，乐观条目折叠而不是重挂
func TestFetchCollapsesMatchingPending(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.AppendOptimistic(consts.SenderStaff, "done", consts.MsgTypeText, base)
	tl.ApplyFetch([]Entry{
		{ID: "m1", SenderType: consts.SenderStaff, Content: "done", CreatedAt: base.Add(time.Second)},
	})

	entries := tl.Entries()
	if len(entries) != 1 || entries[0].ID != "m1" {
		t.Fatalf("entries = %+v", entries)
	}
}

// 无论推送、拉取与乐观写以什么顺序到达，视图都按创建时间非降序
func TestOrderingNonDecreasing(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.ApplyPush(&push.MessagePayload{ID: "c", SenderType: consts.SenderCustomer, Content: "3", CreatedAt: base.Add(3 * time.Minute)})
	tl.ApplyPush(&push.MessagePayload{ID: "a", SenderType: consts.SenderCustomer, Content: "1", CreatedAt: base.Add(1 * time.Minute)})
	tl.AppendOptimistic(consts.SenderStaff, "2", consts.MsgTypeText, base.Add(2*time.Minute))

	entries := tl.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Fatalf("order violated at %d: %v", i, confirmedContents(entries))
		}
	}
	if got := confirmedContents(entries); got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("view = %v", got)
	}
}

// 失败条目保留并可取出重发
func TestFailedEntryKeptForResend(t *testing.T) {
	tl := NewTimeline()
	tempID := tl.AppendOptimistic(consts.SenderStaff, "retry me", consts.MsgTypeText, time.Now())

	tl.MarkFailed(tempID)

	entries := tl.Entries()
	if len(entries) != 1 || entries[0].State != DeliveryFailed {
		t.Fatalf("entries = %+v", entries)
	}

	entry, ok := tl.TakeFailed(tempID)
	if !ok || entry.Content != "retry me" {
		t.Fatalf("TakeFailed = %+v, %v", entry, ok)
	}
	if len(tl.Entries()) != 0 {
		t.Fatal("taken entry still in timeline")
	}
}
