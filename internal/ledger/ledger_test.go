package ledger

import (
	"sync"
	"testing"
)

// N 条客户消息入账后一次读确认：会话清零，店铺恰好减 N
func TestResetDecrementsShopByClearedAmount(t *testing.T) {
	l := NewLedger()

	for i := 0; i < 5; i++ {
		l.IncrementConversation("shop_1", "shop_1_user_a", 1)
	}
	for i := 0; i < 3; i++ {
		l.IncrementConversation("shop_1", "shop_1_user_b", 1)
	}

	if got := l.ShopTotal("shop_1"); got != 8 {
		t.Fatalf("店铺总数 = %d, want 8", got)
	}

	cleared := l.ResetConversation("shop_1", "shop_1_user_a")
	if cleared != 5 {
		t.Fatalf("cleared = %d, want 5", cleared)
	}
	if got := l.ConversationCount("shop_1", "shop_1_user_a"); got != 0 {
		t.Fatalf("会话未读 = %d, want 0", got)
	}
	// 兄弟会话的未读不得被抹掉
	if got := l.ShopTotal("shop_1"); got != 3 {
		t.Fatalf("店铺总数 = %d, want 3", got)
	}
}

func TestCountersNeverNegative(t *testing.T) {
	l := NewLedger()

	l.IncrementConversation("shop_1", "shop_1_user_a", -10)
	if got := l.ConversationCount("shop_1", "shop_1_user_a"); got != 0 {
		t.Fatalf("会话未读 = %d, want 0", got)
	}

	l.ResetConversation("shop_1", "shop_1_user_a")
	l.ResetConversation("shop_1", "shop_1_user_a")
	if got := l.ShopTotal("shop_1"); got != 0 {
		t.Fatalf("店铺总数 = %d, want 0", got)
	}
}

// 店铺总数恒等于各会话之和
func TestShopTotalIsSumOfConversations(t *testing.T) {
	l := NewLedger()

	l.IncrementConversation("shop_7", "shop_7_user_a", 2)
	l.IncrementConversation("shop_7", "shop_7_user_b", 3)
	l.IncrementConversation("shop_8", "shop_8_user_c", 1)

	sum := l.ConversationCount("shop_7", "shop_7_user_a") +
		l.ConversationCount("shop_7", "shop_7_user_b")
	if got := l.ShopTotal("shop_7"); got != sum {
		t.Fatalf("店铺总数 = %d, want %d", got, sum)
	}
	if got := l.ShopTotal("shop_8"); got != 1 {
		t.Fatalf("店铺总数 = %d, want 1", got)
	}
}

func TestBulkSetReplacesWholeLedger(t *testing.T) {
	l := NewLedger()
	l.IncrementConversation("shop_1", "shop_1_user_stale", 99)

	l.BulkSet([]Entry{
		{ShopID: "shop_1", ConversationID: "shop_1_user_a", Count: 4},
		{ShopID: "shop_2", ConversationID: "shop_2_user_b", Count: 0}, // 零值行被忽略
	})

	if got := l.ConversationCount("shop_1", "shop_1_user_stale"); got != 0 {
		t.Fatalf("旧计数残留: %d", got)
	}
	if got := l.ShopTotal("shop_1"); got != 4 {
		t.Fatalf("店铺总数 = %d, want 4", got)
	}
	if got := l.ShopTotal("shop_2"); got != 0 {
		t.Fatalf("店铺总数 = %d, want 0", got)
	}
}

func TestReplaceShopOnlyTouchesTargetShop(t *testing.T) {
	l := NewLedger()
	l.IncrementConversation("shop_1", "shop_1_user_stale", 9)
	l.IncrementConversation("shop_2", "shop_2_user_a", 3)

	l.ReplaceShop("shop_1", []Entry{
		{ShopID: "shop_1", ConversationID: "shop_1_user_a", Count: 2},
		{ShopID: "shop_2", ConversationID: "shop_2_user_b", Count: 7}, // 非目标店铺的行被忽略
	})

	if got := l.ConversationCount("shop_1", "shop_1_user_stale"); got != 0 {
		t.Fatalf("旧计数残留: %d", got)
	}
	if got := l.ShopTotal("shop_1"); got != 2 {
		t.Fatalf("店铺总数 = %d, want 2", got)
	}
	if got := l.ShopTotal("shop_2"); got != 3 {
		t.Fatalf("店铺总数 = %d, want 3", got)
	}
}

func TestSubscribeReceivesDerivedView(t *testing.T) {
	l := NewLedger()

	var last Update
	l.Subscribe(func(u Update) { last = u })

	l.IncrementConversation("shop_1", "shop_1_user_a", 1)
	if last.ShopTotal != 1 || last.ConversationCount != 1 {
		t.Fatalf("派生视图错误: %+v", last)
	}

	l.ResetConversation("shop_1", "shop_1_user_a")
	if last.ShopTotal != 0 || last.ConversationCount != 0 {
		t.Fatalf("派生视图错误: %+v", last)
	}
}

// 并发增减下不会出现半更新状态
func TestConcurrentMutations(t *testing.T) {
	l := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.IncrementConversation("shop_1", "shop_1_user_a", 1)
			}
		}()
	}
	wg.Wait()

	if got := l.ShopTotal("shop_1"); got != 1000 {
		t.Fatalf("店铺总数 = %d, want 1000", got)
	}
	if got := l.ConversationCount("shop_1", "shop_1_user_a"); got != 1000 {
		t.Fatalf("会话未读 = %d, want 1000", got)
	}
}
