package client

import (
	"testing"
	"time"
)

// 写入后立即可读，TTL 过后必须未命中且条目被驱逐
func TestCacheRoundTripAndExpiry(t *testing.T) {
	c := NewCache(16)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("customers:shop:7", "v1", 20*time.Second)
	if v, ok := c.Get("customers:shop:7"); !ok || v != "v1" {
		t.Fatalf("get = %v, %v", v, ok)
	}

	now = now.Add(21 * time.Second)
	if _, ok := c.Get("customers:shop:7"); ok {
		t.Fatal("expired entry still served")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted, len = %d", c.Len())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

// TTL 窗口内的写失效必须让下一次读未命中
func TestCacheInvalidationWithinTTL(t *testing.T) {
	c := NewCache(16)
	c.Set("customers:shop:7", "cached", 20*time.Second)

	// 店铺 7 的客户数据发生变更
	c.Delete("customers:shop:7")

	if _, ok := c.Get("customers:shop:7"); ok {
		t.Fatal("stale entry served after invalidation")
	}
}

func TestCacheClearByPrefix(t *testing.T) {
	c := NewCache(16)
	c.Set("messages:session:a:p1", 1, time.Minute)
	c.Set("messages:session:a:p2", 2, time.Minute)
	c.Set("messages:session:b:p1", 3, time.Minute)
	c.Set("customers:shop:7", 4, time.Minute)

	c.ClearByPrefix("messages:session:a")

	if c.Has("messages:session:a:p1") || c.Has("messages:session:a:p2") {
		t.Fatal("prefixed entries survived")
	}
	if !c.Has("messages:session:b:p1") || !c.Has("customers:shop:7") {
		t.Fatal("unrelated entries were dropped")
	}
}

// 容量到顶时驱逐最早写入的条目
func TestCacheBounded(t *testing.T) {
	c := NewCache(2)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k1", 1, time.Minute)
	now = now.Add(time.Second)
	c.Set("k2", 2, time.Minute)
	now = now.Add(time.Second)
	c.Set("k3", 3, time.Minute)

	if c.Has("k1") {
		t.Fatal("oldest entry not evicted")
	}
	if !c.Has("k2") || !c.Has("k3") {
		t.Fatal("newer entries evicted")
	}
}
