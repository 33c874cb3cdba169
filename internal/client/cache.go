// Package client 实现工作台侧的同步层：
// 有界 TTL 缓存、按域灰度开关、乐观写对账时间线、推送通道与 REST 访问。
package client

import (
	"strings"
	"sync"
	"time"
)

// CacheStats 命中统计，用于迁移期观察新旧取数策略的效果
type CacheStats struct {
	Hits   int64
	Misses int64
	Sets   int64
}

type cacheEntry struct {
	value     interface{}
	writtenAt time.Time
	ttl       time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.writtenAt) >= e.ttl
}

// Cache 键命名空间化的有界 TTL 缓存
// 键形如 customers:shop:<id>、messages:session:<id>
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	stats      CacheStats
	now        func() time.Time
}

// NewCache 构造缓存，maxEntries <= 0 时取默认上限
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get 读取缓存，过期条目顺带驱逐。未命中不是错误，调用方回源即可
func (s *Cache) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		if ok {
			delete(s.entries, key)
		}
		s.stats.Misses++
		return nil, false
	}
	s.stats.Hits++
	return entry.value, true
}

// Set 写入缓存，容量满时驱逐最早写入的条目
func (s *Cache) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = cacheEntry{value: value, writtenAt: s.now(), ttl: ttl}
	s.stats.Sets++
}

// Has 仅探测存在性，不计入命中统计
func (s *Cache) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && entry.expired(s.now()) {
		delete(s.entries, key)
		return false
	}
	return ok
}

// Delete 精确失效一个键
func (s *Cache) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear 清空全部条目
func (s *Cache) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]cacheEntry)
}

// ClearByPrefix 按命名空间前缀批量失效
// 写操作无法证明只影响哪些键时，宁可清掉整个前缀也不冒险读到脏数据
func (s *Cache) ClearByPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
}

// Len 当前条目数
func (s *Cache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats 返回统计快照
func (s *Cache) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range s.entries {
		if oldestKey == "" || entry.writtenAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.writtenAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
