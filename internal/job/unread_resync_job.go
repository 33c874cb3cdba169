package job

import (
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/pkg/consts"
	"ShopTalk/internal/pkg/logger"
	"ShopTalk/internal/pkg/redis"
	"ShopTalk/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// UnreadResyncJob 周期性以持久层快照校准内存未读台账，
// 并把店铺总数写入 Redis 供外部看板读取。
// 台账重建后推送侧立刻拿到修正值，进程重启造成的漂移由此收敛。
type UnreadResyncJob struct {
	store  repository.ChatStore
	unread *ledger.Ledger
}

func NewUnreadResyncJob(store repository.ChatStore, unread *ledger.Ledger) *UnreadResyncJob {
	return &UnreadResyncJob{store: store, unread: unread}
}

func (s *UnreadResyncJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	rows, err := s.store.UnreadSnapshot(ctx)
	if err != nil {
		log.ErrorContext(ctx, "未读快照拉取失败", "err", err)
		return
	}

	entries := make([]ledger.Entry, 0, len(rows))
	totals := make(map[string]int64)
	for _, row := range rows {
		entries = append(entries, ledger.Entry{
			ShopID:         row.ShopID,
			ConversationID: row.ConversationID,
			Count:          row.Count,
		})
		totals[row.ShopID] += row.Count
	}

	// 整体替换而非增量合并，快照即真相
	s.unread.BulkSet(entries)

	// 先清掉上一轮的快照键，未读已归零的店铺不能留下过期总数
	if err := redis.DeleteByPrefix(ctx, consts.ShopUnreadKey); err != nil {
		log.WarnContext(ctx, "未读快照键清理失败", "err", err)
	}
	for shopID, total := range totals {
		key := consts.ShopUnreadKey + shopID
		if err := redis.SetWithExpiration(ctx, key, strconv.FormatInt(total, 10), 10*time.Minute); err != nil {
			log.WarnContext(ctx, "未读总数快照写入失败", "shopID", shopID, "err", err)
		}
	}

	log.InfoContext(ctx, "未读台账校准完成", "conversations", len(entries), "shops", len(totals))
}
