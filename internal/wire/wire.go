package wire

import (
	"ShopTalk/internal/api"
	"ShopTalk/internal/api/config"
	"ShopTalk/internal/api/handler"
	"ShopTalk/internal/job"
	"ShopTalk/internal/ledger"
	"ShopTalk/internal/pkg/cron"
	"ShopTalk/internal/pkg/kafka"
	"ShopTalk/internal/repository"
	"ShopTalk/internal/service"
	log "log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router   *gin.Engine
	DB       *gorm.DB
	CronMgr  *cron.Manager
	Producer *kafka.NotifyProducer
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	// 物理消息布局在启动时一次性选定
	store, err := repository.DetectChatStore(db)
	if err != nil {
		return nil, err
	}
	log.Info("消息存储就绪", "mode", store.Mode())

	shopRepo := repository.NewShopRepo(db)
	custRepo := repository.NewCustomerRepo(db)
	staffRepo := repository.NewStaffRepo(db)

	unread := ledger.NewLedger()

	var producer *kafka.NotifyProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewNotifyProducer(cfg)
		if err != nil {
			return nil, err
		}
	}

	chatService := service.NewChatService(store, shopRepo, custRepo, unread, producer, cfg.Chat.PageSize)
	authService := service.NewAuthService(staffRepo)
	shopService := service.NewShopService(shopRepo, unread)

	handlers := &api.HandlersGroup{
		AuthHandler:  handler.NewAuthHandler(authService),
		ShopHandler:  handler.NewShopHandler(shopService),
		ChatHandler:  handler.NewChatHandler(chatService),
		MediaHandler: handler.NewMediaHandler(),
		WSHandler:    handler.NewWsHandler(chatService),
	}

	router := api.SetupRouter(handlers)

	resyncJob := job.NewUnreadResyncJob(store, unread)
	// 启动即做一次冷启动装载，不等第一个调度周期
	resyncJob.Run()
	cronMgr := cron.NewCronManager(resyncJob, cfg.Chat.ResyncSpec)

	return &ApplicationContainer{
		Router:   router,
		DB:       db,
		CronMgr:  cronMgr,
		Producer: producer,
	}, nil
}
