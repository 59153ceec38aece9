package bootstrap

import (
	"context"
	"log"

	"pinboard-be/internal/config"
	"pinboard-be/internal/controller"
	"pinboard-be/internal/handler"
	"pinboard-be/internal/pkg/logger"
	"pinboard-be/internal/service"
	boardsync "pinboard-be/internal/sync"

	pktNats "pinboard-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	BoardController   controller.IBoardController
	ContentController controller.IContentController

	// WebSockets & Sync
	SyncHandler *handler.SyncHandler
	SyncHub     *boardsync.Hub

	// Exposed for main.go shutdown
	BoardService service.IBoardService
}

// NewContainer wires the whole service graph. db may be nil; boards then
// run on the in-memory content archive with no durable snapshots.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// In-process change bus: stores publish, sync engines subscribe.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Sync Hub + Router
	syncLogger := logger.NewIsolatedLogger("logs/sync.log")
	hub := boardsync.NewHub(rdb, syncLogger)
	router := boardsync.NewRouter(syncLogger)
	hub.SetInboundHandler(router.HandleInbound)
	go hub.Run()

	boardService := service.NewBoardService(db, hub, router, pubSub, natsPub, sysLogger, cfg)

	syncHandler := handler.NewSyncHandler(boardService, hub, syncLogger)

	return &Container{
		BoardController:   controller.NewBoardController(boardService),
		ContentController: controller.NewContentController(boardService),
		SyncHandler:       syncHandler,
		SyncHub:           hub,
		BoardService:      boardService,
	}
}
