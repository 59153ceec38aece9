package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pinboard-be/internal/config"
	"pinboard-be/internal/dto"
	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"
	"pinboard-be/internal/repository/contract"
	"pinboard-be/internal/repository/implementation"
	"pinboard-be/internal/repository/memory"
	"pinboard-be/internal/store"
	boardsync "pinboard-be/internal/sync"
	"pinboard-be/pkg/events"
	pktNats "pinboard-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IBoardService interface {
	EnsureBoard(ctx context.Context, boardId uuid.UUID) error
	CreateWidget(ctx context.Context, boardId uuid.UUID, req *dto.CreateWidgetRequest) (*dto.CreateWidgetResponse, error)
	GetBoard(ctx context.Context, boardId uuid.UUID) (*dto.BoardResponse, error)
	GetWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID) (*store.HydratedWidget, error)
	GetWidgetsByType(ctx context.Context, boardId uuid.UUID, widgetType string) ([]*entity.Widget, error)
	UpdateWidget(ctx context.Context, boardId uuid.UUID, req *dto.UpdateWidgetRequest) (*entity.Widget, error)
	DeleteWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID) error
	TransformWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID, req *dto.TransformRequest) (*entity.Widget, error)
	TransformWidgets(ctx context.Context, boardId uuid.UUID, req *dto.BatchTransformRequest) (*dto.BatchTransformResponse, error)
	ReorderWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID, zIndex int) (*entity.Widget, error)
	GetContent(ctx context.Context, boardId uuid.UUID, contentId string) (*entity.ContentEntry, error)
	UpdateContent(ctx context.Context, boardId uuid.UUID, contentId string, req *dto.UpdateContentRequest) error
	Metrics(ctx context.Context, boardId uuid.UUID) (*dto.BoardMetricsResponse, error)
	Close()
}

// boardRuntime bundles the per-board store stack: one content store, one
// widget store, the hydrator over them, and the two sync engines.
type boardRuntime struct {
	content      *store.ContentStore
	widgets      *store.WidgetStore
	hydrator     *store.Hydrator
	widgetEngine *boardsync.Engine
	contentEngine *boardsync.Engine
}

type boardService struct {
	mu       sync.Mutex
	runtimes map[uuid.UUID]*boardRuntime

	db             *gorm.DB // optional; nil means in-memory archive
	hub            *boardsync.Hub
	router         *boardsync.Router
	pubSub         *gochannel.GoChannel
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
	cfg            *config.Config
}

func NewBoardService(
	db *gorm.DB,
	hub *boardsync.Hub,
	router *boardsync.Router,
	pubSub *gochannel.GoChannel,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	cfg *config.Config,
) IBoardService {
	return &boardService{
		runtimes:       make(map[uuid.UUID]*boardRuntime),
		db:             db,
		hub:            hub,
		router:         router,
		pubSub:         pubSub,
		eventPublisher: eventPublisher,
		logger:         log,
		cfg:            cfg,
	}
}

func widgetDocumentId(boardId uuid.UUID) string {
	return fmt.Sprintf("board:%s:widgets", boardId)
}

func contentDocumentId(boardId uuid.UUID) string {
	return fmt.Sprintf("board:%s:content", boardId)
}

// runtime returns the board's store stack, building and registering it on
// first use.
func (s *boardService) runtime(ctx context.Context, boardId uuid.UUID) (*boardRuntime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt, ok := s.runtimes[boardId]; ok {
		return rt, nil
	}

	var archive contract.ContentArchive
	var snapshots contract.BoardSnapshotRepository
	if s.db != nil {
		archive = implementation.NewContentArchive(s.db)
		snapshots = implementation.NewBoardSnapshotRepository(s.db)
	} else {
		archive = memory.NewContentArchive()
	}

	widgetDoc := widgetDocumentId(boardId)
	contentDoc := contentDocumentId(boardId)

	contentNotifier := store.NewChangeNotifier(s.pubSub, store.TopicContentChanged, s.logger)
	widgetNotifier := store.NewChangeNotifier(s.pubSub, store.TopicWidgetsChanged, s.logger)

	contentStore := store.NewContentStore(contentDoc, archive, contentNotifier, s.logger, store.CacheConfig{
		MaxSizeMB:       s.cfg.Cache.MaxSizeMB,
		MaxItems:        s.cfg.Cache.MaxItems,
		LRUThreshold:    s.cfg.Cache.LRUThreshold,
		CleanupInterval: s.cfg.Cache.CleanupInterval,
	})
	widgetStore := store.NewWidgetStore(widgetDoc, contentStore, widgetNotifier, s.logger)
	hydrator := store.NewHydrator(contentStore, s.logger, store.HydratorConfig{
		CacheTTL:    s.cfg.Hydrator.CacheTTL,
		RetryWindow: s.cfg.Hydrator.RetryWindow,
	})

	var persist boardsync.Persister
	if snapshots != nil {
		persist = func(ctx context.Context, payload []byte, lastModified int64) error {
			return snapshots.Save(ctx, boardId, widgetDoc, payload, lastModified)
		}
	}

	widgetEngine := boardsync.NewEngine(boardId, boardsync.EngineConfig{
		DocumentID:     widgetDoc,
		Topic:          store.TopicWidgetsChanged,
		ConnectTimeout: s.cfg.Sync.WidgetConnectTimeout,
	}, widgetStore, s.hub, s.pubSub, boardsync.Hooks{}, persist, s.logger)

	contentEngine := boardsync.NewEngine(boardId, boardsync.EngineConfig{
		DocumentID:     contentDoc,
		Topic:          store.TopicContentChanged,
		ConnectTimeout: s.cfg.Sync.ContentConnectTimeout,
	}, contentStore, s.hub, s.pubSub, boardsync.Hooks{}, nil, s.logger)

	s.router.Register(widgetEngine)
	s.router.Register(contentEngine)

	widgetEngine.Init(ctx)
	contentEngine.Init(ctx)

	if err := widgetEngine.Run(context.Background()); err != nil {
		s.logger.Warn("BoardService", "Widget sync engine not running", map[string]interface{}{"board_id": boardId, "error": err})
	}
	if err := contentEngine.Run(context.Background()); err != nil {
		s.logger.Warn("BoardService", "Content sync engine not running", map[string]interface{}{"board_id": boardId, "error": err})
	}

	// Rejoin from the last persisted snapshot if one exists.
	if snapshots != nil {
		if payload, err := snapshots.Load(ctx, boardId, widgetDoc); err != nil {
			s.logger.Warn("BoardService", "Snapshot load failed", map[string]interface{}{"board_id": boardId, "error": err})
		} else if payload != nil {
			if err := widgetStore.ApplyRemote(payload); err != nil {
				s.logger.Warn("BoardService", "Snapshot apply failed", map[string]interface{}{"board_id": boardId, "error": err})
			}
		}
	}

	rt := &boardRuntime{
		content:      contentStore,
		widgets:      widgetStore,
		hydrator:     hydrator,
		widgetEngine: widgetEngine,
		contentEngine: contentEngine,
	}
	s.runtimes[boardId] = rt
	return rt, nil
}

func (s *boardService) EnsureBoard(ctx context.Context, boardId uuid.UUID) error {
	_, err := s.runtime(ctx, boardId)
	return err
}

func (s *boardService) CreateWidget(ctx context.Context, boardId uuid.UUID, req *dto.CreateWidgetRequest) (*dto.CreateWidgetResponse, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	widget, err := rt.widgets.AddWidget(ctx, store.CreateWidgetInput{
		Type:     entity.ParseWidgetType(req.Type),
		X:        req.X,
		Y:        req.Y,
		Width:    req.Width,
		Height:   req.Height,
		Rotation: req.Rotation,
		ZIndex:   req.ZIndex,
		Locked:   req.Locked,
		Metadata: req.Metadata,
		Content:  req.Content,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "WIDGET_CREATED", map[string]interface{}{
		"board_id":   boardId,
		"widget_id":  widget.Id,
		"type":       widget.Type,
		"content_id": widget.ContentId,
	})

	return &dto.CreateWidgetResponse{
		Id:        widget.Id,
		ContentId: widget.ContentId,
	}, nil
}

func (s *boardService) GetBoard(ctx context.Context, boardId uuid.UUID) (*dto.BoardResponse, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	widgets := rt.widgets.GetWidgets()
	hydrated := rt.hydrator.HydrateWidgets(ctx, widgets)

	return &dto.BoardResponse{
		Widgets:      hydrated,
		LastModified: rt.content.Stats().LastModified,
	}, nil
}

func (s *boardService) GetWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID) (*store.HydratedWidget, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	widget := rt.widgets.GetWidget(id)
	if widget == nil {
		return nil, nil // Not found
	}
	return rt.hydrator.HydrateWidget(ctx, widget), nil
}

func (s *boardService) GetWidgetsByType(ctx context.Context, boardId uuid.UUID, widgetType string) ([]*entity.Widget, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}
	return rt.widgets.GetWidgetsByType(entity.ParseWidgetType(widgetType)), nil
}

func (s *boardService) UpdateWidget(ctx context.Context, boardId uuid.UUID, req *dto.UpdateWidgetRequest) (*entity.Widget, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	return rt.widgets.UpdateWidget(req.Id, store.WidgetPatch{
		X:         req.X,
		Y:         req.Y,
		Width:     req.Width,
		Height:    req.Height,
		Rotation:  req.Rotation,
		ZIndex:    req.ZIndex,
		Locked:    req.Locked,
		Metadata:  req.Metadata,
		ContentId: req.ContentId,
	}), nil
}

func (s *boardService) DeleteWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID) error {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return err
	}

	rt.widgets.RemoveWidget(ctx, id)

	s.publishEvent(ctx, "WIDGET_REMOVED", map[string]interface{}{
		"board_id":  boardId,
		"widget_id": id,
	})
	return nil
}

func (s *boardService) TransformWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID, req *dto.TransformRequest) (*entity.Widget, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	return rt.widgets.UpdateWidgetTransform(id, store.TransformPatch{
		X:        req.X,
		Y:        req.Y,
		Width:    req.Width,
		Height:   req.Height,
		Rotation: req.Rotation,
	}), nil
}

func (s *boardService) TransformWidgets(ctx context.Context, boardId uuid.UUID, req *dto.BatchTransformRequest) (*dto.BatchTransformResponse, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}

	updates := make([]store.TransformUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = store.TransformUpdate{
			Id: u.Id,
			TransformPatch: store.TransformPatch{
				X:        u.X,
				Y:        u.Y,
				Width:    u.Width,
				Height:   u.Height,
				Rotation: u.Rotation,
			},
		}
	}

	applied := rt.widgets.UpdateMultipleWidgetTransforms(updates)
	return &dto.BatchTransformResponse{Applied: applied}, nil
}

func (s *boardService) ReorderWidget(ctx context.Context, boardId uuid.UUID, id uuid.UUID, zIndex int) (*entity.Widget, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}
	return rt.widgets.ReorderWidget(id, zIndex), nil
}

func (s *boardService) GetContent(ctx context.Context, boardId uuid.UUID, contentId string) (*entity.ContentEntry, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}
	return rt.content.GetContent(ctx, contentId), nil
}

func (s *boardService) UpdateContent(ctx context.Context, boardId uuid.UUID, contentId string, req *dto.UpdateContentRequest) error {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return err
	}
	rt.content.UpdateContent(ctx, contentId, req.Data)
	return nil
}

func (s *boardService) Metrics(ctx context.Context, boardId uuid.UUID) (*dto.BoardMetricsResponse, error) {
	rt, err := s.runtime(ctx, boardId)
	if err != nil {
		return nil, err
	}
	return &dto.BoardMetricsResponse{
		Hydration: rt.hydrator.Monitor().Stats(),
		Content:   rt.content.Stats(),
		Widgets:   rt.widgets.Count(),
	}, nil
}

func (s *boardService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rt := range s.runtimes {
		rt.content.Close()
		s.router.Unregister(widgetDocumentId(id))
		s.router.Unregister(contentDocumentId(id))
		delete(s.runtimes, id)
	}
}

// publishEvent forwards board events to the NATS bus. Auxiliary: failures
// are logged, never returned.
func (s *boardService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("BoardService", "Failed to publish board event", map[string]interface{}{
			"event": eventType,
			"error": err,
		})
	}
}
