package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pinboard-be/internal/pkg/logger"
	"pinboard-be/internal/store"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Document is the store-side contract the engine synchronizes: a
// serializable snapshot out, a remote state merged back in.
type Document interface {
	Snapshot() ([]byte, error)
	ApplyRemote(data []byte) error
}

// Hooks are the advisory lifecycle callbacks around synchronization events.
// All of them are optional and none of them may crash the engine: hook and
// sync errors are reported, never fatal.
type Hooks struct {
	OnBeforeSync func(payload []byte) []byte
	OnAfterSync  func(payload []byte)
	OnInitError  func(err error)
	OnSyncError  func(err error)
}

// Persister optionally stores each outgoing snapshot durably (board
// snapshot repository). Failures are sync errors, not fatal ones.
type Persister func(ctx context.Context, payload []byte, lastModified int64) error

// Envelope is the wire shape exchanged between peers.
type Envelope struct {
	Type         string          `json:"type"` // always "sync"
	DocumentID   string          `json:"document_id"`
	LastModified int64           `json:"last_modified"`
	Payload      json.RawMessage `json:"payload"`
}

// EngineConfig identifies one synchronized document. Widgets and content
// are separate documents with separate timeouts so heavy content blobs
// never block small, high-frequency widget updates.
type EngineConfig struct {
	DocumentID     string
	Topic          string
	ConnectTimeout time.Duration
}

// Engine replicates one store document. It listens for local change
// notifications on the in-process bus, snapshots the store, and broadcasts
// the document to board peers; remote documents arrive through
// HandleRemote.
type Engine struct {
	cfg     EngineConfig
	boardId uuid.UUID
	doc     Document
	hub     *Hub
	pubSub  *gochannel.GoChannel
	hooks   Hooks
	persist Persister
	logger  logger.ILogger
}

func NewEngine(
	boardId uuid.UUID,
	cfg EngineConfig,
	doc Document,
	hub *Hub,
	pubSub *gochannel.GoChannel,
	hooks Hooks,
	persist Persister,
	log logger.ILogger,
) *Engine {
	return &Engine{
		cfg:     cfg,
		boardId: boardId,
		doc:     doc,
		hub:     hub,
		pubSub:  pubSub,
		hooks:   hooks,
		persist: persist,
		logger:  log,
	}
}

func (e *Engine) DocumentID() string {
	return e.cfg.DocumentID
}

// Init checks that a sync transport is attached and probes its cross-instance
// backend within the configured connect timeout. Failure is advisory: local
// operations continue against local state.
func (e *Engine) Init(ctx context.Context) {
	if e.hub == nil {
		e.reportInitError(fmt.Errorf("document %s: no sync transport configured", e.cfg.DocumentID))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()

	if err := e.hub.Ready(ctx); err != nil {
		e.reportInitError(fmt.Errorf("document %s: transport not ready: %w", e.cfg.DocumentID, err))
	}
}

// Run subscribes to local change notifications and broadcasts a fresh
// snapshot for each one. Returns after subscription setup; the pump runs in
// its own goroutine until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	messages, err := e.pubSub.Subscribe(ctx, e.cfg.Topic)
	if err != nil {
		e.reportInitError(fmt.Errorf("subscribe %s: %w", e.cfg.Topic, err))
		return err
	}

	go func() {
		for msg := range messages {
			var change store.ChangeMessage
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				e.logger.Warn("SyncEngine", "Bad change message", map[string]interface{}{"error": err})
				msg.Ack()
				continue
			}
			msg.Ack()

			if change.DocumentID != e.cfg.DocumentID {
				continue
			}
			e.Broadcast(ctx, change.LastModified)
		}
	}()

	return nil
}

// Broadcast snapshots the document, runs OnBeforeSync, persists, and fans
// the envelope out to board peers.
func (e *Engine) Broadcast(ctx context.Context, lastModified int64) {
	payload, err := e.doc.Snapshot()
	if err != nil {
		e.reportSyncError(fmt.Errorf("snapshot %s: %w", e.cfg.DocumentID, err))
		return
	}

	if e.hooks.OnBeforeSync != nil {
		if transformed := e.hooks.OnBeforeSync(payload); transformed != nil {
			payload = transformed
		}
	}

	if e.persist != nil {
		if err := e.persist(ctx, payload, lastModified); err != nil {
			e.reportSyncError(fmt.Errorf("persist %s: %w", e.cfg.DocumentID, err))
		}
	}

	envelope, err := json.Marshal(Envelope{
		Type:         "sync",
		DocumentID:   e.cfg.DocumentID,
		LastModified: lastModified,
		Payload:      payload,
	})
	if err != nil {
		e.reportSyncError(fmt.Errorf("encode envelope %s: %w", e.cfg.DocumentID, err))
		return
	}

	if e.hub != nil {
		e.hub.BroadcastToBoard(e.boardId, envelope)
	}
}

// HandleRemote merges a peer's document state and runs OnAfterSync.
func (e *Engine) HandleRemote(payload []byte) {
	if err := e.doc.ApplyRemote(payload); err != nil {
		e.reportSyncError(fmt.Errorf("apply remote %s: %w", e.cfg.DocumentID, err))
		return
	}
	if e.hooks.OnAfterSync != nil {
		e.hooks.OnAfterSync(payload)
	}
}

func (e *Engine) reportInitError(err error) {
	e.logger.Warn("SyncEngine", "Init error", map[string]interface{}{"document_id": e.cfg.DocumentID, "error": err})
	if e.hooks.OnInitError != nil {
		e.hooks.OnInitError(err)
	}
}

func (e *Engine) reportSyncError(err error) {
	e.logger.Warn("SyncEngine", "Sync error", map[string]interface{}{"document_id": e.cfg.DocumentID, "error": err})
	if e.hooks.OnSyncError != nil {
		e.hooks.OnSyncError(err)
	}
}
