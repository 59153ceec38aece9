package sync

import (
	"encoding/json"
	"sync"

	"pinboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Router dispatches inbound envelopes from the hub to the engine owning the
// envelope's document.
type Router struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	logger  logger.ILogger
}

func NewRouter(log logger.ILogger) *Router {
	return &Router{
		engines: make(map[string]*Engine),
		logger:  log,
	}
}

func (r *Router) Register(engine *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[engine.DocumentID()] = engine
}

func (r *Router) Unregister(documentId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, documentId)
}

// HandleInbound is the hub's InboundHandler. Unroutable envelopes are
// dropped with a warning; a malformed peer must not take the board down.
func (r *Router) HandleInbound(boardId uuid.UUID, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.Warn("SyncRouter", "Malformed sync envelope", map[string]interface{}{"board_id": boardId, "error": err})
		return
	}
	if env.Type != "sync" {
		return
	}

	r.mu.RLock()
	engine, ok := r.engines[env.DocumentID]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("SyncRouter", "No engine for document", map[string]interface{}{"document_id": env.DocumentID})
		return
	}

	engine.HandleRemote(env.Payload)
}
