package sync

import (
	"context"
	"encoding/json"
	"sync"

	"pinboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisChannel carries cross-instance board sync traffic.
const redisChannel = "board_sync_events"

// InboundHandler receives envelopes pushed by connected peers.
type InboundHandler func(boardId uuid.UUID, data []byte)

// Hub fans board document broadcasts out to every connected peer of a
// board, on this instance directly and via Redis pub/sub for peers attached
// to other instances.
type Hub struct {
	// Registered clients map: BoardID -> list of clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out. Optional.
	rdb *redis.Client

	// instanceId filters this instance's own traffic out of the Redis echo.
	instanceId string

	inbound InboundHandler

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// SetInboundHandler routes peer-pushed documents upward. Must be set before
// Run.
func (h *Hub) SetInboundHandler(fn InboundHandler) {
	h.inbound = fn
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.BoardID] = append(h.clients[client.BoardID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Peer joined board", map[string]interface{}{"board_id": client.BoardID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.BoardID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.BoardID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.BoardID]) == 0 {
					delete(h.clients, client.BoardID)
					h.logger.Info("Hub", "Board has no local peers left", map[string]interface{}{"board_id": client.BoardID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Ready verifies the cross-instance transport. Without Redis the hub is
// purely local and always ready.
func (h *Hub) Ready(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	return h.rdb.Ping(ctx).Err()
}

// PeerCount reports locally attached peers for a board.
func (h *Hub) PeerCount(boardId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[boardId])
}

// BroadcastToBoard delivers a serialized envelope to every local peer of a
// board and republishes it for other instances.
func (h *Hub) BroadcastToBoard(boardId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[boardId]
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// The unregister branch owns the close; a slow peer must not be
			// able to close its channel twice.
			h.logger.Warn("Hub", "Peer send buffer full, dropping connection", map[string]interface{}{"board_id": boardId})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"board_id": boardId.String(),
			"origin":   h.instanceId,
			"message":  json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), redisChannel, payload)
	}
}

// handleInbound is called from client read pumps.
func (h *Hub) handleInbound(boardId uuid.UUID, data []byte) {
	if h.inbound != nil {
		h.inbound(boardId, data)
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			BoardID string          `json:"board_id"`
			Origin  string          `json:"origin"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err})
			continue
		}
		if payload.Origin == h.instanceId {
			continue
		}

		boardId, err := uuid.Parse(payload.BoardID)
		if err != nil {
			continue
		}

		// Deliver to local peers of that board; the originating instance
		// already delivered to its own.
		h.mu.RLock()
		clients, ok := h.clients[boardId]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
		}

		// Other-instance traffic also feeds the local document state.
		h.handleInbound(boardId, payload.Message)
	}
}
