package handler

import (
	"os"

	"pinboard-be/internal/pkg/logger"
	"pinboard-be/internal/service"
	boardsync "pinboard-be/internal/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SyncHandler upgrades board peers onto the realtime sync hub.
type SyncHandler struct {
	boardService service.IBoardService
	hub          *boardsync.Hub
	logger       logger.ILogger
}

func NewSyncHandler(boardService service.IBoardService, hub *boardsync.Hub, log logger.ILogger) *SyncHandler {
	return &SyncHandler{
		boardService: boardService,
		hub:          hub,
		logger:       log,
	}
}

func (h *SyncHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/sync/v1/:boardId", h.ServeWs)
}

// ServeWs handles the websocket handshake for one board. Browsers cannot
// set headers on websocket requests, so the token also rides on a query
// param.
func (h *SyncHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("SyncHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	boardId, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid board id"})
	}

	// Board runtime must exist before the first peer message arrives,
	// otherwise the router has no engine to dispatch to.
	if err := h.boardService.EnsureBoard(c.UserContext(), boardId); err != nil {
		h.logger.Error("SyncHandler", "Failed to start board runtime", map[string]interface{}{"board_id": boardId, "error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Board unavailable"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SyncHandler", "Peer joined board", map[string]interface{}{"board_id": boardId})
			boardsync.ServeWs(h.hub, conn, boardId)
			h.logger.Info("SyncHandler", "Peer left board", map[string]interface{}{"board_id": boardId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
