package sync

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a peer connection to the hub for one board.
func ServeWs(hub *Hub, c *websocket.Conn, boardId uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, BoardID: boardId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // run readPump in the handler goroutine
}
