package sync

import (
	"context"
	"testing"
	"time"

	"pinboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHubBroadcastDeliversToBoardPeers(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	go hub.Run()

	boardId := uuid.New()
	peer := &Client{Hub: hub, BoardID: boardId, Send: make(chan []byte, 8)}
	other := &Client{Hub: hub, BoardID: uuid.New(), Send: make(chan []byte, 8)}
	hub.register <- peer
	hub.register <- other

	assert.Eventually(t, func() bool { return hub.PeerCount(boardId) == 1 }, time.Second, time.Millisecond)

	hub.BroadcastToBoard(boardId, []byte(`{"type":"sync"}`))

	select {
	case msg := <-peer.Send:
		assert.Equal(t, []byte(`{"type":"sync"}`), msg)
	case <-time.After(time.Second):
		t.Fatal("peer never received the broadcast")
	}
	assert.Empty(t, other.Send, "other boards see nothing")
}

func TestHubDropsSlowPeerWithoutPanic(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	go hub.Run()

	boardId := uuid.New()
	slow := &Client{Hub: hub, BoardID: boardId, Send: make(chan []byte)}
	hub.register <- slow

	assert.Eventually(t, func() bool { return hub.PeerCount(boardId) == 1 }, time.Second, time.Millisecond)

	// Nobody drains slow.Send, so both broadcasts hit the full-buffer branch
	// and the second one races the pending unregister.
	hub.BroadcastToBoard(boardId, []byte(`{"type":"sync"}`))
	hub.BroadcastToBoard(boardId, []byte(`{"type":"sync"}`))

	assert.Eventually(t, func() bool { return hub.PeerCount(boardId) == 0 }, time.Second, time.Millisecond)

	// The channel was closed exactly once, by the unregister branch.
	_, open := <-slow.Send
	assert.False(t, open)

	hub.BroadcastToBoard(boardId, []byte(`{"type":"sync"}`))
}

func TestHubReadyWithoutRedis(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	assert.NoError(t, hub.Ready(context.Background()))
}
