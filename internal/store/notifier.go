package store

import (
	"encoding/json"

	"pinboard-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicWidgetsChanged = "board.widgets.changed"
	TopicContentChanged = "board.content.changed"
)

// ChangeMessage announces that a store document has a new state. The sync
// engine subscribes to these and snapshots the store on demand; the payload
// deliberately carries no state so a burst of changes costs nothing.
type ChangeMessage struct {
	DocumentID   string `json:"document_id"`
	LastModified int64  `json:"last_modified"`
}

// ChangeNotifier publishes store change announcements on the in-process bus.
// Stores call Publish exactly once per state transition, which is what keeps
// batch operations from fanning out into N downstream syncs.
type ChangeNotifier struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger logger.ILogger
}

func NewChangeNotifier(pubSub *gochannel.GoChannel, topic string, log logger.ILogger) *ChangeNotifier {
	return &ChangeNotifier{
		pubSub: pubSub,
		topic:  topic,
		logger: log,
	}
}

// Publish is fire-and-forget: a failed announcement is logged, never
// propagated, because local state is already committed by the time we get
// here.
func (n *ChangeNotifier) Publish(documentId string, lastModified int64) {
	if n == nil || n.pubSub == nil {
		return
	}

	payload, err := json.Marshal(ChangeMessage{
		DocumentID:   documentId,
		LastModified: lastModified,
	})
	if err != nil {
		n.logger.Error("ChangeNotifier", "Failed to marshal change message", map[string]interface{}{"error": err})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.pubSub.Publish(n.topic, msg); err != nil {
		n.logger.Warn("ChangeNotifier", "Failed to publish change message", map[string]interface{}{
			"document_id": documentId,
			"error":       err,
		})
	}
}
