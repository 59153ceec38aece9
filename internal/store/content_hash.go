package store

import (
	"encoding/json"
	"fmt"

	"pinboard-be/internal/entity"

	"github.com/zeebo/xxh3"
)

// HashContent computes the content-addressable id for a payload and returns
// it together with the serialized payload size used for cache accounting.
//
// encoding/json marshals map keys in sorted order, so structurally equal
// payloads produce the same bytes regardless of insertion order. The widget
// type is mixed into the digest so that, say, an empty note and an empty
// todo do not collide.
func HashContent(t entity.WidgetType, data map[string]interface{}) (string, int, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", 0, fmt.Errorf("content payload is not serializable: %w", err)
	}

	buf := make([]byte, 0, len(t)+1+len(payload))
	buf = append(buf, t...)
	buf = append(buf, 0)
	buf = append(buf, payload...)

	sum := xxh3.Hash128(buf)
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), len(payload), nil
}
