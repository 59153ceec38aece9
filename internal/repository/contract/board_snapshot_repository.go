package contract

import (
	"context"

	"github.com/google/uuid"
)

// BoardSnapshotRepository persists the serialized widget document per board
// so a restarted instance can rejoin a board without waiting for a full
// peer sync.
type BoardSnapshotRepository interface {
	Save(ctx context.Context, boardId uuid.UUID, documentId string, payload []byte, lastModified int64) error
	Load(ctx context.Context, boardId uuid.UUID, documentId string) ([]byte, error)
}
