package contract

import (
	"context"

	"pinboard-be/internal/entity"
)

// ContentArchive is the durable side of the content layer. The in-memory
// ContentStore is a bounded working set in front of it: cache eviction drops
// entries locally, the archive keeps the authoritative copy until the entry
// is logically deleted (refcount zero).
type ContentArchive interface {
	Save(ctx context.Context, entry *entity.ContentEntry) error
	Load(ctx context.Context, id string) (*entity.ContentEntry, error)
	Delete(ctx context.Context, id string) error
}
