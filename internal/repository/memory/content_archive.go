package memory

import (
	"context"

	"pinboard-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// ContentArchive is the in-memory durable tier used when no database is
// configured, and in tests. Entries never expire: archive lifetime is
// decided by the content store's reference counting, not by a TTL.
type ContentArchive struct {
	cache *cache.Cache
}

func NewContentArchive() *ContentArchive {
	return &ContentArchive{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (a *ContentArchive) Save(_ context.Context, entry *entity.ContentEntry) error {
	a.cache.Set(entry.Id, entry.Clone(), cache.NoExpiration)
	return nil
}

func (a *ContentArchive) Load(_ context.Context, id string) (*entity.ContentEntry, error) {
	if x, found := a.cache.Get(id); found {
		return x.(*entity.ContentEntry).Clone(), nil
	}
	return nil, nil
}

func (a *ContentArchive) Delete(_ context.Context, id string) error {
	a.cache.Delete(id)
	return nil
}
