package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"
	"pinboard-be/internal/repository/contract"
)

// CacheConfig bounds the in-memory working set of a ContentStore.
type CacheConfig struct {
	MaxSizeMB       int
	MaxItems        int
	LRUThreshold    float64
	CleanupInterval time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSizeMB:       100,
		MaxItems:        1000,
		LRUThreshold:    0.8,
		CleanupInterval: 5 * time.Minute,
	}
}

// evictFraction is the share of cached entries dropped per cleanup pass.
const evictFraction = 0.2

// ContentInput is the payload handed to AddContent. Data is opaque to the
// store; shape validation is the producer's job.
type ContentInput struct {
	Type entity.WidgetType
	Data map[string]interface{}
}

// ContentStats reports cache accounting for diagnostics and tests.
type ContentStats struct {
	Items        int   `json:"items"`
	TotalSize    int64 `json:"total_size_bytes"`
	MaxSize      int64 `json:"max_size_bytes"`
	MaxItems     int   `json:"max_items"`
	TrackedRefs  int   `json:"tracked_refs"`
	LastModified int64 `json:"last_modified"`
}

// ContentStore is a content-addressable table with reference counting and a
// bounded LRU working set.
//
// Two removal concepts are kept strictly apart:
//   - cache eviction drops an entry from the in-memory map only; the durable
//     archive still holds it and a later GetContent re-admits it,
//   - logical deletion (refcount reaching zero) removes the entry from both
//     the map and the archive.
//
// Entries whose archive write has not been confirmed are pinned against
// eviction so an eviction pass can never destroy the only copy.
type ContentStore struct {
	mu          sync.Mutex
	entries     map[string]*entity.ContentEntry
	refs        map[string]int
	accessTimes map[string]time.Time
	unsynced    map[string]bool
	totalSize   int64
	lastMod     int64

	documentId string
	archive    contract.ContentArchive
	notifier   *ChangeNotifier
	logger     logger.ILogger
	cfg        CacheConfig

	stop     chan struct{}
	stopOnce sync.Once
}

func NewContentStore(
	documentId string,
	archive contract.ContentArchive,
	notifier *ChangeNotifier,
	log logger.ILogger,
	cfg CacheConfig,
) *ContentStore {
	if cfg.LRUThreshold <= 0 || cfg.LRUThreshold > 1 {
		cfg.LRUThreshold = DefaultCacheConfig().LRUThreshold
	}

	s := &ContentStore{
		entries:     make(map[string]*entity.ContentEntry),
		refs:        make(map[string]int),
		accessTimes: make(map[string]time.Time),
		unsynced:    make(map[string]bool),
		documentId:  documentId,
		archive:     archive,
		notifier:    notifier,
		logger:      log,
		cfg:         cfg,
		stop:        make(chan struct{}),
	}

	// Safety-net janitor: runs regardless of pressure, CleanupCache itself
	// decides whether anything needs evicting.
	if cfg.CleanupInterval > 0 {
		go s.janitor()
	}

	return s
}

func (s *ContentStore) janitor() {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.CleanupCache()
		case <-s.stop:
			return
		}
	}
}

// Close stops the background janitor.
func (s *ContentStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// AddContent deduplicates by content hash and returns the entry id. A hit on
// an existing hash only bumps its access time and reference count; nothing
// is written. Each AddContent call acquires one reference, released later by
// RemoveContent.
func (s *ContentStore) AddContent(ctx context.Context, in ContentInput) (string, error) {
	if in.Data == nil {
		return "", errors.New("content data is required")
	}

	id, size, err := HashContent(in.Type, in.Data)
	if err != nil {
		return "", err
	}

	now := time.Now()

	s.mu.Lock()
	if _, ok := s.entries[id]; ok {
		s.accessTimes[id] = now
		s.refs[id]++
		s.mu.Unlock()
		return id, nil
	}

	// The hash may be live in the archive but evicted locally. Re-admitting
	// through the dedup path keeps the "one entry per value" invariant.
	if s.refs[id] > 0 {
		s.mu.Unlock()
		if restored := s.GetContent(ctx, id); restored != nil {
			s.mu.Lock()
			s.refs[id]++
			s.mu.Unlock()
			return id, nil
		}
		s.mu.Lock()
	}

	entry := &entity.ContentEntry{
		Id:           id,
		Type:         in.Type,
		Data:         copyData(in.Data),
		LastModified: now.UnixMilli(),
		Size:         size,
	}

	s.entries[id] = entry
	s.refs[id]++
	s.accessTimes[id] = now
	s.unsynced[id] = true
	s.totalSize += int64(size)
	s.lastMod = now.UnixMilli()
	overflow := s.shouldEvictLocked()
	saved := entry.Clone()
	lastMod := s.lastMod
	s.mu.Unlock()

	s.persist(ctx, saved)
	s.notifier.Publish(s.documentId, lastMod)

	if overflow {
		s.CleanupCache()
	}

	return id, nil
}

// AcquireRef registers one additional reference to an id without touching
// the entry itself. Used when a widget referencing the content is adopted
// from a replicated document or a restored snapshot; the entry may still be
// in flight on the content document and arrive later.
func (s *ContentStore) AcquireRef(id string) {
	s.mu.Lock()
	s.refs[id]++
	s.mu.Unlock()
}

// GetContent returns a snapshot of the entry or nil if it is not currently
// available. A local cache miss falls back to the archive and re-admits the
// entry; nil therefore means "not available right now", not "deleted".
func (s *ContentStore) GetContent(ctx context.Context, id string) *entity.ContentEntry {
	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		s.accessTimes[id] = time.Now()
		c := e.Clone()
		s.mu.Unlock()
		return c
	}
	s.mu.Unlock()

	if s.archive == nil {
		return nil
	}

	entry, err := s.archive.Load(ctx, id)
	if err != nil {
		s.logger.Warn("ContentStore", "Archive load failed", map[string]interface{}{"content_id": id, "error": err})
		return nil
	}
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	if _, ok := s.entries[id]; !ok {
		s.entries[id] = entry
		s.totalSize += int64(entry.Size)
	}
	s.accessTimes[id] = time.Now()
	c := s.entries[id].Clone()
	s.mu.Unlock()

	return c
}

// UpdateContent merges partial fields into an existing entry's data and
// bumps its modification time. Unknown ids are a warned no-op: updates never
// create entries.
func (s *ContentStore) UpdateContent(ctx context.Context, id string, partial map[string]interface{}) {
	if len(partial) == 0 {
		return
	}

	// Restore an evicted entry first so the merge applies to real data.
	if existing := s.GetContent(ctx, id); existing == nil {
		s.logger.Warn("ContentStore", "Update ignored for unknown content id", map[string]interface{}{"content_id": id})
		return
	}

	now := time.Now()

	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("ContentStore", "Update ignored for unknown content id", map[string]interface{}{"content_id": id})
		return
	}

	for k, v := range partial {
		entry.Data[k] = v
	}
	entry.LastModified = now.UnixMilli()

	if payload, err := json.Marshal(entry.Data); err == nil {
		s.totalSize += int64(len(payload) - entry.Size)
		entry.Size = len(payload)
	}

	s.accessTimes[id] = now
	s.unsynced[id] = true
	s.lastMod = now.UnixMilli()
	saved := entry.Clone()
	lastMod := s.lastMod
	s.mu.Unlock()

	s.persist(ctx, saved)
	s.notifier.Publish(s.documentId, lastMod)
}

// RemoveContent releases one reference. The entry is physically deleted,
// from cache and archive both, only when no widget references it anymore.
func (s *ContentStore) RemoveContent(ctx context.Context, id string) {
	s.mu.Lock()
	count, ok := s.refs[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("ContentStore", "Remove ignored for unknown content id", map[string]interface{}{"content_id": id})
		return
	}

	if count > 1 {
		s.refs[id] = count - 1
		s.mu.Unlock()
		return
	}

	delete(s.refs, id)
	if e, cached := s.entries[id]; cached {
		s.totalSize -= int64(e.Size)
		delete(s.entries, id)
	}
	delete(s.accessTimes, id)
	delete(s.unsynced, id)
	s.lastMod = time.Now().UnixMilli()
	lastMod := s.lastMod
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Delete(ctx, id); err != nil {
			s.logger.Warn("ContentStore", "Archive delete failed", map[string]interface{}{"content_id": id, "error": err})
		}
	}

	s.notifier.Publish(s.documentId, lastMod)
}

// AddMultipleContent applies AddContent independently per item; there is no
// batch-level atomicity. Failed items yield an empty id at their position.
func (s *ContentStore) AddMultipleContent(ctx context.Context, inputs []ContentInput) ([]string, error) {
	ids := make([]string, len(inputs))
	var errs []error
	for i, in := range inputs {
		id, err := s.AddContent(ctx, in)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		ids[i] = id
	}
	return ids, errors.Join(errs...)
}

// GetMultipleContent returns entries aligned with the requested ids; missing
// entries are nil at their position.
func (s *ContentStore) GetMultipleContent(ctx context.Context, ids []string) []*entity.ContentEntry {
	out := make([]*entity.ContentEntry, len(ids))
	for i, id := range ids {
		out[i] = s.GetContent(ctx, id)
	}
	return out
}

// IsCached reports local working-set residency without touching LRU state.
func (s *ContentStore) IsCached(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// RefCount reports the live reference count for an id (0 if untracked).
func (s *ContentStore) RefCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[id]
}

func (s *ContentStore) Stats() ContentStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ContentStats{
		Items:        len(s.entries),
		TotalSize:    s.totalSize,
		MaxSize:      int64(s.cfg.MaxSizeMB) * 1024 * 1024,
		MaxItems:     s.cfg.MaxItems,
		TrackedRefs:  len(s.refs),
		LastModified: s.lastMod,
	}
}

func (s *ContentStore) shouldEvictLocked() bool {
	sizeLimit := float64(s.cfg.MaxSizeMB) * 1024 * 1024 * s.cfg.LRUThreshold
	itemLimit := float64(s.cfg.MaxItems) * s.cfg.LRUThreshold
	return float64(s.totalSize) > sizeLimit || float64(len(s.entries)) > itemLimit
}

// CleanupCache evicts the least-recently-accessed ~20% of cached entries
// when the working set is over its soft bound. Eviction is purely local:
// reference counts are kept and the archive copy stays untouched, so the
// data remains fetchable. Returns the number of evicted entries.
func (s *ContentStore) CleanupCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shouldEvictLocked() {
		return 0
	}

	type candidate struct {
		id string
		at time.Time
	}

	candidates := make([]candidate, 0, len(s.entries))
	for id := range s.entries {
		if s.unsynced[id] {
			continue // only copy not yet confirmed durable
		}
		candidates = append(candidates, candidate{id: id, at: s.accessTimes[id]})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].at.Before(candidates[j].at)
	})

	target := int(math.Ceil(float64(len(s.entries)) * evictFraction))
	if target > len(candidates) {
		target = len(candidates)
	}

	for _, c := range candidates[:target] {
		e := s.entries[c.id]
		s.totalSize -= int64(e.Size)
		delete(s.entries, c.id)
		delete(s.accessTimes, c.id)
	}

	if target > 0 {
		s.logger.Info("ContentStore", "Evicted cold content from cache", map[string]interface{}{
			"evicted":   target,
			"remaining": len(s.entries),
			"size":      s.totalSize,
		})
	}

	return target
}

func (s *ContentStore) persist(ctx context.Context, entry *entity.ContentEntry) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Save(ctx, entry); err != nil {
		// Entry stays pinned (unsynced) so eviction cannot drop the only copy.
		s.logger.Warn("ContentStore", "Archive save failed, entry pinned in cache", map[string]interface{}{
			"content_id": entry.Id,
			"error":      err,
		})
		return
	}
	s.mu.Lock()
	delete(s.unsynced, entry.Id)
	s.mu.Unlock()
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
