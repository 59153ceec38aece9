package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pinboard-be/internal/entity"

	"github.com/google/uuid"
)

// BoardDocument is the persisted/replicated shape of a widget store.
// Selection never appears here: it is per-device state.
type BoardDocument struct {
	Widgets      []*entity.Widget `json:"widgets"`
	LastModified int64            `json:"last_modified"`
}

// ContentDocument is the persisted/replicated shape of a content store.
type ContentDocument struct {
	Content      map[string]*entity.ContentEntry `json:"content"`
	LastModified int64                           `json:"last_modified"`
}

// Snapshot serializes the current widget document for the sync engine.
func (s *WidgetStore) Snapshot() ([]byte, error) {
	s.mu.Lock()
	doc := BoardDocument{
		Widgets:      make([]*entity.Widget, len(s.widgets)),
		LastModified: s.lastMod,
	}
	for i, w := range s.widgets {
		c := w.Clone()
		c.Selected = false
		doc.Widgets[i] = c
	}
	s.mu.Unlock()

	return json.Marshal(doc)
}

// ApplyRemote merges a replicated widget document into local state.
//
// Merge policy: per-widget last-writer-wins on UpdatedAt, union of ids.
// A local widget missing from a strictly newer remote document is treated
// as remotely deleted unless it was modified after that document's
// LastModified (a concurrent local edit wins over a stale deletion).
// Local selection flags survive for widgets that survive.
func (s *WidgetStore) ApplyRemote(data []byte) error {
	var doc BoardDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode board document: %w", err)
	}

	released := make([]string, 0)
	adopted := make([]string, 0)

	s.mu.Lock()
	remote := make(map[uuid.UUID]*entity.Widget, len(doc.Widgets))
	for _, rw := range doc.Widgets {
		remote[rw.Id] = rw
	}

	for _, rw := range doc.Widgets {
		local, ok := s.byId[rw.Id]
		if !ok {
			w := rw.Clone()
			w.Selected = false
			s.widgets = append(s.widgets, w)
			s.byId[w.Id] = w
			adopted = append(adopted, w.ContentId)
			continue
		}
		if rw.UpdatedAt >= local.UpdatedAt {
			selected := local.Selected
			*local = *rw.Clone()
			local.Selected = selected
		}
	}

	if doc.LastModified > s.lastMod {
		kept := s.widgets[:0]
		for _, w := range s.widgets {
			if _, present := remote[w.Id]; present || w.UpdatedAt > doc.LastModified {
				kept = append(kept, w)
				continue
			}
			delete(s.byId, w.Id)
			released = append(released, w.ContentId)
		}
		s.widgets = kept
	}

	if doc.LastModified > s.lastMod {
		s.lastMod = doc.LastModified
	}
	s.mu.Unlock()

	// Every widget in the store holds exactly one content reference: adopted
	// widgets acquire theirs here so a later removal, local or by absence,
	// releases a reference that was actually taken. Acquire before release so
	// shared content never dips through zero mid-merge.
	for _, contentId := range adopted {
		s.content.AcquireRef(contentId)
	}
	for _, contentId := range released {
		s.content.RemoveContent(context.Background(), contentId)
	}

	return nil
}

// Snapshot serializes the current content document for the sync engine.
// It covers the local working set; entries evicted to the archive are
// reachable through the archive, not through the replicated document.
func (s *ContentStore) Snapshot() ([]byte, error) {
	s.mu.Lock()
	doc := ContentDocument{
		Content:      make(map[string]*entity.ContentEntry, len(s.entries)),
		LastModified: s.lastMod,
	}
	for id, e := range s.entries {
		doc.Content[id] = e.Clone()
	}
	s.mu.Unlock()

	return json.Marshal(doc)
}

// ApplyRemote merges a replicated content document. Entries merge by
// LastModified; absence never deletes, because content lifecycle is driven
// by reference counting, not by document membership — a peer may simply
// have evicted an entry from its own working set. Merged entries are written
// through to the local archive so a later eviction can still restore them.
func (s *ContentStore) ApplyRemote(data []byte) error {
	var doc ContentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode content document: %w", err)
	}

	now := time.Now()
	merged := make([]*entity.ContentEntry, 0)

	s.mu.Lock()
	for id, re := range doc.Content {
		local, ok := s.entries[id]
		if ok && local.LastModified >= re.LastModified {
			continue
		}
		if ok {
			s.totalSize -= int64(local.Size)
		}
		e := re.Clone()
		s.entries[id] = e
		s.totalSize += int64(e.Size)
		s.accessTimes[id] = now
		s.unsynced[id] = true
		merged = append(merged, e.Clone())
	}
	if doc.LastModified > s.lastMod {
		s.lastMod = doc.LastModified
	}
	s.mu.Unlock()

	// Until the save is confirmed the entry stays pinned against eviction,
	// same as a locally written one.
	for _, e := range merged {
		s.persist(context.Background(), e)
	}

	return nil
}
