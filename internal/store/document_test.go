package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotExcludesSelection(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("a"))
	widgets.SelectWidget(w.Id)

	data, err := widgets.Snapshot()
	assert.NoError(t, err)

	var doc BoardDocument
	assert.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Widgets, 1)
	assert.False(t, doc.Widgets[0].Selected)
}

func TestApplyRemoteAddsUnknownWidgets(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()

	remote := &entity.Widget{
		Id:        uuid.New(),
		Type:      entity.WidgetNote,
		Width:     100,
		Height:    100,
		ContentId: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		CreatedAt: time.Now().UnixMilli(),
		UpdatedAt: time.Now().UnixMilli(),
	}
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{remote},
		LastModified: time.Now().UnixMilli(),
	})

	assert.NoError(t, widgets.ApplyRemote(doc))
	assert.Equal(t, 1, widgets.Count())
	assert.NotNil(t, widgets.GetWidget(remote.Id))
}

func TestApplyRemoteLastWriterWins(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("local"))

	// Remote copy of the same widget with an older edit loses.
	stale := w.Clone()
	stale.X = 500
	stale.UpdatedAt = w.UpdatedAt - 1000
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{stale},
		LastModified: w.UpdatedAt - 1000,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))
	assert.Equal(t, 10.0, widgets.GetWidget(w.Id).X)

	// A strictly newer remote edit wins.
	fresh := w.Clone()
	fresh.X = 777
	fresh.UpdatedAt = w.UpdatedAt + 1000
	doc, _ = json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{fresh},
		LastModified: w.UpdatedAt + 1000,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))
	assert.Equal(t, 777.0, widgets.GetWidget(w.Id).X)
}

func TestApplyRemotePreservesLocalSelection(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("local"))
	widgets.SelectWidget(w.Id)

	fresh := w.Clone()
	fresh.UpdatedAt = w.UpdatedAt + 1000
	fresh.Selected = false
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{fresh},
		LastModified: w.UpdatedAt + 1000,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))

	selected := widgets.GetSelectedWidgets()
	assert.Len(t, selected, 1, "selection is device-local and survives merges")
}

func TestApplyRemoteDeletesByAbsence(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("doomed"))
	contentId := w.ContentId

	// A strictly newer empty document means the peer deleted the widget.
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{},
		LastModified: w.UpdatedAt + 1000,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))

	assert.Equal(t, 0, widgets.Count())
	assert.Equal(t, 0, content.RefCount(contentId), "deleted widget releases its content reference")
}

func TestApplyRemoteKeepsConcurrentLocalEdit(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("contested"))

	// The remote document is newer than our last sync point but the local
	// widget was edited after the document was cut: the edit survives.
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{},
		LastModified: w.UpdatedAt - 1,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))
	assert.Equal(t, 1, widgets.Count())
}

func TestApplyRemoteAdoptedWidgetAcquiresContentReference(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	w1, _ := widgets.AddWidget(ctx, noteInput("shared"))

	// A peer creates its own widget around the same deduplicated content.
	w2 := w1.Clone()
	w2.Id = uuid.New()
	w2.X = 300
	w2.UpdatedAt = w1.UpdatedAt + 1000
	doc, _ := json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{w1, w2},
		LastModified: w2.UpdatedAt,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))
	assert.Equal(t, 2, content.RefCount(w1.ContentId), "adopted widget holds its own reference")

	// The peer deletes its widget again: only its reference is released.
	doc, _ = json.Marshal(BoardDocument{
		Widgets:      []*entity.Widget{w1},
		LastModified: w2.UpdatedAt + 1000,
	})
	assert.NoError(t, widgets.ApplyRemote(doc))

	assert.Equal(t, 1, content.RefCount(w1.ContentId), "w1 still holds its reference")
	assert.NotNil(t, content.GetContent(ctx, w1.ContentId), "live widget's content must survive")
}

func TestApplyRemoteRestoredWidgetRemovalReachesArchive(t *testing.T) {
	archive := newStubArchive()
	content := NewContentStore("board:test:content", archive, nil, logger.NewNop(), DefaultCacheConfig())
	widgets := NewWidgetStore("board:test:widgets", content, nil, logger.NewNop())
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("persisted"))
	snapshot, err := widgets.Snapshot()
	assert.NoError(t, err)
	content.Close()

	// A fresh process rejoins from the persisted snapshot over the same
	// archive.
	restored := NewContentStore("board:test:content", archive, nil, logger.NewNop(), DefaultCacheConfig())
	defer restored.Close()
	rejoined := NewWidgetStore("board:test:widgets", restored, nil, logger.NewNop())
	assert.NoError(t, rejoined.ApplyRemote(snapshot))
	assert.Equal(t, 1, restored.RefCount(w.ContentId))

	rejoined.RemoveWidget(ctx, w.Id)

	loaded, err := archive.Load(ctx, w.ContentId)
	assert.NoError(t, err)
	assert.Nil(t, loaded, "removal after restore cascades to the archive")
}

func TestApplyRemoteRejectsMalformedDocument(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()

	assert.Error(t, widgets.ApplyRemote([]byte("{not json")))
}

func TestContentSnapshotRoundTrip(t *testing.T) {
	_, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	id, _ := content.AddContent(ctx, ContentInput{Type: entity.WidgetNote, Data: map[string]interface{}{"text": "hi"}})

	data, err := content.Snapshot()
	assert.NoError(t, err)

	var doc ContentDocument
	assert.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc.Content, id)
}

func TestContentApplyRemoteMergesByLastModified(t *testing.T) {
	_, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	id, _ := content.AddContent(ctx, ContentInput{Type: entity.WidgetNote, Data: map[string]interface{}{"text": "local"}})
	local := content.GetContent(ctx, id)

	newer := local.Clone()
	newer.Data["text"] = "remote"
	newer.LastModified = local.LastModified + 1000
	doc, _ := json.Marshal(ContentDocument{
		Content:      map[string]*entity.ContentEntry{id: newer},
		LastModified: newer.LastModified,
	})

	assert.NoError(t, content.ApplyRemote(doc))
	assert.Equal(t, "remote", content.GetContent(ctx, id).Data["text"])
}

func TestContentApplyRemoteAbsenceNeverDeletes(t *testing.T) {
	_, content := newTestStores()
	defer content.Close()
	ctx := context.Background()

	id, _ := content.AddContent(ctx, ContentInput{Type: entity.WidgetNote, Data: map[string]interface{}{"text": "keep me"}})

	// A peer's empty working set says nothing about deletion: it may simply
	// have evicted the entry.
	doc, _ := json.Marshal(ContentDocument{
		Content:      map[string]*entity.ContentEntry{},
		LastModified: time.Now().UnixMilli() + 10000,
	})
	assert.NoError(t, content.ApplyRemote(doc))
	assert.NotNil(t, content.GetContent(ctx, id))
}

func TestContentApplyRemoteWritesThroughToArchive(t *testing.T) {
	archive := newStubArchive()
	content := newTestContentStore(archive, DefaultCacheConfig())
	defer content.Close()
	ctx := context.Background()

	remote := &entity.ContentEntry{
		Id:           "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Type:         entity.WidgetNote,
		Data:         map[string]interface{}{"text": "from peer"},
		LastModified: time.Now().UnixMilli(),
		Size:         20,
	}
	doc, _ := json.Marshal(ContentDocument{
		Content:      map[string]*entity.ContentEntry{remote.Id: remote},
		LastModified: remote.LastModified,
	})
	assert.NoError(t, content.ApplyRemote(doc))

	saved, err := archive.Load(ctx, remote.Id)
	assert.NoError(t, err)
	assert.NotNil(t, saved, "merged entries join the durable tier")
	assert.Equal(t, "from peer", saved.Data["text"])
}

func TestContentApplyRemotePinsEntriesUntilArchived(t *testing.T) {
	archive := newStubArchive()
	archive.failSave = true
	cfg := DefaultCacheConfig()
	cfg.MaxItems = 1 // a single entry puts the cache over its soft bound
	content := newTestContentStore(archive, cfg)
	defer content.Close()

	remote := &entity.ContentEntry{
		Id:           "cccccccccccccccccccccccccccccccc",
		Type:         entity.WidgetNote,
		Data:         map[string]interface{}{"text": "only copy"},
		LastModified: time.Now().UnixMilli(),
		Size:         20,
	}
	doc, _ := json.Marshal(ContentDocument{
		Content:      map[string]*entity.ContentEntry{remote.Id: remote},
		LastModified: remote.LastModified,
	})
	assert.NoError(t, content.ApplyRemote(doc))

	assert.Equal(t, 0, content.CleanupCache(), "unarchived merge is pinned against eviction")
	assert.True(t, content.IsCached(remote.Id))
}
