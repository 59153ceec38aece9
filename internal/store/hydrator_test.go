package store

import (
	"context"
	"testing"
	"time"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestHydrator(content *ContentStore, cfg HydratorConfig) *Hydrator {
	return NewHydrator(content, logger.NewNop(), cfg)
}

func TestHydrateWidgetLoadsContent(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("hello"))

	hw := h.HydrateWidget(ctx, widgets.GetWidget(w.Id))
	assert.True(t, hw.IsContentLoaded)
	assert.Equal(t, ContentStatusLoaded, hw.Status())
	assert.Equal(t, "hello", hw.Content.Data["text"])
	assert.Empty(t, hw.ContentError)
}

func TestHydrateWidgetCachesComposition(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("cached"))
	g := widgets.GetWidget(w.Id)

	h.HydrateWidget(ctx, g)
	h.HydrateWidget(ctx, g)

	stats := h.Monitor().Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestHydrationCacheInvalidatesOnWidgetUpdate(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("v1"))
	h.HydrateWidget(ctx, widgets.GetWidget(w.Id))

	// Bumping UpdatedAt changes the cache key, so the stale composition is
	// never served.
	x := 1.0
	updated := widgets.UpdateWidget(w.Id, WidgetPatch{X: &x})
	if updated.UpdatedAt == w.UpdatedAt {
		updated.UpdatedAt++
	}
	h.HydrateWidget(ctx, updated)

	stats := h.Monitor().Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
}

func TestHydrateWidgetsDedupesSharedContent(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())
	ctx := context.Background()

	w1, _ := widgets.AddWidget(ctx, noteInput("shared"))
	w2, _ := widgets.AddWidget(ctx, noteInput("shared"))
	assert.Equal(t, w1.ContentId, w2.ContentId)

	out := h.HydrateWidgets(ctx, widgets.GetWidgets())
	assert.Len(t, out, 2)
	for _, hw := range out {
		assert.True(t, hw.IsContentLoaded)
		assert.Equal(t, "shared", hw.Content.Data["text"])
	}
}

func TestHydrateWidgetsAlignsWithInput(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())
	ctx := context.Background()

	w1, _ := widgets.AddWidget(ctx, noteInput("a"))
	w2, _ := widgets.AddWidget(ctx, noteInput("b"))

	out := h.HydrateWidgets(ctx, []*entity.Widget{widgets.GetWidget(w2.Id), widgets.GetWidget(w1.Id)})
	assert.Len(t, out, 2)
	assert.Equal(t, w2.Id, out[0].Id)
	assert.Equal(t, w1.Id, out[1].Id)
}

func TestDanglingReferenceStartsPending(t *testing.T) {
	_, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, DefaultHydratorConfig())

	w := &entity.Widget{
		Type:      entity.WidgetNote,
		ContentId: "ffffffffffffffffffffffffffffffff",
	}

	hw := h.HydrateWidget(context.Background(), w)
	assert.False(t, hw.IsContentLoaded)
	assert.Empty(t, hw.ContentError, "a fresh miss is still syncing, not failed")
	assert.Equal(t, ContentStatusPending, hw.Status())
}

func TestDanglingReferenceFailsAfterRetryWindow(t *testing.T) {
	_, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, HydratorConfig{
		CacheTTL:    5 * time.Second,
		RetryWindow: 30 * time.Millisecond,
	})
	ctx := context.Background()

	w := &entity.Widget{
		Type:      entity.WidgetNote,
		ContentId: "ffffffffffffffffffffffffffffffff",
	}

	first := h.HydrateWidget(ctx, w)
	assert.Equal(t, ContentStatusPending, first.Status())

	time.Sleep(50 * time.Millisecond)

	// New cache key, same unresolved content id: the window has passed.
	w2 := w.Clone()
	w2.UpdatedAt = w.UpdatedAt + 1
	second := h.HydrateWidget(ctx, w2)
	assert.Equal(t, ContentStatusFailed, second.Status())
	assert.Equal(t, "Content not found: ffffffffffffffffffffffffffffffff", second.ContentError)
	assert.Equal(t, uint64(1), h.Monitor().Stats().Failures)
}

func TestMissTrackingResetsOnResolution(t *testing.T) {
	widgets, content := newTestStores()
	defer content.Close()
	h := newTestHydrator(content, HydratorConfig{
		CacheTTL:    5 * time.Second,
		RetryWindow: 30 * time.Millisecond,
	})
	ctx := context.Background()

	w, _ := widgets.AddWidget(ctx, noteInput("late arrival"))
	contentId := w.ContentId

	// Simulate the content arriving after the widget: drop and re-add.
	ghost := w.Clone()
	ghost.ContentId = contentId
	widgets.RemoveWidget(ctx, w.Id)

	pending := h.HydrateWidget(ctx, ghost)
	assert.Equal(t, ContentStatusPending, pending.Status())

	_, err := content.AddContent(ctx, ContentInput{Type: entity.WidgetNote, Data: map[string]interface{}{"text": "late arrival"}})
	assert.NoError(t, err)

	ghost2 := ghost.Clone()
	ghost2.UpdatedAt = ghost.UpdatedAt + 1
	resolved := h.HydrateWidget(ctx, ghost2)
	assert.Equal(t, ContentStatusLoaded, resolved.Status())
}

func TestFilterWidgetsByContentStatus(t *testing.T) {
	loaded := &HydratedWidget{Widget: &entity.Widget{}, IsContentLoaded: true}
	pending := &HydratedWidget{Widget: &entity.Widget{}}
	failed := &HydratedWidget{Widget: &entity.Widget{}, ContentError: "Content not found: x"}

	all := []*HydratedWidget{failed, loaded, pending}

	assert.Equal(t, []*HydratedWidget{loaded}, FilterWidgetsByContentStatus(all, ContentStatusLoaded))
	assert.Equal(t, []*HydratedWidget{pending}, FilterWidgetsByContentStatus(all, ContentStatusPending))
	assert.Equal(t, []*HydratedWidget{failed}, FilterWidgetsByContentStatus(all, ContentStatusFailed))
}

func TestSortWidgetsByContentPriority(t *testing.T) {
	loaded := &HydratedWidget{Widget: &entity.Widget{}, IsContentLoaded: true}
	pending := &HydratedWidget{Widget: &entity.Widget{}}
	failed := &HydratedWidget{Widget: &entity.Widget{}, ContentError: "Content not found: x"}

	out := SortWidgetsByContentPriority([]*HydratedWidget{failed, pending, loaded})

	assert.Equal(t, ContentStatusLoaded, out[0].Status())
	assert.Equal(t, ContentStatusPending, out[1].Status())
	assert.Equal(t, ContentStatusFailed, out[2].Status())
}

func TestIsWidgetContentLoaded(t *testing.T) {
	assert.False(t, IsWidgetContentLoaded(nil))
	assert.False(t, IsWidgetContentLoaded(&HydratedWidget{Widget: &entity.Widget{}}))
	assert.True(t, IsWidgetContentLoaded(&HydratedWidget{Widget: &entity.Widget{}, IsContentLoaded: true}))
}
