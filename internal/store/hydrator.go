package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

// ContentStatus classifies a hydrated widget for rendering decisions.
type ContentStatus string

const (
	ContentStatusLoaded  ContentStatus = "loaded"
	ContentStatusPending ContentStatus = "pending"
	ContentStatusFailed  ContentStatus = "failed"
)

// HydratedWidget is the read-side join of a widget and its content. A nil
// Content with an empty ContentError means the content has not arrived yet
// (still syncing, retry); a non-empty ContentError means the retry window
// has passed.
type HydratedWidget struct {
	*entity.Widget
	Content         *entity.ContentEntry `json:"content,omitempty"`
	IsContentLoaded bool                 `json:"is_content_loaded"`
	ContentError    string               `json:"content_error,omitempty"`
}

// Status derives the render classification from the loaded/error fields.
func (h *HydratedWidget) Status() ContentStatus {
	switch {
	case h.IsContentLoaded:
		return ContentStatusLoaded
	case h.ContentError != "":
		return ContentStatusFailed
	default:
		return ContentStatusPending
	}
}

// HydratorConfig bounds composition staleness and the dangling-reference
// retry window.
type HydratorConfig struct {
	CacheTTL    time.Duration
	RetryWindow time.Duration
}

func DefaultHydratorConfig() HydratorConfig {
	return HydratorConfig{
		CacheTTL:    5 * time.Second,
		RetryWindow: 30 * time.Second,
	}
}

// Hydrator joins widgets with their content and keeps a short-lived
// composition cache. Cache keys incorporate the widget's UpdatedAt and its
// ContentId so a stale composition is never served after either side
// changes; the TTL additionally bounds staleness from out-of-band content
// mutation.
type Hydrator struct {
	content *ContentStore
	cache   *gocache.Cache
	monitor *PerformanceMonitor
	cfg     HydratorConfig
	logger  logger.ILogger

	mu        sync.Mutex
	missSince map[string]time.Time // first unresolved lookup per content id
}

func NewHydrator(content *ContentStore, log logger.ILogger, cfg HydratorConfig) *Hydrator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultHydratorConfig().CacheTTL
	}
	if cfg.RetryWindow <= 0 {
		cfg.RetryWindow = DefaultHydratorConfig().RetryWindow
	}
	return &Hydrator{
		content:   content,
		cache:     gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		monitor:   NewPerformanceMonitor(),
		cfg:       cfg,
		logger:    log,
		missSince: make(map[string]time.Time),
	}
}

func (h *Hydrator) Monitor() *PerformanceMonitor {
	return h.monitor
}

func cacheKey(w *entity.Widget) string {
	return fmt.Sprintf("%s:%d:%s", w.Id, w.UpdatedAt, w.ContentId)
}

// HydrateWidget produces the combined view for one widget.
func (h *Hydrator) HydrateWidget(ctx context.Context, w *entity.Widget) *HydratedWidget {
	start := time.Now()
	defer func() { h.monitor.RecordComposition(time.Since(start)) }()

	key := cacheKey(w)
	if v, ok := h.cache.Get(key); ok {
		h.monitor.RecordHit()
		return v.(*HydratedWidget)
	}
	h.monitor.RecordMiss()

	hw := h.compose(w, h.content.GetContent(ctx, w.ContentId))
	h.cache.Set(key, hw, gocache.DefaultExpiration)
	return hw
}

// HydrateWidgets batches the content lookups: the contentId list is deduped
// before querying, so many widgets sharing one entry cost one lookup.
func (h *Hydrator) HydrateWidgets(ctx context.Context, widgets []*entity.Widget) []*HydratedWidget {
	start := time.Now()
	defer func() { h.monitor.RecordComposition(time.Since(start)) }()

	out := make([]*HydratedWidget, len(widgets))
	need := make([]string, 0, len(widgets))
	seen := make(map[string]bool, len(widgets))

	for i, w := range widgets {
		if v, ok := h.cache.Get(cacheKey(w)); ok {
			h.monitor.RecordHit()
			out[i] = v.(*HydratedWidget)
			continue
		}
		h.monitor.RecordMiss()
		if !seen[w.ContentId] {
			seen[w.ContentId] = true
			need = append(need, w.ContentId)
		}
	}

	if len(need) > 0 {
		entries := h.content.GetMultipleContent(ctx, need)
		byId := make(map[string]*entity.ContentEntry, len(need))
		for i, id := range need {
			byId[id] = entries[i]
		}
		for i, w := range widgets {
			if out[i] != nil {
				continue
			}
			hw := h.compose(w, byId[w.ContentId])
			h.cache.Set(cacheKey(w), hw, gocache.DefaultExpiration)
			out[i] = hw
		}
	}

	return out
}

// compose builds the hydrated record and tracks the dangling-reference
// retry window: a miss starts pending and only degrades to failed once the
// content has stayed unresolved past the window.
func (h *Hydrator) compose(w *entity.Widget, content *entity.ContentEntry) *HydratedWidget {
	hw := &HydratedWidget{
		Widget:  w.Clone(),
		Content: content,
	}

	if content != nil {
		hw.IsContentLoaded = true
		h.mu.Lock()
		delete(h.missSince, w.ContentId)
		h.mu.Unlock()
		return hw
	}

	h.mu.Lock()
	first, ok := h.missSince[w.ContentId]
	if !ok {
		first = time.Now()
		h.missSince[w.ContentId] = first
	}
	h.mu.Unlock()

	if time.Since(first) > h.cfg.RetryWindow {
		hw.ContentError = fmt.Sprintf("Content not found: %s", w.ContentId)
		h.monitor.RecordFailure()
		h.logger.Warn("Hydrator", "Content still unresolved after retry window", map[string]interface{}{
			"widget_id":  w.Id,
			"content_id": w.ContentId,
		})
	}

	return hw
}

// IsWidgetContentLoaded reports whether the hydrated widget carries content.
func IsWidgetContentLoaded(hw *HydratedWidget) bool {
	return hw != nil && hw.IsContentLoaded
}

// FilterWidgetsByContentStatus keeps widgets in the given status, preserving
// order.
func FilterWidgetsByContentStatus(widgets []*HydratedWidget, status ContentStatus) []*HydratedWidget {
	out := make([]*HydratedWidget, 0)
	for _, hw := range widgets {
		if hw.Status() == status {
			out = append(out, hw)
		}
	}
	return out
}

// SortWidgetsByContentPriority orders loaded first, pending middle, failed
// last; the order is otherwise stable.
func SortWidgetsByContentPriority(widgets []*HydratedWidget) []*HydratedWidget {
	rank := func(s ContentStatus) int {
		switch s {
		case ContentStatusLoaded:
			return 0
		case ContentStatusPending:
			return 1
		default:
			return 2
		}
	}

	out := make([]*HydratedWidget, len(widgets))
	copy(out, widgets)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Status()) < rank(out[j].Status())
	})
	return out
}
