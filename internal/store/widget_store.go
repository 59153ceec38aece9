package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// CreateWidgetInput carries geometry, type, and the initial content payload.
type CreateWidgetInput struct {
	Type     entity.WidgetType
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
	ZIndex   *int
	Locked   bool
	Metadata map[string]interface{}
	Content  map[string]interface{}
}

// WidgetPatch is a shallow merge for UpdateWidget. ContentId is present only
// so the reassignment attempt can be detected and rejected; it is never
// applied.
type WidgetPatch struct {
	X         *float64
	Y         *float64
	Width     *float64
	Height    *float64
	Rotation  *float64
	ZIndex    *int
	Locked    *bool
	Metadata  map[string]interface{}
	ContentId *string
}

// TransformPatch is the narrow high-frequency geometry update used during
// drag/resize. It bypasses the general update path on purpose.
type TransformPatch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
}

// TransformUpdate pairs a widget id with its transform patch for batching.
type TransformUpdate struct {
	Id uuid.UUID
	TransformPatch
}

// WidgetStore owns the lightweight widget records of one board. The
// ContentStore collaborator is required: content is written before the
// widget on create and released on remove, so a successfully created widget
// never references missing content locally.
type WidgetStore struct {
	mu      sync.Mutex
	widgets []*entity.Widget // insertion order, breaks z-index ties
	byId    map[uuid.UUID]*entity.Widget
	lastMod int64

	documentId string
	content    *ContentStore
	notifier   *ChangeNotifier
	logger     logger.ILogger
}

func NewWidgetStore(documentId string, content *ContentStore, notifier *ChangeNotifier, log logger.ILogger) *WidgetStore {
	return &WidgetStore{
		widgets:    make([]*entity.Widget, 0),
		byId:       make(map[uuid.UUID]*entity.Widget),
		documentId: documentId,
		content:    content,
		notifier:   notifier,
		logger:     log,
	}
}

// AddWidget writes content first, widget second. If the content write fails
// the whole operation fails and nothing is persisted.
func (s *WidgetStore) AddWidget(ctx context.Context, in CreateWidgetInput) (*entity.Widget, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("widget dimensions must be positive, got %gx%g", in.Width, in.Height)
	}

	contentId, err := s.content.AddContent(ctx, ContentInput{Type: in.Type, Data: in.Content})
	if err != nil {
		return nil, fmt.Errorf("add content: %w", err)
	}

	now := time.Now().UnixMilli()

	s.mu.Lock()
	zIndex := len(s.widgets) // append to top of stack
	if in.ZIndex != nil {
		zIndex = *in.ZIndex
	}

	w := &entity.Widget{
		Id:        uuid.New(),
		Type:      in.Type,
		X:         in.X,
		Y:         in.Y,
		Width:     in.Width,
		Height:    in.Height,
		Rotation:  in.Rotation,
		ZIndex:    zIndex,
		Locked:    in.Locked,
		Selected:  false,
		ContentId: contentId,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.widgets = append(s.widgets, w)
	s.byId[w.Id] = w
	s.lastMod = now
	out := w.Clone()
	s.mu.Unlock()

	s.notifier.Publish(s.documentId, now)
	return out, nil
}

// UpdateWidget shallow-merges every field except ContentId. A reassignment
// attempt is logged and skipped while the remaining fields still apply.
// Unknown ids are a warned no-op.
func (s *WidgetStore) UpdateWidget(id uuid.UUID, patch WidgetPatch) *entity.Widget {
	if patch.ContentId != nil {
		s.logger.Warn("WidgetStore", "Content reassignment via UpdateWidget is not allowed, field ignored", map[string]interface{}{
			"widget_id": id,
		})
	}

	now := time.Now().UnixMilli()

	s.mu.Lock()
	w, ok := s.byId[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("WidgetStore", "Update ignored for unknown widget id", map[string]interface{}{"widget_id": id})
		return nil
	}

	if patch.X != nil {
		w.X = *patch.X
	}
	if patch.Y != nil {
		w.Y = *patch.Y
	}
	if patch.Width != nil && *patch.Width > 0 {
		w.Width = *patch.Width
	}
	if patch.Height != nil && *patch.Height > 0 {
		w.Height = *patch.Height
	}
	if patch.Rotation != nil {
		w.Rotation = *patch.Rotation
	}
	if patch.ZIndex != nil {
		w.ZIndex = *patch.ZIndex
	}
	if patch.Locked != nil {
		w.Locked = *patch.Locked
	}
	if patch.Metadata != nil {
		if w.Metadata == nil {
			w.Metadata = make(map[string]interface{}, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			w.Metadata[k] = v
		}
	}

	w.UpdatedAt = now
	s.lastMod = now
	out := w.Clone()
	s.mu.Unlock()

	s.notifier.Publish(s.documentId, now)
	return out
}

// RemoveWidget deletes the record and releases its content reference.
// Removing an unknown id is a warned no-op.
func (s *WidgetStore) RemoveWidget(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	w, ok := s.byId[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("WidgetStore", "Remove ignored for unknown widget id", map[string]interface{}{"widget_id": id})
		return
	}

	delete(s.byId, id)
	for i, cur := range s.widgets {
		if cur.Id == id {
			s.widgets = append(s.widgets[:i], s.widgets[i+1:]...)
			break
		}
	}
	now := time.Now().UnixMilli()
	s.lastMod = now
	contentId := w.ContentId
	s.mu.Unlock()

	s.content.RemoveContent(ctx, contentId)
	s.notifier.Publish(s.documentId, now)
}

// UpdateWidgetTransform is the drag/resize fast path: geometry only, no
// general validation, still bumps UpdatedAt.
func (s *WidgetStore) UpdateWidgetTransform(id uuid.UUID, patch TransformPatch) *entity.Widget {
	now := time.Now().UnixMilli()

	s.mu.Lock()
	w, ok := s.byId[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	applyTransform(w, patch, now)
	s.lastMod = now
	out := w.Clone()
	s.mu.Unlock()

	s.notifier.Publish(s.documentId, now)
	return out
}

// UpdateMultipleWidgetTransforms applies all patches as one state
// transition: a single timestamp and a single change notification, so a
// multi-widget drag does not fan out into N downstream syncs. Unknown ids
// are skipped; widgets not referenced are untouched.
func (s *WidgetStore) UpdateMultipleWidgetTransforms(updates []TransformUpdate) int {
	if len(updates) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	applied := 0

	s.mu.Lock()
	for _, u := range updates {
		w, ok := s.byId[u.Id]
		if !ok {
			continue
		}
		applyTransform(w, u.TransformPatch, now)
		applied++
	}
	if applied > 0 {
		s.lastMod = now
	}
	s.mu.Unlock()

	if applied > 0 {
		s.notifier.Publish(s.documentId, now)
	}
	return applied
}

// ReorderWidget is a transform-style update on the paint order alone.
func (s *WidgetStore) ReorderWidget(id uuid.UUID, zIndex int) *entity.Widget {
	now := time.Now().UnixMilli()

	s.mu.Lock()
	w, ok := s.byId[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	w.ZIndex = zIndex
	w.UpdatedAt = now
	s.lastMod = now
	out := w.Clone()
	s.mu.Unlock()

	s.notifier.Publish(s.documentId, now)
	return out
}

func applyTransform(w *entity.Widget, patch TransformPatch, now int64) {
	if patch.X != nil {
		w.X = *patch.X
	}
	if patch.Y != nil {
		w.Y = *patch.Y
	}
	if patch.Width != nil {
		w.Width = *patch.Width
	}
	if patch.Height != nil {
		w.Height = *patch.Height
	}
	if patch.Rotation != nil {
		w.Rotation = *patch.Rotation
	}
	w.UpdatedAt = now
}

// Selection is per-device UI state: it mutates no timestamps and publishes
// no change notifications, and Snapshot never includes it.

func (s *WidgetStore) SelectWidget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.byId[id]; ok {
		w.Selected = true
	}
}

// SelectWidgets replaces the current selection with the given set.
func (s *WidgetStore) SelectWidgets(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.widgets {
		w.Selected = false
	}
	for _, id := range ids {
		if w, ok := s.byId[id]; ok {
			w.Selected = true
		}
	}
}

func (s *WidgetStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.widgets {
		w.Selected = false
	}
}

func (s *WidgetStore) GetSelectedWidgets() []*entity.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Widget, 0)
	for _, w := range s.widgets {
		if w.Selected {
			out = append(out, w.Clone())
		}
	}
	return out
}

// GetWidget returns a snapshot or nil if the id is unknown.
func (s *WidgetStore) GetWidget(id uuid.UUID) *entity.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.byId[id]; ok {
		return w.Clone()
	}
	return nil
}

// GetWidgets returns snapshots in insertion order.
func (s *WidgetStore) GetWidgets() []*entity.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Widget, len(s.widgets))
	for i, w := range s.widgets {
		out[i] = w.Clone()
	}
	return out
}

func (s *WidgetStore) GetWidgetsByType(t entity.WidgetType) []*entity.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Widget, 0)
	for _, w := range s.widgets {
		if w.Type == t {
			out = append(out, w.Clone())
		}
	}
	return out
}

func (s *WidgetStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// AddMultipleWidgets applies AddWidget sequentially; items fail
// independently and successes stay persisted.
func (s *WidgetStore) AddMultipleWidgets(ctx context.Context, inputs []CreateWidgetInput) ([]*entity.Widget, error) {
	out := make([]*entity.Widget, 0, len(inputs))
	var errs []error
	for i, in := range inputs {
		w, err := s.AddWidget(ctx, in)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		out = append(out, w)
	}
	return out, errors.Join(errs...)
}

// RemoveMultipleWidgets removes each widget in turn, releasing every
// widget's content reference individually.
func (s *WidgetStore) RemoveMultipleWidgets(ctx context.Context, ids []uuid.UUID) {
	for _, id := range ids {
		s.RemoveWidget(ctx, id)
	}
}
