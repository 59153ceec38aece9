package entity

import (
	"github.com/google/uuid"
)

// WidgetType is the closed set of board widget discriminators.
type WidgetType string

const (
	WidgetNote     WidgetType = "note"
	WidgetTodo     WidgetType = "todo"
	WidgetImage    WidgetType = "image"
	WidgetDocument WidgetType = "document"
	WidgetURL      WidgetType = "url"
	WidgetChat     WidgetType = "chat"
	WidgetApp      WidgetType = "app"
	WidgetGroup    WidgetType = "group"
	WidgetUnknown  WidgetType = "unknown"
)

// ParseWidgetType maps a raw discriminator string onto the closed set.
// Anything outside the set degrades to WidgetUnknown rather than failing,
// so boards produced by newer clients still load.
func ParseWidgetType(s string) WidgetType {
	switch WidgetType(s) {
	case WidgetNote, WidgetTodo, WidgetImage, WidgetDocument,
		WidgetURL, WidgetChat, WidgetApp, WidgetGroup:
		return WidgetType(s)
	default:
		return WidgetUnknown
	}
}

// Widget is the lightweight, frequently-mutated board record. The heavy
// payload lives in the content table and is referenced by ContentId.
// Selected is per-device UI state and is never included in sync snapshots.
type Widget struct {
	Id        uuid.UUID              `json:"id"`
	Type      WidgetType             `json:"type"`
	X         float64                `json:"x"`
	Y         float64                `json:"y"`
	Width     float64                `json:"width"`
	Height    float64                `json:"height"`
	Rotation  float64                `json:"rotation"` // degrees
	ZIndex    int                    `json:"z_index"`
	Locked    bool                   `json:"locked"`
	Selected  bool                   `json:"-"`
	ContentId string                 `json:"content_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt int64                  `json:"created_at"` // unix ms
	UpdatedAt int64                  `json:"updated_at"` // unix ms
}

// Clone returns an independent copy. Callers of the store receive clones
// and must treat them as immutable snapshots.
func (w *Widget) Clone() *Widget {
	c := *w
	if w.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
