package memory

import (
	"context"
	"testing"

	"pinboard-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestContentArchiveRoundTrip(t *testing.T) {
	a := NewContentArchive()
	ctx := context.Background()

	entry := &entity.ContentEntry{
		Id:           "abc123",
		Type:         entity.WidgetNote,
		Data:         map[string]interface{}{"text": "hello"},
		LastModified: 1000,
		Size:         16,
	}

	assert.NoError(t, a.Save(ctx, entry))

	loaded, err := a.Load(ctx, "abc123")
	assert.NoError(t, err)
	assert.Equal(t, "hello", loaded.Data["text"])
	assert.Equal(t, entity.WidgetNote, loaded.Type)
}

func TestContentArchiveLoadUnknownIsNil(t *testing.T) {
	a := NewContentArchive()

	loaded, err := a.Load(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestContentArchiveDelete(t *testing.T) {
	a := NewContentArchive()
	ctx := context.Background()

	entry := &entity.ContentEntry{Id: "gone", Type: entity.WidgetNote, Data: map[string]interface{}{}}
	assert.NoError(t, a.Save(ctx, entry))
	assert.NoError(t, a.Delete(ctx, "gone"))

	loaded, err := a.Load(ctx, "gone")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestContentArchiveReturnsCopies(t *testing.T) {
	a := NewContentArchive()
	ctx := context.Background()

	entry := &entity.ContentEntry{Id: "x", Type: entity.WidgetNote, Data: map[string]interface{}{"text": "original"}}
	assert.NoError(t, a.Save(ctx, entry))

	first, _ := a.Load(ctx, "x")
	first.Data["text"] = "mutated"

	second, _ := a.Load(ctx, "x")
	assert.Equal(t, "original", second.Data["text"])
}
