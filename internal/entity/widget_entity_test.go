package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWidgetType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want WidgetType
	}{
		{name: "note", in: "note", want: WidgetNote},
		{name: "todo", in: "todo", want: WidgetTodo},
		{name: "image", in: "image", want: WidgetImage},
		{name: "document", in: "document", want: WidgetDocument},
		{name: "url", in: "url", want: WidgetURL},
		{name: "chat", in: "chat", want: WidgetChat},
		{name: "app", in: "app", want: WidgetApp},
		{name: "group", in: "group", want: WidgetGroup},
		{name: "unrecognized degrades", in: "hologram", want: WidgetUnknown},
		{name: "empty degrades", in: "", want: WidgetUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWidgetType(tt.in))
		})
	}
}

func TestWidgetCloneIsIndependent(t *testing.T) {
	w := &Widget{
		Type:     WidgetNote,
		Metadata: map[string]interface{}{"k": "v"},
	}

	c := w.Clone()
	c.X = 999
	c.Metadata["k"] = "mutated"

	assert.Equal(t, 0.0, w.X)
	assert.Equal(t, "v", w.Metadata["k"])
}

func TestContentEntryCloneIsIndependent(t *testing.T) {
	e := &ContentEntry{
		Id:   "abc",
		Type: WidgetNote,
		Data: map[string]interface{}{"text": "hi"},
	}

	c := e.Clone()
	c.Data["text"] = "mutated"

	assert.Equal(t, "hi", e.Data["text"])
}
