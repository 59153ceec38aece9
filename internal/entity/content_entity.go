package entity

// ContentEntry is the heavy, content-addressable payload behind a widget.
// Id is the content hash: stable for identical (type, data) input, which is
// what makes deduplication work.
type ContentEntry struct {
	Id           string                 `json:"id"`
	Type         WidgetType             `json:"type"`
	Data         map[string]interface{} `json:"data"`
	LastModified int64                  `json:"last_modified"` // unix ms
	Size         int                    `json:"size"`          // serialized payload bytes
}

// Clone returns an independent copy with a shallow-copied data map.
func (e *ContentEntry) Clone() *ContentEntry {
	c := *e
	if e.Data != nil {
		c.Data = make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			c.Data[k] = v
		}
	}
	return &c
}
