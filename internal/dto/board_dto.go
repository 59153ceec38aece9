package dto

import (
	"pinboard-be/internal/store"
)

type BoardResponse struct {
	Widgets      []*store.HydratedWidget `json:"widgets"`
	LastModified int64                   `json:"last_modified"`
}

type BoardMetricsResponse struct {
	Hydration store.MonitorStats `json:"hydration"`
	Content   store.ContentStats `json:"content"`
	Widgets   int                `json:"widgets"`
}

type UpdateContentRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}
