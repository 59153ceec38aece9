package dto

import (
	"github.com/google/uuid"
)

type CreateWidgetRequest struct {
	Type     string                 `json:"type" validate:"required"`
	X        float64                `json:"x"`
	Y        float64                `json:"y"`
	Width    float64                `json:"width" validate:"required,gt=0"`
	Height   float64                `json:"height" validate:"required,gt=0"`
	Rotation float64                `json:"rotation"`
	ZIndex   *int                   `json:"z_index,omitempty"`
	Locked   bool                   `json:"locked"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Content  map[string]interface{} `json:"content" validate:"required"`
}

type CreateWidgetResponse struct {
	Id        uuid.UUID `json:"id"`
	ContentId string    `json:"content_id"`
}

type UpdateWidgetRequest struct {
	Id        uuid.UUID              `json:"-"`
	X         *float64               `json:"x,omitempty"`
	Y         *float64               `json:"y,omitempty"`
	Width     *float64               `json:"width,omitempty"`
	Height    *float64               `json:"height,omitempty"`
	Rotation  *float64               `json:"rotation,omitempty"`
	ZIndex    *int                   `json:"z_index,omitempty"`
	Locked    *bool                  `json:"locked,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ContentId *string                `json:"content_id,omitempty"` // rejected, never applied
}

type TransformRequest struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

type BatchTransformItem struct {
	Id uuid.UUID `json:"id" validate:"required"`
	TransformRequest
}

type BatchTransformRequest struct {
	Updates []BatchTransformItem `json:"updates" validate:"required,min=1,dive"`
}

type BatchTransformResponse struct {
	Applied int `json:"applied"`
}

type ReorderWidgetRequest struct {
	ZIndex int `json:"z_index"`
}
