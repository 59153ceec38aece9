package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/model"
	"pinboard-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ContentArchiveImpl struct {
	db *gorm.DB
}

func NewContentArchive(db *gorm.DB) contract.ContentArchive {
	return &ContentArchiveImpl{db: db}
}

func (r *ContentArchiveImpl) Save(ctx context.Context, e *entity.ContentEntry) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal content data: %w", err)
	}

	m := model.ContentRecord{
		Id:           e.Id,
		Type:         string(e.Type),
		Data:         data,
		LastModified: e.LastModified,
		Size:         e.Size,
	}

	return r.db.WithContext(ctx).Save(&m).Error
}

func (r *ContentArchiveImpl) Load(ctx context.Context, id string) (*entity.ContentEntry, error) {
	var m model.ContentRecord
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(m.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal content data: %w", err)
	}

	return &entity.ContentEntry{
		Id:           m.Id,
		Type:         entity.ParseWidgetType(m.Type),
		Data:         data,
		LastModified: m.LastModified,
		Size:         m.Size,
	}, nil
}

func (r *ContentArchiveImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.ContentRecord{}, "id = ?", id).Error
}
