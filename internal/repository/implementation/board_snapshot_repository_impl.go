package implementation

import (
	"context"
	"errors"

	"pinboard-be/internal/model"
	"pinboard-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardSnapshotRepositoryImpl struct {
	db *gorm.DB
}

func NewBoardSnapshotRepository(db *gorm.DB) contract.BoardSnapshotRepository {
	return &BoardSnapshotRepositoryImpl{db: db}
}

func (r *BoardSnapshotRepositoryImpl) Save(ctx context.Context, boardId uuid.UUID, documentId string, payload []byte, lastModified int64) error {
	m := model.BoardSnapshot{
		BoardId:      boardId.String(),
		DocumentId:   documentId,
		Payload:      payload,
		LastModified: lastModified,
	}
	return r.db.WithContext(ctx).Save(&m).Error
}

func (r *BoardSnapshotRepositoryImpl) Load(ctx context.Context, boardId uuid.UUID, documentId string) ([]byte, error) {
	var m model.BoardSnapshot
	err := r.db.WithContext(ctx).
		First(&m, "board_id = ? AND document_id = ?", boardId.String(), documentId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.Payload, nil
}
