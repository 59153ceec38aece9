package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"pinboard-be/internal/entity"
	"pinboard-be/internal/model"
	"pinboard-be/internal/repository/implementation"
	"pinboard-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormContentArchive(t *testing.T) {
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	assert.NoError(t, gormDB.AutoMigrate(&model.ContentRecord{}, &model.BoardSnapshot{}))

	ctx := context.Background()
	archive := implementation.NewContentArchive(gormDB)

	entry := &entity.ContentEntry{
		Id:           "integrationtest0000000000000abc1",
		Type:         entity.WidgetNote,
		Data:         map[string]interface{}{"text": "durable"},
		LastModified: 1234,
		Size:         18,
	}

	t.Run("Save and Load", func(t *testing.T) {
		assert.NoError(t, archive.Save(ctx, entry))

		loaded, err := archive.Load(ctx, entry.Id)
		assert.NoError(t, err)
		assert.NotNil(t, loaded)
		assert.Equal(t, "durable", loaded.Data["text"])
		assert.Equal(t, entity.WidgetNote, loaded.Type)
	})

	t.Run("Upsert on same id", func(t *testing.T) {
		entry.Data["text"] = "updated"
		entry.LastModified = 5678
		assert.NoError(t, archive.Save(ctx, entry))

		loaded, err := archive.Load(ctx, entry.Id)
		assert.NoError(t, err)
		assert.Equal(t, "updated", loaded.Data["text"])
		assert.Equal(t, int64(5678), loaded.LastModified)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.NoError(t, archive.Delete(ctx, entry.Id))

		loaded, err := archive.Load(ctx, entry.Id)
		assert.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestGormBoardSnapshots(t *testing.T) {
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	assert.NoError(t, gormDB.AutoMigrate(&model.BoardSnapshot{}))

	ctx := context.Background()
	repo := implementation.NewBoardSnapshotRepository(gormDB)
	boardId := uuid.New()
	documentId := "board:" + boardId.String() + ":widgets"

	t.Run("Load before save is nil", func(t *testing.T) {
		payload, err := repo.Load(ctx, boardId, documentId)
		assert.NoError(t, err)
		assert.Nil(t, payload)
	})

	t.Run("Save and reload", func(t *testing.T) {
		doc := []byte(`{"widgets":[],"last_modified":1234}`)
		assert.NoError(t, repo.Save(ctx, boardId, documentId, doc, 1234))

		payload, err := repo.Load(ctx, boardId, documentId)
		assert.NoError(t, err)
		assert.JSONEq(t, string(doc), string(payload))
	})

	t.Run("Save overwrites previous snapshot", func(t *testing.T) {
		doc := []byte(`{"widgets":[],"last_modified":9999}`)
		assert.NoError(t, repo.Save(ctx, boardId, documentId, doc, 9999))

		payload, err := repo.Load(ctx, boardId, documentId)
		assert.NoError(t, err)
		assert.JSONEq(t, string(doc), string(payload))
	})
}
