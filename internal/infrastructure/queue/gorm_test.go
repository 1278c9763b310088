package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
)

func setupQueueDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "queue.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.QueueEntryModel{}))
	return db
}

func TestGormQueueManager(t *testing.T) {
	runManagerContract(t, NewGormQueueManager(setupQueueDB(t)))
}

func TestGormQueueManager_OpenRequiresTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bare.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = NewGormQueueManager(db).Open(context.Background(), "gs1")
	assert.ErrorContains(t, err, "queue_entries")
}

func TestGormQueueManager_SurvivesReopen(t *testing.T) {
	db := setupQueueDB(t)
	ctx := context.Background()

	e := newEntry(t, "DURABLE-1")
	require.NoError(t, NewGormQueueManager(db).Enqueue(ctx, "gs1", e))

	got, err := NewGormQueueManager(db).Dequeue(ctx, "gs1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.WithinDuration(t, e.EnqueuedAt, got.EnqueuedAt, time.Millisecond)
}
