package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

// newMockDatabase creates a Database over a mocked PostgreSQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	db, err := Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), nil, nil)
	require.NoError(t, err)
	return db, mock, mockDB
}

func TestOpen_SQLite(t *testing.T) {
	db := setupTestDB(t)
	assert.Equal(t, "sqlite", db.Driver)

	require.NoError(t, db.Ping(context.Background()))
	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)

	for _, table := range []string{"authorities", "places", "materials", "acts", "act_identifiers", "queue_entries"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
	assert.True(t, db.DB.Migrator().HasIndex("act_identifiers", "idx_act_identifiers_authority_value"))
}

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     t.TempDir() + "/gs1.db",
		LogLevel: "warn",
	}
	db, err := NewDatabase(cfg, nil)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.AutoMigrate())
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()
		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping failure", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		assert.Error(t, db.Ping(context.Background()))
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormActRepository_StoreFailures(t *testing.T) {
	t.Run("query error is a persistence error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "acts"`).WillReturnError(errors.New("server closed the connection"))

		_, err := NewGormActRepository(db.DB, nil).FindByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrPersistence)
		assert.NotErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("failed begin publishes nothing", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		pub := &recordingPublisher{}
		repo := NewGormActRepository(db.DB, nil)
		repo.SetEventPublisher(pub)

		a := act.New(act.MoodRequest, act.StatusActive, time.Now())
		err := repo.Insert(context.Background(), a)
		assert.ErrorIs(t, err, shared.ErrPersistence)
		assert.Equal(t, 0, a.Version)
		assert.Empty(t, pub.all())
	})
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, shared.ErrDuplicateIdentifier},
		{"domain error passes through", shared.ErrConcurrencyConflict.WithTarget("x"), shared.ErrConcurrencyConflict},
		{"anything else", errors.New("disk full"), shared.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.err), tt.want)
		})
	}
	assert.NoError(t, translateError(nil))
}
