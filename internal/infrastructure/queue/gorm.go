package queue

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
)

// GormQueueManager stores queues in the queue_entries table. Entries
// survive restarts and several processes may consume the same queue:
// Dequeue claims the oldest row with FOR UPDATE SKIP LOCKED and deletes it
// in the same transaction.
type GormQueueManager struct {
	db        *gorm.DB
	listeners *listeners
}

// NewGormQueueManager creates a GormQueueManager
func NewGormQueueManager(db *gorm.DB) *GormQueueManager {
	return &GormQueueManager{db: db, listeners: newListeners()}
}

// Open checks that the queue table is reachable. Queues are implicit rows,
// so nothing is created per name.
func (m *GormQueueManager) Open(ctx context.Context, name string) error {
	if !m.db.WithContext(ctx).Migrator().HasTable(&models.QueueEntryModel{}) {
		return fmt.Errorf("open queue %s: table %s does not exist", name, models.QueueEntryModel{}.TableName())
	}
	return nil
}

func (m *GormQueueManager) Enqueue(ctx context.Context, name string, entry *delivery.Entry) error {
	row, err := models.QueueEntryModelFromDomain(name, entry)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	if err := m.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	m.listeners.notify(name)
	return nil
}

func (m *GormQueueManager) Dequeue(ctx context.Context, name string) (*delivery.Entry, error) {
	var row models.QueueEntryModel
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ?", name).
			Order("seq").
			Take(&row).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.QueueEntryModel{}, row.Seq).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue %s: %w", name, err)
	}
	entry, err := row.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("dequeue %s: decode entry %s: %w", name, row.EntryID, err)
	}
	return entry, nil
}

func (m *GormQueueManager) Subscribe(name string, l delivery.Listener) {
	m.listeners.subscribe(name, l)
}

func (m *GormQueueManager) Unsubscribe(name string, l delivery.Listener) {
	m.listeners.unsubscribe(name, l)
}

// List returns up to limit entries from the head of the queue
func (m *GormQueueManager) List(ctx context.Context, name string, limit int) ([]*delivery.Entry, error) {
	query := m.db.WithContext(ctx).Where("queue = ?", name).Order("seq")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.QueueEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	entries := make([]*delivery.Entry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("list %s: decode entry %s: %w", name, rows[i].EntryID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *GormQueueManager) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	if err := m.db.WithContext(ctx).Model(&models.QueueEntryModel{}).Where("queue = ?", name).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

var (
	_ delivery.QueueManager = (*GormQueueManager)(nil)
	_ delivery.Browser      = (*GormQueueManager)(nil)
)
