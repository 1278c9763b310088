package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
)

// QueueEntryModel is a row of a database-backed queue. Seq orders entries
// within a queue.
type QueueEntryModel struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement;index:idx_queue_entries_queue_seq,priority:2"`
	EntryID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Queue       string    `gorm:"type:varchar(200);not null;index:idx_queue_entries_queue_seq,priority:1"`
	Kind        gs1.Kind  `gorm:"type:varchar(50);not null"`
	Body        []byte    `gorm:"not null"`
	HeadersJSON string    `gorm:"column:headers;type:text"`
	LastError   string    `gorm:"type:text"`
	EnqueuedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QueueEntryModel) TableName() string {
	return "queue_entries"
}

// ToDomain converts the row to a queue entry
func (m *QueueEntryModel) ToDomain() (*delivery.Entry, error) {
	e := &delivery.Entry{
		ID:         m.EntryID,
		Queue:      m.Queue,
		Kind:       m.Kind,
		Body:       m.Body,
		EnqueuedAt: m.EnqueuedAt,
		LastError:  m.LastError,
	}
	if m.HeadersJSON != "" {
		if err := json.Unmarshal([]byte(m.HeadersJSON), &e.Headers); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// QueueEntryModelFromDomain creates a row for entry on queue
func QueueEntryModelFromDomain(queue string, e *delivery.Entry) (*QueueEntryModel, error) {
	m := &QueueEntryModel{
		EntryID:    e.ID,
		Queue:      queue,
		Kind:       e.Kind,
		Body:       e.Body,
		LastError:  e.LastError,
		EnqueuedAt: e.EnqueuedAt,
	}
	if len(e.Headers) > 0 {
		headers, err := json.Marshal(e.Headers)
		if err != nil {
			return nil, err
		}
		m.HeadersJSON = string(headers)
	}
	return m, nil
}
