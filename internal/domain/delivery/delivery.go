// Package delivery defines the ports of the outbound delivery pipeline:
// named message queues, the partner transport and the message archive.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/gs1"
)

// DeadLetterSuffix is appended to a queue name to form its dead-letter queue
const DeadLetterSuffix = ".dead"

// DeadLetterQueue returns the dead-letter queue name for queue
func DeadLetterQueue(queue string) string {
	return queue + DeadLetterSuffix
}

// Entry is an opaque queued message envelope
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	Queue      string            `json:"queue"`
	Kind       gs1.Kind          `json:"kind"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	// LastError is set when the entry was dead-lettered
	LastError string `json:"last_error,omitempty"`
}

// Listener is notified when a subscribed queue may have entries available
type Listener interface {
	QueueReady(queue string)
}

// QueueManager owns named durable queues
type QueueManager interface {
	// Open makes sure the named queue exists
	Open(ctx context.Context, name string) error
	Enqueue(ctx context.Context, name string, entry *Entry) error
	// Dequeue removes and returns the oldest entry, or nil when the queue is empty
	Dequeue(ctx context.Context, name string) (*Entry, error)
	Subscribe(name string, l Listener)
	Unsubscribe(name string, l Listener)
}

// Browser is implemented by queue managers that can list entries without
// removing them
type Browser interface {
	List(ctx context.Context, name string, limit int) ([]*Entry, error)
	Count(ctx context.Context, name string) (int64, error)
}

// Transport sends a message to the trading partner broker
type Transport interface {
	Send(ctx context.Context, msg gs1.Message) error
}

// Direction of an archived message
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Record is an archived message body
type Record struct {
	ID        string
	Kind      gs1.Kind
	Direction Direction
	Body      []byte
	Status    string
	At        time.Time
}

// Archive stores raw message bodies for audit
type Archive interface {
	Store(ctx context.Context, rec Record) error
}
