package queue

import (
	"context"
	"sync"

	"github.com/erp/gs1bridge/internal/domain/delivery"
)

// MemoryQueueManager keeps queues in process memory. Entries are lost on
// restart; it serves tests and single-process development.
type MemoryQueueManager struct {
	mu        sync.Mutex
	queues    map[string][]*delivery.Entry
	listeners *listeners
}

// NewMemoryQueueManager creates an empty MemoryQueueManager
func NewMemoryQueueManager() *MemoryQueueManager {
	return &MemoryQueueManager{
		queues:    make(map[string][]*delivery.Entry),
		listeners: newListeners(),
	}
}

func (m *MemoryQueueManager) Open(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; !ok {
		m.queues[name] = nil
	}
	return nil
}

func (m *MemoryQueueManager) Enqueue(ctx context.Context, name string, entry *delivery.Entry) error {
	stored := delivery.CloneForQueue(entry, name)
	stored.EnqueuedAt = entry.EnqueuedAt

	m.mu.Lock()
	m.queues[name] = append(m.queues[name], stored)
	m.mu.Unlock()

	m.listeners.notify(name)
	return nil
}

func (m *MemoryQueueManager) Dequeue(ctx context.Context, name string) (*delivery.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[name]
	if len(q) == 0 {
		return nil, nil
	}
	head := q[0]
	q[0] = nil
	m.queues[name] = q[1:]
	return head, nil
}

func (m *MemoryQueueManager) Subscribe(name string, l delivery.Listener) {
	m.listeners.subscribe(name, l)
}

func (m *MemoryQueueManager) Unsubscribe(name string, l delivery.Listener) {
	m.listeners.unsubscribe(name, l)
}

// List returns up to limit entries from the head of the queue
func (m *MemoryQueueManager) List(ctx context.Context, name string, limit int) ([]*delivery.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[name]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	out := make([]*delivery.Entry, 0, len(q))
	for _, e := range q {
		c := delivery.CloneForQueue(e, name)
		c.EnqueuedAt = e.EnqueuedAt
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryQueueManager) Count(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queues[name])), nil
}

var (
	_ delivery.QueueManager = (*MemoryQueueManager)(nil)
	_ delivery.Browser      = (*MemoryQueueManager)(nil)
)
