package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/erp/gs1bridge/internal/domain/delivery"
)

// DefaultRedisKeyPrefix namespaces queue keys
const DefaultRedisKeyPrefix = "gs1bridge:queue:"

// RedisQueueManager keeps one Redis list per queue. Entries are pushed to
// the tail with RPUSH and taken from the head with LPOP, encoded as JSON.
type RedisQueueManager struct {
	client    redis.UniversalClient
	keyPrefix string
	listeners *listeners
}

// NewRedisQueueManager creates a RedisQueueManager over client
func NewRedisQueueManager(client redis.UniversalClient, keyPrefix string) *RedisQueueManager {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisQueueManager{client: client, keyPrefix: keyPrefix, listeners: newListeners()}
}

func (m *RedisQueueManager) key(name string) string {
	return m.keyPrefix + name
}

// Open records the queue name in the registry set. Lists themselves are
// created by the first push.
func (m *RedisQueueManager) Open(ctx context.Context, name string) error {
	if err := m.client.SAdd(ctx, m.keyPrefix+"names", name).Err(); err != nil {
		return fmt.Errorf("open queue %s: %w", name, err)
	}
	return nil
}

func (m *RedisQueueManager) Enqueue(ctx context.Context, name string, entry *delivery.Entry) error {
	stored := *entry
	stored.Queue = name
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	if err := m.client.RPush(ctx, m.key(name), data).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	m.listeners.notify(name)
	return nil
}

func (m *RedisQueueManager) Dequeue(ctx context.Context, name string) (*delivery.Entry, error) {
	data, err := m.client.LPop(ctx, m.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue %s: %w", name, err)
	}
	var entry delivery.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("dequeue %s: decode entry: %w", name, err)
	}
	return &entry, nil
}

func (m *RedisQueueManager) Subscribe(name string, l delivery.Listener) {
	m.listeners.subscribe(name, l)
}

func (m *RedisQueueManager) Unsubscribe(name string, l delivery.Listener) {
	m.listeners.unsubscribe(name, l)
}

// List returns up to limit entries from the head of the queue
func (m *RedisQueueManager) List(ctx context.Context, name string, limit int) ([]*delivery.Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := m.client.LRange(ctx, m.key(name), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	entries := make([]*delivery.Entry, 0, len(items))
	for _, item := range items {
		var e delivery.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("list %s: decode entry: %w", name, err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (m *RedisQueueManager) Count(ctx context.Context, name string) (int64, error) {
	n, err := m.client.LLen(ctx, m.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

var (
	_ delivery.QueueManager = (*RedisQueueManager)(nil)
	_ delivery.Browser      = (*RedisQueueManager)(nil)
)
