package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
)

func orderMessage(instanceID string) gs1.Message {
	return gs1.NewOrder(&gs1.OrderMessage{
		Header: gs1.DocumentHeader{
			DocumentIdentification: gs1.DocumentIdentification{
				Standard:            "GS1",
				TypeVersion:         "3.3",
				InstanceIdentifier:  instanceID,
				Type:                "Order",
				CreationDateAndTime: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
			},
		},
		Orders: []gs1.Order{{
			OrderIdentification: gs1.EntityIdentification{EntityIdentification: instanceID},
		}},
	})
}

func newEntry(t *testing.T, instanceID string) *delivery.Entry {
	t.Helper()
	e, err := delivery.NewEntry(orderMessage(instanceID))
	require.NoError(t, err)
	return e
}

type countingListener struct {
	mu    sync.Mutex
	ready map[string]int
}

func (l *countingListener) QueueReady(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready == nil {
		l.ready = make(map[string]int)
	}
	l.ready[name]++
}

func (l *countingListener) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready[name]
}

// runManagerContract exercises behaviour every backend shares
func runManagerContract(t *testing.T, m Manager) {
	ctx := context.Background()

	t.Run("empty queue dequeues nil", func(t *testing.T) {
		require.NoError(t, m.Open(ctx, "contract.empty"))
		e, err := m.Dequeue(ctx, "contract.empty")
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("fifo per queue", func(t *testing.T) {
		require.NoError(t, m.Open(ctx, "contract.a"))
		require.NoError(t, m.Open(ctx, "contract.b"))
		first, second, other := newEntry(t, "MSG-1"), newEntry(t, "MSG-2"), newEntry(t, "MSG-X")
		require.NoError(t, m.Enqueue(ctx, "contract.a", first))
		require.NoError(t, m.Enqueue(ctx, "contract.b", other))
		require.NoError(t, m.Enqueue(ctx, "contract.a", second))

		n, err := m.Count(ctx, "contract.a")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := m.Dequeue(ctx, "contract.a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "contract.a", got.Queue)
		assert.Equal(t, gs1.KindOrder, got.Kind)
		assert.Equal(t, "MSG-1", got.Headers[delivery.HeaderInstanceID])
		assert.JSONEq(t, string(first.Body), string(got.Body))

		got, err = m.Dequeue(ctx, "contract.a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.ID, got.ID)

		got, err = m.Dequeue(ctx, "contract.a")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err = m.Count(ctx, "contract.b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("list does not consume", func(t *testing.T) {
		require.NoError(t, m.Open(ctx, "contract.list"))
		for _, id := range []string{"L-1", "L-2", "L-3"} {
			e := newEntry(t, id)
			e.LastError = "broker returned 503"
			require.NoError(t, m.Enqueue(ctx, "contract.list", e))
		}

		listed, err := m.List(ctx, "contract.list", 2)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "L-1", listed[0].Headers[delivery.HeaderInstanceID])
		assert.Equal(t, "L-2", listed[1].Headers[delivery.HeaderInstanceID])
		assert.Equal(t, "broker returned 503", listed[0].LastError)

		all, err := m.List(ctx, "contract.list", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		n, err := m.Count(ctx, "contract.list")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("listeners are notified until unsubscribed", func(t *testing.T) {
		require.NoError(t, m.Open(ctx, "contract.notify"))
		l := &countingListener{}
		m.Subscribe("contract.notify", l)
		m.Subscribe("contract.notify", l)

		require.NoError(t, m.Enqueue(ctx, "contract.notify", newEntry(t, "N-1")))
		require.NoError(t, m.Enqueue(ctx, "contract.other", newEntry(t, "N-2")))
		assert.Equal(t, 1, l.count("contract.notify"))
		assert.Equal(t, 0, l.count("contract.other"))

		m.Unsubscribe("contract.notify", l)
		require.NoError(t, m.Enqueue(ctx, "contract.notify", newEntry(t, "N-3")))
		assert.Equal(t, 1, l.count("contract.notify"))
	})
}
