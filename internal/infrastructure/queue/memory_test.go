package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueManager(t *testing.T) {
	runManagerContract(t, NewMemoryQueueManager())
}

func TestMemoryQueueManager_EntriesAreCopied(t *testing.T) {
	m := NewMemoryQueueManager()
	ctx := context.Background()

	e := newEntry(t, "COPY-1")
	require.NoError(t, m.Enqueue(ctx, "q", e))
	e.Headers["instance_id"] = "changed"

	listed, err := m.List(ctx, "q", 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].LastError = "changed"

	got, err := m.Dequeue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "COPY-1", got.Headers["instance_id"])
	assert.Empty(t, got.LastError)
}
