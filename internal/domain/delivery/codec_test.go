package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
)

func TestNewEntry_RejectsMismatchedVariant(t *testing.T) {
	_, err := NewEntry(gs1.Message{Kind: gs1.KindOrder})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDecodeEntry(t *testing.T) {
	order := &gs1.OrderMessage{}
	order.Header.DocumentIdentification.InstanceIdentifier = "ORD-1"
	entry, err := NewEntry(gs1.NewOrder(order))
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", entry.Headers[HeaderInstanceID])

	t.Run("decodes the carried variant", func(t *testing.T) {
		msg, err := DecodeEntry(entry)
		require.NoError(t, err)
		assert.Equal(t, gs1.KindOrder, msg.Kind)
		require.NotNil(t, msg.Order)
		assert.Equal(t, "ORD-1", msg.InstanceID())
	})

	t.Run("corrupt body", func(t *testing.T) {
		bad := CloneForQueue(entry, "gs1")
		bad.Body = []byte("{not json")
		_, err := DecodeEntry(bad)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("envelope kind differs from body", func(t *testing.T) {
		bad := CloneForQueue(entry, "gs1")
		bad.Kind = gs1.KindReceivingAdvice
		_, err := DecodeEntry(bad)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestCloneForQueue_CopiesVerbatim(t *testing.T) {
	src := &Entry{Kind: gs1.KindOrder, Body: []byte("abc"), Headers: map[string]string{"k": "v"}}
	dst := CloneForQueue(src, DeadLetterQueue("gs1"))

	assert.Equal(t, "gs1.dead", dst.Queue)
	assert.Equal(t, src.Body, dst.Body)
	assert.Equal(t, src.Headers, dst.Headers)

	dst.Body[0] = 'x'
	dst.Headers["k"] = "changed"
	assert.Equal(t, "abc", string(src.Body))
	assert.Equal(t, "v", src.Headers["k"])
}
