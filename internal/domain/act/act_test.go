package act

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

func TestAct_AddIdentifier(t *testing.T) {
	authorityID := uuid.New()

	t.Run("rejects same authority and value", func(t *testing.T) {
		a := New(MoodEventOccurrence, StatusActive, time.Now())
		require.NoError(t, a.AddIdentifier(Identifier{AuthorityID: authorityID, Value: "DA-1"}))

		err := a.AddIdentifier(Identifier{AuthorityID: authorityID, Value: "DA-1"})
		assert.ErrorIs(t, err, shared.ErrDuplicateIdentifier)
		assert.Len(t, a.Identifiers, 1)
	})

	t.Run("same value under another authority is allowed", func(t *testing.T) {
		a := New(MoodEventOccurrence, StatusActive, time.Now())
		require.NoError(t, a.AddIdentifier(Identifier{AuthorityID: authorityID, Value: "DA-1"}))
		require.NoError(t, a.AddIdentifier(Identifier{AuthorityID: uuid.New(), Value: "DA-1"}))
		assert.Len(t, a.Identifiers, 2)
	})

	t.Run("blank value is invalid", func(t *testing.T) {
		a := New(MoodRequest, StatusActive, time.Now())
		err := a.AddIdentifier(Identifier{AuthorityID: authorityID, Value: "  "})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAct_Tags(t *testing.T) {
	a := New(MoodRequest, StatusActive, time.Now())

	_, ok := a.Tag(TagOrderStatus)
	assert.False(t, ok)

	a.SetTag(TagOrderStatus, OrderStatusShipped)
	a.SetTag(TagOrderStatus, OrderStatusAccepted)

	v, ok := a.Tag(TagOrderStatus)
	assert.True(t, ok)
	assert.Equal(t, OrderStatusAccepted, v)
	assert.Len(t, a.Tags, 1)

	assert.False(t, a.IsImported())
	a.MarkImported()
	assert.True(t, a.IsImported())
}

func TestAct_ParticipationsKeepOrder(t *testing.T) {
	a := New(MoodRequest, StatusActive, time.Now())
	p1, p2 := uuid.New(), uuid.New()
	qty := decimal.NewFromInt(10)

	a.AddParticipation(RoleLocation, uuid.New(), nil)
	a.AddParticipation(RoleProduct, p1, &qty)
	a.AddParticipation(RoleProduct, p2, nil)

	products := a.ParticipationsByRole(RoleProduct)
	require.Len(t, products, 2)
	assert.Equal(t, p1, products[0].PlayerID)
	assert.Equal(t, p2, products[1].PlayerID)
	assert.True(t, products[0].Quantity.Equal(qty))
	assert.False(t, a.HasParticipation(RoleDistributor))
}

func TestAct_DateExtension(t *testing.T) {
	a := New(MoodEventOccurrence, StatusActive, time.Now())
	shipped := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	a.SetDateExtension(ExtensionActualShipmentDate, shipped)

	got, ok := a.DateExtension(ExtensionActualShipmentDate)
	require.True(t, ok)
	assert.True(t, shipped.Equal(got))

	_, ok = a.DateExtension(ExtensionExpectedDeliveryDate)
	assert.False(t, ok)
}

func TestAct_Complete(t *testing.T) {
	a := New(MoodRequest, StatusActive, time.Now())
	assert.True(t, a.IsNew())

	a.Complete()
	assert.Equal(t, StatusCompleted, a.Status)
}

func TestBundle_AddDeduplicatesByID(t *testing.T) {
	b := NewBundle()
	order := New(MoodRequest, StatusActive, time.Now())
	shipment := New(MoodEventOccurrence, StatusActive, time.Now())

	b.Add(order)
	b.Add(shipment)
	b.Add(order)

	require.Len(t, b.Acts, 2)
	assert.Same(t, order, b.Acts[0])
	got, ok := b.Get(shipment.ID)
	assert.True(t, ok)
	assert.Same(t, shipment, got)
	assert.False(t, b.IsEmpty())
	assert.True(t, NewBundle().IsEmpty())
}
