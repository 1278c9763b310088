package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdelivery "github.com/erp/gs1bridge/internal/application/delivery"
	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/infrastructure/queue"
)

type countingRequeuer struct {
	mu        sync.Mutex
	calls     int
	limits    []int
	principal delivery.Principal
	err       error
}

func (r *countingRequeuer) Requeue(ctx context.Context, limit int) (*appdelivery.RequeueResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.limits = append(r.limits, limit)
	r.principal, _ = delivery.PrincipalFrom(ctx)
	if r.err != nil {
		return nil, r.err
	}
	return &appdelivery.RequeueResult{Requeued: 1}, nil
}

func (r *countingRequeuer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestNewRequeueScheduler_RequiresInterval(t *testing.T) {
	_, err := NewRequeueScheduler(RequeueSchedulerConfig{}, &countingRequeuer{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRequeueScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()
	qm := queue.NewMemoryQueueManager()
	for i := 0; i < 3; i++ {
		e, err := delivery.NewEntry(gs1.NewOrder(&gs1.OrderMessage{}))
		require.NoError(t, err)
		require.NoError(t, qm.Enqueue(ctx, delivery.DeadLetterQueue("gs1"), e))
	}
	svc := appdelivery.NewDeadLetterService(qm, "gs1", nil)

	s, err := NewRequeueScheduler(RequeueSchedulerConfig{Interval: time.Hour, BatchSize: 2}, svc, nil)
	require.NoError(t, err)

	job := s.RunOnce(ctx)
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 2, job.Requeued)
	assert.EqualValues(t, 1, job.Remaining)
	require.NotNil(t, job.CompletedAt)

	n, _ := qm.Count(ctx, "gs1")
	assert.EqualValues(t, 2, n)
}

func TestRequeueScheduler_RecordsFailures(t *testing.T) {
	r := &countingRequeuer{err: errors.New("queue unavailable")}
	s, err := NewRequeueScheduler(RequeueSchedulerConfig{Interval: time.Hour}, r, nil)
	require.NoError(t, err)

	job := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "queue unavailable", job.Error)
}

func TestRequeueScheduler_HistoryIsBoundedNewestFirst(t *testing.T) {
	r := &countingRequeuer{}
	s, err := NewRequeueScheduler(RequeueSchedulerConfig{Interval: time.Hour, HistorySize: 3}, r, nil)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.RunOnce(context.Background()).ID.String())
	}

	history := s.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, ids[4], history[0].ID.String())
	assert.Equal(t, ids[2], history[2].ID.String())
	assert.Len(t, s.History(1), 1)
}

func TestRequeueScheduler_StartStop(t *testing.T) {
	r := &countingRequeuer{}
	s, err := NewRequeueScheduler(RequeueSchedulerConfig{Interval: 10 * time.Millisecond, BatchSize: 5}, r, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)

	assert.Eventually(t, func() bool { return r.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.False(t, s.IsRunning())

	r.mu.Lock()
	assert.Equal(t, 5, r.limits[0])
	assert.Equal(t, delivery.SystemPrincipal, r.principal)
	r.mu.Unlock()
}
