// Package delivery holds operator use cases over the outbound queues.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Queues is the queue manager surface the service needs
type Queues interface {
	delivery.QueueManager
	delivery.Browser
}

// DeadLetterService inspects and reprocesses entries that could not be
// delivered.
type DeadLetterService struct {
	queues Queues
	queue  string
	logger *zap.Logger
}

// NewDeadLetterService creates a service over queue and its dead-letter queue
func NewDeadLetterService(queues Queues, queue string, logger *zap.Logger) *DeadLetterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterService{queues: queues, queue: queue, logger: logger}
}

// DeadLetterFilter limits a listing
type DeadLetterFilter struct {
	Limit int `form:"limit,omitempty" binding:"omitempty,min=1,max=500"`
}

// DeadLetterEntryDTO describes one dead-lettered message
type DeadLetterEntryDTO struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	InstanceID string    `json:"instance_id,omitempty"`
	Principal  string    `json:"principal,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Size       int       `json:"size"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DeadLetterListResult is the oldest entries of the dead-letter queue
type DeadLetterListResult struct {
	Queue   string               `json:"queue"`
	Entries []DeadLetterEntryDTO `json:"entries"`
	Total   int64                `json:"total"`
}

// RequeueResult reports a requeue pass
type RequeueResult struct {
	Requeued  int   `json:"requeued"`
	Remaining int64 `json:"remaining"`
}

// DeadLetterQueue returns the name of the queue being inspected
func (s *DeadLetterService) DeadLetterQueue() string {
	return delivery.DeadLetterQueue(s.queue)
}

// List returns up to filter.Limit dead-lettered entries, oldest first
func (s *DeadLetterService) List(ctx context.Context, filter DeadLetterFilter) (*DeadLetterListResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DeadLetterService", "List")
	defer span.End()

	limit := filter.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	dead := s.DeadLetterQueue()
	entries, err := s.queues.List(ctx, dead, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.ErrPersistence.WithTarget(dead).WithCause(err)
	}
	total, err := s.queues.Count(ctx, dead)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.ErrPersistence.WithTarget(dead).WithCause(err)
	}

	dtos := make([]DeadLetterEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toDTO(e)
	}
	telemetry.SetOK(span)
	return &DeadLetterListResult{Queue: dead, Entries: dtos, Total: total}, nil
}

// Count returns the number of dead-lettered entries
func (s *DeadLetterService) Count(ctx context.Context) (int64, error) {
	n, err := s.queues.Count(ctx, s.DeadLetterQueue())
	if err != nil {
		return 0, shared.ErrPersistence.WithTarget(s.DeadLetterQueue()).WithCause(err)
	}
	return n, nil
}

// Requeue moves up to limit entries (all when limit < 1) from the
// dead-letter queue back onto the delivery queue, oldest first. Entries
// dead-lettered again while the pass runs are left for the next pass.
func (s *DeadLetterService) Requeue(ctx context.Context, limit int) (*RequeueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DeadLetterService", "Requeue",
		telemetry.WithAttribute("requeue.limit", limit),
	)
	defer span.End()
	log := logger.WithLogger(ctx, s.logger).With(zap.String("queue", s.queue))

	dead := s.DeadLetterQueue()
	if err := s.queues.Open(ctx, s.queue); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.ErrPersistence.WithTarget(s.queue).WithCause(err)
	}

	pending, err := s.queues.Count(ctx, dead)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.ErrPersistence.WithTarget(dead).WithCause(err)
	}
	if limit < 1 || int64(limit) > pending {
		limit = int(pending)
	}

	result := &RequeueResult{}
	for result.Requeued < limit {
		if err := ctx.Err(); err != nil {
			break
		}
		e, err := s.queues.Dequeue(ctx, dead)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, shared.ErrPersistence.WithTarget(dead).WithCause(err)
		}
		if e == nil {
			break
		}

		retry := delivery.CloneForQueue(e, s.queue)
		retry.LastError = ""
		if err := s.queues.Enqueue(ctx, s.queue, retry); err != nil {
			// keep the entry rather than lose it
			if putBack := s.queues.Enqueue(context.WithoutCancel(ctx), dead, e); putBack != nil {
				log.Error("Dead-letter entry lost during requeue",
					zap.String("entry_id", e.ID.String()),
					zap.Error(putBack),
				)
			}
			telemetry.RecordError(span, err)
			return result, shared.ErrPersistence.WithTarget(s.queue).WithCause(err)
		}
		result.Requeued++
		log.Info("Dead-letter entry requeued",
			zap.String("entry_id", e.ID.String()),
			zap.String("instance_id", e.Headers[delivery.HeaderInstanceID]),
		)
	}

	remaining, err := s.queues.Count(ctx, dead)
	if err != nil {
		log.Warn("Failed to count remaining dead letters", zap.Error(err))
	}
	result.Remaining = remaining

	telemetry.SetOK(span)
	log.Info("Requeue pass finished",
		zap.Int("requeued", result.Requeued),
		zap.Int64("remaining", result.Remaining),
	)
	return result, nil
}

func toDTO(e *delivery.Entry) DeadLetterEntryDTO {
	return DeadLetterEntryDTO{
		ID:         e.ID,
		Kind:       string(e.Kind),
		InstanceID: e.Headers[delivery.HeaderInstanceID],
		Principal:  e.Headers[delivery.HeaderPrincipal],
		LastError:  e.LastError,
		Size:       len(e.Body),
		EnqueuedAt: e.EnqueuedAt,
	}
}
