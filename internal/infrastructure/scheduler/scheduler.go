// Package scheduler runs periodic maintenance jobs of the delivery
// pipeline.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appdelivery "github.com/erp/gs1bridge/internal/application/delivery"
	"github.com/erp/gs1bridge/internal/domain/delivery"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job records one requeue pass
type Job struct {
	ID          uuid.UUID
	Status      JobStatus
	Requeued    int
	Remaining   int64
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Start marks the job as running
func (j *Job) Start() {
	j.Status = JobStatusRunning
	j.StartedAt = time.Now()
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(result *appdelivery.RequeueResult) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	if result != nil {
		j.Requeued = result.Requeued
		j.Remaining = result.Remaining
	}
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Requeuer moves dead letters back onto their queue
type Requeuer interface {
	Requeue(ctx context.Context, limit int) (*appdelivery.RequeueResult, error)
}

// RequeueSchedulerConfig holds scheduler configuration
type RequeueSchedulerConfig struct {
	Interval   time.Duration
	BatchSize  int // zero requeues every dead letter
	JobTimeout time.Duration
	// HistorySize bounds the retained job history
	HistorySize int
}

// DefaultRequeueSchedulerConfig returns default scheduler configuration
func DefaultRequeueSchedulerConfig() RequeueSchedulerConfig {
	return RequeueSchedulerConfig{
		Interval:    15 * time.Minute,
		JobTimeout:  5 * time.Minute,
		HistorySize: 50,
	}
}

// Scheduler errors
var (
	ErrSchedulerRunning = errors.New("scheduler already running")
	ErrInvalidInterval  = errors.New("scheduler interval must be positive")
)

// RequeueScheduler periodically returns dead-lettered entries to the
// outbound queue, where the dispatcher retries them. Passes never overlap.
type RequeueScheduler struct {
	config   RequeueSchedulerConfig
	requeuer Requeuer
	logger   *zap.Logger

	runMu   sync.Mutex
	mu      sync.Mutex
	history []*Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRequeueScheduler creates a new scheduler instance
func NewRequeueScheduler(config RequeueSchedulerConfig, requeuer Requeuer, logger *zap.Logger) (*RequeueScheduler, error) {
	if config.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	defaults := DefaultRequeueSchedulerConfig()
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequeueScheduler{config: config, requeuer: requeuer, logger: logger}, nil
}

// Start runs a pass every interval until Stop or ctx is done
func (s *RequeueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true

	ctx, cancel := context.WithCancel(delivery.WithPrincipal(ctx, delivery.SystemPrincipal))
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Dead-letter requeue scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop cancels the loop and waits for a running pass, bounded by ctx
func (s *RequeueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Dead-letter requeue scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Dead-letter requeue scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *RequeueScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RequeueScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one requeue pass and records it in the history
func (s *RequeueScheduler) RunOnce(ctx context.Context) *Job {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	job := &Job{ID: uuid.New()}
	job.Start()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.requeuer.Requeue(jobCtx, s.config.BatchSize)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Dead-letter requeue failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	} else {
		job.Complete(result)
		if job.Requeued > 0 {
			s.logger.Info("Dead letters requeued",
				zap.String("job_id", job.ID.String()),
				zap.Int("requeued", job.Requeued),
				zap.Int64("remaining", job.Remaining),
			)
		}
	}

	s.record(job)
	return job
}

func (s *RequeueScheduler) record(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, job)
	if over := len(s.history) - s.config.HistorySize; over > 0 {
		s.history = append([]*Job(nil), s.history[over:]...)
	}
}

// History returns up to limit recent jobs, newest first
func (s *RequeueScheduler) History(limit int) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Job, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, *s.history[i])
	}
	return out
}
