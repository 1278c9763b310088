package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// Archive statuses of outbound messages
const (
	StatusDelivered        = "delivered"
	StatusDeadLettered     = "dead_lettered"
	StatusDeadLetterFailed = "dead_letter_failed"
)

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	Queue        string
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Queue:        "gs1",
		PollInterval: 10 * time.Second,
		SendTimeout:  30 * time.Second,
	}
}

// ErrDispatcherRunning is returned by Start on a running dispatcher
var ErrDispatcherRunning = errors.New("dispatcher already running")

// Dispatcher drains one outbound queue to the partner transport. A failed
// send moves the entry unchanged to the dead-letter queue and the drain
// continues with the next entry.
//
// Drain passes never overlap. Queue notifications only wake the worker
// goroutine, and a poll ticker covers entries enqueued by other processes.
type Dispatcher struct {
	queues    delivery.QueueManager
	transport delivery.Transport
	archive   delivery.Archive
	metrics   *telemetry.GS1Metrics
	config    DispatcherConfig
	logger    *zap.Logger

	drainMu sync.Mutex
	wake    chan struct{}
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(queues delivery.QueueManager, transport delivery.Transport, config DispatcherConfig, logger *zap.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.Queue == "" {
		config.Queue = defaults.Queue
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaults.SendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queues:    queues,
		transport: transport,
		config:    config,
		logger:    logger.With(zap.String("queue", config.Queue)),
		wake:      make(chan struct{}, 1),
	}
}

// SetArchive sets the archive receiving delivered and dead-lettered bodies
func (d *Dispatcher) SetArchive(a delivery.Archive) {
	d.archive = a
}

// SetMetrics sets the metrics recorder
func (d *Dispatcher) SetMetrics(m *telemetry.GS1Metrics) {
	d.metrics = m
}

// Queue returns the name of the drained queue
func (d *Dispatcher) Queue() string {
	return d.config.Queue
}

// DeadLetterQueue returns the name of the dead-letter queue
func (d *Dispatcher) DeadLetterQueue() string {
	return delivery.DeadLetterQueue(d.config.Queue)
}

// Start opens the queue and its dead-letter queue, subscribes to new
// entries and starts the worker. Entries already waiting are drained
// right away.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDispatcherRunning
	}
	for _, name := range []string{d.config.Queue, d.DeadLetterQueue()} {
		if err := d.queues.Open(ctx, name); err != nil {
			d.running.Store(false)
			return fmt.Errorf("start dispatcher: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.queues.Subscribe(d.config.Queue, d)

	d.wg.Add(1)
	go d.processLoop(ctx)
	d.QueueReady(d.config.Queue)

	d.logger.Info("dispatcher started",
		zap.Duration("poll_interval", d.config.PollInterval),
		zap.Duration("send_timeout", d.config.SendTimeout),
	)
	return nil
}

// Stop unsubscribes and waits for the current drain pass, including any
// in-flight send, to finish. No new pass starts after Stop is called.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	d.queues.Unsubscribe(d.config.Queue, d)
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher stop: %w", ctx.Err())
	}
}

// IsRunning reports whether the worker is active
func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}

// QueueReady wakes the worker. Signals arriving while a pass is pending
// are coalesced.
func (d *Dispatcher) QueueReady(name string) {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) processLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := d.Drain(ctx); err != nil {
			d.logger.Error("drain pass failed", zap.Error(err))
		}
	}
}

// Drain delivers entries until the queue is empty or ctx is done, and
// returns how many it took off the queue. It only fails when the queue itself fails; transport
// errors dead-letter the entry instead.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	ctx = delivery.WithPrincipal(ctx, delivery.SystemPrincipal)
	processed := 0
	for {
		if ctx.Err() != nil {
			return processed, nil
		}
		entry, err := d.queues.Dequeue(ctx, d.config.Queue)
		if err != nil {
			return processed, err
		}
		if entry == nil {
			return processed, nil
		}
		processed++
		telemetry.WithProfilingLabels(ctx, map[string]string{
			telemetry.ProfilingLabelOperation:   "dispatch",
			telemetry.ProfilingLabelQueue:       d.config.Queue,
			telemetry.ProfilingLabelMessageKind: string(entry.Kind),
		}, func(ctx context.Context) {
			d.processEntry(ctx, entry)
		})
	}
}

// processEntry sends one entry. The send runs detached from ctx so a stop
// signal never interrupts it; only the send timeout does.
func (d *Dispatcher) processEntry(ctx context.Context, entry *delivery.Entry) {
	ctx = logger.WithMessageID(ctx, entry.Headers[delivery.HeaderInstanceID])
	ctx, span := telemetry.StartServiceSpan(ctx, "Dispatcher", "Deliver",
		telemetry.WithAttribute("gs1.queue", d.config.Queue),
		telemetry.WithAttribute("gs1.message_kind", string(entry.Kind)),
		telemetry.WithAttribute("gs1.entry_id", entry.ID.String()),
	)
	defer span.End()
	log := logger.WithLogger(ctx, d.logger).With(
		zap.String("entry_id", entry.ID.String()),
		zap.String("message_kind", string(entry.Kind)),
	)

	msg, err := delivery.DecodeEntry(entry)
	if err != nil {
		telemetry.RecordError(span, err)
		d.deadLetter(ctx, log, entry, nil, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
	defer cancel()

	start := time.Now()
	err = d.transport.Send(sendCtx, msg)
	elapsed := time.Since(start)
	if err != nil {
		telemetry.RecordError(span, err)
		d.deadLetter(ctx, log, entry, &msg, err)
		return
	}

	d.metrics.RecordDelivered(ctx, string(entry.Kind), elapsed)
	d.store(ctx, log, entry, &msg, StatusDelivered)
	telemetry.SetOK(span)
	log.Info("message delivered", zap.Duration("duration", elapsed))
}

// deadLetter copies entry verbatim to the dead-letter queue, recording the
// failure in LastError
func (d *Dispatcher) deadLetter(ctx context.Context, log *logger.ContextLogger, entry *delivery.Entry, msg *gs1.Message, cause error) {
	dead := delivery.CloneForQueue(entry, d.DeadLetterQueue())
	dead.LastError = cause.Error()

	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
	defer cancel()
	if err := d.queues.Enqueue(qctx, d.DeadLetterQueue(), dead); err != nil {
		log.Error("failed to dead-letter message",
			zap.NamedError("send_error", cause),
			zap.Error(err),
		)
		d.store(ctx, log, entry, msg, StatusDeadLetterFailed)
		return
	}

	d.metrics.RecordDeadLettered(ctx, string(entry.Kind))
	d.store(ctx, log, entry, msg, StatusDeadLettered)
	log.Error("message dead-lettered",
		zap.String("dead_letter_queue", d.DeadLetterQueue()),
		zap.Error(cause),
	)
}

// store archives the outbound body. Archive failures are only logged.
func (d *Dispatcher) store(ctx context.Context, log *logger.ContextLogger, entry *delivery.Entry, msg *gs1.Message, status string) {
	if d.archive == nil {
		return
	}
	body := entry.Body
	if msg != nil {
		if xmlBody, err := msg.EncodeXML(); err == nil {
			body = xmlBody
		}
	}
	id := entry.Headers[delivery.HeaderInstanceID]
	if id == "" {
		id = entry.ID.String()
	}
	err := d.archive.Store(context.WithoutCancel(ctx), delivery.Record{
		ID:        id,
		Kind:      entry.Kind,
		Direction: delivery.DirectionOutbound,
		Body:      body,
		Status:    status,
		At:        time.Now(),
	})
	if err != nil {
		log.Warn("failed to archive outbound message", zap.String("status", status), zap.Error(err))
	}
}

var _ delivery.Listener = (*Dispatcher)(nil)
