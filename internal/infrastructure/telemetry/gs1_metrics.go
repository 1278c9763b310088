package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Results of processing an inbound message
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// QueueDepthProvider reports the number of entries waiting on a queue
type QueueDepthProvider interface {
	Count(ctx context.Context, queue string) (int64, error)
}

// GS1Metrics counts message traffic through the bridge. All methods are
// safe on a nil receiver so services can run without metrics.
type GS1Metrics struct {
	logger *zap.Logger

	inbound          *Counter
	duplicates       *Counter
	composed         *Counter
	delivered        *Counter
	deadLettered     *Counter
	deliveryDuration *Histogram
	queueDepth       *Gauge

	depth    QueueDepthProvider
	queues   []string
	interval time.Duration

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// GS1MetricsConfig configures GS1Metrics
type GS1MetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// Depth and Queues enable periodic queue depth collection
	Depth           QueueDepthProvider
	Queues          []string
	CollectInterval time.Duration // default 30s
}

// NewGS1Metrics creates the instruments
func NewGS1Metrics(cfg GS1MetricsConfig) (*GS1Metrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &GS1Metrics{
		logger:   logger,
		depth:    cfg.Depth,
		queues:   cfg.Queues,
		interval: cfg.CollectInterval,
		stopChan: make(chan struct{}),
	}

	var err error
	if m.inbound, err = NewCounter(cfg.Meter, "gs1_inbound_messages_total",
		"Inbound GS1 messages by kind and result", "{messages}"); err != nil {
		return nil, err
	}
	if m.duplicates, err = NewCounter(cfg.Meter, "gs1_duplicate_documents_total",
		"Inbound documents skipped as already processed", "{documents}"); err != nil {
		return nil, err
	}
	if m.composed, err = NewCounter(cfg.Meter, "gs1_outbound_composed_total",
		"Outbound GS1 messages composed and queued", "{messages}"); err != nil {
		return nil, err
	}
	if m.delivered, err = NewCounter(cfg.Meter, "gs1_outbound_delivered_total",
		"Outbound GS1 messages accepted by the partner", "{messages}"); err != nil {
		return nil, err
	}
	if m.deadLettered, err = NewCounter(cfg.Meter, "gs1_outbound_dead_lettered_total",
		"Outbound GS1 messages moved to the dead-letter queue", "{messages}"); err != nil {
		return nil, err
	}
	if m.deliveryDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "gs1_outbound_delivery_duration_seconds",
		Description: "Time spent sending one message to the partner",
		Unit:        "s",
		Boundaries:  DeliveryDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.queueDepth, err = NewGauge(cfg.Meter, "gs1_queue_depth",
		"Entries waiting on a delivery queue", "{entries}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordInbound counts one inbound message
func (m *GS1Metrics) RecordInbound(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.inbound.Inc(ctx, AttrMessageKind.String(kind), AttrResult.String(result))
}

// RecordDuplicates counts documents skipped within a message
func (m *GS1Metrics) RecordDuplicates(ctx context.Context, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicates.Add(ctx, int64(n), AttrMessageKind.String(kind))
}

// RecordComposed counts one queued outbound message
func (m *GS1Metrics) RecordComposed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.composed.Inc(ctx, AttrMessageKind.String(kind))
}

// RecordDelivered counts one delivered message and its send latency
func (m *GS1Metrics) RecordDelivered(ctx context.Context, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.delivered.Inc(ctx, AttrMessageKind.String(kind))
	m.deliveryDuration.RecordDuration(ctx, d, AttrMessageKind.String(kind))
}

// RecordDeadLettered counts one dead-lettered message
func (m *GS1Metrics) RecordDeadLettered(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.deadLettered.Inc(ctx, AttrMessageKind.String(kind))
}

// RecordQueueDepth sets the depth gauge for queue
func (m *GS1Metrics) RecordQueueDepth(ctx context.Context, queue string, depth int64) {
	if m == nil {
		return
	}
	m.queueDepth.Record(ctx, depth, AttrQueue.String(queue))
}

// StartPeriodicCollection samples queue depths until Stop or ctx is done.
// It is a no-op without a depth provider.
func (m *GS1Metrics) StartPeriodicCollection(ctx context.Context) {
	if m == nil || m.depth == nil || len(m.queues) == 0 {
		return
	}
	m.collectOnce.Do(func() {
		interval := m.interval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		go m.runPeriodicCollection(ctx, interval)
	})
}

func (m *GS1Metrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectQueueDepths(ctx)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectQueueDepths(ctx)
		}
	}
}

func (m *GS1Metrics) collectQueueDepths(ctx context.Context) {
	for _, q := range m.queues {
		n, err := m.depth.Count(ctx, q)
		if err != nil {
			m.logger.Warn("Failed to sample queue depth", zap.String("queue", q), zap.Error(err))
			continue
		}
		m.RecordQueueDepth(ctx, q, n)
	}
}

// Stop ends periodic collection
func (m *GS1Metrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopChan) })
}
