package gs1

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// composeFunc builds the outbound message for an act
type composeFunc func(ctx context.Context, a *act.Act) (gs1.Message, error)

// triggerRule selects acts that must be reported to the partner
type triggerRule struct {
	kind    gs1.Kind
	match   func(a *act.Act) bool
	compose composeFunc
}

// Trigger reacts to acts inserted into the store by composing and enqueueing
// outbound messages. Only supply acts without the import tag are considered;
// imported acts came from partners and are never echoed back.
type Trigger struct {
	rules   []triggerRule
	queues  delivery.QueueManager
	queue   string
	logger  *zap.Logger
	metrics *telemetry.GS1Metrics
}

// NewTrigger creates a Trigger enqueueing on opts.QueueName
func NewTrigger(composer *Composer, queues delivery.QueueManager, opts Options, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		rules: []triggerRule{
			{
				kind:    gs1.KindOrder,
				match:   isNewOrder,
				compose: composer.ComposeOrder,
			},
			{
				kind:    gs1.KindReceivingAdvice,
				match:   isCompletedReceipt,
				compose: composer.ComposeReceivingAdvice,
			},
		},
		queues: queues,
		queue:  opts.QueueName,
		logger: logger,
	}
}

// SetMetrics sets the GS1 metrics collector
func (t *Trigger) SetMetrics(m *telemetry.GS1Metrics) {
	t.metrics = m
}

func isNewOrder(a *act.Act) bool {
	return a.Mood == act.MoodRequest
}

func isCompletedReceipt(a *act.Act) bool {
	if a.Mood != act.MoodEventOccurrence || a.Status != act.StatusCompleted {
		return false
	}
	status, _ := a.Tag(act.TagOrderStatus)
	return status == act.OrderStatusCompleted
}

// EventTypes returns the store events the trigger listens to
func (t *Trigger) EventTypes() []string {
	return []string{act.EventTypeActInserted, act.EventTypeBundleCommitted}
}

// Handle processes an insertion event. Bundles are unwrapped to the acts
// they inserted; acts the bundle merely updated are ignored.
func (t *Trigger) Handle(ctx context.Context, event shared.DomainEvent) error {
	var inserted []*act.Act
	switch e := event.(type) {
	case *act.ActInsertedEvent:
		inserted = []*act.Act{e.Act}
	case *act.BundleCommittedEvent:
		inserted = e.Inserted
	default:
		return nil
	}

	ctx = delivery.WithPrincipal(ctx, delivery.SystemPrincipal)
	var errs []error
	for _, a := range inserted {
		if err := t.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify applies the dispatch rules to one act
func (t *Trigger) Notify(ctx context.Context, a *act.Act) error {
	if a == nil || !a.IsSupply() || a.IsImported() {
		return nil
	}
	for _, rule := range t.rules {
		if !rule.match(a) {
			continue
		}
		log := logger.WithLogger(ctx, t.logger).With(
			zap.String("act_id", a.ID.String()),
			zap.String("message_kind", string(rule.kind)),
		)

		msg, err := rule.compose(ctx, a)
		if err != nil {
			log.Error("failed to compose outbound message", zap.Error(err))
			return fmt.Errorf("compose %s for act %s: %w", rule.kind, a.ID, err)
		}
		entry, err := delivery.NewEntry(msg)
		if err != nil {
			log.Error("failed to encode outbound message", zap.Error(err))
			return err
		}
		if p, ok := delivery.PrincipalFrom(ctx); ok {
			entry.Headers[delivery.HeaderPrincipal] = p.Name
		}
		if err := t.queues.Enqueue(ctx, t.queue, entry); err != nil {
			log.Error("failed to enqueue outbound message", zap.Error(err))
			return fmt.Errorf("enqueue %s for act %s: %w", rule.kind, a.ID, err)
		}
		t.metrics.RecordComposed(ctx, string(rule.kind))
		log.Info("outbound message queued", zap.String("entry_id", entry.ID.String()), zap.String("queue", t.queue))
		return nil
	}
	return nil
}

var _ shared.EventHandler = (*Trigger)(nil)
