package gs1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// DespatchService turns inbound despatch advices into shipment acts
type DespatchService struct {
	resolver *Resolver
	acts     act.Repository
	logger   *zap.Logger
	metrics  *telemetry.GS1Metrics
}

// NewDespatchService creates a DespatchService
func NewDespatchService(resolver *Resolver, acts act.Repository, logger *zap.Logger) *DespatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DespatchService{resolver: resolver, acts: acts, logger: logger}
}

// SetMetrics sets the GS1 metrics collector
func (s *DespatchService) SetMetrics(m *telemetry.GS1Metrics) {
	s.metrics = m
}

// ProcessDespatchAdvice records every despatch advice in msg as a new
// EventOccurrence supply act and completes the orders they fulfil.
//
// The whole message is one unit: any resolution or unit error aborts it
// before the store is touched. Despatches already recorded under the same
// (authority, identifier) pair are skipped and reported in the result, never
// as an error.
func (s *DespatchService) ProcessDespatchAdvice(ctx context.Context, msg *gs1.DespatchAdviceMessage) (*DespatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DespatchService", "ProcessDespatchAdvice")
	defer span.End()

	if err := gs1.Validate(msg); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultRejected)
		return nil, err
	}
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("message_kind", string(gs1.KindDespatchAdvice)),
		zap.String("message_id", msg.Header.DocumentIdentification.InstanceIdentifier),
	)

	for attempt := 1; ; attempt++ {
		bundle, result, err := s.buildBundle(ctx, log, msg)
		if err != nil {
			log.Error("despatch advice rejected", zap.Error(err))
			telemetry.RecordError(span, err)
			s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultRejected)
			return nil, err
		}
		s.metrics.RecordDuplicates(ctx, string(gs1.KindDespatchAdvice), len(result.Duplicates))
		if bundle.IsEmpty() {
			s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultDuplicate)
			return result, nil
		}

		err = s.acts.Commit(ctx, bundle)
		if err == nil {
			log.Info("despatch advice recorded",
				zap.Int("shipments", len(result.Created)),
				zap.Int("completed_orders", len(result.CompletedOrders)),
				zap.Int("materials_created", result.MaterialsCreated),
			)
			telemetry.SetOK(span)
			s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultAccepted)
			return result, nil
		}
		if isRetryableCommit(err) && attempt < maxCommitAttempts {
			log.Warn("despatch advice lost a commit race, rebuilding", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if errors.Is(err, shared.ErrDuplicateIdentifier) {
			log.Warn("despatch advice already recorded by a concurrent delivery", zap.Error(err))
			s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultDuplicate)
			return s.alreadyRecorded(ctx, log, msg), nil
		}

		err = fmt.Errorf("issue despatch advice: %w", asPersistenceError(err))
		log.Error("despatch advice commit failed", zap.Error(err))
		telemetry.RecordError(span, err)
		s.metrics.RecordInbound(ctx, string(gs1.KindDespatchAdvice), telemetry.ResultFailed)
		return nil, err
	}
}

func (s *DespatchService) buildBundle(ctx context.Context, log *logger.ContextLogger, msg *gs1.DespatchAdviceMessage) (*act.Bundle, *DespatchResult, error) {
	bundle := act.NewBundle()
	result := &DespatchResult{}
	seen := make(map[string]bool)

	for i := range msg.DespatchAdvices {
		adv := &msg.DespatchAdvices[i]
		despatchID := adv.Identification.EntityIdentification

		shipper, err := s.resolver.ResolveLocation(ctx, "shipper", adv.Shipper)
		if err != nil {
			return nil, nil, err
		}
		receiver, err := s.resolver.ResolveLocation(ctx, "receiver", adv.Receiver)
		if err != nil {
			return nil, nil, err
		}

		var order *act.Act
		if ref := adv.OrderReference(); ref != nil {
			order, err = s.resolver.ResolveOrder(ctx, ref)
			if errors.Is(err, shared.ErrOrderNotFound) {
				log.Info("despatch references an unknown order, recording without fulfilment",
					zap.String("despatch_id", despatchID), zap.String("order_ref", ref.EntityIdentification))
				order, err = nil, nil
			}
			if err != nil {
				return nil, nil, err
			}
		}

		auth, err := s.resolver.ResolveAuthority(ctx, adv.Identification.OwnerCode())
		if err != nil {
			return nil, nil, err
		}

		key := auth.ID.String() + "|" + despatchID
		if seen[key] {
			log.Warn("duplicate despatch within message will be ignored", zap.String("despatch_id", despatchID))
			result.Duplicates = append(result.Duplicates, despatchID)
			continue
		}
		existing, err := s.acts.FindByIdentifier(ctx, auth.ID, despatchID)
		if err != nil {
			return nil, nil, fmt.Errorf("check despatch %s: %w", despatchID, asPersistenceError(err))
		}
		if len(existing) > 0 {
			log.Warn("duplicate despatch will be ignored", zap.String("despatch_id", despatchID))
			result.Duplicates = append(result.Duplicates, despatchID)
			continue
		}
		seen[key] = true

		if order != nil {
			if prior, ok := bundle.Get(order.ID); ok {
				order = prior
			} else {
				result.CompletedOrders = append(result.CompletedOrders, order.ID)
			}
			order.Complete()
			bundle.Add(order)
		}

		shipment := act.New(act.MoodEventOccurrence, act.StatusActive, shipmentTime(adv.DespatchInformation))
		if t := adv.DespatchInformation.ActualShipDateTime; t != nil {
			shipment.SetDateExtension(act.ExtensionActualShipmentDate, *t)
		}
		if t := adv.DespatchInformation.EstimatedDeliveryDateTime; t != nil {
			shipment.SetDateExtension(act.ExtensionExpectedDeliveryDate, *t)
		}
		shipment.SetTag(act.TagOrderNumber, despatchID)
		shipment.SetTag(act.TagOrderStatus, act.OrderStatusShipped)
		shipment.MarkImported()
		if err := shipment.AddIdentifier(act.Identifier{
			AuthorityID: auth.ID,
			Namespace:   auth.Namespace,
			Value:       despatchID,
		}); err != nil {
			return nil, nil, err
		}
		shipment.AddParticipation(act.RoleLocation, shipper.ID, nil)
		shipment.AddParticipation(act.RoleDestination, receiver.ID, nil)
		if order != nil {
			shipment.AddRelationship(act.RelationshipFulfills, order.ID)
		}

		for _, unit := range adv.LogisticUnits {
			for _, line := range unit.LineItems {
				if !gs1.IsAcceptedUnit(line.DespatchedQuantity.MeasurementUnitCode) {
					return nil, nil, shared.ErrInvalidUnit.
						WithTarget(fmt.Sprintf("despatch %s line %d", despatchID, line.LineItemNumber)).
						WithCause(fmt.Errorf("unit %q is not one of %q, %q",
							line.DespatchedQuantity.MeasurementUnitCode, gs1.UnitDose, gs1.UnitUnit))
				}
				material, err := s.resolver.ResolveMaterial(ctx, line.TransactionalTradeItem, bundle)
				if err != nil {
					return nil, nil, err
				}
				qty := line.DespatchedQuantity.Value
				shipment.AddParticipation(act.RoleConsumable, material.ID, &qty)
			}
		}

		bundle.Add(shipment)
		result.Created = append(result.Created, shipment.ID)
	}

	result.MaterialsCreated = len(bundle.Materials)
	return bundle, result, nil
}

// shipmentTime is the actual ship time, else the despatch time, else now
func shipmentTime(info gs1.DespatchInformation) time.Time {
	switch {
	case info.ActualShipDateTime != nil:
		return *info.ActualShipDateTime
	case info.DespatchDateTime != nil:
		return *info.DespatchDateTime
	default:
		return clock()
	}
}

// alreadyRecorded reports which despatches of msg the store now holds after
// the commit retries ran out. Nothing from msg itself was recorded.
func (s *DespatchService) alreadyRecorded(ctx context.Context, log *logger.ContextLogger, msg *gs1.DespatchAdviceMessage) *DespatchResult {
	_, rebuilt, err := s.buildBundle(ctx, log, msg)
	if err != nil {
		log.Warn("could not determine recorded despatches", zap.Error(err))
		return &DespatchResult{}
	}
	return &DespatchResult{Duplicates: rebuilt.Duplicates}
}
