package gs1

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// OrderResponseService applies supplier order responses to stored orders
type OrderResponseService struct {
	resolver *Resolver
	acts     act.Repository
	logger   *zap.Logger
	metrics  *telemetry.GS1Metrics
}

// NewOrderResponseService creates an OrderResponseService
func NewOrderResponseService(resolver *Resolver, acts act.Repository, logger *zap.Logger) *OrderResponseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderResponseService{resolver: resolver, acts: acts, logger: logger}
}

// SetMetrics sets the GS1 metrics collector
func (s *OrderResponseService) SetMetrics(m *telemetry.GS1Metrics) {
	s.metrics = m
}

// ProcessOrderResponse updates the original order of every response in msg:
// it records the seller as distributor, appends the response identifier and
// sets the orderStatus tag from the response status. Order responses never
// create orders; an unknown original order fails the whole message.
func (s *OrderResponseService) ProcessOrderResponse(ctx context.Context, msg *gs1.OrderResponseMessage) (*OrderResponseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderResponseService", "ProcessOrderResponse")
	defer span.End()

	if err := gs1.Validate(msg); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultRejected)
		return nil, err
	}
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("message_kind", string(gs1.KindOrderResponse)),
		zap.String("message_id", msg.Header.DocumentIdentification.InstanceIdentifier),
	)

	for attempt := 1; ; attempt++ {
		bundle, result, err := s.buildBundle(ctx, log, msg)
		if err != nil {
			log.Error("order response rejected", zap.Error(err))
			telemetry.RecordError(span, err)
			s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultRejected)
			return nil, err
		}
		s.metrics.RecordDuplicates(ctx, string(gs1.KindOrderResponse), len(result.Duplicates))
		if bundle.IsEmpty() {
			s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultDuplicate)
			return result, nil
		}

		err = s.acts.Commit(ctx, bundle)
		if err == nil {
			log.Info("order response applied", zap.Int("orders", len(result.UpdatedOrders)))
			telemetry.SetOK(span)
			s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultAccepted)
			return result, nil
		}
		if isRetryableCommit(err) && attempt < maxCommitAttempts {
			log.Warn("order response lost a commit race, rebuilding", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if errors.Is(err, shared.ErrDuplicateIdentifier) {
			log.Warn("order response already applied by a concurrent delivery", zap.Error(err))
			s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultDuplicate)
			return s.alreadyApplied(ctx, log, msg), nil
		}

		err = fmt.Errorf("apply order response: %w", asPersistenceError(err))
		log.Error("order response commit failed", zap.Error(err))
		telemetry.RecordError(span, err)
		s.metrics.RecordInbound(ctx, string(gs1.KindOrderResponse), telemetry.ResultFailed)
		return nil, err
	}
}

func (s *OrderResponseService) buildBundle(ctx context.Context, log *logger.ContextLogger, msg *gs1.OrderResponseMessage) (*act.Bundle, *OrderResponseResult, error) {
	bundle := act.NewBundle()
	result := &OrderResponseResult{}

	for i := range msg.OrderResponses {
		resp := &msg.OrderResponses[i]
		responseID := resp.Identification.EntityIdentification

		order, err := s.resolver.ResolveOrder(ctx, &resp.OriginalOrder)
		if err != nil {
			return nil, nil, err
		}
		if prior, ok := bundle.Get(order.ID); ok {
			order = prior
		}

		auth, err := s.resolver.ResolveAuthority(ctx, resp.Identification.OwnerCode())
		if err != nil {
			return nil, nil, err
		}

		if order.HasIdentifier(auth.ID, responseID) {
			log.Warn("order response already applied, ignoring", zap.String("response_id", responseID))
			result.Duplicates = append(result.Duplicates, responseID)
			continue
		}
		owners, err := s.acts.FindByIdentifier(ctx, auth.ID, responseID)
		if err != nil {
			return nil, nil, fmt.Errorf("check order response %s: %w", responseID, asPersistenceError(err))
		}
		if len(owners) > 0 {
			log.Warn("order response identifier belongs to another act, ignoring",
				zap.String("response_id", responseID), zap.String("owner_id", owners[0].ID.String()))
			result.Duplicates = append(result.Duplicates, responseID)
			continue
		}

		if !resp.Seller.IsEmpty() {
			seller, err := s.resolver.ResolveLocation(ctx, "seller", resp.Seller)
			if errors.Is(err, shared.ErrLocationNotFound) {
				return nil, nil, shared.ErrSellerNotFound.WithTarget("seller").WithCause(err)
			}
			if err != nil {
				return nil, nil, err
			}
			if !order.HasParticipation(act.RoleDistributor) {
				order.AddParticipation(act.RoleDistributor, seller.ID, nil)
			}
		}

		if err := order.AddIdentifier(act.Identifier{
			AuthorityID: auth.ID,
			Namespace:   auth.Namespace,
			Value:       responseID,
		}); err != nil {
			return nil, nil, err
		}

		switch resp.ResponseStatusCode {
		case gs1.ResponseAccepted:
			order.SetTag(act.TagOrderStatus, act.OrderStatusAccepted)
		case gs1.ResponseRejected:
			order.SetTag(act.TagOrderStatus, act.OrderStatusRejected)
		default:
			log.Debug("order response status leaves order status unchanged",
				zap.String("response_id", responseID), zap.String("status", resp.ResponseStatusCode))
		}
		order.Touch()

		if _, ok := bundle.Get(order.ID); !ok {
			result.UpdatedOrders = append(result.UpdatedOrders, order.ID)
		}
		bundle.Add(order)
	}
	return bundle, result, nil
}

// alreadyApplied reports which responses of msg the store now holds after
// the commit retries ran out
func (s *OrderResponseService) alreadyApplied(ctx context.Context, log *logger.ContextLogger, msg *gs1.OrderResponseMessage) *OrderResponseResult {
	_, rebuilt, err := s.buildBundle(ctx, log, msg)
	if err != nil {
		log.Warn("could not determine applied order responses", zap.Error(err))
		return &OrderResponseResult{}
	}
	return &OrderResponseResult{Duplicates: rebuilt.Duplicates}
}
