package gs1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

const (
	headerVersion        = "1.0"
	headerStandard       = "GS1"
	headerTypeVersion    = "3.3"
	headerAuthority      = "GS1"
	documentStatusOrigin = "ORIGINAL"
	// oidTypeCode qualifies an additional party identification holding an OID
	oidTypeCode = "urn:oid:"
)

// Composer builds outbound GS1 messages from stored acts
type Composer struct {
	resolver *Resolver
	acts     act.Repository
	terms    TermResolver
	opts     Options
	logger   *zap.Logger
}

// NewComposer creates a Composer
func NewComposer(resolver *Resolver, acts act.Repository, terms TermResolver, opts Options, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{resolver: resolver, acts: acts, terms: terms, opts: opts, logger: logger}
}

// ComposeOrder builds an Order message for a Request-mood act. Ship-to is the
// act's Location, ship-from its Distributor; each Product participation
// becomes a line item numbered from 1 in participation order.
func (c *Composer) ComposeOrder(ctx context.Context, a *act.Act) (gs1.Message, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "Composer", "ComposeOrder")
	defer span.End()

	if a.Mood != act.MoodRequest {
		err := shared.ErrInvalidState.WithTarget(a.ID.String()).WithCause(fmt.Errorf("mood %s cannot be ordered", a.Mood))
		telemetry.RecordError(span, err)
		return gs1.Message{}, err
	}

	header, err := c.documentHeader(ctx, string(gs1.KindOrder), a)
	if err != nil {
		return gs1.Message{}, err
	}

	shipTo, err := c.partyInRole(ctx, a, act.RoleLocation)
	if err != nil {
		return gs1.Message{}, err
	}
	shipFrom, err := c.partyInRole(ctx, a, act.RoleDistributor)
	if err != nil {
		return gs1.Message{}, err
	}

	requested := a.ActTime.UTC().Truncate(24 * time.Hour)
	order := gs1.Order{
		CreationDateTime:   a.CreatedAt,
		DocumentStatusCode: documentStatusOrigin,
		OrderIdentification: gs1.EntityIdentification{
			EntityIdentification: a.ID.String(),
		},
		OrderTypeCode: c.terms.OrderTypeCode(a.TypeCode),
		IsApplicationReceiptAcknowledgementRequired: true,
		Note: a.FirstNote(),
		LogisticalInformation: &gs1.OrderLogisticalInformation{
			ShipFrom: shipFrom,
			ShipTo:   shipTo,
			Timing:   &gs1.OrderTiming{RequestedDeliveryDateTime: &requested},
		},
	}

	for i, p := range a.ParticipationsByRole(act.RoleProduct) {
		item, err := c.resolver.TradeItemFor(ctx, p.PlayerID)
		if err != nil {
			telemetry.RecordError(span, err)
			return gs1.Message{}, fmt.Errorf("order %s line %d: %w", a.ID, i+1, err)
		}
		order.LineItems = append(order.LineItems, gs1.OrderLineItem{
			LineItemNumber:         i + 1,
			RequestedQuantity:      quantityOf(p, gs1.UnitUnit),
			TransactionalTradeItem: item,
		})
	}

	telemetry.SetOK(span)
	return gs1.NewOrder(&gs1.OrderMessage{Header: header, Orders: []gs1.Order{order}}), nil
}

// ComposeReceivingAdvice builds a Receiving Advice for a completed
// EventOccurrence act. The original order is found through the act's
// Arrival relationship; every Consumable participation becomes one logistic
// unit, cross-referenced to the order participation with the same player.
func (c *Composer) ComposeReceivingAdvice(ctx context.Context, a *act.Act) (gs1.Message, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "Composer", "ComposeReceivingAdvice")
	defer span.End()

	rel, ok := a.Relationship(act.RelationshipArrival)
	if !ok {
		err := shared.ErrOrderNotFound.WithTarget("arrival")
		telemetry.RecordError(span, err)
		return gs1.Message{}, err
	}
	original, err := c.acts.FindByID(ctx, rel.TargetID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.ErrOrderNotFound.WithTarget(rel.TargetID.String())
		}
		telemetry.RecordError(span, err)
		return gs1.Message{}, err
	}

	header, err := c.documentHeader(ctx, string(gs1.KindReceivingAdvice), a)
	if err != nil {
		return gs1.Message{}, err
	}
	shipTo, err := c.partyInRole(ctx, a, act.RoleLocation)
	if err != nil {
		return gs1.Message{}, err
	}
	shipFrom, err := c.partyInRole(ctx, original, act.RoleLocation)
	if err != nil {
		return gs1.Message{}, err
	}

	originalTime := original.ActTime
	despatchRef := gs1.DocumentReference{
		EntityIdentification: original.ID.String(),
		CreationDateTime:     &originalTime,
	}
	if len(original.Identifiers) > 0 {
		first := original.Identifiers[0]
		despatchRef.EntityIdentification = first.Value
		despatchRef.ContentOwner = &gs1.PartyIdentification{
			Additional: []gs1.AdditionalPartyIdentification{{TypeCode: oidTypeCode, Value: first.Namespace}},
		}
	}

	advice := gs1.ReceivingAdvice{
		CreationDateTime:   a.CreatedAt,
		DocumentStatusCode: documentStatusOrigin,
		Identification:     gs1.EntityIdentification{EntityIdentification: a.ID.String()},
		ReportingCode:      gs1.ReportingCodeFullDetails,
		ReceivingDateTime:  a.ActTime,
		Shipper:            shipFrom,
		Receiver:           shipTo,
		ShipTo:             shipTo,
		DespatchAdvice:     despatchRef,
	}

	orderLines := orderLineNumbers(original)
	for i, p := range a.ParticipationsByRole(act.RoleConsumable) {
		item, err := c.resolver.TradeItemFor(ctx, p.PlayerID)
		if err != nil {
			telemetry.RecordError(span, err)
			return gs1.Message{}, fmt.Errorf("receiving advice %s line %d: %w", a.ID, i+1, err)
		}
		line := gs1.ReceivingLineItem{
			LineItemNumber:         i + 1,
			QuantityAccepted:       quantityOf(p, gs1.UnitDose),
			TransactionalTradeItem: item,
		}
		if ordered, ok := findByPlayer(original, p.PlayerID); ok {
			if ordered.Quantity != nil {
				q := quantityOf(ordered, gs1.UnitDose)
				line.QuantityDespatched = &q
			}
			if n, ok := orderLines[ordered.ID]; ok {
				line.PurchaseOrderLine = &gs1.LineItemReference{
					EntityIdentification: original.ID.String(),
					LineItemNumber:       n,
				}
			}
		}
		advice.LogisticUnits = append(advice.LogisticUnits, gs1.ReceivingLogisticUnit{
			LineItems: []gs1.ReceivingLineItem{line},
		})
	}

	telemetry.SetOK(span)
	return gs1.NewReceivingAdvice(&gs1.ReceivingAdviceMessage{
		Header:           header,
		ReceivingAdvices: []gs1.ReceivingAdvice{advice},
	}), nil
}

// documentHeader builds the standard business document header. The sender
// is the act's author when it resolves to a place with a GLN.
func (c *Composer) documentHeader(ctx context.Context, docType string, a *act.Act) (gs1.DocumentHeader, error) {
	sender := c.opts.SenderGLN
	if author, ok := a.Participation(act.RoleAuthor); ok {
		party, err := c.resolver.PartyFor(ctx, author.PlayerID)
		switch {
		case err == nil && party.GLN != "":
			sender = party.GLN
		case err != nil && !errors.Is(err, shared.ErrLocationNotFound):
			return gs1.DocumentHeader{}, err
		}
	}

	header := gs1.DocumentHeader{
		HeaderVersion: headerVersion,
		DocumentIdentification: gs1.DocumentIdentification{
			Standard:            headerStandard,
			TypeVersion:         headerTypeVersion,
			InstanceIdentifier:  uuid.NewString(),
			Type:                docType,
			CreationDateAndTime: clock().UTC(),
		},
	}
	if sender != "" {
		header.Sender = []gs1.HeaderParty{{Identifier: gs1.HeaderIdentifier{Authority: headerAuthority, Value: sender}}}
	}
	if c.opts.ReceiverGLN != "" {
		header.Receiver = []gs1.HeaderParty{{Identifier: gs1.HeaderIdentifier{Authority: headerAuthority, Value: c.opts.ReceiverGLN}}}
	}
	return header, nil
}

// partyInRole renders the place playing role, or nil when there is none
func (c *Composer) partyInRole(ctx context.Context, a *act.Act, role act.ParticipationRole) (*gs1.PartyIdentification, error) {
	p, ok := a.Participation(role)
	if !ok {
		return nil, nil
	}
	party, err := c.resolver.PartyFor(ctx, p.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("%s of act %s: %w", role, a.ID, err)
	}
	return party, nil
}

func quantityOf(p act.Participation, unit string) gs1.Quantity {
	q := gs1.Quantity{Value: decimal.Zero, MeasurementUnitCode: unit}
	if p.Quantity != nil {
		q.Value = *p.Quantity
	}
	return q
}

func findByPlayer(a *act.Act, playerID uuid.UUID) (act.Participation, bool) {
	for _, p := range a.Participations {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return act.Participation{}, false
}

// orderLineNumbers maps each Product participation of an order to the line
// number it was given when the order was composed
func orderLineNumbers(order *act.Act) map[uuid.UUID]int {
	lines := make(map[uuid.UUID]int)
	for i, p := range order.ParticipationsByRole(act.RoleProduct) {
		lines[p.ID] = i + 1
	}
	return lines
}
