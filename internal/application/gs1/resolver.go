package gs1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/authority"
	"github.com/erp/gs1bridge/internal/domain/entity"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
)

// Resolver maps GS1 references onto stored authorities, places, materials
// and orders, and renders stored entities back into GS1 references.
type Resolver struct {
	authorities authority.Repository
	places      entity.PlaceRepository
	materials   entity.MaterialRepository
	acts        act.Repository
	opts        Options
	logger      *zap.Logger
}

// NewResolver creates a Resolver
func NewResolver(
	authorities authority.Repository,
	places entity.PlaceRepository,
	materials entity.MaterialRepository,
	acts act.Repository,
	opts Options,
	logger *zap.Logger,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		authorities: authorities,
		places:      places,
		materials:   materials,
		acts:        acts,
		opts:        opts,
		logger:      logger,
	}
}

// ---------------------------------------------------------------------------
// Authorities
// ---------------------------------------------------------------------------

// ResolveAuthority returns the authority owning identifiers issued by the
// partner with the given code. The partner authority lives beneath the
// location authority namespace; when the code is empty or unknown the
// configured default content owner authority is used.
func (r *Resolver) ResolveAuthority(ctx context.Context, partnerCode string) (*authority.Authority, error) {
	if code := strings.TrimSpace(partnerCode); code != "" {
		base, err := r.authorities.Get(ctx, r.opts.LocationAuthority)
		switch {
		case err == nil:
			child, err := r.authorities.FindByNamespace(ctx, base.ChildNamespace(code))
			if err == nil {
				return child, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("find partner authority: %w", err)
			}
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("get location authority: %w", err)
		}
	}

	if r.opts.DefaultContentOwnerAuthority == "" {
		return nil, shared.ErrAuthorityNotFound.WithTarget(partnerCode)
	}
	def, err := r.authorities.Get(ctx, r.opts.DefaultContentOwnerAuthority)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthorityNotFound.WithTarget(r.opts.DefaultContentOwnerAuthority)
		}
		return nil, fmt.Errorf("get default authority: %w", err)
	}
	return def, nil
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

// ResolveLocation finds the stored place identified by party. The GLN is
// tried first, then each additional party identification. role names the
// party in the returned error.
func (r *Resolver) ResolveLocation(ctx context.Context, role string, party *gs1.PartyIdentification) (*entity.Place, error) {
	if party.IsEmpty() {
		return nil, shared.ErrLocationNotFound.WithTarget(role)
	}

	candidates := make([]string, 0, 1+len(party.Additional))
	if party.GLN != "" {
		candidates = append(candidates, party.GLN)
	}
	for _, add := range party.Additional {
		if add.Value != "" {
			candidates = append(candidates, add.Value)
		}
	}

	for _, value := range candidates {
		places, err := r.places.FindByIdentifierValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("resolve %s location: %w", role, err)
		}
		if len(places) > 0 {
			if len(places) > 1 {
				r.logger.Warn("identifier matches several places, using first",
					zap.String("role", role), zap.String("value", value), zap.Int("matches", len(places)))
			}
			return places[0], nil
		}
		if id, err := uuid.Parse(value); err == nil {
			place, err := r.places.FindByID(ctx, id)
			if err == nil {
				return place, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("resolve %s location: %w", role, err)
			}
		}
	}
	return nil, shared.ErrLocationNotFound.WithTarget(role)
}

// PartyFor renders a stored place as a GS1 party identification: the GLN
// from the location authority plus every other identifier as an additional
// identification typed by its authority name.
func (r *Resolver) PartyFor(ctx context.Context, placeID uuid.UUID) (*gs1.PartyIdentification, error) {
	place, err := r.places.FindByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrLocationNotFound.WithTarget(placeID.String())
		}
		return nil, err
	}

	party := &gs1.PartyIdentification{}
	for _, id := range place.Identifiers {
		if id.AuthorityName == r.opts.LocationAuthority && party.GLN == "" {
			party.GLN = id.Value
			continue
		}
		party.Additional = append(party.Additional, gs1.AdditionalPartyIdentification{
			TypeCode: id.AuthorityName,
			Value:    id.Value,
		})
	}
	if party.IsEmpty() {
		party.Additional = append(party.Additional, gs1.AdditionalPartyIdentification{
			TypeCode: "KEY",
			Value:    place.ID.String(),
		})
	}
	return party, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// ResolveOrder finds the Request-mood act referenced by ref. Orders issued by
// this system are referenced by act ID; partner-numbered orders by an
// identifier, preferably under the content owner's authority.
func (r *Resolver) ResolveOrder(ctx context.Context, ref *gs1.DocumentReference) (*act.Act, error) {
	if ref == nil || strings.TrimSpace(ref.EntityIdentification) == "" {
		return nil, shared.ErrOrderNotFound.WithTarget("reference")
	}
	value := strings.TrimSpace(ref.EntityIdentification)

	if id, err := uuid.Parse(value); err == nil {
		order, err := r.acts.FindByID(ctx, id)
		switch {
		case err == nil && order.Mood == act.MoodRequest:
			return order, nil
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("find order %s: %w", value, err)
		}
	}

	if code := ref.OwnerCode(); code != "" {
		auth, err := r.ResolveAuthority(ctx, code)
		if err != nil && !errors.Is(err, shared.ErrAuthorityNotFound) {
			return nil, err
		}
		if auth != nil {
			found, err := r.acts.FindByIdentifier(ctx, auth.ID, value)
			if err != nil {
				return nil, fmt.Errorf("find order %s: %w", value, err)
			}
			for _, a := range found {
				if a.Mood == act.MoodRequest {
					return a, nil
				}
			}
		}
	}

	found, err := r.acts.FindByIdentifierValue(ctx, value, act.MoodRequest)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", value, err)
	}
	if len(found) == 0 {
		return nil, shared.ErrOrderNotFound.WithTarget(value)
	}
	return found[0], nil
}

// ---------------------------------------------------------------------------
// Materials
// ---------------------------------------------------------------------------

// ResolveMaterial finds the manufactured material (lot) described by item.
// Materials already created for bundle are reused. When none exists and
// auto-creation is enabled, a new lot is created and added to bundle so it
// is committed with the message.
func (r *Resolver) ResolveMaterial(ctx context.Context, item gs1.TransactionalTradeItem, bundle *act.Bundle) (*entity.Material, error) {
	gtin := item.GTIN
	if gtin == "" && len(item.Additional) > 0 {
		gtin = item.Additional[0].Value
	}
	if gtin == "" {
		return nil, shared.ErrMaterialNotFound.WithTarget("gtin")
	}
	lot, expiry := item.Lot()

	for _, m := range bundle.Materials {
		if m.GTIN == gtin && m.LotNumber == lot {
			return m, nil
		}
	}

	found, err := r.materials.FindManufactured(ctx, gtin, lot)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find material %s/%s: %w", gtin, lot, err)
	}
	if !r.opts.AutoCreateMaterials {
		return nil, shared.ErrMaterialNotFound.WithTarget(gtin + "/" + lot)
	}

	name := item.TradeItemDescription
	typeCode := ""
	if generic, err := r.materials.FindByGTIN(ctx, gtin); err == nil {
		if name == "" {
			name = generic.Name
		}
		typeCode = generic.TypeCode
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find product %s: %w", gtin, err)
	}

	created := entity.NewManufacturedMaterial(gtin, lot, name, expiry)
	created.TypeCode = typeCode
	if auth, err := r.authorities.Get(ctx, r.opts.ProductAuthority); err == nil {
		created.Identifiers = append(created.Identifiers, entity.Identifier{
			AuthorityID:   auth.ID,
			Namespace:     auth.Namespace,
			AuthorityName: auth.Name,
			Value:         gtin,
		})
	}
	bundle.AddMaterial(created)

	r.logger.Info("created manufactured material",
		zap.String("gtin", gtin), zap.String("lot", lot), zap.String("material_id", created.ID.String()))
	return created, nil
}

// TradeItemFor renders a stored material as a GS1 trade item
func (r *Resolver) TradeItemFor(ctx context.Context, materialID uuid.UUID) (gs1.TransactionalTradeItem, error) {
	m, err := r.materials.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return gs1.TransactionalTradeItem{}, shared.ErrMaterialNotFound.WithTarget(materialID.String())
		}
		return gs1.TransactionalTradeItem{}, err
	}

	item := gs1.TransactionalTradeItem{
		GTIN:                 m.GTIN,
		TradeItemDescription: m.Name,
	}
	for _, id := range m.Identifiers {
		if id.AuthorityName == r.opts.ProductAuthority {
			if item.GTIN == "" {
				item.GTIN = id.Value
			}
			continue
		}
		item.Additional = append(item.Additional, gs1.AdditionalTradeItemIdentification{
			TypeCode: id.AuthorityName,
			Value:    id.Value,
		})
	}
	if m.IsManufactured() {
		item.ItemData = &gs1.TransactionalItemData{
			BatchNumber:        m.LotNumber,
			ItemExpirationDate: m.ExpiryDate,
		}
	}
	return item, nil
}
