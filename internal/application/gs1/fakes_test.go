package gs1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/authority"
	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/entity"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

// memoryStore implements every repository port the package uses. It keeps
// private copies of stored acts and enforces identifier uniqueness and
// optimistic versions like the GORM store does.
type memoryStore struct {
	mu          sync.Mutex
	acts        map[uuid.UUID]*act.Act
	places      map[uuid.UUID]*entity.Place
	materials   map[uuid.UUID]*entity.Material
	authorities []*authority.Authority
	commits     int
	// commitHook runs before a commit is applied; a non-nil error aborts it
	commitHook func(s *memoryStore, b *act.Bundle) error
	published  []shared.DomainEvent
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		acts:      make(map[uuid.UUID]*act.Act),
		places:    make(map[uuid.UUID]*entity.Place),
		materials: make(map[uuid.UUID]*entity.Material),
	}
}

func cloneAct(a *act.Act) *act.Act {
	cp := *a
	cp.Identifiers = append([]act.Identifier(nil), a.Identifiers...)
	cp.Tags = append([]act.Tag(nil), a.Tags...)
	cp.Participations = append([]act.Participation(nil), a.Participations...)
	cp.Relationships = append([]act.Relationship(nil), a.Relationships...)
	cp.Notes = append([]act.Note(nil), a.Notes...)
	cp.Extensions = append([]act.Extension(nil), a.Extensions...)
	return &cp
}

func (s *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*act.Act, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.acts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneAct(a), nil
}

func (s *memoryStore) FindByIdentifier(ctx context.Context, authorityID uuid.UUID, value string) ([]*act.Act, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*act.Act
	for _, a := range s.acts {
		if a.HasIdentifier(authorityID, value) {
			result = append(result, cloneAct(a))
		}
	}
	return result, nil
}

func (s *memoryStore) FindByIdentifierValue(ctx context.Context, value string, mood act.Mood) ([]*act.Act, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*act.Act
	for _, a := range s.acts {
		if a.Mood != mood {
			continue
		}
		for _, id := range a.Identifiers {
			if id.Value == value {
				result = append(result, cloneAct(a))
				break
			}
		}
	}
	return result, nil
}

func (s *memoryStore) Insert(ctx context.Context, a *act.Act) error {
	b := act.NewBundle()
	b.Add(a)
	return s.Commit(ctx, b)
}

func (s *memoryStore) Commit(ctx context.Context, b *act.Bundle) error {
	if s.commitHook != nil {
		hook := s.commitHook
		s.commitHook = nil
		if err := hook(s, b); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := make(map[string]uuid.UUID)
	for id, a := range s.acts {
		for _, ident := range a.Identifiers {
			owner[ident.AuthorityID.String()+"|"+ident.Value] = id
		}
	}
	for _, a := range b.Acts {
		if stored, ok := s.acts[a.ID]; ok && stored.Version != a.Version {
			return shared.ErrConcurrencyConflict
		}
		for _, ident := range a.Identifiers {
			key := ident.AuthorityID.String() + "|" + ident.Value
			if other, ok := owner[key]; ok && other != a.ID {
				return shared.ErrDuplicateIdentifier.WithTarget(ident.Value)
			}
			owner[key] = a.ID
		}
	}

	var inserted, updated []*act.Act
	for _, a := range b.Acts {
		if _, ok := s.acts[a.ID]; ok {
			updated = append(updated, a)
		} else {
			inserted = append(inserted, a)
		}
		a.Version++
		s.acts[a.ID] = cloneAct(a)
	}
	for _, m := range b.Materials {
		cp := *m
		s.materials[m.ID] = &cp
	}
	s.commits++
	if len(b.Acts) == 1 && len(inserted) == 1 && len(b.Materials) == 0 {
		s.published = append(s.published, act.NewActInsertedEvent(inserted[0]))
	} else {
		s.published = append(s.published, act.NewBundleCommittedEvent(inserted, updated))
	}
	return nil
}

func (s *memoryStore) actCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acts)
}

func (s *memoryStore) mustAct(t *testing.T, id uuid.UUID) *act.Act {
	t.Helper()
	a, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

// places

type placeRepo struct{ s *memoryStore }

func (r placeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Place, error) {
	p, ok := r.s.places[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r placeRepo) FindByIdentifierValue(ctx context.Context, value string) ([]*entity.Place, error) {
	var result []*entity.Place
	for _, p := range r.s.places {
		for _, id := range p.Identifiers {
			if id.Value == value {
				result = append(result, p)
				break
			}
		}
	}
	return result, nil
}

// materials

type materialRepo struct{ s *memoryStore }

func (r materialRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.materials[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return m, nil
}

func (r materialRepo) FindByGTIN(ctx context.Context, gtin string) (*entity.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.materials {
		if m.Kind == entity.MaterialGeneric && m.GTIN == gtin {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r materialRepo) FindManufactured(ctx context.Context, gtin, lot string) (*entity.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.materials {
		if m.IsManufactured() && m.GTIN == gtin && m.LotNumber == lot {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

// authorities

type authorityRepo struct{ s *memoryStore }

func (r authorityRepo) Get(ctx context.Context, name string) (*authority.Authority, error) {
	for _, a := range r.s.authorities {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r authorityRepo) FindByNamespace(ctx context.Context, namespace string) (*authority.Authority, error) {
	for _, a := range r.s.authorities {
		if a.Namespace == namespace {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

type recordingQueue struct {
	mu      sync.Mutex
	entries map[string][]*delivery.Entry
	err     error
}

func newRecordingQueue() *recordingQueue {
	return &recordingQueue{entries: make(map[string][]*delivery.Entry)}
}

func (q *recordingQueue) Open(ctx context.Context, name string) error { return nil }

func (q *recordingQueue) Enqueue(ctx context.Context, name string, e *delivery.Entry) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[name] = append(q.entries[name], e)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context, name string) (*delivery.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries[name]) == 0 {
		return nil, nil
	}
	e := q.entries[name][0]
	q.entries[name] = q.entries[name][1:]
	return e, nil
}

func (q *recordingQueue) Subscribe(name string, l delivery.Listener)   {}
func (q *recordingQueue) Unsubscribe(name string, l delivery.Listener) {}

func (q *recordingQueue) messages(t *testing.T, name string) []gs1.Message {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	var msgs []gs1.Message
	for _, e := range q.entries[name] {
		msg, err := delivery.DecodeEntry(e)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

const (
	partnerGLN  = "0614141000005"
	shipperGLN  = "0614141000029"
	receiverGLN = "0614141000012"
	sellerGLN   = "0614141000036"
	vaccineGTIN = "00614141999996"
)

type fixture struct {
	store     *memoryStore
	queue     *recordingQueue
	opts      Options
	resolver  *Resolver
	despatch  *DespatchService
	responses *OrderResponseService
	composer  *Composer
	trigger   *Trigger

	gln, gtin, partner, defaultOwner *authority.Authority
	shipper, receiver, seller        *entity.Place
	product, lot                     *entity.Material
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	store := newMemoryStore()
	f := &fixture{store: store, queue: newRecordingQueue()}

	f.gln = &authority.Authority{ID: uuid.New(), Name: "GLN", Namespace: "1.3.160"}
	f.gtin = &authority.Authority{ID: uuid.New(), Name: "GTIN", Namespace: "1.3.160.1"}
	f.partner = &authority.Authority{ID: uuid.New(), Name: "ACME", Namespace: "1.3.160." + partnerGLN}
	f.defaultOwner = &authority.Authority{ID: uuid.New(), Name: "GS1_DEFAULT", Namespace: "2.25.1"}
	store.authorities = []*authority.Authority{f.gln, f.gtin, f.partner, f.defaultOwner}

	f.shipper = f.addPlace("Central Warehouse", shipperGLN)
	f.receiver = f.addPlace("District Store", receiverGLN)
	f.seller = f.addPlace("Supplier", sellerGLN)

	f.product = &entity.Material{
		BaseEntity: shared.NewBaseEntity(),
		Kind:       entity.MaterialGeneric,
		Name:       "Measles vaccine",
		TypeCode:   "VaccineType",
		GTIN:       vaccineGTIN,
		Identifiers: []entity.Identifier{
			{AuthorityID: f.gtin.ID, AuthorityName: "GTIN", Namespace: f.gtin.Namespace, Value: vaccineGTIN},
		},
	}
	expiry := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	f.lot = entity.NewManufacturedMaterial(vaccineGTIN, "LOT-9", "Measles vaccine", &expiry)
	store.materials[f.product.ID] = f.product
	store.materials[f.lot.ID] = f.lot

	f.opts = DefaultOptions()
	f.opts.DefaultContentOwnerAuthority = f.defaultOwner.Name
	f.opts.SenderGLN = receiverGLN
	f.opts.ReceiverGLN = sellerGLN
	for _, m := range mutate {
		m(&f.opts)
	}

	logger := zap.NewNop()
	f.resolver = NewResolver(authorityRepo{store}, placeRepo{store}, materialRepo{store}, store, f.opts, logger)
	f.despatch = NewDespatchService(f.resolver, store, logger)
	f.responses = NewOrderResponseService(f.resolver, store, logger)
	f.composer = NewComposer(f.resolver, store, NewStaticTermResolver(f.opts), f.opts, logger)
	f.trigger = NewTrigger(f.composer, f.queue, f.opts, logger)
	return f
}

func (f *fixture) addPlace(name, gln string) *entity.Place {
	p := &entity.Place{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Identifiers: []entity.Identifier{
			{AuthorityID: f.gln.ID, AuthorityName: "GLN", Namespace: f.gln.Namespace, Value: gln},
		},
	}
	f.store.places[p.ID] = p
	return p
}

// storeOrder stores an active Request act shipping to the receiver
func (f *fixture) storeOrder(t *testing.T, lines ...decimal.Decimal) *act.Act {
	t.Helper()
	order := act.New(act.MoodRequest, act.StatusActive, time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC))
	order.AddParticipation(act.RoleLocation, f.receiver.ID, nil)
	for i := range lines {
		q := lines[i]
		order.AddParticipation(act.RoleProduct, f.product.ID, &q)
	}
	b := act.NewBundle()
	b.Add(order)
	require.NoError(t, f.store.Commit(context.Background(), b))
	return f.store.mustAct(t, order.ID)
}

func ptrTime(t time.Time) *time.Time { return &t }

// despatchAdvice builds a single-advice message shipping one lot
func despatchAdvice(id, ownerGLN string, orderRef *gs1.DocumentReference, unit string) gs1.DespatchAdvice {
	adv := gs1.DespatchAdvice{
		CreationDateTime:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		DocumentStatusCode: "ORIGINAL",
		Identification:     gs1.EntityIdentification{EntityIdentification: id},
		Shipper:            &gs1.PartyIdentification{GLN: shipperGLN},
		Receiver:           &gs1.PartyIdentification{GLN: receiverGLN},
		PurchaseOrder:      orderRef,
		DespatchInformation: gs1.DespatchInformation{
			ActualShipDateTime:        ptrTime(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
			EstimatedDeliveryDateTime: ptrTime(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)),
		},
		LogisticUnits: []gs1.DespatchLogisticUnit{{
			LineItems: []gs1.DespatchLineItem{{
				LineItemNumber:     1,
				DespatchedQuantity: gs1.Quantity{Value: decimal.NewFromInt(100), MeasurementUnitCode: unit},
				TransactionalTradeItem: gs1.TransactionalTradeItem{
					GTIN:     vaccineGTIN,
					ItemData: &gs1.TransactionalItemData{BatchNumber: "LOT-9"},
				},
			}},
		}},
	}
	if ownerGLN != "" {
		adv.Identification.ContentOwner = &gs1.PartyIdentification{GLN: ownerGLN}
	}
	return adv
}

func despatchMessage(advices ...gs1.DespatchAdvice) *gs1.DespatchAdviceMessage {
	msg := &gs1.DespatchAdviceMessage{DespatchAdvices: advices}
	msg.Header.DocumentIdentification.InstanceIdentifier = uuid.NewString()
	return msg
}
