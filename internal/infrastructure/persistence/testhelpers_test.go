package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/erp/gs1bridge/internal/domain/authority"
	"github.com/erp/gs1bridge/internal/domain/entity"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

// setupTestDB opens a migrated SQLite database in a temp file. A file is
// used instead of :memory: so every pooled connection sees the same data.
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := Open(sqlite.Open(path+"?_busy_timeout=5000"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) all() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

type seed struct {
	gln, gtin, partner *authority.Authority
	shipper, receiver  *entity.Place
	product            *entity.Material
}

func seedReferenceData(t *testing.T, db *Database) seed {
	t.Helper()
	ctx := context.Background()
	s := seed{
		gln:     &authority.Authority{ID: uuid.New(), Name: "GLN", Namespace: "1.3.160"},
		gtin:    &authority.Authority{ID: uuid.New(), Name: "GTIN", Namespace: "1.3.160.1"},
		partner: &authority.Authority{ID: uuid.New(), Name: "ACME", Namespace: "1.3.160.0614141000005"},
	}
	authorities := NewGormAuthorityRepository(db.DB)
	for _, a := range []*authority.Authority{s.gln, s.gtin, s.partner} {
		// migrated databases already carry the GS1 authorities
		if existing, err := authorities.Get(ctx, a.Name); err == nil {
			*a = *existing
			continue
		}
		require.NoError(t, authorities.Save(ctx, a))
	}

	places := NewGormPlaceRepository(db.DB)
	s.shipper = &entity.Place{BaseEntity: shared.NewBaseEntity(), Name: "Shipper DC",
		Identifiers: []entity.Identifier{{AuthorityID: s.gln.ID, Value: "0614141000029"}}}
	s.receiver = &entity.Place{BaseEntity: shared.NewBaseEntity(), Name: "Regional Store",
		Identifiers: []entity.Identifier{{AuthorityID: s.gln.ID, Value: "0614141000012"}}}
	require.NoError(t, places.Save(ctx, s.shipper))
	require.NoError(t, places.Save(ctx, s.receiver))

	s.product = &entity.Material{BaseEntity: shared.NewBaseEntity(), Kind: entity.MaterialGeneric,
		Name: "Measles vaccine", TypeCode: "VaccineType", GTIN: "00614141999996",
		Identifiers: []entity.Identifier{{AuthorityID: s.gtin.ID, Value: "00614141999996"}}}
	require.NoError(t, NewGormMaterialRepository(db.DB).Save(ctx, s.product))
	return s
}

func ptrTime(t time.Time) *time.Time { return &t }
