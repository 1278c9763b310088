//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/testutil"
)

func setupPostgres(t *testing.T) *Database {
	t.Helper()
	pg := testutil.NewPostgres(t)
	return &Database{DB: pg.DB, Driver: "postgres"}
}

func TestPostgres_MigratedSchemaMatchesModels(t *testing.T) {
	db := setupPostgres(t)
	s := seedReferenceData(t, db)

	// seeded authorities are reused, not duplicated
	gln, err := NewGormAuthorityRepository(db.DB).Get(context.Background(), "GLN")
	require.NoError(t, err)
	assert.Equal(t, gln.ID, s.gln.ID)

	repo := NewGormActRepository(db.DB, nil)
	order := newOrder(t, s, "PO-9001")
	require.NoError(t, repo.Insert(context.Background(), order))

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Identifiers, 1)
	assert.Equal(t, s.partner.Namespace, got.Identifiers[0].Namespace)
}

func TestPostgres_ConcurrentDuplicateIdentifier(t *testing.T) {
	db := setupPostgres(t)
	s := seedReferenceData(t, db)
	repo := NewGormActRepository(db.DB, nil)

	const writers = 6
	var wg sync.WaitGroup
	errs := make([]error, writers)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		order := newOrder(t, s, "PO-RACE")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = repo.Insert(context.Background(), order)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrDuplicateIdentifier):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, dup)

	found, err := repo.FindByIdentifier(context.Background(), s.partner.ID, "PO-RACE")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestPostgres_ConcurrentUpdateConflict(t *testing.T) {
	db := setupPostgres(t)
	s := seedReferenceData(t, db)
	repo := NewGormActRepository(db.DB, nil)
	ctx := context.Background()

	order := newOrder(t, s, "PO-9100")
	require.NoError(t, repo.Insert(ctx, order))

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	first.AddNote("first writer")
	second.AddNote("second writer")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, a := range []*act.Act{first, second} {
		wg.Add(1)
		go func(i int, a *act.Act) {
			defer wg.Done()
			b := act.NewBundle()
			b.Add(a)
			errs[i] = repo.Commit(ctx, b)
		}(i, a)
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			conflicts++
		} else {
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, conflicts)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}
