package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engrave-queue/internal/domain"
)

// Runs against a disposable database named by ENGRAVE_TEST_DSN.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("ENGRAVE_TEST_DSN")
	if dsn == "" {
		t.Skip("ENGRAVE_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, NewOrderRepository(pool).EnsureSchema(ctx))
	return pool
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:            uuid.NewString(),
		CustomerName:  "Alice",
		Email:         "alice@example.com",
		Category:      "Foil",
		ItemName:      "Blade",
		Quantity:      2,
		CostPerItem:   5,
		TimePerItem:   2,
		EngravingText: "A",
		Status:        domain.StatusPending,
		SubmittedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func find(orders []domain.Order, id string) (domain.Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func TestOrderRepositoryLifecycle(t *testing.T) {
	repo := NewOrderRepository(testPool(t))
	ctx := context.Background()
	o := sampleOrder()

	require.NoError(t, repo.Create(ctx, o, o.Email))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	got, ok := find(all, o.ID)
	require.True(t, ok)
	assert.Equal(t, o, got)

	done := o.SubmittedAt.Add(time.Minute)
	require.NoError(t, repo.UpdateStatus(ctx, o.ID, domain.StatusCompleted, &done, "admin"))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	got, _ = find(all, o.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))

	timeline, err := repo.Timeline(ctx, o.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.StatusPending, timeline[0].Status)
	assert.Equal(t, "admin", timeline[1].ChangedBy)

	require.NoError(t, repo.Delete(ctx, o.ID))
	assert.ErrorIs(t, repo.Delete(ctx, o.ID), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, o.ID, domain.StatusPending, nil, "admin"), domain.ErrNotFound)
}

func TestSubscribeDeliversChanges(t *testing.T) {
	repo := NewOrderRepository(testPool(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []domain.Order, 8)
	errCh := make(chan error, 1)
	go func() { errCh <- repo.Subscribe(ctx, func(o []domain.Order) { snapshots <- o }) }()

	select {
	case <-snapshots:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	o := sampleOrder()
	require.NoError(t, repo.Create(context.Background(), o, o.Email))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-snapshots:
			if _, ok := find(snap, o.ID); ok {
				cancel()
				assert.NoError(t, <-errCh)
				return
			}
		case <-deadline:
			t.Fatal("change not delivered")
		}
	}
}
