package watchlist

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/domain"
	testingutil "github.com/signalist/signalist/internal/testing"
)

func newService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	provider, _ := testingutil.NewTestProvider(t)
	repo := NewRepository(provider, zerolog.Nop())
	dir := testingutil.NewMockUserDirectory(testingutil.NewUserFixtures()...)
	svc := NewService(repo, dir, zerolog.Nop())
	svc.SetMetricsFunc(func(string) domain.Metrics {
		return domain.Metrics{Price: 100, ChangePercent: 1.5, MarketCap: 2e9, PERatio: 20}
	})
	return svc, repo
}

func TestAdd_IsIdempotent(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	added, err := svc.AddByEmail(ctx, "ada@example.com", " aapl ", "Apple Inc.")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.AddByEmail(ctx, "ada@example.com", "AAPL", "Apple Inc.")
	require.NoError(t, err)
	assert.False(t, added)

	items, err := repo.List(ctx, "u-ada")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "AAPL", items[0].Symbol)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, 100.0, *items[0].Price)
}

func TestAdd_ConcurrentDuplicatesYieldOneRow(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddByEmail(ctx, "bob@example.com", "msft", "Microsoft"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	symbols, err := repo.Symbols(ctx, "u-bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, symbols)
}

func TestToggle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	action, err := svc.ToggleByEmail(ctx, "ada@example.com", "tsla", "Tesla")
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, action)

	symbols, err := svc.SymbolsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, symbols)

	action, err = svc.ToggleByEmail(ctx, "ada@example.com", "TSLA", "Tesla")
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, action)

	symbols, err = svc.SymbolsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestUnknownUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	symbols, err := svc.SymbolsByEmail(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, symbols)

	_, err = svc.AddByEmail(ctx, "ghost@example.com", "AAPL", "Apple")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.ToggleByEmail(ctx, "ghost@example.com", "AAPL", "Apple")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.RemoveByEmail(ctx, "ghost@example.com", "AAPL")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRemoveAndUpdateMetrics(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	_, err := svc.AddByEmail(ctx, "ada@example.com", "NVDA", "NVIDIA")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateMetrics(ctx, "u-ada", "nvda", domain.Metrics{Price: 900, ChangePercent: -2, MarketCap: 2e12, PERatio: 60}))
	items, err := svc.ListByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 900.0, *items[0].Price)
	assert.Equal(t, -2.0, *items[0].ChangePercent)

	removed, err := svc.RemoveByEmail(ctx, "ada@example.com", "nvda")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RemoveByEmail(ctx, "ada@example.com", "nvda")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPlaceholderMetricsRanges(t *testing.T) {
	for i := 0; i < 200; i++ {
		m := PlaceholderMetrics("AAPL")
		assert.GreaterOrEqual(t, m.Price, 50.0)
		assert.LessOrEqual(t, m.Price, 500.0)
		assert.GreaterOrEqual(t, m.ChangePercent, -5.0)
		assert.LessOrEqual(t, m.ChangePercent, 5.0)
		assert.GreaterOrEqual(t, m.MarketCap, 1e9)
		assert.Less(t, m.MarketCap, 1e12)
		assert.GreaterOrEqual(t, m.PERatio, 5.0)
		assert.LessOrEqual(t, m.PERatio, 40.0)
	}
}
