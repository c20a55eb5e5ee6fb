package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/signalist/signalist/internal/domain"
)

// MarketCapSource looks up a symbol's market capitalisation in USD. 0 means unknown.
type MarketCapSource interface {
	MarketCap(ctx context.Context, symbol string) (float64, error)
}

// MetricsRefreshJob replaces the stored market cap of every watchlist item with the
// provider's figure. Other metrics are left as they are.
type MetricsRefreshJob struct {
	repo    *Repository
	source  MarketCapSource
	timeout time.Duration
	log     zerolog.Logger
}

// NewMetricsRefreshJob creates the refresh job
func NewMetricsRefreshJob(repo *Repository, source MarketCapSource, log zerolog.Logger) *MetricsRefreshJob {
	return &MetricsRefreshJob{
		repo:    repo,
		source:  source,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "watchlist_metrics_refresh").Logger(),
	}
}

// Name returns the job name
func (j *MetricsRefreshJob) Name() string {
	return "watchlist_metrics_refresh"
}

// Run executes the job. A failed symbol is logged and skipped.
func (j *MetricsRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.Refresh(ctx)
	return err
}

// Refresh updates every item and returns how many rows changed
func (j *MetricsRefreshJob) Refresh(ctx context.Context) (int, error) {
	items, err := j.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load watchlists: %w", err)
	}

	// symbol -> market cap; one lookup per symbol across all users
	caps := make(map[string]float64)
	updated := 0
	for _, item := range items {
		mcap, ok := caps[item.Symbol]
		if !ok {
			mcap, err = j.source.MarketCap(ctx, item.Symbol)
			if err != nil {
				j.log.Warn().Err(err).Str("symbol", item.Symbol).Msg("Failed to fetch market cap")
				mcap = 0
			}
			caps[item.Symbol] = mcap
		}
		if mcap <= 0 {
			continue
		}

		m := metricsOf(item)
		m.MarketCap = mcap
		if err := j.repo.UpdateMetrics(ctx, item.UserID, item.Symbol, m); err != nil {
			j.log.Error().Err(err).Str("symbol", item.Symbol).Str("user_id", item.UserID).Msg("Failed to update metrics")
			continue
		}
		updated++
	}

	j.log.Info().Int("items", len(items)).Int("symbols", len(caps)).Int("updated", updated).Msg("Watchlist metrics refreshed")
	return updated, nil
}

func metricsOf(item domain.WatchlistItem) domain.Metrics {
	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return domain.Metrics{
		Price:         deref(item.Price),
		ChangePercent: deref(item.ChangePercent),
		MarketCap:     deref(item.MarketCap),
		PERatio:       deref(item.PERatio),
	}
}
