package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

// MarketDataProvider is the slice of the market client the refresh
// needs. Fetching through it repopulates the snapshot cache.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// SentimentBroadcaster pushes a fresh sentiment to stream subscribers.
type SentimentBroadcaster interface {
	BroadcastSentiment(ms domain.MarketSentiment)
}

// RefreshJob re-fetches the market universe, rescores sentiment and
// notifies stream subscribers.
type RefreshJob struct {
	log         zerolog.Logger
	markets     MarketDataProvider
	scorer      *sentiment.Scorer
	broadcaster SentimentBroadcaster // optional
	timeout     time.Duration
}

// NewRefreshJob creates a new market refresh job
func NewRefreshJob(
	log zerolog.Logger,
	markets MarketDataProvider,
	scorer *sentiment.Scorer,
	broadcaster SentimentBroadcaster,
) *RefreshJob {
	return &RefreshJob{
		log:         log.With().Str("job", "market_refresh").Logger(),
		markets:     markets,
		scorer:      scorer,
		broadcaster: broadcaster,
		timeout:     time.Minute,
	}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "market_refresh" }

// Run implements Job.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	snaps, err := j.markets.TopMarkets(ctx)
	if err != nil {
		return err
	}

	ms, err := j.scorer.Score(snaps)
	if err != nil {
		// A degraded universe (missing benchmarks) is a provider
		// problem, not a reason to stop refreshing prices.
		j.log.Warn().Err(err).Msg("Refresh fetched snapshots but sentiment scoring failed")
		return nil
	}

	if j.broadcaster != nil {
		j.broadcaster.BroadcastSentiment(ms)
	}

	j.log.Info().
		Int("assets", len(snaps)).
		Str("sentiment", string(ms.Overall)).
		Msg("Market refresh completed")
	return nil
}
