package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/allocation"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

// MarketDataProvider supplies the asset universe the generator
// allocates over. Implemented by the coingecko client.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// maxAssetsTable caps how many assets a generated portfolio holds,
// including the stable reserve. Wider books for the riskier profiles.
var maxAssetsTable = map[domain.RiskProfile]int{
	domain.ProfileConservative: 5,
	domain.ProfileBalanced:     8,
	domain.ProfileAggressive:   10,
	domain.ProfileDegen:        12,
}

// Service drives the portfolio lifecycle.
type Service struct {
	log     zerolog.Logger
	repo    *Repository
	markets MarketDataProvider
	scorer  *sentiment.Scorer
	engine  *allocation.Engine
}

// NewService creates a new portfolio service
func NewService(
	log zerolog.Logger,
	repo *Repository,
	markets MarketDataProvider,
	scorer *sentiment.Scorer,
	engine *allocation.Engine,
) *Service {
	return &Service{
		log:     log.With().Str("service", "portfolio").Logger(),
		repo:    repo,
		markets: markets,
		scorer:  scorer,
		engine:  engine,
	}
}

// Generate builds a new portfolio: fetch the universe, score sentiment,
// run the allocation pipeline, and convert percentages into positions
// at current prices. The new portfolio is persisted before returning.
func (s *Service) Generate(ctx context.Context, name string, profile domain.RiskProfile, capital float64) (*domain.Portfolio, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRiskProfile, profile)
	}
	if capital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %f", capital)
	}

	universe, err := s.markets.TopMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market universe: %w", err)
	}

	ms, err := s.scorer.Score(universe)
	if err != nil {
		return nil, fmt.Errorf("failed to score sentiment: %w", err)
	}

	selected := selectUniverse(universe, maxAssetsTable[profile])

	plan, err := s.engine.BuildPlan(selected, profile, ms)
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation plan: %w", err)
	}

	now := time.Now().UTC()
	p := &domain.Portfolio{
		ID:              uuid.NewString(),
		Name:            name,
		Profile:         profile,
		StartingCapital: capital,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, snap := range selected {
		pct, ok := plan.Adjusted[snap.ID]
		if !ok || pct <= 0 || snap.Price <= 0 {
			continue
		}
		value := capital * pct / 100
		p.Assets = append(p.Assets, domain.PortfolioAsset{
			AssetSnapshot: snap,
			Allocation:    pct,
			Quantity:      value / snap.Price,
			CostBasis:     value,
		})
	}
	p.Recalculate()

	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio", p.ID).
		Str("profile", string(profile)).
		Int("assets", len(p.Assets)).
		Float64("capital", capital).
		Msg("Generated portfolio")

	return p, nil
}

// RefreshPrices replaces each holding's snapshot with the latest market
// data and recomputes values and allocations. Assets missing from the
// refresh keep their previous snapshot.
func (s *Service) RefreshPrices(ctx context.Context, id string) (*domain.Portfolio, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	universe, err := s.markets.TopMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market universe: %w", err)
	}
	byID := make(map[string]domain.AssetSnapshot, len(universe))
	for _, snap := range universe {
		byID[snap.ID] = snap
	}

	stale := 0
	for i := range p.Assets {
		snap, ok := byID[p.Assets[i].ID]
		if !ok {
			stale++
			continue
		}
		p.Assets[i].AssetSnapshot = snap
	}
	p.Recalculate()
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	if stale > 0 {
		s.log.Warn().
			Str("portfolio", p.ID).
			Int("stale", stale).
			Msg("Some holdings missing from refresh, kept previous snapshots")
	}

	return p, nil
}

// ConvertProfile rebuilds the portfolio's positions for a new risk
// profile at the current total value, keeping the original cost basis
// history at the portfolio level.
func (s *Service) ConvertProfile(ctx context.Context, id string, profile domain.RiskProfile) (*domain.Portfolio, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRiskProfile, profile)
	}

	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.TotalValue <= 0 {
		return nil, fmt.Errorf("portfolio %s has no value to reallocate", id)
	}

	universe, err := s.markets.TopMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market universe: %w", err)
	}

	ms, err := s.scorer.Score(universe)
	if err != nil {
		return nil, fmt.Errorf("failed to score sentiment: %w", err)
	}

	selected := selectUniverse(universe, maxAssetsTable[profile])
	plan, err := s.engine.BuildPlan(selected, profile, ms)
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation plan: %w", err)
	}

	value := p.TotalValue
	p.Profile = profile
	p.Assets = nil
	for _, snap := range selected {
		pct, ok := plan.Adjusted[snap.ID]
		if !ok || pct <= 0 || snap.Price <= 0 {
			continue
		}
		slice := value * pct / 100
		p.Assets = append(p.Assets, domain.PortfolioAsset{
			AssetSnapshot: snap,
			Allocation:    pct,
			Quantity:      slice / snap.Price,
			CostBasis:     slice,
		})
	}
	p.Recalculate()
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio", p.ID).
		Str("profile", string(profile)).
		Msg("Converted portfolio risk profile")

	return p, nil
}

// UpdateHolding manually edits one position's quantity. Buys add to the
// cost basis at the current price; sells keep the average cost per unit.
// A zero quantity removes the position.
func (s *Service) UpdateHolding(id, assetID string, quantity float64) (*domain.Portfolio, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must be non-negative")
	}

	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range p.Assets {
		if p.Assets[i].ID == assetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: asset %s in portfolio %s", domain.ErrNotFound, assetID, id)
	}

	asset := &p.Assets[idx]
	switch {
	case quantity == 0:
		p.Assets = append(p.Assets[:idx], p.Assets[idx+1:]...)
	case quantity > asset.Quantity:
		asset.CostBasis += (quantity - asset.Quantity) * asset.Price
		asset.Quantity = quantity
	case asset.Quantity > 0:
		asset.CostBasis *= quantity / asset.Quantity
		asset.Quantity = quantity
	default:
		asset.CostBasis = quantity * asset.Price
		asset.Quantity = quantity
	}

	p.Recalculate()
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio", id).
		Str("asset", assetID).
		Float64("quantity", quantity).
		Msg("Updated holding")

	return p, nil
}

// Get loads one portfolio.
func (s *Service) Get(id string) (*domain.Portfolio, error) {
	return s.repo.GetByID(id)
}

// List returns all portfolios.
func (s *Service) List() ([]domain.Portfolio, error) {
	return s.repo.List()
}

// Reset deletes a portfolio outright.
func (s *Service) Reset(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("portfolio", id).Msg("Reset portfolio")
	return nil
}

// selectUniverse keeps the first stable asset plus the largest crypto
// assets up to the limit. The input is assumed sorted by market cap
// descending, which is how the provider returns it.
func selectUniverse(universe []domain.AssetSnapshot, limit int) []domain.AssetSnapshot {
	if limit <= 0 {
		return nil
	}

	out := make([]domain.AssetSnapshot, 0, limit)
	stableTaken := false
	for _, snap := range universe {
		if snap.IsStable() {
			if stableTaken {
				continue
			}
			stableTaken = true
		}
		out = append(out, snap)
		if len(out) == limit {
			break
		}
	}
	return out
}
