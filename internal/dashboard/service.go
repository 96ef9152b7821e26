package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/config"
	"finboard/internal/database"
	"finboard/internal/market"
	"finboard/internal/model"
	"finboard/internal/simulator"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when a quote section has no successful source in the current
// snapshot. It means "temporarily unavailable", never "no offers".
var ErrUnavailable = errors.New("market data temporarily unavailable")

// MarketView exposes the latest market snapshot.
type MarketView interface {
	Latest() market.Snapshot
}

// RateSource fetches yield offers of one kind.
type RateSource interface {
	Rates(ctx context.Context, kind model.RateKind) ([]model.Rate, error)
}

// InflationSource returns the latest monthly inflation reading.
type InflationSource interface {
	Latest(ctx context.Context) (model.InflationReading, error)
}

// Service wires the repository, the market monitor and the calculators together and owns
// one Session per user.
type Service struct {
	logger    *slog.Logger
	repo      database.Repository
	market    MarketView
	rates     RateSource
	inflation InflationSource
	sim       *simulator.Simulator
	cfg       *config.Config

	now       func() time.Time
	mu        sync.Mutex
	sessions  map[uuid.UUID]*sessionEntry
	lastSweep time.Time
}

type sessionEntry struct {
	sess     *Session
	lastUsed time.Time
}

// NewService creates a new Service.
func NewService(logger *slog.Logger, repo database.Repository, mv MarketView, rates RateSource, inflation InflationSource, cfg *config.Config) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		market:    mv,
		rates:     rates,
		inflation: inflation,
		sim:       simulator.New(cfg.Simulator),
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*sessionEntry),
	}
}

// Session returns the user's session, creating it on first use. Sessions unused for longer
// than the configured session TTL are dropped and rebuilt from the store on the next call.
func (s *Service) Session(userID uuid.UUID) *Session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIdle(now)
	e, ok := s.sessions[userID]
	if !ok {
		e = &sessionEntry{sess: newSession(s.logger, s.repo, s.market, userID)}
		s.sessions[userID] = e
	}
	e.lastUsed = now
	return e.sess
}

// evictIdle must be called with mu held. It sweeps at most once per TTL.
func (s *Service) evictIdle(now time.Time) {
	ttl := s.cfg.Server.SessionTTL
	if ttl <= 0 || now.Sub(s.lastSweep) < ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > ttl {
			delete(s.sessions, id)
			s.logger.Debug("Service: idle session evicted", "user", id)
		}
	}
}

// Snapshot returns the latest market snapshot.
func (s *Service) Snapshot() market.Snapshot {
	return s.market.Latest()
}

// Quotes returns a section's quotes in the requested order.
func (s *Service) Quotes(section market.Section, sort market.SortOption) ([]model.Quote, error) {
	if section == market.SectionPrices {
		return nil, fmt.Errorf("%w: %q is not a quote section", model.ErrValidation, section)
	}
	snap := s.market.Latest()
	if !snap.Available(section) {
		return nil, ErrUnavailable
	}
	quotes := append([]model.Quote(nil), snap.Quotes(section)...)
	market.SortQuotes(quotes, sort)
	return quotes, nil
}

// ReferenceRate returns the current CCL rate, possibly unknown.
func (s *Service) ReferenceRate() model.ReferenceRate {
	return s.market.Latest().Reference
}

// Prices lists the live prices, optionally of one asset type.
func (s *Service) Prices(t *model.AssetType) ([]model.Price, error) {
	snap := s.market.Latest()
	if !snap.Available(market.SectionPrices) {
		return nil, ErrUnavailable
	}
	return snap.Prices.List(t), nil
}

// Rates fetches the offers of one kind, sorted by rate descending or by entity.
func (s *Service) Rates(ctx context.Context, kind model.RateKind, byRate bool) ([]model.Rate, error) {
	rates, err := s.rates.Rates(ctx, kind)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return nil, err
		}
		s.logger.Error("Service: rate fetch failed", "kind", kind, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	market.SortRates(rates, byRate, true)
	return rates, nil
}

// Inflation returns the latest monthly inflation reading.
func (s *Service) Inflation(ctx context.Context) (model.InflationReading, error) {
	reading, err := s.inflation.Latest(ctx)
	if err != nil {
		return model.InflationReading{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return reading, nil
}

// ProjectCompound runs the compound growth calculator.
func (s *Service) ProjectCompound(principal, annualRatePercent, days float64) (simulator.Projection, error) {
	return simulator.ProjectCompound(principal, annualRatePercent, days)
}

// CompareInstallments runs the installments versus cash calculator. A nil inflation uses the
// latest published reading, or the configured default when none can be fetched. The
// alternative projections use the average of the current offers.
func (s *Service) CompareInstallments(ctx context.Context, cashPrice, totalPrice float64, count int, monthlyInflation *float64) (simulator.InstallmentComparison, error) {
	inflation := s.sim.DefaultMonthlyInflation()
	if monthlyInflation != nil {
		inflation = *monthlyInflation
	} else if reading, err := s.inflation.Latest(ctx); err == nil {
		inflation = reading.MonthlyPercent.InexactFloat64()
	} else {
		s.logger.Warn("Service: using default inflation", "error", err)
	}

	wallets, err := s.rates.Rates(ctx, model.RateRemuneratedAccount)
	if err != nil {
		s.logger.Warn("Service: wallet rates unavailable, using default", "error", err)
	}
	deposits, err := s.rates.Rates(ctx, model.RateTermDeposit)
	if err != nil {
		s.logger.Warn("Service: term deposit rates unavailable, using default", "error", err)
	}
	return s.sim.Compare(cashPrice, totalPrice, count, inflation, wallets, deposits)
}
