package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"finboard/internal/database"
	"finboard/internal/model"
	"finboard/internal/portfolio"

	"github.com/google/uuid"
)

// Session holds one user's cached investment list. Persistence failures never modify the
// cache; the only optimistic write is ToggleFavorite, which is reverted on failure.
type Session struct {
	logger *slog.Logger
	repo   database.Repository
	market MarketView
	userID uuid.UUID

	mu          sync.RWMutex
	loaded      bool
	investments []model.Investment
}

func newSession(logger *slog.Logger, repo database.Repository, mv MarketView, userID uuid.UUID) *Session {
	return &Session{
		logger: logger.With("user", userID),
		repo:   repo,
		market: mv,
		userID: userID,
	}
}

// UserID returns the owner of the session.
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Load replaces the cache with the persisted list.
func (s *Session) Load(ctx context.Context) error {
	list, err := s.repo.List(ctx, s.userID)
	if err != nil {
		s.logger.Error("Session: failed to load investments", "error", err)
		return err
	}
	s.mu.Lock()
	s.investments = list
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// Investments returns a copy of the cached list, newest first.
func (s *Session) Investments(ctx context.Context) ([]model.Investment, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Investment, len(s.investments))
	copy(out, s.investments)
	return out, nil
}

// Add validates and persists a new position, then prepends it to the cache.
func (s *Session) Add(ctx context.Context, inv model.Investment) (model.Investment, error) {
	inv.UserID = s.userID
	inv.Ticker = strings.ToUpper(strings.TrimSpace(inv.Ticker))
	inv.Name = strings.TrimSpace(inv.Name)
	if err := inv.Validate(); err != nil {
		return model.Investment{}, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return model.Investment{}, err
	}

	saved, err := s.repo.Insert(ctx, inv)
	if err != nil {
		s.logger.Error("Session: failed to add investment", "ticker", inv.Ticker, "error", err)
		return model.Investment{}, err
	}

	s.mu.Lock()
	s.investments = append([]model.Investment{saved}, s.investments...)
	s.mu.Unlock()
	s.logger.Info("Session: investment added", "id", saved.ID, "ticker", saved.Ticker)
	return saved, nil
}

// Update persists a partial edit and reloads the cache.
func (s *Session) Update(ctx context.Context, id uuid.UUID, patch model.InvestmentPatch) (model.Investment, error) {
	if patch.Ticker != nil {
		t := strings.ToUpper(strings.TrimSpace(*patch.Ticker))
		patch.Ticker = &t
	}
	if err := patch.Validate(); err != nil {
		return model.Investment{}, err
	}
	if err := s.repo.Update(ctx, id, s.userID, patch); err != nil {
		s.logger.Error("Session: failed to update investment", "id", id, "error", err)
		return model.Investment{}, err
	}
	if err := s.Load(ctx); err != nil {
		return model.Investment{}, err
	}
	inv, ok := s.find(id)
	if !ok {
		return model.Investment{}, database.ErrNotFound
	}
	return inv, nil
}

// Delete removes a position and reloads the cache.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, s.userID); err != nil {
		s.logger.Error("Session: failed to delete investment", "id", id, "error", err)
		return err
	}
	return s.Load(ctx)
}

// ToggleFavorite flips the favorite flag in the cache before persisting it. If persistence
// fails the flag is restored and the store's error is returned unchanged.
func (s *Session) ToggleFavorite(ctx context.Context, id uuid.UUID) (model.Investment, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return model.Investment{}, err
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Investment{}, database.ErrNotFound
	}
	previous := s.investments[idx].IsFavorite
	next := !previous
	s.investments[idx].IsFavorite = next
	toggled := s.investments[idx]
	s.mu.Unlock()

	if err := s.repo.Update(ctx, id, s.userID, model.InvestmentPatch{IsFavorite: &next}); err != nil {
		s.logger.Error("Session: favorite toggle failed, reverting", "id", id, "error", err)
		s.mu.Lock()
		if i := s.indexOf(id); i >= 0 && s.investments[i].IsFavorite == next {
			s.investments[i].IsFavorite = previous
		}
		s.mu.Unlock()
		return model.Investment{}, err
	}
	return toggled, nil
}

// Summary values the cached positions against the latest market snapshot.
func (s *Session) Summary(ctx context.Context, opts portfolio.Options) (portfolio.Summary, error) {
	list, err := s.Investments(ctx)
	if err != nil {
		return portfolio.Summary{}, err
	}
	snap := s.market.Latest()
	return portfolio.Aggregate(list, snap.Prices, snap.Reference, opts), nil
}

func (s *Session) find(id uuid.UUID) (model.Investment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.investments[i], true
	}
	return model.Investment{}, false
}

// indexOf must be called with mu held.
func (s *Session) indexOf(id uuid.UUID) int {
	for i, inv := range s.investments {
		if inv.ID == id {
			return i
		}
	}
	return -1
}
