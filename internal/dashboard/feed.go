package dashboard

import (
	"context"
	"sync"
	"time"

	"finboard/internal/market"
	"finboard/internal/portfolio"
	"finboard/internal/scheduler"

	"github.com/google/uuid"
)

// FeedUpdate is one message of a live view.
type FeedUpdate struct {
	Summary     portfolio.Summary `json:"summary"`
	Unavailable []market.Section  `json:"unavailable,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
	SentAt      time.Time         `json:"sent_at"`
}

var feedSections = []market.Section{market.SectionDollar, market.SectionCrypto, market.SectionPix, market.SectionPrices}

// Feed streams the user's summary to send, immediately and then on the configured feed
// interval, until ctx is cancelled or send fails. Each tick reloads the positions so edits
// made elsewhere show up. Updates computed after the view is torn down are dropped.
func (s *Service) Feed(ctx context.Context, userID uuid.UUID, opts portfolio.Options, send func(FeedUpdate) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once    sync.Once
		sendErr error
	)
	job := func(jobCtx context.Context) (func(), error) {
		// Looked up per tick so an open feed keeps its session from being evicted.
		sess := s.Session(userID)
		if err := sess.Load(jobCtx); err != nil {
			return nil, err
		}
		summary, err := sess.Summary(jobCtx, opts)
		if err != nil {
			return nil, err
		}
		snap := s.market.Latest()
		update := FeedUpdate{
			Summary:   summary,
			FetchedAt: snap.FetchedAt,
			SentAt:    time.Now(),
		}
		for _, sec := range feedSections {
			if !snap.Available(sec) {
				update.Unavailable = append(update.Unavailable, sec)
			}
		}
		return func() {
			if err := send(update); err != nil {
				once.Do(func() {
					sendErr = err
					cancel()
				})
			}
		}, nil
	}

	task := scheduler.NewTask("feed", s.cfg.Server.FeedInterval, job, s.logger.With("user", userID))
	task.Start(ctx)
	s.logger.Debug("Service: feed opened", "user", userID)

	<-ctx.Done()
	task.Stop()
	s.logger.Debug("Service: feed closed", "user", userID)
	return sendErr
}
