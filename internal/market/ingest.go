package market

import (
	"context"
	"log/slog"
	"time"

	"finboard/internal/model"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the full market picture produced by one ingestion run.
type Snapshot struct {
	DollarQuotes []model.Quote       `json:"dollar_quotes"`
	CryptoQuotes []model.Quote       `json:"crypto_quotes"`
	PixQuotes    []model.Quote       `json:"pix_quotes"`
	Prices       PriceBook           `json:"-"`
	Reference    model.ReferenceRate `json:"reference"`
	Errors       map[string]string   `json:"errors,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
	Sections     map[Section]bool    `json:"sections"`
}

// Available reports whether at least one source of the section succeeded. An empty quote
// list for an unavailable section means "temporarily unavailable", not "no offers".
func (s Snapshot) Available(section Section) bool {
	return s.Sections[section]
}

// Quotes returns the quote list of a section.
func (s Snapshot) Quotes(section Section) []model.Quote {
	switch section {
	case SectionDollar:
		return s.DollarQuotes
	case SectionCrypto:
		return s.CryptoQuotes
	case SectionPix:
		return s.PixQuotes
	}
	return nil
}

// Ingestor fetches every source independently and assembles a snapshot.
type Ingestor struct {
	logger      *slog.Logger
	sources     []Source
	concurrency int
	now         func() time.Time
}

// NewIngestor creates a new Ingestor over the given sources.
func NewIngestor(logger *slog.Logger, sources ...Source) *Ingestor {
	return &Ingestor{logger: logger, sources: sources, concurrency: 4, now: time.Now}
}

// Fetch runs all sources concurrently. A failing source contributes nothing and is recorded
// in Snapshot.Errors; it never aborts the others.
func (i *Ingestor) Fetch(ctx context.Context) Snapshot {
	results := make([]Result, len(i.sources))
	errs := make([]error, len(i.sources))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for idx, src := range i.sources {
		idx, src := idx, src
		g.Go(func() error {
			results[idx], errs[idx] = src.Fetch(ctx)
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{
		Errors:    make(map[string]string),
		FetchedAt: i.now(),
		Sections:  make(map[Section]bool),
	}
	var prices []model.Price
	for idx, src := range i.sources {
		if err := errs[idx]; err != nil {
			i.logger.Error("Ingestor: source failed", "source", src.GetName(), "error", err)
			snap.Errors[src.GetName()] = err.Error()
			continue
		}
		snap.Sections[src.Section()] = true
		res := results[idx]
		switch src.Section() {
		case SectionDollar:
			snap.DollarQuotes = append(snap.DollarQuotes, res.Quotes...)
		case SectionCrypto:
			snap.CryptoQuotes = append(snap.CryptoQuotes, res.Quotes...)
		case SectionPix:
			snap.PixQuotes = append(snap.PixQuotes, res.Quotes...)
		case SectionPrices:
			prices = append(prices, res.Prices...)
		}
	}

	snap.DollarQuotes = DedupeQuotes(snap.DollarQuotes)
	snap.CryptoQuotes = DedupeQuotes(snap.CryptoQuotes)
	snap.PixQuotes = DedupeQuotes(snap.PixQuotes)
	snap.Prices = NewPriceBook(prices)
	snap.Reference = ResolveReferenceRate(snap.DollarQuotes, snap.FetchedAt)
	if !snap.Reference.Known {
		i.logger.Warn("Ingestor: reference rate unavailable, conversions will be skipped")
	}

	i.logger.Info("Ingestor: snapshot assembled",
		"dollarQuotes", len(snap.DollarQuotes),
		"cryptoQuotes", len(snap.CryptoQuotes),
		"pixQuotes", len(snap.PixQuotes),
		"prices", len(snap.Prices),
		"failedSources", len(snap.Errors),
	)
	return snap
}
