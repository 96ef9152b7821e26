package market

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/config"
	"finboard/internal/model"
)

// Section groups the data a source contributes to a snapshot.
type Section string

const (
	SectionDollar Section = "dollar"
	SectionCrypto Section = "crypto"
	SectionPix    Section = "pix"
	SectionPrices Section = "prices"
)

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	switch sec := Section(s); sec {
	case SectionDollar, SectionCrypto, SectionPix, SectionPrices:
		return sec, nil
	}
	return "", fmt.Errorf("%w: unknown quote section %q", model.ErrValidation, s)
}

// Result is what one source returned on a successful fetch.
type Result struct {
	Quotes []model.Quote
	Prices []model.Price
}

// Source defines the standard interface for all market-data providers.
type Source interface {
	GetName() string
	Section() Section
	Fetch(ctx context.Context) (Result, error)
}

// SourceNames lists the providers known to NewSource, in snapshot order.
var SourceNames = []string{"dolarapi", "comparadolar", "cryptoquotes", "pix", "coingecko", "cedears", "acciones"}

// NewSource creates a new market-data source based on the given name and configuration.
func NewSource(name string, logger *slog.Logger, fetcher *Fetcher, cfg config.SourceConfig, tokens []string) (Source, error) {
	switch name {
	case "dolarapi":
		return NewDolarAPISource(logger, fetcher, cfg.BaseURL), nil
	case "comparadolar":
		return NewComparaDolarSource(logger, fetcher, cfg.BaseURL), nil
	case "cryptoquotes":
		return NewCryptoQuoteSource(logger, fetcher, cfg.BaseURL, tokens), nil
	case "pix":
		return NewPixSource(logger, fetcher, cfg.BaseURL), nil
	case "coingecko":
		return NewCoinGeckoSource(logger, fetcher, cfg.BaseURL), nil
	case "cedears":
		return NewCedearSource(logger, fetcher, cfg.BaseURL, model.DepositaryReceipt), nil
	case "acciones":
		return NewCedearSource(logger, fetcher, cfg.BaseURL, model.Equity), nil
	default:
		return nil, fmt.Errorf("unknown market source: %s", name)
	}
}

// NewSources builds every enabled source from the market configuration.
func NewSources(logger *slog.Logger, fetcher *Fetcher, cfg config.MarketConfig) ([]Source, error) {
	var sources []Source
	for _, name := range SourceNames {
		sc, ok := cfg.Sources[name]
		if !ok || !sc.Enabled {
			continue
		}
		src, err := NewSource(name, logger, fetcher, sc, cfg.CryptoTokens)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
