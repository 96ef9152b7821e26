package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"finboard/internal/model"
)

// ErrEmptyQuotes is returned when a provider answered but published no usable price.
var ErrEmptyQuotes = errors.New("provider returned no usable quotes")

type cryptoProviderItem struct {
	PrettyName string `json:"prettyName"`
	Bid        number `json:"bid"`
	Ask        number `json:"ask"`
	URL        string `json:"url"`
	Logo       string `json:"logo"`
}

// CryptoQuoteSource implements the Source interface for per-token exchange quotes.
type CryptoQuoteSource struct {
	logger  *slog.Logger
	fetcher *Fetcher
	baseURL string
	tokens  []string
}

// NewCryptoQuoteSource creates a new CryptoQuoteSource polling the given tokens.
func NewCryptoQuoteSource(logger *slog.Logger, fetcher *Fetcher, baseURL string, tokens []string) *CryptoQuoteSource {
	return &CryptoQuoteSource{logger: logger, fetcher: fetcher, baseURL: baseURL, tokens: tokens}
}

func (s *CryptoQuoteSource) GetName() string {
	return "cryptoquotes"
}

func (s *CryptoQuoteSource) Section() Section {
	return SectionCrypto
}

// Fetch retrieves every token; a failing token is skipped, the source fails only if all do.
func (s *CryptoQuoteSource) Fetch(ctx context.Context) (Result, error) {
	var (
		quotes []model.Quote
		errs   []error
	)
	for _, token := range s.tokens {
		var providers map[string]cryptoProviderItem
		if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/crypto/"+token), &providers); err != nil {
			s.logger.Warn("CryptoQuoteSource: token fetch failed", "token", token, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", token, err))
			continue
		}
		quotes = append(quotes, parseCryptoQuotes(token, providers)...)
	}
	if len(s.tokens) > 0 && len(errs) == len(s.tokens) {
		return Result{}, errors.Join(errs...)
	}
	if !anyPriced(quotes) {
		return Result{}, ErrEmptyQuotes
	}
	SortQuotes(quotes, SortSpread)
	return Result{Quotes: quotes}, nil
}

func parseCryptoQuotes(token string, providers map[string]cryptoProviderItem) []model.Quote {
	symbol := strings.ToUpper(token)
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	quotes := make([]model.Quote, 0, len(providers))
	for _, provider := range names {
		info := providers[provider]
		display := info.PrettyName
		if display == "" {
			display = titleWords(provider)
		}
		q := model.NewQuote(provider, provider, fmt.Sprintf("%s (%s)", display, symbol),
			info.Bid.nonNegative(), info.Ask.nonNegative())
		q.Symbol = symbol
		q.URL = info.URL
		q.Logo = info.Logo
		q.Is24x7 = true
		quotes = append(quotes, q)
	}
	return quotes
}

func anyPriced(quotes []model.Quote) bool {
	for _, q := range quotes {
		if q.Buy.Valid || q.Sell.Valid {
			return true
		}
	}
	return false
}

type coinGeckoItem struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	CurrentPrice number `json:"current_price"`
	Change24h    number `json:"price_change_percentage_24h"`
}

// CoinGeckoSource implements the Source interface for crypto market prices in USD.
type CoinGeckoSource struct {
	logger  *slog.Logger
	fetcher *Fetcher
	baseURL string
}

// NewCoinGeckoSource creates a new CoinGeckoSource.
func NewCoinGeckoSource(logger *slog.Logger, fetcher *Fetcher, baseURL string) *CoinGeckoSource {
	return &CoinGeckoSource{logger: logger, fetcher: fetcher, baseURL: baseURL}
}

func (s *CoinGeckoSource) GetName() string {
	return "coingecko"
}

func (s *CoinGeckoSource) Section() Section {
	return SectionPrices
}

func (s *CoinGeckoSource) Fetch(ctx context.Context) (Result, error) {
	var items []coinGeckoItem
	if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/api/v3/coins/markets?vs_currency=usd"), &items); err != nil {
		return Result{}, err
	}
	prices, skipped := parseCoinGecko(items)
	if skipped > 0 {
		s.logger.Warn("CoinGeckoSource: skipped malformed rows", "count", skipped)
	}
	return Result{Prices: prices}, nil
}

func parseCoinGecko(items []coinGeckoItem) (prices []model.Price, skipped int) {
	for _, it := range items {
		value, ok := it.CurrentPrice.positive()
		if !ok || strings.TrimSpace(it.Symbol) == "" {
			skipped++
			continue
		}
		prices = append(prices, model.Price{
			Type:      model.Crypto,
			Ticker:    strings.ToUpper(strings.TrimSpace(it.Symbol)),
			Name:      it.Name,
			Value:     value,
			Currency:  model.USD,
			Variation: it.Change24h.NullDecimal,
			Logo:      it.Image,
		})
	}
	return prices, skipped
}
