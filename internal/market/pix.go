package market

import (
	"context"
	"log/slog"
	"sort"

	"finboard/internal/model"
)

type pixQuoteItem struct {
	Symbol string `json:"symbol"`
	Buy    number `json:"buy"`
	Sell   number `json:"sell"`
	Spread number `json:"spread"`
}

type pixProviderItem struct {
	Quotes []pixQuoteItem `json:"quotes"`
	Logo   string         `json:"logo"`
	URL    string         `json:"url"`
}

// PixSource implements the Source interface for peer-to-peer payment quotes.
type PixSource struct {
	logger  *slog.Logger
	fetcher *Fetcher
	baseURL string
}

// NewPixSource creates a new PixSource.
func NewPixSource(logger *slog.Logger, fetcher *Fetcher, baseURL string) *PixSource {
	return &PixSource{logger: logger, fetcher: fetcher, baseURL: baseURL}
}

func (s *PixSource) GetName() string {
	return "pix"
}

func (s *PixSource) Section() Section {
	return SectionPix
}

// Fetch returns the ARS-paid quotes first, then the USD-paid ones.
func (s *PixSource) Fetch(ctx context.Context) (Result, error) {
	var providers map[string]pixProviderItem
	if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/quotes"), &providers); err != nil {
		return Result{}, err
	}
	return Result{Quotes: parsePix(providers)}, nil
}

func pixPayCurrency(symbol string) string {
	switch symbol {
	case "BRLARS":
		return "ARS"
	case "BRLUSD", "BRLUSDT":
		return "USD"
	}
	return ""
}

func parsePix(providers map[string]pixProviderItem) []model.Quote {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var ars, usd []model.Quote
	for _, provider := range names {
		info := providers[provider]
		for _, pq := range info.Quotes {
			pay := pixPayCurrency(pq.Symbol)
			if pay == "" {
				continue
			}
			q := model.NewQuote(provider, provider, titleWords(provider)+" - paga con "+pay,
				pq.Buy.nonNegative(), pq.Sell.nonNegative())
			if pq.Spread.Valid {
				q.Spread = pq.Spread.NullDecimal
			}
			q.Symbol = pq.Symbol
			q.Logo = info.Logo
			q.URL = info.URL
			q.Is24x7 = true
			if pay == "ARS" {
				ars = append(ars, q)
			} else {
				usd = append(usd, q)
			}
		}
	}
	return append(ars, usd...)
}
