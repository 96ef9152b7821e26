package market

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"finboard/internal/model"
)

// CCLKey is the provider key of the "contado con liquidación" quote.
const CCLKey = "contadoconliqui"

// dollarPriority is the display order of the official dollar quotes.
var dollarPriority = []string{
	"USD Oficial",
	"USD Blue",
	"USD Bolsa",
	"USD CCL",
	"USD Mayorista",
	"USD Tarjeta",
	"USD Cripto",
}

func dollarOrder(name string) int {
	for i, p := range dollarPriority {
		if p == name {
			return i
		}
	}
	return len(dollarPriority) + 1
}

type dolarAPIItem struct {
	Casa      string `json:"casa"`
	Nombre    string `json:"nombre"`
	Compra    number `json:"compra"`
	Venta     number `json:"venta"`
	Variacion number `json:"variacion"`
}

// DolarAPISource implements the Source interface for the official exchange-rate list.
type DolarAPISource struct {
	logger  *slog.Logger
	fetcher *Fetcher
	baseURL string
}

// NewDolarAPISource creates a new DolarAPISource.
func NewDolarAPISource(logger *slog.Logger, fetcher *Fetcher, baseURL string) *DolarAPISource {
	return &DolarAPISource{logger: logger, fetcher: fetcher, baseURL: baseURL}
}

func (s *DolarAPISource) GetName() string {
	return "dolarapi"
}

func (s *DolarAPISource) Section() Section {
	return SectionDollar
}

// Fetch retrieves every dollar product, ordered by the official priority list.
func (s *DolarAPISource) Fetch(ctx context.Context) (Result, error) {
	var items []dolarAPIItem
	if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/v1/dolares"), &items); err != nil {
		return Result{}, err
	}
	quotes := parseDolarAPI(items)
	s.logger.Debug("DolarAPISource: fetched quotes", "count", len(quotes))
	return Result{Quotes: quotes}, nil
}

func dollarName(nombre string) string {
	switch strings.ToLower(strings.TrimSpace(nombre)) {
	case "oficial":
		return "USD Oficial"
	case "contado con liquidación", "contado con liquidacion":
		return "USD CCL"
	case "tarjeta":
		return "USD Tarjeta"
	}
	return "USD " + titleWords(nombre)
}

func parseDolarAPI(items []dolarAPIItem) []model.Quote {
	quotes := make([]model.Quote, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Nombre) == "" && strings.TrimSpace(it.Casa) == "" {
			continue
		}
		q := model.NewQuote("DolarAPI", strings.ToLower(strings.TrimSpace(it.Casa)), dollarName(it.Nombre),
			it.Compra.nonNegative(), it.Venta.nonNegative())
		q.Variation = it.Variacion.NullDecimal
		quotes = append(quotes, q)
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return dollarOrder(quotes[i].Name) < dollarOrder(quotes[j].Name)
	})
	return quotes
}

type comparaDolarItem struct {
	Name    string `json:"name"`
	Bid     number `json:"bid"`
	Ask     number `json:"ask"`
	URL     string `json:"url"`
	LogoURL string `json:"logoUrl"`
	Is24x7  bool   `json:"is24x7"`
}

// ComparaDolarSource implements the Source interface for broker dollar quotes.
type ComparaDolarSource struct {
	logger  *slog.Logger
	fetcher *Fetcher
	baseURL string
}

// NewComparaDolarSource creates a new ComparaDolarSource.
func NewComparaDolarSource(logger *slog.Logger, fetcher *Fetcher, baseURL string) *ComparaDolarSource {
	return &ComparaDolarSource{logger: logger, fetcher: fetcher, baseURL: baseURL}
}

func (s *ComparaDolarSource) GetName() string {
	return "comparadolar"
}

func (s *ComparaDolarSource) Section() Section {
	return SectionDollar
}

// Fetch retrieves broker quotes ordered by ascending spread.
func (s *ComparaDolarSource) Fetch(ctx context.Context) (Result, error) {
	var items []comparaDolarItem
	if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/quotes"), &items); err != nil {
		return Result{}, err
	}
	quotes := parseComparaDolar(items)
	s.logger.Debug("ComparaDolarSource: fetched quotes", "count", len(quotes))
	return Result{Quotes: quotes}, nil
}

func parseComparaDolar(items []comparaDolarItem) []model.Quote {
	quotes := make([]model.Quote, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		q := model.NewQuote("ComparaDolar", strings.ToLower(it.Name), titleWords(it.Name),
			it.Bid.nonNegative(), it.Ask.nonNegative())
		if it.URL != "" {
			q.URL = it.URL
		}
		q.Logo = it.LogoURL
		q.Is24x7 = it.Is24x7
		quotes = append(quotes, q)
	}
	SortQuotes(quotes, SortSpread)
	return quotes
}
