package market

import (
	"context"
	"log/slog"
	"strings"

	"finboard/internal/model"
)

type cedearItem struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	ARS    struct {
		C number `json:"c"`
	} `json:"ars"`
}

// CedearSource implements the Source interface for local instruments priced in ARS.
// The same provider serves depositary receipts and local equities.
type CedearSource struct {
	logger    *slog.Logger
	fetcher   *Fetcher
	baseURL   string
	assetType model.AssetType
}

// NewCedearSource creates a new CedearSource for the given asset type.
func NewCedearSource(logger *slog.Logger, fetcher *Fetcher, baseURL string, assetType model.AssetType) *CedearSource {
	return &CedearSource{logger: logger, fetcher: fetcher, baseURL: baseURL, assetType: assetType}
}

func (s *CedearSource) GetName() string {
	if s.assetType == model.Equity {
		return "acciones"
	}
	return "cedears"
}

func (s *CedearSource) Section() Section {
	return SectionPrices
}

func (s *CedearSource) Fetch(ctx context.Context) (Result, error) {
	var items []cedearItem
	if err := s.fetcher.GetJSON(ctx, joinURL(s.baseURL, "/"+s.GetName()), &items); err != nil {
		return Result{}, err
	}
	prices, skipped := parseCedears(items, s.assetType)
	if skipped > 0 {
		s.logger.Warn("CedearSource: skipped malformed rows", "source", s.GetName(), "count", skipped)
	}
	return Result{Prices: prices}, nil
}

func parseCedears(items []cedearItem, assetType model.AssetType) (prices []model.Price, skipped int) {
	for _, it := range items {
		value, ok := it.ARS.C.positive()
		ticker := strings.ToUpper(strings.TrimSpace(it.Ticker))
		if !ok || ticker == "" {
			skipped++
			continue
		}
		prices = append(prices, model.Price{
			Type:     assetType,
			Ticker:   ticker,
			Name:     it.Name,
			Value:    value,
			Currency: model.ARS,
			Logo:     it.Icon,
		})
	}
	return prices, skipped
}
