package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is one buy/sell offer published by a market-data provider. Quotes are never persisted.
type Quote struct {
	Source    string              `json:"source"`
	Key       string              `json:"key,omitempty"`
	Name      string              `json:"name"`
	Symbol    string              `json:"symbol,omitempty"`
	Buy       decimal.NullDecimal `json:"buy"`
	Sell      decimal.NullDecimal `json:"sell"`
	Spread    decimal.NullDecimal `json:"spread"`
	Is24x7    bool                `json:"is_24x7"`
	Variation decimal.NullDecimal `json:"variation"`
	Logo      string              `json:"logo,omitempty"`
	URL       string              `json:"url,omitempty"`
}

// NewQuote builds a quote and derives its spread (sell - buy) when both sides are present.
func NewQuote(source, key, name string, buy, sell decimal.NullDecimal) Quote {
	q := Quote{Source: source, Key: key, Name: name, Buy: buy, Sell: sell}
	if buy.Valid && sell.Valid {
		q.Spread = decimal.NewNullDecimal(sell.Decimal.Sub(buy.Decimal).Round(2))
	}
	return q
}

// PriceKey identifies a live price: asset type plus upper-cased ticker.
type PriceKey struct {
	Type   AssetType
	Ticker string
}

func NewPriceKey(t AssetType, ticker string) PriceKey {
	return PriceKey{Type: t, Ticker: strings.ToUpper(strings.TrimSpace(ticker))}
}

func (k PriceKey) String() string {
	return string(k.Type) + "-" + k.Ticker
}

// Price is the current market price of an instrument, in the currency it is quoted in.
type Price struct {
	Type      AssetType           `json:"type"`
	Ticker    string              `json:"ticker"`
	Name      string              `json:"name"`
	Value     decimal.Decimal     `json:"value"`
	Currency  Currency            `json:"currency"`
	Variation decimal.NullDecimal `json:"variation"`
	Logo      string              `json:"logo,omitempty"`
}

func (p Price) Key() PriceKey {
	return NewPriceKey(p.Type, p.Ticker)
}
