package market

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"finboard/internal/model"

	"github.com/shopspring/decimal"
)

// SortOption selects the ordering of a quote table.
type SortOption string

const (
	SortSpread       SortOption = "spread"
	SortAlphabetical SortOption = "alphabetical"
	SortBuyAsc       SortOption = "buyAsc"
	SortBuyDesc      SortOption = "buyDesc"
	SortSellAsc      SortOption = "sellAsc"
	SortSellDesc     SortOption = "sellDesc"
)

// ParseSortOption accepts the option names above; an empty string keeps provider order.
func ParseSortOption(s string) (SortOption, error) {
	switch o := SortOption(s); o {
	case "", SortSpread, SortAlphabetical, SortBuyAsc, SortBuyDesc, SortSellAsc, SortSellDesc:
		return o, nil
	}
	return "", fmt.Errorf("%w: unknown sort option %q", model.ErrValidation, s)
}

// SortQuotes orders quotes in place. Missing values always sort last.
func SortQuotes(quotes []model.Quote, option SortOption) {
	var less func(a, b model.Quote) bool
	switch option {
	case SortSpread:
		less = func(a, b model.Quote) bool { return nullLess(a.Spread, b.Spread, false) }
	case SortAlphabetical:
		less = func(a, b model.Quote) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortBuyAsc:
		less = func(a, b model.Quote) bool { return nullLess(a.Buy, b.Buy, false) }
	case SortBuyDesc:
		less = func(a, b model.Quote) bool { return nullLess(a.Buy, b.Buy, true) }
	case SortSellAsc:
		less = func(a, b model.Quote) bool { return nullLess(a.Sell, b.Sell, false) }
	case SortSellDesc:
		less = func(a, b model.Quote) bool { return nullLess(a.Sell, b.Sell, true) }
	default:
		return
	}
	sort.SliceStable(quotes, func(i, j int) bool { return less(quotes[i], quotes[j]) })
}

func nullLess(a, b decimal.NullDecimal, desc bool) bool {
	switch {
	case !a.Valid:
		return false
	case !b.Valid:
		return true
	case desc:
		return a.Decimal.GreaterThan(b.Decimal)
	default:
		return a.Decimal.LessThan(b.Decimal)
	}
}

// DedupeQuotes drops repeated (source, name) entries, keeping the last occurrence at the
// position of the first.
func DedupeQuotes(quotes []model.Quote) []model.Quote {
	index := make(map[string]int, len(quotes))
	out := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		key := strings.ToLower(q.Source) + "|" + strings.ToLower(q.Name)
		if i, ok := index[key]; ok {
			out[i] = q
			continue
		}
		index[key] = len(out)
		out = append(out, q)
	}
	return out
}

// ResolveReferenceRate returns the sell side of the CCL quote, or the unknown rate when the
// quote is missing or has no usable sell price.
func ResolveReferenceRate(quotes []model.Quote, at time.Time) model.ReferenceRate {
	for _, q := range quotes {
		if q.Key != CCLKey {
			continue
		}
		if !q.Sell.Valid {
			return model.ReferenceRate{}
		}
		return model.NewReferenceRate(q.Sell.Decimal, q.Source, at)
	}
	return model.ReferenceRate{}
}

// PriceBook is the live price lookup keyed by asset type and ticker.
type PriceBook map[model.PriceKey]model.Price

// NewPriceBook indexes prices; a later price for the same key replaces an earlier one.
func NewPriceBook(prices []model.Price) PriceBook {
	book := make(PriceBook, len(prices))
	for _, p := range prices {
		book[p.Key()] = p
	}
	return book
}

// Price looks up the live price of an instrument.
func (b PriceBook) Price(t model.AssetType, ticker string) (model.Price, bool) {
	p, ok := b[model.NewPriceKey(t, ticker)]
	return p, ok
}

// List returns the prices sorted by type and ticker, optionally restricted to one type.
func (b PriceBook) List(t *model.AssetType) []model.Price {
	out := make([]model.Price, 0, len(b))
	for _, p := range b {
		if t != nil && p.Type != *t {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
