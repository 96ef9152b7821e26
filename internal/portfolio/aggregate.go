package portfolio

import (
	"strings"

	"finboard/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows the positions that take part in an aggregation.
type Filter struct {
	Type          *model.AssetType
	Search        string
	FavoritesOnly bool
}

// Match reports whether inv passes the filter. Search is a case-insensitive substring match
// over ticker and name.
func (f Filter) Match(inv model.Investment) bool {
	if f.Type != nil && inv.Type != *f.Type {
		return false
	}
	if f.FavoritesOnly && !inv.IsFavorite {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(inv.Ticker), q) || strings.Contains(strings.ToLower(inv.Name), q)
}

// Options controls an aggregation.
type Options struct {
	Filter  Filter
	Merge   bool
	Display model.Currency
}

// Totals is the reduction of a set of valuations.
type Totals struct {
	Invested      decimal.Decimal `json:"invested"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Positions     int             `json:"positions"`
	// Weight is the share of the summary's current value, in percent.
	Weight decimal.Decimal `json:"weight"`
}

func (t *Totals) add(v Valuation) {
	t.Invested = t.Invested.Add(v.CostBasis)
	t.CurrentValue = t.CurrentValue.Add(v.CurrentValue)
	t.Positions++
}

func (t *Totals) close() {
	t.ChangeAmount = t.CurrentValue.Sub(t.Invested)
	t.ChangePercent = percentOf(t.ChangeAmount, t.Invested)
}

// Summary is the aggregated view of a portfolio in one display currency.
// Unconverted valuations are listed in Positions but excluded from every total.
type Summary struct {
	Currency      model.Currency             `json:"currency"`
	Reference     model.ReferenceRate        `json:"reference"`
	Invested      decimal.Decimal            `json:"invested"`
	CurrentValue  decimal.Decimal            `json:"current_value"`
	ChangeAmount  decimal.Decimal            `json:"change_amount"`
	ChangePercent decimal.Decimal            `json:"change_percent"`
	Breakdown     map[model.AssetType]Totals `json:"breakdown"`
	Positions     []Valuation                `json:"positions"`
	Unconverted   int                        `json:"unconverted"`
}

// Aggregate values every matching position and reduces the results. It is pure: the same
// inputs always give the same summary, and empty input gives a zero summary.
func Aggregate(positions []model.Investment, prices PriceLookup, rate model.ReferenceRate, opts Options) Summary {
	display := opts.Display
	if display == "" {
		display = model.ARS
	}

	selected := make([]model.Investment, 0, len(positions))
	for _, inv := range positions {
		if opts.Filter.Match(inv) {
			selected = append(selected, inv)
		}
	}

	var valuations []Valuation
	if opts.Merge {
		for _, g := range MergeLots(selected, rate) {
			v := valuateNative(g.Investment, prices, rate)
			v.Lots = g.Lots
			valuations = append(valuations, toDisplay(v, rate, display))
		}
	} else {
		for _, inv := range selected {
			valuations = append(valuations, Valuate(inv, prices, rate, display))
		}
	}

	s := Summary{
		Currency:  display,
		Reference: rate,
		Breakdown: make(map[model.AssetType]Totals),
		Positions: valuations,
	}
	if s.Positions == nil {
		s.Positions = []Valuation{}
	}

	var total Totals
	for _, v := range valuations {
		if v.Unconverted {
			s.Unconverted++
			continue
		}
		total.add(v)
		bt := s.Breakdown[v.Type]
		bt.add(v)
		s.Breakdown[v.Type] = bt
	}
	total.close()

	for t, bt := range s.Breakdown {
		bt.close()
		bt.Weight = percentOf(bt.CurrentValue, total.CurrentValue)
		s.Breakdown[t] = bt
	}

	s.Invested = total.Invested
	s.CurrentValue = total.CurrentValue
	s.ChangeAmount = total.ChangeAmount
	s.ChangePercent = total.ChangePercent
	return s
}

// MergedLot is a synthetic position combining every lot of one instrument. When it combines
// more than one lot its ID is uuid.Nil: it names no stored row and cannot be edited.
type MergedLot struct {
	model.Investment
	Lots int
}

type lotKey struct {
	key      model.PriceKey
	currency model.Currency
}

// MergeLots combines lots sharing (type, upper ticker) into one position whose quantity is
// the sum and whose purchase price is the quantity-weighted average. Lots held in another
// currency are converted into the first lot's currency; when the rate is unknown they form a
// separate group per currency. Output order follows first appearance.
func MergeLots(lots []model.Investment, rate model.ReferenceRate) []MergedLot {
	type group struct {
		lot       MergedLot
		costTotal decimal.Decimal
	}
	var (
		order  []lotKey
		groups = make(map[lotKey]*group)
		first  = make(map[model.PriceKey]model.Currency)
	)

	for _, inv := range lots {
		pk := inv.Key()
		cur, seen := first[pk]
		if !seen {
			cur = inv.Currency
			first[pk] = cur
		}
		price, ok := Convert(inv.PurchasePrice, inv.Currency, cur, rate)
		if !ok {
			cur, price = inv.Currency, inv.PurchasePrice
		}

		k := lotKey{key: pk, currency: cur}
		g, exists := groups[k]
		if !exists {
			base := inv
			base.Ticker = pk.Ticker
			base.Currency = cur
			base.Quantity = decimal.Zero
			g = &group{lot: MergedLot{Investment: base}}
			groups[k] = g
			order = append(order, k)
		}
		g.lot.Quantity = g.lot.Quantity.Add(inv.Quantity)
		g.costTotal = g.costTotal.Add(inv.Quantity.Mul(price))
		g.lot.IsFavorite = g.lot.IsFavorite || inv.IsFavorite
		if inv.PurchaseDate.Before(g.lot.PurchaseDate) {
			g.lot.PurchaseDate = inv.PurchaseDate
		}
		g.lot.Lots++
	}

	out := make([]MergedLot, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if g.lot.Quantity.IsPositive() {
			g.lot.PurchasePrice = g.costTotal.Div(g.lot.Quantity)
		}
		if g.lot.Lots > 1 {
			g.lot.ID = uuid.Nil
		}
		out = append(out, g.lot)
	}
	return out
}
