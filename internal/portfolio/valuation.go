package portfolio

import (
	"finboard/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceLookup resolves the live price of an instrument.
type PriceLookup interface {
	Price(t model.AssetType, ticker string) (model.Price, bool)
}

// Valuation is the derived state of one position. All money figures are expressed in Currency.
type Valuation struct {
	InvestmentID     uuid.UUID       `json:"investment_id"` // uuid.Nil for merged positions
	Ticker           string          `json:"ticker"`
	Name             string          `json:"name"`
	Type             model.AssetType `json:"type"`
	Quantity         decimal.Decimal `json:"quantity"`
	Currency         model.Currency  `json:"currency"`
	NativeCurrency   model.Currency  `json:"native_currency"`
	AveragePrice     decimal.Decimal `json:"average_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	AbsoluteChange   decimal.Decimal `json:"absolute_change"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
	IsFavorite       bool            `json:"is_favorite"`
	Lots             int             `json:"lots"`

	// Live is false when the purchase price stands in for the market price.
	Live bool `json:"live"`
	// PriceUnconverted is set when a live price existed in another currency but the
	// reference rate was unknown, so the purchase price was used instead.
	PriceUnconverted bool `json:"price_unconverted,omitempty"`
	// Unconverted is set when the figures could not be expressed in the requested display
	// currency and are reported in NativeCurrency instead.
	Unconverted bool `json:"unconverted"`
}

// Convert expresses amount, held in from, in the to currency using the reference rate.
// It reports false, returning amount untouched, when a conversion is needed and the rate is
// unknown. USD to ARS multiplies by the rate; ARS to USD divides by it.
func Convert(amount decimal.Decimal, from, to model.Currency, rate model.ReferenceRate) (decimal.Decimal, bool) {
	if from == to {
		return amount, true
	}
	if !rate.Known || !rate.Value.IsPositive() {
		return amount, false
	}
	switch {
	case from == model.USD && to == model.ARS:
		return amount.Mul(rate.Value), true
	case from == model.ARS && to == model.USD:
		return amount.Div(rate.Value), true
	}
	return amount, false
}

// percentOf returns part/base as a percent, or zero when base is zero.
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred)
}

// Valuate derives the current value of a position and expresses it in display.
// It never fails: a missing live price falls back to the purchase price and a missing
// reference rate leaves the figures in the position's own currency, flagged Unconverted.
func Valuate(inv model.Investment, prices PriceLookup, rate model.ReferenceRate, display model.Currency) Valuation {
	v := valuateNative(inv, prices, rate)
	v.Lots = 1
	return toDisplay(v, rate, display)
}

func valuateNative(inv model.Investment, prices PriceLookup, rate model.ReferenceRate) Valuation {
	native := inv.Currency
	price := inv.PurchasePrice
	var live, priceUnconverted bool

	if prices != nil {
		if p, ok := prices.Price(inv.Type, inv.Ticker); ok && p.Value.IsPositive() {
			quoted := p.Currency
			if quoted == "" {
				quoted = inv.Type.QuoteCurrency()
			}
			if converted, ok := Convert(p.Value, quoted, native, rate); ok {
				price, live = converted, true
			} else {
				priceUnconverted = true
			}
		}
	}

	cost := inv.Quantity.Mul(inv.PurchasePrice)
	current := inv.Quantity.Mul(price)
	change := current.Sub(cost)

	return Valuation{
		InvestmentID:     inv.ID,
		Ticker:           inv.Ticker,
		Name:             inv.Name,
		Type:             inv.Type,
		Quantity:         inv.Quantity,
		Currency:         native,
		NativeCurrency:   native,
		AveragePrice:     inv.PurchasePrice,
		CurrentPrice:     price,
		CurrentValue:     current,
		CostBasis:        cost,
		AbsoluteChange:   change,
		PercentageChange: percentOf(change, cost),
		IsFavorite:       inv.IsFavorite,
		Live:             live,
		PriceUnconverted: priceUnconverted,
	}
}

// toDisplay converts the money figures of a native valuation. The percentage is left as is.
func toDisplay(v Valuation, rate model.ReferenceRate, display model.Currency) Valuation {
	if display == "" || display == v.NativeCurrency {
		return v
	}
	if _, ok := Convert(decimal.Zero, v.NativeCurrency, display, rate); !ok {
		v.Unconverted = true
		return v
	}
	conv := func(d decimal.Decimal) decimal.Decimal {
		out, _ := Convert(d, v.NativeCurrency, display, rate)
		return out
	}
	v.AveragePrice = conv(v.AveragePrice)
	v.CurrentPrice = conv(v.CurrentPrice)
	v.CurrentValue = conv(v.CurrentValue)
	v.CostBasis = conv(v.CostBasis)
	v.AbsoluteChange = v.CurrentValue.Sub(v.CostBasis)
	v.Currency = display
	return v
}
