package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrValidation marks input rejected before it reaches persistence or the math routines.
var ErrValidation = errors.New("validation failed")

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// DateLayout is the calendar date format used for purchase dates.
const DateLayout = "2006-01-02"

// Investment represents a single position (one purchase lot) held by a user.
type Investment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Ticker        string          `db:"ticker" json:"ticker"`
	Name          string          `db:"name" json:"name"`
	Type          AssetType       `db:"type" json:"type"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	PurchaseDate  time.Time       `db:"purchase_date" json:"purchase_date"`
	Currency      Currency        `db:"currency" json:"currency"`
	IsFavorite    bool            `db:"is_favorite" json:"is_favorite"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Validate checks the fields required to register a position.
func (i Investment) Validate() error {
	if strings.TrimSpace(i.Ticker) == "" {
		return validationError("ticker is required")
	}
	if strings.TrimSpace(i.Name) == "" {
		return validationError("name is required")
	}
	if !i.Type.Valid() {
		return validationError("unknown asset type %q", i.Type)
	}
	if !i.Currency.Valid() {
		return validationError("unknown currency %q", i.Currency)
	}
	if !i.Quantity.IsPositive() {
		return validationError("quantity must be positive")
	}
	if !i.PurchasePrice.IsPositive() {
		return validationError("purchase price must be positive")
	}
	if i.PurchaseDate.IsZero() {
		return validationError("purchase date is required")
	}
	return nil
}

// Key returns the live price key of the position.
func (i Investment) Key() PriceKey {
	return NewPriceKey(i.Type, i.Ticker)
}

// InvestmentPatch carries the fields of a partial update. Nil fields are left untouched.
type InvestmentPatch struct {
	Ticker        *string          `json:"ticker,omitempty"`
	Name          *string          `json:"name,omitempty"`
	Type          *AssetType       `json:"type,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Currency      *Currency        `json:"currency,omitempty"`
	IsFavorite    *bool            `json:"is_favorite,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p InvestmentPatch) Empty() bool {
	return p.Ticker == nil && p.Name == nil && p.Type == nil && p.Quantity == nil &&
		p.PurchasePrice == nil && p.PurchaseDate == nil && p.Currency == nil && p.IsFavorite == nil
}

// Validate rejects provided fields that would make the position invalid.
func (p InvestmentPatch) Validate() error {
	if p.Empty() {
		return validationError("nothing to update")
	}
	if p.Ticker != nil && strings.TrimSpace(*p.Ticker) == "" {
		return validationError("ticker cannot be empty")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return validationError("name cannot be empty")
	}
	if p.Type != nil && !p.Type.Valid() {
		return validationError("unknown asset type %q", *p.Type)
	}
	if p.Currency != nil && !p.Currency.Valid() {
		return validationError("unknown currency %q", *p.Currency)
	}
	if p.Quantity != nil && !p.Quantity.IsPositive() {
		return validationError("quantity must be positive")
	}
	if p.PurchasePrice != nil && !p.PurchasePrice.IsPositive() {
		return validationError("purchase price must be positive")
	}
	if p.PurchaseDate != nil && p.PurchaseDate.IsZero() {
		return validationError("purchase date cannot be empty")
	}
	return nil
}

// Apply returns a copy of inv with the patch applied.
func (p InvestmentPatch) Apply(inv Investment) Investment {
	if p.Ticker != nil {
		inv.Ticker = *p.Ticker
	}
	if p.Name != nil {
		inv.Name = *p.Name
	}
	if p.Type != nil {
		inv.Type = *p.Type
	}
	if p.Quantity != nil {
		inv.Quantity = *p.Quantity
	}
	if p.PurchasePrice != nil {
		inv.PurchasePrice = *p.PurchasePrice
	}
	if p.PurchaseDate != nil {
		inv.PurchaseDate = *p.PurchaseDate
	}
	if p.Currency != nil {
		inv.Currency = *p.Currency
	}
	if p.IsFavorite != nil {
		inv.IsFavorite = *p.IsFavorite
	}
	return inv
}

// ReferenceRate is the CCL rate used for every ARS/USD conversion.
// The zero value means the rate is unknown.
type ReferenceRate struct {
	Value     decimal.Decimal `json:"value"`
	Known     bool            `json:"known"`
	Source    string          `json:"source,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// NewReferenceRate returns a known rate, or the unknown rate if value is not positive.
func NewReferenceRate(value decimal.Decimal, source string, at time.Time) ReferenceRate {
	if !value.IsPositive() {
		return ReferenceRate{}
	}
	return ReferenceRate{Value: value, Known: true, Source: source, UpdatedAt: at}
}

// RateKind classifies yield offers.
type RateKind string

const (
	RateTermDeposit        RateKind = "term-deposit"
	RateRemuneratedAccount RateKind = "remunerated-account"
	RateStaking            RateKind = "staking"
)

// ParseRateKind accepts the kind names used by the API.
func ParseRateKind(s string) (RateKind, error) {
	switch k := RateKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RateTermDeposit, RateRemuneratedAccount, RateStaking:
		return k, nil
	}
	return "", validationError("unknown rate kind %q", s)
}

// Rate is a yield or interest offer published by an entity.
type Rate struct {
	Entity            string              `json:"entity"`
	Kind              RateKind            `json:"kind"`
	NominalAnnualRate decimal.Decimal     `json:"nominal_annual_rate"`
	TermDays          int                 `json:"term_days,omitempty"`
	MinimumAmount     decimal.NullDecimal `json:"minimum_amount"`
	Coin              string              `json:"coin,omitempty"`
	Logo              string              `json:"logo,omitempty"`
	URL               string              `json:"url,omitempty"`
}

// InflationReading is one monthly consumer price change.
type InflationReading struct {
	Date           time.Time       `json:"date"`
	MonthlyPercent decimal.Decimal `json:"monthly_percent"`
}
