package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AssetType is the instrument class of a position.
type AssetType string

const (
	Crypto            AssetType = "Crypto"
	Equity            AssetType = "Equity"
	DepositaryReceipt AssetType = "DepositaryReceipt"
)

// AssetTypes lists every asset type in display order.
var AssetTypes = []AssetType{Crypto, DepositaryReceipt, Equity}

var assetLabels = map[string]AssetType{
	"cripto":            Crypto,
	"crypto":            Crypto,
	"accion":            Equity,
	"acciones":          Equity,
	"equity":            Equity,
	"cedear":            DepositaryReceipt,
	"cedears":           DepositaryReceipt,
	"depositaryreceipt": DepositaryReceipt,
}

// Valid reports whether t is one of the known asset types.
func (t AssetType) Valid() bool {
	return t == Crypto || t == Equity || t == DepositaryReceipt
}

// Label returns the label stored in the investments table.
func (t AssetType) Label() string {
	switch t {
	case Crypto:
		return "Cripto"
	case Equity:
		return "Acción"
	case DepositaryReceipt:
		return "CEDEAR"
	}
	return string(t)
}

// QuoteCurrency is the currency live prices of this type are published in.
func (t AssetType) QuoteCurrency() Currency {
	if t == Crypto {
		return USD
	}
	return ARS
}

// ParseAssetType accepts stored labels ("Cripto", "Acción", "CEDEAR") and the English names,
// ignoring case and diacritics.
func ParseAssetType(s string) (AssetType, error) {
	key := strings.ReplaceAll(foldLabel(s), " ", "")
	if t, ok := assetLabels[key]; ok {
		return t, nil
	}
	return "", validationError("unknown asset type %q", s)
}

func (t *AssetType) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func foldLabel(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Currency is a transaction or display currency.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

func (c Currency) Valid() bool {
	return c == ARS || c == USD
}

// ParseCurrency is case-insensitive.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", validationError("unknown currency %q", s)
	}
	return c, nil
}

func (c *Currency) UnmarshalText(b []byte) error {
	parsed, err := ParseCurrency(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
