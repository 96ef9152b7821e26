// Package simulator holds the stateless calculator formulas: compound growth,
// installments versus cash, and rate conversions.
package simulator

import (
	"fmt"
	"math"

	"finboard/internal/config"
	"finboard/internal/model"
)

// DefaultTolerance is the margin the present value of the installments must clear below the
// cash price before paying in installments is recommended.
const DefaultTolerance = 0.05

// MaxInstallments bounds the plan length. Longer plans are rejected rather than allocated.
const MaxInstallments = 360

// Recommendation is the outcome of an installments versus cash comparison.
type Recommendation string

const (
	FavorInstallments Recommendation = "favor installments"
	FavorCash         Recommendation = "favor cash"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func allFinite(fs ...float64) bool {
	for _, f := range fs {
		if !finite(f) {
			return false
		}
	}
	return true
}

// Projection is the result of compounding a principal.
type Projection struct {
	Principal           float64 `json:"principal"`
	AnnualRatePercent   float64 `json:"annual_rate_percent"`
	Days                float64 `json:"days"`
	FinalAmount         float64 `json:"final_amount"`
	Interest            float64 `json:"interest"`
	EffectiveAnnualRate float64 `json:"effective_annual_rate"`
}

// ProjectCompound grows principal at a nominal annual rate compounded daily over days.
func ProjectCompound(principal, annualRatePercent, days float64) (Projection, error) {
	if !finite(principal) || principal < 0 {
		return Projection{}, invalid("principal must be a non-negative number")
	}
	if !finite(days) || days < 0 {
		return Projection{}, invalid("days must be a non-negative number")
	}
	if !finite(annualRatePercent) {
		return Projection{}, invalid("annual rate must be a number")
	}
	daily := 1 + annualRatePercent/100/365
	if daily <= 0 {
		return Projection{}, invalid("annual rate %v is below -36500%%", annualRatePercent)
	}

	final := principal * math.Pow(daily, days)
	effective := (math.Pow(daily, 365) - 1) * 100
	if !allFinite(final, effective) {
		return Projection{}, invalid("projection overflows: reduce the rate or the term")
	}
	return Projection{
		Principal:           principal,
		AnnualRatePercent:   annualRatePercent,
		Days:                days,
		FinalAmount:         final,
		Interest:            final - principal,
		EffectiveAnnualRate: effective,
	}, nil
}

// InstallmentComparison is the result of weighing a cash price against an installment plan.
type InstallmentComparison struct {
	CashPrice            float64        `json:"cash_price"`
	TotalFinanced        float64        `json:"total_financed"`
	Installment          float64        `json:"installment"`
	MonthlyInflation     float64        `json:"monthly_inflation"`
	AdjustedInstallments []float64      `json:"adjusted_installments"`
	PresentValue         float64        `json:"present_value"`
	MonthlyRate          float64        `json:"monthly_rate"`
	TotalFinancedCost    float64        `json:"cft"`
	AnnualInflation      float64        `json:"annual_inflation"`
	Recommendation       Recommendation `json:"recommendation"`
	Alternatives         *Alternatives  `json:"alternatives,omitempty"`
}

// CompareInstallmentsToCash uses DefaultTolerance.
func CompareInstallmentsToCash(cashPrice, totalInstallmentPrice float64, count int, monthlyInflationPercent float64) (InstallmentComparison, error) {
	return CompareWithTolerance(cashPrice, totalInstallmentPrice, count, monthlyInflationPercent, DefaultTolerance)
}

// CompareWithTolerance discounts every installment to present value with compounded monthly
// inflation, installment i (zero based) being divided by (1+inflation)^(i+1). The total
// financed cost is the geometric monthly rate implied by total/cash, annualized.
// Installments are favored only when their present value is below cash*(1-tolerance).
func CompareWithTolerance(cashPrice, totalInstallmentPrice float64, count int, monthlyInflationPercent, tolerance float64) (InstallmentComparison, error) {
	if !finite(cashPrice) || cashPrice <= 0 {
		return InstallmentComparison{}, invalid("cash price must be positive")
	}
	if !finite(totalInstallmentPrice) || totalInstallmentPrice <= 0 {
		return InstallmentComparison{}, invalid("total installment price must be positive")
	}
	if count <= 0 || count > MaxInstallments {
		return InstallmentComparison{}, invalid("installment count must be between 1 and %d", MaxInstallments)
	}
	if !finite(monthlyInflationPercent) {
		return InstallmentComparison{}, invalid("monthly inflation must be a number")
	}
	factor := 1 + monthlyInflationPercent/100
	if factor <= 0 {
		return InstallmentComparison{}, invalid("monthly inflation must be above -100%%")
	}
	if !finite(tolerance) || tolerance < 0 || tolerance >= 1 {
		tolerance = DefaultTolerance
	}

	installment := totalInstallmentPrice / float64(count)
	adjusted := make([]float64, count)
	var pv float64
	for i := range adjusted {
		adjusted[i] = installment / math.Pow(factor, float64(i+1))
		pv += adjusted[i]
	}

	monthly := math.Pow(totalInstallmentPrice/cashPrice, 1/float64(count)) - 1
	if !finite(monthly) || monthly <= -1 {
		return InstallmentComparison{}, invalid("amounts produce an invalid financing cost")
	}
	cft := (math.Pow(1+monthly, 12) - 1) * 100
	annual := AnnualizeMonthly(monthlyInflationPercent)
	if !allFinite(pv, cft, annual) {
		return InstallmentComparison{}, invalid("amounts or inflation out of range")
	}

	rec := FavorCash
	if pv < cashPrice*(1-tolerance) {
		rec = FavorInstallments
	}

	return InstallmentComparison{
		CashPrice:            cashPrice,
		TotalFinanced:        totalInstallmentPrice,
		Installment:          installment,
		MonthlyInflation:     monthlyInflationPercent,
		AdjustedInstallments: adjusted,
		PresentValue:         pv,
		MonthlyRate:          monthly * 100,
		TotalFinancedCost:    cft,
		AnnualInflation:      annual,
		Recommendation:       rec,
	}, nil
}

// AnnualizeMonthly compounds a monthly percent over twelve months.
func AnnualizeMonthly(monthlyPercent float64) float64 {
	return (math.Pow(1+monthlyPercent/100, 12) - 1) * 100
}

// Alternatives projects the cash amount invested instead of spent, over the plan's months.
type Alternatives struct {
	WalletRate        float64 `json:"wallet_rate"`
	TermDepositRate   float64 `json:"term_deposit_rate"`
	WalletProjection  float64 `json:"wallet_projection"`
	DepositProjection float64 `json:"term_deposit_projection"`
}

// ProjectAlternatives compounds cash annually at each rate for months/12 years.
func ProjectAlternatives(cash float64, months int, walletRate, termDepositRate float64) Alternatives {
	years := float64(months) / 12
	return Alternatives{
		WalletRate:        walletRate,
		TermDepositRate:   termDepositRate,
		WalletProjection:  cash * math.Pow(1+walletRate/100, years),
		DepositProjection: cash * math.Pow(1+termDepositRate/100, years),
	}
}

// AverageRate is the mean nominal annual rate of the offers, or fallback when there are none.
func AverageRate(rates []model.Rate, fallback float64) float64 {
	if len(rates) == 0 {
		return fallback
	}
	var sum float64
	for _, r := range rates {
		sum += r.NominalAnnualRate.InexactFloat64()
	}
	return sum / float64(len(rates))
}

// Simulator applies the configured defaults to the formulas above.
type Simulator struct {
	cfg config.SimulatorConfig
}

// New creates a new Simulator.
func New(cfg config.SimulatorConfig) *Simulator {
	return &Simulator{cfg: cfg}
}

// DefaultMonthlyInflation is used when no inflation reading is available.
func (s *Simulator) DefaultMonthlyInflation() float64 {
	return s.cfg.DefaultMonthlyInflation
}

// Compare runs the installment comparison with the configured tolerance and attaches the
// alternative projections. Empty offer lists fall back to the configured default rates.
func (s *Simulator) Compare(cashPrice, totalInstallmentPrice float64, count int, monthlyInflationPercent float64, wallets, deposits []model.Rate) (InstallmentComparison, error) {
	if s.cfg.MaxInstallments > 0 && count > s.cfg.MaxInstallments {
		return InstallmentComparison{}, invalid("installment count must be at most %d", s.cfg.MaxInstallments)
	}
	tolerance := s.cfg.InstallmentTolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	cmp, err := CompareWithTolerance(cashPrice, totalInstallmentPrice, count, monthlyInflationPercent, tolerance)
	if err != nil {
		return InstallmentComparison{}, err
	}
	alt := ProjectAlternatives(cashPrice, count,
		AverageRate(wallets, s.cfg.DefaultWalletRate),
		AverageRate(deposits, s.cfg.DefaultTermDepositRate))
	if !allFinite(alt.WalletProjection, alt.DepositProjection) {
		return InstallmentComparison{}, invalid("alternative projections out of range")
	}
	cmp.Alternatives = &alt
	return cmp, nil
}
