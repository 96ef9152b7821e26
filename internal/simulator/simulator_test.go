package simulator

import (
	"math"
	"testing"

	"finboard/internal/config"
	"finboard/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCompound(t *testing.T) {
	p, err := ProjectCompound(100000, 40, 30)
	require.NoError(t, err)

	assert.InDelta(t, 103340.5, p.FinalAmount, 1)
	assert.InDelta(t, p.FinalAmount-100000, p.Interest, 1e-9)
	assert.InDelta(t, 49.15, p.EffectiveAnnualRate, 0.01)
	for _, v := range []float64{p.FinalAmount, p.Interest, p.EffectiveAnnualRate} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.Positive(t, v)
	}

	t.Run("zero days", func(t *testing.T) {
		p, err := ProjectCompound(5000, 40, 0)
		require.NoError(t, err)
		assert.Equal(t, 5000.0, p.FinalAmount)
		assert.Zero(t, p.Interest)
	})

	t.Run("invalid input", func(t *testing.T) {
		cases := []struct {
			name                  string
			principal, rate, days float64
		}{
			{"negative principal", -1, 40, 30},
			{"nan principal", math.NaN(), 40, 30},
			{"negative days", 1000, 40, -5},
			{"infinite days", 1000, 40, math.Inf(1)},
			{"nan rate", 1000, math.NaN(), 30},
			{"final amount overflows", 100000, 40, 1e6},
			{"principal overflows", math.MaxFloat64, 40, 30},
			{"effective rate overflows", 1000, 1e300, 1},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := ProjectCompound(tc.principal, tc.rate, tc.days)
				assert.ErrorIs(t, err, model.ErrValidation)
			})
		}
	})
}

func TestCompareInstallmentsToCash(t *testing.T) {
	cmp, err := CompareInstallmentsToCash(100000, 120000, 12, 5)
	require.NoError(t, err)

	require.Len(t, cmp.AdjustedInstallments, 12)
	assert.Equal(t, 10000.0, cmp.Installment)
	assert.InDelta(t, 10000/1.05, cmp.AdjustedInstallments[0], 1e-9)
	for i := 1; i < len(cmp.AdjustedInstallments); i++ {
		assert.Less(t, cmp.AdjustedInstallments[i], cmp.AdjustedInstallments[i-1])
	}

	assert.InDelta(t, 88632.52, cmp.PresentValue, 0.01)
	assert.InDelta(t, 20, cmp.TotalFinancedCost, 1e-9)
	assert.Positive(t, cmp.TotalFinancedCost)
	assert.InDelta(t, 79.59, cmp.AnnualInflation, 0.01)
	assert.Equal(t, FavorInstallments, cmp.Recommendation)
}

func TestCompareWithTolerance(t *testing.T) {
	// Present value 97087 sits between cash*(1-tolerance) and cash.
	cmp, err := CompareWithTolerance(100000, 100000, 1, 3, 0.05)
	require.NoError(t, err)
	assert.Equal(t, FavorCash, cmp.Recommendation)

	cmp, err = CompareWithTolerance(100000, 100000, 1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, FavorInstallments, cmp.Recommendation)

	t.Run("cheaper plan", func(t *testing.T) {
		cmp, err := CompareInstallmentsToCash(100000, 90000, 3, 0)
		require.NoError(t, err)
		assert.Negative(t, cmp.TotalFinancedCost)
		assert.Equal(t, FavorInstallments, cmp.Recommendation)
	})
}

func TestCompareInstallmentsToCash_Invalid(t *testing.T) {
	cases := []struct {
		name        string
		cash, total float64
		count       int
		inflation   float64
	}{
		{"zero cash", 0, 1000, 3, 3},
		{"negative total", 1000, -1, 3, 3},
		{"zero count", 1000, 1200, 0, 3},
		{"nan inflation", 1000, 1200, 3, math.NaN()},
		{"inflation at -100", 1000, 1200, 3, -100},
		{"infinite cash", math.Inf(1), 1200, 3, 3},
		{"count above limit", 1000, 1200, MaxInstallments + 1, 3},
		{"huge count", 100, 120, 1 << 62, 5},
		{"annual inflation overflows", 100, 100, 12, 1e200},
		{"present value overflows", 1000, 1200, 360, -99.9999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompareInstallmentsToCash(tc.cash, tc.total, tc.count, tc.inflation)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestAnnualizeMonthly(t *testing.T) {
	assert.InDelta(t, 42.576, AnnualizeMonthly(3), 0.001)
	assert.Zero(t, AnnualizeMonthly(0))
}

func TestProjectAlternatives(t *testing.T) {
	alt := ProjectAlternatives(100000, 12, 30, 35)
	assert.InDelta(t, 130000, alt.WalletProjection, 1e-6)
	assert.InDelta(t, 135000, alt.DepositProjection, 1e-6)

	alt = ProjectAlternatives(100000, 6, 21, 0)
	assert.InDelta(t, 110000, alt.WalletProjection, 1e-6)
	assert.InDelta(t, 100000, alt.DepositProjection, 1e-6)
}

func TestAverageRate(t *testing.T) {
	assert.Equal(t, 30.0, AverageRate(nil, 30))

	rates := []model.Rate{
		{Entity: "a", NominalAnnualRate: decimal.NewFromInt(30)},
		{Entity: "b", NominalAnnualRate: decimal.NewFromInt(40)},
	}
	assert.Equal(t, 35.0, AverageRate(rates, 0))
}

func TestSimulator_Compare(t *testing.T) {
	sim := New(config.SimulatorConfig{DefaultWalletRate: 30, DefaultTermDepositRate: 35, DefaultMonthlyInflation: 3})
	assert.Equal(t, 3.0, sim.DefaultMonthlyInflation())

	cmp, err := sim.Compare(100000, 120000, 12, 5, nil, []model.Rate{{NominalAnnualRate: decimal.NewFromInt(40)}})
	require.NoError(t, err)
	require.NotNil(t, cmp.Alternatives)
	assert.Equal(t, 30.0, cmp.Alternatives.WalletRate)
	assert.Equal(t, 40.0, cmp.Alternatives.TermDepositRate)
	assert.InDelta(t, 140000, cmp.Alternatives.DepositProjection, 1e-6)
	assert.Equal(t, FavorInstallments, cmp.Recommendation)

	_, err = sim.Compare(0, 120000, 12, 5, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSimulator_CompareInstallmentLimit(t *testing.T) {
	sim := New(config.SimulatorConfig{DefaultWalletRate: 30, DefaultTermDepositRate: 35, MaxInstallments: 24})

	_, err := sim.Compare(100000, 120000, 24, 5, nil, nil)
	require.NoError(t, err)

	_, err = sim.Compare(100000, 120000, 25, 5, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	cmp, err := CompareInstallmentsToCash(100000, 120000, MaxInstallments, 1)
	require.NoError(t, err)
	assert.Len(t, cmp.AdjustedInstallments, MaxInstallments)
}

func TestSimulator_CompareAlternativesOverflow(t *testing.T) {
	sim := New(config.SimulatorConfig{DefaultWalletRate: 1e300, DefaultTermDepositRate: 35})
	_, err := sim.Compare(100000, 120000, 360, 5, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}
