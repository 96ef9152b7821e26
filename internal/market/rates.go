package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"finboard/internal/config"
	"finboard/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const logoBaseURL = "https://icons.com.ar/logos/"

func logoFor(name string) string {
	return logoBaseURL + strings.Join(strings.Fields(strings.ToLower(name)), "-") + ".svg"
}

type termDepositItem struct {
	Entidad     string `json:"entidad"`
	Logo        string `json:"logo"`
	TNAClientes number `json:"tnaClientes"`
	Enlace      string `json:"enlace"`
}

type accountItem struct {
	Nombre string `json:"nombre"`
	TNA    number `json:"tna"`
	Limite number `json:"limite"`
	URL    string `json:"url"`
}

type stakingItem struct {
	Entidad      string `json:"entidad"`
	Logo         string `json:"logo"`
	URL          string `json:"url"`
	Rendimientos []struct {
		Moneda string `json:"moneda"`
		APY    number `json:"apy"`
	} `json:"rendimientos"`
}

type fundDetail struct {
	Detalle struct {
		Rendimientos struct {
			Diario struct {
				TNA number `json:"tna"`
			} `json:"diario"`
		} `json:"rendimientos"`
	} `json:"detalle"`
}

// RateClient fetches yield offers. Each kind is fetched on demand and fails independently.
type RateClient struct {
	logger  *slog.Logger
	fetcher *Fetcher
	cfg     config.RatesConfig
}

// NewRateClient creates a new RateClient.
func NewRateClient(logger *slog.Logger, fetcher *Fetcher, cfg config.RatesConfig) *RateClient {
	return &RateClient{logger: logger, fetcher: fetcher, cfg: cfg}
}

// Rates dispatches on the offer kind.
func (c *RateClient) Rates(ctx context.Context, kind model.RateKind) ([]model.Rate, error) {
	switch kind {
	case model.RateTermDeposit:
		return c.TermDeposits(ctx)
	case model.RateRemuneratedAccount:
		return c.RemuneratedAccounts(ctx)
	case model.RateStaking:
		return c.Staking(ctx)
	}
	return nil, fmt.Errorf("%w: unknown rate kind %q", model.ErrValidation, kind)
}

// TermDeposits returns fixed-term deposit offers. The provider publishes the customer rate
// as a fraction; it is converted to a percent rounded to two decimals.
func (c *RateClient) TermDeposits(ctx context.Context) ([]model.Rate, error) {
	var items []termDepositItem
	if err := c.fetcher.GetJSON(ctx, joinURL(c.cfg.BaseURL, "/plazos-fijos"), &items); err != nil {
		return nil, fmt.Errorf("term deposits: %w", err)
	}
	return parseTermDeposits(items), nil
}

func parseTermDeposits(items []termDepositItem) []model.Rate {
	rates := make([]model.Rate, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Entidad) == "" {
			continue
		}
		rate := decimal.Zero
		if it.TNAClientes.Valid {
			rate = it.TNAClientes.Decimal.Mul(decimal.NewFromInt(100)).Round(2)
		}
		logo := it.Logo
		if logo == "" {
			logo = logoFor(it.Entidad)
		}
		rates = append(rates, model.Rate{
			Entity:            it.Entidad,
			Kind:              model.RateTermDeposit,
			NominalAnnualRate: rate,
			TermDays:          30,
			Logo:              logo,
			URL:               it.Enlace,
		})
	}
	return rates
}

// RemuneratedAccounts merges the general account list with the configured wallet funds.
// A wallet entry overwrites a general entry with the same name.
func (c *RateClient) RemuneratedAccounts(ctx context.Context) ([]model.Rate, error) {
	var (
		order    []string
		byEntity = make(map[string]model.Rate)
	)
	put := func(r model.Rate) {
		if _, ok := byEntity[r.Entity]; !ok {
			order = append(order, r.Entity)
		}
		byEntity[r.Entity] = r
	}

	var errs []error
	var items []accountItem
	if err := c.fetcher.GetJSON(ctx, joinURL(c.cfg.BaseURL, "/cuentas-remuneradas"), &items); err != nil {
		c.logger.Error("RateClient: remunerated accounts fetch failed", "error", err)
		errs = append(errs, err)
	} else {
		for _, r := range parseAccounts(items) {
			put(r)
		}
	}

	funds := c.fundRates(ctx)
	for _, r := range funds {
		put(r)
	}

	if len(errs) > 0 && len(funds) == 0 {
		return nil, fmt.Errorf("remunerated accounts: %w", errors.Join(errs...))
	}

	rates := make([]model.Rate, 0, len(order))
	for _, name := range order {
		rates = append(rates, byEntity[name])
	}
	return rates, nil
}

func parseAccounts(items []accountItem) []model.Rate {
	rates := make([]model.Rate, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Nombre) == "" {
			continue
		}
		rate := decimal.Zero
		if it.TNA.Valid {
			rate = it.TNA.Decimal
		}
		rates = append(rates, model.Rate{
			Entity:            it.Nombre,
			Kind:              model.RateRemuneratedAccount,
			NominalAnnualRate: rate,
			MinimumAmount:     it.Limite.nonNegative(),
			Logo:              logoFor(it.Nombre),
			URL:               it.URL,
		})
	}
	return rates
}

func (c *RateClient) fundRates(ctx context.Context) []model.Rate {
	results := make([]*model.Rate, len(c.cfg.Wallets))

	var g errgroup.Group
	g.SetLimit(4)
	for i, w := range c.cfg.Wallets {
		i, w := i, w
		g.Go(func() error {
			var detail fundDetail
			if err := c.fetcher.GetJSON(ctx, w.URL, &detail); err != nil {
				c.logger.Warn("RateClient: wallet fund fetch failed", "wallet", w.Name, "error", err)
				return nil
			}
			tna := decimal.Zero
			if d := detail.Detalle.Rendimientos.Diario.TNA; d.Valid {
				tna = d.Decimal
			}
			logo := w.Logo
			if logo == "" {
				logo = logoFor(w.Name)
			}
			results[i] = &model.Rate{
				Entity:            w.Name,
				Kind:              model.RateRemuneratedAccount,
				NominalAnnualRate: tna,
				Logo:              logo,
			}
			return nil
		})
	}
	_ = g.Wait()

	var rates []model.Rate
	for _, r := range results {
		if r != nil {
			rates = append(rates, *r)
		}
	}
	return rates
}

// Staking returns crypto yield offers with a positive APY.
func (c *RateClient) Staking(ctx context.Context) ([]model.Rate, error) {
	var items []stakingItem
	if err := c.fetcher.GetJSON(ctx, joinURL(c.cfg.BaseURL, "/v1/finanzas/rendimientos"), &items); err != nil {
		return nil, fmt.Errorf("staking: %w", err)
	}
	return parseStaking(items), nil
}

func parseStaking(items []stakingItem) []model.Rate {
	var rates []model.Rate
	for _, ex := range items {
		for _, y := range ex.Rendimientos {
			apy, ok := y.APY.positive()
			if !ok || strings.TrimSpace(y.Moneda) == "" {
				continue
			}
			rates = append(rates, model.Rate{
				Entity:            fmt.Sprintf("%s (%s)", y.Moneda, ex.Entidad),
				Kind:              model.RateStaking,
				NominalAnnualRate: apy,
				Coin:              y.Moneda,
				Logo:              logoFor(y.Moneda),
				URL:               ex.URL,
			})
		}
	}
	return rates
}

// SortRates orders offers by rate (descending when desc) or alphabetically by entity.
func SortRates(rates []model.Rate, byRate, desc bool) {
	sort.SliceStable(rates, func(i, j int) bool {
		if !byRate {
			return strings.ToLower(rates[i].Entity) < strings.ToLower(rates[j].Entity)
		}
		if desc {
			return rates[i].NominalAnnualRate.GreaterThan(rates[j].NominalAnnualRate)
		}
		return rates[i].NominalAnnualRate.LessThan(rates[j].NominalAnnualRate)
	})
}
