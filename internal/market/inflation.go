package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/model"

	"github.com/shopspring/decimal"
)

// ErrNoInflationData is returned when the series has no usable reading.
var ErrNoInflationData = errors.New("no inflation data available")

type inflationSeries struct {
	Data [][]json.RawMessage `json:"data"`
}

// InflationClient reads the official monthly consumer price series.
type InflationClient struct {
	logger  *slog.Logger
	fetcher *Fetcher
	url     string
	now     func() time.Time
}

// NewInflationClient creates a new InflationClient.
func NewInflationClient(logger *slog.Logger, fetcher *Fetcher, url string) *InflationClient {
	return &InflationClient{logger: logger, fetcher: fetcher, url: url, now: time.Now}
}

// Latest returns the most recent non-null monthly change not dated after today, in percent.
func (c *InflationClient) Latest(ctx context.Context) (model.InflationReading, error) {
	var series inflationSeries
	if err := c.fetcher.GetJSON(ctx, c.url, &series); err != nil {
		return model.InflationReading{}, fmt.Errorf("inflation: %w", err)
	}
	reading, err := latestInflation(series, c.now())
	if err != nil {
		c.logger.Warn("InflationClient: no recent reading", "error", err)
		return model.InflationReading{}, err
	}
	return reading, nil
}

func latestInflation(series inflationSeries, today time.Time) (model.InflationReading, error) {
	var (
		best  model.InflationReading
		found bool
	)
	for _, row := range series.Data {
		if len(row) < 2 {
			continue
		}
		var dateStr string
		if err := json.Unmarshal(row[0], &dateStr); err != nil {
			continue
		}
		date, err := time.Parse(model.DateLayout, dateStr)
		if err != nil || date.After(today) {
			continue
		}
		var value number
		if err := json.Unmarshal(row[1], &value); err != nil || !value.Valid {
			continue
		}
		if !found || date.After(best.Date) {
			best = model.InflationReading{
				Date:           date,
				MonthlyPercent: value.Decimal.Mul(decimal.NewFromInt(100)).Round(2),
			}
			found = true
		}
	}
	if !found {
		return model.InflationReading{}, ErrNoInflationData
	}
	return best, nil
}
