package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher performs JSON GET requests with capped exponential backoff.
type Fetcher struct {
	Client      *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewFetcher returns a fetcher with the given per-request timeout and retry policy.
func NewFetcher(timeout time.Duration, maxAttempts int, baseDelay time.Duration) *Fetcher {
	return &Fetcher{
		Client:      &http.Client{Timeout: timeout},
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
	}
}

// GetJSON decodes the body of url into out. Server errors and network failures are retried;
// client errors and malformed bodies are not.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("malformed body from %s: %w", url, err))
		}
		return nil
	}

	attempts := f.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 16 * b.InitialInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}

// number decodes a JSON number or numeric string. Anything else (null, garbage, objects)
// leaves it invalid instead of failing the whole payload.
type number struct {
	decimal.NullDecimal
}

func (n *number) UnmarshalJSON(b []byte) error {
	n.NullDecimal = decimal.NullDecimal{}
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// positive returns the value if it is a valid number greater than zero.
func (n number) positive() (decimal.Decimal, bool) {
	if !n.Valid || !n.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return n.Decimal, true
}

// nonNegative drops negative prices, which providers use as placeholders.
func (n number) nonNegative() decimal.NullDecimal {
	if !n.Valid || n.Decimal.IsNegative() {
		return decimal.NullDecimal{}
	}
	return n.NullDecimal
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
