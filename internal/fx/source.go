package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource supplies single-pair exchange rates. Implementations are
// external collaborators: the core only ever sees the frozen Table a
// source's rates were merged into.
type RateSource interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// SourceFunc adapts a function to the RateSource interface.
type SourceFunc func(ctx context.Context, from, to string) (decimal.Decimal, error)

// FetchRate calls f.
func (f SourceFunc) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	return f(ctx, from, to)
}

// staticRates maps "FROM/TO" to a fixed rate string. Development and
// test data; production deployments configure an HTTPSource.
var staticRates = map[string]string{
	"EUR/USD": "1.0850",
	"GBP/USD": "1.2650",
	"USD/JPY": "149.50",
	"USD/CHF": "0.8820",
	"AUD/USD": "0.6520",
	"USD/CAD": "1.3580",
	"EUR/GBP": "0.8580",
	"USD/BGN": "1.8040",
	"EUR/BGN": "1.9558",
}

// StaticSource serves hardcoded rates for common pairs, falling back to
// the inverse pair when only the opposite direction is listed.
type StaticSource struct{}

// NewStaticSource creates a StaticSource.
func NewStaticSource() *StaticSource { return &StaticSource{} }

// FetchRate returns the static rate for the pair.
func (s *StaticSource) FetchRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	key := strings.ToUpper(from) + "/" + strings.ToUpper(to)
	if raw, ok := staticRates[key]; ok {
		return decimal.NewFromString(raw)
	}
	inverse := strings.ToUpper(to) + "/" + strings.ToUpper(from)
	if raw, ok := staticRates[inverse]; ok {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(1).Div(d), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrRateUnavailable, key)
}

// HTTPSource fetches rates from an exchangerate-api style endpoint:
// GET {baseURL}/{from} returns {"base": "...", "rates": {"USD": 1.1, ...}}.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource against the given base URL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRate retrieves the latest quote for one pair. Network failures
// and unknown target currencies both surface as errors; the caller
// decides whether to retry.
func (s *HTTPSource) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := s.baseURL + "/" + strings.ToUpper(from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: fetch %s rates: %w", from, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fx: fetch %s rates: status %d", from, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("fx: decode %s rates: %w", from, err)
	}

	rate, ok := body.Rates[strings.ToUpper(to)]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, from, to)
	}
	return rate, nil
}
