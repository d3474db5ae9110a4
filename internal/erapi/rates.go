// Package erapi fetches exchange rates from the open.er-api.com API.
package erapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"resty.dev/v3"

	"ratewidget/internal/fetcher"
	"ratewidget/internal/ratelimit"
	"ratewidget/internal/rates"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://open.er-api.com/v6"

// LatestResponse represents the API response for the latest rates.
// Fields other than Rates are informational.
type LatestResponse struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type,omitempty"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64              `json:"time_next_update_unix"`
	Rates              map[string]float64 `json:"rates"`
}

// RatesFetcher fetches the latest rate table for one base currency
type RatesFetcher struct {
	base    rates.Currency
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// Option configures a RatesFetcher.
type Option func(*options)

type options struct {
	timeout time.Duration
	retries int
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry retries failed requests up to count times.
func WithRetry(count int) Option {
	return func(o *options) { o.retries = count }
}

// WithLimiter throttles requests through l.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithLogger sets the logger used for retry attempts.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewRatesFetcher creates a new rates fetcher
func NewRatesFetcher(base rates.Currency, baseURL string, opts ...Option) *RatesFetcher {
	o := options{timeout: 10 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &RatesFetcher{
		base:    base,
		client:  fetcher.NewHTTPClient(baseURL, o.timeout, o.retries, o.logger),
		limiter: o.limiter,
	}
}

// Fetch retrieves the latest rates. Failures are *fetcher.FetchError values;
// an answer without a usable rates mapping is a validation error.
func (f *RatesFetcher) Fetch(ctx context.Context) (*rates.Table, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, ratelimit.APIExchangeRates); err != nil {
			return nil, fetcher.ClassifyTransportError(err)
		}
	}

	var result LatestResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("base", string(f.base)).
		SetResult(&result).
		Get("/latest/{base}")

	if err != nil {
		if isDecodeError(err) {
			e := fetcher.NewValidationError("response is not valid JSON")
			e.Cause = err
			return nil, e
		}
		return nil, fetcher.ClassifyTransportError(fmt.Errorf("fetch rates for %s: %w", f.base, err))
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	return result.table(f.base)
}

// Source identifies this fetcher in logs
func (f *RatesFetcher) Source() string {
	return fmt.Sprintf("erapi:%s", f.base)
}

// Close releases the underlying HTTP client.
func (f *RatesFetcher) Close() error {
	return f.client.Close()
}

// table validates the response and converts it into a rate table.
func (r *LatestResponse) table(requested rates.Currency) (*rates.Table, error) {
	if r.Result == "error" {
		return nil, fetcher.NewValidationError(fmt.Sprintf("api returned error: %s", r.ErrorType))
	}
	if len(r.Rates) == 0 {
		return nil, fetcher.NewValidationError("rates not found in response")
	}

	base := rates.Currency(r.BaseCode)
	if base == "" {
		base = requested
	}

	var updated time.Time
	if r.TimeLastUpdateUnix > 0 {
		updated = time.Unix(r.TimeLastUpdateUnix, 0).UTC()
	}

	mapping := make(map[rates.Currency]rates.Rate, len(r.Rates))
	for code, rate := range r.Rates {
		mapping[rates.Currency(code)] = rates.Rate(rate)
	}

	table, err := rates.NewTable(base, updated, mapping)
	if err != nil {
		e := fetcher.NewValidationError(err.Error())
		e.Cause = err
		return nil, e
	}
	return table, nil
}

// isDecodeError reports whether err came from decoding the body. A body cut
// off mid-document surfaces from json.Decoder as io.ErrUnexpectedEOF.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
