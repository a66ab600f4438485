// Package lookup fetches real-time data (stocks, crypto, weather, news and
// the caller's city) from public HTTP APIs. Every provider sits behind its
// own circuit breaker.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNoAPIKey   = errors.New("api key not configured")
	ErrBadPayload = errors.New("unexpected response")
)

const maxBody = 1 << 20

type options struct {
	baseURL string
	timeout time.Duration
}

type Option func(*options)

// WithBaseURL points a provider at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func buildOptions(defaultBase string, opts []Option) options {
	o := options{baseURL: defaultBase, timeout: 10 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// fetcher performs GET requests for one provider.
type fetcher struct {
	hc      *http.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func newFetcher(name string, hc *http.Client, timeout time.Duration) *fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Lookup breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &fetcher{hc: hc, cb: cb, timeout: timeout}
}

// statusError carries a non-2xx response. 4xx responses do not trip the
// breaker.
type statusError struct {
	code int
	body gjson.Result
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.code)
}

// getJSON fetches url and parses the body. Bodies of 4xx responses are
// returned alongside the error for providers that report details there.
func (f *fetcher) getJSON(ctx context.Context, url string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var clientErr *statusError
	res, err := f.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "riya/1.0")

		resp, err := f.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &statusError{code: resp.StatusCode}
		}
		if resp.StatusCode >= 400 {
			// client errors are answers, not outages
			clientErr = &statusError{code: resp.StatusCode, body: gjson.ParseBytes(body)}
			return nil, nil
		}
		if !gjson.ValidBytes(body) {
			return nil, ErrBadPayload
		}
		return gjson.ParseBytes(body), nil
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if clientErr != nil {
		return clientErr.body, clientErr
	}
	return res.(gjson.Result), nil
}
