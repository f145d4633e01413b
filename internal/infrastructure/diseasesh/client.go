// Package diseasesh is the HTTP adapter for disease.sh-compatible APIs
// serving cumulative COVID and vaccination time series per country.
package diseasesh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"HealthMetricsETL/internal/config"
	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/ports"
)

const (
	historicalPath = "/v3/covid-19/historical/"
	vaccinePath    = "/v3/covid-19/vaccine/coverage/countries/"
)

var (
	errNotFound    = errors.New("country not found upstream")
	errServerError = errors.New("server error")
	errRateLimited = errors.New("rate limited")
)

// Client fetches raw series over HTTP with retries, exponential backoff, and
// a circuit breaker per process.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

var _ ports.SeriesSource = (*Client)(nil)

// NewClient builds a reusable API client from configuration.
func NewClient(cfg config.APIConfig, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "diseasesh",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logger,
	}
}

type historicalPayload struct {
	Country  string `json:"country"`
	Timeline struct {
		Cases     timeline `json:"cases"`
		Deaths    timeline `json:"deaths"`
		Recovered timeline `json:"recovered"`
	} `json:"timeline"`
}

type vaccinePayload struct {
	Country  string   `json:"country"`
	Timeline timeline `json:"timeline"`
}

// FetchCases retrieves the full cumulative case/death/recovery history for a
// country. Range filtering happens downstream; the range is validated here so
// a bad request never reaches the network.
func (c *Client) FetchCases(ctx context.Context, country string, start, end time.Time) (domain.RawCaseSeries, error) {
	if err := validateRequest(country, start, end); err != nil {
		return domain.RawCaseSeries{}, err
	}

	c.debug("fetching case history", "country", country)
	body, err := c.get(ctx, country, c.baseURL+historicalPath+url.PathEscape(country)+"?lastdays=all")
	if err != nil {
		return domain.RawCaseSeries{}, err
	}

	var payload historicalPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.RawCaseSeries{}, &domain.FetchError{Kind: domain.FetchInvalidResponse, Country: country, Err: err}
	}
	if len(payload.Timeline.Cases) == 0 {
		return domain.RawCaseSeries{}, &domain.FetchError{
			Kind:    domain.FetchEmptyResult,
			Country: country,
			Err:     errors.New("timeline has no case entries"),
		}
	}

	c.debug("fetched case history", "country", country, "entries", len(payload.Timeline.Cases))
	return domain.RawCaseSeries{
		Country:   country,
		Cases:     payload.Timeline.Cases,
		Deaths:    payload.Timeline.Deaths,
		Recovered: payload.Timeline.Recovered,
	}, nil
}

// FetchVaccinations retrieves the cumulative administered-dose history.
func (c *Client) FetchVaccinations(ctx context.Context, country string, start, end time.Time) (domain.RawVaccineSeries, error) {
	if err := validateRequest(country, start, end); err != nil {
		return domain.RawVaccineSeries{}, err
	}

	c.debug("fetching vaccination history", "country", country)
	body, err := c.get(ctx, country, c.baseURL+vaccinePath+url.PathEscape(country)+"?lastdays=all")
	if err != nil {
		return domain.RawVaccineSeries{}, err
	}

	var payload vaccinePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.RawVaccineSeries{}, &domain.FetchError{Kind: domain.FetchInvalidResponse, Country: country, Err: err}
	}
	if len(payload.Timeline) == 0 {
		return domain.RawVaccineSeries{}, &domain.FetchError{
			Kind:    domain.FetchEmptyResult,
			Country: country,
			Err:     errors.New("timeline has no entries"),
		}
	}

	c.debug("fetched vaccination history", "country", country, "entries", len(payload.Timeline))
	return domain.RawVaccineSeries{Country: country, Doses: payload.Timeline}, nil
}

func validateRequest(country string, start, end time.Time) error {
	if strings.TrimSpace(country) == "" {
		return &domain.ValidationError{Kind: domain.ValidationMissingParameter, Msg: "country must not be empty"}
	}
	if start.After(end) {
		return &domain.ValidationError{
			Kind: domain.ValidationInvalidDateRange,
			Msg:  fmt.Sprintf("start %s is after end %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		}
	}
	return nil
}

// get executes the request with retry, backoff, and breaker, and maps every
// failure onto the fetch taxonomy. 5xx and 429 are retried; a 404 means the
// upstream does not know the country.
func (c *Client) get(ctx context.Context, country, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Country: country, Err: err}
		}

		body, err := c.doOnce(ctx, requestURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, errNotFound) {
			return nil, &domain.ValidationError{
				Kind: domain.ValidationUnknownCountry,
				Msg:  fmt.Sprintf("API has no data for country %q", country),
			}
		}

		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Country = country
			return nil, fetchErr
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Country: country, Err: err}
		}

		lastErr = err
		if attempt >= c.maxRetries {
			break
		}

		wait := c.backoff << uint(attempt)
		c.debug("retrying request", "country", country, "attempt", attempt+1, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Country: country, Err: ctx.Err()}
		}
	}

	return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Country: country, Err: lastErr}
}

// doOnce performs a single attempt through the circuit breaker. Retryable
// outcomes come back as plain errors; terminal outcomes are already typed.
func (c *Client) doOnce(ctx context.Context, requestURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, errNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %s", errServerError, resp.Status)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &domain.FetchError{
				Kind: domain.FetchInvalidResponse,
				Err:  fmt.Errorf("unexpected status %s", resp.Status),
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
