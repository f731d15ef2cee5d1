// Package catalog fetches time-window slices of named observation streams
// from the raster catalog service. Fetches may be slow or remote; transient
// failures are retried with bounded exponential backoff, and successful
// window slices can be cached (see CachedSource).
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/raster"
)

// Client retrieves observation streams over HTTP and converts them to
// layers on the reference grid. It implements pipeline.Source.
type Client struct {
	baseURL    string
	httpClient *http.Client
	grid       *raster.Grid
	retries    int
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a catalog client. retries is the total number of
// attempts per fetch, at least 1.
func NewClient(baseURL string, timeout time.Duration, retries int, grid *raster.Grid, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		grid:       grid,
		retries:    retries,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// observation is one timestamped raster in the catalog wire format. Values
// are native-scale, row-major, one per grid pixel; nodata pixels carry the
// declared sentinel.
type observation struct {
	Time   time.Time `json:"time"`
	Values []float64 `json:"values"`
	Nodata float64   `json:"nodata"`
}

type streamResponse struct {
	Band         string        `json:"band"`
	Observations []observation `json:"observations"`
}

// FetchSeries retrieves all observations of a band with timestamps in
// [from, to] and returns them as a chronological series. An empty series is
// a normal result; exhausted retries surface as an error.
func (c *Client) FetchSeries(ctx context.Context, band string, from, to time.Time) (*raster.TimeSeries, error) {
	params := url.Values{
		"from": {from.Format(time.RFC3339)},
		"to":   {to.Format(time.RFC3339)},
	}
	fullURL := fmt.Sprintf("%s/v1/rasters/%s?%s", c.baseURL, url.PathEscape(band), params.Encode())

	// Exponential backoff between attempts: start at 200ms, double each
	// retry, cap at 5s.
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		start := c.clock.Now()
		resp, err := c.fetchOnce(ctx, fullURL)
		c.metrics.SourceFetchDuration.WithLabelValues(band).Observe(c.clock.Since(start).Seconds())

		if err == nil {
			c.metrics.SourceFetchTotal.WithLabelValues(band, "success").Inc()
			return c.toSeries(band, resp)
		}
		lastErr = err

		var fatal *fatalError
		if errors.As(err, &fatal) {
			c.metrics.SourceFetchTotal.WithLabelValues(band, "error").Inc()
			return nil, fmt.Errorf("fetch %s stream: %w", band, err)
		}

		c.logger.Warn("catalog fetch failed",
			"band", band,
			"attempt", attempt,
			"retries", c.retries,
			"error", err,
		)
		if attempt == c.retries {
			break
		}
		if !c.sleep(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.metrics.SourceFetchTotal.WithLabelValues(band, "error").Inc()
	return nil, fmt.Errorf("fetch %s stream after %d attempts: %w", band, c.retries, lastErr)
}

// fatalError marks failures that retrying cannot fix (client errors,
// malformed payloads).
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func (c *Client) fetchOnce(ctx context.Context, fullURL string) (*streamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &fatalError{fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &fatalError{fmt.Errorf("catalog error: status %d: %s", resp.StatusCode, body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog error: status %d", resp.StatusCode)
	}

	var sr streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &fatalError{fmt.Errorf("decode catalog response: %w", err)}
	}
	return &sr, nil
}

// toSeries converts a wire response to a TimeSeries, turning the declared
// nodata sentinel into masked pixels at the boundary.
func (c *Client) toSeries(band string, sr *streamResponse) (*raster.TimeSeries, error) {
	series := raster.NewTimeSeries(band)
	for _, obs := range sr.Observations {
		l, err := raster.FromSentinel(c.grid, band, obs.Time, obs.Values, obs.Nodata)
		if err != nil {
			return nil, fmt.Errorf("observation %s at %s: %w", band, obs.Time.Format(time.RFC3339), err)
		}
		if err := series.Add(l); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// sleep waits for d using the injected clock, returning false if the
// context is cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}
