package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/raster"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testGrid(t *testing.T) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(2, 2, [6]float64{-74.5, 0.25, 0, 5.5, 0, -0.25}, "EPSG:4326", nil)
	require.NoError(t, err)
	return g
}

func testClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		grid:       testGrid(t),
		retries:    retries,
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    testMetrics(),
	}
}

func TestClient_FetchSeries_Success(t *testing.T) {
	at := time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rasters/precipitation", r.URL.Path)
		assert.Equal(t, "2023-07-01T00:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2023-07-31T00:00:00Z", r.URL.Query().Get("to"))

		resp := streamResponse{
			Band: "precipitation",
			Observations: []observation{
				{Time: at, Values: []float64{1.5, 2.5, -9999, 4.5}, Nodata: -9999},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 1)
	series, err := c.FetchSeries(context.Background(),
		"precipitation",
		time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 7, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())

	l := series.At(0)
	assert.True(t, l.Time().Equal(at))

	v, ok := l.At(1)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = l.At(2)
	assert.False(t, ok, "sentinel pixel must arrive masked")
}

func TestClient_FetchSeries_EmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(streamResponse{Band: "lst"}))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 1)
	series, err := c.FetchSeries(context.Background(), "lst", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.True(t, series.Empty(), "empty window is a normal result, not an error")
}

func TestClient_FetchSeries_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(streamResponse{Band: "ndvi"}))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.FetchSeries(context.Background(), "ndvi", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchSeries_ClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"unknown band"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.FetchSeries(context.Background(), "bogus", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load(), "client errors must not be retried")
}

func TestClient_FetchSeries_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	_, err := c.FetchSeries(context.Background(), "pet", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchSeries_SizeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := streamResponse{
			Band: "lst",
			Observations: []observation{
				{Time: time.Now().UTC(), Values: []float64{1, 2, 3}, Nodata: -9999},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 1)
	_, err := c.FetchSeries(context.Background(), "lst", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}
