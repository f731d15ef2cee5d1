package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/geoandina/droughtfire/internal/adapter/http"
	"github.com/geoandina/droughtfire/internal/pipeline"
	"github.com/geoandina/droughtfire/internal/raster"
)

type mockService struct {
	stack    *pipeline.DailyStack
	hotspots *raster.Layer
	assessed time.Time
	err      error
	readyErr error
}

func (m *mockService) Assess(_ context.Context, date time.Time) (*pipeline.DailyStack, error) {
	m.assessed = date
	return m.stack, m.err
}

func (m *mockService) Hotspots(_ *pipeline.DailyStack) *raster.Layer { return m.hotspots }

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func testStack(t *testing.T) (*pipeline.DailyStack, *raster.Layer) {
	t.Helper()
	g, err := raster.NewGrid(2, 1, [6]float64{-74.5, 0.25, 0, 5.5, 0, -0.25}, "EPSG:4326", nil)
	require.NoError(t, err)
	at := time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)

	idx, err := raster.NewLayer(g, "drought_index", at, []float64{-1.5, 0.2})
	require.NoError(t, err)
	fdci, err := raster.NewLayer(g, "fdci", at, []float64{0.7, 0.3})
	require.NoError(t, err)
	mask, err := raster.NewLayer(g, "hotspot", at, []float64{1, 0})
	require.NoError(t, err)

	return &pipeline.DailyStack{Date: at, Index: idx, FDCI: fdci}, mask
}

func newTestServer(svc httpadapter.AssessmentService) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockService{readyErr: fmt.Errorf("not ready yet")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAssessmentReturnsSummary(t *testing.T) {
	stack, mask := testStack(t)
	svc := &mockService{stack: stack, hotspots: mask}
	srv := newTestServer(svc)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments/2023-07-15", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC), svc.assessed)

	var body pipeline.AlertSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2023-07-15", body.Date)
	assert.Equal(t, pipeline.RegionName, body.Region)
	assert.Equal(t, 1, body.HotspotPixels)
	assert.Equal(t, 2, body.ValidPixels)
	assert.InDelta(t, 0.5, body.MeanFDCI, 1e-9)
}

func TestAssessmentRejectsBadDate(t *testing.T) {
	srv := newTestServer(&mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments/july-15", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssessmentReturns502OnSourceFailure(t *testing.T) {
	srv := newTestServer(&mockService{err: fmt.Errorf("fetch observation streams: boom")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments/2023-07-15", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "boom")
}
