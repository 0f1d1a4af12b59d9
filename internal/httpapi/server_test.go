package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/metrics"
	"github.com/weatheragent/core/internal/paperledger"
	"github.com/weatheragent/core/internal/risk"
)

func testLimits() risk.Limits {
	return risk.Limits{
		MaxExposurePerMarketUSD: 50,
		MaxExposurePerRegionUSD: 150,
		MaxExposurePerDateUSD:   300,
		MaxDailyLossUSD:         100,
		MaxDataAge:              30 * time.Minute,
		MinOrderSizeUSD:         1,
		MaxOrderSizeUSD:         25,
	}
}

func TestHandleHealthzReportsHealthyByDefault(t *testing.T) {
	riskMgr := risk.NewManager(testLimits())
	disc := discovery.NewService(nil, nil, 0.6)
	srv := New(riskMgr, disc, metrics.New(), nil, Config{Addr: ":0"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Paused)
}

func TestHandleHealthzReportsDegradedWhenPaused(t *testing.T) {
	riskMgr := risk.NewManager(testLimits())
	riskMgr.PauseTrading("manual halt")
	disc := discovery.NewService(nil, nil, 0.6)
	srv := New(riskMgr, disc, metrics.New(), nil, Config{Addr: ":0"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.True(t, body.Paused)
	assert.Equal(t, "manual halt", body.PauseReason)
}

func TestHandleStatusIncludesExposureSnapshot(t *testing.T) {
	riskMgr := risk.NewManager(testLimits())
	disc := discovery.NewService(nil, nil, 0.6)
	srv := New(riskMgr, disc, metrics.New(), nil, Config{Addr: ":0"})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.ActiveMarkets)
	assert.NotNil(t, body.Exposure.PerMarket)
	assert.Nil(t, body.PaperLedger)
}

func TestHandleStatusIncludesPaperLedgerWhenDryRun(t *testing.T) {
	riskMgr := risk.NewManager(testLimits())
	disc := discovery.NewService(nil, nil, 0.6)
	ledger := paperledger.NewLedger()
	srv := New(riskMgr, disc, metrics.New(), ledger, Config{Addr: ":0"})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.PaperLedger)
	assert.Equal(t, 0, body.PaperLedger.TotalFills)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	riskMgr := risk.NewManager(testLimits())
	disc := discovery.NewService(nil, nil, 0.6)
	srv := New(riskMgr, disc, metrics.New(), nil, Config{Addr: ":0"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}
