package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/forecast"
	"github.com/weatheragent/core/internal/risk"
)

type fakeCatalog struct {
	events []discovery.Event
	prices map[string]float64
}

func (f *fakeCatalog) ListWeatherEvents(ctx context.Context) ([]discovery.Event, error) {
	return f.events, nil
}

func (f *fakeCatalog) Prices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	return f.prices, nil
}

type fakeParser struct{}

func (fakeParser) Parse(event discovery.Event) (domain.Market, float64, bool) {
	m, ok := event.Raw.(domain.Market)
	if !ok {
		return domain.Market{}, 0, false
	}
	return m, 0.9, true
}

type fakeProvider struct {
	high *float64
}

func (p fakeProvider) Fetch(ctx context.Context, lat, lon float64, date time.Time) (forecast.ProviderResult, error) {
	return forecast.ProviderResult{High: p.high, Source: "fake"}, nil
}

func testMarket() domain.Market {
	upper, lower := 49.0, 54.0
	resolvesAt := time.Now().Add(30 * time.Hour)
	targetDate := time.Date(resolvesAt.Year(), resolvesAt.Month(), resolvesAt.Day(), 0, 0, 0, 0, time.UTC)
	return domain.Market{
		ConditionID: "cond-1",
		StationCode: "TESTCITY",
		Region:      "TestRegion",
		Timezone:    "UTC",
		TargetDate:  targetDate,
		Metric:      domain.MetricDailyMaxTemp,
		Bins: []domain.Bin{
			{TokenID: "t-floor", Label: "floor", Upper: &upper, IsFloor: true},
			{TokenID: "t-ceiling", Label: "ceiling", Lower: &lower, IsCeiling: true},
		},
		ResolvesAt: resolvesAt,
	}
}

func permissiveRisk() *risk.Manager {
	return risk.NewManager(risk.Limits{
		MaxExposurePerMarketUSD: 1000,
		MaxExposurePerRegionUSD: 1000,
		MaxExposurePerDateUSD:   1000,
		MaxDailyLossUSD:         1000,
		MaxDataAge:              time.Hour,
		MinOrderSizeUSD:         1,
		MaxOrderSizeUSD:         100,
	})
}

func stationLookup(station domain.Station) StationLookup {
	return func(code string) (domain.Station, bool) {
		if code == station.Code {
			return station, true
		}
		return domain.Station{}, false
	}
}

func newTestService(t *testing.T, catalog *fakeCatalog, high float64, cfg Config) *Service {
	t.Helper()

	disc := discovery.NewService(catalog, fakeParser{}, 0.8)
	fc := forecast.NewService([]forecast.Provider{fakeProvider{high: &high}}, nil)
	riskMgr := permissiveRisk()
	station := domain.Station{Code: "TESTCITY", Latitude: 10, Longitude: 20, Timezone: "UTC"}

	return NewService(disc, fc, riskMgr, stationLookup(station), cfg)
}

func baseConfig() Config {
	return Config{
		MaxLeadDays:             14,
		DiscoveryInterval:       time.Minute,
		ForecastRefreshInterval: time.Minute,
		EdgeThreshold:           0.05,
		MaxOrderSizeUSD:         50,
	}
}

func TestRunOnceEnqueuesSignalsForLargeEdges(t *testing.T) {
	market := testMarket()
	catalog := &fakeCatalog{
		events: []discovery.Event{{Raw: market}},
		prices: map[string]float64{"t-floor": 0.10, "t-ceiling": 0.90},
	}

	svc := newTestService(t, catalog, 30.0, baseConfig())
	svc.RunOnce(context.Background())

	pending := svc.Queue().Snapshot()
	require.Len(t, pending, 2)

	byToken := make(map[string]domain.TradeSignal, 2)
	for _, sig := range pending {
		byToken[sig.Bin.TokenID] = sig
	}

	floorSig, ok := byToken["t-floor"]
	require.True(t, ok)
	assert.Equal(t, domain.SideBuy, floorSig.Side)
	assert.Greater(t, floorSig.RecommendedSizeUSD, 0.0)

	ceilingSig, ok := byToken["t-ceiling"]
	require.True(t, ok)
	assert.Equal(t, domain.SideSell, ceilingSig.Side)
}

func TestRunOnceSkipsWhenEdgeBelowThreshold(t *testing.T) {
	market := testMarket()
	catalog := &fakeCatalog{
		events: []discovery.Event{{Raw: market}},
		// Prices already near the Monitor's fair estimate: no edge.
		prices: map[string]float64{"t-floor": 0.999, "t-ceiling": 0.001},
	}

	svc := newTestService(t, catalog, 30.0, baseConfig())
	svc.RunOnce(context.Background())

	assert.Equal(t, 0, svc.Queue().Len())
}

func TestRunOnceDoesNotDuplicateSignalsAcrossIterations(t *testing.T) {
	market := testMarket()
	catalog := &fakeCatalog{
		events: []discovery.Event{{Raw: market}},
		prices: map[string]float64{"t-floor": 0.10, "t-ceiling": 0.90},
	}

	svc := newTestService(t, catalog, 30.0, baseConfig())
	svc.RunOnce(context.Background())
	svc.RunOnce(context.Background())

	assert.Equal(t, 2, svc.Queue().Len())
}

func TestRunOnceSkipsMarketWithUnknownStation(t *testing.T) {
	market := testMarket()
	market.StationCode = "NOWHERE"
	catalog := &fakeCatalog{
		events: []discovery.Event{{Raw: market}},
		prices: map[string]float64{"t-floor": 0.10, "t-ceiling": 0.90},
	}

	svc := newTestService(t, catalog, 30.0, baseConfig())
	svc.RunOnce(context.Background())

	assert.Equal(t, 0, svc.Queue().Len())
}
