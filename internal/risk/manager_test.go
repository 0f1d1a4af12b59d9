package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/domain"
)

func testLimits() Limits {
	return Limits{
		MaxExposurePerMarketUSD: 50,
		MaxExposurePerRegionUSD: 200,
		MaxExposurePerDateUSD:   300,
		MaxDailyLossUSD:         100,
		MaxDataAge:              time.Hour,
		MinOrderSizeUSD:         1,
		MaxOrderSizeUSD:         25,
	}
}

func testMarket() domain.Market {
	return domain.Market{
		ConditionID: "cond-1",
		Region:      "northeast",
		TargetDate:  time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestCanTradeRejectsOverPerMarketCap(t *testing.T) {
	m := NewManager(testLimits())
	market := testMarket()

	m.RecordTrade(market, 45, domain.SideBuy)

	decision := m.CanTrade(market, 10)
	require.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "per-market")
}

func TestRecordTradeIncreasesAggregatesByExactSize(t *testing.T) {
	m := NewManager(testLimits())
	market := testMarket()

	decision := m.CanTrade(market, 10)
	require.True(t, decision.Allowed)

	m.RecordTrade(market, 10, domain.SideBuy)

	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	assert.Equal(t, 10.0, m.book.perMarket[market.ConditionID])
	assert.Equal(t, 10.0, m.book.perRegion[market.Region])
	assert.Equal(t, 10.0, m.book.perDate[market.TargetDate.Format("2006-01-02")])
}

func TestRecordTradeAggregatesNeverGoNegative(t *testing.T) {
	m := NewManager(testLimits())
	market := testMarket()

	m.RecordTrade(market, 5, domain.SideBuy)
	m.RecordTrade(market, 20, domain.SideSell)

	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	assert.Equal(t, 0.0, m.book.perMarket[market.ConditionID])
}

func TestKillSwitchActivatesOnDailyLossBreach(t *testing.T) {
	m := NewManager(testLimits())
	market := testMarket()

	m.RecordPnL(-101)

	health := m.IsHealthy()
	assert.False(t, health.Healthy)
	assert.True(t, health.Paused)

	decision := m.CanTrade(market, 5)
	assert.False(t, decision.Allowed)
}

func TestDailyResetZeroesPnLAndResumesKillSwitch(t *testing.T) {
	m := NewManager(testLimits())
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return day1 }

	m.RecordPnL(-101)
	require.True(t, m.IsHealthy().Paused)

	day2 := day1.Add(24 * time.Hour)
	m.now = func() time.Time { return day2 }

	decision := m.CanTrade(testMarket(), 5)
	assert.True(t, decision.Allowed)

	m.book.mu.Lock()
	assert.Equal(t, 0.0, m.book.realizedDailyPnL)
	m.book.mu.Unlock()
}

func TestUpdateDataTimestampClearsStaleness(t *testing.T) {
	limits := testLimits()
	limits.MaxDataAge = time.Minute
	m := NewManager(limits)

	old := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return old }
	m.UpdateDataTimestamp()

	m.now = time.Now
	health := m.IsHealthy()
	assert.True(t, health.StaleData)

	m.UpdateDataTimestamp()
	assert.False(t, m.IsHealthy().StaleData)
}

func TestClearMarketExposureRemovesContribution(t *testing.T) {
	m := NewManager(testLimits())
	market := testMarket()

	m.RecordTrade(market, 20, domain.SideBuy)
	m.ClearMarketExposure(market)

	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	_, exists := m.book.perMarket[market.ConditionID]
	assert.False(t, exists)
	assert.Equal(t, 0.0, m.book.perRegion[market.Region])
}

func TestPauseAndResumeTrading(t *testing.T) {
	m := NewManager(testLimits())
	m.PauseTrading("manual stop")
	assert.False(t, m.CanTrade(testMarket(), 5).Allowed)

	m.ResumeTrading()
	assert.True(t, m.CanTrade(testMarket(), 5).Allowed)
}
