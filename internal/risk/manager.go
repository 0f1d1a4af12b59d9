package risk

import (
	"fmt"
	"time"

	"github.com/weatheragent/core/internal/domain"
)

// Limits configures the Manager's pre-trade checks and kill switch.
type Limits struct {
	MaxExposurePerMarketUSD float64
	MaxExposurePerRegionUSD float64
	MaxExposurePerDateUSD   float64
	MaxDailyLossUSD         float64
	MaxDataAge              time.Duration
	MinOrderSizeUSD         float64
	MaxOrderSizeUSD         float64
}

const pauseReasonDailyLoss = "Daily loss limit reached"

// Manager enforces risk limits and owns the ExposureBook.
type Manager struct {
	limits Limits
	book   *ExposureBook
	now    func() time.Time
}

// NewManager constructs a Manager with its own ExposureBook.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits: limits,
		book:   NewExposureBook(time.Now()),
		now:    time.Now,
	}
}

// Decision is the verdict of a canTrade check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }
func deny(reason string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(reason, args...)}
}

// CanTrade runs the ordered pre-trade checks from the risk spec: pause
// state, data freshness, the three exposure caps, then the order-size band.
// The first failing check wins.
func (m *Manager) CanTrade(market domain.Market, sizeUSD float64) Decision {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	m.resetDailyPnLIfNewDayLocked()

	if m.book.isPaused {
		return deny("trading paused: %s", m.book.pauseReason)
	}

	if !m.book.lastDataUpdate.IsZero() && m.now().Sub(m.book.lastDataUpdate) >= m.limits.MaxDataAge {
		return deny("market data is stale (age %s exceeds %s)", m.now().Sub(m.book.lastDataUpdate), m.limits.MaxDataAge)
	}

	dateKey := market.TargetDate.Format("2006-01-02")

	if m.book.perMarket[market.ConditionID]+sizeUSD > m.limits.MaxExposurePerMarketUSD {
		return deny("exceeds per-market exposure cap of $%.2f for market %s", m.limits.MaxExposurePerMarketUSD, market.ConditionID)
	}
	if m.book.perRegion[market.Region]+sizeUSD > m.limits.MaxExposurePerRegionUSD {
		return deny("exceeds per-region exposure cap of $%.2f for region %s", m.limits.MaxExposurePerRegionUSD, market.Region)
	}
	if m.book.perDate[dateKey]+sizeUSD > m.limits.MaxExposurePerDateUSD {
		return deny("exceeds per-date exposure cap of $%.2f for date %s", m.limits.MaxExposurePerDateUSD, dateKey)
	}

	if sizeUSD < m.limits.MinOrderSizeUSD || sizeUSD > m.limits.MaxOrderSizeUSD {
		return deny("order size $%.2f outside allowed band [$%.2f, $%.2f]", sizeUSD, m.limits.MinOrderSizeUSD, m.limits.MaxOrderSizeUSD)
	}

	return allow()
}

// RecordTrade adjusts exposure aggregates for a confirmed fill. BUY adds to
// all three aggregates; SELL subtracts, floored at 0.
func (m *Manager) RecordTrade(market domain.Market, sizeUSD float64, side domain.Side) {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	dateKey := market.TargetDate.Format("2006-01-02")
	delta := sizeUSD
	if side == domain.SideSell {
		delta = -sizeUSD
	}

	m.book.perMarket[market.ConditionID] = floorZero(m.book.perMarket[market.ConditionID] + delta)
	m.book.perRegion[market.Region] = floorZero(m.book.perRegion[market.Region] + delta)
	m.book.perDate[dateKey] = floorZero(m.book.perDate[dateKey] + delta)
}

// RecordPnL adds a realized fill's P&L to the daily total, activating the
// kill switch if the configured daily loss threshold is breached.
func (m *Manager) RecordPnL(realizedUSD float64) {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	m.resetDailyPnLIfNewDayLocked()

	m.book.realizedDailyPnL += realizedUSD
	if m.book.realizedDailyPnL < -m.limits.MaxDailyLossUSD {
		m.book.isPaused = true
		m.book.pauseReason = pauseReasonDailyLoss
	}
}

// UpdateDataTimestamp is called by the Monitor after every successful price
// refresh, marking the exposure book's data as fresh.
func (m *Manager) UpdateDataTimestamp() {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	m.book.lastDataUpdate = m.now()
}

// PauseTrading sets an explicit pause that lasts until ResumeTrading.
func (m *Manager) PauseTrading(reason string) {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	m.book.isPaused = true
	m.book.pauseReason = reason
}

// ResumeTrading clears an explicit pause.
func (m *Manager) ResumeTrading() {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	m.book.isPaused = false
	m.book.pauseReason = ""
}

// Health summarizes the book's current state for the /healthz surface.
type Health struct {
	Healthy        bool
	Paused         bool
	PauseReason    string
	StaleData      bool
	ApproachingLoss bool
	RealizedDailyPnL float64
}

// IsHealthy reports whether the book is paused, has stale data, or is
// approaching (>80% of) the daily loss limit.
func (m *Manager) IsHealthy() Health {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	stale := !m.book.lastDataUpdate.IsZero() && m.now().Sub(m.book.lastDataUpdate) >= m.limits.MaxDataAge
	approaching := m.limits.MaxDailyLossUSD > 0 && -m.book.realizedDailyPnL > 0.8*m.limits.MaxDailyLossUSD

	return Health{
		Healthy:          !m.book.isPaused && !stale,
		Paused:           m.book.isPaused,
		PauseReason:      m.book.pauseReason,
		StaleData:        stale,
		ApproachingLoss:  approaching,
		RealizedDailyPnL: m.book.realizedDailyPnL,
	}
}

// ExposureSnapshot is a point-in-time copy of the exposure book, returned
// by Snapshot for the /status surface.
type ExposureSnapshot struct {
	PerMarket        map[string]float64
	PerRegion        map[string]float64
	PerDate          map[string]float64
	RealizedDailyPnL float64
	Paused           bool
	PauseReason      string
}

// Snapshot copies the exposure book's current state out for read-only
// reporting. Callers must not assume the maps stay in sync after return.
func (m *Manager) Snapshot() ExposureSnapshot {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	snap := ExposureSnapshot{
		PerMarket:        make(map[string]float64, len(m.book.perMarket)),
		PerRegion:        make(map[string]float64, len(m.book.perRegion)),
		PerDate:          make(map[string]float64, len(m.book.perDate)),
		RealizedDailyPnL: m.book.realizedDailyPnL,
		Paused:           m.book.isPaused,
		PauseReason:      m.book.pauseReason,
	}
	for k, v := range m.book.perMarket {
		snap.PerMarket[k] = v
	}
	for k, v := range m.book.perRegion {
		snap.PerRegion[k] = v
	}
	for k, v := range m.book.perDate {
		snap.PerDate[k] = v
	}
	return snap
}

// ClearMarketExposure is called on resolution: it removes the market's
// contribution from the region and date aggregates and deletes its
// perMarket entry entirely.
func (m *Manager) ClearMarketExposure(market domain.Market) {
	m.book.mu.Lock()
	defer m.book.mu.Unlock()

	dateKey := market.TargetDate.Format("2006-01-02")
	exposure := m.book.perMarket[market.ConditionID]

	m.book.perRegion[market.Region] = floorZero(m.book.perRegion[market.Region] - exposure)
	m.book.perDate[dateKey] = floorZero(m.book.perDate[dateKey] - exposure)
	delete(m.book.perMarket, market.ConditionID)
}

// CheckDailyStopWithMTM is an opt-in extension (spec's Open Question): it
// folds unrealized mark-to-market P&L into the kill-switch decision. It is
// not wired into the default Monitor loop; call it explicitly after a
// price refresh if MTM-aware halting is desired.
func (m *Manager) CheckDailyStopWithMTM(positions []domain.Position) {
	unrealized := 0.0
	for _, p := range positions {
		unrealized += p.Size * (p.CurPrice - p.AvgPrice)
	}

	m.book.mu.Lock()
	defer m.book.mu.Unlock()
	m.resetDailyPnLIfNewDayLocked()

	if m.book.realizedDailyPnL+unrealized < -m.limits.MaxDailyLossUSD {
		m.book.isPaused = true
		m.book.pauseReason = pauseReasonDailyLoss
	}
}

// resetDailyPnLIfNewDayLocked zeroes the daily P&L and, if the pause was
// the daily-loss kill switch, resumes trading automatically. Caller must
// hold book.mu.
func (m *Manager) resetDailyPnLIfNewDayLocked() {
	today := civilDay(m.now())
	if today == m.book.lastPnLReset {
		return
	}
	m.book.realizedDailyPnL = 0
	m.book.lastPnLReset = today
	if m.book.pauseReason == pauseReasonDailyLoss {
		m.book.isPaused = false
		m.book.pauseReason = ""
	}
}
