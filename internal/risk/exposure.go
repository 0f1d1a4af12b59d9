// Package risk tracks exposure across markets, regions, and dates, and
// enforces the kill switch that halts trading on a daily realized loss
// breach, stale data, or explicit pause.
package risk

import (
	"sync"
	"time"
)

// ExposureBook is the single process-wide aggregate of open USD exposure,
// owned exclusively by Manager. All reads and writes go through Manager's
// API; nothing else mutates it.
type ExposureBook struct {
	mu sync.Mutex

	perMarket map[string]float64
	perRegion map[string]float64
	perDate   map[string]float64

	realizedDailyPnL float64
	lastPnLReset     string // civil day, "2006-01-02"

	lastDataUpdate time.Time

	isPaused    bool
	pauseReason string
}

// NewExposureBook returns an empty book reset to today's civil day.
func NewExposureBook(now time.Time) *ExposureBook {
	return &ExposureBook{
		perMarket:    make(map[string]float64),
		perRegion:    make(map[string]float64),
		perDate:      make(map[string]float64),
		lastPnLReset: civilDay(now),
	}
}

func civilDay(t time.Time) string {
	return t.Format("2006-01-02")
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
