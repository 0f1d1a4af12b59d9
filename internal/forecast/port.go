// Package forecast ensembles two independent ForecastProvider sources into
// a best-available Forecast, caches results with a TTL, and exposes the
// day-of max-so-far observation used for conditioning.
package forecast

import (
	"context"
	"time"
)

// ProviderResult is one provider's opinion on a station/date. High and Low
// are nil when the provider has no data for that field; a provider must
// never report zero in place of "no data".
type ProviderResult struct {
	High   *float64
	Low    *float64
	Source string
}

// Provider is a ForecastProvider port implementation: one independent
// weather data source.
type Provider interface {
	Fetch(ctx context.Context, lat, lon float64, date time.Time) (ProviderResult, error)
}

// ObservationProvider reports today's hourly temperatures so far, in the
// station's local civil day.
type ObservationProvider interface {
	HourlyToday(ctx context.Context, lat, lon float64, tz string) ([]float64, error)
}

// HistoricalProvider serves backtests; the core does not require it.
type HistoricalProvider interface {
	HistoricalDaily(ctx context.Context, lat, lon float64, date time.Time) (high, low float64, ok bool, err error)
}
