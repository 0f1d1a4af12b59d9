package forecast

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/probability"
)

const (
	forecastTTL    = 30 * time.Minute
	observationTTL = 5 * time.Minute
)

// Service ensembles its providers into Forecasts, caches them, and
// deduplicates concurrent fetches for the same station/date.
type Service struct {
	providers    []Provider
	observations ObservationProvider

	group singleflight.Group

	mu           sync.Mutex
	cache        map[string]cachedForecast
	obsCache     map[string]cachedObservation

	now func() time.Time
}

type cachedForecast struct {
	forecast domain.Forecast
	expires  time.Time
}

type cachedObservation struct {
	maxSoFar float64
	expires  time.Time
}

// NewService builds the ensemble forecast service from two or more
// independent providers.
func NewService(providers []Provider, observations ObservationProvider) *Service {
	return &Service{
		providers:    providers,
		observations: observations,
		cache:        make(map[string]cachedForecast),
		obsCache:     make(map[string]cachedObservation),
		now:          time.Now,
	}
}

func cacheKey(stationCode string, date time.Time) string {
	return stationCode + "|" + date.Format("2006-01-02")
}

// GetEnsembleForecast fetches from every configured provider in parallel,
// fails soft (uses whichever providers answered), and returns nil if none
// did. Concurrent callers for the same (station, date) collapse into a
// single in-flight fetch.
func (s *Service) GetEnsembleForecast(ctx context.Context, station domain.Station, date time.Time) (*domain.Forecast, error) {
	key := cacheKey(station.Code, date)

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expires) {
		s.mu.Unlock()
		f := cached.forecast
		return &f, nil
	}
	s.mu.Unlock()

	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetchEnsemble(ctx, station, date)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	f := result.(domain.Forecast)

	s.mu.Lock()
	s.cache[key] = cachedForecast{forecast: f, expires: s.now().Add(forecastTTL)}
	s.mu.Unlock()

	return &f, nil
}

func (s *Service) fetchEnsemble(ctx context.Context, station domain.Station, date time.Time) (any, error) {
	results := make([]ProviderResult, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			r, err := p.Fetch(gctx, station.Latitude, station.Longitude, date)
			if err != nil {
				log.Printf("[forecast] provider fetch failed for %s: %v", station.Code, err)
				return nil // fail-soft: a provider error is "no data", not fatal
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	highs, lows := make([]float64, 0, len(results)), make([]float64, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		if r.High != nil {
			highs = append(highs, *r.High)
		}
		if r.Low != nil {
			lows = append(lows, *r.Low)
		}
		if r.Source != "" {
			sources = append(sources, r.Source)
		}
	}

	if len(highs) == 0 && len(lows) == 0 {
		return nil, nil
	}

	leadDays := leadDays(s.now(), date)
	base := probability.Sigma(leadDays)

	forecast := domain.Forecast{
		StationCode: station.Code,
		TargetDate:  date,
		Source:      ensembleLabel(sources),
		RetrievedAt: s.now(),
		LeadDays:    leadDays,
	}
	if len(highs) > 0 {
		mean := average(highs)
		sigma := base + 0.35*spread(highs)
		forecast.ForecastHigh = &mean
		forecast.SigmaHigh = &sigma
	}
	if len(lows) > 0 {
		mean := average(lows)
		sigma := base + 0.35*spread(lows)
		forecast.ForecastLow = &mean
		forecast.SigmaLow = &sigma
	}

	return forecast, nil
}

func leadDays(now, target time.Time) int {
	dayEnd := time.Date(target.Year(), target.Month(), target.Day(), 23, 59, 59, 0, target.Location())
	days := int(math.Ceil(dayEnd.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func average(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func spread(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi - lo
}

func ensembleLabel(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	if len(sources) == 1 {
		return sources[0]
	}
	label := "Ensemble("
	for i, s := range sources {
		if i > 0 {
			label += "+"
		}
		label += s
	}
	return label + ")"
}

// GetDailyMaxSoFar returns the maximum hourly temperature observed today,
// up to and including the current local hour. Returns nil if no hours have
// elapsed yet or the observation provider has nothing to say.
func (s *Service) GetDailyMaxSoFar(ctx context.Context, station domain.Station) (*float64, error) {
	if s.observations == nil {
		return nil, nil
	}

	key := station.Code

	s.mu.Lock()
	if cached, ok := s.obsCache[key]; ok && s.now().Before(cached.expires) {
		s.mu.Unlock()
		v := cached.maxSoFar
		return &v, nil
	}
	s.mu.Unlock()

	hours, err := s.observations.HourlyToday(ctx, station.Latitude, station.Longitude, station.Timezone)
	if err != nil {
		log.Printf("[forecast] observation fetch failed for %s: %v", station.Code, err)
		return nil, nil
	}
	if len(hours) == 0 {
		return nil, nil
	}

	loc, err := time.LoadLocation(station.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", station.Timezone, err)
	}
	currentHour := s.now().In(loc).Hour()
	limit := currentHour + 1
	if limit > len(hours) {
		limit = len(hours)
	}
	if limit == 0 {
		return nil, nil
	}

	max := hours[0]
	for _, h := range hours[:limit] {
		if h > max {
			max = h
		}
	}

	s.mu.Lock()
	s.obsCache[key] = cachedObservation{maxSoFar: max, expires: s.now().Add(observationTTL)}
	s.mu.Unlock()

	return &max, nil
}

// GetSigma is a pure lookup into the lead-day sigma table.
func (s *Service) GetSigma(leadDays int) float64 {
	return probability.Sigma(leadDays)
}
