// Package monitor runs the signal-generator loop: it drives discovery and
// forecast refresh, prices every upcoming market through the Probability
// Engine, and enqueues deduplicated TradeSignals for the Executor.
package monitor

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/forecast"
	"github.com/weatheragent/core/internal/probability"
	"github.com/weatheragent/core/internal/risk"
)

const (
	// frictionSpread is subtracted (halved) from every raw edge before it is
	// classified, modeling the bid/ask spread the Executor will actually pay.
	frictionSpread = 0.02
	// kellySignalMaxFraction caps the signal-time Kelly sizing fraction,
	// distinct from the risk manager's own position caps.
	kellySignalMaxFraction = 0.1
	// kellyBankrollUSD is the nominal bankroll Kelly sizing is computed
	// against; real exposure is still bounded by the Risk Manager.
	kellyBankrollUSD = 100.0
	// jitterFraction is the +/-10% jitter applied to the loop sleep.
	jitterFraction = 0.1
)

// StationLookup recovers a Station record (lat/lon/timezone) from a
// market's station code. Implementations live with their location tables;
// the Monitor only needs the mapping.
type StationLookup func(stationCode string) (domain.Station, bool)

// Config holds the Monitor's tunables, all sourced from the agent's
// top-level Config.
type Config struct {
	MaxLeadDays             int
	DiscoveryInterval       time.Duration
	ForecastRefreshInterval time.Duration
	EdgeThreshold           float64
	MaxOrderSizeUSD         float64
}

// Service is the Weather Monitor.
type Service struct {
	discovery *discovery.Service
	forecasts *forecast.Service
	risk      *risk.Manager
	stations  StationLookup
	queue     *SignalQueue
	cfg       Config

	lastDiscovery time.Time
	now           func() time.Time
	rng           *rand.Rand
}

// NewService builds a Monitor bound to its discovery/forecast/risk
// collaborators and a station lookup.
func NewService(disc *discovery.Service, forecasts *forecast.Service, riskMgr *risk.Manager, stations StationLookup, cfg Config) *Service {
	return &Service{
		discovery: disc,
		forecasts: forecasts,
		risk:      riskMgr,
		stations:  stations,
		queue:     NewSignalQueue(),
		cfg:       cfg,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Queue exposes the pending-signal queue for the Executor.
func (s *Service) Queue() *SignalQueue { return s.queue }

// Run drives the cooperative loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		s.RunOnce(ctx)

		sleep := jitter(s.cfg.ForecastRefreshInterval, jitterFraction, s.rng)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// RunOnce executes a single Monitor iteration: discovery (if due), price
// refresh, and per-market probability evaluation.
func (s *Service) RunOnce(ctx context.Context) {
	now := s.now()
	if now.Sub(s.lastDiscovery) > s.cfg.DiscoveryInterval {
		if err := s.discovery.Discover(ctx); err != nil {
			log.Printf("[monitor] discovery failed: %v", err)
		}
		s.lastDiscovery = now
	}

	markets := s.discovery.GetUpcoming(s.cfg.MaxLeadDays)
	if len(markets) == 0 {
		return
	}

	allPrices, err := s.discovery.RefreshPrices(ctx, markets)
	if err != nil {
		log.Printf("[monitor] price refresh failed: %v", err)
		return
	}
	s.risk.UpdateDataTimestamp()

	for _, market := range markets {
		s.evaluateMarket(ctx, market, allPrices[market.ConditionID])
	}
}

func (s *Service) evaluateMarket(ctx context.Context, market domain.Market, prices map[string]float64) {
	station, ok := s.stations(market.StationCode)
	if !ok {
		return
	}

	f, err := s.forecasts.GetEnsembleForecast(ctx, station, market.TargetDate)
	if err != nil {
		log.Printf("[monitor] forecast fetch failed for %s: %v", market.ConditionID, err)
		return
	}
	if f == nil {
		return
	}

	var maxSoFar *float64
	if market.LeadDays(s.now()) <= 0 && market.Metric == domain.MetricDailyMaxTemp {
		v, err := s.forecasts.GetDailyMaxSoFar(ctx, station)
		if err != nil {
			log.Printf("[monitor] max-so-far fetch failed for %s: %v", market.ConditionID, err)
		} else {
			maxSoFar = v
		}
	}

	probs := probability.Evaluate(market, *f, maxSoFar)
	probs = probability.ApplyPrices(probs, prices)

	for _, bp := range probs {
		s.evaluateBin(market, bp, *f, maxSoFar)
	}
}

func (s *Service) evaluateBin(market domain.Market, bp domain.BinProbability, f domain.Forecast, maxSoFar *float64) {
	frictionAdjustedEdge := bp.Edge - frictionSpread/2

	action := probability.ShouldTrade(frictionAdjustedEdge, s.cfg.EdgeThreshold, bp.IsPossible)
	if action == probability.ActionNone {
		return
	}

	side := domain.SideBuy
	if action == probability.ActionSell {
		side = domain.SideSell
	}

	sizeUSD := s.sizeSignal(bp, side)
	if sizeUSD <= 0 {
		return
	}

	var bin domain.Bin
	for _, b := range market.Bins {
		if b.TokenID == bp.TokenID {
			bin = b
			break
		}
	}

	decision := s.risk.CanTrade(market, sizeUSD)
	if !decision.Allowed {
		return
	}

	sig := domain.TradeSignal{
		Market:             market,
		Bin:                bin,
		Side:               side,
		FairProbability:    bp.FairProbability,
		MarketPrice:        bp.MarketPrice,
		Edge:               bp.Edge,
		RecommendedSizeUSD: sizeUSD,
		Reason:             string(action),
		Forecast:           f,
		MaxSoFar:           maxSoFar,
		GeneratedAt:        s.now(),
	}

	if s.queue.Enqueue(sig) {
		log.Printf("[monitor] signal %s %s %s edge=%.4f size=$%.2f", side, market.ConditionID, bin.Label, bp.Edge, sizeUSD)
	}
}

// sizeSignal computes the Kelly-sized stake against the signal-time
// bankroll, capped by the configured max order size. A SELL is sized as a
// BUY of the complementary outcome (1-fair against 1-price): the Kelly
// formula is defined for a BUY, and selling this bin is economically a bet
// on its complement.
func (s *Service) sizeSignal(bp domain.BinProbability, side domain.Side) float64 {
	fair, price := bp.FairProbability, bp.MarketPrice
	if side == domain.SideSell {
		fair, price = 1-fair, 1-price
	}

	kelly := probability.KellyFraction(fair, price, kellySignalMaxFraction)
	size := kelly * kellyBankrollUSD
	if size > s.cfg.MaxOrderSizeUSD {
		size = s.cfg.MaxOrderSizeUSD
	}
	return size
}

func jitter(base time.Duration, fraction float64, rng *rand.Rand) time.Duration {
	if fraction <= 0 {
		return base
	}
	delta := (rng.Float64()*2 - 1) * fraction
	return time.Duration(float64(base) * (1 + delta))
}
