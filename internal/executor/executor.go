// Package executor drains the Monitor's signal queue: it re-checks risk at
// fill time, prices and submits orders (or paper-fills them in dry-run
// mode), and reports outcomes through the notification sink.
package executor

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/notify"
	"github.com/weatheragent/core/internal/risk"
	"github.com/weatheragent/core/internal/venue"
)

const (
	staleSignalTTL    = 5 * time.Minute
	pollJitterFrac    = 0.2
	paperBuySpread    = 0.01
	paperSellSpread   = 0.01
	priceFloor        = 0.01
	priceCeiling      = 0.99
	priceImproveTicks = 0.01
)

// Config holds the Executor's tunables.
type Config struct {
	PollInterval time.Duration
	DryRun       bool
}

// Service is the Executor.
type Service struct {
	queue   SignalQueue
	risk    *risk.Manager
	venue   venue.OrderVenue
	ledger  PaperLedger
	sink    notify.Sink
	cfg     Config

	now func() time.Time
	rng *rand.Rand
}

// NewService builds an Executor. ledger may be nil when cfg.DryRun is
// false.
func NewService(queue SignalQueue, riskMgr *risk.Manager, v venue.OrderVenue, ledger PaperLedger, sink notify.Sink, cfg Config) *Service {
	return &Service{
		queue:  queue,
		risk:   riskMgr,
		venue:  v,
		ledger: ledger,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the cooperative loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		s.RunOnce(ctx)

		sleep := jitter(s.cfg.PollInterval, pollJitterFrac, s.rng)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// RunOnce executes a single Executor iteration.
func (s *Service) RunOnce(ctx context.Context) {
	health := s.risk.IsHealthy()
	if !health.Healthy {
		return
	}

	for _, sig := range s.queue.Snapshot() {
		s.process(ctx, sig)
	}
}

func (s *Service) process(ctx context.Context, sig domain.TradeSignal) {
	defer s.queue.Remove(sig)

	if s.now().Sub(sig.GeneratedAt) > staleSignalTTL {
		log.Printf("[executor] dropping stale signal %s (age %s)", sig.Key(), s.now().Sub(sig.GeneratedAt))
		return
	}

	decision := s.risk.CanTrade(sig.Market, sig.RecommendedSizeUSD)
	if !decision.Allowed {
		log.Printf("[executor] risk rejected signal %s: %s", sig.Key(), decision.Reason)
		return
	}

	orderPrice := clampPrice(orderPriceFor(sig))
	tokenAmount := sig.RecommendedSizeUSD / orderPrice

	if s.cfg.DryRun {
		s.paperFill(ctx, sig, orderPrice, tokenAmount)
		return
	}

	s.submit(ctx, sig, orderPrice, tokenAmount)
}

func orderPriceFor(sig domain.TradeSignal) float64 {
	if sig.Side == domain.SideBuy {
		return math.Min(sig.FairProbability-priceImproveTicks, sig.MarketPrice)
	}
	return math.Max(sig.FairProbability+priceImproveTicks, sig.MarketPrice)
}

func clampPrice(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeiling {
		return priceCeiling
	}
	return p
}

func (s *Service) paperFill(ctx context.Context, sig domain.TradeSignal, orderPrice, tokenAmount float64) {
	fillPrice := orderPrice
	if sig.Side == domain.SideBuy {
		fillPrice = clampPrice(orderPrice + paperBuySpread)
	} else {
		fillPrice = clampPrice(orderPrice - paperSellSpread)
	}

	if s.ledger != nil {
		s.ledger.RecordFill(ctx, sig, fillPrice)
	}

	s.notify(sig, fillPrice, tokenAmount, "paper fill")
}

func (s *Service) submit(ctx context.Context, sig domain.TradeSignal, orderPrice, tokenAmount float64) {
	result := s.venue.PlaceLimit(ctx, sig.Bin.TokenID, sig.Side, orderPrice, tokenAmount, venue.OrderTypeGTC)
	if !result.OK {
		log.Printf("[executor] order failed for %s: %v", sig.Key(), result.Err)
		return
	}

	s.risk.RecordTrade(sig.Market, sig.RecommendedSizeUSD, sig.Side)
	s.notify(sig, orderPrice, tokenAmount, "order "+result.OrderID)
}

func (s *Service) notify(sig domain.TradeSignal, price, size float64, note string) {
	if s.sink == nil {
		return
	}
	s.sink.Notify(notify.Event{
		Kind:    notify.KindTrade,
		Summary: fmt.Sprintf("%s %s %s (%s)", sig.Side, sig.Market.StationCode, sig.Bin.Label, note),
		Fields: map[string]string{
			"conditionId": sig.Market.ConditionID,
			"tokenId":     sig.Bin.TokenID,
			"price":       fmt.Sprintf("%.4f", price),
			"size":        fmt.Sprintf("%.4f", size),
			"sizeUSD":     fmt.Sprintf("%.2f", sig.RecommendedSizeUSD),
			"fair":        fmt.Sprintf("%.4f", sig.FairProbability),
			"edge":        fmt.Sprintf("%.4f", sig.Edge),
		},
	})
}

func jitter(base time.Duration, fraction float64, rng *rand.Rand) time.Duration {
	if fraction <= 0 {
		return base
	}
	delta := (rng.Float64()*2 - 1) * fraction
	return time.Duration(float64(base) * (1 + delta))
}
