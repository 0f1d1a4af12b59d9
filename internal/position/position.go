// Package position runs the Position Manager: it tracks each open
// position's high-water mark and triggers stop-loss, take-profit, and
// trailing-stop exits against the venue's order book.
package position

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/notify"
	"github.com/weatheragent/core/internal/state"
	"github.com/weatheragent/core/internal/venue"
)

const (
	debounceInterval = 5 * time.Second
	interTradePause  = 2 * time.Second
	minPositionSize  = 1e-4

	// peaksStoreKey is the StateStore's single key for position peaks: a
	// JSON map of conditionId -> PositionPeak.
	peaksStoreKey = "position_peaks"
)

// trigger identifies which exit rule fired for a position.
type trigger string

const (
	triggerNone         trigger = ""
	triggerStopLoss      trigger = "STOP_LOSS"
	triggerTakeProfit    trigger = "TAKE_PROFIT"
	triggerTrailingStop  trigger = "TRAILING_STOP"
)

// Config holds the Position Manager's tunables.
type Config struct {
	CheckInterval       time.Duration
	StopLossEnabled     bool
	StopLossPercent     float64
	TakeProfitEnabled   bool
	TakeProfitPercent   float64
	TrailingStopEnabled bool
	TrailingStopPercent float64
	SLTPMinPricePercent float64
}

// Service is the Position Manager.
type Service struct {
	positions venue.PositionBook
	trader    venue.OrderVenue
	store     state.Store
	sink      notify.Sink
	cfg       Config

	mu         sync.Mutex
	peaks      map[string]domain.PositionPeak
	saveTimers map[string]*time.Timer
	hydrated   bool

	now func() time.Time
}

// NewService builds a Position Manager.
func NewService(positions venue.PositionBook, trader venue.OrderVenue, store state.Store, sink notify.Sink, cfg Config) *Service {
	return &Service{
		positions:  positions,
		trader:     trader,
		store:      store,
		sink:       sink,
		cfg:        cfg,
		peaks:      make(map[string]domain.PositionPeak),
		saveTimers: make(map[string]*time.Timer),
		now:        time.Now,
	}
}

// peakKey is the position's peak-map key. Peaks are keyed by condition id
// alone, matching the persisted position_peaks layout: a position holds at
// most one live bin per market at a time.
func peakKey(p domain.Position) string {
	return p.ConditionID
}

// Run drives the cooperative loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.CheckInterval):
		}
	}
}

// RunOnce scans every open position and acts on the first exit rule that
// fires.
func (s *Service) RunOnce(ctx context.Context) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		log.Printf("[position] list failed: %v", err)
		return
	}

	for _, p := range positions {
		if err := ctx.Err(); err != nil {
			return
		}
		if p.Size <= minPositionSize {
			continue
		}
		if s.evaluate(ctx, p) {
			if !sleepOrCancel(ctx, interTradePause) {
				return
			}
		}
	}
}

// evaluate processes one position and reports whether it submitted a
// triggered sell.
func (s *Service) evaluate(ctx context.Context, p domain.Position) bool {
	if p.AvgPrice <= 0 {
		return false
	}

	key := peakKey(p)
	pnlPct := (p.CurPrice - p.AvgPrice) / p.AvgPrice * 100

	peak := s.loadPeak(ctx, key)
	if p.CurPrice > peak.PeakPrice {
		peak.PeakPrice = p.CurPrice
		peak.PeakPnLPercent = math.Max(pnlPct, peak.PeakPnLPercent)
		s.savePeak(key, peak)
	}

	t := s.classify(pnlPct, peak)
	if t == triggerNone {
		return false
	}

	return s.exit(ctx, p, key, t, pnlPct)
}

func (s *Service) classify(pnlPct float64, peak domain.PositionPeak) trigger {
	switch {
	case s.cfg.StopLossEnabled && pnlPct <= -s.cfg.StopLossPercent:
		return triggerStopLoss
	case s.cfg.TakeProfitEnabled && pnlPct >= s.cfg.TakeProfitPercent:
		return triggerTakeProfit
	case s.cfg.TrailingStopEnabled &&
		peak.PeakPnLPercent >= s.cfg.TrailingStopPercent &&
		peak.PeakPnLPercent-pnlPct >= s.cfg.TrailingStopPercent:
		return triggerTrailingStop
	default:
		return triggerNone
	}
}

func (s *Service) exit(ctx context.Context, p domain.Position, key string, t trigger, pnlPct float64) bool {
	book, err := s.trader.OrderBook(ctx, p.TokenID)
	if err != nil {
		log.Printf("[position] order book fetch failed for %s: %v", p.TokenID, err)
		return false
	}

	bestBid, ok := book.BestBid()
	if !ok {
		return false
	}
	if bestBid.Price < p.CurPrice*s.cfg.SLTPMinPricePercent/100 {
		log.Printf("[position] skipping %s exit for %s: book too thin (bid %.4f vs cur %.4f)", t, key, bestBid.Price, p.CurPrice)
		return false
	}

	sellSize := math.Min(p.Size, bestBid.Size)
	result := s.trader.PlaceLimit(ctx, p.TokenID, domain.SideSell, bestBid.Price, sellSize, venue.OrderTypeFOK)
	if !result.OK {
		log.Printf("[position] %s sell failed for %s: %v", t, key, result.Err)
		return false
	}

	s.clearPeak(ctx, key)
	s.notifyExit(t, p, pnlPct, bestBid.Price, sellSize)
	return true
}

func (s *Service) notifyExit(t trigger, p domain.Position, pnlPct, fillPrice, size float64) {
	if s.sink == nil {
		return
	}

	kind := notify.KindStopLoss
	switch t {
	case triggerTakeProfit:
		kind = notify.KindTakeProfit
	case triggerTrailingStop:
		kind = notify.KindTrailingStop
	}

	s.sink.Notify(notify.Event{
		Kind:    kind,
		Summary: fmt.Sprintf("%s exit on %s", t, p.ConditionID),
		Fields: map[string]string{
			"conditionId": p.ConditionID,
			"tokenId":     p.TokenID,
			"pnlPercent":  fmt.Sprintf("%.2f", pnlPct),
			"fillPrice":   fmt.Sprintf("%.4f", fillPrice),
			"size":        fmt.Sprintf("%.4f", size),
		},
	})
}

func (s *Service) loadPeak(ctx context.Context, key string) domain.PositionPeak {
	s.ensureHydrated(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peaks[key]
}

// ensureHydrated loads the single position_peaks map from the store on
// first use, seeding any entries not already held in memory. Hydration is
// lazy rather than happening at construction time: a position closed while
// the process was down has no in-memory peak to protect, and a later
// RunOnce pass will simply not find it among the open positions it scans.
func (s *Service) ensureHydrated(ctx context.Context) {
	s.mu.Lock()
	if s.hydrated || s.store == nil {
		s.mu.Unlock()
		return
	}
	s.hydrated = true
	s.mu.Unlock()

	raw, ok, err := s.store.Load(ctx, peaksStoreKey)
	if err != nil || !ok {
		return
	}

	var all map[string]domain.PositionPeak
	if err := json.Unmarshal(raw, &all); err != nil {
		log.Printf("[position] corrupt position_peaks record: %v", err)
		return
	}

	s.mu.Lock()
	for k, v := range all {
		if _, exists := s.peaks[k]; !exists {
			s.peaks[k] = v
		}
	}
	s.mu.Unlock()
}

// savePeak updates the in-memory peak and schedules a debounced persist.
func (s *Service) savePeak(key string, peak domain.PositionPeak) {
	s.mu.Lock()
	s.peaks[key] = peak
	if t, ok := s.saveTimers[key]; ok {
		t.Stop()
	}
	s.saveTimers[key] = time.AfterFunc(debounceInterval, func() {
		s.persistPeak(key, peak)
	})
	s.mu.Unlock()
}

// persistPeak writes the full position_peaks map, not just the triggering
// key: the StateStore holds one key for every tracked position, so any
// update has to resave the whole snapshot.
func (s *Service) persistPeak(key string, peak domain.PositionPeak) {
	if s.store == nil {
		return
	}
	if err := s.saveSnapshot(context.Background()); err != nil {
		log.Printf("[position] peak persist failed for %s: %v", key, err)
	}
}

// clearPeak drops the peak entry on exit, immediately (not debounced), and
// resaves the position_peaks map without it.
func (s *Service) clearPeak(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.peaks, key)
	if t, ok := s.saveTimers[key]; ok {
		t.Stop()
		delete(s.saveTimers, key)
	}
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.saveSnapshot(ctx); err != nil {
		log.Printf("[position] peak delete failed for %s: %v", key, err)
	}
}

// saveSnapshot marshals the current in-memory peaks map and saves it under
// the single position_peaks key.
func (s *Service) saveSnapshot(ctx context.Context) error {
	s.mu.Lock()
	snapshot := make(map[string]domain.PositionPeak, len(s.peaks))
	for k, v := range s.peaks {
		snapshot[k] = v
	}
	s.mu.Unlock()

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal position_peaks: %w", err)
	}
	return s.store.Save(ctx, peaksStoreKey, raw)
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
