// Package redemption runs the Redemption Controller: it finds terminal-
// priced, redeemable positions and settles them on-chain through the
// RedemptionPort, one conditionId group at a time.
package redemption

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/notify"
	"github.com/weatheragent/core/internal/venue"
)

const (
	terminalHighPrice = 0.99
	terminalLowPrice  = 0.01
	interGroupPause   = 2 * time.Second
)

// MarketRegistry is the subset of discovery.Service the controller uses to
// recover a market's details and flip its status on redemption.
type MarketRegistry interface {
	GetMarket(conditionID string) (domain.Market, bool)
	MarkResolved(conditionID string)
}

// ExposureTracker is the subset of risk.Manager the controller uses to
// release a redeemed market's reserved exposure.
type ExposureTracker interface {
	ClearMarketExposure(market domain.Market)
}

// Config holds the Redemption Controller's tunables.
type Config struct {
	CheckInterval time.Duration
}

// Service is the Redemption Controller.
type Service struct {
	positions venue.PositionBook
	redeemer  venue.RedemptionPort
	registry  MarketRegistry
	risk      ExposureTracker
	sink      notify.Sink
	cfg       Config
}

// NewService builds a Redemption Controller.
func NewService(positions venue.PositionBook, redeemer venue.RedemptionPort, registry MarketRegistry, risk ExposureTracker, sink notify.Sink, cfg Config) *Service {
	return &Service{
		positions: positions,
		redeemer:  redeemer,
		registry:  registry,
		risk:      risk,
		sink:      sink,
		cfg:       cfg,
	}
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

// RunOnce scans inventory for terminal-priced, redeemable positions and
// redeems each distinct conditionId once.
func (s *Service) RunOnce(ctx context.Context) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		log.Printf("[redemption] list failed: %v", err)
		return
	}

	groups := groupRedeemable(positions)
	if len(groups) == 0 {
		return
	}

	first := true
	for conditionID := range groups {
		if err := ctx.Err(); err != nil {
			return
		}
		if !first {
			if !sleepOrCancel(ctx, interGroupPause) {
				return
			}
		}
		first = false

		s.redeemOne(ctx, conditionID)
	}
}

func groupRedeemable(positions []domain.Position) map[string]struct{} {
	groups := make(map[string]struct{})
	for _, p := range positions {
		if !p.Redeemable {
			continue
		}
		if p.CurPrice >= terminalHighPrice || p.CurPrice <= terminalLowPrice {
			groups[p.ConditionID] = struct{}{}
		}
	}
	return groups
}

func (s *Service) redeemOne(ctx context.Context, conditionID string) {
	result := s.redeemer.Redeem(ctx, conditionID)
	if !result.OK {
		log.Printf("[redemption] redeem failed for %s: %v", conditionID, result.Err)
		return
	}

	s.registry.MarkResolved(conditionID)

	market, ok := s.registry.GetMarket(conditionID)
	if !ok {
		market = domain.Market{ConditionID: conditionID}
		log.Printf("[redemption] market %s not in registry; clearing exposure by conditionId only", conditionID)
	}
	s.risk.ClearMarketExposure(market)

	s.notify(conditionID)
}

func (s *Service) notify(conditionID string) {
	if s.sink == nil {
		return
	}
	s.sink.Notify(notify.Event{
		Kind:    notify.KindRedemption,
		Summary: fmt.Sprintf("redeemed %s", conditionID),
		Fields:  map[string]string{"conditionId": conditionID},
	})
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
