package redemption

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/notify"
	"github.com/weatheragent/core/internal/venue"
)

type fakePositionBook struct {
	positions []domain.Position
}

func (b *fakePositionBook) List(ctx context.Context) ([]domain.Position, error) {
	return b.positions, nil
}

type fakeRedeemer struct {
	calls   []string
	results map[string]venue.RedemptionResult
}

func (r *fakeRedeemer) Redeem(ctx context.Context, conditionID string) venue.RedemptionResult {
	r.calls = append(r.calls, conditionID)
	if res, ok := r.results[conditionID]; ok {
		return res
	}
	return venue.RedemptionResult{OK: true}
}

type fakeRegistry struct {
	markets  map[string]domain.Market
	resolved []string
}

func (r *fakeRegistry) GetMarket(conditionID string) (domain.Market, bool) {
	m, ok := r.markets[conditionID]
	return m, ok
}

func (r *fakeRegistry) MarkResolved(conditionID string) {
	r.resolved = append(r.resolved, conditionID)
}

type fakeExposure struct {
	cleared []domain.Market
}

func (e *fakeExposure) ClearMarketExposure(market domain.Market) {
	e.cleared = append(e.cleared, market)
}

type fakeSink struct {
	events []notify.Event
}

func (s *fakeSink) Notify(event notify.Event) {
	s.events = append(s.events, event)
}

func TestRunOnceRedeemsTerminalRedeemablePositions(t *testing.T) {
	positions := []domain.Position{
		{ConditionID: "c1", TokenID: "t1", CurPrice: 0.995, Redeemable: true},
		{ConditionID: "c2", TokenID: "t2", CurPrice: 0.005, Redeemable: true},
		{ConditionID: "c3", TokenID: "t3", CurPrice: 0.50, Redeemable: true},  // not terminal
		{ConditionID: "c4", TokenID: "t4", CurPrice: 0.995, Redeemable: false}, // not redeemable
	}
	pb := &fakePositionBook{positions: positions}
	redeemer := &fakeRedeemer{}
	registry := &fakeRegistry{markets: map[string]domain.Market{
		"c1": {ConditionID: "c1", Region: "America"},
		"c2": {ConditionID: "c2", Region: "Europe"},
	}}
	exposure := &fakeExposure{}
	sink := &fakeSink{}

	svc := NewService(pb, redeemer, registry, exposure, sink, Config{CheckInterval: time.Minute})
	svc.RunOnce(context.Background())

	assert.ElementsMatch(t, []string{"c1", "c2"}, redeemer.calls)
	assert.ElementsMatch(t, []string{"c1", "c2"}, registry.resolved)
	require.Len(t, exposure.cleared, 2)
	require.Len(t, sink.events, 2)
	for _, e := range sink.events {
		assert.Equal(t, notify.KindRedemption, e.Kind)
	}
}

func TestRunOnceGroupsDuplicateConditionIDsOnce(t *testing.T) {
	positions := []domain.Position{
		{ConditionID: "c1", TokenID: "t1", CurPrice: 0.995, Redeemable: true},
		{ConditionID: "c1", TokenID: "t2", CurPrice: 0.995, Redeemable: true},
	}
	pb := &fakePositionBook{positions: positions}
	redeemer := &fakeRedeemer{}
	registry := &fakeRegistry{markets: map[string]domain.Market{"c1": {ConditionID: "c1"}}}

	svc := NewService(pb, redeemer, registry, &fakeExposure{}, &fakeSink{}, Config{CheckInterval: time.Minute})
	svc.RunOnce(context.Background())

	assert.Len(t, redeemer.calls, 1)
}

func TestRunOnceSkipsExposureClearOnRedeemFailure(t *testing.T) {
	positions := []domain.Position{
		{ConditionID: "c1", TokenID: "t1", CurPrice: 0.995, Redeemable: true},
	}
	pb := &fakePositionBook{positions: positions}
	redeemer := &fakeRedeemer{results: map[string]venue.RedemptionResult{
		"c1": {OK: false, Err: assert.AnError},
	}}
	registry := &fakeRegistry{markets: map[string]domain.Market{"c1": {ConditionID: "c1"}}}
	exposure := &fakeExposure{}

	svc := NewService(pb, redeemer, registry, exposure, &fakeSink{}, Config{CheckInterval: time.Minute})
	svc.RunOnce(context.Background())

	assert.Empty(t, registry.resolved)
	assert.Empty(t, exposure.cleared)
}

func TestRunOnceFallsBackWhenMarketNotInRegistry(t *testing.T) {
	positions := []domain.Position{
		{ConditionID: "unknown", TokenID: "t1", CurPrice: 0.01, Redeemable: true},
	}
	pb := &fakePositionBook{positions: positions}
	redeemer := &fakeRedeemer{}
	registry := &fakeRegistry{markets: map[string]domain.Market{}}
	exposure := &fakeExposure{}

	svc := NewService(pb, redeemer, registry, exposure, &fakeSink{}, Config{CheckInterval: time.Minute})
	svc.RunOnce(context.Background())

	require.Len(t, exposure.cleared, 1)
	assert.Equal(t, "unknown", exposure.cleared[0].ConditionID)
}
