// Package paperledger simulates fills for dry-run sessions, the way the
// teacher's strategy package tracked synthetic positions under DryRun
// instead of calling the venue, pulled out into its own small component so
// a dry-run session still produces an auditable fill history and a
// realized P&L summary.
package paperledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weatheragent/core/internal/domain"
)

// Fill is one simulated order fill.
type Fill struct {
	ID          string
	ConditionID string
	TokenID     string
	Side        domain.Side
	Price       float64
	SizeUSD     float64
	FilledAt    time.Time
}

// lot is the running cost basis for one (conditionId, tokenId) pair.
type lot struct {
	shares   float64
	avgPrice float64
}

// Summary is a session snapshot of paper-trading activity.
type Summary struct {
	TotalFills     int
	TotalVolumeUSD float64
	RealizedPnLUSD float64
	OpenPositions  int
}

// Ledger is an in-memory paper-fill book. Safe for concurrent use.
type Ledger struct {
	mu             sync.Mutex
	fills          []Fill
	lots           map[string]lot
	realizedPnLUSD float64
	now            func() time.Time
}

// NewLedger builds an empty paper ledger.
func NewLedger() *Ledger {
	return &Ledger{
		lots: make(map[string]lot),
		now:  time.Now,
	}
}

// RecordFill implements executor.PaperLedger: it books a simulated fill at
// fillPrice and updates the running cost basis for the signal's bin,
// recognizing realized P&L when the fill closes against an opposite-side
// lot.
func (l *Ledger) RecordFill(ctx context.Context, sig domain.TradeSignal, fillPrice float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fills = append(l.fills, Fill{
		ID:          uuid.NewString(),
		ConditionID: sig.Market.ConditionID,
		TokenID:     sig.Bin.TokenID,
		Side:        sig.Side,
		Price:       fillPrice,
		SizeUSD:     sig.RecommendedSizeUSD,
		FilledAt:    l.now(),
	})

	if fillPrice <= 0 {
		return
	}

	key := sig.Market.ConditionID + "|" + sig.Bin.TokenID
	shares := sig.RecommendedSizeUSD / fillPrice
	current := l.lots[key]

	if sig.Side == domain.SideBuy {
		l.lots[key] = mergeLot(current, shares, fillPrice)
		return
	}

	closed := shares
	if closed > current.shares {
		closed = current.shares
	}
	if closed > 0 {
		l.realizedPnLUSD += closed * (fillPrice - current.avgPrice)
		current.shares -= closed
	}
	l.lots[key] = current
}

func mergeLot(l lot, addShares, price float64) lot {
	totalShares := l.shares + addShares
	if totalShares <= 0 {
		return lot{}
	}
	weighted := l.shares*l.avgPrice + addShares*price
	return lot{shares: totalShares, avgPrice: weighted / totalShares}
}

// Summary reports the session's paper-trading activity so far.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	open := 0
	volume := 0.0
	for _, f := range l.fills {
		volume += f.SizeUSD
	}
	for _, lt := range l.lots {
		if lt.shares > 1e-9 {
			open++
		}
	}

	return Summary{
		TotalFills:     len(l.fills),
		TotalVolumeUSD: volume,
		RealizedPnLUSD: l.realizedPnLUSD,
		OpenPositions:  open,
	}
}

// Fills returns a snapshot of every recorded fill, oldest first.
func (l *Ledger) Fills() []Fill {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Fill, len(l.fills))
	copy(out, l.fills)
	return out
}
