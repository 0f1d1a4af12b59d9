package executor

import (
	"context"

	"github.com/weatheragent/core/internal/domain"
)

// PaperLedger records simulated fills when the agent runs in dry-run mode,
// so a paper session still produces a P&L trail. Implemented by
// internal/paperledger.
type PaperLedger interface {
	RecordFill(ctx context.Context, sig domain.TradeSignal, fillPrice float64)
}

// SignalQueue is the subset of the Monitor's signal queue the Executor
// drains. internal/monitor.SignalQueue satisfies this.
type SignalQueue interface {
	Snapshot() []domain.TradeSignal
	Remove(sig domain.TradeSignal)
}
