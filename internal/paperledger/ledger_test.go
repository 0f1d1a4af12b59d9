package paperledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/domain"
)

func signal(side domain.Side, sizeUSD float64) domain.TradeSignal {
	return domain.TradeSignal{
		Market:             domain.Market{ConditionID: "cond-1"},
		Bin:                domain.Bin{TokenID: "t1"},
		Side:               side,
		RecommendedSizeUSD: sizeUSD,
	}
}

func TestRecordFillTracksVolumeAndFillCount(t *testing.T) {
	l := NewLedger()
	l.RecordFill(context.Background(), signal(domain.SideBuy, 20), 0.50)

	summary := l.Summary()
	assert.Equal(t, 1, summary.TotalFills)
	assert.InDelta(t, 20, summary.TotalVolumeUSD, 1e-9)
	assert.Equal(t, 1, summary.OpenPositions)
}

func TestRecordFillRecognizesRealizedPnLOnClose(t *testing.T) {
	l := NewLedger()
	// Buy 40 shares for $20 at $0.50 (cost basis 0.50), then sell all 40
	// shares for $24 at $0.60.
	l.RecordFill(context.Background(), signal(domain.SideBuy, 20), 0.50)
	l.RecordFill(context.Background(), signal(domain.SideSell, 24), 0.60)

	summary := l.Summary()
	require.Equal(t, 2, summary.TotalFills)
	// 40 shares * (0.60 - 0.50) = 4.00 realized.
	assert.InDelta(t, 4.0, summary.RealizedPnLUSD, 1e-6)
	assert.Equal(t, 0, summary.OpenPositions)
}

func TestRecordFillAveragesCostBasisAcrossMultipleBuys(t *testing.T) {
	l := NewLedger()
	l.RecordFill(context.Background(), signal(domain.SideBuy, 10), 0.40) // 25 shares
	l.RecordFill(context.Background(), signal(domain.SideBuy, 10), 0.60) // 16.67 shares

	fills := l.Fills()
	require.Len(t, fills, 2)
	assert.Equal(t, domain.SideBuy, fills[0].Side)
	// ($10 + $10) / (25 + 16.67 shares) = 0.48.
	assert.InDelta(t, 0.48, l.lots["cond-1|t1"].avgPrice, 1e-9)
}

func TestRecordFillIgnoresZeroPrice(t *testing.T) {
	l := NewLedger()
	l.RecordFill(context.Background(), signal(domain.SideBuy, 10), 0)

	summary := l.Summary()
	assert.Equal(t, 1, summary.TotalFills)
	assert.Equal(t, 0, summary.OpenPositions)
}
