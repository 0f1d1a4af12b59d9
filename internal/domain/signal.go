package domain

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// BinProbability is the Probability Engine's verdict for one bin: its fair
// probability against the currently observed market price.
type BinProbability struct {
	OutcomeID       string
	TokenID         string
	Label           string
	FairProbability float64
	MarketPrice     float64
	Edge            float64 // FairProbability - MarketPrice
	IsPossible      bool
}

// TradeSignal is a recommendation produced by the Monitor and consumed,
// at most once, by the Executor.
type TradeSignal struct {
	Market              Market
	Bin                 Bin
	Side                Side
	FairProbability     float64
	MarketPrice         float64
	Edge                float64
	RecommendedSizeUSD  float64
	Reason              string
	Forecast            Forecast
	MaxSoFar            *float64
	GeneratedAt         time.Time
}

// Key identifies a signal by the (conditionId, tokenId) pair the queue
// deduplicates on.
func (s TradeSignal) Key() string {
	return s.Market.ConditionID + "|" + s.Bin.TokenID
}
