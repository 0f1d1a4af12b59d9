package probability

import "github.com/weatheragent/core/internal/domain"

// ApplyPrices attaches the currently observed market price to each
// BinProbability and derives its edge (fair - price).
func ApplyPrices(probs []domain.BinProbability, prices map[string]float64) []domain.BinProbability {
	out := make([]domain.BinProbability, len(probs))
	for i, p := range probs {
		price, ok := prices[p.TokenID]
		if ok {
			p.MarketPrice = price
			p.Edge = p.FairProbability - price
		}
		out[i] = p
	}
	return out
}

// Action is the verdict ShouldTrade returns for a bin.
type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ShouldTrade classifies an edge against threshold. A bin the engine marked
// impossible never trades, regardless of its (meaningless) edge value.
func ShouldTrade(edge, threshold float64, isPossible bool) Action {
	if !isPossible {
		return ActionNone
	}
	switch {
	case edge > threshold:
		return ActionBuy
	case edge < -threshold:
		return ActionSell
	default:
		return ActionNone
	}
}
