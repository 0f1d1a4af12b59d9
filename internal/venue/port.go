// Package venue defines the thin ports the core uses to trade: the order
// venue itself, the position book it holds inventory in, and the
// redemption path for resolved positions. Concrete implementations live in
// sibling packages (internal/venue/clob).
package venue

import (
	"context"

	"github.com/weatheragent/core/internal/domain"
)

// OrderType distinguishes a good-till-cancelled limit order from a
// fill-or-kill one.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeFOK OrderType = "FOK"
)

// PriceLevel is one level of an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is the current bids/asks for one token.
type OrderBook struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// BestBid returns the highest bid level, or false if the book is empty.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	best := b.Bids[0]
	for _, level := range b.Bids[1:] {
		if level.Price > best.Price {
			best = level
		}
	}
	return best, true
}

// OrderResult is the outcome of placing an order.
type OrderResult struct {
	OK      bool
	OrderID string
	Err     error
}

// Order is an order reported back by the venue's open-orders listing.
type Order struct {
	ID      string
	TokenID string
	Side    domain.Side
	Price   float64
	Size    float64
}

// OrderVenue is the thin port the Executor and Position Manager use to
// place and inspect orders.
type OrderVenue interface {
	PlaceLimit(ctx context.Context, tokenID string, side domain.Side, price, size float64, orderType OrderType) OrderResult
	OrderBook(ctx context.Context, tokenID string) (OrderBook, error)
	OpenOrders(ctx context.Context) ([]Order, error)
}

// PositionBook is the thin port the Position Manager and Redemption
// Controller use to inspect current inventory.
type PositionBook interface {
	List(ctx context.Context) ([]domain.Position, error)
}

// RedemptionResult is the outcome of a redemption call.
type RedemptionResult struct {
	OK  bool
	Err error
}

// RedemptionPort is the on-chain settlement path for resolved positions.
// The core only decides *when* to call it.
type RedemptionPort interface {
	Redeem(ctx context.Context, conditionID string) RedemptionResult
}
