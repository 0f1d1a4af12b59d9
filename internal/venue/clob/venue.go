package clob

import (
	"context"
	"fmt"
	"strconv"

	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/venue"
)

// Venue adapts Client and OrderBuilder into the venue.OrderVenue port the
// Executor and Position Manager trade against.
type Venue struct {
	client  *Client
	builder *OrderBuilder
}

// NewVenue builds a Venue from an authenticated CLOB client and the order
// builder that signs on its behalf.
func NewVenue(client *Client, builder *OrderBuilder) *Venue {
	return &Venue{client: client, builder: builder}
}

// PlaceLimit builds, signs, and submits a limit order. FOK orders fill
// immediately or not at all; GTC orders rest on the book.
func (v *Venue) PlaceLimit(ctx context.Context, tokenID string, side domain.Side, price, size float64, orderType venue.OrderType) venue.OrderResult {
	clobSide := OrderSideBuy
	if side == domain.SideSell {
		clobSide = OrderSideSell
	}

	params := BuildParams{
		TokenID:    tokenID,
		Side:       clobSide,
		Price:      price,
		Size:       size,
		OrderType:  OrderType(orderType),
		FeeRateBps: -1,
	}

	order, err := v.builder.BuildOrder(params)
	if err != nil {
		return venue.OrderResult{Err: fmt.Errorf("build order: %w", err)}
	}

	resp, err := v.client.CreateOrder(order)
	if err != nil {
		return venue.OrderResult{Err: fmt.Errorf("submit order: %w", err)}
	}
	if !resp.Success {
		return venue.OrderResult{Err: fmt.Errorf("order rejected: %s", resp.Error)}
	}

	return venue.OrderResult{OK: true, OrderID: resp.OrderID}
}

// OrderBook fetches the current bids/asks for a token, converting the
// wire string prices/sizes into the float64 levels callers reason over.
func (v *Venue) OrderBook(ctx context.Context, tokenID string) (venue.OrderBook, error) {
	book, err := v.client.GetOrderBook(tokenID)
	if err != nil {
		return venue.OrderBook{}, err
	}

	return venue.OrderBook{
		Bids: toPriceLevels(book.Bids),
		Asks: toPriceLevels(book.Asks),
	}, nil
}

func toPriceLevels(levels []PriceLevel) []venue.PriceLevel {
	out := make([]venue.PriceLevel, 0, len(levels))
	for _, l := range levels {
		price, _ := strconv.ParseFloat(l.Price, 64)
		size, _ := strconv.ParseFloat(l.Size, 64)
		out = append(out, venue.PriceLevel{Price: price, Size: size})
	}
	return out
}

// OpenOrders lists the authenticated wallet's resting orders.
func (v *Venue) OpenOrders(ctx context.Context) ([]venue.Order, error) {
	orders, err := v.client.GetOpenOrders()
	if err != nil {
		return nil, err
	}

	out := make([]venue.Order, 0, len(orders))
	for _, o := range orders {
		price, size := impliedPriceAndSize(o)
		side := domain.SideBuy
		if o.Side == string(OrderSideSell) {
			side = domain.SideSell
		}
		out = append(out, venue.Order{
			ID:      o.ID,
			TokenID: o.TokenID,
			Side:    side,
			Price:   price,
			Size:    size,
		})
	}
	return out, nil
}

// impliedPriceAndSize recovers a human price/size pair from an order's
// maker/taker wei amounts, inverting the scaling BuildOrder applies.
func impliedPriceAndSize(o Order) (price, size float64) {
	maker, _ := strconv.ParseFloat(o.MakerAmount, 64)
	taker, _ := strconv.ParseFloat(o.TakerAmount, 64)
	if maker == 0 || taker == 0 {
		return 0, 0
	}
	if o.Side == string(OrderSideBuy) {
		size = taker / 1e6
		price = (maker / 1e6) / size
	} else {
		size = maker / 1e6
		price = (taker / 1e6) / size
	}
	return price, size
}

// PositionBook adapts PositionClient into the venue.PositionBook port.
type PositionBook struct {
	client *PositionClient
}

// NewPositionBook builds a PositionBook reading holdings for address.
func NewPositionBook(address string) *PositionBook {
	return &PositionBook{client: NewPositionClient(address)}
}

// List implements venue.PositionBook.
func (b *PositionBook) List(ctx context.Context) ([]domain.Position, error) {
	positions, err := b.client.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, domain.Position{
			ConditionID: p.ConditionID,
			TokenID:     p.Asset,
			Size:        p.Size,
			AvgPrice:    p.AvgPrice,
			CurPrice:    currentPrice(p),
			Redeemable:  p.Redeemable,
		})
	}
	return out, nil
}

func currentPrice(p dataAPIPosition) float64 {
	if p.Size == 0 {
		return 0
	}
	return p.CurrentValue / p.Size
}
