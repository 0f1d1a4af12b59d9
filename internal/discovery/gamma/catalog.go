package gamma

import (
	"context"

	"github.com/weatheragent/core/internal/discovery"
)

// Catalog adapts Client into the discovery.MarketCatalog port.
type Catalog struct {
	client *Client
}

// NewCatalog builds the Gamma-backed MarketCatalog.
func NewCatalog() *Catalog {
	return &Catalog{client: NewClient()}
}

// NewCatalogFromClient adapts an already-constructed Client, used when the
// caller needs proxy rotation (see NewClientWithProxyRotation).
func NewCatalogFromClient(client *Client) *Catalog {
	return &Catalog{client: client}
}

// ListWeatherEvents fetches every active weather event and wraps each as a
// discovery.Event carrying the raw Gamma payload for the Parser.
func (c *Catalog) ListWeatherEvents(ctx context.Context) ([]discovery.Event, error) {
	events, err := c.client.GetWeatherEvents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]discovery.Event, 0, len(events))
	for _, e := range events {
		out = append(out, discovery.Event{
			ID:     e.ID,
			Title:  e.Title,
			Slug:   e.Slug,
			Active: e.Active,
			Closed: e.Closed,
			Raw:    e,
		})
	}
	return out, nil
}

// Prices fetches the current price for each requested token id.
func (c *Catalog) Prices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	return c.client.GetPrices(ctx, tokenIDs)
}
