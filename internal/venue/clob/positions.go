package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const dataAPIBaseURL = "https://data-api.polymarket.com"

// dataAPIPosition mirrors one row of the public Data API's /positions
// response for a wallet address.
type dataAPIPosition struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentValue float64 `json:"currentValue"`
	CashPnl      float64 `json:"cashPnl"`
	Redeemable   bool    `json:"redeemable"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
}

// PositionClient fetches current holdings for a wallet from the public
// Data API, unauthenticated and separate from the HMAC-signed CLOB client.
type PositionClient struct {
	httpClient *http.Client
	baseURL    string
	address    string
}

// NewPositionClient builds a Data API client scoped to one wallet address.
func NewPositionClient(address string) *PositionClient {
	return &PositionClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    dataAPIBaseURL,
		address:    address,
	}
}

// List fetches every open position held by the configured wallet address.
func (p *PositionClient) List(ctx context.Context) ([]dataAPIPosition, error) {
	endpoint := fmt.Sprintf("%s/positions?user=%s&limit=500", p.baseURL, url.QueryEscape(p.address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("positions: unexpected status %d", resp.StatusCode)
	}

	var positions []dataAPIPosition
	if err := json.NewDecoder(resp.Body).Decode(&positions); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	return positions, nil
}

// HoldingsValue returns the total mark-to-market USD value of the
// configured wallet's holdings, as reported by the Data API.
func (p *PositionClient) HoldingsValue(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/value?user=%s", p.baseURL, url.QueryEscape(p.address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch holdings value: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("holdings value: unexpected status %d", resp.StatusCode)
	}

	var values []struct {
		User  string  `json:"user"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return 0, fmt.Errorf("decode holdings value: %w", err)
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0].Value, nil
}
