package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/weatheragent/core/internal/httpclient"
)

const (
	baseURL        = "https://gamma-api.polymarket.com"
	defaultTimeout = 30 * time.Second
)

// Client handles communication with the Gamma API.
type Client struct {
	httpClient *http.Client
	baseURL    string

	rotating *httpclient.RotatingClient // nil unless proxy rotation is configured
}

// NewClient creates a new Gamma API client with default settings.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
	}
}

// NewClientWithTimeout creates a new Gamma API client with a custom timeout.
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// NewClientWithProxyRotation creates a Gamma API client that rotates
// through proxyURLs after a failed request, the way the CLOB client does.
// With an empty list it behaves exactly like NewClient.
func NewClientWithProxyRotation(proxyURLs []string) (*Client, error) {
	rc, err := httpclient.New(defaultTimeout, proxyURLs)
	if err != nil {
		return nil, fmt.Errorf("build gamma proxy client: %w", err)
	}
	return &Client{
		httpClient: rc.Client(),
		baseURL:    baseURL,
		rotating:   rc,
	}, nil
}

// rotateProxy advances to the next configured proxy, if any, and logs the
// switch. It is a no-op when proxy rotation wasn't configured.
func (c *Client) rotateProxy() {
	if c.rotating == nil {
		return
	}
	prev := c.rotating.CurrentIndex()
	if err := c.rotating.Rotate(); err != nil {
		return
	}
	c.httpClient = c.rotating.Client()
	log.Printf("[gamma] rotating proxy %d -> %d (of %d)", prev+1, c.rotating.CurrentIndex()+1, c.rotating.ProxyCount())
}

type paginationResponse struct {
	Data   []Event `json:"data"`
	Offset int     `json:"offset"`
}

// doGet performs a GET request, rotating to the next configured proxy and
// retrying once per proxy if the API answers with a Cloudflare 403 block.
func (c *Client) doGet(ctx context.Context, endpoint string) (*http.Response, error) {
	maxAttempts := 1
	if c.rotating != nil {
		maxAttempts = c.rotating.ProxyCount()
	}
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if c.rotating != nil && c.rotating.ProxyCount() > 1 {
				c.rotateProxy()
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusForbidden && c.rotating != nil && c.rotating.ProxyCount() > 1 {
			resp.Body.Close()
			c.rotateProxy()
			continue
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all proxies failed: %w", lastErr)
	}
	return nil, fmt.Errorf("all proxies returned 403")
}

// GetWeatherEvents fetches weather events from the Gamma API's pagination
// endpoint (tag_slug=weather), which returns every weather market
// including daily temperature ladders for specific cities.
func (c *Client) GetWeatherEvents(ctx context.Context) ([]Event, error) {
	var all []Event
	offset := 0
	const limit = 50
	const offsetSafetyLimit = 500

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("active", "true")
		params.Set("archived", "false")
		params.Set("tag_slug", "weather")
		params.Set("closed", "false")
		params.Set("order", "startDate")
		params.Set("ascending", "false")
		params.Set("offset", strconv.Itoa(offset))

		endpoint := fmt.Sprintf("%s/events/pagination?%s", c.baseURL, params.Encode())

		resp, err := c.doGet(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch weather events: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var page paginationResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode weather events: %w", err)
		}
		resp.Body.Close()

		if len(page.Data) == 0 {
			break
		}
		all = append(all, page.Data...)
		if len(page.Data) < limit || offset > offsetSafetyLimit {
			break
		}
		offset += limit
	}

	return all, nil
}

// GetPrices fetches the latest price for each requested token id.
func (c *Client) GetPrices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tokenIDs))
	for _, id := range tokenIDs {
		endpoint := fmt.Sprintf("%s/prices?token_id=%s", c.baseURL, url.QueryEscape(id))

		resp, err := c.doGet(ctx, endpoint)
		if err != nil {
			continue // price-refresh errors are best-effort per token
		}

		var body struct {
			Price float64 `json:"price,string"`
		}
		if resp.StatusCode == http.StatusOK {
			_ = json.NewDecoder(resp.Body).Decode(&body)
			out[id] = body.Price
		}
		resp.Body.Close()
	}
	return out, nil
}
