// Package nws is the second independent forecast provider in the
// ensemble: a client for the US National Weather Service's public API
// (api.weather.gov), free and unauthenticated like the Open-Meteo
// provider it is ensembled against.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/weatheragent/core/internal/forecast"
)

const (
	baseURL        = "https://api.weather.gov"
	defaultTimeout = 30 * time.Second
	providerSource = "NWS"
)

// Client fetches gridpoint forecasts from api.weather.gov.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a default NWS client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
	}
}

// Provider adapts Client into the forecast.Provider port. The NWS API only
// covers the United States; outside its coverage area Fetch returns a
// no-data result rather than an error, matching the core's fail-soft
// ensemble semantics.
type Provider struct {
	client *Client
}

// NewProvider builds the NWS ForecastProvider.
func NewProvider() *Provider {
	return &Provider{client: NewClient()}
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type period struct {
	StartTime   time.Time `json:"startTime"`
	IsDaytime   bool      `json:"isDaytime"`
	Temperature float64   `json:"temperature"`
}

type forecastResponse struct {
	Properties struct {
		Periods []period `json:"periods"`
	} `json:"properties"`
}

// Fetch resolves the (lat, lon) gridpoint and returns the high of the
// daytime period and the low of the nighttime period that start on the
// target date, if the NWS has such periods.
func (p *Provider) Fetch(ctx context.Context, lat, lon float64, date time.Time) (forecast.ProviderResult, error) {
	forecastURL, err := p.client.resolveGridpoint(ctx, lat, lon)
	if err != nil {
		return forecast.ProviderResult{}, nil // outside coverage or transient: no data, not fatal
	}

	periods, err := p.client.fetchPeriods(ctx, forecastURL)
	if err != nil {
		return forecast.ProviderResult{}, fmt.Errorf("nws fetch periods: %w", err)
	}

	var high, low *float64
	for _, period := range periods {
		if !sameCivilDate(period.StartTime, date) {
			continue
		}
		temp := period.Temperature
		if period.IsDaytime {
			high = &temp
		} else {
			low = &temp
		}
	}

	return forecast.ProviderResult{High: high, Low: low, Source: providerSource}, nil
}

func sameCivilDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (c *Client) resolveGridpoint(ctx context.Context, lat, lon float64) (string, error) {
	endpoint := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "weatheragent (contact: ops@weatheragent.local)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve gridpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("points endpoint returned status %d", resp.StatusCode)
	}

	var data pointsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode points response: %w", err)
	}
	if data.Properties.Forecast == "" {
		return "", fmt.Errorf("no forecast URL for %.4f,%.4f", lat, lon)
	}
	return data.Properties.Forecast, nil
}

func (c *Client) fetchPeriods(ctx context.Context, forecastURL string) ([]period, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, forecastURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "weatheragent (contact: ops@weatheragent.local)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast endpoint returned status %d", resp.StatusCode)
	}

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	return data.Properties.Periods, nil
}
