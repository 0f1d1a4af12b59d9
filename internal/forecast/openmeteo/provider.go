package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/weatheragent/core/internal/forecast"
)

// Provider adapts Client into the forecast.Provider and
// forecast.ObservationProvider ports.
type Provider struct {
	client *Client
}

// NewProvider builds the Open-Meteo ForecastProvider/ObservationProvider.
func NewProvider() *Provider {
	return &Provider{client: NewClient()}
}

// providerSource is the tag this provider stamps on every forecast it
// contributes to the ensemble.
const providerSource = "OpenMeteo"

// Fetch satisfies forecast.Provider. Results are returned in Fahrenheit to
// match the core's integer-degree-F bin convention.
func (p *Provider) Fetch(ctx context.Context, lat, lon float64, date time.Time) (forecast.ProviderResult, error) {
	loc := &Location{Latitude: lat, Longitude: lon, TimezoneID: "UTC"}
	f, err := p.client.GetForecast(loc, date)
	if err != nil {
		return forecast.ProviderResult{}, fmt.Errorf("open-meteo fetch: %w", err)
	}

	high := CelsiusToFahrenheit(f.TempHigh)
	low := CelsiusToFahrenheit(f.TempLow)
	return forecast.ProviderResult{High: &high, Low: &low, Source: providerSource}, nil
}

// HourlyToday fetches today's hourly temperatures (Fahrenheit) for the
// day-of max-so-far observation. Satisfies forecast.ObservationProvider.
func (p *Provider) HourlyToday(ctx context.Context, lat, lon float64, tz string) ([]float64, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("hourly", "temperature_2m")
	params.Set("temperature_unit", "fahrenheit")
	params.Set("timezone", tz)
	params.Set("forecast_days", "1")
	params.Set("past_days", "0")

	endpoint := fmt.Sprintf("%s/forecast?%s", openMeteoBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hourly temperatures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo hourly endpoint returned status %d", resp.StatusCode)
	}

	var data struct {
		Hourly struct {
			Temperature []float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode hourly response: %w", err)
	}

	return data.Hourly.Temperature, nil
}
