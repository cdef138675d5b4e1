package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// weatherAPIBase is the external weather oracle (spec §6 Environment).
const weatherAPIBase = "https://api.open-meteo.com/v1/forecast"

// WeatherClient fetches current conditions from the Open-Meteo API, an
// out-of-scope external collaborator (spec §1) the generator falls back
// away from on any failure.
type WeatherClient struct {
	HTTP *http.Client
}

// NewWeatherClient builds a client with a bounded request timeout so a
// slow weather API never stalls the source's send cadence.
func NewWeatherClient() *WeatherClient {
	return &WeatherClient{HTTP: &http.Client{Timeout: 3 * time.Second}}
}

// WeatherReading is the subset of the weather API response the generator uses.
type WeatherReading struct {
	TemperatureC float64
	PressurePa   float64
	WindSpeedMS  float64
}

type openMeteoResponse struct {
	Current struct {
		Temperature2m   float64 `json:"temperature_2m"`
		SurfacePressure float64 `json:"surface_pressure"`
		WindSpeed10m    float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Fetch queries current weather at (lat, lon). Surface pressure from the
// API is in hPa; the generator's model works in Pa, so it's scaled x100.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lon float64) (WeatherReading, error) {
	u, err := url.Parse(weatherAPIBase)
	if err != nil {
		return WeatherReading{}, fmt.Errorf("parse weather API URL: %w", err)
	}
	q := u.Query()
	q.Set("latitude", fmt.Sprintf("%g", lat))
	q.Set("longitude", fmt.Sprintf("%g", lon))
	q.Set("current", "temperature_2m,surface_pressure,wind_speed_10m")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return WeatherReading{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return WeatherReading{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WeatherReading{}, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return WeatherReading{}, fmt.Errorf("decode weather response: %w", err)
	}

	return WeatherReading{
		TemperatureC: body.Current.Temperature2m,
		PressurePa:   body.Current.SurfacePressure * 100,
		WindSpeedMS:  body.Current.WindSpeed10m,
	}, nil
}
