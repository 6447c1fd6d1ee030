package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilbhutani/audioweather/internal/config"
	"github.com/nikhilbhutani/audioweather/internal/models"
)

// ErrEmptyForecast is returned when the provider answers with no forecast entries.
var ErrEmptyForecast = errors.New("forecast response has no entries")

// Client fetches 5-day/3-hour forecasts from OpenWeatherMap.
type Client struct {
	cfg        config.WeatherConfig
	httpClient *http.Client
}

func NewClient(cfg config.WeatherConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Lang == "" {
		cfg.Lang = "es"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "openweathermap" }

type forecastResponse struct {
	List []json.RawMessage `json:"list"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Pop float64 `json:"pop"`
}

type apiError struct {
	Message string `json:"message"`
}

// Forecast returns every entry of the forecast for coords, nearest first.
func (c *Client) Forecast(ctx context.Context, coords models.Coordinates) ([]models.ForecastEntry, error) {
	list, err := c.fetch(ctx, coords)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ForecastEntry, 0, len(list))
	for i, raw := range list {
		entry, err := parseEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("parse forecast entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NearestForecast returns the first (nearest-term) forecast entry. Later
// entries are not decoded.
func (c *Client) NearestForecast(ctx context.Context, coords models.Coordinates) (*models.ForecastEntry, error) {
	list, err := c.fetch(ctx, coords)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrEmptyForecast
	}

	entry, err := parseEntry(list[0])
	if err != nil {
		return nil, fmt.Errorf("parse forecast entry 0: %w", err)
	}
	return &entry, nil
}

// fetch returns the raw "list" array of the forecast response.
func (c *Client) fetch(ctx context.Context, coords models.Coordinates) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("lat", coords.Latitude)
	q.Set("lon", coords.Longitude)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", c.cfg.Units)
	q.Set("lang", c.cfg.Lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read forecast response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("forecast failed (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("forecast failed (status %d): %s", resp.StatusCode, string(body))
	}

	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse forecast response: %w", err)
	}

	return fr.List, nil
}

func parseEntry(raw json.RawMessage) (models.ForecastEntry, error) {
	var item forecastItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.ForecastEntry{}, err
	}

	entry := models.ForecastEntry{
		Temperature: item.Main.Temp,
		FeelsLike:   item.Main.FeelsLike,
		TempMin:     item.Main.TempMin,
		TempMax:     item.Main.TempMax,
		Humidity:    item.Main.Humidity,
		Pressure:    item.Main.Pressure,
		WindSpeed:   item.Wind.Speed,
		Clouds:      item.Clouds.All,
		PrecipProb:  item.Pop,
		Raw:         raw,
	}
	if item.Dt > 0 {
		entry.Time = time.Unix(item.Dt, 0).UTC()
	}
	if len(item.Weather) > 0 {
		entry.Description = item.Weather[0].Description
	}
	return entry, nil
}
