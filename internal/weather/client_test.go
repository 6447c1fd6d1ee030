package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/audioweather/internal/config"
	"github.com/nikhilbhutani/audioweather/internal/models"
)

const sampleForecast = `{
  "cod": "200",
  "cnt": 2,
  "list": [
    {
      "dt": 1700000000,
      "main": {"temp": 15, "feels_like": 14.2, "temp_min": 13.5, "temp_max": 15, "pressure": 1012, "humidity": 80},
      "weather": [{"id": 500, "main": "Rain", "description": "lluvia ligera"}],
      "clouds": {"all": 75},
      "wind": {"speed": 3.4},
      "pop": 0.4,
      "dt_txt": "2023-11-14 22:13:20"
    },
    {
      "dt": 1700010800,
      "main": {"temp": 12, "feels_like": 11, "temp_min": 12, "temp_max": 12, "pressure": 1013, "humidity": 85},
      "weather": [{"id": 800, "main": "Clear", "description": "cielo claro"}],
      "clouds": {"all": 0},
      "wind": {"speed": 1.2},
      "pop": 0
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.WeatherConfig{APIKey: "owm-key", BaseURL: srv.URL})
}

func TestNearestForecast(t *testing.T) {
	var query map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("path = %s, want /forecast", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleForecast))
	})

	entry, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "10", Longitude: "20"})
	if err != nil {
		t.Fatalf("NearestForecast() error = %v", err)
	}

	want := map[string]string{"lat": "10", "lon": "20", "appid": "owm-key", "units": "metric", "lang": "es"}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("query %s = %q, want %q", k, query[k], v)
		}
	}

	if entry.Temperature != 15 {
		t.Errorf("Temperature = %v, want 15", entry.Temperature)
	}
	if entry.Description != "lluvia ligera" {
		t.Errorf("Description = %q", entry.Description)
	}
	if entry.Humidity != 80 || entry.Clouds != 75 || entry.PrecipProb != 0.4 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Time.Unix() != 1700000000 {
		t.Errorf("Time = %v", entry.Time)
	}

	var raw map[string]any
	if err := json.Unmarshal(entry.Raw, &raw); err != nil {
		t.Fatalf("Raw is not valid JSON: %v", err)
	}
	if raw["dt_txt"] != "2023-11-14 22:13:20" {
		t.Errorf("Raw should keep provider fields, got %v", raw["dt_txt"])
	}
}

func TestForecastReturnsAllEntries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleForecast))
	})

	entries, err := client.Forecast(context.Background(), models.Coordinates{Latitude: "1", Longitude: "2"})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].Description != "cielo claro" {
		t.Errorf("entries[1].Description = %q", entries[1].Description)
	}
}

func TestNearestForecastIgnoresLaterEntries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[{"dt":1,"main":{"temp":15}},{"dt":2,"main":{"temp":"x"}}]}`))
	})

	entry, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "10", Longitude: "20"})
	if err != nil {
		t.Fatalf("NearestForecast() error = %v", err)
	}
	if entry.Temperature != 15 {
		t.Errorf("Temperature = %v, want 15", entry.Temperature)
	}

	if _, err := client.Forecast(context.Background(), models.Coordinates{Latitude: "10", Longitude: "20"}); err == nil {
		t.Error("Forecast() should fail on a malformed entry")
	}
}

func TestNearestForecastMalformedFirstEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[{"dt":1,"main":{"temp":"x"}}]}`))
	})

	if _, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "10", Longitude: "20"}); err == nil {
		t.Error("NearestForecast() should fail when the first entry is malformed")
	}
}

func TestNearestForecastEmptyList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cod":"200","cnt":0,"list":[]}`))
	})

	_, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "1", Longitude: "2"})
	if !errors.Is(err, ErrEmptyForecast) {
		t.Fatalf("error = %v, want ErrEmptyForecast", err)
	}
}

func TestForecastErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	})

	_, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "1", Longitude: "2"})
	if err == nil {
		t.Fatal("NearestForecast() should fail on 401")
	}
	if !strings.Contains(err.Error(), "Invalid API key") || !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want status and provider message", err)
	}
}

func TestForecastEscapesCoordinates(t *testing.T) {
	var rawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(sampleForecast))
	})

	_, err := client.NearestForecast(context.Background(), models.Coordinates{Latitude: "10&appid=x", Longitude: "20"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(rawQuery, "appid=") != 1 {
		t.Errorf("coordinates leaked into query: %s", rawQuery)
	}
}
