package models

import (
	"encoding/json"
	"time"
)

// UploadedAudio is an audio blob staged on disk for the lifetime of one request.
type UploadedAudio struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// Coordinates are carried as the client sent them; only presence is checked.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// ForecastEntry is one time-stamped block of a multi-entry forecast.
// Raw keeps the provider's JSON untouched so it can be shown to the model verbatim.
type ForecastEntry struct {
	Time        time.Time       `json:"time"`
	Temperature float64         `json:"temperature"`
	FeelsLike   float64         `json:"feels_like"`
	TempMin     float64         `json:"temp_min"`
	TempMax     float64         `json:"temp_max"`
	Humidity    int             `json:"humidity"`
	Pressure    int             `json:"pressure"`
	Description string          `json:"description"`
	WindSpeed   float64         `json:"wind_speed"`
	Clouds      int             `json:"clouds"`
	PrecipProb  float64         `json:"precip_probability"`
	Raw         json.RawMessage `json:"-"`
}

// WeatherAnswer is the response body of a successful audio-weather request.
type WeatherAnswer struct {
	Transcription string      `json:"transcription"`
	AIResponse    string      `json:"ai_response"`
	Location      Coordinates `json:"location"`
	Timestamp     string      `json:"timestamp"`
}
