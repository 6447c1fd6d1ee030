package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/audioweather/internal/models"
	"github.com/nikhilbhutani/audioweather/internal/pipeline"
)

type mockRunner struct {
	RunFunc func(ctx context.Context, req pipeline.Request) (*models.WeatherAnswer, error)
	calls   int
	audio   []byte
	req     pipeline.Request
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (*models.WeatherAnswer, error) {
	m.calls++
	m.req = req
	if req.Audio != nil {
		m.audio, _ = io.ReadAll(req.Audio)
	}
	return m.RunFunc(ctx, req)
}

// validatingRunner mirrors the orchestrator's input checks.
func validatingRunner() *mockRunner {
	return &mockRunner{RunFunc: func(ctx context.Context, req pipeline.Request) (*models.WeatherAnswer, error) {
		if req.Audio == nil {
			return nil, pipeline.ErrNoAudio
		}
		if req.Coordinates.Latitude == "" || req.Coordinates.Longitude == "" {
			return nil, pipeline.ErrMissingCoordinates
		}
		return &models.WeatherAnswer{
			Transcription: "¿va a llover?",
			AIResponse:    "No, hoy estará despejado.",
			Location:      req.Coordinates,
			Timestamp:     "2025-03-01T12:30:45.123Z",
		}, nil
	}}
}

func multipartBody(t *testing.T, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "grabacion.m4a")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(audio)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return got
}

func TestAudioWeatherHandler(t *testing.T) {
	tests := []struct {
		name       string
		audio      []byte
		fields     map[string]string
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			audio:      []byte("m4a"),
			fields:     map[string]string{"latitude": "40.4", "longitude": "-3.7"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "audio omitted",
			fields:     map[string]string{"latitude": "10", "longitude": "20"},
			wantStatus: http.StatusBadRequest,
			wantError:  msgNoAudio,
		},
		{
			name:       "longitude omitted",
			audio:      []byte("m4a"),
			fields:     map[string]string{"latitude": "10"},
			wantStatus: http.StatusBadRequest,
			wantError:  msgNoCoordinates,
		},
		{
			name:       "empty latitude",
			audio:      []byte("m4a"),
			fields:     map[string]string{"latitude": "", "longitude": "20"},
			wantStatus: http.StatusBadRequest,
			wantError:  msgNoCoordinates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := validatingRunner()
			h := NewAudioWeatherHandler(runner, 1<<20)

			body, contentType := multipartBody(t, tt.audio, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/audio-weather", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			h.Handle(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			got := decodeBody(t, rec)
			if tt.wantError != "" {
				if got["error"] != tt.wantError {
					t.Errorf("error = %v, want %q", got["error"], tt.wantError)
				}
				if len(got) != 1 {
					t.Errorf("400 body has extra keys: %v", got)
				}
				return
			}

			if got["transcription"] != "¿va a llover?" || got["ai_response"] != "No, hoy estará despejado." {
				t.Errorf("unexpected answer body: %v", got)
			}
			loc, _ := got["location"].(map[string]any)
			if loc["latitude"] != "40.4" || loc["longitude"] != "-3.7" {
				t.Errorf("location = %v, want submitted coordinates", got["location"])
			}
			if string(runner.audio) != "m4a" {
				t.Errorf("runner received audio %q", runner.audio)
			}
		})
	}
}

func TestAudioWeatherHandlerNonMultipartBody(t *testing.T) {
	runner := validatingRunner()
	h := NewAudioWeatherHandler(runner, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/audio-weather", strings.NewReader(`{"latitude":"10"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec); got["error"] != msgNoAudio {
		t.Errorf("error = %v, want %q", got["error"], msgNoAudio)
	}
}

func TestAudioWeatherHandlerDownstreamFailure(t *testing.T) {
	runner := &mockRunner{RunFunc: func(ctx context.Context, req pipeline.Request) (*models.WeatherAnswer, error) {
		return nil, &pipeline.StageError{Stage: pipeline.StageWeather, Err: errors.New("city not found")}
	}}
	h := NewAudioWeatherHandler(runner, 1<<20)

	body, contentType := multipartBody(t, []byte("m4a"), map[string]string{"latitude": "1", "longitude": "2"})
	req := httptest.NewRequest(http.MethodPost, "/api/audio-weather", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["error"] != msgProcessingFail {
		t.Errorf("error = %v, want %q", got["error"], msgProcessingFail)
	}
	if details, _ := got["details"].(string); !strings.Contains(details, "city not found") {
		t.Errorf("details = %q, want the underlying error", details)
	}
}

func TestAudioWeatherHandlerTooLarge(t *testing.T) {
	runner := validatingRunner()
	h := NewAudioWeatherHandler(runner, 16)

	body, contentType := multipartBody(t, bytes.Repeat([]byte("a"), 64), map[string]string{"latitude": "1", "longitude": "2"})
	req := httptest.NewRequest(http.MethodPost, "/api/audio-weather", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times for an oversize upload", runner.calls)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Root status = %d", rec.Code)
	}
	if got := decodeBody(t, rec); got["message"] != "Backend funcionando correctamente 🚀" {
		t.Errorf("Root message = %v", got["message"])
	}

	rec = httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Readyz without backends = %d, want 200", rec.Code)
	}
}
