package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/audioweather/internal/models"
	"github.com/nikhilbhutani/audioweather/internal/pipeline"
)

const (
	msgNoAudio        = "No llegó archivo de audio al servidor"
	msgNoCoordinates  = "Faltan coordenadas"
	msgAudioTooLarge  = "El archivo de audio supera el tamaño máximo permitido"
	msgProcessingFail = "Error procesando el audio"

	// Form parts above this size spill to temporary files.
	multipartMemory = 8 << 20
	// Room for the coordinate fields and multipart framing on top of the audio limit.
	multipartOverhead = 1 << 20
)

// Runner executes one audio-weather pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*models.WeatherAnswer, error)
}

type AudioWeatherHandler struct {
	runner         Runner
	maxUploadBytes int64
}

func NewAudioWeatherHandler(runner Runner, maxUploadBytes int64) *AudioWeatherHandler {
	return &AudioWeatherHandler{runner: runner, maxUploadBytes: maxUploadBytes}
}

// Handle accepts a multipart form with an "audio" file and "latitude"/"longitude" fields.
func (h *AudioWeatherHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	req := pipeline.Request{RequestID: chimiddleware.GetReqID(r.Context())}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": msgAudioTooLarge})
			return
		}
		// A body that is not a usable multipart form carries no audio.
		if !errors.Is(err, http.ErrNotMultipart) {
			slog.Warn("invalid multipart form", "request_id", req.RequestID, "error", err)
		}
	}

	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()

		req.Coordinates = models.Coordinates{
			Latitude:  firstValue(form.Value["latitude"]),
			Longitude: firstValue(form.Value["longitude"]),
		}

		if headers := form.File["audio"]; len(headers) > 0 {
			header := headers[0]
			if header.Size > h.maxUploadBytes {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": msgAudioTooLarge})
				return
			}
			file, err := header.Open()
			if err != nil {
				writeProcessingError(w, err)
				return
			}
			defer closeFile(file)
			req.Audio = file
		}
	}

	answer, err := h.runner.Run(r.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrNoAudio):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNoAudio})
	case errors.Is(err, pipeline.ErrMissingCoordinates):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNoCoordinates})
	case err != nil:
		writeProcessingError(w, err)
	default:
		writeJSON(w, http.StatusOK, answer)
	}
}

func writeProcessingError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   msgProcessingFail,
		"details": err.Error(),
	})
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func closeFile(f multipart.File) {
	if err := f.Close(); err != nil {
		slog.Warn("closing uploaded audio", "error", err)
	}
}
