package stt

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/audioweather/internal/config"
)

// TranscriptionRequest holds the parameters for audio transcription.
type TranscriptionRequest struct {
	FilePath string `json:"file_path"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// TranscriptionResponse holds the transcription result.
type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// STTProvider is the interface for speech-to-text backends.
type STTProvider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}

// NewProvider builds the backend selected by cfg.Backend.
func NewProvider(cfg config.STTConfig) (STTProvider, error) {
	switch cfg.Backend {
	case "", "openai":
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:   cfg.OpenAIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIModel,
			Language: cfg.Language,
		}), nil
	case "local":
		return NewLocalSTT(LocalSTTConfig{
			BaseURL:  cfg.LocalBaseURL,
			Language: cfg.Language,
		}), nil
	default:
		return nil, fmt.Errorf("unknown STT backend %q", cfg.Backend)
	}
}
