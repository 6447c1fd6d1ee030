package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/audioweather/internal/llm"
	"github.com/nikhilbhutani/audioweather/internal/models"
	"github.com/nikhilbhutani/audioweather/internal/prompt"
	"github.com/nikhilbhutani/audioweather/pkg/tokenizer"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("text generation returned an empty answer")

// WeatherTemplate asks for a short Spanish answer grounded on one forecast entry.
var WeatherTemplate = prompt.Template{
	Name:   "weather-answer",
	System: "Eres un asistente meteorológico experto.",
	User: `Usuario dijo por voz: "{{transcription}}"

Datos del clima (primer bloque del pronóstico):
{{forecast}}

Da una respuesta amigable, concisa y en español sobre el clima.`,
}

// Summary is the generated answer plus the usage figures of the call.
type Summary struct {
	Answer       string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	LatencyMs    int64
}

type Summarizer struct {
	provider llm.Provider
	model    string
	template prompt.Template
}

func New(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{
		provider: provider,
		model:    model,
		template: WeatherTemplate,
	}
}

// Summarize makes a single text-generation call.
func (s *Summarizer) Summarize(ctx context.Context, transcription string, entry *models.ForecastEntry) (*Summary, error) {
	forecast, err := FormatForecast(entry)
	if err != nil {
		return nil, err
	}

	system, user, err := s.template.Render(map[string]string{
		"transcription": transcription,
		"forecast":      forecast,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.ChatCompletion(ctx, llm.ChatRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	summary := &Summary{
		Answer:       answer,
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.CostUSD,
		LatencyMs:    resp.LatencyMs,
	}

	// OpenAI-compatible local servers often omit usage.
	if summary.InputTokens == 0 && summary.OutputTokens == 0 {
		summary.InputTokens = tokenizer.EstimateMessages(system, user)
		summary.OutputTokens = tokenizer.Estimate(answer)
		summary.CostUSD = llm.CalculateCost(summary.Model, summary.InputTokens, summary.OutputTokens)
	}
	return summary, nil
}

// FormatForecast renders the entry as two-space indented JSON, preferring the
// provider's own fields over the parsed subset.
func FormatForecast(entry *models.ForecastEntry) (string, error) {
	if entry == nil {
		return "", fmt.Errorf("no forecast entry")
	}
	if len(entry.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, entry.Raw, "", "  "); err == nil {
			return buf.String(), nil
		}
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal forecast entry: %w", err)
	}
	return string(data), nil
}
