package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/audioweather/internal/models"
	"github.com/nikhilbhutani/audioweather/internal/multimodal/stt"
	"github.com/nikhilbhutani/audioweather/internal/summarizer"
)

// TimestampLayout matches JavaScript's Date.toISOString for UTC times.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	StageUpload     = "upload"
	StageTranscribe = "transcribe"
	StageWeather    = "weather"
	StageSummarize  = "summarize"
)

var (
	ErrNoAudio            = errors.New("no audio received")
	ErrMissingCoordinates = errors.New("missing coordinates")
)

// StageError wraps a failure of one downstream step.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is an input error the client can fix.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoAudio) || errors.Is(err, ErrMissingCoordinates)
}

type Stager interface {
	Stage(r io.Reader) (*models.UploadedAudio, error)
	Release(audio *models.UploadedAudio) error
}

type ForecastFetcher interface {
	NearestForecast(ctx context.Context, coords models.Coordinates) (*models.ForecastEntry, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcription string, entry *models.ForecastEntry) (*summarizer.Summary, error)
}

// Recorder persists run metadata. Failures are logged and never reach the client.
type Recorder interface {
	RecordRun(ctx context.Context, run models.RunRecord) error
}

// CleanupQueue hands a staged file that could not be deleted to a background worker.
type CleanupQueue interface {
	EnqueueStagingRemove(ctx context.Context, filename, requestID string) error
}

// Request is one audio-weather question. Audio is nil when the client sent no file.
type Request struct {
	RequestID   string
	Audio       io.Reader
	Coordinates models.Coordinates
}

// Orchestrator runs transcription, forecast lookup and summarization strictly
// in sequence for one request and always releases the staged audio.
type Orchestrator struct {
	staging    Stager
	stt        stt.STTProvider
	weather    ForecastFetcher
	summarizer Summarizer
	recorder   Recorder
	cleanup    CleanupQueue
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithCleanupQueue(q CleanupQueue) Option {
	return func(o *Orchestrator) { o.cleanup = q }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(staging Stager, transcriber stt.STTProvider, weather ForecastFetcher, sum Summarizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		staging:    staging,
		stt:        transcriber,
		weather:    weather,
		summarizer: sum,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run validates the request, stages the audio and walks the pipeline. The
// first failing step aborts the run; no partial answer is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (answer *models.WeatherAnswer, err error) {
	start := o.now()
	run := models.RunRecord{
		ID:        uuid.New(),
		RequestID: req.RequestID,
		CreatedAt: start.UTC(),
	}
	defer func() { o.finish(ctx, &run, start, err) }()

	if req.Audio == nil {
		return nil, ErrNoAudio
	}
	if req.Coordinates.Latitude == "" || req.Coordinates.Longitude == "" {
		return nil, ErrMissingCoordinates
	}

	audio, err := o.staging.Stage(req.Audio)
	if err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}
	defer o.release(ctx, audio, req.RequestID)
	run.AudioBytes = audio.Size

	log := slog.With("request_id", req.RequestID, "run_id", run.ID)
	log.Info("audio staged", "file", audio.Filename, "bytes", audio.Size)

	transcript, err := o.stt.Transcribe(ctx, stt.TranscriptionRequest{FilePath: audio.Path})
	if err != nil {
		return nil, &StageError{Stage: StageTranscribe, Err: err}
	}
	log.Info("audio transcribed", "provider", o.stt.Name(), "chars", len(transcript.Text))

	entry, err := o.weather.NearestForecast(ctx, req.Coordinates)
	if err != nil {
		return nil, &StageError{Stage: StageWeather, Err: err}
	}
	log.Info("forecast fetched", "temperature", entry.Temperature, "description", entry.Description)

	summary, err := o.summarizer.Summarize(ctx, transcript.Text, entry)
	if err != nil {
		return nil, &StageError{Stage: StageSummarize, Err: err}
	}
	run.Provider = summary.Provider
	run.Model = summary.Model
	run.InputTokens = summary.InputTokens
	run.OutputTokens = summary.OutputTokens
	run.CostUSD = summary.CostUSD
	log.Info("answer generated", "provider", summary.Provider, "model", summary.Model, "latency_ms", summary.LatencyMs)

	return &models.WeatherAnswer{
		Transcription: transcript.Text,
		AIResponse:    summary.Answer,
		Location:      req.Coordinates,
		Timestamp:     o.now().UTC().Format(TimestampLayout),
	}, nil
}

// release deletes the staged file and never lets a failure escape.
func (o *Orchestrator) release(ctx context.Context, audio *models.UploadedAudio, requestID string) {
	if err := o.staging.Release(audio); err != nil {
		slog.Error("staged audio cleanup failed", "request_id", requestID, "file", audio.Filename, "error", err)
		if o.cleanup == nil {
			return
		}
		if qerr := o.cleanup.EnqueueStagingRemove(context.WithoutCancel(ctx), audio.Filename, requestID); qerr != nil {
			slog.Error("deferring staged audio cleanup failed", "file", audio.Filename, "error", qerr)
		}
		return
	}
	slog.Debug("staged audio removed", "file", audio.Filename)
}

func (o *Orchestrator) finish(ctx context.Context, run *models.RunRecord, start time.Time, err error) {
	run.LatencyMs = o.now().Sub(start).Milliseconds()

	var stageErr *StageError
	switch {
	case err == nil:
		run.Status = models.RunStatusSucceeded
	case IsValidation(err):
		run.Status = models.RunStatusRejected
		slog.Warn("audio-weather request rejected", "request_id", run.RequestID, "error", err)
	case errors.As(err, &stageErr):
		run.Status = models.RunStatusFailed
		run.FailedStage = stageErr.Stage
		slog.Error("audio-weather run failed", "request_id", run.RequestID, "stage", stageErr.Stage, "error", err)
	default:
		run.Status = models.RunStatusFailed
		slog.Error("audio-weather run failed", "request_id", run.RequestID, "error", err)
	}

	if o.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := o.recorder.RecordRun(recCtx, *run); rerr != nil {
		slog.Warn("recording run failed", "run_id", run.ID, "error", rerr)
	}
}
