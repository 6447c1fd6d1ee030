package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/audioweather/internal/api/handlers"
	"github.com/nikhilbhutani/audioweather/internal/api/middleware"
	"github.com/nikhilbhutani/audioweather/internal/config"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	runner handlers.Runner
}

// NewRouter builds the HTTP surface. db and rdb may be nil when the
// optional backends are not configured.
func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, runner handlers.Runner) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		runner: runner,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/", health.Root)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	audioH := handlers.NewAudioWeatherHandler(rt.runner, rt.cfg.Staging.MaxUploadBytes)
	r.Route("/api", func(r chi.Router) {
		r.Post("/audio-weather", audioH.Handle)
	})

	return r
}
