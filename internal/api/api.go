package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/qviuqh/calendar-api/internal/auth"
	"github.com/qviuqh/calendar-api/internal/calendar"
	"github.com/qviuqh/calendar-api/internal/config"
	"github.com/qviuqh/calendar-api/internal/storage"
	"github.com/qviuqh/calendar-api/internal/store"
)

type Api struct {
	Config config.Config
	Router *chi.Mux

	auth      *auth.Service
	calendars *calendar.Service
	exporter  *storage.Exporter
}

func NewApi(cfg config.Config, db *sql.DB) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, errors.New("must have at least a port to start API")
	}
	if cfg.Auth.SigningSecret == "" {
		return nil, errors.New("auth.signingSecret is required")
	}

	tokens, err := auth.NewTokenManager(
		cfg.Auth.SigningSecret,
		cfg.Auth.SigningAlgorithm,
		time.Duration(cfg.Auth.AccessTokenMinutes)*time.Minute,
	)
	if err != nil {
		return nil, err
	}

	st := store.New(db, cfg.Database.Type)
	hasher := auth.PasswordHasher{Prehash: cfg.Auth.PrehashPasswords}

	api := &Api{
		Config:    cfg,
		Router:    chi.NewRouter(),
		auth:      auth.NewService(st, tokens, hasher, cfg.Auth.RefreshTokenDays, cfg.Auth.RotateRefreshTokens),
		calendars: calendar.NewService(st),
	}

	if cfg.Export.S3Bucket != "" {
		client, err := storage.NewS3Client(
			cfg.Export.S3Endpoint,
			cfg.Export.S3Region,
			cfg.Export.S3Bucket,
			cfg.Export.S3AccessKeyID,
			cfg.Export.S3SecretAccessKey,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing export client: %w", err)
		}
		api.exporter = storage.NewExporter(client)
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Get("/", api.Root)
	r.Get("/health", api.Health)

	// Public auth routes
	r.Post("/auth/register", api.RegisterHandler)
	r.Post("/auth/login", api.LoginHandler)
	r.Post("/auth/refresh", api.RefreshHandler)
	r.Post("/auth/logout", api.LogoutHandler)

	// Everything below requires a valid access token
	r.Group(func(r chi.Router) {
		r.Use(api.RequireAuth)

		r.Get("/auth/me", api.MeHandler)

		r.Route("/calendars", func(r chi.Router) {
			r.Post("/", api.CreateCalendarHandler)
			r.Get("/", api.ListCalendarsHandler)
			r.Get("/{calendarID}", api.GetCalendarHandler)
			r.Patch("/{calendarID}", api.UpdateCalendarHandler)
			r.Delete("/{calendarID}", api.DeleteCalendarHandler)
			r.Post("/{calendarID}/export", api.ExportCalendarHandler)
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", api.CreateEventHandler)
			r.Get("/", api.ListEventsHandler)
			r.Get("/{eventID}", api.GetEventHandler)
			r.Patch("/{eventID}", api.UpdateEventHandler)
			r.Delete("/{eventID}", api.DeleteEventHandler)
		})
	})
}

func (api *Api) Serve() {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, api.Router))
}

func (api *Api) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Calendar API",
		"version": "1.0.0",
	})
}

func (api *Api) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
