// Package api exposes the focus lookup, the live area feed, accounts and spotted
// flights over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flight_spotter/internal/auth"
	"flight_spotter/internal/database"
	"flight_spotter/internal/metrics"
	"flight_spotter/internal/models"
	"flight_spotter/internal/opensky"
)

// FocusResolver produces the merged record for one transponder code
type FocusResolver interface {
	Resolve(ctx context.Context, raw string) (*models.ResolvedAircraft, error)
}

// AreaFetcher returns the live state vectors inside a bounding box
type AreaFetcher interface {
	FetchByBoundingBox(ctx context.Context, box opensky.BoundingBox) ([]models.LiveState, error)
}

type Deps struct {
	Resolver   FocusResolver
	Area       AreaFetcher
	Users      database.UserRepository
	Flights    database.FlightRepository
	Tokens     *auth.TokenManager
	BcryptCost int
	MapsAPIKey string
}

type Server struct {
	Deps
}

func NewServer(deps Deps) *Server {
	return &Server{Deps: deps}
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(s.Tokens.Authenticate)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/map", s.handleMap)

	r.Route("/aircraft", func(r chi.Router) {
		r.Get("/", s.handleBoundingBox)
		r.Get("/focus", s.handleFocus)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireLogin)
			r.Post("/spotted", s.handleAddSpotted)
			r.Post("/delete", s.handleDeleteSpotted)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSameUser)
			r.Get("/{username}", s.handleGetUser)
			r.Delete("/{username}", s.handleDeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	return r
}

// instrument records request metrics under the matched route pattern and logs each request
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		duration := time.Since(start)

		metrics.RecordAPIRequest(r.Method, pattern, status, duration)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
