// Package httpapi exposes the auth and backoffice services over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"smartlotto.org/internal/auth"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/obs"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Version        string
	AllowedOrigins []string
	MaxBodyBytes   int64

	// General limit for authenticated routes.
	RateBurst     int
	RatePerSecond float64
	// Stricter limit for register and login.
	AuthBurst     int
	AuthPerSecond float64
}

// API wires handlers to the auth and backoffice services.
type API struct {
	auth    *auth.Service
	office  *backoffice.Service
	ready   Pinger
	opts    Options
	started time.Time
	router  chi.Router
}

// New builds the router. ready may be nil, in which case /readyz always succeeds.
func New(authSvc *auth.Service, office *backoffice.Service, ready Pinger, opts Options) (*API, error) {
	if authSvc == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if office == nil {
		return nil, errors.New("httpapi: backoffice service is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 60
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}
	if opts.AuthPerSecond <= 0 {
		opts.AuthPerSecond = 1
	}
	a := &API{
		auth:    authSvc,
		office:  office,
		ready:   ready,
		opts:    opts,
		started: time.Now().UTC(),
	}
	a.router = a.routes()
	return a, nil
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		RequestID,
		LoggingJSON,
		middleware.Recoverer,
		SecurityHeaders,
		CORS(a.opts.AllowedOrigins),
		obs.Instrument,
		MaxBodyBytes(a.opts.MaxBodyBytes),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/v1/info", a.handleInfo)
	r.Handle("/metrics", obs.Handler())

	authLimit := newIPLimiter(a.opts.AuthBurst, a.opts.AuthPerSecond).middleware
	apiLimit := newIPLimiter(a.opts.RateBurst, a.opts.RatePerSecond).middleware

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/register", a.handleRegister)
			r.With(authLimit).Post("/login", a.handleLogin)
			r.With(a.withAuth).Get("/me", a.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth, apiLimit)
			r.Post("/users", a.handleAddMember)
			r.Route("/enterprises", func(r chi.Router) { mountResource(r, a.office.Enterprises) })
			r.Route("/customers", func(r chi.Router) { mountResource(r, a.office.Customers) })
			r.Route("/item-types", func(r chi.Router) { mountResource(r, a.office.ItemTypes) })
			r.Route("/orders", func(r chi.Router) { mountResource(r, a.office.Orders) })
			r.Route("/order-items", func(r chi.Router) {
				r.Post("/batch", createMany(a.office.OrderItems))
				mountResource(r, a.office.OrderItems)
			})
			r.Route("/quick-notes", func(r chi.Router) { mountResource(r, a.office.QuickNotes) })
			r.Route("/lotteries", func(r chi.Router) { mountResource(r, a.office.Lotteries) })
			r.Get("/change-logs", a.handleChangeLogs)
		})
	})
	return r
}

// Handler returns the HTTP handler with the middleware chain applied.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready.Ping(ctx); err != nil {
			obs.SetReady(false)
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "smartlotto-backoffice",
		"version":    a.opts.Version,
		"started_at": a.started,
		"uptime_sec": int64(time.Since(a.started).Seconds()),
	})
}
