package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/obs"
	"eeytech.com/console/internal/stream"
	"eeytech.com/console/internal/tickets"
)

const serviceName = "eeytech-console"

// ReadyProbe checks readiness by pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// APIKeyResolver maps an X-API-Key header to its application.
type APIKeyResolver interface {
	Resolve(ctx context.Context, apiKey string) (auth.Application, error)
}

type apiKeyForgetter interface {
	Forget(ctx context.Context, apiKey string) error
}

// Deps groups the services behind the HTTP boundary.
type Deps struct {
	Sessions *auth.SessionManager
	Admin    *auth.AdminService
	Gate     *auth.Gate
	Tickets  *tickets.Service
	APIKeys  APIKeyResolver
	Stream   *stream.Hub
	Ready    readinessChecker
	Logger   *slog.Logger
	Version  string

	CookieDomain   string
	Production     bool
	RequestTimeout time.Duration
	RateBurst      int
	RatePerSec     float64
	APIKeyRPM      int
}

// API is the HTTP layer.
type API struct {
	router   chi.Router
	sessions *auth.SessionManager
	admin    *auth.AdminService
	gate     *auth.Gate
	tickets  *tickets.Service
	apiKeys  APIKeyResolver
	stream   *stream.Hub
	ready    readinessChecker
	logger   *slog.Logger
	validate *validator.Validate
	version  string

	cookieDomain   string
	production     bool
	requestTimeout time.Duration
	rateBurst      int
	ratePerSec     float64
	apiKeyRPM      int
}

// New validates deps and mounts every route.
func New(d Deps) (*API, error) {
	if d.Sessions == nil || d.Admin == nil || d.Gate == nil || d.Tickets == nil {
		return nil, errors.New("httpapi: sessions, admin, gate and tickets are required")
	}
	if d.APIKeys == nil {
		return nil, errors.New("httpapi: api key resolver is required")
	}
	a := &API{
		sessions:       d.Sessions,
		admin:          d.Admin,
		gate:           d.Gate,
		tickets:        d.Tickets,
		apiKeys:        d.APIKeys,
		stream:         d.Stream,
		ready:          d.Ready,
		logger:         d.Logger,
		validate:       validator.New(),
		version:        d.Version,
		cookieDomain:   d.CookieDomain,
		production:     d.Production,
		requestTimeout: d.RequestTimeout,
		rateBurst:      d.RateBurst,
		ratePerSec:     d.RatePerSec,
		apiKeyRPM:      d.APIKeyRPM,
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.logger == nil {
		a.logger = obs.Logger()
	}
	if a.requestTimeout <= 0 {
		a.requestTimeout = 30 * time.Second
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 10
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 5
	}
	if a.apiKeyRPM <= 0 {
		a.apiKeyRPM = 120
	}
	a.router = a.routes()
	return a, nil
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(Logging(a.logger))
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders(a.production, a.logger))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(a.withSession)

		r.Route("/auth", func(r chi.Router) {
			r.Use(chimw.Timeout(a.requestTimeout))
			r.With(LoginCORS, RateLimit(a.rateBurst, a.ratePerSec)).Group(func(r chi.Router) {
				r.Post("/login", a.handleLogin)
				r.Options("/login", func(w http.ResponseWriter, r *http.Request) {})
			})
			r.Post("/refresh", a.handleRefresh)
			r.Post("/logout", a.handleLogout)
			r.Post("/revoke", a.handleRevoke)
			r.Get("/session", a.handleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(a.requestTimeout))
			a.mountAdminRoutes(r)
		})

		r.Route("/tickets", a.mountTicketRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler returns the instrumented router.
func (a *API) Handler() http.Handler {
	return obs.Instrument(MaxBodyBytes(a.router, 1<<20))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// decodeJSON reads exactly one JSON document and runs struct validation.
func (a *API) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("malformed JSON body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest("unexpected data after JSON body")
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
			}
			return badRequest("invalid fields: " + strings.Join(fields, ", "))
		}
		return badRequest(err.Error())
	}
	return nil
}
