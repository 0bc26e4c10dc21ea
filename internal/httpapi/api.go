package httpapi

import (
	"context"
	"net/http"
	"time"

	"nurseconnect.org/api/spec"
	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/auth"
	"nurseconnect.org/internal/facilities"
	"nurseconnect.org/internal/obs"
	"nurseconnect.org/internal/shifts"
	"nurseconnect.org/internal/stream"
)

const serviceName = "nurseconnect-api"

// Clock reports the database time; a failure means the backend is unreachable.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// Deps are the collaborators the HTTP layer needs. Stream may be nil to
// disable the live event endpoint.
type Deps struct {
	Shifts       *shifts.Service
	Facilities   facilities.Store
	Applications *applications.Service
	Auth         *auth.Service
	Stream       *stream.Stream
	Clock        Clock
	Version      string
}

// Options tune the middleware chain.
type Options struct {
	CORSOrigin   string
	MaxBodyBytes int64
	RatePerSec   float64
	RateBurst    int
	// TrustProxy keys rate limiting on X-Forwarded-For. Enable only behind a
	// proxy that appends the peer address.
	TrustProxy bool
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	shifts       *shifts.Service
	facilities   facilities.Store
	applications *applications.Service
	auth         *auth.Service
	stream       *stream.Stream
	clock        Clock
	version      string
	opts         Options
	limiter      *rateLimiter
	heartbeat    time.Duration
}

// New builds the API and registers every route.
func New(d Deps, opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	a := &API{
		mux:          http.NewServeMux(),
		shifts:       d.Shifts,
		facilities:   d.Facilities,
		applications: d.Applications,
		auth:         d.Auth,
		stream:       d.Stream,
		clock:        d.Clock,
		version:      d.Version,
		opts:         opts,
		heartbeat:    25 * time.Second,
	}
	if opts.RatePerSec > 0 {
		a.limiter = newRateLimiter(opts.RatePerSec, opts.RateBurst)
		a.limiter.trustProxy = opts.TrustProxy
	}
	a.routes()
	return a
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /health", a.Health)
	a.mux.HandleFunc("GET /{$}", a.Root)
	a.mux.HandleFunc("GET /openapi.yaml", a.OpenAPISpec)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /api/auth/login", a.handleWorkerLogin)
	a.mux.HandleFunc("POST /api/facility-auth/login", a.handleFacilityLogin)
	a.mux.HandleFunc("POST /api/facility-auth/register", a.handleFacilityRegister)

	a.mux.HandleFunc("GET /api/facilities", a.listFacilities)
	a.mux.HandleFunc("GET /api/facilities/{id}", a.getFacility)

	a.mux.HandleFunc("POST /api/shifts", a.createShift)
	a.mux.HandleFunc("GET /api/shifts", a.listShifts)
	a.mux.HandleFunc("GET /api/shifts/events", a.Stream)
	a.mux.HandleFunc("GET /api/shifts/{id}", a.getShift)
	a.mux.HandleFunc("PUT /api/shifts/edit/{id}", a.editShift)
	a.mux.HandleFunc("DELETE /api/shifts/{id}", a.deleteShift)

	a.mux.HandleFunc("POST /api/applications", a.createApplication)
	a.mux.HandleFunc("GET /api/applications", a.listApplications)
	a.mux.HandleFunc("PUT /api/applications/{id}/status", a.updateApplicationStatus)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	if a.limiter != nil {
		h = RateLimit(h, a.limiter)
	}
	h = CORS(h, a.opts.CORSOrigin)
	h = obs.Instrument(h)
	h = Recover(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// Health reports liveness together with database reachability.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.clock == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UTC()})
		return
	}
	now, err := a.clock.Now(r.Context())
	if err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": now.UTC(),
	})
}

func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("NurseConnect API is running"))
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}
