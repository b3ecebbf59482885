// internal/httpapi/server.go
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/observability"
	"drift-workers/internal/deals"
	"drift-workers/internal/followup"
	"drift-workers/internal/models"
)

// DealService is the deal session behind the API.
type DealService interface {
	Query(f deals.Filter) deals.Page
	Deals() []models.Deal
	Deal(id string) (models.Deal, error)
	CreateDeal(ctx context.Context, deal models.Deal) (models.Deal, error)
	UpdateDeal(ctx context.Context, deal models.Deal) (models.Deal, error)
	SetFollowUp(ctx context.Context, id, draft string) (models.Deal, error)
	Profile() models.UserProfile
	UpdateProfile(ctx context.Context, profile models.UserProfile) (models.UserProfile, error)
	Preferences() models.AgentPreferences
	UpdatePreferences(prefs models.AgentPreferences) (models.AgentPreferences, error)
}

// Check is one readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Options struct {
	Deals     DealService
	Generator followup.Generator
	Gatherer  prometheus.Gatherer
	Checks    []Check
	Logger    logger.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
}

type Server struct {
	deals     DealService
	generator followup.Generator
	gatherer  prometheus.Gatherer
	checks    []Check
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
	mux       *http.ServeMux
}

func New(opts Options) *Server {
	s := &Server{
		deals:     opts.Deals,
		generator: opts.Generator,
		gatherer:  opts.Gatherer,
		checks:    opts.Checks,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		now:       opts.Now,
		mux:       http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("httpapi")
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/deals", s.listDeals)
	s.mux.HandleFunc("POST /api/deals", s.createDeal)
	s.mux.HandleFunc("GET /api/deals/{id}", s.getDeal)
	s.mux.HandleFunc("PUT /api/deals/{id}", s.updateDeal)
	s.mux.HandleFunc("POST /api/deals/{id}/followup", s.generateFollowUp)

	s.mux.HandleFunc("GET /api/profile", s.getProfile)
	s.mux.HandleFunc("PUT /api/profile", s.updateProfile)
	s.mux.HandleFunc("GET /api/preferences", s.getPreferences)
	s.mux.HandleFunc("PUT /api/preferences", s.updatePreferences)

	s.mux.HandleFunc("GET /api/insights", s.getInsights)
	s.mux.HandleFunc("POST /api/risk/score", s.scoreDeal)

	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("GET /ready", s.ready)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the mux wrapped in tracing, logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, end := observability.WithSpan(r.Context(), s.tracer, r.Method+" "+r.URL.Path,
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		)
		defer end()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic in handler", map[string]interface{}{"panic": p, "path": r.URL.Path})
				writeJSON(rec, http.StatusInternalServerError, errorBody{Error: errorDetail{
					Code: "INTERNAL_ERROR", Message: "Unexpected error",
				}})
			}
			s.logger.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
			})
		}()

		s.mux.ServeHTTP(rec, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	body := map[string]interface{}{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
		"checks": results,
	}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	writeJSON(w, status, body)
}
