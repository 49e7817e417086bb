// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/validation"
	"lending-workers/internal/lending/audit"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/models"
)

// Service is the orchestrator surface exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, req orchestrator.SubmitRequest) (*orchestrator.SubmitResult, error)
	Retry(ctx context.Context, applicationID, lenderID string) (bool, error)
	ApplyExternalUpdate(ctx context.Context, applicationID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error)
	GetStatus(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
	GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error)
	ListAllRecords(ctx context.Context) ([]models.LenderApplication, error)
	BestOffers(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
	Analytics(ctx context.Context) ([]models.LenderAnalytics, error)
	InFlight(ctx context.Context, applicationID string) (bool, error)
}

type Catalogue interface {
	Get(id string) (models.Lender, bool)
	List() []models.Lender
}

type History interface {
	History(ctx context.Context, applicationID string) ([]audit.Entry, error)
}

// Check reports a dependency as unavailable by returning an error.
type Check func(ctx context.Context) error

type Options struct {
	Service   Service
	Lenders   Catalogue
	History   History // optional
	Checks    map[string]Check
	Origins   []string
	AppName   string
	Version   string
	ReadyWait time.Duration
	Logger    logger.Logger
}

type Server struct {
	svc          Service
	lenders      Catalogue
	history      History
	checks       map[string]Check
	origins      []string
	appName      string
	version      string
	readyWait    time.Duration
	submitSchema *validation.Schema
	updateSchema *validation.Schema
	logger       logger.Logger
	now          func() time.Time
}

func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("api: service is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.ReadyWait <= 0 {
		opts.ReadyWait = 3 * time.Second
	}

	submitSchema, err := validation.Load(validation.SchemaSubmitApplication)
	if err != nil {
		return nil, err
	}
	updateSchema, err := validation.Load(validation.SchemaStatusUpdate)
	if err != nil {
		return nil, err
	}

	return &Server{
		svc:          opts.Service,
		lenders:      opts.Lenders,
		history:      opts.History,
		checks:       opts.Checks,
		origins:      opts.Origins,
		appName:      opts.AppName,
		version:      opts.Version,
		readyWait:    opts.ReadyWait,
		submitSchema: submitSchema,
		updateSchema: updateSchema,
		logger:       opts.Logger.WithFields(map[string]interface{}{"component": "http-api"}),
		now:          time.Now,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Post("/applications", s.submit)
		api.Route("/applications/{applicationId}", func(app chi.Router) {
			app.Get("/", s.getApplication)
			app.Get("/lenders", s.listApplicationLenders)
			app.Get("/offers", s.bestOffers)
			app.Get("/history", s.applicationHistory)
			app.Post("/lenders/{lenderId}/retry", s.retry)
		})
		api.Post("/webhooks/lenders/{lenderId}/applications/{applicationId}", s.lenderWebhook)
		api.Get("/records", s.listRecords)
		api.Get("/lenders", s.listLenders)
		api.Get("/lenders/analytics", s.analytics)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"durationMs": time.Since(started).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
			return
		}
		s.logger.Debug("request served", fields)
	})
}
