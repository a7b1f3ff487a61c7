// Package api exposes the analysis engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/config"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/logging"
	"github.com/san-kum/ltiresp/internal/metrics"
	"github.com/san-kum/ltiresp/internal/sim"
)

const (
	Name    = "Control Systems API"
	Version = "1.0.0"

	maxBodyBytes = 1 << 20
)

type Server struct {
	eng      *engine.Engine
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	router   chi.Router
}

func New(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		eng:      eng,
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  NewMetrics(reg),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/transfer-function", s.handleAnalyze)
		r.Post("/step-response", s.handleSingle("step-response", sim.Step))
		r.Post("/impulse-response", s.handleSingle("impulse-response", sim.Impulse))
		r.Get("/example", s.handleExample)
	})
	return r
}

// ListenAndServe serves until ctx is done, then drains in-flight requests
// for at most the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown incomplete", "error", err)
		return srv.Close()
	}
	if err := <-serverErrors; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// analysisRequest mirrors engine.Request with optional grid fields.
type analysisRequest struct {
	Numerator   []float64 `json:"numerator"`
	Denominator []float64 `json:"denominator"`
	TimePoints  *int      `json:"time_points"`
	TimeEnd     *float64  `json:"time_end"`
}

type analysisResponse struct {
	TransferFunction string             `json:"transfer_function"`
	StepResponse     chart.ResponseData `json:"step_response"`
	ImpulseResponse  chart.ResponseData `json:"impulse_response"`
	RampResponse     chart.ResponseData `json:"ramp_response"`
	StepInfo         metrics.StepInfo   `json:"step_info"`
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// decode reads the body and applies the default and clamped grid.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (engine.Request, error) {
	var body analysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return engine.Request{}, err
	}

	req := engine.Request{
		Numerator:   body.Numerator,
		Denominator: body.Denominator,
		TimePoints:  config.DefaultTimePoints,
		TimeEnd:     config.DefaultTimeEnd,
	}
	if body.TimePoints != nil {
		req.TimePoints = *body.TimePoints
	}
	if body.TimeEnd != nil {
		req.TimeEnd = *body.TimeEnd
	}
	return s.eng.Config().Limits.Clamp(req, s.cfg.Limits.MinTimeEnd), nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": Name, "version": Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(w, r)
	if err != nil {
		s.metrics.observe("transfer-function", time.Now(), err)
		s.writeError(w, r, "invalid request body", err)
		return
	}
	s.analyze(w, r, "transfer-function", req)
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	req := config.GetPreset("example").Request("example")
	s.analyze(w, r, "example", s.eng.Config().Limits.Clamp(req, s.cfg.Limits.MinTimeEnd))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, endpoint string, req engine.Request) {
	start := time.Now()
	a, err := s.eng.Analyze(r.Context(), req)
	s.metrics.observe(endpoint, start, err)
	if err != nil {
		s.writeError(w, r, "error analyzing transfer function: "+s.describe(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, analysisResponse{
		TransferFunction: a.TransferFunction,
		StepResponse:     a.Step,
		ImpulseResponse:  a.Impulse,
		RampResponse:     a.Ramp,
		StepInfo:         a.StepInfo,
		Success:          true,
		Message:          "Transfer function analyzed successfully",
	})
}

func (s *Server) handleSingle(endpoint string, class sim.InputClass) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		req, err := s.decode(w, r)
		if err != nil {
			s.metrics.observe(endpoint, start, err)
			s.writeError(w, r, "invalid request body", err)
			return
		}

		rd, err := s.eng.Simulate(r.Context(), req, class)
		s.metrics.observe(endpoint, start, err)
		if err != nil {
			s.writeError(w, r, "error calculating "+class.String()+" response: "+s.describe(err), err)
			return
		}
		s.writeJSON(w, http.StatusOK, rd)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, detail string, err error) {
	s.logger.Warn("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
