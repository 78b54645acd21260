package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/phishscan/docs/swagger" // registers the OpenAPI doc
	"github.com/raysh454/phishscan/internal/app"
	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
)

// Config wires the server to its runtime.
type Config struct {
	// ListenAddr overrides AppConfig.Server.ListenAddr when set.
	ListenAddr string

	AppConfig *app.Config
	Logger    logging.Logger

	// Orchestrator is used as is when non-nil; otherwise one is built from
	// AppConfig and owned by the server.
	Orchestrator *app.Orchestrator
}

// Server is the HTTP + WebSocket API surface for phishscan.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	ownsOrch     bool
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a new Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.Server.ListenAddr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	orch := cfg.Orchestrator
	owns := false
	if orch == nil {
		orch = app.NewOrchestrator(cfg.AppConfig, logger)
		owns = true
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		ownsOrch:     owns,
		router:       r,
		logger:       logger.With(logging.Field{Key: "component", Value: "server"}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/scan", s.optionsHandler("POST"))
	r.Options("/jobs/scan", s.optionsHandler("POST"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/ws/scan", s.optionsHandler("GET"))

	r.Get("/healthz", s.handleHealth)

	// Synchronous scan
	r.Post("/scan", s.handleScan)

	// Jobs over REST
	r.Post("/jobs/scan", s.handleStartScanJob)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSocket for job progress
	r.Get("/ws/scan", s.handleScanWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) originAllowed(r *http.Request) bool {
	allowed := s.cfg.AppConfig.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(allowed, origin)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.AppConfig.Server.AllowedOrigins) == 0 {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if r.ContentLength > 0 {
		fields = append(fields, logging.Field{Key: "body_bytes", Value: r.ContentLength})
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the orchestrator if the server created it.
func (s *Server) Close() {
	if s.ownsOrch && s.orchestrator != nil {
		_ = s.orchestrator.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodePayload reads a size-capped request body into a payload. It writes the
// error response itself and reports whether decoding succeeded.
func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (*model.Payload, bool) {
	limit := s.cfg.AppConfig.Server.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}

	var p model.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		s.logger.Warn("decoding scan payload", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return &p, true
}

// --- HTTP handlers ---

// handleHealth reports liveness and the configured evaluators.
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Evaluators: s.orchestrator.Evaluators(),
	})
}

// handleScan scores an email synchronously.
//
//	@Summary	Scan an email
//	@Tags		scan
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		model.Payload	true	"Normalized email"
//	@Success	200		{object}	model.ScanResult
//	@Failure	400		{object}	ErrorResponse
//	@Failure	413		{object}	ErrorResponse
//	@Router		/scan [post]
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	result := s.orchestrator.Scan(r.Context(), p)
	s.logger.Info("scanned payload",
		logging.Field{Key: "score", Value: result.Score},
		logging.Field{Key: "verdict", Value: string(result.Verdict)})
	writeJSON(w, http.StatusOK, result)
}

// Jobs (REST)

// handleStartScanJob queues a background scan.
//
//	@Summary	Start a scan job
//	@Tags		jobs
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		model.Payload	true	"Normalized email"
//	@Success	202		{object}	app.Job
//	@Failure	400		{object}	ErrorResponse
//	@Router		/jobs/scan [post]
func (s *Server) handleStartScanJob(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	job, err := s.orchestrator.StartScanJob(context.Background(), p)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Info("started scan job", logging.Field{Key: "job_id", Value: job.ID})
	writeJSON(w, http.StatusAccepted, job)
}

// handleGetJob returns one job.
//
//	@Summary	Get a job
//	@Tags		jobs
//	@Produce	json
//	@Param		jobID	path		string	true	"Job ID"
//	@Success	200		{object}	app.Job
//	@Failure	404		{object}	ErrorResponse
//	@Router		/jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob cancels a running job.
//
//	@Summary	Cancel a job
//	@Tags		jobs
//	@Param		jobID	path	string	true	"Job ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.orchestrator.CancelJob(jobID); err != nil {
		if errors.Is(err, app.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	w.WriteHeader(http.StatusNoContent)
}

// handleListJobs lists known jobs.
//
//	@Summary	List jobs
//	@Tags		jobs
//	@Produce	json
//	@Success	200	{array}	app.Job
//	@Router		/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	s.logger.Debug("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

// handleScanWS reads one payload from the client, starts a job and streams
// its events until the job ends.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	limit := s.cfg.AppConfig.Server.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	conn.SetReadLimit(limit)

	var p model.Payload
	if err := conn.ReadJSON(&p); err != nil {
		s.logger.Warn("reading websocket payload", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(ErrorResponse{Error: "invalid payload"})
		return
	}

	job, err := s.orchestrator.StartScanJob(r.Context(), &p)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started scan job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			_ = s.orchestrator.CancelJob(job.ID)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
}
