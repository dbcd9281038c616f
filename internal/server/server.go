package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/storage"
)

// Ingestor launches ingestion runs; the orchestrator satisfies this
type Ingestor interface {
	Start(ctx context.Context, url string, maxComments int) (*models.Job, error)
}

// Server is the thin HTTP surface for submitting and polling ingestion jobs
type Server struct {
	ingestor Ingestor
	store    storage.Store
	logger   logger.Logger
	server   *http.Server
}

// NewServer creates the job-submission HTTP server
func NewServer(addr string, ingestor Ingestor, store storage.Store, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		ingestor: ingestor,
		store:    store,
		logger:   log,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the route table, exposed for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/parse/start", s.handleStart)
	mux.HandleFunc("/api/parse/jobs/", s.handleJob)
	mux.HandleFunc("/api/parse/platforms", s.handlePlatforms)
	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.InfoWithFields("http server listening", map[string]interface{}{
		"addr": s.server.Addr,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type startRequest struct {
	URL         string `json:"url"`
	MaxComments int    `json:"max_comments"`
}

type startResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := s.ingestor.Start(r.Context(), req.URL, req.MaxComments)
	if err != nil {
		s.logger.WithError(err).Warn("job submission rejected")
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, startResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/parse/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type platformInfo struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	platforms := []platformInfo{
		{Name: models.PlatformYouTube.String(), Supported: true},
		{Name: models.PlatformInstagram.String(), Supported: true},
		{Name: models.PlatformVK.String(), Supported: false},
		{Name: models.PlatformFacebook.String(), Supported: false},
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"platforms": platforms})
}

// statusForError maps the pipeline error taxonomy to HTTP status codes
func statusForError(err error) int {
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Type {
	case errs.ErrorTypeInvalidURL:
		return http.StatusBadRequest
	case errs.ErrorTypeUnsupportedPlatform:
		return http.StatusUnprocessableEntity
	case errs.ErrorTypeNotFound:
		return http.StatusNotFound
	case errs.ErrorTypeAuth:
		return http.StatusUnauthorized
	case errs.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
