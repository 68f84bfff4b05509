package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
	profilesvc "trustscan/internal/services/profiles"
	scanrunner "trustscan/internal/workers/scanrunner"
)

const (
	maxRequestBody     = 64 << 10
	defaultWaitTimeout = 30 * time.Second
)

// Server exposes the scan API over HTTP.
type Server struct {
	scanner   ports.Scanner
	profiles  ports.Profiles
	jobs      ports.JobRepository
	processor scanrunner.Processor
	log       logrus.FieldLogger
	accessLog AccessLogConfig
}

func New(scanner ports.Scanner, profiles ports.Profiles, jobs ports.JobRepository, processor scanrunner.Processor, log logrus.FieldLogger) *Server {
	return &Server{
		scanner:   scanner,
		profiles:  profiles,
		jobs:      jobs,
		processor: processor,
		log:       log,
		accessLog: DefaultAccessLogConfig(),
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(s.log, s.accessLog))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/scans", s.enqueueScan)
		r.Get("/scans/{id}", s.getScan)
		r.Get("/profiles/{domain}", s.getProfile)
		r.Delete("/cache/{host}", s.evict)
	})
	return r
}

type scanRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}
	res, err := s.scanner.Scan(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type scanAccepted struct {
	ScanID string `json:"scanId"`
}

// enqueueScan queues an asynchronous scan. With wait=true the job is run
// inline and its final state returned.
func (s *Server) enqueueScan(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}
	if _, err := domain.ParseTarget(req.Query); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.jobs.Enqueue(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		writeJSON(w, http.StatusAccepted, scanAccepted{ScanID: id})
		return
	}

	timeout := defaultWaitTimeout
	if secs, err := strconv.Atoi(r.URL.Query().Get("timeout")); err == nil && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	// the job's own failure is recorded on it and reported through its status
	_ = scanrunner.ProcessInline(ctx, s.jobs, s.processor, id, s.log)

	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	res, err := s.profiles.GetLatest(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) evict(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.Evict(r.Context(), chi.URLParam(r, "host")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeScanRequest(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body. Expected JSON {\"query\": \"example.com\"}"})
		return req, false
	}
	return req, true
}

// statusFor maps service errors to a status and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTarget):
		return http.StatusBadRequest, "Invalid domain format. Please enter a valid URL (e.g., google.com)"
	case errors.Is(err, domain.ErrDomainNotFound):
		return http.StatusNotFound, "Domain does not exist. It may be unregistered or offline."
	case errors.Is(err, domain.ErrResolutionFailed):
		return http.StatusBadRequest, "Domain resolution failed. Please check the URL."
	case errors.Is(err, profilesvc.ErrNotFound):
		return http.StatusNotFound, "No scan recorded for this domain."
	case errors.Is(err, ports.ErrJobNotFound):
		return http.StatusNotFound, "Scan not found."
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithField("request_id", middleware.GetReqID(r.Context())).WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
