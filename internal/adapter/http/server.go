package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwygoda/fetchd/internal/domain"
)

// Server is the HTTP adapter for the submission interface.
type Server struct {
	svc    *domain.Service
	mux    *http.ServeMux
	server *http.Server
	secret string
}

// NewServer creates a new HTTP server.
func NewServer(svc *domain.Service, addr string, secret string) *Server {
	s := &Server{
		svc:    svc,
		mux:    http.NewServeMux(),
		secret: secret,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /downloads", s.verified(s.handleSubmit))
	s.mux.HandleFunc("GET /downloads", s.handleListActive)
	s.mux.HandleFunc("POST /actions/pause", s.verified(s.handlePause))
	s.mux.HandleFunc("POST /actions/resume", s.verified(s.handleResume))
	s.mux.HandleFunc("POST /actions/cancel", s.verified(s.handleCancel))
	s.mux.HandleFunc("POST /actions/retry", s.verified(s.handleRetry))
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// submitRequest is the request body for POST /downloads.
type submitRequest struct {
	Kind         string `json:"kind"`
	Payload      string `json:"payload"`
	Owner        int64  `json:"owner"`
	Conversation int64  `json:"conversation"`
}

// jobResponse is the JSON representation of a tracked job.
type jobResponse struct {
	GID          string `json:"gid"`
	Owner        int64  `json:"owner"`
	Name         string `json:"name"`
	Conversation int64  `json:"conversation"`
	State        string `json:"state"`
	StartedAt    string `json:"started_at"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// verified wraps a mutating handler with request signature checking
// when an API secret is configured.
func (s *Server) verified(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if s.secret != "" {
			if err := s.verifySignature(r, body); err != nil {
				log.Printf("request verification failed: %v", err)
				s.writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Payload == "" {
		s.writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	job, err := s.svc.Submit(r.Context(), domain.Kind(req.Kind), req.Payload, req.Owner, req.Conversation)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLimitExceeded):
			s.writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, domain.ErrInvalidPayload):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrShuttingDown):
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("submit error: %v", err)
			s.writeError(w, http.StatusBadGateway, "failed to start download")
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, jobToResponse(job))
}

const maxTimestampSkew = 5 * time.Minute

func (s *Server) verifySignature(r *http.Request, body []byte) error {
	// Check X-Timestamp header
	timestamp := r.Header.Get("X-Timestamp")
	if timestamp == "" {
		return fmt.Errorf("missing X-Timestamp header")
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return fmt.Errorf("invalid X-Timestamp: must be ISO8601/RFC3339 format")
	}

	skew := time.Since(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		return fmt.Errorf("X-Timestamp too far from current time (skew: %v, max: %v)", skew.Truncate(time.Second), maxTimestampSkew)
	}

	// Check X-Signature header
	signature := r.Header.Get("X-Signature")
	if signature == "" {
		return fmt.Errorf("missing X-Signature header")
	}

	// Calculate expected signature: SHA256("${timestamp}\n${body}\n${secret}")
	payload := fmt.Sprintf("%s\n%s\n%s", timestamp, string(body), s.secret)
	hash := sha256.Sum256([]byte(payload))
	expected := hex.EncodeToString(hash[:])

	if signature != expected {
		return fmt.Errorf("invalid signature")
	}

	return nil
}

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	ownerStr := r.URL.Query().Get("owner")
	if ownerStr == "" {
		s.writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	owner, err := strconv.ParseInt(ownerStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid owner")
		return
	}

	jobs := s.svc.Active(owner)
	resp := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, jobToResponse(&jobs[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.PauseAll(r.Context()); err != nil {
		log.Printf("pause error: %v", err)
		s.writeError(w, http.StatusBadGateway, "pause failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResumeAll(r.Context()); err != nil {
		log.Printf("resume error: %v", err)
		s.writeError(w, http.StatusBadGateway, "resume failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CancelAll(r.Context()); err != nil {
		log.Printf("cancel error: %v", err)
		s.writeError(w, http.StatusBadGateway, "cancel failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	retried, failed, err := s.svc.RetryFailed(r.Context())
	if err != nil {
		log.Printf("retry error: %v", err)
		s.writeError(w, http.StatusBadGateway, "retry failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"retried": retried, "failed": failed})
}

// handleStatus reports the daemon's own view of active downloads.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	active, err := s.svc.ActiveAll(r.Context())
	if err != nil {
		log.Printf("status error: %v", err)
		s.writeError(w, http.StatusBadGateway, "status unavailable")
		return
	}
	type downloadResponse struct {
		GID       string `json:"gid"`
		Name      string `json:"name,omitempty"`
		Status    string `json:"status"`
		Completed int64  `json:"completed_bytes"`
		Total     int64  `json:"total_bytes"`
		Speed     int64  `json:"speed"`
	}
	resp := make([]downloadResponse, 0, len(active))
	for _, dl := range active {
		resp = append(resp, downloadResponse{
			GID:       dl.GID,
			Name:      dl.Name,
			Status:    dl.Status,
			Completed: dl.CompletedBytes,
			Total:     dl.TotalBytes,
			Speed:     dl.Speed,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GlobalStats(r.Context())
	if err != nil {
		log.Printf("stats error: %v", err)
		s.writeError(w, http.StatusBadGateway, "stats unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active":         stats.Global.NumActive,
		"waiting":        stats.Global.NumWaiting,
		"stopped":        stats.Global.NumStopped,
		"download_speed": stats.Global.DownloadSpeed,
		"upload_speed":   stats.Global.UploadSpeed,
		"tracked":        stats.Tracked,
		"failed":         stats.Failed,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		log.Printf("history error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	type historyResponse struct {
		GID        string `json:"gid"`
		Owner      int64  `json:"owner"`
		Name       string `json:"name"`
		State      string `json:"state"`
		Error      string `json:"error,omitempty"`
		TotalBytes int64  `json:"total_bytes"`
		FinishedAt string `json:"finished_at"`
	}
	resp := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, historyResponse{
			GID:        e.GID,
			Owner:      e.Owner,
			Name:       e.Name,
			State:      string(e.State),
			Error:      e.Error,
			TotalBytes: e.TotalBytes,
			FinishedAt: e.FinishedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func jobToResponse(job *domain.Job) jobResponse {
	return jobResponse{
		GID:          job.GID,
		Owner:        job.Owner,
		Name:         job.Name,
		Conversation: job.Conversation,
		State:        string(job.State),
		StartedAt:    job.StartedAt.UTC().Format(time.RFC3339),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Port extracts the port from the address.
func (s *Server) Port() int {
	addr := s.server.Addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		port, _ := strconv.Atoi(addr[idx+1:])
		return port
	}
	return 0
}
