package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chorus/internal/api"
	"chorus/internal/config"
	"chorus/internal/logging"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger.With(logging.FieldComponent, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/jobs", authMiddleware(srv.token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/", authMiddleware(srv.token, srv.handleJob))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once the server is listening.
func (s *apiServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

// handleJobs serves the collection endpoints: list and create.
func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		req := api.ListJobsRequest{
			Status:    r.URL.Query().Get("status"),
			ContentID: r.URL.Query().Get("contentRecordId"),
		}
		req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
		req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

		list, apiErr := s.daemon.jobs.List(r.Context(), req)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req api.CreateJobRequest
		if !decodeBody(w, r, &req) {
			return
		}
		view, apiErr := s.daemon.jobs.Create(r.Context(), req)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleJob serves the item endpoints: get, update, delete and the process
// and cancel actions.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, &api.APIError{
			Code: api.CodeValidationError, Message: "invalid job id",
			Status: http.StatusBadRequest, Timestamp: time.Now().UTC(),
		})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		view, apiErr := s.daemon.jobs.Get(r.Context(), id)
		s.respond(w, view, apiErr)
	case action == "" && r.Method == http.MethodPut:
		var req api.UpdateJobRequest
		if !decodeBody(w, r, &req) {
			return
		}
		view, apiErr := s.daemon.jobs.Update(r.Context(), id, req)
		s.respond(w, view, apiErr)
	case action == "" && r.Method == http.MethodDelete:
		if apiErr := s.daemon.jobs.Delete(r.Context(), id); apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	case action == "process" && r.Method == http.MethodPost:
		view, apiErr := s.daemon.jobs.Process(r.Context(), id)
		s.respond(w, view, apiErr)
	case action == "cancel" && r.Method == http.MethodPost:
		view, apiErr := s.daemon.jobs.Cancel(r.Context(), id)
		s.respond(w, view, apiErr)
	default:
		writeMethodNotAllowed(w)
	}
}

func (s *apiServer) respond(w http.ResponseWriter, view *api.JobView, apiErr *api.APIError) {
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeAPIError(w, &api.APIError{
			Code: api.CodeValidationError, Message: "invalid request body: " + err.Error(),
			Status: http.StatusBadRequest, Timestamp: time.Now().UTC(),
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	writeJSON(w, apiErr.Status, apiErr)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeAPIError(w, &api.APIError{
		Code: api.CodeValidationError, Message: "method not allowed",
		Status: http.StatusMethodNotAllowed, Timestamp: time.Now().UTC(),
	})
}
