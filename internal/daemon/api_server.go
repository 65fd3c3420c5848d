package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mashup/internal/config"
	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/pipeline"
	"mashup/internal/services"
)

const (
	msgServerBusy   = "Server busy, try again later."
	maxFormBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleIndex)
	mux.HandleFunc("/generate_mashup", authMiddleware(cfg.Server.APIToken, srv.handleGenerate))
	mux.HandleFunc("/api/status", authMiddleware(cfg.Server.APIToken, srv.handleStatus))

	srv.handler = securityHeaders(corsMiddleware(cfg.Server.CORSOrigins, mux))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Requests block for the whole pipeline run.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, formDescription())
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := parseForm(r); err != nil {
		s.writeError(w, http.StatusBadRequest, mashup.MsgMissingFields)
		return
	}

	req, err := mashup.ParseRequest(r.Form)
	if err != nil {
		var verr *mashup.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.daemon.tryAcquire() {
		logging.WarnWithContext(s.logger, "request rejected; all pipeline slots busy", "server_busy",
			logging.Int("max_jobs", cap(s.daemon.jobs)),
			logging.String(logging.FieldImpact, "client must retry"),
		)
		s.writeError(w, http.StatusServiceUnavailable, msgServerBusy)
		return
	}
	defer s.daemon.release()

	requestID := uuid.NewString()
	w.Header().Set(requestIDHeader, requestID)
	ctx := services.WithRequestID(s.daemon.runContext(), requestID)

	result, err := s.daemon.runner.Run(ctx, req)
	if err != nil {
		s.daemon.failed.Add(1)
		if errors.Is(err, services.ErrValidation) {
			var verr *mashup.ValidationError
			if errors.As(err, &verr) {
				s.writeError(w, http.StatusBadRequest, verr.Message)
				return
			}
		}
		logging.WithContext(ctx, s.logger).Error("mashup request failed",
			logging.String(logging.FieldEventType, "request_failed"),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, pipeline.UserMessage(err))
		return
	}
	s.daemon.completed.Add(1)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": result.Message})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, NewStatusPayload(s.daemon.Status(r.Context())))
}

// parseForm accepts urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
