package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/traceback/internal/ingest"
)

// RPCHandler handles tool dispatch for JSON-RPC requests.
type RPCHandler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// SyncController starts, cancels and reports sync runs.
type SyncController interface {
	Start(ctx context.Context) (*ingest.Run, error)
	Cancel() bool
	Status(ctx context.Context) (ingest.Report, error)
	Bus() *ingest.Bus
}

// Options configures the HTTP router.
type Options struct {
	Handler RPCHandler
	Sync    SyncController
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
	// Token, when set, is required on every route except /health.
	Token  string
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler RPCHandler
	sync    SyncController
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{handler: opts.Handler, sync: opts.Sync, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if opts.Token != "" {
			r.Use(TokenAuth(opts.Token))
		}
		if opts.Handler != nil {
			r.Post("/rpc", srv.handleRPC)
		}
		if opts.Sync != nil {
			r.Route("/sync", func(r chi.Router) {
				r.Post("/", srv.handleSyncStart)
				r.Get("/status", srv.handleSyncStatus)
				r.Post("/cancel", srv.handleSyncCancel)
				r.Get("/events", srv.handleSyncEvents)
			})
		}
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, req.ID, RequestErrorCode(err), err.Error(), nil)
		return
	}

	result, err := s.handler.Handle(r.Context(), req.Method, req.Params)
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		code, data := rpcError(err)
		WriteError(w, req.ID, code, err.Error(), data)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	run, err := s.sync.Start(r.Context())
	if errors.Is(err, ingest.ErrSyncInProgress) {
		writeBody(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeBody(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeBody(w, http.StatusAccepted, map[string]any{"started": true, "phase": run.Phase()})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync.Status(r.Context())
	if err != nil {
		writeBody(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeBody(w, http.StatusOK, report)
}

func (s *Server) handleSyncCancel(w http.ResponseWriter, _ *http.Request) {
	writeBody(w, http.StatusOK, map[string]bool{"cancelled": s.sync.Cancel()})
}

// codedError is implemented by errors that carry an API error code.
type codedError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

func rpcError(err error) (int, any) {
	var coded codedError
	if !errors.As(err, &coded) {
		return ErrInternal, nil
	}
	data := map[string]any{"code": coded.CodeValue()}
	if hint := coded.RecoveryHintValue(); hint != "" {
		data["recovery_hint"] = hint
	}
	if details := coded.DetailsValue(); details != nil {
		data["details"] = details
	}
	switch coded.CodeValue() {
	case "METHOD_NOT_FOUND":
		return ErrMethodNotFound, data
	case "VALIDATION_ERROR":
		return ErrInvalidParams, data
	default:
		return ErrInternal, data
	}
}

func writeBody(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"elapsed", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
