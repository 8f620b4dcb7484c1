// Package httpapi exposes a session over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petasbytes/research-agent/internal/dispatch"
	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/provider"
	"github.com/petasbytes/research-agent/internal/runner"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

const maxBodyBytes = 1 << 20

// Agent is the session surface the API serves.
type Agent interface {
	ID() string
	AskResult(ctx context.Context, query string) (*runner.Result, error)
	Summarize(ctx context.Context, text string) (string, error)
	ResetConversation(ctx context.Context)
	Snapshot() []transcript.Message
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGatherer serves gatherer on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// Server holds the handlers.
type Server struct {
	agent    Agent
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// NewHandler builds the router.
func NewHandler(agent Agent, opts ...Option) http.Handler {
	s := &Server{agent: agent, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Post("/summarize", s.Summarize)
		r.Post("/reset", s.Reset)
		r.Get("/transcript", s.Transcript)
	})
	return r
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse is returned by POST /v1/ask. Answer is null when the model
// produced no text.
type AskResponse struct {
	Answer  *string  `json:"answer"`
	TurnID  string   `json:"turn_id"`
	Tool    string   `json:"tool,omitempty"`
	States  []string `json:"states"`
	Session string   `json:"session"`
}

// SummarizeRequest is the body of POST /v1/summarize.
type SummarizeRequest struct {
	Text string `json:"text"`
}

// SummarizeResponse is returned by POST /v1/summarize.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var body AskRequest
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	res, err := s.agent.AskResult(r.Context(), body.Query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := AskResponse{
		Answer:  res.Answer,
		TurnID:  res.TurnID,
		States:  make([]string, 0, len(res.States)),
		Session: s.agent.ID(),
	}
	for _, st := range res.States {
		resp.States = append(resp.States, string(st))
	}
	if res.Invocation != nil {
		resp.Tool = res.Invocation.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summarize handles POST /v1/summarize.
func (s *Server) Summarize(w http.ResponseWriter, r *http.Request) {
	var body SummarizeRequest
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}

	out, err := s.agent.Summarize(r.Context(), body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummarizeResponse{Summary: out})
}

// Reset handles POST /v1/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.agent.ResetConversation(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Transcript handles GET /v1/transcript.
func (s *Server) Transcript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Snapshot())
}

// fail maps orchestration errors to status codes. Upstream failures (model,
// tools) are 502; a caller deadline is 504.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"kind", kind,
		"error", err,
	)
	writeError(w, status, kind, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusBadGateway, "unknown_tool"
	case errors.Is(err, dispatch.ErrInvalidToolArguments):
		return http.StatusBadGateway, "invalid_tool_arguments"
	case errors.Is(err, dispatch.ErrToolExecutionFailure):
		return http.StatusBadGateway, "tool_execution_failure"
	case errors.Is(err, provider.ErrCompletionFailure):
		return http.StatusBadGateway, "completion_failure"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
