package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/sanitize"
	"github.com/aretw0/tendril/pkg/composer"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/render"
	"github.com/aretw0/tendril/pkg/thread"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
	"lukechampine.com/blake3"
)

// Engine is the part of *tendril.Engine the HTTP surface needs.
type Engine interface {
	Reply(ctx context.Context, subjectID, parentID, authorLabel, body string, opts ...thread.ReplyOption) (domain.CommentNode, error)
	Entries(ctx context.Context, subjectID string, view render.ComposerView) ([]render.Entry, error)
	Like(ctx context.Context, subjectID, nodeID string) error
	Mermaid(ctx context.Context, subjectID string, view render.ComposerView) (string, error)
	Subjects(ctx context.Context) ([]string, error)
}

// Server serves threads as JSON.
type Server struct {
	Engine        Engine
	MaxInputSize  int
	DefaultAuthor string
	Logger        *slog.Logger
	Metrics       http.Handler

	// ReplyLimiter throttles POST .../replies across all clients. Nil means unlimited.
	ReplyLimiter *rate.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithMaxInputSize bounds reply bodies and author labels in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.MaxInputSize = n
	}
}

// WithDefaultAuthor labels replies that arrive without an author.
func WithDefaultAuthor(label string) Option {
	return func(s *Server) {
		if label != "" {
			s.DefaultAuthor = label
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithReplyRate allows perSecond replies with the given burst. A non-positive rate disables throttling.
func WithReplyRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.ReplyLimiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.ReplyLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// ReplyRequest is the body of POST /threads/{subject}/replies.
type ReplyRequest struct {
	ParentID string `json:"parent_id"`
	Author   string `json:"author"`
	Avatar   string `json:"avatar,omitempty"`
	Body     string `json:"body"`
}

// ThreadResponse is the body of GET /threads/{subject}.
type ThreadResponse struct {
	Subject string         `json:"subject"`
	Entries []render.Entry `json:"entries"`
}

// ErrorResponse carries the message of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:        engine,
		MaxInputSize:  sanitize.DefaultMaxInputSize,
		DefaultAuthor: composer.DefaultAuthor,
		Logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/threads", func(r chi.Router) {
		r.Get("/", s.ListThreads)
		r.Route("/{subject}", func(r chi.Router) {
			r.Get("/", s.GetThread)
			r.Get("/mermaid", s.GetMermaid)
			r.Post("/replies", s.PostReply)
			r.Post("/nodes/{id}/like", s.PostLike)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		w.Header().Set("Access-Control-Expose-Headers", "ETag")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tendril-http",
		"version": tendril.Version,
	})
}

// ListThreads handles GET /threads.
func (s *Server) ListThreads(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.Engine.Subjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if subjects == nil {
		subjects = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"subjects": subjects})
}

// GetThread handles GET /threads/{subject}.
func (s *Server) GetThread(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	entries, err := s.Engine.Entries(r.Context(), subject, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []render.Entry{}
	}

	body, err := json.Marshal(ThreadResponse{Subject: subject, Entries: entries})
	if err != nil {
		s.writeError(w, err)
		return
	}
	etag := threadETag(body)
	w.Header().Set("ETag", etag)
	if noneMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// noneMatch reports whether an If-None-Match header value matches etag.
// The header may be "*" or a comma-separated list. Comparison is weak, so a
// W/ prefix on either side is ignored.
func noneMatch(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}

// threadETag is a strong validator over the rendered response.
func threadETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// GetMermaid handles GET /threads/{subject}/mermaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.Mermaid(r.Context(), chi.URLParam(r, "subject"), nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// PostReply handles POST /threads/{subject}/replies.
func (s *Server) PostReply(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	if s.ReplyLimiter != nil && !s.ReplyLimiter.Allow() {
		w.Header().Set("Retry-After", "1")
		s.writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many replies, retry later"})
		return
	}

	// Room for the body, the author and JSON escaping.
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.MaxInputSize)*4+1024)
	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: sanitize.ErrInputTooLarge.Error()})
			return
		}
		s.Logger.Warn("invalid reply body", "subject", subject, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	body, err := sanitize.Input(req.Body, s.MaxInputSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	author, err := sanitize.Label(req.Author, s.MaxInputSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if author == "" {
		author = s.DefaultAuthor
	}
	parent := req.ParentID
	if parent == "" {
		parent = domain.RootID
	}

	var opts []thread.ReplyOption
	if req.Avatar != "" {
		opts = append(opts, thread.WithAvatar(req.Avatar))
	}

	node, err := s.Engine.Reply(r.Context(), subject, parent, author, body, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

// PostLike handles POST /threads/{subject}/nodes/{id}/like.
func (s *Server) PostLike(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Like(r.Context(), chi.URLParam(r, "subject"), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrParentNotFound), errors.Is(err, domain.ErrNodeNotFound), errors.Is(err, domain.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyBody):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sanitize.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sanitize.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
