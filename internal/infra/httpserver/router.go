package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/logging"
	"github.com/bryanwahyu/dump-analyzer/internal/middleware"
)

// MaxListLimit caps GET /api/dumps?limit=.
const MaxListLimit = 500

var errBodyTooLarge = errors.New("request body too large")

// DumpService is the use-case surface the router needs.
type DumpService interface {
	Analyze(ctx context.Context, payload dump.Payload) (*dump.Analysis, error)
	Get(ctx context.Context, dumpID string) (*dump.Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]dump.RecentAnalysis, error)
	Ping(ctx context.Context) error
}

// Options carries the optional router collaborators. Nil Metrics or
// RateLimiter disables them.
type Options struct {
	Log          *zap.SugaredLogger
	Metrics      *middleware.Metrics
	RateLimiter  *middleware.RateLimiter
	MaxBodyBytes int64
}

type Router struct {
	svc          DumpService
	log          *zap.SugaredLogger
	maxBodyBytes int64
}

func NewRouter(svc DumpService, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	r := &Router{svc: svc, log: opts.Log, maxBodyBytes: opts.MaxBodyBytes}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(opts.Log))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if opts.RateLimiter != nil {
		mux.Use(opts.RateLimiter.Middleware)
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadinessHandler(map[string]middleware.HealthChecker{
		"store": middleware.CheckFunc(svc.Ping),
	}))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Route("/api/dumps", func(rt chi.Router) {
		rt.Post("/", r.wrap(r.handleAnalyze))
		rt.Get("/", r.wrap(r.handleList))
		rt.Get("/{dumpId}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusOf(err)
			if status >= http.StatusInternalServerError {
				r.log.Errorw("request failed",
					logging.FieldRequestID, middleware.GetRequestID(req.Context()),
					"path", req.URL.Path, logging.FieldError, err)
			}
			writeJSON(w, status, map[string]string{"detail": err.Error()})
		}
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, dump.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dump.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// POST /api/dumps
// Body: the dump payload, dump_header.id required.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	payload, err := r.decodePayload(w, req)
	if err != nil {
		return err
	}
	a, err := r.svc.Analyze(req.Context(), payload)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, a)
	return nil
}

// GET /api/dumps/{dumpId}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := dumpIDParam(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// GET /api/dumps?limit=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	limit, err := parseLimit(req.URL.Query().Get("limit"))
	if err != nil {
		return err
	}
	items, err := r.svc.ListRecent(req.Context(), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, items)
	return nil
}

func (r *Router) decodePayload(w http.ResponseWriter, req *http.Request) (dump.Payload, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, r.maxBodyBytes))
	dec.UseNumber()

	var payload dump.Payload
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.Wrapf(errBodyTooLarge, "limit is %d bytes", tooLarge.Limit)
		}
		return nil, dump.NewValidationError("malformed JSON body: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, dump.NewValidationError("malformed JSON body: unexpected data after object")
	}
	return payload, nil
}

// dumpIDParam decodes the {dumpId} segment. chi matches on RawPath when the
// request escaped a reserved character, so the param is still escaped then.
func dumpIDParam(req *http.Request) (string, error) {
	id := chi.URLParam(req, "dumpId")
	if req.URL.RawPath == "" {
		return id, nil
	}
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return "", dump.NewValidationError("malformed dump id %q", id)
	}
	return unescaped, nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dump.DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dump.NewValidationError("limit must be a positive integer, got %q", raw)
	}
	if n > MaxListLimit {
		n = MaxListLimit
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
