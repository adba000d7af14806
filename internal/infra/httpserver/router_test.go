package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/middleware"
)

type fakeService struct {
	records   map[string]*dump.Analysis
	analyzeFn func(dump.Payload) (*dump.Analysis, error)
	lastLimit int
	pingErr   error
}

func newFakeService() *fakeService {
	return &fakeService{records: map[string]*dump.Analysis{}}
}

func (f *fakeService) Analyze(_ context.Context, p dump.Payload) (*dump.Analysis, error) {
	if f.analyzeFn != nil {
		return f.analyzeFn(p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	gen := ai.GenerationResult{Text: "t", Parsed: map[string]any{"priority": "High"}, Provider: "fake"}
	a := dump.NewAnalysis(p.ID(), p, gen, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	f.records[a.DumpID] = a
	return a, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*dump.Analysis, error) {
	a, ok := f.records[id]
	if !ok {
		return nil, dump.NewNotFoundError(id)
	}
	return a, nil
}

func (f *fakeService) ListRecent(_ context.Context, limit int) ([]dump.RecentAnalysis, error) {
	f.lastLimit = limit
	out := []dump.RecentAnalysis{}
	for _, a := range f.records {
		out = append(out, dump.RecentAnalysis{
			DumpID:    a.DumpID,
			Summary:   a.Summary,
			Priority:  a.Priority,
			CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeService) Ping(context.Context) error { return f.pingErr }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostThenGet(t *testing.T) {
	svc := newFakeService()
	h := NewRouter(svc, Options{})

	body := `{"dump_header":{"id":"DMP1","program":"ZPROG"},"dump_code":"WRITE x.","size":12345678901234567890}`
	rec := do(t, h, http.MethodPost, "/api/dumps", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "DMP1", created["dump_id"])
	assert.Equal(t, "High", created["priority"])
	assert.Contains(t, created, "ai_summary")
	assert.Contains(t, created, "raw_generation")
	assert.Contains(t, created, "created_at")

	rec = do(t, h, http.MethodGet, "/api/dumps/DMP1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		DumpID string          `json:"dump_id"`
		Dump   json.RawMessage `json:"dump"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "DMP1", got.DumpID)
	assert.JSONEq(t, body, string(got.Dump))
	assert.Contains(t, string(got.Dump), "12345678901234567890")
}

func TestGetIDWithReservedCharacters(t *testing.T) {
	for _, id := range []string{"RUNT/2026-03-01/001", "50%off", "a b?c"} {
		t.Run(id, func(t *testing.T) {
			svc := newFakeService()
			h := NewRouter(svc, Options{})

			body, err := json.Marshal(map[string]any{"dump_header": map[string]any{"id": id}})
			require.NoError(t, err)
			rec := do(t, h, http.MethodPost, "/api/dumps", string(body))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec = do(t, h, http.MethodGet, "/api/dumps/"+url.PathEscape(id), "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, id, got["dump_id"])
		})
	}
}

func TestPostRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"dump_header":{}}`},
		{"missing header", `{"dump_code":"x"}`},
		{"malformed json", `{"dump_header":`},
		{"array body", `[1,2]`},
		{"null body", `null`},
		{"trailing data", `{"dump_header":{"id":"X"}} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			h := NewRouter(svc, Options{})

			rec := do(t, h, http.MethodPost, "/api/dumps", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
			assert.Empty(t, svc.records)
		})
	}
}

func TestPostBodyTooLarge(t *testing.T) {
	h := NewRouter(newFakeService(), Options{MaxBodyBytes: 16})
	rec := do(t, h, http.MethodPost, "/api/dumps", `{"dump_header":{"id":"DMP-LONG-ID"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"backend", ai.NewBackendError("openai: 401 invalid key"), http.StatusInternalServerError},
		{"storage", dump.WrapStorage(errors.New("disk full"), "upsert analysis"), http.StatusInternalServerError},
		{"configuration", ai.NewConfigurationError("OPENAI_API_KEY not set"), http.StatusInternalServerError},
		{"validation", dump.NewValidationError("bad"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.analyzeFn = func(dump.Payload) (*dump.Analysis, error) { return nil, tt.err }
			h := NewRouter(svc, Options{})

			rec := do(t, h, http.MethodPost, "/api/dumps", `{"dump_header":{"id":"DMP1"}}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "detail")
		})
	}
}

func TestGetMissing(t *testing.T) {
	h := NewRouter(newFakeService(), Options{})
	rec := do(t, h, http.MethodGet, "/api/dumps/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLimit(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, dump.DefaultListLimit},
		{"?limit=2", http.StatusOK, 2},
		{"?limit=100000", http.StatusOK, MaxListLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=-3", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := newFakeService()
			h := NewRouter(svc, Options{})

			rec := do(t, h, http.MethodGet, "/api/dumps"+tt.query, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, svc.lastLimit)
			if tt.wantCode == http.StatusOK {
				assert.JSONEq(t, `[]`, rec.Body.String())
			}
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := newFakeService()
	h := NewRouter(svc, Options{Metrics: middleware.NewMetrics("router_test")})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.pingErr = errors.New("database is closed")
	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "router_test_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(newFakeService(), Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/dumps", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimited(t *testing.T) {
	h := NewRouter(newFakeService(), Options{RateLimiter: middleware.NewRateLimiter(0.001, 1)})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/dumps", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/dumps", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}
