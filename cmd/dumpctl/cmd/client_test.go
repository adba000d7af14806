package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dumps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			var p dump.Payload
			if err := json.Unmarshal(body, &p); err != nil || p.Validate() != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"dump_header.id is required"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"dump_id": p.ID(), "dump": p, "priority": "High",
				"ai_summary": map[string]any{"priority": "High", "root_cause": "x"},
				"created_at": created,
			})
		case http.MethodGet:
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"dump_id":"B","priority":"Low","ai_summary":{"priority":"Low"},"created_at":"2026-03-01T10:00:00Z"}]`))
		}
	})
	mux.HandleFunc("/api/dumps/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"no analysis for dump \"nope\""}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSubmit(t *testing.T) {
	c := newClient(gateway(t).URL + "/")

	a, err := c.Submit(context.Background(), []byte(`{"dump_header":{"id":"DMP1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "DMP1", a.DumpID)
	assert.Equal(t, "High", a.Priority)
	assert.Equal(t, "x", a.Summary["root_cause"])
}

func TestClientSubmitRejected(t *testing.T) {
	c := newClient(gateway(t).URL)

	_, err := c.Submit(context.Background(), []byte(`{"dump_header":{}}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Equal(t, "dump_header.id is required", apiErr.Detail)
}

func TestClientGetNotFound(t *testing.T) {
	c := newClient(gateway(t).URL)

	_, err := c.Get(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
}

func TestClientList(t *testing.T) {
	c := newClient(gateway(t).URL)

	items, err := c.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].DumpID)
	assert.Equal(t, "Low", items[0].Priority)
}

func TestClientHealth(t *testing.T) {
	c := newClient(gateway(t).URL)

	status, err := c.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "ok", status["status"])
}

func TestPrinterList(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{format: "table", writer: &buf}
	items := []dump.RecentAnalysis{{
		DumpID:    "DMP1",
		Priority:  "High",
		Summary:   map[string]any{"root_cause": "division by zero in ZPROG"},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}

	require.NoError(t, p.PrintList(items))
	out := buf.String()
	assert.Contains(t, out, "DUMP ID")
	assert.Contains(t, out, "DMP1")
	assert.Contains(t, out, "division by zero in ZPROG")

	buf.Reset()
	p.format = "yaml"
	require.NoError(t, p.PrintList(items))
	assert.Contains(t, buf.String(), "dump_id: DMP1")
}
