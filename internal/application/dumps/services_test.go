package dumps

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/dump-analyzer/internal/application"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/extract"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/db/sqlite"
)

// fakeClient replies with text and extracts structure like the real providers.
type fakeClient struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
	ctxErrs []error
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) Analyze(ctx context.Context, prompt string) (ai.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return ai.GenerationResult{}, f.err
	}
	return ai.GenerationResult{Text: f.text, Parsed: extract.Structure(f.text)}, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Put(_ context.Context, a *dump.Analysis) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, a.DumpID)
	return "http://minio/" + a.DumpID, nil
}

type recorded struct {
	provider, outcome string
}

type fakeRecorder struct{ got []recorded }

func (f *fakeRecorder) ObserveAnalysis(provider, outcome string, _ time.Duration) {
	f.got = append(f.got, recorded{provider, outcome})
}

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, client ai.Client) (*Service, *fakeRecorder) {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	repo, err := sqlite.NewAnalysisRepository(ctx, conn)
	require.NoError(t, err)

	rec := &fakeRecorder{}
	return &Service{
		Repo:    repo,
		AI:      client,
		Clock:   application.FixedClock{T: now},
		Log:     zap.NewNop().Sugar(),
		Metrics: rec,
	}, rec
}

func payload(t *testing.T, s string) dump.Payload {
	t.Helper()
	var p dump.Payload
	require.NoError(t, json.Unmarshal([]byte(s), &p))
	return p
}

func TestAnalyzeFencedReply(t *testing.T) {
	client := &fakeClient{text: "```json\n{\"root_cause\":\"x\",\"priority\":\"High\",\"confidence\":0.7}\n```"}
	svc, rec := newService(t, client)
	ctx := context.Background()

	a, err := svc.Analyze(ctx, payload(t, `{"dump_header":{"id":"DMP1"}}`))
	require.NoError(t, err)

	assert.Equal(t, "DMP1", a.DumpID)
	assert.Equal(t, "High", a.Priority)
	assert.Equal(t, map[string]any{"root_cause": "x", "priority": "High", "confidence": 0.7}, a.Summary)
	assert.Equal(t, "fake", a.Generation.Provider)
	assert.Equal(t, now, a.CreatedAt)

	stored, err := svc.Get(ctx, "DMP1")
	require.NoError(t, err)
	assert.Equal(t, a.Summary, stored.Summary)
	assert.Equal(t, "High", stored.Priority)

	got, err := json.Marshal(stored.Dump)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dump_header":{"id":"DMP1"}}`, string(got))

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], `{"dump_header":{"id":"DMP1"}}`)
	assert.Equal(t, []recorded{{"fake", OutcomeOK}}, rec.got)
}

func TestAnalyzeUnstructuredReply(t *testing.T) {
	svc, _ := newService(t, &fakeClient{text: "the program ran out of memory"})

	a, err := svc.Analyze(context.Background(), payload(t, `{"dump_header":{"id":"DMP2"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw_text": "the program ran out of memory"}, a.Summary)
	assert.Equal(t, dump.PriorityUnknown, a.Priority)
}

func TestAnalyzeReplacesPreviousRecord(t *testing.T) {
	client := &fakeClient{text: `{"priority":"High","root_cause":"first"}`}
	svc, _ := newService(t, client)
	ctx := context.Background()
	p := payload(t, `{"dump_header":{"id":"DMP1"},"dump_code":"WRITE x."}`)

	_, err := svc.Analyze(ctx, p)
	require.NoError(t, err)

	client.text = `{"priority":"Low","root_cause":"second"}`
	_, err = svc.Analyze(ctx, p)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, "DMP1")
	require.NoError(t, err)
	assert.Equal(t, "Low", stored.Priority)
	assert.Equal(t, "second", stored.Summary["root_cause"])
	assert.Contains(t, stored.Generation.Text, "second")

	items, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAnalyzeMissingIDNotPersisted(t *testing.T) {
	client := &fakeClient{text: `{}`}
	svc, rec := newService(t, client)
	ctx := context.Background()

	for _, body := range []string{
		`{}`,
		`{"dump_header":{}}`,
		`{"dump_header":{"id":"   "}}`,
		`{"dump_header":{"id":42}}`,
	} {
		_, err := svc.Analyze(ctx, payload(t, body))
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, dump.ErrValidation), body)
	}

	assert.Empty(t, client.prompts)
	items, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	require.NotEmpty(t, rec.got)
	assert.Equal(t, OutcomeValidation, rec.got[0].outcome)
}

func TestAnalyzeBackendFailure(t *testing.T) {
	client := &fakeClient{err: ai.NewBackendError("upstream returned 503")}
	core, logs := observer.New(zap.ErrorLevel)
	svc, rec := newService(t, client)
	svc.Log = zap.New(core).Sugar()
	ctx := context.Background()

	_, err := svc.Analyze(ctx, payload(t, `{"dump_header":{"id":"DMP3"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrBackend))
	assert.Contains(t, err.Error(), "upstream returned 503")

	_, err = svc.Get(ctx, "DMP3")
	assert.True(t, errors.Is(err, dump.ErrNotFound))

	entries := logs.FilterMessage("generation failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "DMP3", fields["dump_id"])
	assert.Equal(t, StageGenerate, fields["stage"])
	assert.Equal(t, "fake", fields["provider"])
	assert.Equal(t, []recorded{{"fake", OutcomeBackend}}, rec.got)
}

func TestAnalyzeIgnoresClientCancellation(t *testing.T) {
	client := &fakeClient{text: `{"priority":"Medium"}`}
	svc, _ := newService(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := svc.Analyze(ctx, payload(t, `{"dump_header":{"id":"DMP4"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Medium", a.Priority)
	assert.Equal(t, []error{nil}, client.ctxErrs)
}

func TestAnalyzeArchive(t *testing.T) {
	svc, _ := newService(t, &fakeClient{text: `{"priority":"Low"}`})
	archive := &fakeArchive{}
	svc.Archive = archive

	_, err := svc.Analyze(context.Background(), payload(t, `{"dump_header":{"id":"DMP5"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"DMP5"}, archive.keys)

	archive.err = errors.New("bucket unreachable")
	a, err := svc.Analyze(context.Background(), payload(t, `{"dump_header":{"id":"DMP6"}}`))
	require.NoError(t, err)
	assert.Equal(t, "DMP6", a.DumpID)

	stored, err := svc.Get(context.Background(), "DMP6")
	require.NoError(t, err)
	assert.Equal(t, "Low", stored.Priority)
}

func TestListRecentNewestFirst(t *testing.T) {
	svc, _ := newService(t, &fakeClient{text: `{"priority":"High"}`})
	ctx := context.Background()

	for i, id := range []string{"A", "B", "C"} {
		svc.Clock = application.FixedClock{T: now.Add(time.Duration(i) * time.Minute)}
		_, err := svc.Analyze(ctx, payload(t, `{"dump_header":{"id":"`+id+`"}}`))
		require.NoError(t, err)
	}

	items, err := svc.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].DumpID)
	assert.Equal(t, "B", items[1].DumpID)
}
