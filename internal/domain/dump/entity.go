package dump

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
)

// Wire keys of a dump payload.
const (
	KeyHeader    = "dump_header"
	KeyCode      = "dump_code"
	KeyCallStack = "callstack"
	KeyID        = "id"
)

// PriorityUnknown is reported when the summary carries no priority.
const PriorityUnknown = "Unknown"

// maxRawSummary caps the degraded summary taken from unstructured text.
const maxRawSummary = 200

// Payload is a dump as submitted by the client. Only dump_header.id is
// required, every other field is kept verbatim.
type Payload map[string]any

// ID returns dump_header.id, or "" when it is missing or not a string.
func (p Payload) ID() string {
	header, ok := p[KeyHeader].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := header[KeyID].(string)
	return strings.TrimSpace(id)
}

// Validate checks the only hard requirement on a payload.
func (p Payload) Validate() error {
	if p == nil {
		return NewValidationError("payload must be a JSON object")
	}
	if _, ok := p[KeyHeader].(map[string]any); !ok {
		return NewValidationError("%s is required", KeyHeader)
	}
	if p.ID() == "" {
		return NewValidationError("%s.%s is required", KeyHeader, KeyID)
	}
	return nil
}

// Code returns the dump_code field rendered as text: strings verbatim,
// other values as JSON, "" when absent.
func (p Payload) Code() string {
	v, ok := p[KeyCode]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Analysis is the persisted record for one dump id.
type Analysis struct {
	DumpID     string              `json:"dump_id"`
	Dump       Payload             `json:"dump"`
	Summary    map[string]any      `json:"ai_summary"`
	Priority   string              `json:"priority"`
	Generation ai.GenerationResult `json:"raw_generation"`
	CreatedAt  time.Time           `json:"created_at"`
}

// RecentAnalysis is the lightweight list view of an Analysis.
type RecentAnalysis struct {
	DumpID    string         `json:"dump_id"`
	Summary   map[string]any `json:"ai_summary"`
	Priority  string         `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewAnalysis builds the record to persist, deriving summary and priority
// from the generation result.
func NewAnalysis(id string, payload Payload, gen ai.GenerationResult, now time.Time) *Analysis {
	summary := Summarize(gen)
	return &Analysis{
		DumpID:     id,
		Dump:       payload,
		Summary:    summary,
		Priority:   PriorityOf(summary),
		Generation: gen,
		CreatedAt:  now.UTC(),
	}
}

// Summarize returns the parsed structure when present, otherwise a degraded
// summary holding the first 200 characters of the raw text.
func Summarize(gen ai.GenerationResult) map[string]any {
	if gen.Parsed != nil {
		return gen.Parsed
	}
	return map[string]any{"raw_text": truncate(gen.Text, maxRawSummary)}
}

// PriorityOf lifts the priority field out of a summary.
func PriorityOf(summary map[string]any) string {
	if p, ok := summary["priority"].(string); ok && strings.TrimSpace(p) != "" {
		return p
	}
	return PriorityUnknown
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
