// Package db holds the row encoding shared by the SQL analysis stores.
package db

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

// Row is the column form of an analysis record.
type Row struct {
	DumpID      string
	DumpJSON    string
	GenJSON     string
	SummaryJSON string
	CreatedAt   time.Time
}

// Encode serializes the record columns and defaults CreatedAt to now (UTC).
func Encode(a *dump.Analysis) (Row, error) {
	d, err := json.Marshal(a.Dump)
	if err != nil {
		return Row{}, errors.Wrap(err, "encode dump")
	}
	g, err := json.Marshal(a.Generation)
	if err != nil {
		return Row{}, errors.Wrap(err, "encode generation")
	}
	s, err := json.Marshal(a.Summary)
	if err != nil {
		return Row{}, errors.Wrap(err, "encode summary")
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Row{
		DumpID:      a.DumpID,
		DumpJSON:    string(d),
		GenJSON:     string(g),
		SummaryJSON: string(s),
		CreatedAt:   created.UTC(),
	}, nil
}

// Decode rebuilds a full record. Payload numbers keep their literal form.
func Decode(r Row) (*dump.Analysis, error) {
	var payload dump.Payload
	dec := json.NewDecoder(bytes.NewReader([]byte(r.DumpJSON)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode dump")
	}
	var gen ai.GenerationResult
	if err := json.Unmarshal([]byte(r.GenJSON), &gen); err != nil {
		return nil, errors.Wrap(err, "decode generation")
	}
	summary, err := DecodeSummary(r.SummaryJSON)
	if err != nil {
		return nil, err
	}
	return &dump.Analysis{
		DumpID:     r.DumpID,
		Dump:       payload,
		Summary:    summary,
		Priority:   dump.PriorityOf(summary),
		Generation: gen,
		CreatedAt:  r.CreatedAt.UTC(),
	}, nil
}

// DecodeSummary parses the summary column.
func DecodeSummary(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var summary map[string]any
	if err := json.Unmarshal([]byte(s), &summary); err != nil {
		return nil, errors.Wrap(err, "decode summary")
	}
	return summary, nil
}

// Recent builds the list view from the summary column.
func Recent(id, summaryJSON string, created time.Time) (dump.RecentAnalysis, error) {
	summary, err := DecodeSummary(summaryJSON)
	if err != nil {
		return dump.RecentAnalysis{}, err
	}
	return dump.RecentAnalysis{
		DumpID:    id,
		Summary:   summary,
		Priority:  dump.PriorityOf(summary),
		CreatedAt: created.UTC(),
	}, nil
}

// Limit applies the default list size to non-positive limits.
func Limit(limit int) int {
	if limit <= 0 {
		return dump.DefaultListLimit
	}
	return limit
}
