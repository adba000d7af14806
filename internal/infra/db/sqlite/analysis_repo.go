package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/db"
)

// timeLayout is fixed width so that text order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
  dump_id         TEXT PRIMARY KEY,
  dump_json       TEXT NOT NULL,
  generation_json TEXT NOT NULL,
  summary_json    TEXT NOT NULL,
  created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at);
`

type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates the analyses table when missing.
func NewAnalysisRepository(ctx context.Context, conn *sql.DB) (*AnalysisRepository, error) {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return nil, dump.WrapStorage(err, "create analyses schema")
	}
	return &AnalysisRepository{db: conn}, nil
}

// Upsert inserts or replaces the record for a.DumpID in one statement.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *dump.Analysis) error {
	const q = `
INSERT INTO analyses (dump_id, dump_json, generation_json, summary_json, created_at)
VALUES (?,?,?,?,?)
ON CONFLICT(dump_id) DO UPDATE SET
  dump_json=excluded.dump_json,
  generation_json=excluded.generation_json,
  summary_json=excluded.summary_json,
  created_at=excluded.created_at;
`
	row, err := db.Encode(a)
	if err != nil {
		return dump.WrapStorage(err, "encode analysis")
	}
	_, err = r.db.ExecContext(ctx, q, row.DumpID, row.DumpJSON, row.GenJSON, row.SummaryJSON,
		row.CreatedAt.Format(timeLayout))
	return dump.WrapStorage(err, "upsert analysis")
}

// Get returns (nil, nil) when no record exists for dumpID.
func (r *AnalysisRepository) Get(ctx context.Context, dumpID string) (*dump.Analysis, error) {
	const q = `
SELECT dump_id, dump_json, generation_json, summary_json, created_at
FROM analyses
WHERE dump_id=?;`
	var row db.Row
	var created string
	err := r.db.QueryRowContext(ctx, q, dumpID).Scan(&row.DumpID, &row.DumpJSON, &row.GenJSON, &row.SummaryJSON, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, dump.WrapStorage(err, "get analysis")
	}
	if row.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, dump.WrapStorage(err, "parse created_at")
	}
	a, err := db.Decode(row)
	if err != nil {
		return nil, dump.WrapStorage(err, "decode analysis")
	}
	return a, nil
}

// ListRecent returns up to limit summaries, newest first.
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]dump.RecentAnalysis, error) {
	const q = `
SELECT dump_id, summary_json, created_at
FROM analyses
ORDER BY created_at DESC, dump_id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, db.Limit(limit))
	if err != nil {
		return nil, dump.WrapStorage(err, "list analyses")
	}
	defer rows.Close()

	out := []dump.RecentAnalysis{}
	for rows.Next() {
		var id, summary, created string
		if err := rows.Scan(&id, &summary, &created); err != nil {
			return nil, dump.WrapStorage(err, "scan analysis")
		}
		ts, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, dump.WrapStorage(err, "parse created_at")
		}
		item, err := db.Recent(id, summary, ts)
		if err != nil {
			return nil, dump.WrapStorage(err, "decode summary")
		}
		out = append(out, item)
	}
	return out, dump.WrapStorage(rows.Err(), "list analyses")
}

func (r *AnalysisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
