package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
  dump_id         VARCHAR(191) NOT NULL PRIMARY KEY,
  dump_json       LONGTEXT     NOT NULL,
  generation_json LONGTEXT     NOT NULL,
  summary_json    LONGTEXT     NOT NULL,
  created_at      DATETIME(6)  NOT NULL,
  KEY idx_analyses_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// EnsureSchema creates the analyses table when missing.
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return dump.WrapStorage(err, "create analyses schema")
}

// Upsert inserts or replaces the record for a.DumpID
func (r *AnalysisRepository) Upsert(ctx context.Context, a *dump.Analysis) error {
	const q = `
INSERT INTO analyses
  (dump_id, dump_json, generation_json, summary_json, created_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  dump_json=VALUES(dump_json), generation_json=VALUES(generation_json),
  summary_json=VALUES(summary_json), created_at=VALUES(created_at);
`
	row, err := db.Encode(a)
	if err != nil {
		return dump.WrapStorage(err, "encode analysis")
	}
	_, err = r.db.ExecContext(ctx, q, row.DumpID, row.DumpJSON, row.GenJSON, row.SummaryJSON, row.CreatedAt)
	return dump.WrapStorage(err, "upsert analysis")
}

// Get returns (nil, nil) when no record exists
func (r *AnalysisRepository) Get(ctx context.Context, dumpID string) (*dump.Analysis, error) {
	const q = `
SELECT dump_id, dump_json, generation_json, summary_json, created_at
FROM analyses
WHERE dump_id=?;`
	var row db.Row
	err := r.db.QueryRowContext(ctx, q, dumpID).Scan(&row.DumpID, &row.DumpJSON, &row.GenJSON, &row.SummaryJSON, &row.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, dump.WrapStorage(err, "get analysis")
	}
	a, err := db.Decode(row)
	if err != nil {
		return nil, dump.WrapStorage(err, "decode analysis")
	}
	return a, nil
}

// ListRecent returns up to limit summaries ordered by created_at desc
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]dump.RecentAnalysis, error) {
	const q = `
SELECT dump_id, summary_json, created_at
FROM analyses
ORDER BY created_at DESC, dump_id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, db.Limit(limit))
	if err != nil {
		return nil, dump.WrapStorage(err, "list analyses")
	}
	defer rows.Close()

	out := []dump.RecentAnalysis{}
	for rows.Next() {
		var id, summary string
		var created time.Time
		if err := rows.Scan(&id, &summary, &created); err != nil {
			return nil, dump.WrapStorage(err, "scan analysis")
		}
		item, err := db.Recent(id, summary, created)
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
