package dump

import "context"

// DefaultListLimit applies when a caller passes a non-positive limit.
const DefaultListLimit = 50

// Repository port for persisting and querying analyses.
// Upsert replaces any record with the same dump id; Get returns (nil, nil)
// when nothing is stored for the id.
type Repository interface {
	Upsert(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, dumpID string) (*Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]RecentAnalysis, error)
	Ping(ctx context.Context) error
}

// Archive keeps an immutable copy of every written record.
type Archive interface {
	Put(ctx context.Context, a *Analysis) (string, error)
}
