// Package dumps orchestrates one dump analysis: validate, build the prompt,
// call the generation backend, persist and optionally archive the result.
package dumps

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/dump-analyzer/internal/application"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/prompt"
	"github.com/bryanwahyu/dump-analyzer/internal/logging"
)

// Pipeline stages, used as the stage log field.
const (
	StageValidate = "validate"
	StagePrompt   = "prompt"
	StageGenerate = "generate"
	StagePersist  = "persist"
	StageArchive  = "archive"
)

// Analysis outcomes reported to the Recorder.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeBackend    = "backend"
	OutcomeStorage    = "storage"
)

// Recorder receives one observation per Analyze call.
type Recorder interface {
	ObserveAnalysis(provider, outcome string, generation time.Duration)
}

// Service is safe for concurrent use. Archive and Metrics are optional.
type Service struct {
	Repo    dump.Repository
	AI      ai.Client
	Archive dump.Archive
	Clock   application.Clock
	Log     *zap.SugaredLogger
	Metrics Recorder
}

// Analyze runs the full pipeline for one payload. The backend call and the
// store write ignore cancellation of ctx.
func (s *Service) Analyze(ctx context.Context, payload dump.Payload) (*dump.Analysis, error) {
	provider := s.AI.Provider()

	if err := payload.Validate(); err != nil {
		s.log().Infow("dump rejected",
			logging.FieldStage, StageValidate, logging.FieldError, err)
		s.observe(provider, OutcomeValidation, 0)
		return nil, err
	}
	id := payload.ID()
	log := s.log().With(logging.FieldDumpID, id, logging.FieldProvider, provider)

	text, err := prompt.Build(payload)
	if err != nil {
		log.Errorw("prompt build failed", logging.FieldStage, StagePrompt, logging.FieldError, err)
		s.observe(provider, OutcomeValidation, 0)
		return nil, errors.Mark(errors.Wrap(err, "build prompt"), dump.ErrValidation)
	}

	work := context.WithoutCancel(ctx)

	start := time.Now()
	gen, err := s.AI.Analyze(work, text)
	took := time.Since(start)
	if err != nil {
		log.Errorw("generation failed",
			logging.FieldStage, StageGenerate, logging.FieldError, err, "duration", took)
		s.observe(provider, OutcomeBackend, took)
		return nil, err
	}
	if gen.Provider == "" {
		gen.Provider = provider
	}
	log.Debugw("generation done",
		logging.FieldStage, StageGenerate, "duration", took, "structured", gen.Parsed != nil)

	a := dump.NewAnalysis(id, payload, gen, s.now())
	if err := s.Repo.Upsert(work, a); err != nil {
		log.Errorw("persist failed", logging.FieldStage, StagePersist, logging.FieldError, err)
		s.observe(provider, OutcomeStorage, took)
		return nil, err
	}

	if s.Archive != nil {
		if url, err := s.Archive.Put(work, a); err != nil {
			log.Warnw("archive failed", logging.FieldStage, StageArchive, logging.FieldError, err)
		} else {
			log.Debugw("archived", logging.FieldStage, StageArchive, "url", url)
		}
	}

	s.observe(provider, OutcomeOK, took)
	log.Infow("dump analyzed", "priority", a.Priority, "duration", took)
	return a, nil
}

// Get returns the stored analysis or an error matching dump.ErrNotFound.
func (s *Service) Get(ctx context.Context, dumpID string) (*dump.Analysis, error) {
	a, err := s.Repo.Get(ctx, dumpID)
	if err != nil {
		s.log().Errorw("get failed", logging.FieldDumpID, dumpID, logging.FieldError, err)
		return nil, err
	}
	if a == nil {
		return nil, dump.NewNotFoundError(dumpID)
	}
	return a, nil
}

// ListRecent ambil N analysis terakhir, newest first
func (s *Service) ListRecent(ctx context.Context, limit int) ([]dump.RecentAnalysis, error) {
	items, err := s.Repo.ListRecent(ctx, limit)
	if err != nil {
		s.log().Errorw("list failed", "limit", limit, logging.FieldError, err)
		return nil, err
	}
	return items, nil
}

// Ping reports store readiness.
func (s *Service) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) log() *zap.SugaredLogger {
	if s.Log == nil {
		return zap.NewNop().Sugar()
	}
	return s.Log
}

func (s *Service) observe(provider, outcome string, generation time.Duration) {
	if s.Metrics != nil {
		s.Metrics.ObserveAnalysis(provider, outcome, generation)
	}
}
