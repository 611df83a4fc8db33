package usage

import (
	"context"

	"model-manager/internal/domain/model"
	"model-manager/internal/infrastructure/logger"
)

// Service records generation outcomes and answers aggregation queries.
// Recording is best effort: a ledger write failure is logged and counted
// but never surfaces to the generation caller.
type Service struct {
	repo    Repository
	onError func()
}

// NewService builds the ledger service. onWriteError is invoked once per
// failed append and may be nil.
func NewService(repo Repository, onWriteError func()) *Service {
	return &Service{repo: repo, onError: onWriteError}
}

// RecordSuccess appends a completed generation to the ledger.
func (s *Service) RecordSuccess(ctx context.Context, resp *model.GenerationResponse) {
	s.append(ctx, &Record{
		Model:        resp.Model,
		Provider:     resp.Provider,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		TotalTokens:  resp.TotalTokens,
		Cost:         resp.Cost,
		LatencyMS:    resp.LatencyMS,
		Metadata:     resp.Metadata,
	})
}

// RecordFailure appends an error entry so failed calls show up in the
// error count without contributing tokens or cost.
func (s *Service) RecordFailure(ctx context.Context, providerName, modelName, kind string, latencyMS int64) {
	s.append(ctx, &Record{
		Model:     modelName,
		Provider:  providerName,
		LatencyMS: latencyMS,
		Error:     true,
		ErrorKind: kind,
	})
}

func (s *Service) append(ctx context.Context, record *Record) {
	if err := s.repo.Append(ctx, record); err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).
			Str("provider", record.Provider).
			Str("model", record.Model).
			Msg("usage ledger append failed")
		if s.onError != nil {
			s.onError()
		}
	}
}

// Stats aggregates the ledger under the given filter and grouping.
func (s *Service) Stats(ctx context.Context, filter Filter, groupBy GroupBy) ([]model.UsageStats, error) {
	return s.repo.Aggregate(ctx, filter, groupBy)
}

// Recent returns the newest records first, capped at limit.
func (s *Service) Recent(ctx context.Context, filter Filter, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, filter, limit)
}
