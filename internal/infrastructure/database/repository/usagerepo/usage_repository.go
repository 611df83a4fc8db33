package usagerepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/domain/usage"
	"model-manager/internal/infrastructure/database/dbschema"
)

// UsageGormRepository implements usage.Repository using GORM.
type UsageGormRepository struct {
	db *gorm.DB
}

var _ usage.Repository = (*UsageGormRepository)(nil)

// NewUsageGormRepository constructs a new repository.
func NewUsageGormRepository(db *gorm.DB) usage.Repository {
	return &UsageGormRepository{db: db}
}

// Append inserts one ledger row. Rows are never updated afterwards.
func (repo *UsageGormRepository) Append(ctx context.Context, record *usage.Record) error {
	entity, err := dbschema.NewSchemaUsageRecord(record)
	if err != nil {
		return provider.NewError("", provider.KindStorage, "failed to encode usage record", err)
	}
	if err := repo.db.WithContext(ctx).Create(entity).Error; err != nil {
		return provider.NewError("", provider.KindStorage, "failed to append usage record", err)
	}
	record.ID = entity.ID
	record.CreatedAt = entity.CreatedAt
	return nil
}

// aggregateRow is the scan target for the aggregation query. Successful
// calls feed the token, cost and latency columns; error rows only feed
// the error count.
type aggregateRow struct {
	Model             string
	Provider          string
	TotalRequests     int64
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCost         decimal.Decimal
	AverageLatencyMS  float64
	ErrorCount        int64
	LastUsed          *time.Time
}

// Aggregate recomputes usage statistics from the ledger under the given
// filter and grouping.
func (repo *UsageGormRepository) Aggregate(ctx context.Context, filter usage.Filter, groupBy usage.GroupBy) ([]model.UsageStats, error) {
	query := repo.db.WithContext(ctx).Model(&dbschema.UsageRecord{})
	query = applyFilter(query, filter)

	selects := `
		COUNT(*) FILTER (WHERE NOT error) AS total_requests,
		COALESCE(SUM(input_tokens) FILTER (WHERE NOT error), 0) AS total_input_tokens,
		COALESCE(SUM(output_tokens) FILTER (WHERE NOT error), 0) AS total_output_tokens,
		COALESCE(SUM(cost) FILTER (WHERE NOT error), 0) AS total_cost,
		COALESCE(AVG(latency_ms) FILTER (WHERE NOT error), 0) AS average_latency_ms,
		COUNT(*) FILTER (WHERE error) AS error_count,
		MAX(created_at) AS last_used`

	switch groupBy {
	case usage.GroupByModel:
		query = query.Select("model, provider, " + selects).Group("model, provider").Order("model")
	case usage.GroupByProvider:
		query = query.Select("provider, " + selects).Group("provider").Order("provider")
	default:
		query = query.Select(selects)
	}

	var rows []aggregateRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to aggregate usage", err)
	}

	stats := make([]model.UsageStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.UsageStats{
			Model:             row.Model,
			Provider:          row.Provider,
			TotalRequests:     row.TotalRequests,
			TotalInputTokens:  row.TotalInputTokens,
			TotalOutputTokens: row.TotalOutputTokens,
			TotalCost:         row.TotalCost,
			AverageLatencyMS:  row.AverageLatencyMS,
			ErrorCount:        row.ErrorCount,
			LastUsed:          row.LastUsed,
		})
	}
	return stats, nil
}

// List returns the newest records first.
func (repo *UsageGormRepository) List(ctx context.Context, filter usage.Filter, limit int) ([]usage.Record, error) {
	query := applyFilter(repo.db.WithContext(ctx), filter)

	var entities []dbschema.UsageRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to list usage records", err)
	}

	records := make([]usage.Record, 0, len(entities))
	for _, entity := range entities {
		record, err := entity.EtoD()
		if err != nil {
			return nil, provider.NewError("", provider.KindStorage, "failed to decode usage record", err)
		}
		records = append(records, *record)
	}
	return records, nil
}

func applyFilter(query *gorm.DB, filter usage.Filter) *gorm.DB {
	if filter.Model != "" {
		query = query.Where("model = ?", filter.Model)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	return query
}
