package dbschema

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"model-manager/internal/domain/usage"
	"model-manager/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(UsageRecord{})
}

// UsageRecord is one append-only ledger row. Rows are never updated or
// deleted, so no soft-delete column.
type UsageRecord struct {
	ID           uint            `gorm:"primarykey"`
	Model        string          `gorm:"column:model;size:255;not null;index:idx_usage_model"`
	Provider     string          `gorm:"column:provider;size:64;not null;index:idx_usage_provider"`
	InputTokens  int             `gorm:"column:input_tokens;not null"`
	OutputTokens int             `gorm:"column:output_tokens;not null"`
	TotalTokens  int             `gorm:"column:total_tokens;not null"`
	Cost         decimal.Decimal `gorm:"column:cost;type:numeric(18,8);not null"`
	LatencyMS    int64           `gorm:"column:latency_ms;not null"`
	Error        bool            `gorm:"column:error;not null;default:false"`
	ErrorKind    string          `gorm:"column:error_kind;size:64"`
	Metadata     datatypes.JSON  `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time       `gorm:"not null;index:idx_usage_created_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

func NewSchemaUsageRecord(record *usage.Record) (*UsageRecord, error) {
	var metadata datatypes.JSON
	if len(record.Metadata) > 0 {
		data, err := json.Marshal(record.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = datatypes.JSON(data)
	}
	return &UsageRecord{
		Model:        record.Model,
		Provider:     record.Provider,
		InputTokens:  record.InputTokens,
		OutputTokens: record.OutputTokens,
		TotalTokens:  record.TotalTokens,
		Cost:         record.Cost,
		LatencyMS:    record.LatencyMS,
		Error:        record.Error,
		ErrorKind:    record.ErrorKind,
		Metadata:     metadata,
	}, nil
}

func (r *UsageRecord) EtoD() (*usage.Record, error) {
	var metadata map[string]string
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return nil, err
		}
	}
	return &usage.Record{
		ID:           r.ID,
		Model:        r.Model,
		Provider:     r.Provider,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
		TotalTokens:  r.TotalTokens,
		Cost:         r.Cost,
		LatencyMS:    r.LatencyMS,
		Error:        r.Error,
		ErrorKind:    r.ErrorKind,
		Metadata:     metadata,
		CreatedAt:    r.CreatedAt,
	}, nil
}
