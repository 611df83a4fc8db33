// Package usage is the append-only ledger of generation calls and the
// aggregation queries over it.
package usage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"model-manager/internal/domain/model"
)

// Record is one ledger entry. Error records carry zero tokens and cost
// and only feed the error count.
type Record struct {
	ID           uint
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Cost         decimal.Decimal
	LatencyMS    int64
	Error        bool
	ErrorKind    string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Filter narrows aggregation to one model and/or provider. Zero values
// mean no restriction.
type Filter struct {
	Model    string
	Provider string
}

// GroupBy selects the aggregation grouping.
type GroupBy string

const (
	GroupByNone     GroupBy = ""
	GroupByModel    GroupBy = "model"
	GroupByProvider GroupBy = "provider"
)

// Repository persists ledger records. Append never updates existing rows.
type Repository interface {
	Append(ctx context.Context, record *Record) error
	Aggregate(ctx context.Context, filter Filter, groupBy GroupBy) ([]model.UsageStats, error)
	List(ctx context.Context, filter Filter, limit int) ([]Record, error)
}
