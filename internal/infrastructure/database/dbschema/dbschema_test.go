package dbschema_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"model-manager/internal/domain/usage"
	"model-manager/internal/infrastructure/database/dbschema"
)

func TestUsageRecordConversion(t *testing.T) {
	record := &usage.Record{
		Model:        "gpt-4o",
		Provider:     "openai",
		InputTokens:  1000,
		OutputTokens: 1000,
		TotalTokens:  2000,
		Cost:         decimal.RequireFromString("0.04"),
		LatencyMS:    123,
		Metadata:     map[string]string{"request_id": "abc"},
	}

	row, err := dbschema.NewSchemaUsageRecord(record)
	if err != nil {
		t.Fatalf("NewSchemaUsageRecord() error = %v", err)
	}
	if len(row.Metadata) == 0 {
		t.Error("metadata should be serialized")
	}

	back, err := row.EtoD()
	if err != nil {
		t.Fatalf("EtoD() error = %v", err)
	}
	if !back.Cost.Equal(record.Cost) || back.Metadata["request_id"] != "abc" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestUsageRecord_EmptyMetadataStaysNull(t *testing.T) {
	row, err := dbschema.NewSchemaUsageRecord(&usage.Record{Model: "m", Provider: "p"})
	if err != nil {
		t.Fatalf("NewSchemaUsageRecord() error = %v", err)
	}
	if len(row.Metadata) != 0 {
		t.Errorf("metadata = %s, want empty", string(row.Metadata))
	}
}

func TestConversation_EtoD_RejectsBadPublicID(t *testing.T) {
	row := &dbschema.Conversation{PublicID: "not-a-uuid", Title: "t"}
	if _, err := row.EtoD(); err == nil {
		t.Error("expected error for malformed public id")
	}

	row.PublicID = uuid.NewString()
	if _, err := row.EtoD(); err != nil {
		t.Errorf("EtoD() error = %v", err)
	}
}
