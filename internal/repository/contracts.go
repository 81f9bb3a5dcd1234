// Package repository provides read access to the externally owned
// correction log and threshold store, plus the tool-usage sink. Postgres
// (pgx) is the production backend; a single-file sqlite variant serves dev
// boxes and the cmd harness.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
)

// Threshold bounds; the store clamps nothing, it rejects.
const (
	MinThreshold     = 0.5
	MaxThreshold     = 1.0
	DefaultThreshold = 0.7
)

// CorrectionLog reads gold corrections. Independent reads, no caching.
type CorrectionLog interface {
	// ListGold returns all gold rows for a document type, oldest first.
	ListGold(ctx context.Context, docType constants.DocumentType) ([]entity.Correction, error)
	// CountGold reports whether learning has anything to retrieve.
	CountGold(ctx context.Context, docType constants.DocumentType) (int, error)
}

// ThresholdStore resolves per-type approval thresholds in [0.5, 1.0].
// Missing rows resolve to DefaultThreshold.
type ThresholdStore interface {
	Get(ctx context.Context, docType constants.DocumentType) (float64, error)
	Set(ctx context.Context, docType constants.DocumentType, value float64) error
}

// ToolUsage is one appended tool-call record.
type ToolUsage struct {
	DocumentID uuid.UUID
	Tool       string
	Args       json.RawMessage
	Result     json.RawMessage
	Success    bool
	Duration   time.Duration
	CreatedAt  time.Time
}

// ToolUsageLog is the per-document usage sink. Appends are best-effort
// from the caller's perspective but errors are still reported.
type ToolUsageLog interface {
	Append(ctx context.Context, usage ToolUsage) error
}
