package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
)

// PGCorrectionLog reads the corrections table owned by the review service.
type PGCorrectionLog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGCorrectionLog(pool *pgxpool.Pool, logger *slog.Logger) *PGCorrectionLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGCorrectionLog{pool: pool, logger: logger}
}

func (r *PGCorrectionLog) ListGold(ctx context.Context, docType constants.DocumentType) ([]entity.Correction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_id, doc_type, COALESCE(field_name, ''), corrected_value,
		       COALESCE(prior_value, 'null'::jsonb), COALESCE(ocr_text, ''), created_at
		FROM corrections
		WHERE doc_type = $1 AND is_gold
		ORDER BY created_at`, string(docType))
	if err != nil {
		r.logger.Error("corrections.list_gold failed", "doc_type", string(docType), "error", err)
		return nil, fmt.Errorf("list gold corrections: %w", err)
	}
	defer rows.Close()

	var out []entity.Correction
	for rows.Next() {
		c := entity.Correction{DocType: docType, IsGold: true}
		var dt string
		if err := rows.Scan(&c.DocumentID, &dt, &c.FieldName, &c.CorrectedValue,
			&c.PriorValue, &c.OCRText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGCorrectionLog) CountGold(ctx context.Context, docType constants.DocumentType) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM corrections WHERE doc_type = $1 AND is_gold`,
		string(docType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count gold corrections: %w", err)
	}
	return n, nil
}

// PGThresholdStore resolves per-type thresholds from the thresholds table.
type PGThresholdStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGThresholdStore(pool *pgxpool.Pool, logger *slog.Logger) *PGThresholdStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGThresholdStore{pool: pool, logger: logger}
}

func (r *PGThresholdStore) Get(ctx context.Context, docType constants.DocumentType) (float64, error) {
	var v float64
	err := r.pool.QueryRow(ctx,
		`SELECT threshold FROM thresholds WHERE doc_type = $1`,
		string(docType)).Scan(&v)
	if err != nil {
		// missing row resolves to the default, not an error
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultThreshold, nil
		}
		return 0, fmt.Errorf("get threshold: %w", err)
	}
	return v, nil
}

func (r *PGThresholdStore) Set(ctx context.Context, docType constants.DocumentType, value float64) error {
	if value < MinThreshold || value > MaxThreshold {
		return fmt.Errorf("threshold %.2f out of range [%.1f, %.1f]", value, MinThreshold, MaxThreshold)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO thresholds (doc_type, threshold, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (doc_type) DO UPDATE SET threshold = $2, updated_at = now()`,
		string(docType), value)
	if err != nil {
		return fmt.Errorf("set threshold: %w", err)
	}
	r.logger.Info("threshold.set", "doc_type", string(docType), "value", value)
	return nil
}

// PGToolUsageLog appends tool-call records.
type PGToolUsageLog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGToolUsageLog(pool *pgxpool.Pool, logger *slog.Logger) *PGToolUsageLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGToolUsageLog{pool: pool, logger: logger}
}

func (r *PGToolUsageLog) Append(ctx context.Context, usage ToolUsage) error {
	created := usage.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tool_usage (doc_id, tool, args, result, success, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		usage.DocumentID, usage.Tool, usage.Args, usage.Result,
		usage.Success, usage.Duration.Milliseconds(), created)
	if err != nil {
		r.logger.Error("tool_usage.append failed", "tool", usage.Tool, "error", err)
		return fmt.Errorf("append tool usage: %w", err)
	}
	return nil
}
