package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
)

// sqlite DDL for the dev store only; the Postgres schema is owned by the
// review service.
const sqliteDDL = `
CREATE TABLE IF NOT EXISTS corrections (
	doc_id          TEXT NOT NULL,
	doc_type        TEXT NOT NULL,
	field_name      TEXT,
	corrected_value TEXT NOT NULL,
	prior_value     TEXT,
	ocr_text        TEXT,
	is_gold         INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS corrections_type_gold ON corrections (doc_type, is_gold);

CREATE TABLE IF NOT EXISTS thresholds (
	doc_type   TEXT PRIMARY KEY,
	threshold  REAL NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tool_usage (
	doc_id      TEXT NOT NULL,
	tool        TEXT NOT NULL,
	args        TEXT,
	result      TEXT,
	success     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// OpenSQLite opens (and bootstraps) the single-file dev store.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	logger.Info("sqlite store ready", "path", path)
	return db, nil
}

// parseSQLiteTime accepts the formats sqlite actually emits for
// CURRENT_TIMESTAMP and driver-bound time.Time values.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SQLiteCorrectionLog is the dev-box CorrectionLog.
type SQLiteCorrectionLog struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteCorrectionLog(db *sql.DB, logger *slog.Logger) *SQLiteCorrectionLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteCorrectionLog{db: db, logger: logger}
}

func (r *SQLiteCorrectionLog) ListGold(ctx context.Context, docType constants.DocumentType) ([]entity.Correction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT doc_id, COALESCE(field_name, ''), corrected_value,
		       COALESCE(prior_value, 'null'), COALESCE(ocr_text, ''), created_at
		FROM corrections
		WHERE doc_type = ? AND is_gold = 1
		ORDER BY created_at`, string(docType))
	if err != nil {
		return nil, fmt.Errorf("list gold corrections: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("corrections rows close error", "error", err)
		}
	}()

	var out []entity.Correction
	for rows.Next() {
		c := entity.Correction{DocType: docType, IsGold: true}
		var docID string
		var corrected, prior, created string
		if err := rows.Scan(&docID, &c.FieldName, &corrected, &prior, &c.OCRText, &created); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		if id, err := uuid.Parse(docID); err == nil {
			c.DocumentID = id
		}
		c.CreatedAt = parseSQLiteTime(created)
		c.CorrectedValue = []byte(corrected)
		c.PriorValue = []byte(prior)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteCorrectionLog) CountGold(ctx context.Context, docType constants.DocumentType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corrections WHERE doc_type = ? AND is_gold = 1`,
		string(docType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count gold corrections: %w", err)
	}
	return n, nil
}

// SQLiteThresholdStore is the dev-box ThresholdStore.
type SQLiteThresholdStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteThresholdStore(db *sql.DB, logger *slog.Logger) *SQLiteThresholdStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteThresholdStore{db: db, logger: logger}
}

func (r *SQLiteThresholdStore) Get(ctx context.Context, docType constants.DocumentType) (float64, error) {
	var v float64
	err := r.db.QueryRowContext(ctx,
		`SELECT threshold FROM thresholds WHERE doc_type = ?`, string(docType)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultThreshold, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get threshold: %w", err)
	}
	return v, nil
}

func (r *SQLiteThresholdStore) Set(ctx context.Context, docType constants.DocumentType, value float64) error {
	if value < MinThreshold || value > MaxThreshold {
		return fmt.Errorf("threshold %.2f out of range [%.1f, %.1f]", value, MinThreshold, MaxThreshold)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO thresholds (doc_type, threshold, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (doc_type) DO UPDATE SET threshold = excluded.threshold, updated_at = CURRENT_TIMESTAMP`,
		string(docType), value)
	if err != nil {
		return fmt.Errorf("set threshold: %w", err)
	}
	r.logger.Info("threshold.set", "doc_type", string(docType), "value", value)
	return nil
}

// SQLiteToolUsageLog is the dev-box ToolUsageLog.
type SQLiteToolUsageLog struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteToolUsageLog(db *sql.DB, logger *slog.Logger) *SQLiteToolUsageLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteToolUsageLog{db: db, logger: logger}
}

func (r *SQLiteToolUsageLog) Append(ctx context.Context, usage ToolUsage) error {
	created := usage.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tool_usage (doc_id, tool, args, result, success, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		usage.DocumentID.String(), usage.Tool, string(usage.Args), string(usage.Result),
		usage.Success, usage.Duration.Milliseconds(), created)
	if err != nil {
		r.logger.Error("tool_usage.append failed", "tool", usage.Tool, "error", err)
		return fmt.Errorf("append tool usage: %w", err)
	}
	return nil
}
