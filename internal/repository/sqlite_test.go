package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens/docparse/constants"
)

func openTestDB(t *testing.T) (context.Context, *SQLiteCorrectionLog, *SQLiteThresholdStore, *SQLiteToolUsageLog) {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return ctx, NewSQLiteCorrectionLog(db, nil), NewSQLiteThresholdStore(db, nil), NewSQLiteToolUsageLog(db, nil)
}

func TestSQLiteCorrectionLog(t *testing.T) {
	ctx, log, _, _ := openTestDB(t)

	n, err := log.CountGold(ctx, constants.Invoice)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	db := log.db
	docID := uuid.New()
	_, err = db.ExecContext(ctx, `
		INSERT INTO corrections (doc_id, doc_type, field_name, corrected_value, prior_value, ocr_text, is_gold)
		VALUES (?, 'Invoice', 'total_amount', '100.0', '10.0', 'invoice total due 100.00', 1),
		       (?, 'Invoice', 'vendor_name', '"Acme"', NULL, 'non-gold row', 0)`,
		docID.String(), docID.String())
	require.NoError(t, err)

	n, err = log.CountGold(ctx, constants.Invoice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := log.ListGold(ctx, constants.Invoice)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, docID, rows[0].DocumentID)
	assert.Equal(t, constants.Invoice, rows[0].DocType)
	assert.Equal(t, "total_amount", rows[0].FieldName)
	assert.Equal(t, "100.0", string(rows[0].CorrectedValue))
	assert.Equal(t, "10.0", string(rows[0].PriorValue))
	assert.True(t, rows[0].IsGold)

	rows, err = log.ListGold(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteThresholdStore(t *testing.T) {
	ctx, _, store, _ := openTestDB(t)

	// missing rows resolve to the default
	v, err := store.Get(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, v)

	require.NoError(t, store.Set(ctx, constants.Receipt, 0.85))
	v, err = store.Get(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Equal(t, 0.85, v)

	// upsert
	require.NoError(t, store.Set(ctx, constants.Receipt, 0.6))
	v, err = store.Get(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Equal(t, 0.6, v)

	assert.Error(t, store.Set(ctx, constants.Receipt, 0.4))
	assert.Error(t, store.Set(ctx, constants.Receipt, 1.1))
}

func TestSQLiteToolUsageLog(t *testing.T) {
	ctx, _, _, usage := openTestDB(t)

	docID := uuid.New()
	err := usage.Append(ctx, ToolUsage{
		DocumentID: docID,
		Tool:       "retrieve_gold_example",
		Args:       []byte(`{"doc_type":"Invoice"}`),
		Result:     []byte(`{"found":false}`),
		Success:    true,
		Duration:   120 * time.Millisecond,
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, usage.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tool_usage WHERE doc_id = ? AND success = 1`, docID.String()).Scan(&n))
	assert.Equal(t, 1, n)
}
