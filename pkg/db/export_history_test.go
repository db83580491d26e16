package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *ExportHistory {
	t.Helper()

	conn, err := Open(filepath.Join(t.TempDir(), "nested", "okotools.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewExportHistory(conn)
}

func record(sheet, zNr string, voucher int, gross string) ExportRecord {
	return ExportRecord{
		SheetID:       sheet,
		JSONIndex:     voucher % 10,
		ZNr:           zNr,
		ReportDate:    "2024-03-05",
		VoucherNumber: voucher,
		GrossTotal:    decimal.RequireFromString(gross),
		Destination:   "bilag.csv",
	}
}

func TestRecordBatch(t *testing.T) {
	h := openTestDB(t)
	ctx := context.Background()

	batch, err := h.RecordBatch(ctx, []ExportRecord{
		record("a", "Z101", 80010, "125.50"),
		record("b", "Z102", 80011, "74.50"),
	}, 80012)
	require.NoError(t, err)
	assert.Len(t, batch, 36)

	exported, err := h.IsExported(ctx, "a", "Z101")
	require.NoError(t, err)
	assert.True(t, exported)

	exported, err = h.IsExported(ctx, "a", "Z102")
	require.NoError(t, err)
	assert.False(t, exported)

	records, err := h.ListExports(ctx, batch)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 80011, records[0].VoucherNumber, "newest voucher first")
	assert.Equal(t, batch, records[0].BatchID)
	assert.True(t, decimal.RequireFromString("74.50").Equal(records[0].GrossTotal))
	assert.False(t, records[0].ExportedAt.IsZero())

	next, err := h.NextVoucherNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80012, next)
}

func TestRecordBatchIsAtomic(t *testing.T) {
	h := openTestDB(t)
	ctx := context.Background()

	_, err := h.RecordBatch(ctx, []ExportRecord{record("a", "Z101", 80010, "1")}, 80011)
	require.NoError(t, err)

	_, err = h.RecordBatch(ctx, []ExportRecord{
		record("b", "Z200", 80011, "1"),
		record("a", "Z101", 80010, "1"), // duplicate
	}, 80012)
	require.Error(t, err)

	records, err := h.ListExports(ctx, "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	next, err := h.NextVoucherNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80011, next)
}

func TestDeleteBatch(t *testing.T) {
	h := openTestDB(t)
	ctx := context.Background()

	first, err := h.RecordBatch(ctx, []ExportRecord{record("a", "Z101", 80010, "1")}, 80011)
	require.NoError(t, err)
	second, err := h.RecordBatch(ctx, []ExportRecord{record("b", "Z102", 80011, "2")}, 80012)
	require.NoError(t, err)

	require.NoError(t, h.DeleteBatch(ctx, second, 80011))

	records, err := h.ListExports(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first, records[0].BatchID)

	exported, err := h.IsExported(ctx, "b", "Z102")
	require.NoError(t, err)
	assert.False(t, exported)

	next, err := h.NextVoucherNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80011, next)

	require.NoError(t, h.DeleteBatch(ctx, first, 0))
	next, err = h.NextVoucherNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, next, "cleared")
}

func TestStats(t *testing.T) {
	h := openTestDB(t)
	ctx := context.Background()

	stats, err := h.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReports)
	assert.Equal(t, 0, stats.NextVoucherNumber)
	assert.False(t, stats.LastExport.Valid)
	assert.True(t, stats.GrossTotal.IsZero())

	_, err = h.RecordBatch(ctx, []ExportRecord{record("a", "Z1", 1, "0.10"), record("a", "Z2", 2, "0.20")}, 3)
	require.NoError(t, err)
	_, err = h.RecordBatch(ctx, []ExportRecord{record("b", "Z3", 3, "100")}, 4)
	require.NoError(t, err)

	stats, err = h.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReports)
	assert.Equal(t, 2, stats.TotalBatches)
	assert.Equal(t, "100.30", stats.GrossTotal.StringFixed(2))
	assert.True(t, stats.LastExport.Valid)
	assert.Equal(t, 4, stats.NextVoucherNumber)
}

func TestMetadata(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	h := NewExportHistory(conn)
	ctx := context.Background()

	value, err := h.GetMetadata(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, h.SetMetadata(ctx, MetaNextVoucherNumber, "80100"))
	require.NoError(t, h.SetMetadata(ctx, MetaNextVoucherNumber, "80200"))

	next, err := h.NextVoucherNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80200, next)

	require.NoError(t, h.SetMetadata(ctx, MetaNextVoucherNumber, "many"))
	_, err = h.NextVoucherNumber(ctx)
	assert.Error(t, err)
}
