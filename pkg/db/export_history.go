package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetaNextVoucherNumber holds the voucher number the next export starts at.
const MetaNextVoucherNumber = "next_voucher_number"

// ExportRecord is one exported Z-report.
type ExportRecord struct {
	ID            int64
	BatchID       string
	SheetID       string
	JSONIndex     int
	ZNr           string
	ReportDate    string
	VoucherNumber int
	GrossTotal    decimal.Decimal
	Destination   string
	ExportedAt    time.Time
}

// ExportHistory manages export history operations.
type ExportHistory struct {
	conn *Connection
}

// NewExportHistory creates a new ExportHistory instance.
func NewExportHistory(conn *Connection) *ExportHistory {
	return &ExportHistory{conn: conn}
}

// RecordBatch stores the records of one export run under a fresh batch id
// and moves next_voucher_number to nextVoucher, all in one transaction.
func (h *ExportHistory) RecordBatch(ctx context.Context, records []ExportRecord, nextVoucher int) (string, error) {
	batchID := uuid.NewString()

	err := h.conn.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO export_history
				(batch_id, sheet_id, json_index, z_nr, report_date, voucher_number, gross_total, destination)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				batchID,
				r.SheetID,
				r.JSONIndex,
				r.ZNr,
				r.ReportDate,
				r.VoucherNumber,
				r.GrossTotal.StringFixed(2),
				r.Destination,
			); err != nil {
				return fmt.Errorf("failed to record %s: %w", r.ZNr, err)
			}
		}

		return setMetadata(ctx, tx, MetaNextVoucherNumber, strconv.Itoa(nextVoucher))
	})
	if err != nil {
		return "", fmt.Errorf("failed to record export batch: %w", err)
	}

	return batchID, nil
}

// DeleteBatch removes the records of a batch and resets next_voucher_number
// to nextVoucher. A zero nextVoucher clears the stored number.
func (h *ExportHistory) DeleteBatch(ctx context.Context, batchID string, nextVoucher int) error {
	err := h.conn.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM export_history WHERE batch_id = ?`, batchID); err != nil {
			return err
		}
		if nextVoucher == 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM sync_metadata WHERE key = ?`, MetaNextVoucherNumber)
			return err
		}
		return setMetadata(ctx, tx, MetaNextVoucherNumber, strconv.Itoa(nextVoucher))
	})
	if err != nil {
		return fmt.Errorf("failed to delete export batch %s: %w", batchID, err)
	}
	return nil
}

// IsExported checks if a Z-report of a sheet has been exported before.
func (h *ExportHistory) IsExported(ctx context.Context, sheetID, zNr string) (bool, error) {
	var count int
	err := h.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM export_history WHERE sheet_id = ? AND z_nr = ?`,
		sheetID, zNr,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if exported: %w", err)
	}

	return count > 0, nil
}

// ListExports returns export records, newest first. An empty batchID lists all.
func (h *ExportHistory) ListExports(ctx context.Context, batchID string) ([]ExportRecord, error) {
	query := `
		SELECT id, batch_id, sheet_id, json_index, z_nr, report_date, voucher_number,
			gross_total, destination, exported_at
		FROM export_history
	`
	var args []interface{}
	if batchID != "" {
		query += ` WHERE batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY voucher_number DESC, id DESC`

	rows, err := h.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var gross string

		if err := rows.Scan(
			&r.ID,
			&r.BatchID,
			&r.SheetID,
			&r.JSONIndex,
			&r.ZNr,
			&r.ReportDate,
			&r.VoucherNumber,
			&gross,
			&r.Destination,
			&r.ExportedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export record: %w", err)
		}

		if r.GrossTotal, err = decimal.NewFromString(gross); err != nil {
			return nil, fmt.Errorf("invalid gross total %q for %s: %w", gross, r.ZNr, err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats represents export statistics.
type Stats struct {
	TotalReports      int
	TotalBatches      int
	GrossTotal        decimal.Decimal
	LastExport        sql.NullString
	NextVoucherNumber int // 0 when never recorded
}

// GetStats retrieves export statistics.
func (h *ExportHistory) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT batch_id) FROM export_history`,
	).Scan(&stats.TotalReports, &stats.TotalBatches)
	if err != nil {
		return nil, fmt.Errorf("failed to get export counts: %w", err)
	}

	err = h.conn.QueryRow(ctx, `SELECT MAX(exported_at) FROM export_history`).Scan(&stats.LastExport)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last export time: %w", err)
	}

	// Summed in Go: SQLite would add the decimal text as floats.
	records, err := h.ListExports(ctx, "")
	if err != nil {
		return nil, err
	}
	stats.GrossTotal = decimal.Zero
	for _, r := range records {
		stats.GrossTotal = stats.GrossTotal.Add(r.GrossTotal)
	}

	if stats.NextVoucherNumber, err = h.NextVoucherNumber(ctx); err != nil {
		return nil, err
	}

	return &stats, nil
}

// NextVoucherNumber returns the stored next voucher number, or 0 if unset.
func (h *ExportHistory) NextVoucherNumber(ctx context.Context) (int, error) {
	value, err := h.GetMetadata(ctx, MetaNextVoucherNumber)
	if err != nil || value == "" {
		return 0, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", MetaNextVoucherNumber, value, err)
	}
	return n, nil
}

// GetMetadata retrieves a metadata value.
func (h *ExportHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := h.conn.QueryRow(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *ExportHistory) SetMetadata(ctx context.Context, key, value string) error {
	return h.conn.Transaction(ctx, func(tx *sql.Tx) error {
		return setMetadata(ctx, tx, key, value)
	})
}

func setMetadata(ctx context.Context, tx *sql.Tx, key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}
