// Package db provides SQLite storage for the export history and metadata.
package db

import "context"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per Z-report written to a voucher file.
CREATE TABLE IF NOT EXISTS export_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL,            -- uuid shared by one export run
    sheet_id TEXT NOT NULL,
    json_index INTEGER NOT NULL,       -- position in the reports file
    z_nr TEXT NOT NULL,
    report_date TEXT NOT NULL,         -- YYYY-MM-DD
    voucher_number INTEGER NOT NULL,
    gross_total TEXT NOT NULL,         -- decimal, total sales
    destination TEXT NOT NULL,         -- voucher file path or "upload"
    exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(sheet_id, z_nr, voucher_number)
);

CREATE INDEX IF NOT EXISTS idx_export_history_batch
    ON export_history(batch_id);

CREATE INDEX IF NOT EXISTS idx_export_history_sheet
    ON export_history(sheet_id, z_nr);

-- Key/value metadata, e.g. next_voucher_number.
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(ctx context.Context, conn *Connection) error {
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return err
	}
	return nil
}
