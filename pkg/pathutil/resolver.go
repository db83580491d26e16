// Package pathutil provides centralized path management for report files,
// the voucher output and the export database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Report file names written below the root directory.
const (
	AggregatedReport  = "aggregated.txt"
	AggregatedXLSX    = "aggregated.xlsx"
	DepartmentsReport = "departments.txt"
	AccountsReport    = "accounts.txt"
	ProjectsReport    = "projects.txt"
	SemesterReport    = "semester.txt"
)

// PathResolver manages paths for report files, Z-report input, voucher output and database.
type PathResolver struct {
	root        string
	reportsJSON string
	voucherOut  string
	dbPath      string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// Root is the directory all generated reports are written to (e.g. ./reports)
	Root string
	// ReportsJSON is the Z-report file (default {Root}/reports.json)
	ReportsJSON string
	// VoucherOut is the GBAT10 voucher file (default {Root}/bilag.csv)
	VoucherOut string
	// DatabasePath is the SQLite export history (default {Root}/.okotools/okotools.db)
	DatabasePath string
}

// New creates a new PathResolver, filling unset paths relative to Root.
func New(config Config) *PathResolver {
	reportsJSON := config.ReportsJSON
	if reportsJSON == "" {
		reportsJSON = filepath.Join(config.Root, "reports.json")
	}

	voucherOut := config.VoucherOut
	if voucherOut == "" {
		voucherOut = filepath.Join(config.Root, "bilag.csv")
	}

	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.Root, ".okotools", "okotools.db")
	}

	return &PathResolver{
		root:        config.Root,
		reportsJSON: reportsJSON,
		voucherOut:  voucherOut,
		dbPath:      dbPath,
	}
}

// Root returns the report root directory.
func (p *PathResolver) Root() string {
	return p.root
}

// ReportsJSON returns the Z-report input file.
func (p *PathResolver) ReportsJSON() string {
	return p.reportsJSON
}

// VoucherOut returns the voucher output file.
func (p *PathResolver) VoucherOut() string {
	return p.voucherOut
}

// DatabasePath returns the database file path.
func (p *PathResolver) DatabasePath() string {
	return p.dbPath
}

// ReportPath returns the path of a named report below the root.
func (p *PathResolver) ReportPath(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return filepath.Join(p.root, name), nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
