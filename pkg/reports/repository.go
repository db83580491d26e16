// Package reports provides repository pattern for generated report files.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cybernetisk/okotools/pkg/pathutil"
)

// Repository defines the interface for report file operations.
type Repository interface {
	// WriteReport replaces the named report with data
	WriteReport(name string, data []byte) error

	// ReadReport reads the content of a report
	ReadReport(name string) ([]byte, error)

	// ReportExists checks if a report exists
	ReportExists(name string) bool

	// ListReports lists the report files below the root
	ListReports() ([]string, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// WriteReport writes a report through a temporary file so readers never see
// a half written report.
func (r *FileSystemRepository) WriteReport(name string, data []byte) error {
	filePath, err := r.pathResolver.ReportPath(name)
	if err != nil {
		return err
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// ReadReport reads the content of a report.
func (r *FileSystemRepository) ReadReport(name string) ([]byte, error) {
	filePath, err := r.pathResolver.ReportPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return data, nil
}

// ReportExists checks if a report exists.
func (r *FileSystemRepository) ReportExists(name string) bool {
	filePath, err := r.pathResolver.ReportPath(name)
	if err != nil {
		return false
	}
	return r.pathResolver.FileExists(filePath)
}

// ListReports returns the report file names below the root, sorted.
// Hidden files and directories are skipped.
func (r *FileSystemRepository) ListReports() ([]string, error) {
	root := r.pathResolver.Root()
	if !r.pathResolver.FileExists(root) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
