package zreport

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrGroupSelected is returned when another version of the same report is already selected.
	ErrGroupSelected = errors.New("z-report already selected")

	// ErrNothingSelected is returned when exporting an empty selection.
	ErrNothingSelected = errors.New("no z-reports selected")

	// ErrNotFound is returned when a report reference does not resolve.
	ErrNotFound = errors.New("z-report not found")
)

// ParseError is returned when a transaction code matches neither known format.
type ParseError struct {
	Code string
	// ZNr and Line identify the offending line when raised while loading a report.
	ZNr  string
	Line int
}

func (e *ParseError) Error() string {
	if e.ZNr != "" {
		return fmt.Sprintf("invalid transaction code %q in %s line %d", e.Code, e.ZNr, e.Line)
	}
	return fmt.Sprintf("invalid transaction code %q", e.Code)
}

// ValidationError is returned when credit and debit lines of a report do not cancel out.
type ValidationError struct {
	ZNr string
	Sum decimal.Decimal
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s does not sum to 0 (credit+debit = %s)", e.ZNr, e.Sum.String())
}
