// Package ledger provides the posting model and aggregation of ledger postings
// into nested income/expense groupings.
package ledger

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Posting represents one ledger line as fetched from the accounting system.
type Posting struct {
	Date             time.Time
	Amount           decimal.Decimal // signed
	AccountNumber    int
	AccountName      string
	DepartmentNumber *int
	DepartmentName   string
	ProjectNumber    *int
	ProjectName      string
	VoucherNumber    int
	VoucherYear      int
	Description      string
}

// Income accounts are everything below 4000 plus two explicit exceptions.
// This is the chart-of-accounts convention the reports are built on.
var incomeExceptions = map[int]bool{
	8050: true,
	8072: true,
}

// IsIncome reports whether the posting is booked on an income account.
func (p Posting) IsIncome() bool {
	return p.AccountNumber < 4000 || incomeExceptions[p.AccountNumber]
}

// optionalKey renders an optional number as a grouping key ("" when unset).
func optionalKey(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
