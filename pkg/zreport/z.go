package zreport

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountRemapper moves legacy accounts to their current account and project.
type AccountRemapper interface {
	Remap(account string) (newAccount string, project int, ok bool)
}

// Entry is one report object as stored in the report JSON file.
type Entry struct {
	SheetID    json.RawMessage   `json:"sheetid"`
	Z          json.RawMessage   `json:"z"`
	Date       string            `json:"date"`
	BuildDate  string            `json:"builddate"`
	Type       string            `json:"type"`
	Sales      []json.RawMessage `json:"sales"`
	Debet      []json.RawMessage `json:"debet"`
	ImportHide json.RawMessage   `json:"import_hide,omitempty"`
}

// Hidden reports whether the entry has been flagged as already imported.
func (e Entry) Hidden() bool {
	return truthy(e.ImportHide)
}

// Z is one cash register settlement report.
type Z struct {
	SheetID   string
	RawZ      string
	Type      string
	DateText  string // as written, e.g. "Tirsdag 14.03.2017"
	BuildDate string // as written, "dd.mm.yyyy HH:MM"

	Sales []Transaction
	Debet []Transaction

	Date      string // YYYYMMDD
	Period    int
	BuildTime string // YYYYMMDD HHMM
	Legacy    bool

	// JSONIndex is the position of the report in the source file's list.
	JSONIndex int
	// GroupID identifies the owning ZGroup.
	GroupID  string
	Selected bool
}

// NewZ decodes a report entry. A malformed transaction code aborts the whole
// report. When every line lacks a project the report is treated as legacy and
// each line is passed through remap, if given.
func NewZ(e Entry, index int, remap AccountRemapper) (*Z, error) {
	z := &Z{
		SheetID:   scalarString(e.SheetID),
		RawZ:      scalarString(e.Z),
		Type:      e.Type,
		DateText:  e.Date,
		BuildDate: e.BuildDate,
		JSONIndex: index,
	}

	date, err := parseReportDate(e.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", z.ZNr(), err)
	}
	z.Date = date.Format("20060102")
	z.Period = int(date.Month())
	z.BuildTime = buildTime(e.BuildDate)

	if z.Sales, err = z.parseLines(e.Sales, 0); err != nil {
		return nil, err
	}
	if z.Debet, err = z.parseLines(e.Debet, len(z.Sales)); err != nil {
		return nil, err
	}

	z.Legacy = true
	for _, t := range z.Lines() {
		if t.Project != 0 {
			z.Legacy = false
			break
		}
	}

	if z.Legacy && remap != nil {
		remapAll(z.Sales, remap)
		remapAll(z.Debet, remap)
	}

	return z, nil
}

func (z *Z) parseLines(raw []json.RawMessage, offset int) ([]Transaction, error) {
	lines := make([]Transaction, 0, len(raw))
	for i, r := range raw {
		var fields []json.RawMessage
		if err := json.Unmarshal(r, &fields); err != nil || len(fields) < 3 {
			return nil, fmt.Errorf("%s line %d: expected [code, text, amount]", z.ZNr(), offset+i+1)
		}

		t, err := ParseTransaction(scalarString(fields[0]), scalarString(fields[1]), scalarString(fields[2]))
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.ZNr = z.ZNr()
				pe.Line = offset + i + 1
			}
			return nil, err
		}
		lines = append(lines, t)
	}
	return lines, nil
}

func remapAll(lines []Transaction, remap AccountRemapper) {
	for i, t := range lines {
		if account, project, ok := remap.Remap(t.Account); ok {
			lines[i] = t.remapped(account, project)
		}
	}
}

// ZNr is the human label of the report, "Z123" for numeric report numbers.
func (z *Z) ZNr() string {
	if z.RawZ != "" && strings.Trim(z.RawZ, "0123456789") == "" {
		return "Z" + z.RawZ
	}
	return z.RawZ
}

// Lines returns sales followed by debet lines.
func (z *Z) Lines() []Transaction {
	lines := make([]Transaction, 0, len(z.Sales)+len(z.Debet))
	lines = append(lines, z.Sales...)
	return append(lines, z.Debet...)
}

// Sum returns the signed sum of all lines.
func (z *Z) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range z.Lines() {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Validate reports whether credit and debit lines cancel out exactly.
func (z *Z) Validate() bool {
	return z.Sum().IsZero()
}

// Check returns a *ValidationError for an unbalanced report.
func (z *Z) Check() error {
	if sum := z.Sum(); !sum.IsZero() {
		return &ValidationError{ZNr: z.ZNr(), Sum: sum}
	}
	return nil
}

// Deviation returns the amount booked on the cash discrepancy account, or 0.
func (z *Z) Deviation(account string) decimal.Decimal {
	for _, t := range z.Lines() {
		if t.Account == account {
			return t.AmountPositive
		}
	}
	return decimal.Zero
}

// TotalSales is the sum of all sales lines before sign.
func (z *Z) TotalSales() decimal.Decimal {
	total := decimal.Zero
	for _, t := range z.Sales {
		total = total.Add(t.AmountPositive)
	}
	return total
}

// ZGroup holds all revisions of one settlement.
type ZGroup struct {
	ID    string
	Index int
	Date  string
	// Zs is ordered newest build first.
	Zs []*Z
}

func (g *ZGroup) add(z *Z) {
	z.GroupID = g.ID
	g.Zs = append(g.Zs, z)
	sort.SliceStable(g.Zs, func(i, j int) bool {
		return g.Zs[i].BuildTime > g.Zs[j].BuildTime
	})
	g.Date = z.Date
}

// IsSelected reports whether any revision in the group is selected.
func (g *ZGroup) IsSelected() bool {
	for _, z := range g.Zs {
		if z.Selected {
			return true
		}
	}
	return false
}

func (g *ZGroup) sortKey() string {
	if len(g.Zs) == 0 {
		return g.Date
	}
	return g.Date + g.Zs[0].ZNr()
}

// parseReportDate reads the trailing dd.mm.yyyy of a date such as "Tirsdag 14.03.2017".
func parseReportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return time.Time{}, fmt.Errorf("invalid report date %q", s)
	}
	d, err := time.Parse("02.01.2006", s[len(s)-10:])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report date %q: %w", s, err)
	}
	return d, nil
}

// buildTime turns "dd.mm.yyyy HH:MM" into a sortable "yyyymmdd HHMM".
func buildTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return s
	}
	date := s[6:10] + s[3:5] + s[0:2]
	if len(s) < 16 {
		return date
	}
	return date + " " + s[11:13] + s[14:16]
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`, "0.0":
		return false
	}
	return true
}
