package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Columns of the legacy ledger balance export (MAMUT32.TXT).
const (
	mamutAccount    = 0
	mamutRegDate    = 2
	mamutSaldo      = 17
	mamutProject    = 19
	mamutDepartment = 20

	mamutFields = 28
)

// mamutNoDepartment is what the export writes for postings without department.
const mamutNoDepartment = "(Ingen)"

// ReadMamutExport reads a tab separated, ISO-8859-1 encoded balance export
// from the legacy ledger. Balance accounts (below 3000) are skipped.
// Department and project are names in this export and end up in
// DepartmentName and ProjectName.
func ReadMamutExport(r io.Reader) ([]Posting, error) {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.Comma = '\t'
	reader.FieldsPerRecord = mamutFields
	reader.LazyQuotes = true

	var postings []Posting
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export: %w", err)
		}
		line, _ := reader.FieldPos(0)

		account, err := strconv.Atoi(strings.TrimSpace(record[mamutAccount]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid account %q", line, record[mamutAccount])
		}
		if account < 3000 {
			continue
		}

		date, err := parseMamutDate(record[mamutRegDate])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		amount, err := parseCommaDecimal(record[mamutSaldo])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, record[mamutSaldo])
		}

		department := strings.TrimSpace(record[mamutDepartment])
		if department == mamutNoDepartment {
			department = ""
		}

		postings = append(postings, Posting{
			Date:           date,
			Amount:         amount,
			AccountNumber:  account,
			AccountName:    strings.TrimSpace(record[1]),
			DepartmentName: department,
			ProjectName:    strings.TrimSpace(record[mamutProject]),
			Description:    strings.TrimSpace(record[5]),
		})
	}

	return postings, nil
}

// parseMamutDate accepts "dd.mm.yyyy" with an optional time part.
func parseMamutDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	date, err := time.Parse("02.01.2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return date, nil
}

func parseCommaDecimal(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ByDepartmentName groups postings by department name.
func ByDepartmentName(p Posting) Classification {
	return Group(p.DepartmentName, p.DepartmentName)
}

// ByProjectName groups postings by project name.
func ByProjectName(p Posting) Classification {
	return Group(p.ProjectName, p.ProjectName)
}

// SemesterLevels is the semester → department → project → account grouping
// of the legacy ledger report.
func SemesterLevels() []Classifier {
	return []Classifier{BySemester, ByDepartmentName, ByProjectName, ByAccount}
}

// SemesterHeader is the header row of the semester report.
var SemesterHeader = []string{"Konto", "Spesifisering", "Avdeling", "Prosjekt", "Type", "År", "Semester", "Beløp"}

// WriteSemesterReport flattens a SemesterLevels aggregate into semicolon
// separated rows. Accounts are sorted within each project and amounts use
// decimal commas.
func WriteSemesterReport(w io.Writer, root *Node) error {
	type leafRow struct {
		account int
		row     []string
	}

	var rows [][]string
	var group []leafRow
	var groupKey string
	var walkErr error

	flush := func() {
		sort.SliceStable(group, func(i, j int) bool { return group[i].account < group[j].account })
		for _, l := range group {
			rows = append(rows, l.row)
		}
		group = group[:0]
	}

	root.Walk(func(path []string, metas []any, leaf *Node) {
		if walkErr != nil {
			return
		}
		if len(path) != 4 {
			walkErr = fmt.Errorf("semester report needs 4 grouping levels, got %d", len(path))
			return
		}
		sem, ok := metas[0].(SemesterMeta)
		if !ok {
			walkErr = fmt.Errorf("first grouping level must be BySemester, got meta %T", metas[0])
			return
		}
		account, err := strconv.Atoi(path[3])
		if err != nil {
			walkErr = fmt.Errorf("last grouping level must be ByAccount, got key %q", path[3])
			return
		}

		key := strings.Join(path[:3], "\x00")
		if key != groupKey {
			flush()
			groupKey = key
		}

		amount := leaf.In().Add(leaf.Out())
		group = append(group, leafRow{account: account, row: []string{
			path[3],
			"",
			path[1],
			path[2],
			reportType,
			strconv.Itoa(sem.Year),
			semesterTitle(sem.Semester),
			strings.Replace(amount.StringFixed(2), ".", ",", 1),
		}})
	})
	if walkErr != nil {
		return walkErr
	}
	flush()

	out := csv.NewWriter(w)
	out.Comma = ';'
	out.UseCRLF = true

	if err := out.Write(SemesterHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := out.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func semesterTitle(s Semester) string {
	if s.Text == "" {
		return ""
	}
	r := []rune(s.Text)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
