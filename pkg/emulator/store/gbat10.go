package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cybernetisk/okotools/pkg/emulator/models"
	"github.com/shopspring/decimal"
)

// ErrUnbalanced is returned when an imported voucher does not sum to zero.
var ErrUnbalanced = errors.New("voucher does not balance")

// outgoingVATAccount receives the VAT part of lines imported with VAT calculation.
const outgoingVATAccount = 2700

type gbatRow struct {
	number  int
	date    string
	year    int
	account int
	netto   decimal.Decimal
	brutto  decimal.Decimal
	calcVAT bool
	desc    string
	project string
	dept    string
}

// ImportGBAT10 books a GBAT10 voucher file. Rows sharing column 1 form one
// voucher numbered LedgerSeries + column 1. Either every voucher is stored or
// none is.
func (s *Store) ImportGBAT10(data string) ([]*models.Voucher, error) {
	rows, err := parseGBAT10(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no GBAT10 rows in upload")
	}

	accounts, err := s.ListAccounts()
	if err != nil {
		return nil, err
	}
	departments, err := s.ListDepartments()
	if err != nil {
		return nil, err
	}
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}

	accountNames := make(map[int]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.Number] = a.Name
	}
	departmentByNumber := make(map[string]*models.Department, len(departments))
	for _, d := range departments {
		departmentByNumber[d.DepartmentNumber] = d
	}
	projectByNumber := make(map[string]*models.Project, len(projects))
	for _, p := range projects {
		projectByNumber[p.Number] = p
	}

	var vouchers []*models.Voucher
	byNumber := make(map[int]*models.Voucher)

	for _, r := range rows {
		v, ok := byNumber[r.number]
		if !ok {
			v = &models.Voucher{
				Number:      s.ledgerSeries + r.number,
				Year:        r.year,
				Date:        r.date,
				Description: r.desc,
			}
			byNumber[r.number] = v
			vouchers = append(vouchers, v)
		}

		posting := models.Posting{
			Date:        r.date,
			Description: r.desc,
			Amount:      r.netto,
			Account:     &models.AccountRef{Number: r.account, Name: accountNames[r.account]},
		}
		if !r.calcVAT {
			posting.Amount = r.brutto
		}
		if d, ok := departmentByNumber[r.dept]; ok {
			posting.Department = &models.DepartmentRef{ID: d.ID, Name: d.Name, DepartmentNumber: d.DepartmentNumber}
		}
		if r.project != "" && r.project != "0" {
			posting.Project = &models.ProjectRef{Number: r.project}
			if p, ok := projectByNumber[r.project]; ok {
				posting.Project.ID = p.ID
				posting.Project.Name = p.Name
			}
		}
		v.Postings = append(v.Postings, posting)

		if vat := r.brutto.Sub(r.netto); r.calcVAT && !vat.IsZero() {
			vatPosting := posting
			vatPosting.Amount = vat
			vatPosting.Account = &models.AccountRef{Number: outgoingVATAccount, Name: accountNames[outgoingVATAccount]}
			vatPosting.Project = nil
			v.Postings = append(v.Postings, vatPosting)
		}
	}

	for _, v := range vouchers {
		sum := decimal.Zero
		for _, p := range v.Postings {
			sum = sum.Add(p.Amount)
		}
		if !sum.IsZero() {
			return nil, fmt.Errorf("voucher %d sums to %s: %w", v.Number, sum, ErrUnbalanced)
		}
	}

	return s.CreateVouchers(vouchers)
}

func parseGBAT10(data string) ([]gbatRow, error) {
	var rows []gbatRow

	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		f := strings.Split(line, ";")
		if len(f) < 28 || f[0] != "GBAT10" {
			return nil, fmt.Errorf("line %d: not a GBAT10 row", i+1)
		}

		r := gbatRow{
			desc:    f[20],
			project: f[23],
			dept:    f[24],
			calcVAT: f[26] == "T",
		}

		var err error
		if r.number, err = strconv.Atoi(f[1]); err != nil {
			return nil, fmt.Errorf("line %d: invalid voucher number %q", i+1, f[1])
		}
		if len(f[2]) != 8 {
			return nil, fmt.Errorf("line %d: invalid date %q", i+1, f[2])
		}
		r.date = f[2][0:4] + "-" + f[2][4:6] + "-" + f[2][6:8]
		if r.year, err = strconv.Atoi(f[5]); err != nil {
			return nil, fmt.Errorf("line %d: invalid year %q", i+1, f[5])
		}
		if r.account, err = strconv.Atoi(f[6]); err != nil {
			return nil, fmt.Errorf("line %d: invalid account %q", i+1, f[6])
		}
		if r.netto, err = decimal.NewFromString(f[8]); err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", i+1, f[8])
		}
		if r.brutto, err = decimal.NewFromString(f[27]); err != nil {
			return nil, fmt.Errorf("line %d: invalid gross amount %q", i+1, f[27])
		}

		rows = append(rows, r)
	}

	return rows, nil
}
