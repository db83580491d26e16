// Package zreport decodes cash register settlement reports (Z-reports) and
// manages selecting them for voucher export.
package zreport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a transaction line.
type EntryType byte

const (
	Credit EntryType = 'K'
	Debit  EntryType = 'D'
)

// Modifier returns -1 for credit and +1 for debit.
func (t EntryType) Modifier() int {
	if t == Credit {
		return -1
	}
	return 1
}

func (t EntryType) String() string {
	return string(t)
}

// Code is a decoded transaction code. It is either a LegacyCode or a CurrentCode.
type Code interface {
	Entry() EntryType
	AccountNumber() string
	VATPercent() int
	ProjectNumber() int
	String() string
}

// LegacyCode is the old register format TYPE-ACCOUNT[-VAT], e.g. "K-3014-25".
// The VAT suffix is a percentage, "__" meaning none.
type LegacyCode struct {
	Type    EntryType
	Account string
	VAT     int
}

func (c LegacyCode) Entry() EntryType      { return c.Type }
func (c LegacyCode) AccountNumber() string { return c.Account }
func (c LegacyCode) VATPercent() int       { return c.VAT }
func (c LegacyCode) ProjectNumber() int    { return 0 }

func (c LegacyCode) String() string {
	if c.VAT == 0 {
		return fmt.Sprintf("%s-%s", c.Type, c.Account)
	}
	return fmt.Sprintf("%s-%s-%d", c.Type, c.Account, c.VAT)
}

// CurrentCode is the format [VAT-]TYPE-ACCOUNT[-PROJECT], e.g. "25-D-3000-40013".
type CurrentCode struct {
	VAT     int
	Type    EntryType
	Account string
	Project int
}

func (c CurrentCode) Entry() EntryType      { return c.Type }
func (c CurrentCode) AccountNumber() string { return c.Account }
func (c CurrentCode) VATPercent() int       { return c.VAT }
func (c CurrentCode) ProjectNumber() int    { return c.Project }

func (c CurrentCode) String() string {
	var sb strings.Builder
	if c.VAT != 0 {
		fmt.Fprintf(&sb, "%d-", c.VAT)
	}
	fmt.Fprintf(&sb, "%s-%s", c.Type, c.Account)
	if c.Project != 0 {
		fmt.Fprintf(&sb, "-%d", c.Project)
	}
	return sb.String()
}

var (
	legacyPattern  = regexp.MustCompile(`^([KD])-(\d{4})(?:-(25|15|__))?$`)
	currentPattern = regexp.MustCompile(`^(?:(\d+)-)?([KD])-(\d{4})(?:-(\d+))?$`)
)

// ParseCode decodes a transaction code. The legacy pattern is tried first.
func ParseCode(code string) (Code, error) {
	if m := legacyPattern.FindStringSubmatch(code); m != nil {
		return LegacyCode{
			Type:    EntryType(m[1][0]),
			Account: m[2],
			VAT:     getNum(m[3]),
		}, nil
	}

	if m := currentPattern.FindStringSubmatch(code); m != nil {
		return CurrentCode{
			VAT:     getNum(m[1]),
			Type:    EntryType(m[2][0]),
			Account: m[3],
			Project: getNum(m[4]),
		}, nil
	}

	return nil, &ParseError{Code: code}
}

// Transaction is one decoded line of a Z-report.
type Transaction struct {
	Code    Code
	Type    EntryType
	Account string
	Project int
	VAT     int // percent
	Text    string

	AmountPositive decimal.Decimal
	NettoPositive  decimal.Decimal
	Modifier       int
	Amount         decimal.Decimal // AmountPositive * Modifier
}

// ParseTransaction decodes a code, its text and its amount into a Transaction.
//
// The amount is read as a decimal, so "12.50" keeps its fraction and "1e3"
// is 1000; neither is truncated to an integer. Amount text that is not a
// number, such as "12,50", is read as 0. Reports are typed in by hand, so a
// garbled amount silently becomes a zero line; Validate on the owning report
// is what catches it.
func ParseTransaction(code, text, amount string) (Transaction, error) {
	c, err := ParseCode(code)
	if err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		Code:           c,
		Type:           c.Entry(),
		Account:        c.AccountNumber(),
		Project:        c.ProjectNumber(),
		VAT:            c.VATPercent(),
		Text:           text,
		AmountPositive: parseAmount(amount),
		Modifier:       c.Entry().Modifier(),
	}
	t.NettoPositive = netto(t.AmountPositive, t.VAT)
	t.Amount = t.AmountPositive.Mul(decimal.NewFromInt(int64(t.Modifier)))

	return t, nil
}

// Netto returns the signed amount excluding VAT.
func (t Transaction) Netto() decimal.Decimal {
	return t.NettoPositive.Mul(decimal.NewFromInt(int64(t.Modifier)))
}

// IsLegacy reports whether the line was written in the old register format.
func (t Transaction) IsLegacy() bool {
	_, ok := t.Code.(LegacyCode)
	return ok
}

// remapped returns a copy booked on another account and project.
func (t Transaction) remapped(account string, project int) Transaction {
	t.Account = account
	t.Project = project
	return t
}

var hundred = decimal.NewFromInt(100)

func netto(gross decimal.Decimal, vat int) decimal.Decimal {
	if vat == 0 {
		return gross.Round(2)
	}
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(vat)).Div(hundred))
	return gross.DivRound(divisor, 2)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func getNum(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
