package converter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cybernetisk/okotools/pkg/zreport"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Column positions in a GBAT10 row.
const (
	colRecordType = 0
	colNumber     = 1
	colDate       = 2
	colVoucherTyp = 3
	colPeriod     = 4
	colYear       = 5
	colAccount    = 6
	colVAT        = 7
	colNetto      = 8
	colDesc       = 20
	colDescDup    = 21
	colProject    = 23
	colCalcVAT    = 26
	colBrutto     = 27

	rowFields = 29
)

// defaultRow carries the fixed values of every column not set per line.
var defaultRow = [rowFields]string{
	colRecordType: "GBAT10",
	colVoucherTyp: "6", // cash
	9:             "0", // customer
	10:            "0", // supplier
	17:            "0", // due date
	22:            "0", // interest
	colProject:    "0",
	24:            "1", // department
	25:            "0", // payment terms
	colCalcVAT:    "T",
}

// Writer emits GBAT10 voucher rows, one voucher number per Z-report.
type Writer struct {
	out     *bufio.Writer
	mapper  *Mapper
	profile string
	year    int
	next    int
}

// NewWriter creates a Writer numbering vouchers from firstNumber.
func NewWriter(w io.Writer, mapper *Mapper, profile string, year, firstNumber int) *Writer {
	if profile == "" {
		profile = mapper.DefaultProfile()
	}
	return &Writer{
		out:     bufio.NewWriter(w),
		mapper:  mapper,
		profile: profile,
		year:    year,
		next:    firstNumber,
	}
}

// Next is the voucher number the next report will get.
func (w *Writer) Next() int {
	return w.next
}

// WriteZ writes all lines of z under the current voucher number and advances it.
func (w *Writer) WriteZ(z *zreport.Z) error {
	rows := make([][rowFields]string, 0, len(z.Sales)+len(z.Debet))
	for _, t := range z.Lines() {
		row, err := w.row(z, t)
		if err != nil {
			return fmt.Errorf("%s %s: %w", z.ZNr(), t.Code, err)
		}
		rows = append(rows, row)
	}

	for _, row := range rows {
		if _, err := w.out.WriteString(strings.Join(row[:], ";") + "\r\n"); err != nil {
			return fmt.Errorf("failed to write voucher %d: %w", w.next, err)
		}
	}

	w.next++
	return nil
}

func (w *Writer) row(z *zreport.Z, t zreport.Transaction) ([rowFields]string, error) {
	row := defaultRow

	vat, err := w.mapper.VATCode(w.profile, t.VAT)
	if err != nil {
		return row, err
	}

	desc := z.ZNr() + " " + t.Text

	row[colNumber] = strconv.Itoa(w.next - w.mapper.LedgerSeries())
	row[colDate] = z.Date
	row[colPeriod] = strconv.Itoa(z.Period)
	row[colYear] = strconv.Itoa(w.year)
	row[colAccount] = t.Account
	row[colVAT] = strconv.Itoa(vat)
	row[colNetto] = formatAmount(t.Netto())
	row[colDesc] = desc
	row[colDescDup] = desc
	row[colProject] = strconv.Itoa(t.Project)
	row[colBrutto] = formatAmount(t.Amount)

	for i, field := range row {
		if strings.ContainsAny(field, ";\r\n") {
			return row, fmt.Errorf("column %d contains a separator: %q", i, field)
		}
	}
	return row, nil
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	return w.out.Flush()
}

// WriteVouchers writes zs in order, numbering them from first.
func WriteVouchers(out io.Writer, mapper *Mapper, profile string, zs []*zreport.Z, first, year int) error {
	w := NewWriter(out, mapper, profile, year, first)
	for _, z := range zs {
		if err := w.WriteZ(z); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Encode converts UTF-8 data to the named file encoding.
func Encode(data []byte, name string) ([]byte, error) {
	var enc encoding.Encoding
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return data, nil
	case "iso-8859-1", "latin1", "latin-1":
		enc = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	out, err := enc.NewEncoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode as %s: %w", name, err)
	}
	return out, nil
}
