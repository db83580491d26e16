package ledger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func reportFixture() *Node {
	a := posting("2024-01-05", 3000, "-100")
	a.DepartmentNumber = intPtr(1)
	a.ProjectNumber = intPtr(40013)

	b := posting("2024-01-06", 6500, "40.5")
	b.DepartmentNumber = intPtr(1)

	return Aggregate([]Posting{a, b}, StandardLevels()...)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	version := time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteReport(&buf, reportFixture(), version))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Type;Versjon;År;Måned;Avdelingsnummer;Prosjektnummer;Kontonummer;BeløpInn;BeløpUt", lines[0])
	assert.Equal(t, "Regnskap;20240203;2024;1;1;40013;3000;-100;0", lines[1])
	assert.Equal(t, "Regnskap;20240203;2024;1;1;;6500;0;40.5", lines[2])
}

func TestWriteReportRequiresFourLevels(t *testing.T) {
	root := Aggregate([]Posting{posting("2024-01-05", 3000, "1")}, ByMonth, ByAccount)

	var buf bytes.Buffer
	err := WriteReport(&buf, root, time.Now())
	assert.Error(t, err)
}

func TestWriteReportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportXLSX(&buf, reportFixture(), time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Regnskap")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ReportHeader, rows[0])
	assert.Equal(t, "3000", rows[1][6])
	assert.Equal(t, "40.5", rows[2][8])
}
