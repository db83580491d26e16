package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReportHeader is the header row of the aggregated accounting report.
var ReportHeader = []string{
	"Type",
	"Versjon",
	"År",
	"Måned",
	"Avdelingsnummer",
	"Prosjektnummer",
	"Kontonummer",
	"BeløpInn",
	"BeløpUt",
}

const reportType = "Regnskap"

// ReportRows flattens a month → department → project → account aggregate
// into report rows (without header). version is stamped as YYYYMMDD.
func ReportRows(root *Node, version time.Time) ([][]string, error) {
	var rows [][]string
	var walkErr error
	stamp := version.Format("20060102")

	root.Walk(func(path []string, metas []any, leaf *Node) {
		if walkErr != nil {
			return
		}
		if len(path) != 4 {
			walkErr = fmt.Errorf("report needs 4 grouping levels, got %d", len(path))
			return
		}
		month, ok := metas[0].(MonthMeta)
		if !ok {
			walkErr = fmt.Errorf("first grouping level must be ByMonth, got meta %T", metas[0])
			return
		}
		rows = append(rows, []string{
			reportType,
			stamp,
			strconv.Itoa(month.Year),
			strconv.Itoa(month.Month),
			path[1],
			path[2],
			path[3],
			leaf.In().String(),
			leaf.Out().String(),
		})
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return rows, nil
}

// WriteReport writes the aggregated report as semicolon separated text.
func WriteReport(w io.Writer, root *Node, version time.Time) error {
	rows, err := ReportRows(root, version)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	out.Comma = ';'
	out.UseCRLF = true

	if err := out.Write(ReportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := out.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteReportXLSX writes the aggregated report as a single-sheet workbook.
func WriteReportXLSX(w io.Writer, root *Node, version time.Time) error {
	rows, err := ReportRows(root, version)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := reportType
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := toCells(ReportHeader)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := toCells(row)
		// amounts as numbers so sheets can sum them
		for col := 7; col <= 8; col++ {
			if v, err := strconv.ParseFloat(row[col], 64); err == nil {
				cells[col] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
