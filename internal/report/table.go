package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	SheetName = "Character Report"

	XLSXFilename    = "character_report.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	CSVFilename     = "character_report.csv"
	CSVContentType  = "text/csv; charset=utf-8"
)

// Header is shared by the spreadsheet and the CSV export.
var Header = []string{"Name", "Age", "Gender", "Occupation", "Relations", "Photos"}

var columnWidths = []float64{20, 10, 10, 20, 40, 40}

// Rows projects entries into string rows in Header order.
func Rows(entries []Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Name,
			strconv.Itoa(e.Age),
			string(e.Gender),
			e.Occupation,
			e.RelationNames(),
			e.PhotoNames(),
		})
	}
	return rows
}

// WriteCSV writes a header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(entries)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook. Age is stored as a number and the
// photos cell links to the character's first photo.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, e := range entries {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		row := []interface{}{e.Name, e.Age, string(e.Gender), e.Occupation, e.RelationNames(), e.PhotoNames()}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
		if p := e.FirstPhoto(); p != nil {
			photoCell, _ := excelize.CoordinatesToCellName(len(Header), rowNum)
			if err := f.SetCellHyperLink(SheetName, photoCell, p.URL, "External"); err != nil {
				return fmt.Errorf("link photo on row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return nil
}

// Tabular holds both encodings of the same report.
type Tabular struct {
	XLSX []byte
	CSV  []byte
}

// BuildTabular encodes the spreadsheet and the CSV concurrently. Both are
// always produced; the caller picks which one to send.
func BuildTabular(ctx context.Context, entries []Entry) (Tabular, error) {
	var xlsxBuf, csvBuf bytes.Buffer
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return WriteXLSX(&xlsxBuf, entries) })
	g.Go(func() error { return WriteCSV(&csvBuf, entries) })
	if err := g.Wait(); err != nil {
		return Tabular{}, err
	}
	return Tabular{XLSX: xlsxBuf.Bytes(), CSV: csvBuf.Bytes()}, nil
}
