// Package importer implements the bulk-load pipeline: tabular file
// parsing, heuristic column-to-field mapping, compound name parsing,
// and batch commit with per-row error isolation.
package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	dErrors "persondb/pkg/domain-errors"
)

// Row is one parsed data row: the header's column order plus the
// cell values keyed by column name. Missing cells are empty strings.
type Row struct {
	Columns []string
	Values  map[string]string
}

// Get returns the cell for a column, empty string when absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// IsEmpty reports whether every cell is blank.
func (r Row) IsEmpty() bool {
	for _, column := range r.Columns {
		if strings.TrimSpace(r.Values[column]) != "" {
			return false
		}
	}
	return true
}

// Parse reads a tabular file into rows, dispatching on the declared
// file extension. Unknown extensions and unreadable files fail before
// any row is processed.
func Parse(filename string, r io.Reader, sheet string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xls":
		return ParseWorkbook(r, sheet)
	default:
		return nil, dErrors.Newf(dErrors.CodeUnsupportedFile, "unsupported file type %q, expected csv, xlsx, or xls", filepath.Ext(filename))
	}
}

// ParseCSV reads a comma-separated file. The first record is the
// header; a UTF-8 BOM on the first column is stripped. Short records
// are padded so every row carries every column.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "failed to read csv header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	columns := trimAll(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeParse, "failed to read csv row")
		}
		rows = append(rows, makeRow(columns, record))
	}
	return rows, nil
}

// ParseWorkbook reads one sheet of an Excel workbook. An empty sheet
// name selects the first sheet; naming a missing sheet is a parse
// error, not a silent fallback.
func ParseWorkbook(r io.Reader, sheet string) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "failed to read workbook")
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "failed to open workbook")
	}
	defer book.Close() //nolint:errcheck

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, dErrors.New(dErrors.CodeParse, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	records, err := book.GetRows(sheet)
	if err != nil {
		return nil, dErrors.Wrapf(err, dErrors.CodeParse, "failed to read sheet %q", sheet)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := trimAll(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, makeRow(columns, record))
	}
	return rows, nil
}

func makeRow(columns, record []string) Row {
	values := make(map[string]string, len(columns))
	for i, column := range columns {
		if column == "" {
			continue
		}
		if i < len(record) {
			values[column] = strings.TrimSpace(record[i])
		} else {
			values[column] = ""
		}
	}
	return Row{Columns: columns, Values: values}
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
