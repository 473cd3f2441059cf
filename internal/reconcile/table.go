package reconcile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	zipMagic = []byte("PK\x03\x04")
)

// table is a header row plus data rows, as read from CSV or a worksheet.
type table struct {
	name   string
	header []string
	rows   [][]string
}

// column returns the index of the first header equal to one of names, or -1.
func (t *table) column(names ...string) int {
	for _, name := range names {
		for i, h := range t.header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// isWorkbook reports whether the upload should be read as an xlsx workbook.
func isWorkbook(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// readDelimited parses delimited text. The first non-blank row is the header.
func readDelimited(data []byte) (*table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: input is empty", ErrParse)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return newTable("", records), nil
}

// readWorkbook returns one table per non-empty worksheet, in sheet order.
// Cells are read raw so dates arrive as serial numbers.
func readWorkbook(data []byte) ([]*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	var tables []*table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read sheet %q: %v", ErrParse, sheet, err)
		}
		if t := newTable(sheet, rows); len(t.header) > 0 {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: workbook has no data", ErrParse)
	}
	return tables, nil
}

func newTable(name string, records [][]string) *table {
	t := &table{name: name}
	for _, row := range records {
		if isBlankRow(row) {
			continue
		}
		if t.header == nil {
			t.header = make([]string, len(row))
			for i, h := range row {
				t.header[i] = strings.TrimSpace(h)
			}
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t
}
