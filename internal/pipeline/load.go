package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// Table is an untyped upload: a header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// DateColumnAliases are tried in order when locating the date column.
var DateColumnAliases = []string{
	"date", "Date", "datetime", "DateTime", "DATETIME",
	"time", "Time", "timestamp", "Timestamp", "TIMESTAMP",
}

// KnownNumericColumns are coerced to numbers even when some cells are malformed.
var KnownNumericColumns = []string{"units_sold", "revenue", "price"}

// OptionalColumns are recognized business dimensions and flags.
var OptionalColumns = []string{"product_id", "product_name", "region", "promotion_flag"}

var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "#n/a": true,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"01/02/2006 15:04:05",
	"2006-01",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// Load parses an uploaded file by extension. Only .csv and .xlsx are accepted.
func Load(filename string, data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, utils.NewValidationError("file is empty")
	}

	var (
		table *Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		table, err = ReadCSV(bytes.NewReader(data))
	case ".xlsx":
		table, err = ReadXLSX(bytes.NewReader(data))
	default:
		return nil, utils.NewValidationError("Only CSV or XLSX files are accepted")
	}
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, utils.NewValidationError("file is empty")
	}
	return table, nil
}

// ReadCSV decodes UTF-8 (BOM optional), falling back to Windows-1252 and then
// ISO-8859-1 for legacy exports.
func ReadCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, utils.NewValidationError("Unable to parse CSV file. Please ensure it's a valid CSV with text encoding (UTF-8, Latin-1, or Windows format).")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, utils.NewValidationErrorf("Error parsing CSV: %v", err)
	}
	return tableFromRecords(records)
}

func decodeText(raw []byte) (string, error) {
	hasUTF16BOM := len(raw) >= 2 && ((raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF))
	if hasUTF16BOM || utf8.Valid(raw) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err == nil {
			return string(out), nil
		}
	}

	var lastErr error
	for _, enc := range []encoding.Encoding{charmap.Windows1252, charmap.ISO8859_1} {
		out, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err == nil {
			return string(out), nil
		}
		lastErr = err
	}
	return "", lastErr
}

// ReadXLSX reads the first sheet with rows from an Excel workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewValidationErrorf("Error parsing XLSX: %v", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		return tableFromRecords(rows)
	}
	return nil, utils.NewValidationError("file is empty")
}

func tableFromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, utils.NewValidationError("file is empty")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-1)
	for n, rec := range records[1:] {
		if len(rec) > len(header) {
			return nil, utils.NewValidationErrorf("Error parsing CSV: row %d has %d fields, expected %d", n+2, len(rec), len(header))
		}
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}
	return &Table{Header: header, Rows: rows}, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDate tries the supported layouts and returns the UTC instant.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FromTable types a raw table: the first date alias present becomes the date
// column, known measures are coerced to numbers, and other columns are numeric
// when every non-empty cell parses as a number.
func FromTable(t *Table) *Frame {
	header := normalizeHeader(t.Header)
	n := len(t.Rows)

	dateIdx := -1
	for i, h := range header {
		if h == DateColumn {
			dateIdx = i
			break
		}
	}

	f := &Frame{HasDate: dateIdx >= 0, cols: make(map[string]*Column)}
	if f.HasDate {
		f.Dates = make([]time.Time, n)
		f.DateValid = make([]bool, n)
		for r, row := range t.Rows {
			if isMissing(row[dateIdx]) {
				continue
			}
			if d, ok := ParseDate(row[dateIdx]); ok {
				f.Dates[r] = d
				f.DateValid[r] = true
			}
		}
	}

	for i, name := range header {
		if i == dateIdx {
			f.names = append(f.names, DateColumn)
			continue
		}
		if _, dup := f.cols[name]; dup {
			continue
		}
		f.addColumn(typeColumn(name, t.Rows, i))
	}
	return f
}

func normalizeHeader(header []string) []string {
	out := append([]string(nil), header...)
	for _, h := range out {
		if h == DateColumn {
			return out
		}
	}
	for _, alias := range DateColumnAliases {
		for i, h := range out {
			if h == alias {
				out[i] = DateColumn
				return out
			}
		}
	}
	return out
}

func typeColumn(name string, rows [][]string, idx int) *Column {
	forced := contains(KnownNumericColumns, name)
	numeric := true
	anyValue := false
	for _, row := range rows {
		if isMissing(row[idx]) {
			continue
		}
		anyValue = true
		if _, ok := parseNumber(row[idx]); !ok {
			numeric = false
			break
		}
	}

	if forced || (numeric && anyValue) {
		col := newNumeric(name, len(rows))
		for r, row := range rows {
			col.Nums[r] = math.NaN()
			if isMissing(row[idx]) {
				continue
			}
			if v, ok := parseNumber(row[idx]); ok {
				col.Nums[r] = v
			}
		}
		return col
	}

	col := newCategorical(name, len(rows))
	for r, row := range rows {
		if isMissing(row[idx]) {
			col.Null[r] = true
			continue
		}
		col.Strs[r] = row[idx]
	}
	return col
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
