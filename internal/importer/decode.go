package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fintrack/internal/core"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a decoded CSV file: a header and its data rows.
type Table struct {
	Columns   []string
	Rows      [][]string
	Delimiter rune
}

// CheckFilename rejects uploads that are not named *.csv.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".csv") {
		return core.Invalidf("file must be a CSV")
	}
	return nil
}

// Decode returns the file as text. Valid UTF-8 is used as is; anything else
// is read as Windows-1250, the usual export encoding of regional banks.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return "", core.Invalidf("could not decode file: %v", err)
	}
	return string(out), nil
}

// DetectDelimiter picks ';' when the header line has more semicolons than
// commas, ',' otherwise.
func DetectDelimiter(text string) rune {
	header, _, _ := strings.Cut(text, "\n")
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// Parse decodes and splits a CSV upload.
func Parse(data []byte) (*Table, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	delim := DetectDelimiter(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.Invalidf("could not detect CSV columns")
	}
	if err != nil {
		return nil, core.Invalidf("CSV parsing error: %v", err)
	}

	columns := make([]string, 0, len(header))
	nonEmpty := false
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h != "" {
			nonEmpty = true
		}
		columns = append(columns, h)
	}
	if !nonEmpty {
		return nil, core.Invalidf("could not detect CSV columns")
	}

	t := &Table{Columns: columns, Delimiter: delim}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.Invalidf("CSV parsing error: %v", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Record returns data row i keyed by column name. Short rows yield empty
// values for the missing columns.
func (t *Table) Record(i int) map[string]string {
	row := t.Rows[i]
	out := make(map[string]string, len(t.Columns))
	for j, col := range t.Columns {
		if j < len(row) {
			out[col] = row[j]
		} else {
			out[col] = ""
		}
	}
	return out
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
