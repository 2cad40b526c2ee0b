// Package importer turns bank CSV exports into transactions: it decodes
// and previews files, maps rows through a column mapping, and plans the
// batch that a confirmed import stores.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	SampleSize = 5
	MaxErrors  = 100

	DefaultDateFormat = "%Y-%m-%d"
)

// Fallback formats tried, in order, after the requested one.
var fallbackDateFormats = []string{"%d.%m.%Y", "%Y-%m-%d", "%d/%m/%Y", "%m/%d/%Y"}

// Mapping tells the importer which columns hold what.
type Mapping struct {
	DateColumn        string
	AmountColumn      string
	DescriptionColumn string
	CategoryID        string
	DateFormat        string
	NegateAmounts     bool
	HouseholdID       string
}

// Validate checks the required fields.
func (m Mapping) Validate() error {
	if strings.TrimSpace(m.DateColumn) == "" || strings.TrimSpace(m.AmountColumn) == "" || strings.TrimSpace(m.CategoryID) == "" {
		return core.Invalidf("date_column, amount_column, and category_id are required")
	}
	return nil
}

// Preview is what the client sees before choosing a mapping.
type Preview struct {
	Columns    []string            `json:"columns"`
	SampleRows []map[string]string `json:"sample_rows"`
	TotalRows  int                 `json:"total_rows"`
}

// Candidate is a mapped row. Amount keeps its sign.
type Candidate struct {
	Date        core.Date
	Amount      core.Money
	Description string
	CategoryID  string
}

// Result summarises a confirmed import.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// BuildPreview returns the header, up to SampleSize rows and the row count.
func BuildPreview(t *Table) Preview {
	p := Preview{
		Columns:    t.Columns,
		SampleRows: make([]map[string]string, 0, SampleSize),
		TotalRows:  len(t.Rows),
	}
	for i := 0; i < len(t.Rows) && i < SampleSize; i++ {
		p.SampleRows = append(p.SampleRows, t.Record(i))
	}
	return p
}

// MapRow converts one record through the mapping. The returned error is a
// *core.ParseError naming the field that failed.
func MapRow(row map[string]string, m Mapping) (Candidate, error) {
	rawDate := strings.TrimSpace(row[m.DateColumn])
	if rawDate == "" {
		return Candidate{}, &core.ParseError{Field: "date", Value: rawDate, Err: errors.New("empty")}
	}
	date, err := ParseDate(rawDate, m.DateFormat)
	if err != nil {
		return Candidate{}, &core.ParseError{Field: "date", Value: rawDate}
	}

	rawAmount := strings.TrimSpace(row[m.AmountColumn])
	cents, err := core.ParseDecimalToCents(rawAmount)
	if err != nil {
		return Candidate{}, &core.ParseError{Field: "amount", Value: rawAmount}
	}
	if m.NegateAmounts {
		cents = -cents
	}

	c := Candidate{
		Date:       date,
		Amount:     core.Money{Cents: cents},
		CategoryID: m.CategoryID,
	}
	if m.DescriptionColumn != "" {
		c.Description = strings.TrimSpace(row[m.DescriptionColumn])
	}
	return c, nil
}

// ParseDate tries format first and then the fallback formats. Formats may
// be strftime-style (%d.%m.%Y) or Go layouts (02.01.2006).
func ParseDate(s, format string) (core.Date, error) {
	if format == "" {
		format = DefaultDateFormat
	}
	tried := make(map[string]bool, len(fallbackDateFormats)+1)
	for _, f := range append([]string{format}, fallbackDateFormats...) {
		layout := Layout(f)
		if tried[layout] {
			continue
		}
		tried[layout] = true
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}

var strftime = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "1",
	'd': "2",
	'e': "2",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'H': "15",
	'I': "3",
	'M': "4",
	'S': "5",
	'p': "PM",
	'%': "%",
}

// Layout translates a strftime format to a Go time layout. Strings without
// a % directive are assumed to be Go layouts already. Day and month map to
// the unpadded Go verbs, which also accept zero-padded input.
func Layout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if v, ok := strftime[format[i+1]]; ok {
				b.WriteString(v)
				i++
				continue
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// Plan applies MapRow to every data row and builds the transactions to
// store. Failures never stop the rest of the file; they are counted as
// skipped with a "Row N: ..." message, N being the line number in the
// file. At most MaxErrors messages are kept.
func Plan(t *Table, m Mapping, userID string) ([]core.Transaction, Result) {
	res := Result{Errors: []string{}}
	txs := make([]core.Transaction, 0, len(t.Rows))

	skip := func(line int, msg string) {
		res.Skipped++
		if len(res.Errors) < MaxErrors {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", line, msg))
		}
	}

	for i := range t.Rows {
		line := i + 2
		c, err := MapRow(t.Record(i), m)
		if err != nil {
			skip(line, err.Error())
			continue
		}
		amount := c.Amount.Abs()
		if amount.IsZero() {
			skip(line, "amount is zero")
			continue
		}
		txs = append(txs, core.Transaction{
			Amount:      amount,
			Description: core.TruncateDescription(c.Description),
			Date:        c.Date,
			CategoryID:  c.CategoryID,
			UserID:      userID,
			HouseholdID: m.HouseholdID,
			IsShared:    m.HouseholdID != "",
		})
	}
	res.Imported = len(txs)
	return txs, res
}
