package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestCheckFilename(t *testing.T) {
	assert.NoError(t, CheckFilename("statement.csv"))
	assert.NoError(t, CheckFilename("STATEMENT.CSV"))
	assert.True(t, errors.Is(CheckFilename("statement.xlsx"), core.ErrValidation))
	assert.True(t, errors.Is(CheckFilename(""), core.ErrValidation))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("Datum;Iznos;Opis\n1,5;2;3"))
	assert.Equal(t, ',', DetectDelimiter("date,amount,description\n1;2;3"))
	assert.Equal(t, ',', DetectDelimiter("single"))
}

func TestDecode_Windows1250(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("Datum;Opis\n01.05.2024;Plaćanje računa\n")
	require.NoError(t, err)

	text, err := Decode([]byte(encoded))
	require.NoError(t, err)
	assert.Contains(t, text, "Plaćanje računa")

	text, err = Decode(append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...))
	require.NoError(t, err)
	assert.Equal(t, "a,b", text, "BOM is stripped")
}

func TestParseAndPreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("Datum;Iznos;Opis\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "%02d.05.2024;-%d,50;Row %d\n", i, i, i)
	}

	table, err := Parse([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, ';', table.Delimiter)

	p := BuildPreview(table)
	assert.Equal(t, []string{"Datum", "Iznos", "Opis"}, p.Columns)
	assert.Equal(t, 7, p.TotalRows)
	require.Len(t, p.SampleRows, SampleSize)
	assert.Equal(t, "-1,50", p.SampleRows[0]["Iznos"])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil)
	assert.True(t, errors.Is(err, core.ErrValidation))

	table, err := Parse([]byte("date,amount\n2024-01-01\n"))
	require.NoError(t, err)
	assert.Equal(t, "", table.Record(0)["amount"], "short rows pad with empty values")
}

func TestLayout(t *testing.T) {
	tests := map[string]string{
		"%Y-%m-%d":   "2006-1-2",
		"%d.%m.%Y":   "2.1.2006",
		"%m/%d/%y":   "1/2/06",
		"02.01.2006": "02.01.2006",
		"%d %B %Y":   "2 January 2006",
		"100%%":      "100%",
	}
	for in, want := range tests {
		assert.Equal(t, want, Layout(in), in)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in, format, want string
	}{
		{"2024-05-03", "%Y-%m-%d", "2024-05-03"},
		{"03.05.2024", "%Y-%m-%d", "2024-05-03"},
		{"3.5.2024", "%d.%m.%Y", "2024-05-03"},
		{"03/05/2024", "", "2024-05-03"},
		{"12/31/2024", "", "2024-12-31"},
		{"2024.05.03", "2006.01.02", "2024-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}

	_, err := ParseDate("yesterday", "")
	assert.Error(t, err)
}

func TestMapRow(t *testing.T) {
	m := Mapping{DateColumn: "d", AmountColumn: "a", DescriptionColumn: "desc", CategoryID: "cat", DateFormat: "%d.%m.%Y"}

	c, err := MapRow(map[string]string{"d": "01.05.2024", "a": " 1 234,56 ", "desc": " Rent "}, m)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", c.Date.String())
	assert.Equal(t, int64(123456), c.Amount.Cents)
	assert.Equal(t, "Rent", c.Description)
	assert.Equal(t, "cat", c.CategoryID)

	var pe *core.ParseError
	_, err = MapRow(map[string]string{"d": "", "a": "1"}, m)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "date", pe.Field)

	_, err = MapRow(map[string]string{"d": "01.05.2024", "a": "abc"}, m)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "amount", pe.Field)
}

func TestMapRow_NegateFlipsSign(t *testing.T) {
	rows := []map[string]string{
		{"d": "2024-05-01", "a": "-10.00"},
		{"d": "2024-05-02", "a": "25,5"},
	}
	plain := Mapping{DateColumn: "d", AmountColumn: "a", CategoryID: "c"}
	negated := plain
	negated.NegateAmounts = true

	for _, row := range rows {
		a, err := MapRow(row, plain)
		require.NoError(t, err)
		b, err := MapRow(row, negated)
		require.NoError(t, err)
		assert.Equal(t, -a.Amount.Cents, b.Amount.Cents)
	}
}

func TestPlan_SkipsBadRowsAndKeepsTheRest(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,amount,description\n")
	for i := 1; i <= 10; i++ {
		date := fmt.Sprintf("2024-05-%02d", i)
		if i == 4 || i == 9 {
			date = "not a date"
		}
		fmt.Fprintf(&b, "%s,-%d.00,item %d\n", date, i, i)
	}
	table, err := Parse([]byte(b.String()))
	require.NoError(t, err)

	txs, res := Plan(table, Mapping{DateColumn: "date", AmountColumn: "amount", DescriptionColumn: "description", CategoryID: "cat"}, "user-1")
	assert.Equal(t, 8, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Row 5: "), res.Errors[0])
	assert.True(t, strings.HasPrefix(res.Errors[1], "Row 10: "), res.Errors[1])

	require.Len(t, txs, 8)
	for _, tx := range txs {
		assert.Positive(t, tx.Amount.Cents, "stored amounts are absolute")
		assert.Equal(t, "user-1", tx.UserID)
		assert.False(t, tx.IsShared)
	}
}

func TestPlan_ZeroAmountsAndErrorCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,amount\n2024-05-01,0,00\n")
	for i := 0; i < MaxErrors+20; i++ {
		b.WriteString("bad,1\n")
	}
	table, err := Parse([]byte(b.String()))
	require.NoError(t, err)

	txs, res := Plan(table, Mapping{DateColumn: "date", AmountColumn: "amount", CategoryID: "c", HouseholdID: "hh"}, "u")
	assert.Empty(t, txs)
	assert.Equal(t, MaxErrors+21, res.Skipped)
	assert.Len(t, res.Errors, MaxErrors)
	assert.Equal(t, "Row 2: amount is zero", res.Errors[0])
}

func TestPlan_HouseholdRowsAreShared(t *testing.T) {
	table, err := Parse([]byte("date,amount\n2024-05-01,12.00\n"))
	require.NoError(t, err)
	txs, _ := Plan(table, Mapping{DateColumn: "date", AmountColumn: "amount", CategoryID: "c", HouseholdID: "hh"}, "u")
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsShared)
	assert.Equal(t, "hh", txs[0].HouseholdID)
}

func TestMapping_Validate(t *testing.T) {
	assert.NoError(t, Mapping{DateColumn: "d", AmountColumn: "a", CategoryID: "c"}.Validate())
	assert.True(t, errors.Is(Mapping{DateColumn: "d", AmountColumn: "a"}.Validate(), core.ErrValidation))
}
