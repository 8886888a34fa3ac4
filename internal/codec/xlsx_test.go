package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx file from cell values keyed by cell name.
func workbook(t *testing.T, cells map[string]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestXLSX_RoundTrip(t *testing.T) {
	tbl := core.NewTableFromRows(
		[]string{"CODE LOCAL", "NOM", "QTE", "PRIX", "REF"},
		[][]string{
			{"A1", "Paris", "12", "-4.25", "0012"},
			{"A2", "  Lyon ", "3.50", "1e5", "12345678901234567890"},
			{"A3", "", "", "0", "x"},
		},
	)

	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Encode(&buf, tbl))

	got, err := NewXLSX().Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), got.Columns())
	assert.Equal(t, tbl.Rows(), got.Rows())
}

func TestXLSX_NumbersStoredAsNumbers(t *testing.T) {
	tbl := core.NewTableFromRows([]string{"CODE LOCAL", "QTE"}, [][]string{{"A1", "12"}, {"A2", "0012"}})

	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Encode(&buf, tbl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	isText := func(typ excelize.CellType) bool {
		return typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString
	}

	typ, err := f.GetCellType(SheetName, "B2")
	require.NoError(t, err)
	assert.False(t, isText(typ), "B2 stored as text")

	typ, err = f.GetCellType(SheetName, "B3")
	require.NoError(t, err)
	assert.True(t, isText(typ), "B3 stored as %v, want text", typ)
}

func TestXLSX_Decode(t *testing.T) {
	buf := workbook(t, map[string]interface{}{
		"A1": " CODE LOCAL", "B1": "NOM",
		"A2": "A1", "B2": "Paris",
		"A4": "A2",
		"A5": 42,
	})

	got, err := NewXLSX().Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"CODE LOCAL", "NOM"}, got.Columns())
	assert.Equal(t, [][]string{{"A1", "Paris"}, {"A2", ""}, {"42", ""}}, got.Rows())
}

func TestXLSX_DecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T) *bytes.Buffer
	}{
		{
			name:  "not a workbook",
			input: func(*testing.T) *bytes.Buffer { return bytes.NewBufferString("CODE LOCAL,NOM\n") },
		},
		{
			name:  "csv renamed",
			input: func(*testing.T) *bytes.Buffer { return bytes.NewBufferString("CODE LOCAL;NOM\nA1;Paris\n") },
		},
		{
			name:  "empty sheet",
			input: func(t *testing.T) *bytes.Buffer { return workbook(t, nil) },
		},
		{
			name: "value beyond header",
			input: func(t *testing.T) *bytes.Buffer {
				return workbook(t, map[string]interface{}{"A1": "CODE LOCAL", "A2": "A1", "C2": "stray"})
			},
		},
		{
			name: "duplicate header",
			input: func(t *testing.T) *bytes.Buffer {
				return workbook(t, map[string]interface{}{"A1": "CODE LOCAL", "B1": "CODE LOCAL"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewXLSX().Decode(tt.input(t))
			var de *core.DecodeError
			require.True(t, errors.As(err, &de), "error %v is not a DecodeError", err)
			assert.Equal(t, "xlsx", de.Format)
		})
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"12", float64(12)},
		{"-4.25", -4.25},
		{"0", float64(0)},
		{"0012", "0012"},
		{"3.50", "3.50"},
		{"1e5", "1e5"},
		{"+1", "+1"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"", ""},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		got, err := cellValue("V", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "cellValue(%q)", tt.in)
	}
}

func TestXLSX_EscapeLookalikesRoundTrip(t *testing.T) {
	tbl := core.NewTableFromRows(
		[]string{"CODE LOCAL", "NOTE_x0020_"},
		[][]string{
			{"A", "Paris"},
			{"_x0041_", "Lyon"},
			{"_x005F_", "_x0041__x0042_"},
			{"B", "_x0041_x0042_"},
			{"C", "_xyz_ _x12_ x0041_"},
		},
	)

	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Encode(&buf, tbl))

	got, err := NewXLSX().Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), got.Columns())
	assert.Equal(t, tbl.Rows(), got.Rows())
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"_x0041_", "_x005F_x0041_"},
		{"_x0041_x0042_", "_x005F_x0041_x005F_x0042_"},
		{"_x12_", "_x12_"},
		{"a_xZZZZ_b", "a_x005F_xZZZZ_b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeText(tt.in), "escapeText(%q)", tt.in)
	}
}

func TestXLSX_EncodeRejectsUnstorableValues(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		reason string
	}{
		{name: "longer than a cell", value: strings.Repeat("x", excelize.TotalCellChars+1), reason: "a cell holds at most"},
		{name: "grows past a cell when escaped", value: strings.Repeat("_x0041_", excelize.TotalCellChars/7), reason: "a cell holds at most"},
		{name: "control character", value: "a\x01b", reason: "U+0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := core.NewTableFromRows([]string{"CODE LOCAL", "NOM"}, [][]string{{"A1", tt.value}})

			err := NewXLSX().Encode(&bytes.Buffer{}, tbl)
			var ive *core.InvalidValueError
			require.ErrorAs(t, err, &ive)
			assert.Equal(t, "NOM", ive.Column)
			assert.Contains(t, ive.Reason, tt.reason)
		})
	}

	// the longest storable value survives intact
	long := strings.Repeat("y", excelize.TotalCellChars)
	tbl := core.NewTableFromRows([]string{"CODE LOCAL", "NOM"}, [][]string{{"A1", long}})
	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Encode(&buf, tbl))
	got, err := NewXLSX().Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, long, got.At(0)["NOM"])
}
