package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the worksheet written by the XLSX codec.
const SheetName = "Sheet1"

// XLSX reads and writes tables as Office Open XML workbooks.
//
// Decode reads the first worksheet with raw cell values, so numbers come
// back as their stored decimal text and dates as serial numbers. Encode
// writes canonical decimal numbers ("12", "-3.5") as numeric cells and all
// other values as text, which keeps Decode(Encode(t)) equal to t.
type XLSX struct{}

// NewXLSX returns the XLSX codec.
func NewXLSX() *XLSX { return &XLSX{} }

func (x *XLSX) Name() string         { return "xlsx" }
func (x *XLSX) DownloadName() string { return "updated_data.xlsx" }
func (x *XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Decode parses the first worksheet of a workbook.
func (x *XLSX) Decode(r io.Reader) (*core.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, decodeError(x.Name(), err)
	}
	if err := checkContent(data, familyZip); err != nil {
		return nil, decodeError(x.Name(), err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(x.Name(), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, decodeError(x.Name(), errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, decodeError(x.Name(), err)
	}
	if len(rows) == 0 || isBlankRow(rows[0]) {
		return nil, decodeError(x.Name(), errors.New("empty file"))
	}

	cols, err := checkHeader(trimTrailingBlank(rows[0]))
	if err != nil {
		return nil, decodeError(x.Name(), err)
	}

	records := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) > len(cols) && !isBlankRow(row[len(cols):]) {
			return nil, decodeError(x.Name(), fmt.Errorf("row %d has values beyond the last header column", i+2))
		}
		records = append(records, row)
	}

	return core.NewTableFromRows(cols, records), nil
}

// Encode writes the table to a single worksheet. Text that looks like an
// OOXML character escape (_xHHHH_) is written with its underscore escaped
// as _x005F_ so it reads back unchanged. Values longer than a cell can
// hold are rejected instead of being cut.
func (x *XLSX) Encode(w io.Writer, t *core.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	cols := t.Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		v, err := textCell(c, c)
		if err != nil {
			return err
		}
		header[i] = v
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.Rows() {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cv, err := cellValue(cols[j], v)
			if err != nil {
				return err
			}
			cells[j] = cv
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// cellValue returns v as a float64 when it is a canonical decimal number,
// otherwise as escaped text.
func cellValue(column, v string) (interface{}, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) || strconv.FormatFloat(n, 'f', -1, 64) != v {
		return textCell(column, v)
	}
	return n, nil
}

// textCell checks v and escapes it for a string cell.
func textCell(column, v string) (string, error) {
	if err := checkValue(column, v); err != nil {
		return "", err
	}
	escaped := escapeText(v)
	if n := utf8.RuneCountInString(escaped); n > excelize.TotalCellChars {
		return "", &core.InvalidValueError{
			Column: column,
			Reason: fmt.Sprintf("%d characters, a cell holds at most %d", n, excelize.TotalCellChars),
		}
	}
	return escaped, nil
}

// escapeText writes the underscore of every _xHHHH_ sequence in v as
// _x005F_, the escape for a literal underscore.
func escapeText(v string) string {
	if !strings.Contains(v, "_x") {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 8)
	for i := 0; i < len(v); i++ {
		if v[i] == '_' && looksEscaped(v[i:]) {
			b.WriteString("_x005F")
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// looksEscaped reports whether s starts with _x, four letters or digits
// and an underscore.
func looksEscaped(s string) bool {
	if len(s) < 7 || s[0] != '_' || s[1] != 'x' || s[6] != '_' {
		return false
	}
	for i := 2; i < 6; i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

func trimTrailingBlank(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
