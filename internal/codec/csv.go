package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/sheetedit/internal/core"
)

// CSV reads and writes tables as delimited text with a header line.
type CSV struct {
	// Comma is the field delimiter. Zero means detect it from the header
	// line on decode and write ',' on encode.
	Comma rune
}

// NewCSV returns a CSV codec that detects the delimiter.
func NewCSV() *CSV { return &CSV{} }

func (c *CSV) Name() string         { return "csv" }
func (c *CSV) DownloadName() string { return "updated_data.csv" }
func (c *CSV) ContentType() string  { return "text/csv; charset=utf-8" }

// Decode parses a CSV stream. Every line must have as many fields as the
// header; lines whose fields are all empty are skipped.
func (c *CSV) Decode(r io.Reader) (*core.Table, error) {
	data, err := io.ReadAll(NewBOMSkippingReader(r))
	if err != nil {
		return nil, decodeError(c.Name(), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, decodeError(c.Name(), errors.New("empty file"))
	}
	if err := checkContent(data, familyText); err != nil {
		return nil, decodeError(c.Name(), err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, decodeError(c.Name(), err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = c.Comma
	if reader.Comma == 0 {
		reader.Comma = sniffDelimiter(data)
	}
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, decodeError(c.Name(), fmt.Errorf("read header: %w", err))
	}
	cols, err := checkHeader(header)
	if err != nil {
		return nil, decodeError(c.Name(), err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, decodeError(c.Name(), err)
		}
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	return core.NewTableFromRows(cols, rows), nil
}

// Encode writes the header line then one line per record. A line break
// written as "\r\n" inside a value reads back as "\n".
func (c *CSV) Encode(w io.Writer, t *core.Table) error {
	cols := t.Columns()
	rows := t.Rows()
	for _, col := range cols {
		if err := checkValue(col, col); err != nil {
			return err
		}
	}
	for _, row := range rows {
		for i, v := range row {
			if err := checkValue(cols[i], v); err != nil {
				return err
			}
		}
	}

	writer := csv.NewWriter(w)
	if c.Comma != 0 {
		writer.Comma = c.Comma
	}
	if err := writer.Write(cols); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// sniffDelimiter picks the most frequent of ',', ';' and tab in the first
// line, ignoring quoted text. Ties and lines with none default to ','.
func sniffDelimiter(data []byte) rune {
	counts := map[byte]int{}
	inQuotes := false
	for _, b := range data {
		if b == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if b == '\n' || b == '\r' {
			break
		}
		if b == ',' || b == ';' || b == '\t' {
			counts[b]++
		}
	}

	best, bestCount := byte(','), counts[',']
	for _, d := range []byte{';', '\t'} {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return rune(best)
}
