// Package codec reads and writes record tables as spreadsheet files.
//
// Two formats are supported, chosen by file extension:
//
//   - .xlsx: first worksheet, header in row 1 (github.com/xuri/excelize/v2)
//   - .csv:  header line, comma, semicolon or tab separated
//
// Codecs are pure I/O: they apply no key or business rules. Malformed input
// is reported as *core.DecodeError, and values a format cannot store as
// *core.InvalidValueError.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sheetedit/internal/core"
)

// UnsupportedFormatError reports a file extension with no codec.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported format: file has no extension"
	}
	return fmt.Sprintf("unsupported format: %s", e.Ext)
}

// Extensions lists the accepted file extensions.
var Extensions = []string{".xlsx", ".csv"}

// ForFile returns the codec for name, chosen by its extension.
// It satisfies core.CodecResolver.
func ForFile(name string) (core.Codec, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx":
		return NewXLSX(), nil
	case ".csv":
		return NewCSV(), nil
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
}

// decodeError wraps err as a *core.DecodeError for format.
func decodeError(format string, err error) error {
	return &core.DecodeError{Format: format, Err: err}
}

// checkHeader trims header names and rejects empty or repeated ones.
func checkHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	cols := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("header column %d repeats %q (column %d)", i+1, name, prev+1)
		}
		seen[name] = i
		cols[i] = name
	}
	return cols, nil
}

// isBlankRow reports whether every cell of row is empty.
func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// checkValue rejects control characters other than tab, line feed and
// carriage return. They make a CSV file read as binary and are not
// allowed in workbook XML.
func checkValue(column, v string) error {
	for _, r := range v {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return &core.InvalidValueError{Column: column, Reason: fmt.Sprintf("control character %U", r)}
		}
	}
	return nil
}
