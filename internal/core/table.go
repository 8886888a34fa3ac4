package core

import (
	"sort"
)

// Record maps column names to cell values. The empty string is the empty value.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Values returns the record's values in the given column order.
func (r Record) Values(columns []string) []string {
	vals := make([]string, len(columns))
	for i, col := range columns {
		vals[i] = r[col]
	}
	return vals
}

// Table is the in-memory tabular store: ordered columns and ordered records.
//
// Every record held by a Table has exactly one value per declared column.
// Table enforces no key rules of its own; see RecordStore.
type Table struct {
	columns []string
	index   map[string]int
	records []Record
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)

	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}

	return &Table{
		columns: cols,
		index:   idx,
	}
}

// NewTableFromRows builds a table from a header and positional rows.
// Short rows are padded with empty values, extra cells are dropped.
func NewTableFromRows(columns []string, rows [][]string) *Table {
	t := NewTable(columns)
	t.records = make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(t.columns))
		for i, col := range t.columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		t.records = append(t.records, rec)
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns copies of all records in table order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.Clone()
	}
	return out
}

// Rows returns all records as positional rows in column order.
func (t *Table) Rows() [][]string {
	rows := make([][]string, len(t.records))
	for i, r := range t.records {
		rows[i] = r.Values(t.columns)
	}
	return rows
}

// At returns a copy of the record at position i.
func (t *Table) At(i int) Record {
	return t.records[i].Clone()
}

// Append adds a record at the end. No uniqueness check is made.
func (t *Table) Append(r Record) {
	t.records = append(t.records, t.normalize(r))
}

// ReplaceAt overwrites the record at position i.
func (t *Table) ReplaceAt(i int, r Record) {
	t.records[i] = t.normalize(r)
}

// RemoveWhere removes every record matching pred, keeping the relative
// order of the rest. Returns the number of records removed.
func (t *Table) RemoveWhere(pred func(Record) bool) int {
	kept := t.records[:0]
	removed := 0
	for _, r := range t.records {
		if pred(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Clear the tail so dropped records can be collected.
	for i := len(kept); i < len(t.records); i++ {
		t.records[i] = nil
	}
	t.records = kept
	return removed
}

// Find returns the first record, in table order, whose column equals value.
func (t *Table) Find(column, value string) (int, Record, bool) {
	for i, r := range t.records {
		if r[column] == value {
			return i, r.Clone(), true
		}
	}
	return -1, nil, false
}

// DistinctValues returns the set of values present in column, sorted.
func (t *Table) DistinctValues(column string) []string {
	seen := make(map[string]struct{})
	for _, r := range t.records {
		seen[r[column]] = struct{}{}
	}

	vals := make([]string, 0, len(seen))
	for v := range seen {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable(t.columns)
	c.records = make([]Record, len(t.records))
	for i, r := range t.records {
		c.records[i] = r.Clone()
	}
	return c
}

// Equal reports whether both tables have the same columns and the same
// records in the same order.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.columns) != len(other.columns) || len(t.records) != len(other.records) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != other.columns[i] {
			return false
		}
	}
	for i, r := range t.records {
		o := other.records[i]
		for _, col := range t.columns {
			if r[col] != o[col] {
				return false
			}
		}
	}
	return true
}

// normalize returns a record holding exactly the declared columns.
func (t *Table) normalize(r Record) Record {
	out := make(Record, len(t.columns))
	for _, col := range t.columns {
		out[col] = r[col]
	}
	return out
}
