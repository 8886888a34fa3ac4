package core

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// DefaultKeyColumn is the business key of imported spreadsheets.
const DefaultKeyColumn = "CODE LOCAL"

// RecordStore enforces key uniqueness over a Table and exposes the
// filter and mutation operations. It has no lifetime of its own: it
// operates on whichever table it is handed.
type RecordStore struct {
	table *Table
	key   string
}

// NewRecordStore wraps table with key as the unique key column.
func NewRecordStore(table *Table, key string) (*RecordStore, error) {
	if key == "" {
		key = DefaultKeyColumn
	}
	if !table.HasColumn(key) {
		return nil, &MissingKeyColumnError{Column: key}
	}
	return &RecordStore{table: table, key: key}, nil
}

// Table returns the wrapped table.
func (s *RecordStore) Table() *Table { return s.table }

// KeyColumn returns the name of the key column.
func (s *RecordStore) KeyColumn() string { return s.key }

// Filter returns every record whose column equals value, in table order.
// An unmatched value yields an empty slice, not an error.
func (s *RecordStore) Filter(column, value string) ([]Record, error) {
	if !s.table.HasColumn(column) {
		return nil, &UnknownColumnError{Column: column}
	}

	out := []Record{}
	for _, r := range s.table.records {
		if r[column] == value {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Where returns every record for which the boolean expression holds.
//
// Columns are exposed to the expression by name, with spaces and dashes
// replaced by underscores (CODE LOCAL becomes CODE_LOCAL). The whole
// record is also available as the map "row", so row["CODE LOCAL"] works
// for names that are not valid identifiers.
func (s *RecordStore) Where(expression string) ([]Record, error) {
	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &ExpressionError{Expression: expression, Err: err}
	}

	out := []Record{}
	for _, r := range s.table.records {
		result, err := expr.Run(program, exprEnv(s.table.columns, r))
		if err != nil {
			return nil, &ExpressionError{Expression: expression, Err: err}
		}
		if ok, _ := result.(bool); ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// exprEnv builds the evaluation environment for one record.
func exprEnv(columns []string, r Record) map[string]any {
	env := make(map[string]any, len(columns)+1)
	row := make(map[string]any, len(columns))
	for _, col := range columns {
		row[col] = r[col]
		env[exprIdentifier(col)] = r[col]
	}
	env["row"] = row
	return env
}

var identReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

func exprIdentifier(col string) string {
	return identReplacer.Replace(strings.TrimSpace(col))
}

// Get returns the first record whose key equals key.
func (s *RecordStore) Get(key string) (Record, error) {
	_, rec, ok := s.table.Find(s.key, key)
	if !ok {
		return nil, &KeyNotFoundError{Column: s.key, Key: key}
	}
	return rec, nil
}

// Add appends rec after checking its key is present and unused.
// Columns missing from rec are stored as empty values.
func (s *RecordStore) Add(rec Record) error {
	if err := s.checkColumns(rec); err != nil {
		return err
	}

	key := rec[s.key]
	if key == "" {
		return &EmptyKeyError{Column: s.key}
	}
	if _, _, exists := s.table.Find(s.key, key); exists {
		return &DuplicateKeyError{Column: s.key, Key: key}
	}

	s.table.Append(rec)
	return nil
}

// Update overwrites the columns present in updates on the first record
// whose key equals key. Columns absent from updates keep their value.
//
// Changing the key column is allowed, but the new key must be non-empty
// and must not belong to any other record.
func (s *RecordStore) Update(key string, updates Record) error {
	if err := s.checkColumns(updates); err != nil {
		return err
	}

	idx, current, ok := s.table.Find(s.key, key)
	if !ok {
		return &KeyNotFoundError{Column: s.key, Key: key}
	}

	if newKey, changing := updates[s.key]; changing && newKey != key {
		if newKey == "" {
			return &EmptyKeyError{Column: s.key}
		}
		for i, r := range s.table.records {
			if i != idx && r[s.key] == newKey {
				return &DuplicateKeyError{Column: s.key, Key: newKey}
			}
		}
	}

	for col, val := range updates {
		current[col] = val
	}
	s.table.ReplaceAt(idx, current)
	return nil
}

// Delete removes every record whose key equals key and returns how many
// were removed. A missing key is not an error.
func (s *RecordStore) Delete(key string) int {
	return s.table.RemoveWhere(func(r Record) bool {
		return r[s.key] == key
	})
}

// DuplicateKeys returns the key values held by more than one record, in
// order of first appearance.
func (s *RecordStore) DuplicateKeys() []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range s.table.records {
		k := r[s.key]
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	var dups []string
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, k)
		}
	}
	return dups
}

func (s *RecordStore) checkColumns(rec Record) error {
	for col := range rec {
		if !s.table.HasColumn(col) {
			return &UnknownColumnError{Column: col}
		}
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (s *RecordStore) String() string {
	return fmt.Sprintf("RecordStore{key: %q, columns: %d, records: %d}", s.key, len(s.table.columns), s.table.Len())
}
