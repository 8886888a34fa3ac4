package core

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned when an operation targets a session that has
// no imported spreadsheet.
var ErrNoSession = errors.New("no spreadsheet imported for this session")

// ErrFileTooLarge is returned when an import exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

// ErrEmptyFile is returned when an import has no content at all.
var ErrEmptyFile = errors.New("empty file")

// DecodeError reports a spreadsheet that could not be read.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DuplicateKeyError reports an Add or Update that would repeat an existing key.
type DuplicateKeyError struct {
	Column string
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s %q already exists", e.Column, e.Key)
}

// KeyNotFoundError reports a lookup or Update on a key that is not present.
type KeyNotFoundError struct {
	Column string
	Key    string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: no record with %s %q", e.Column, e.Key)
}

// EmptyKeyError reports a record whose key column value is empty.
type EmptyKeyError struct {
	Column string
}

func (e *EmptyKeyError) Error() string {
	return fmt.Sprintf("empty key: %s must not be empty", e.Column)
}

// UnknownColumnError reports a column name that is not declared in the table.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column not found: %q", e.Column)
}

// MissingKeyColumnError reports a table without the configured key column.
type MissingKeyColumnError struct {
	Column string
}

func (e *MissingKeyColumnError) Error() string {
	return fmt.Sprintf("missing key column: spreadsheet has no %q column", e.Column)
}

// ExpressionError reports a filter expression that failed to compile or run.
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("invalid expression %q: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// InvalidValueError reports a value the spreadsheet format cannot store
// unchanged. The backing file is not touched when this is returned.
type InvalidValueError struct {
	Column string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value in column %s: %s", e.Column, e.Reason)
}

// PersistError reports a failed commit or reload of the backing file.
// The session keeps its previous table when this is returned.
type PersistError struct {
	Op   string // "lock", "commit" or "reload"
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
