package cli

import (
	"errors"

	"github.com/JonMunkholm/sheetedit/internal/codec"
	"github.com/JonMunkholm/sheetedit/internal/core"
)

// Exit codes for sheetctl.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // I/O, persistence or unexpected errors
	ExitUsage    = 2 // bad flags, arguments or input file
	ExitNotFound = 3 // no record with the given key
	ExitConflict = 4 // key already used
)

// ExitError carries the exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		exitErr     *ExitError
		notFound    *core.KeyNotFoundError
		dupErr      *core.DuplicateKeyError
		decodeErr   *core.DecodeError
		missingKey  *core.MissingKeyColumnError
		emptyKey    *core.EmptyKeyError
		unknownCol  *core.UnknownColumnError
		exprErr     *core.ExpressionError
		invalidVal  *core.InvalidValueError
		unsupported *codec.UnsupportedFormatError
	)
	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.As(err, &notFound):
		return ExitNotFound
	case errors.As(err, &dupErr):
		return ExitConflict
	case errors.As(err, &decodeErr), errors.As(err, &missingKey), errors.As(err, &emptyKey),
		errors.As(err, &unknownCol), errors.As(err, &exprErr), errors.As(err, &invalidVal), errors.As(err, &unsupported):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Message returns the text to print for err: the technical detail and,
// when one is known, the user message on a second line.
func Message(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	return err.Error() + "\n" + core.FormatUserError(err)
}
