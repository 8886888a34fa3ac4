// Package core provides the business logic for spreadsheet record editing.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Unreadable spreadsheet: The file could not be read as a spreadsheet
//	         Action: Check the file opens in a spreadsheet program and re-export it
//	         Source: DecodeError
//
//	IMP002 - Missing key column: The spreadsheet has no CODE LOCAL column
//	         Action: Add a CODE LOCAL column to the header row
//	         Source: MissingKeyColumnError
//
//	IMP003 - Unsupported format: Only .xlsx and .csv files are accepted
//	         Action: Save the file as .xlsx or .csv
//	         Patterns: "unsupported format"
//
// # Key Errors (KEY001-KEY099)
//
//	KEY001 - Duplicate key: A record with this CODE LOCAL already exists
//	         Action: Use another key
//	         Source: DuplicateKeyError
//
//	KEY002 - Key not found: No record has this CODE LOCAL
//	         Action: Check the key and try again
//	         Source: KeyNotFoundError
//
//	KEY003 - Empty key: CODE LOCAL must not be empty
//	         Action: Enter a value for CODE LOCAL
//	         Source: EmptyKeyError
//
// # Column and Filter Errors (COL001-COL099)
//
//	COL001 - Unknown column: The column does not exist in this spreadsheet
//	         Action: Pick one of the spreadsheet's columns
//	         Source: UnknownColumnError
//
//	COL002 - Invalid filter expression
//	         Action: Check the expression syntax, e.g. STATUT == "actif"
//	         Source: ExpressionError
//
//	COL003 - Invalid value: The value cannot be stored in this file format
//	         Action: Remove control characters or shorten the value
//	         Source: InvalidValueError
//
// # Persistence Errors (PER001-PER099)
//
//	PER001 - Save failed: The change could not be written to the spreadsheet file
//	         Action: Try again; the table still shows the last saved state
//	         Source: PersistError
//
// # Session Errors (SES001-SES099)
//
//	SES001 - No spreadsheet: Nothing has been imported yet
//	         Action: Import a spreadsheet to begin
//	         Source: ErrNoSession
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large       Patterns: "file too large"
//	FILE004 - No file              Patterns: "no file provided"
//	FILE005 - Empty file           Patterns: "empty file"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//	RATE002 - Import queue full: Too many imports are running
//	          Patterns: "too many concurrent"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error.
//
// Typed errors are matched first with errors.As; the string patterns are a
// fallback for errors that cross package boundaries as plain text.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var defaultUserMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "Only .xlsx and .csv files are accepted",
			Action:  "Save the file as .xlsx or .csv",
			Code:    "IMP003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please import a spreadsheet with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "The server is busy with other imports",
			Action:  "Please try again in a few seconds",
			Code:    "RATE002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTypedError(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return defaultUserMessage
}

func mapTypedError(err error) (UserMessage, bool) {
	var (
		decodeErr  *DecodeError
		missingKey *MissingKeyColumnError
		dupErr     *DuplicateKeyError
		notFound   *KeyNotFoundError
		emptyKey   *EmptyKeyError
		unknownCol *UnknownColumnError
		exprErr    *ExpressionError
		invalidVal *InvalidValueError
		persistErr *PersistError
	)

	switch {
	case errors.Is(err, ErrNoSession):
		return UserMessage{
			Message: "No spreadsheet has been imported yet",
			Action:  "Import a spreadsheet to begin",
			Code:    "SES001",
		}, true
	case errors.As(err, &decodeErr):
		return UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Check the file opens in a spreadsheet program and export it again",
			Code:    "IMP001",
		}, true
	case errors.As(err, &missingKey):
		return UserMessage{
			Message: fmt.Sprintf("The spreadsheet has no %s column", missingKey.Column),
			Action:  fmt.Sprintf("Add a %s column to the header row", missingKey.Column),
			Code:    "IMP002",
		}, true
	case errors.As(err, &dupErr):
		return UserMessage{
			Message: fmt.Sprintf("%s %q already exists", dupErr.Column, dupErr.Key),
			Action:  "Use another key",
			Code:    "KEY001",
		}, true
	case errors.As(err, &notFound):
		return UserMessage{
			Message: fmt.Sprintf("No record found with %s %q", notFound.Column, notFound.Key),
			Action:  "Check the key and try again",
			Code:    "KEY002",
		}, true
	case errors.As(err, &emptyKey):
		return UserMessage{
			Message: fmt.Sprintf("%s must not be empty", emptyKey.Column),
			Action:  fmt.Sprintf("Enter a value for %s", emptyKey.Column),
			Code:    "KEY003",
		}, true
	case errors.As(err, &unknownCol):
		return UserMessage{
			Message: fmt.Sprintf("Column %q does not exist in this spreadsheet", unknownCol.Column),
			Action:  "Pick one of the spreadsheet's columns",
			Code:    "COL001",
		}, true
	case errors.As(err, &exprErr):
		return UserMessage{
			Message: "The filter expression is not valid",
			Action:  `Check the expression syntax, e.g. STATUT == "actif"`,
			Code:    "COL002",
		}, true
	case errors.As(err, &invalidVal):
		return UserMessage{
			Message: fmt.Sprintf("The value for %s cannot be stored: %s", invalidVal.Column, invalidVal.Reason),
			Action:  "Remove control characters or shorten the value",
			Code:    "COL003",
		}, true
	case errors.As(err, &persistErr):
		return UserMessage{
			Message: "The change could not be saved to the spreadsheet file",
			Action:  "Try again; the table still shows the last saved state",
			Code:    "PER001",
		}, true
	}
	return UserMessage{}, false
}

// FormatUserError returns a formatted error string for display to users.
// Includes the message, code, and action.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	if msg.Action != "" {
		return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
	}
	return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
}

// IsUserFacing returns true if the error has a specific user-friendly mapping
// (not the default ERR000 message).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultUserMessage.Code
}
