package core

// error_messages.go defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Request Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing data: One of the two CSV payloads is missing
//	         Action: Upload both files before comparing
//	         Sentinel: ErrMissingTable
//
//	VAL002 - No rules: The comparison rule list is empty
//	         Action: Add at least one column pair to compare
//	         Sentinel: ErrNoRules
//
//	VAL003 - Malformed rule: A rule is missing column1 or column2
//	         Action: Pick a column from each file for every rule
//	         Sentinel: ErrMalformedRule
//
//	VAL004 - Invalid request: The request body could not be understood
//	         Action: Check the request format and try again
//	         Sentinel: ErrInvalidRequest
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Upload exceeds the configured size limit
//	          Action: Split the file into smaller chunks
//	          Sentinel: ErrFileTooLarge, pattern "request body too large"
//
//	FILE002 - Invalid CSV: The file could not be tokenized
//	          Action: Ensure file is comma-separated text
//	          Sentinel: ErrInvalidCSV
//
//	FILE003 - Not a CSV: The uploaded file is not a CSV file
//	          Action: Upload a file with a .csv extension
//	          Sentinel: ErrNotCSV
//
//	FILE004 - No file provided: A multipart file field was missing
//	          Action: Select both CSV files to upload
//	          Sentinel: ErrNoFile
//
//	FILE005 - Nothing to export: Export request had no headers or data
//	          Action: Run a comparison before exporting
//	          Sentinel: ErrNothingToExport
//
// # Comparison Errors (CMP001-CMP099)
//
//	CMP001 - System busy: Too many comparisons in progress
//	         Sentinel: ErrTooManyComparisons
//
//	CMP002 - Timed out: The comparison did not finish before the deadline
//	         Sentinel: ErrComparisonTimeout, context.DeadlineExceeded
//
//	CMP003 - Cancelled: The request was cancelled by the client
//	         Sentinel: context.Canceled
//
//	CMP004 - Run not found: The comparison result expired or never existed
//	         Sentinel: ErrRunNotFound
//
// # Rule Set Errors (RS001-RS099)
//
//	RS001 - Rule set not found
//	RS002 - Rule set name already in use
//	RS003 - Rule set name missing
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests (pattern "rate limit")
//
// # Default Error (ERR000)
//
// Fallback when no sentinel or pattern matches. Support staff should check
// application logs for the original technical error when users report ERR000.
//
// # Matching Order
//
// Sentinels are checked with errors.Is first, so wrapped and marked errors
// keep their code. Unknown errors fall back to case-insensitive substring
// patterns. Hints attached with errors.WithHint replace the default action.

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Request and data errors. Wrap these with errors.Wrap or attach them with
// errors.Mark so MapError and the web layer can recognise them.
var (
	ErrMissingTable    = errors.New("missing required CSV data")
	ErrNoRules         = errors.New("at least one comparison rule is required")
	ErrMalformedRule   = errors.New("malformed comparison rule")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidCSV      = errors.New("invalid csv")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNotCSV          = errors.New("only CSV files are allowed")
	ErrNoFile          = errors.New("no file provided")
	ErrNothingToExport = errors.New("data and headers are required for export")

	ErrComparisonTimeout = errors.New("comparison timed out")
	ErrRunNotFound       = errors.New("comparison run not found")

	ErrRuleSetNotFound = errors.New("rule set not found")
	ErrRuleSetExists   = errors.New("rule set already exists")
	ErrRuleSetName     = errors.New("rule set name is required")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order with errors.Is.
var sentinelMessages = []sentinelMessage{
	{ErrMissingTable, UserMessage{
		Message: "Both CSV files are required",
		Action:  "Upload both files before comparing",
		Code:    "VAL001",
	}},
	{ErrNoRules, UserMessage{
		Message: "At least one comparison rule is required",
		Action:  "Add at least one column pair to compare",
		Code:    "VAL002",
	}},
	{ErrMalformedRule, UserMessage{
		Message: "A comparison rule is incomplete",
		Action:  "Pick a column from each file for every rule",
		Code:    "VAL003",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the request format and try again",
		Code:    "VAL004",
	}},

	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ErrInvalidCSV, UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated text",
		Code:    "FILE002",
	}},
	{ErrNotCSV, UserMessage{
		Message: "Only CSV files are allowed",
		Action:  "Upload a file with a .csv extension",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Select both CSV files to upload",
		Code:    "FILE004",
	}},
	{ErrNothingToExport, UserMessage{
		Message: "There is nothing to export",
		Action:  "Run a comparison before exporting",
		Code:    "FILE005",
	}},

	{ErrTooManyComparisons, UserMessage{
		Message: "System is busy processing other comparisons",
		Action:  "Please wait a moment and try again",
		Code:    "CMP001",
	}},
	{ErrComparisonTimeout, UserMessage{
		Message: "Comparison timed out",
		Action:  "Try smaller files or fewer rules",
		Code:    "CMP002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Comparison timed out",
		Action:  "Try smaller files or fewer rules",
		Code:    "CMP002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "CMP003",
	}},
	{ErrRunNotFound, UserMessage{
		Message: "Comparison result not found",
		Action:  "The result may have expired. Please run the comparison again",
		Code:    "CMP004",
	}},

	{ErrRuleSetNotFound, UserMessage{
		Message: "Rule set not found",
		Action:  "Refresh the list of saved rule sets",
		Code:    "RS001",
	}},
	{ErrRuleSetExists, UserMessage{
		Message: "A rule set with this name already exists",
		Action:  "Choose a different name or update the existing rule set",
		Code:    "RS002",
	}},
	{ErrRuleSetName, UserMessage{
		Message: "Rule set name is required",
		Action:  "Give the rule set a name",
		Code:    "RS003",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors from libraries that carry no sentinel.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated text",
			Code:    "FILE002",
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
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "CMP002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := errors.Wrap(ErrNoRules, "compare")
//	msg := MapError(err)
//	// msg.Code == "VAL002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	msg := lookupMessage(err)
	if hint := errors.FlattenHints(err); hint != "" {
		msg.Action = hint
	}
	return msg
}

func lookupMessage(err error) UserMessage {
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return lookupMessage(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
