// Package core provides the business logic for checking survey data files.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When field staff report a problem, they can quote the error code so the data
// center can diagnose it without the original file.
//
// Error codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
// The dataset cannot be checked because its header is wrong:
//
//	SCH001 - Missing column: A required column is missing
//	         Action: Compare the header with the template for this data kind
//	         Patterns: "missing required column"
//
//	SCH002 - No census rounds: No measurement column such as gbh05 was found
//	         Action: Name measurement columns gbh followed by the two-digit year
//	         Patterns: "cannot derive census rounds", "no survey period columns"
//
//	SCH003 - Unknown kind: The data kind could not be determined
//	         Action: Choose tree, litter or seed explicitly
//	         Patterns: "unknown data kind", "cannot determine data kind"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Unknown rule: A rule named in the request does not exist
//	         Action: Use a rule id from /api/kinds
//	         Patterns: "unknown rule"
//
//	CFG002 - Invalid configuration: A check threshold is out of range
//	         Action: Fix the CHECK_* settings of the service
//	         Patterns: "invalid check configuration"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit
//	          Action: Split the file by plot
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unreadable file: The file could not be parsed
//	          Action: Save the sheet again as UTF-8 CSV or XLSX
//	          Patterns: "parse csv", "parse xlsx"
//
//	FILE003 - Unsupported format: Only .csv, .xlsx and .xlsm are accepted
//	          Action: Export the sheet as CSV or XLSX
//	          Patterns: "unsupported file format"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a data file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The file has no data rows
//	          Action: Check that the Data sheet holds the survey data
//	          Patterns: "empty file", "no data rows"
//
// # Check Errors (CHK001-CHK099)
//
//	CHK001 - System busy: Too many checks in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent checks"
//
//	CHK002 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	CHK003 - Request timeout: The check took too long
//	         Action: Try a smaller file or try again later
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact the data center
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones. Multiple patterns can map to the same code.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgMissingColumn = UserMessage{
		Message: "A required column is missing",
		Action:  "Compare the header with the template for this data kind",
		Code:    "SCH001",
	}
	msgNoPeriods = UserMessage{
		Message: "No census round columns were found",
		Action:  "Name measurement columns gbh followed by the two-digit year (gbh05)",
		Code:    "SCH002",
	}
	msgUnknownKind = UserMessage{
		Message: "The data kind could not be determined",
		Action:  "Choose tree, litter or seed explicitly",
		Code:    "SCH003",
	}
	msgUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Save the sheet again as UTF-8 CSV or XLSX",
		Code:    "FILE002",
	}
	msgEmpty = UserMessage{
		Message: "The file has no data rows",
		Action:  "Check that the Data sheet holds the survey data",
		Code:    "FILE005",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Schema Errors (SCH001-SCH003)
	// =========================================================================
	{pattern: "missing required column", msg: msgMissingColumn},
	{pattern: "cannot derive census rounds", msg: msgNoPeriods},
	{pattern: "no survey period columns", msg: msgNoPeriods},
	{pattern: "unknown data kind", msg: msgUnknownKind},
	{pattern: "cannot determine data kind", msg: msgUnknownKind},

	// =========================================================================
	// Configuration Errors (CFG001-CFG002)
	// =========================================================================
	{
		pattern: "unknown rule",
		msg: UserMessage{
			Message: "A requested rule does not exist",
			Action:  "Use a rule id listed by /api/kinds",
			Code:    "CFG001",
		},
	},
	{
		pattern: "invalid check configuration",
		msg: UserMessage{
			Message: "The check configuration is invalid",
			Action:  "Fix the CHECK_* settings of the service",
			Code:    "CFG002",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file by plot",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file by plot",
			Code:    "FILE001",
		},
	},
	{pattern: "parse csv", msg: msgUnreadable},
	{pattern: "parse xlsx", msg: msgUnreadable},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Only .csv, .xlsx and .xlsm files are accepted",
			Action:  "Export the sheet as CSV or XLSX",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a data file",
			Code:    "FILE004",
		},
	},
	{pattern: "empty file", msg: msgEmpty},
	{pattern: "no data rows", msg: msgEmpty},

	// =========================================================================
	// Check Errors (CHK001-CHK003)
	// =========================================================================
	{
		pattern: "too many concurrent checks",
		msg: UserMessage{
			Message: "System is busy checking other files",
			Action:  "Please wait a moment and try again",
			Code:    "CHK001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "CHK002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The check took too long",
			Action:  "Try a smaller file or try again later",
			Code:    "CHK003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact the data center",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := &check.SchemaError{Kind: record.KindTree, Missing: []string{"tag_no"}}
//	msg := MapError(err)
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
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

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
