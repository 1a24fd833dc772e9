package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference. Users quote the code; support looks it up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: The selected file exceeds the size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - No file: No file was provided with the selection
//	          Patterns: "no file provided"
//	FILE003 - Unreadable file: The selected file could not be read
//	          Patterns: "read selected file"
//	FILE004 - Empty file: The selected file is empty
//	          Patterns: "empty file"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Missing files: Both a PDF and a CSV must be selected
//	         Patterns: "both pdf and csv"
//	UPL002 - Upload running: This session already has an upload in flight
//	         Patterns: "upload already in progress"
//	UPL003 - System busy: Too many uploads across all users
//	         Patterns: "too many concurrent uploads"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Endpoint Errors (EP001-EP099)
//
//	EP001 - Endpoint unreachable: Patterns: "connection refused"
//	EP002 - Unknown host: Patterns: "no such host"
//	EP003 - Endpoint rejected the upload: Patterns: "request failed with status code"
//	EP004 - Malformed response: Patterns: "invalid response body"
//	EP005 - Endpoint reported an error: Patterns: "endpoint reported"
//	EP006 - Endpoint timeout: Patterns: "timeout"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown field: Patterns: "unknown export field"
//	EXP002 - Nothing to export: Patterns: "nothing to export"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// original technical error, correlated by request_id.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns precede general ones.

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

var errorPatterns = []errorPattern{
	// File selection
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The selected file exceeds the size limit",
			Action:  "Choose a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The selected file exceeds the size limit",
			Action:  "Choose a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Pick a file before submitting",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read selected file",
		msg: UserMessage{
			Message: "The selected file could not be read",
			Action:  "Select the file again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The selected file is empty",
			Action:  "Select a file with content",
			Code:    "FILE004",
		},
	},

	// Upload workflow
	{
		pattern: "both pdf and csv",
		msg: UserMessage{
			Message: "Please select both PDF and CSV files!",
			Action:  "Choose a regulations PDF and a dataset CSV, then upload",
			Code:    "UPL001",
		},
	},
	{
		pattern: "upload already in progress",
		msg: UserMessage{
			Message: "An upload is already in progress",
			Action:  "Wait for the current upload to finish",
			Code:    "UPL002",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "The system is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try smaller files or try again later",
			Code:    "UPL005",
		},
	},

	// Endpoint
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The profiling service is not reachable",
			Action:  "Check that the service is running and try again",
			Code:    "EP001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The profiling service host could not be resolved",
			Action:  "Check the configured endpoint URL",
			Code:    "EP002",
		},
	},
	{
		pattern: "request failed with status code",
		msg: UserMessage{
			Message: "The profiling service rejected the upload",
			Action:  "Check the files and try again",
			Code:    "EP003",
		},
	},
	{
		pattern: "invalid response body",
		msg: UserMessage{
			Message: "The profiling service returned an unreadable response",
			Action:  "Please try again or contact support",
			Code:    "EP004",
		},
	},
	{
		pattern: "endpoint reported",
		msg: UserMessage{
			Message: "The profiling service could not process the files",
			Action:  "Review the error details and try again",
			Code:    "EP005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The profiling service took too long to respond",
			Action:  "Try again later",
			Code:    "EP006",
		},
	},

	// Export
	{
		pattern: "unknown export field",
		msg: UserMessage{
			Message: "There is no such response field",
			Action:  "Use one of the export buttons on the page",
			Code:    "EXP001",
		},
	},
	{
		pattern: "nothing to export",
		msg: UserMessage{
			Message: "This field has no data to export",
			Action:  "Upload files first",
			Code:    "EXP002",
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

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
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

// IsUserFacing reports whether an error matches a known pattern, as opposed
// to the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
