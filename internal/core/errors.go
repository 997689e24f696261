// Package core runs the badge mail merge.
//
// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Typed errors are recognised with errors.Is and
// errors.As first; anything else falls back to case-insensitive substring
// patterns.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Missing files: one or more required exports are absent
//	         Action: Export the missing reports into the source folder
//	         Matches: *sources.MissingFilesError
//
//	SRC002 - Unreadable file: a source file could not be parsed
//	         Action: Re-export the report as .xlsx or .csv
//	         Matches: *sources.UnreadableError
//
//	SRC003 - Source folder: the source folder could not be opened
//	         Action: Check MERGE_SOURCE_DIR
//	         Patterns: "reading source directory"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing columns: the registration list lacks required columns
//	         Action: Re-export the registration list with the standard view
//	         Matches: *merge.MissingColumnsError
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid settings: time zone or filters are invalid
//	         Matches: preprocess.ErrInvalidConfig
//
// # Rule Set Errors (RULE001-RULE099)
//
//	RULE001 - Unknown rule set
//	          Matches: ErrUnknownRuleSet
//
//	RULE002 - Invalid rule set: a template or rules file is malformed
//	          Matches: preprocess.ErrInvalidRuleSet
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate template name (store.ErrDuplicateName)
//	DB002 - Template not found (ErrTemplateNotFound)
//	DB003 - No database configured (ErrNoDatabase)
//	DB004 - Connection refused ("connection refused")
//	DB005 - Connection reset ("connection reset")
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - System busy (ErrTooManyRuns)
//	REQ002 - Request cancelled (context.Canceled)
//	REQ003 - Run timed out (context.DeadlineExceeded, "timeout")
//	REQ004 - Invalid request (ErrInvalidRequest)
//	REQ005 - Upload too large ("request body too large", "file too large")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// original error.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/merge"
	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/sources"
	"github.com/JonMunkholm/badgemerge/internal/store"
)

var (
	// ErrUnknownRuleSet is returned when a run names a rule set that no
	// template, rules file or built-in defines.
	ErrUnknownRuleSet = errors.New("unknown rule set")

	// ErrNoDatabase is returned by template and history operations when no
	// database is configured.
	ErrNoDatabase = errors.New("database not configured")

	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidRequest marks malformed input from a caller.
	ErrInvalidRequest = errors.New("invalid request")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorMatcher recognises a typed or sentinel error.
type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func isA[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorMatchers are tried in order before the string patterns. The first
// match wins.
var errorMatchers = []errorMatcher{
	{
		match: isA[*sources.MissingFilesError],
		msg: UserMessage{
			Message: "Some required export files are missing",
			Action:  "Export the missing reports into the source folder and try again",
			Code:    "SRC001",
		},
	},
	{
		match: isA[*sources.UnreadableError],
		msg: UserMessage{
			Message: "A source file could not be read",
			Action:  "Re-export the report as .xlsx or .csv and try again",
			Code:    "SRC002",
		},
	},
	{
		match: isA[*merge.MissingColumnsError],
		msg: UserMessage{
			Message: "The registration list is missing required columns",
			Action:  "Re-export the registration list with the standard columns",
			Code:    "COL001",
		},
	},
	{
		match: is(preprocess.ErrInvalidConfig),
		msg: UserMessage{
			Message: "The run settings are invalid",
			Action:  "Check the time zone and filter values",
			Code:    "CFG001",
		},
	},
	{
		match: is(ErrUnknownRuleSet),
		msg: UserMessage{
			Message: "The requested rule set does not exist",
			Action:  "Pick one of the listed rule sets or leave it blank",
			Code:    "RULE001",
		},
	},
	{
		match: is(preprocess.ErrInvalidRuleSet),
		msg: UserMessage{
			Message: "The rule set is invalid",
			Action:  "Give the rule set a name and make sure no search text is empty",
			Code:    "RULE002",
		},
	},
	{
		match: is(store.ErrDuplicateName),
		msg: UserMessage{
			Message: "A template with this name already exists",
			Action:  "Choose a different name or edit the existing template",
			Code:    "DB001",
		},
	},
	{
		match: is(ErrTemplateNotFound),
		msg: UserMessage{
			Message: "Template not found",
			Action:  "Refresh the template list",
			Code:    "DB002",
		},
	},
	{
		match: is(ErrNoDatabase),
		msg: UserMessage{
			Message: "Templates and run history need a database",
			Action:  "Set DATABASE_URL and restart the server",
			Code:    "DB003",
		},
	},
	{
		match: is(ErrTooManyRuns),
		msg: UserMessage{
			Message: "Too many merges are running",
			Action:  "Please wait a moment and try again",
			Code:    "REQ001",
		},
	},
	{
		match: is(context.Canceled),
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		match: is(context.DeadlineExceeded),
		msg: UserMessage{
			Message: "The merge took too long",
			Action:  "Try again, or narrow the run with a sub-event or filters",
			Code:    "REQ003",
		},
	},
	{
		match: is(ErrInvalidRequest),
		msg: UserMessage{
			Message: "The request is invalid",
			Action:  "Check the submitted fields",
			Code:    "REQ004",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns cover errors that arrive without a type, mostly from the
// driver and net/http. Matching is case-insensitive and the first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "reading source directory",
		msg: UserMessage{
			Message: "The source folder could not be opened",
			Action:  "Check MERGE_SOURCE_DIR",
			Code:    "SRC003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The merge took too long",
			Action:  "Try again, or narrow the run with a sub-event or filters",
			Code:    "REQ003",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the maximum size",
			Action:  "Upload smaller exports",
			Code:    "REQ005",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Upload exceeds the maximum size",
			Action:  "Upload smaller exports",
			Code:    "REQ005",
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
//	_, err := svc.Run(ctx, req)
//	msg := MapError(err) // msg.Code == "SRC001" when exports are missing
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
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
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
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
