package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Error Codes Reference
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	          Matches: ErrFileTooLarge, "file too large"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure file is comma-separated with consistent columns
//	          Matches: ErrLoad, "invalid csv"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 encoding
//	          Matches: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Matches: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a CSV file with a header row
//	          Matches: ErrEmptyFile, "empty file"
//
// # Transform Errors (UNIT001-UNIT099)
//
//	UNIT001 - Transform not found
//	UNIT002 - Transform is malformed (manifest failed validation)
//	UNIT003 - Transform failed while running
//	UNIT004 - Transform produced an invalid table
//
// # Export Errors (EXP001)
//
//	EXP001 - Result could not be exported
//
// # Run Errors (RUN001)
//
//	RUN001 - Too many transforms running
//
// # Session Errors (SES001-SES002)
//
//	SES001 - No input file loaded
//	SES002 - No result available for download
//
// # Catalog and Gallery Errors
//
//	CAT001 - Catalog entry rejected ("invalid catalog entry")
//	GAL001 - Template file not found ("template not found")
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests ("rate limit")
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error. Check application logs for the technical error.
//
// # Matching
//
// Sentinels are checked first with errors.Is. Errors from other packages
// fall back to case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// String formats the message as "Message (Code: XXX). Action".
func (m UserMessage) String() string {
	if m.Message == "" {
		return ""
	}
	if m.Code == "" {
		return m.Message
	}
	return fmt.Sprintf("%s (Code: %s). %s", m.Message, m.Code, m.Action)
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save file as UTF-8 encoding",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgUnitNotFound = UserMessage{
		Message: "Transform not found",
		Action:  "Pick one of the listed transforms",
		Code:    "UNIT001",
	}
	msgUnitMalformed = UserMessage{
		Message: "Transform is malformed",
		Action:  "Fix the transform file and reload the page",
		Code:    "UNIT002",
	}
	msgUnitRuntime = UserMessage{
		Message: "Transform failed while running",
		Action:  "Check that the file has the columns the transform expects",
		Code:    "UNIT003",
	}
	msgUnitContract = UserMessage{
		Message: "Transform produced an invalid table",
		Action:  "Report this transform to its maintainer",
		Code:    "UNIT004",
	}
	msgEncode = UserMessage{
		Message: "Result could not be exported",
		Action:  "Run the transform again",
		Code:    "EXP001",
	}
	msgTooManyRuns = UserMessage{
		Message: "System is busy running other transforms",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}
	msgNoInput = UserMessage{
		Message: "No input file loaded",
		Action:  "Please upload a file first",
		Code:    "SES001",
	}
	msgNoResult = UserMessage{
		Message: "No result available",
		Action:  "Run a transform before downloading",
		Code:    "SES002",
	}
	msgCatalogInvalid = UserMessage{
		Message: "Catalog entry was rejected",
		Action:  "Provide a name and an absolute http(s) URL",
		Code:    "CAT001",
	}
	msgTemplateNotFound = UserMessage{
		Message: "Template file not found",
		Action:  "Pick one of the listed templates",
		Code:    "GAL001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

type errorSentinel struct {
	target error
	msg    UserMessage
}

// Order matters: an encoding ParseError matches ErrLoad too, so the more
// specific sentinels come first.
var errorSentinels = []errorSentinel{
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrEmptyFile, msgEmptyFile},
	{errInvalidUTF8, msgEncoding},
	{ErrLoad, msgInvalidCSV},
	{ErrUnitNotFound, msgUnitNotFound},
	{ErrUnitMalformed, msgUnitMalformed},
	{ErrUnitRuntime, msgUnitRuntime},
	{ErrUnitContract, msgUnitContract},
	{ErrEncode, msgEncode},
	{ErrTooManyRuns, msgTooManyRuns},
	{ErrNoInput, msgNoInput},
	{ErrNoResult, msgNoResult},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors from packages that core does not import.
var errorPatterns = []errorPattern{
	{"file too large", msgFileTooLarge},
	{"request body too large", msgFileTooLarge},
	{"encoding error", msgEncoding},
	{"invalid csv", msgInvalidCSV},
	{"no file provided", msgNoFile},
	{"no such file", msgNoFile},
	{"empty file", msgEmptyFile},
	{"invalid catalog entry", msgCatalogInvalid},
	{"template not found", msgTemplateNotFound},
	{"rate limit", msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
		if errors.Is(err, s.target) {
			return s.msg
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
func FormatUserError(err error) string {
	return MapError(err).String()
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
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
