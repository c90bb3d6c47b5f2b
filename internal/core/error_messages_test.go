package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name: "nil error returns empty",
			err:  nil,
		},
		{
			name:        "wrapped sentinel",
			err:         fmt.Errorf("upload: %w", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "parse error",
			err:         &ParseError{Line: 3, Err: errors.New("wrong number of fields")},
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV",
		},
		{
			name:     "encoding parse error is more specific than invalid csv",
			err:      &ParseError{Line: 2, Column: 1, Err: errInvalidUTF8},
			wantCode: "FILE003",
		},
		{
			name:     "malformed unit",
			err:      &UnitError{Unit: "x", Kind: UnitMalformed, Err: errors.New("unknown step")},
			wantCode: "UNIT002",
		},
		{
			name:     "too many runs",
			err:      ErrTooManyRuns,
			wantCode: "RUN001",
		},
		{
			name:     "missing multipart file falls back to pattern",
			err:      errors.New("http: no such file"),
			wantCode: "FILE004",
		},
		{
			name:     "catalog validation pattern",
			err:      errors.New("invalid catalog entry: url is required"),
			wantCode: "CAT001",
		},
		{
			name:     "gallery pattern",
			err:      errors.New("template not found"),
			wantCode: "GAL001",
		},
		{
			name:        "rate limit pattern is case insensitive",
			err:         errors.New("RATE LIMIT exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoInput)
	want := "No input file loaded (Code: SES001). Please upload a file first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrUnitNotFound) {
		t.Error("ErrUnitNotFound should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown errors should not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	ue := NewUserError(ErrNoResult)
	if ue.Error() != "No result available" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, ErrNoResult) {
		t.Error("UserError should unwrap to the technical error")
	}
}
