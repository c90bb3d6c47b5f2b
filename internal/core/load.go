package core

import (
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("encoding error: invalid UTF-8, save the file as UTF-8")

// LoadOptions controls LoadCSV.
type LoadOptions struct {
	// MaxBytes bounds the raw upload size. Zero means unlimited.
	MaxBytes int64

	// Comma is the field delimiter (default ',').
	Comma rune
}

// LoadCSV parses delimited text with a header row into a Table.
//
// Every record must have as many fields as the header and every field must
// be valid UTF-8. A leading UTF-8 BOM is ignored. Failures are returned as
// *ParseError and no table is produced.
func LoadCSV(r io.Reader, opts LoadOptions) (*Table, error) {
	cr := csv.NewReader(WrapUpload(r, opts.MaxBytes))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	// Zero means "same count as the first record", i.e. the header.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, toParseError(err)
	}
	if perr := checkUTF8(header, 1); perr != nil {
		return nil, perr
	}

	t := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		t.Columns[i] = Column{Name: name}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		line, _ := cr.FieldPos(0)
		if perr := checkUTF8(record, line); perr != nil {
			return nil, perr
		}
		for i, cell := range record {
			t.Columns[i].Values = append(t.Columns[i].Values, cell)
		}
	}

	return t, nil
}

func toParseError(err error) *ParseError {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Column: csvErr.Column, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}

func checkUTF8(record []string, line int) *ParseError {
	for i, field := range record {
		if !utf8.ValidString(field) {
			return &ParseError{Line: line, Column: i + 1, Err: errInvalidUTF8}
		}
	}
	return nil
}
