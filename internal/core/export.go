package core

import (
	"bytes"
	"encoding/csv"
	"io"
	"path"
	"strings"
	"unicode"
)

// CSVContentType is the MIME type used for downloads.
const CSVContentType = "text/csv"

// EncodeCSV serializes t as CSV: a header row of column names followed by
// one record per row. Output uses encoding/csv canonical form, so
// EncodeCSV(LoadCSV(x)) reproduces x whenever x is already canonical.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV streams t to w in the format produced by EncodeCSV.
func WriteCSV(w io.Writer, t *Table) error {
	if err := t.Validate(); err != nil {
		return &EncodeError{Err: err}
	}

	cw := csv.NewWriter(w)
	if err := writeRecord(w, cw, t.Names()); err != nil {
		return &EncodeError{Err: err}
	}

	record := make([]string, len(t.Columns))
	for i, n := 0, t.NumRows(); i < n; i++ {
		for c := range t.Columns {
			record[c] = t.Columns[c].Values[i]
		}
		if err := writeRecord(w, cw, record); err != nil {
			return &EncodeError{Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

// writeRecord writes one record. csv.Writer emits a lone empty field as a
// blank line, which readers skip, so that case is written quoted instead.
func writeRecord(w io.Writer, cw *csv.Writer, record []string) error {
	if len(record) != 1 || record[0] != "" {
		return cw.Write(record)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\"\"\n")
	return err
}

// ExportFilename derives the download name "{input-base}_{transform-base}.csv".
// Each base is the file name without directory or extension, with
// characters unsafe in a Content-Disposition header replaced by '_'.
func ExportFilename(inputName, unitName string) string {
	in := safeBase(inputName, "output")
	unit := safeBase(unitName, "transform")
	return in + "_" + unit + ".csv"
}

func safeBase(name, fallback string) string {
	// Some browsers send full Windows paths.
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))

	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '/' || r == '\\' || r == ';':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return fallback
	}
	return name
}
