package steps

// normalize.go rewrites messy spreadsheet values into canonical text:
//   - dates in US, EU and ISO layouts, with 2-digit year pivoting
//   - numbers with currency symbols, thousands separators and accounting
//     negatives "(123.45)"
//   - booleans spelled yes/no, t/f, y/n, 1/0
//   - Excel formula prefixes (="value") and stray quotes
//
// Values that cannot be parsed are left as they are unless the step is
// strict, in which case the run fails.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/countonsheep/internal/core"
)

func init() {
	core.RegisterStep(core.StepDefinition{
		Name:        "clean_cells",
		Description: "Strip Excel formula prefixes, surrounding quotes and whitespace",
		Factory: func(args core.Args) (core.StepFunc, error) {
			return newCellMapper(args, CleanCell)
		},
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "normalize_dates",
		Description: "Rewrite dates in a single layout (default 2006-01-02)",
		Factory:     newNormalizeDates,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "normalize_numbers",
		Description: "Strip currency symbols and separators from numbers",
		Factory:     newNormalizeNumbers,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "normalize_bools",
		Description: "Rewrite yes/no style values as true/false",
		Factory:     newNormalizeBools,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "normalize_us_states",
		Description: "Rewrite US state names as 2-letter codes",
		Factory: func(args core.Args) (core.StepFunc, error) {
			return newCellMapper(args, NormalizeUsState)
		},
	})
}

// numericRegex validates a number after cleanup: integers, decimals and
// scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years more than this many years in the future are moved back a century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// CleanCell removes common CSV artifacts from a cell value.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ParseDate parses s in any supported layout.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// 4-digit layouts first, they are unambiguous.
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber returns s as a plain decimal string.
func ParseNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return "", false
	}
	return s, true
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// parser converts one non-empty cell; ok is false when it does not parse.
type parser func(s string) (out string, ok bool)

// newParsingStep binds a step that rewrites parseable cells of the target
// columns. Blank cells are left alone.
func newParsingStep(args core.Args, kind string, parse parser, extra ...string) (core.StepFunc, error) {
	if err := args.Check(append([]string{"columns", "strict"}, extra...)...); err != nil {
		return nil, err
	}
	names, _, err := args.Strings("columns")
	if err != nil {
		return nil, err
	}
	strict, err := args.Bool("strict", false)
	if err != nil {
		return nil, err
	}

	return func(t *core.Table) (*core.Table, error) {
		cols, err := targetColumns(t, names)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			values := t.Columns[c].Values
			for r, v := range values {
				if strings.TrimSpace(v) == "" {
					continue
				}
				out, ok := parse(v)
				if !ok {
					if strict {
						return nil, fmt.Errorf("invalid %s %q in column %q, row %d", kind, v, t.Columns[c].Name, r+1)
					}
					continue
				}
				values[r] = out
			}
		}
		return t, nil
	}, nil
}

func newNormalizeDates(args core.Args) (core.StepFunc, error) {
	layout, ok, err := args.String("layout")
	if err != nil {
		return nil, err
	}
	if !ok || layout == "" {
		layout = time.DateOnly
	}
	now := time.Now()
	return newParsingStep(args, "date", func(s string) (string, bool) {
		t, ok := ParseDate(s, now)
		if !ok {
			return "", false
		}
		return t.Format(layout), true
	}, "layout")
}

func newNormalizeNumbers(args core.Args) (core.StepFunc, error) {
	return newParsingStep(args, "number", ParseNumber)
}

func newNormalizeBools(args core.Args) (core.StepFunc, error) {
	trueText, ok, err := args.String("true")
	if err != nil {
		return nil, err
	}
	if !ok {
		trueText = "true"
	}
	falseText, ok, err := args.String("false")
	if err != nil {
		return nil, err
	}
	if !ok {
		falseText = "false"
	}
	return newParsingStep(args, "boolean", func(s string) (string, bool) {
		b, ok := ParseBool(s)
		if !ok {
			return "", false
		}
		if b {
			return trueText, true
		}
		return falseText, true
	}, "true", "false")
}
