package steps

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/countonsheep/internal/core"
)

func init() {
	core.RegisterStep(core.StepDefinition{
		Name:        "trim_space",
		Description: "Trim surrounding whitespace from cells (all columns unless listed)",
		Factory:     newTrimSpace,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "filter_rows",
		Description: "Keep rows whose column equals (or does not equal) a value",
		Factory:     newFilterRows,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "dedupe_rows",
		Description: "Remove repeated rows, keeping the first occurrence",
		Factory:     newDedupeRows,
	})
}

func newTrimSpace(args core.Args) (core.StepFunc, error) {
	return newCellMapper(args, strings.TrimSpace)
}

// newCellMapper binds a step that rewrites every cell of the target columns.
func newCellMapper(args core.Args, fn func(string) string) (core.StepFunc, error) {
	if err := args.Check("columns"); err != nil {
		return nil, err
	}
	names, _, err := args.Strings("columns")
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
			for r := range values {
				values[r] = fn(values[r])
			}
		}
		return t, nil
	}, nil
}

func newFilterRows(args core.Args) (core.StepFunc, error) {
	if err := args.Check("column", "equals", "not_equals", "ignore_case"); err != nil {
		return nil, err
	}
	column, err := args.RequireString("column")
	if err != nil {
		return nil, err
	}
	equals, hasEquals, err := args.String("equals")
	if err != nil {
		return nil, err
	}
	notEquals, hasNotEquals, err := args.String("not_equals")
	if err != nil {
		return nil, err
	}
	if hasEquals == hasNotEquals {
		return nil, fmt.Errorf("exactly one of %q or %q is required", "equals", "not_equals")
	}
	ignoreCase, err := args.Bool("ignore_case", false)
	if err != nil {
		return nil, err
	}

	want, keepOnMatch := equals, true
	if hasNotEquals {
		want, keepOnMatch = notEquals, false
	}
	match := func(v string) bool { return v == want }
	if ignoreCase {
		match = func(v string) bool { return strings.EqualFold(v, want) }
	}

	return func(t *core.Table) (*core.Table, error) {
		c := t.Index(column)
		if c < 0 {
			return nil, fmt.Errorf("column not found: %q", column)
		}
		var keep []int
		for r, v := range t.Columns[c].Values {
			if match(v) == keepOnMatch {
				keep = append(keep, r)
			}
		}
		return pickRows(t, keep), nil
	}, nil
}

func newDedupeRows(args core.Args) (core.StepFunc, error) {
	if err := args.Check("columns"); err != nil {
		return nil, err
	}
	names, _, err := args.Strings("columns")
	if err != nil {
		return nil, err
	}

	return func(t *core.Table) (*core.Table, error) {
		cols, err := targetColumns(t, names)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, t.NumRows())
		var keep []int
		for r := 0; r < t.NumRows(); r++ {
			key := rowKey(t, cols, r)
			if seen[key] {
				continue
			}
			seen[key] = true
			keep = append(keep, r)
		}
		return pickRows(t, keep), nil
	}, nil
}

// rowKey joins the selected cells of row r with a separator that cannot
// appear in valid UTF-8 text.
func rowKey(t *core.Table, cols []int, r int) string {
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(t.Columns[c].Values[r])
		b.WriteByte(0xff)
	}
	return b.String()
}

// pickRows returns a table holding only the given rows, in order.
func pickRows(t *core.Table, rows []int) *core.Table {
	out := &core.Table{Columns: make([]core.Column, len(t.Columns))}
	for i, col := range t.Columns {
		values := make([]string, len(rows))
		for j, r := range rows {
			values[j] = col.Values[r]
		}
		out.Columns[i] = core.Column{Name: col.Name, Values: values}
	}
	return out
}
