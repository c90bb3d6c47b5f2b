// Package steps registers the built-in table steps with the core step
// registry. Import it for side effects wherever units are loaded.
package steps

import (
	"fmt"

	"github.com/JonMunkholm/countonsheep/internal/core"
)

func init() {
	core.RegisterStep(core.StepDefinition{
		Name:        "swap_columns",
		Description: "Exchange the positions of two columns (default: the first two)",
		Factory:     newSwapColumns,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "select_columns",
		Description: "Keep only the named columns, in the given order",
		Factory:     newSelectColumns,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "drop_columns",
		Description: "Remove the named columns",
		Factory:     newDropColumns,
	})
	core.RegisterStep(core.StepDefinition{
		Name:        "rename_column",
		Description: "Rename a column",
		Factory:     newRenameColumn,
	})
}

// newSwapColumns binds swap_columns {first = 0, second = 1}.
// With default positions a table of fewer than two columns passes through
// unchanged; explicit positions must exist.
func newSwapColumns(args core.Args) (core.StepFunc, error) {
	if err := args.Check("first", "second"); err != nil {
		return nil, err
	}
	_, explicitFirst := args["first"]
	_, explicitSecond := args["second"]
	first, err := args.Int("first", 0)
	if err != nil {
		return nil, err
	}
	second, err := args.Int("second", 1)
	if err != nil {
		return nil, err
	}
	if first < 0 || second < 0 {
		return nil, fmt.Errorf("column positions must not be negative")
	}
	explicit := explicitFirst || explicitSecond

	return func(t *core.Table) (*core.Table, error) {
		n := t.NumCols()
		if first >= n || second >= n {
			if !explicit {
				return t, nil
			}
			return nil, fmt.Errorf("cannot swap columns %d and %d of a %d-column table", first, second, n)
		}
		t.Columns[first], t.Columns[second] = t.Columns[second], t.Columns[first]
		return t, nil
	}, nil
}

func newSelectColumns(args core.Args) (core.StepFunc, error) {
	if err := args.Check("columns"); err != nil {
		return nil, err
	}
	names, ok, err := args.Strings("columns")
	if err != nil {
		return nil, err
	}
	if !ok || len(names) == 0 {
		return nil, fmt.Errorf("argument %q is required", "columns")
	}

	return func(t *core.Table) (*core.Table, error) {
		idx, err := indexes(t, names)
		if err != nil {
			return nil, err
		}
		out := &core.Table{Columns: make([]core.Column, len(idx))}
		for i, c := range idx {
			src := t.Columns[c]
			out.Columns[i] = core.Column{Name: src.Name, Values: append([]string(nil), src.Values...)}
		}
		return out, nil
	}, nil
}

func newDropColumns(args core.Args) (core.StepFunc, error) {
	if err := args.Check("columns", "missing_ok"); err != nil {
		return nil, err
	}
	names, ok, err := args.Strings("columns")
	if err != nil {
		return nil, err
	}
	if !ok || len(names) == 0 {
		return nil, fmt.Errorf("argument %q is required", "columns")
	}
	missingOK, err := args.Bool("missing_ok", false)
	if err != nil {
		return nil, err
	}

	return func(t *core.Table) (*core.Table, error) {
		drop := make(map[string]bool, len(names))
		for _, name := range names {
			if t.Index(name) < 0 && !missingOK {
				return nil, fmt.Errorf("column not found: %q", name)
			}
			drop[name] = true
		}
		kept := t.Columns[:0]
		for _, c := range t.Columns {
			if !drop[c.Name] {
				kept = append(kept, c)
			}
		}
		t.Columns = kept
		return t, nil
	}, nil
}

func newRenameColumn(args core.Args) (core.StepFunc, error) {
	if err := args.Check("from", "to"); err != nil {
		return nil, err
	}
	from, err := args.RequireString("from")
	if err != nil {
		return nil, err
	}
	to, err := args.RequireString("to")
	if err != nil {
		return nil, err
	}

	return func(t *core.Table) (*core.Table, error) {
		i := t.Index(from)
		if i < 0 {
			return nil, fmt.Errorf("column not found: %q", from)
		}
		t.Columns[i].Name = to
		return t, nil
	}, nil
}

// indexes resolves column names to positions, failing on the first
// missing name.
func indexes(t *core.Table, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		c := t.Index(name)
		if c < 0 {
			return nil, fmt.Errorf("column not found: %q", name)
		}
		idx[i] = c
	}
	return idx, nil
}

// targetColumns resolves an optional column list; absent means every column.
func targetColumns(t *core.Table, names []string) ([]int, error) {
	if len(names) == 0 {
		all := make([]int, t.NumCols())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	return indexes(t, names)
}
