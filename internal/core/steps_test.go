package core

import (
	"errors"
	"strings"
	"testing"
)

// Steps used by the package tests. The built-in steps live in package
// steps, which imports core and so cannot be used here.
func init() {
	RegisterStep(StepDefinition{
		Name: "test_swap",
		Factory: func(args Args) (StepFunc, error) {
			if err := args.Check(); err != nil {
				return nil, err
			}
			return func(t *Table) (*Table, error) {
				if t.NumCols() >= 2 {
					t.Columns[0], t.Columns[1] = t.Columns[1], t.Columns[0]
				}
				return t, nil
			}, nil
		},
	})
	RegisterStep(StepDefinition{
		Name: "test_upper",
		Factory: func(args Args) (StepFunc, error) {
			column, err := args.RequireString("column")
			if err != nil {
				return nil, err
			}
			return func(t *Table) (*Table, error) {
				i := t.Index(column)
				if i < 0 {
					return nil, errors.New("column not found: " + column)
				}
				for r, v := range t.Columns[i].Values {
					t.Columns[i].Values[r] = strings.ToUpper(v)
				}
				return t, nil
			}, nil
		},
	})
	RegisterStep(StepDefinition{
		Name: "test_panic",
		Factory: func(Args) (StepFunc, error) {
			return func(t *Table) (*Table, error) {
				var rows []string
				_ = rows[t.NumRows()+10]
				return t, nil
			}, nil
		},
	})
	RegisterStep(StepDefinition{
		Name: "test_ragged",
		Factory: func(Args) (StepFunc, error) {
			return func(t *Table) (*Table, error) {
				t.Columns = append(t.Columns, Column{Name: "extra", Values: []string{"x"}})
				return t, nil
			}, nil
		},
	})
	RegisterStep(StepDefinition{
		Name: "test_nil",
		Factory: func(Args) (StepFunc, error) {
			return func(*Table) (*Table, error) { return nil, nil }, nil
		},
	})
}

func TestRegisterStep_Panics(t *testing.T) {
	tests := []struct {
		name string
		def  StepDefinition
	}{
		{"empty name", StepDefinition{Factory: func(Args) (StepFunc, error) { return nil, nil }}},
		{"nil factory", StepDefinition{Name: "test_nil_factory"}},
		{"duplicate", StepDefinition{Name: "test_swap", Factory: func(Args) (StepFunc, error) { return nil, nil }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("RegisterStep did not panic")
				}
			}()
			RegisterStep(tt.def)
		})
	}
}

func TestSteps_Sorted(t *testing.T) {
	defs := Steps()
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Fatalf("Steps() not sorted: %q before %q", defs[i-1].Name, defs[i].Name)
		}
	}
	if _, ok := LookupStep("test_swap"); !ok {
		t.Error("test_swap not registered")
	}
}

func TestArgs(t *testing.T) {
	args := Args{
		"name":  "x",
		"count": float64(3),
		"frac":  1.5,
		"flag":  true,
		"list":  []any{"a", "b"},
		"bad":   []any{"a", 1},
	}

	if err := args.Check("name", "count", "frac", "flag", "list", "bad"); err != nil {
		t.Errorf("Check with all keys: %v", err)
	}
	if err := args.Check("name"); err == nil || !strings.Contains(err.Error(), "bad, count") {
		t.Errorf("Check should list unknown keys sorted, got %v", err)
	}

	if n, err := args.Int("count", 0); err != nil || n != 3 {
		t.Errorf("Int(count) = %d, %v", n, err)
	}
	if _, err := args.Int("frac", 0); err == nil {
		t.Error("Int(frac) should reject non-integral float")
	}
	if n, err := args.Int("missing", 7); err != nil || n != 7 {
		t.Errorf("Int(missing) = %d, %v", n, err)
	}
	if _, err := args.Int("name", 0); err == nil {
		t.Error("Int(name) should reject string")
	}

	if b, err := args.Bool("flag", false); err != nil || !b {
		t.Errorf("Bool(flag) = %v, %v", b, err)
	}

	if list, ok, err := args.Strings("list"); err != nil || !ok || len(list) != 2 {
		t.Errorf("Strings(list) = %v, %v, %v", list, ok, err)
	}
	if _, _, err := args.Strings("bad"); err == nil {
		t.Error("Strings(bad) should reject mixed list")
	}
	if list, ok, _ := args.Strings("name"); !ok || len(list) != 1 || list[0] != "x" {
		t.Errorf("Strings(name) = %v, %v", list, ok)
	}

	if _, err := args.RequireString("missing"); err == nil {
		t.Error("RequireString(missing) should fail")
	}
}
