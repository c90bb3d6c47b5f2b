package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func executorRegistry(t *testing.T) *UnitRegistry {
	t.Helper()
	return loadedRegistry(t, map[string]string{
		"test_script.hcl":  `step "test_swap" {}`,
		"shout.yaml":       "steps: [{name: test_swap}, {name: test_upper, args: {column: A}}]",
		"missing_col.yaml": "steps: [{name: test_upper, args: {column: Z}}]",
		"boom.hcl":         `step "test_panic" {}`,
		"ragged.hcl":       `step "test_ragged" {}`,
		"nil.hcl":          `step "test_nil" {}`,
	})
}

func TestExecute_Swap(t *testing.T) {
	reg := executorRegistry(t)
	in, _ := NewTable([]string{"A", "B", "C"}, [][]string{{"1", "2", "3"}})

	out, err := Execute(context.Background(), reg, "test_script", in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want, _ := NewTable([]string{"B", "A", "C"}, [][]string{{"2", "1", "3"}})
	if diff := cmp.Diff(want.Rows(), out.Rows()); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Names(), out.Names()); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
}

func TestExecute_DoesNotModifyInput(t *testing.T) {
	reg := executorRegistry(t)
	in, _ := NewTable([]string{"A", "B"}, [][]string{{"x", "y"}})

	out, err := Execute(context.Background(), reg, "shout", in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.Row(0); got[1] != "X" {
		t.Errorf("output row = %v, want A upper-cased", got)
	}
	if diff := cmp.Diff([]string{"A", "B"}, in.Names()); diff != "" {
		t.Errorf("input columns changed:\n%s", diff)
	}
	if in.Row(0)[0] != "x" {
		t.Errorf("input cell changed to %q", in.Row(0)[0])
	}
}

func TestExecute_Failures(t *testing.T) {
	reg := executorRegistry(t)

	tests := []struct {
		name     string
		unit     string
		wantIs   error
		wantKind UnitErrorKind
		wantCode string
	}{
		{"unknown unit", "does_not_exist", ErrUnitNotFound, UnitNotFound, "UNIT001"},
		{"step error", "missing_col", ErrUnitRuntime, UnitRuntime, "UNIT003"},
		{"step panic", "boom", ErrUnitRuntime, UnitRuntime, "UNIT003"},
		{"ragged result", "ragged", ErrUnitContract, UnitContract, "UNIT004"},
		{"nil result", "nil", ErrUnitContract, UnitContract, "UNIT004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := NewTable([]string{"A", "B"}, [][]string{{"1", "2"}, {"3", "4"}})

			out, err := Execute(context.Background(), reg, tt.unit, in)
			if out != nil {
				t.Errorf("Execute returned a table on failure")
			}
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("error = %v, want %v", err, tt.wantIs)
			}
			var uerr *UnitError
			if !errors.As(err, &uerr) {
				t.Fatalf("error %T is not *UnitError", err)
			}
			if uerr.Kind != tt.wantKind || uerr.Unit != tt.unit {
				t.Errorf("UnitError = %+v", uerr)
			}
			if code := MapError(err).Code; code != tt.wantCode {
				t.Errorf("MapError code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestExecute_PanicMessageCaptured(t *testing.T) {
	reg := executorRegistry(t)
	in, _ := NewTable([]string{"A"}, [][]string{{"1"}})

	_, err := Execute(context.Background(), reg, "boom", in)
	if err == nil || !strings.Contains(err.Error(), "panic: runtime error: index out of range") {
		t.Errorf("error = %v, want recovered panic message", err)
	}
}

func TestExecute_NoInput(t *testing.T) {
	reg := executorRegistry(t)
	if _, err := Execute(context.Background(), reg, "test_script", nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("error = %v, want ErrNoInput", err)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	reg := executorRegistry(t)
	in, _ := NewTable([]string{"A"}, [][]string{{"1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Execute(ctx, reg, "test_script", in); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
