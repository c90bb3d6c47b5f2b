package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t testing.TB, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func loadedRegistry(t testing.TB, files map[string]string) *UnitRegistry {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	reg := NewUnitRegistry(dir)
	if err := reg.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return reg
}

func TestUnitRegistry_Discovery(t *testing.T) {
	reg := loadedRegistry(t, map[string]string{
		"test_script.hcl": `step "test_swap" {}`,
		"shout.yaml":      "steps: [{name: test_upper, args: {column: A}}]",
		"other.yml":       "steps: [{name: test_swap}]",
		"notes.txt":       "not a unit",
		"script.py":       "print('no')",
	})

	want := []string{"other", "shout", "test_script"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	u, ok := reg.Lookup("test_script")
	if !ok || !u.Valid() || u.Format != FormatHCL {
		t.Errorf("Lookup(test_script) = %+v, %v", u, ok)
	}
	if reg.LoadedAt().IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestUnitRegistry_IgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested.hcl"), 0o755); err != nil {
		t.Fatal(err)
	}
	reg := NewUnitRegistry(dir)
	if err := reg.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestUnitRegistry_MissingDirectory(t *testing.T) {
	reg := NewUnitRegistry(filepath.Join(t.TempDir(), "absent"))
	if err := reg.Reload(context.Background()); err != nil {
		t.Fatalf("Reload on missing dir: %v", err)
	}
	if n := len(reg.Names()); n != 0 {
		t.Errorf("Names() has %d entries, want 0", n)
	}
}

func TestUnitRegistry_Malformed(t *testing.T) {
	reg := loadedRegistry(t, map[string]string{
		"unknown_step.hcl": `step "no_such_step" {}`,
		"bad_args.yaml":    "steps: [{name: test_upper}]",
		"syntax.hcl":       `step "test_swap" {`,
		"empty.yaml":       "",
		"twice.hcl":        `step "test_swap" {}`,
		"twice.yaml":       "steps: [{name: test_swap}]",
	})

	for _, name := range []string{"unknown_step", "bad_args", "syntax", "empty", "twice"} {
		t.Run(name, func(t *testing.T) {
			u, ok := reg.Lookup(name)
			if !ok {
				t.Fatalf("malformed unit %q not listed", name)
			}
			if u.Valid() {
				t.Errorf("unit %q should be malformed", name)
			}
			info := u.Info()
			if info.Valid || info.Error == "" {
				t.Errorf("Info() = %+v", info)
			}

			tbl, _ := NewTable([]string{"A"}, [][]string{{"a"}})
			_, err := Execute(context.Background(), reg, name, tbl)
			if !errors.Is(err, ErrUnitMalformed) {
				t.Errorf("Execute error = %v, want ErrUnitMalformed", err)
			}
		})
	}
}

func TestUnitRegistry_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	reg := NewUnitRegistry(dir)
	ctx := context.Background()

	if err := reg.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", reg.Len())
	}

	writeFile(t, dir, "swap.hcl", `step "test_swap" {}`)
	if err := reg.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Lookup("swap"); !ok {
		t.Error("new unit not discovered after Reload")
	}

	if err := os.Remove(filepath.Join(dir, "swap.hcl")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Lookup("swap"); ok {
		t.Error("removed unit still listed after Reload")
	}
}
