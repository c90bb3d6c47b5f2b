package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseManifest_HCL(t *testing.T) {
	src := `
description = "Swap then shout"

step "test_swap" {}

step "test_upper" {
  column = "A"
  limit  = 3
  flags  = ["x", "y"]
  strict = true
}
`
	m, err := ParseManifest("unit.hcl", FormatHCL, []byte(src))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	want := &Manifest{
		Description: "Swap then shout",
		Steps: []ManifestStep{
			{Name: "test_swap", Args: Args{}},
			{Name: "test_upper", Args: Args{
				"column": "A",
				"limit":  float64(3),
				"flags":  []any{"x", "y"},
				"strict": true,
			}},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifest_YAML(t *testing.T) {
	src := `
description: Swap then shout
steps:
  - name: test_swap
  - name: test_upper
    args:
      column: A
`
	m, err := ParseManifest("unit.yaml", FormatYAML, []byte(src))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	want := &Manifest{
		Description: "Swap then shout",
		Steps: []ManifestStep{
			{Name: "test_swap"},
			{Name: "test_upper", Args: Args{"column": "A"}},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		src    string
	}{
		{"hcl syntax", FormatHCL, `step "x" {`},
		{"hcl unknown attribute", FormatHCL, `title = "x"`},
		{"hcl step without label", FormatHCL, `step {}`},
		{"hcl variable reference", FormatHCL, `step "x" { a = var.y }`},
		{"yaml syntax", FormatYAML, "steps: [\n"},
		{"yaml unknown field", FormatYAML, "title: x\n"},
		{"yaml missing name", FormatYAML, "steps:\n  - args: {a: 1}\n"},
		{"unknown format", "toml", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m, err := ParseManifest("unit", tt.format, []byte(tt.src)); err == nil {
				t.Errorf("ParseManifest() = %+v, want error", m)
			}
		})
	}
}

func TestManifestFormat(t *testing.T) {
	tests := map[string]string{
		"a.hcl":  FormatHCL,
		"a.HCL":  FormatHCL,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
		"a.py":   "",
		"a":      "",
	}
	for name, want := range tests {
		if got := ManifestFormat(name); got != want {
			t.Errorf("ManifestFormat(%q) = %q, want %q", name, got, want)
		}
	}
}
