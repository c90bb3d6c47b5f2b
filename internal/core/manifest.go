package core

// manifest.go decodes transform unit manifests. A manifest is an ordered
// list of registered steps with their arguments, written either in HCL:
//
//	description = "Swap the first two columns"
//	step "swap_columns" {}
//	step "rename_column" {
//	  from = "A"
//	  to   = "Alpha"
//	}
//
// or in YAML:
//
//	description: Swap the first two columns
//	steps:
//	  - name: swap_columns
//	  - name: rename_column
//	    args: {from: A, to: Alpha}

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// Manifest formats, keyed by file extension.
const (
	FormatHCL  = "hcl"
	FormatYAML = "yaml"
)

var manifestExtensions = map[string]string{
	".hcl":  FormatHCL,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
}

// ManifestFormat returns the manifest format for a file name, or "" if the
// extension is not a manifest extension.
func ManifestFormat(fileName string) string {
	return manifestExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Manifest is a decoded unit manifest.
type Manifest struct {
	Description string
	Steps       []ManifestStep
}

// ManifestStep is one step reference of a manifest.
type ManifestStep struct {
	Name string
	Args Args
}

// ParseManifest decodes manifest data in the given format.
// filename is used in diagnostics only.
func ParseManifest(filename, format string, data []byte) (*Manifest, error) {
	switch format {
	case FormatHCL:
		return parseHCLManifest(filename, data)
	case FormatYAML:
		return parseYAMLManifest(data)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

type hclManifest struct {
	Description string     `hcl:"description,optional"`
	Steps       []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

func parseHCLManifest(filename string, data []byte) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse HCL: %w", diags)
	}

	var parsed hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode HCL: %w", diags)
	}

	m := &Manifest{Description: parsed.Description}
	for _, s := range parsed.Steps {
		attrs, diags := s.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("step %q: %w", s.Name, diags)
		}

		args := make(Args, len(attrs))
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("step %q: argument %q: %w", s.Name, name, diags)
			}
			native, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("step %q: argument %q: %w", s.Name, name, err)
			}
			args[name] = native
		}
		m.Steps = append(m.Steps, ManifestStep{Name: s.Name, Args: args})
	}
	return m, nil
}

// ctyToNative converts a cty.Value to its natural Go counterpart.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("convert bool: %w", err)
		}
		return b, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

type yamlManifest struct {
	Description string     `yaml:"description"`
	Steps       []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}

func parseYAMLManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var parsed yamlManifest
	if err := dec.Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	m := &Manifest{Description: parsed.Description}
	for i, s := range parsed.Steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step %d: name is required", i+1)
		}
		m.Steps = append(m.Steps, ManifestStep{Name: s.Name, Args: Args(s.Args)})
	}
	return m, nil
}
