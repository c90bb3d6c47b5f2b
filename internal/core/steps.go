package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// StepFunc is a compiled table operation. It receives a table owned by the
// executor and may modify it in place or return a new one.
type StepFunc func(t *Table) (*Table, error)

// StepFactory validates step arguments and binds them into a StepFunc.
// It runs when a unit is registered, never while a unit executes.
type StepFactory func(args Args) (StepFunc, error)

// StepDefinition describes a step that unit manifests can reference by name.
type StepDefinition struct {
	Name        string
	Description string
	Factory     StepFactory
}

var (
	steps   = make(map[string]StepDefinition)
	stepsMu sync.RWMutex
)

// RegisterStep adds a step definition to the registry.
// Panics if the name is empty, the factory is nil, or the name is taken.
func RegisterStep(def StepDefinition) {
	stepsMu.Lock()
	defer stepsMu.Unlock()

	if def.Name == "" || def.Factory == nil {
		panic(fmt.Sprintf("invalid step definition: %q", def.Name))
	}
	if _, exists := steps[def.Name]; exists {
		panic(fmt.Sprintf("step already registered: %s", def.Name))
	}
	steps[def.Name] = def
}

// LookupStep returns a step definition by name.
func LookupStep(name string) (StepDefinition, bool) {
	stepsMu.RLock()
	defer stepsMu.RUnlock()

	def, ok := steps[name]
	return def, ok
}

// Steps returns all registered step definitions sorted by name.
func Steps() []StepDefinition {
	stepsMu.RLock()
	defer stepsMu.RUnlock()

	result := make([]StepDefinition, 0, len(steps))
	for _, def := range steps {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Args holds the arguments of one manifest step. Values are Go natives as
// produced by the manifest decoders: string, bool, int, float64, []any and
// map[string]any.
type Args map[string]any

// Check fails if args contains a key outside allowed.
func (a Args) Check(allowed ...string) error {
	var unknown []string
	for k := range a {
		found := false
		for _, ok := range allowed {
			if k == ok {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown argument(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// String returns the string argument key. ok is false when it is absent.
func (a Args) String(key string) (value string, ok bool, err error) {
	raw, present := a[key]
	if !present || raw == nil {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", true, fmt.Errorf("argument %q: expected string, got %T", key, raw)
	}
	return s, true, nil
}

// RequireString returns a non-empty string argument.
func (a Args) RequireString(key string) (string, error) {
	s, ok, err := a.String(key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q is required", key)
	}
	return s, nil
}

// Int returns the integer argument key, or def when absent.
// Integral floats are accepted since HCL numbers decode as float64.
func (a Args) Int(key string, def int) (int, error) {
	raw, present := a[key]
	if !present || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("argument %q: expected integer, got %v", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("argument %q: expected integer, got %T", key, raw)
	}
}

// Strings returns a list-of-strings argument. A single string is accepted
// as a one-element list.
func (a Args) Strings(key string) ([]string, bool, error) {
	raw, present := a[key]
	if !present || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, true, nil
	case []string:
		return v, true, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("argument %q[%d]: expected string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("argument %q: expected list of strings, got %T", key, raw)
	}
}

// Bool returns the boolean argument key, or def when absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	raw, present := a[key]
	if !present || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q: expected bool, got %T", key, raw)
	}
	return b, nil
}
