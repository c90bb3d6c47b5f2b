package core

import (
	"context"
	"fmt"
)

// Execute runs the named unit against a private copy of in.
//
// Failures are returned as *UnitError and classified as not found,
// malformed, runtime (a step returned an error or panicked) or contract
// (a step returned no table or a table with ragged columns). in is never
// modified.
func Execute(ctx context.Context, units UnitResolver, name string, in *Table) (*Table, error) {
	u, ok := units.Lookup(name)
	if !ok {
		return nil, &UnitError{Unit: name, Kind: UnitNotFound}
	}
	if !u.Valid() {
		return nil, &UnitError{Unit: name, Kind: UnitMalformed, Err: u.Err}
	}
	if in == nil {
		return nil, ErrNoInput
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("input table: %w", err)
	}

	work := in.Clone()
	for _, step := range u.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := runStep(step, work)
		if err != nil {
			return nil, &UnitError{Unit: name, Step: step.name, Kind: UnitRuntime, Err: err}
		}
		if out == nil {
			return nil, &UnitError{Unit: name, Step: step.name, Kind: UnitContract, Err: fmt.Errorf("step returned no table")}
		}
		if err := out.Validate(); err != nil {
			return nil, &UnitError{Unit: name, Step: step.name, Kind: UnitContract, Err: err}
		}
		work = out
	}
	return work, nil
}

// runStep invokes a step, converting a panic into an error.
func runStep(step boundStep, t *Table) (out *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.fn(t)
}
