package gantry

import (
	"fmt"
	"strings"
)

// AxisError is one axis' failure inside a coordinated operation.
type AxisError struct {
	Index int // flat index across groups
	Group string
	Axis  string
	Err   error
}

func (e AxisError) Error() string {
	return fmt.Sprintf("axis[%d] %s (group %q): %v", e.Index, e.Axis, e.Group, e.Err)
}

func (e AxisError) Unwrap() error { return e.Err }

// CoordinationError aggregates every axis failure of one coordinated
// operation, in flat index order.
type CoordinationError struct {
	Op       string
	Failures []AxisError
}

func (e *CoordinationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("gantry: %s failed on %d axis(es): %s", e.Op, len(e.Failures), strings.Join(parts, " | "))
}

// Unwrap exposes the per-axis causes to errors.Is and errors.As.
func (e *CoordinationError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// Indices returns the flat indices of the failed axes.
func (e *CoordinationError) Indices() []int {
	out := make([]int, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Index)
	}
	return out
}
