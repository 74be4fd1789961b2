// Package gantry coordinates several axis sessions as one machine.
//
// Axes are organised in named groups. Groups run strictly in order; inside a
// group the policy decides whether axes run one at a time or through a
// bounded worker pool. Every coordinated operation is fail-fast: the first
// failed group stops the operation, and all failures of that group are
// reported together in a *CoordinationError.
package gantry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Skip as a location leaves that axis where it is.
const Skip = -1

type Policy int

const (
	Sequential Policy = iota
	Parallel
)

func (p Policy) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "sequential" or "parallel" (case-insensitive).
// The empty string means Sequential.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "parallel":
		return Parallel, nil
	default:
		return 0, fmt.Errorf("gantry: unknown policy %q", s)
	}
}

// Axis is the per-axis contract the coordinator drives.
// *axis.Session implements it.
type Axis interface {
	Name() string
	Enable(ctx context.Context) error
	Home(ctx context.Context) error
	SetPositioningMode(ctx context.Context) error
	MoveTo(ctx context.Context, mm float64) error
	SetVelocity(ctx context.Context, mmPerSec float64) error
	Close() error
}

// Group is an ordering unit. All axes of a group finish before the next
// group starts.
type Group struct {
	Name string
	Axes []Axis
}

type Config struct {
	Policy Policy

	// Parallel only. 0 means one worker per axis of the group.
	MaxWorkers int
}

type member struct {
	index int
	group string
	axis  Axis
}

// Gantry holds the session list and the group ordering. Nothing else.
type Gantry struct {
	cfg    Config
	groups [][]member
	flat   []member
}

func New(cfg Config, groups []Group) (*Gantry, error) {
	if cfg.Policy != Sequential && cfg.Policy != Parallel {
		return nil, fmt.Errorf("gantry: invalid policy %s", cfg.Policy)
	}
	if cfg.MaxWorkers < 0 {
		return nil, fmt.Errorf("gantry: max workers must be >= 0, got %d", cfg.MaxWorkers)
	}

	g := &Gantry{cfg: cfg}
	for _, grp := range groups {
		if len(grp.Axes) == 0 {
			continue
		}
		ms := make([]member, 0, len(grp.Axes))
		for _, a := range grp.Axes {
			if a == nil {
				return nil, fmt.Errorf("gantry: group %q: nil axis", grp.Name)
			}
			m := member{index: len(g.flat), group: grp.Name, axis: a}
			ms = append(ms, m)
			g.flat = append(g.flat, m)
		}
		g.groups = append(g.groups, ms)
	}
	if len(g.flat) == 0 {
		return nil, errors.New("gantry: no axes")
	}
	return g, nil
}

// Len returns the number of axes across all groups.
func (g *Gantry) Len() int { return len(g.flat) }

// Axis returns the axis at flat index i.
func (g *Gantry) Axis(i int) Axis { return g.flat[i].axis }

// Policy returns the configured dispatch policy.
func (g *Gantry) Policy() Policy { return g.cfg.Policy }

// ---- coordinated operations ----

// EnableAll enables every axis and then selects positioning mode.
func (g *Gantry) EnableAll(ctx context.Context) error {
	if err := g.dispatch(ctx, "enable", func(m member) task {
		return m.axis.Enable
	}); err != nil {
		return err
	}
	return g.SetPositioningModeAll(ctx)
}

// HomeAll homes every axis and then selects positioning mode.
func (g *Gantry) HomeAll(ctx context.Context) error {
	if err := g.dispatch(ctx, "home", func(m member) task {
		return m.axis.Home
	}); err != nil {
		return err
	}
	return g.SetPositioningModeAll(ctx)
}

func (g *Gantry) SetPositioningModeAll(ctx context.Context) error {
	return g.dispatch(ctx, "set positioning mode", func(m member) task {
		return m.axis.SetPositioningMode
	})
}

// MoveTo applies velocities (if any) and then moves each axis to its
// location in mm. A Skip location, or a missing trailing one, leaves the
// axis untouched.
func (g *Gantry) MoveTo(ctx context.Context, locations, velocities []float64) error {
	if len(locations) > len(g.flat) {
		return fmt.Errorf("gantry: %d locations for %d axes", len(locations), len(g.flat))
	}
	if len(velocities) > 0 {
		if err := g.SetVelocities(ctx, velocities); err != nil {
			return err
		}
	}

	return g.dispatch(ctx, "move", func(m member) task {
		if m.index >= len(locations) || locations[m.index] == Skip {
			return nil
		}
		mm := locations[m.index]
		return func(ctx context.Context) error {
			return m.axis.MoveTo(ctx, mm)
		}
	})
}

// SetVelocities sets the velocity of each axis in mm/s. Zero leaves an
// axis unchanged; the list may be shorter than the axis list.
func (g *Gantry) SetVelocities(ctx context.Context, velocities []float64) error {
	if len(velocities) > len(g.flat) {
		return fmt.Errorf("gantry: %d velocities for %d axes", len(velocities), len(g.flat))
	}

	return g.dispatch(ctx, "set velocity", func(m member) task {
		if m.index >= len(velocities) || velocities[m.index] == 0 {
			return nil
		}
		v := velocities[m.index]
		return func(ctx context.Context) error {
			return m.axis.SetVelocity(ctx, v)
		}
	})
}

// SetVelocity sets the velocity of one axis. Zero is a no-op.
func (g *Gantry) SetVelocity(ctx context.Context, index int, mmPerSec float64) error {
	if index < 0 || index >= len(g.flat) {
		return fmt.Errorf("gantry: axis index %d out of range 0-%d", index, len(g.flat)-1)
	}
	if mmPerSec == 0 {
		return nil
	}

	m := g.flat[index]
	if err := m.axis.SetVelocity(ctx, mmPerSec); err != nil {
		return &CoordinationError{
			Op:       "set velocity",
			Failures: []AxisError{{Index: m.index, Group: m.group, Axis: m.axis.Name(), Err: err}},
		}
	}
	return nil
}

// DisconnectAll closes every axis, continuing past failures.
func (g *Gantry) DisconnectAll() error {
	var errs []error
	for _, m := range g.flat {
		if err := m.axis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gantry: close axis[%d] %s: %w", m.index, m.axis.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ---- dispatch ----

type task func(ctx context.Context) error

// dispatch runs the task returned by plan for every axis, group by group.
// A nil task skips the axis.
func (g *Gantry) dispatch(ctx context.Context, op string, plan func(member) task) error {
	for _, grp := range g.groups {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gantry: %s: %w", op, err)
		}

		var failures []AxisError
		if g.cfg.Policy == Parallel {
			failures = g.runParallel(ctx, grp, plan)
		} else {
			failures = g.runSequential(ctx, grp, plan)
		}
		if len(failures) > 0 {
			return &CoordinationError{Op: op, Failures: failures}
		}
	}
	return nil
}

func (g *Gantry) runSequential(ctx context.Context, grp []member, plan func(member) task) []AxisError {
	for _, m := range grp {
		t := plan(m)
		if t == nil {
			continue
		}
		if err := t(ctx); err != nil {
			return []AxisError{{Index: m.index, Group: m.group, Axis: m.axis.Name(), Err: err}}
		}
	}
	return nil
}

// runParallel runs one task per axis on a bounded pool and joins all of
// them. Each worker owns exactly one result slot, so a failure never keeps
// another planned task from running.
func (g *Gantry) runParallel(ctx context.Context, grp []member, plan func(member) task) []AxisError {
	workers := g.cfg.MaxWorkers
	if workers == 0 || workers > len(grp) {
		workers = len(grp)
	}

	results := make([]error, len(grp))

	var eg errgroup.Group
	eg.SetLimit(workers)

	for i, m := range grp {
		t := plan(m)
		if t == nil {
			continue
		}
		eg.Go(func() error {
			results[i] = runTask(ctx, t)
			return nil
		})
	}

	_ = eg.Wait()

	var failures []AxisError
	for i, err := range results {
		if err == nil {
			continue
		}
		m := grp[i]
		failures = append(failures, AxisError{Index: m.index, Group: m.group, Axis: m.axis.Name(), Err: err})
	}
	return failures
}

// runTask converts a worker panic into an error so it cannot be lost.
func runTask(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t(ctx)
}
