// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/cve-gantry/internal/axis"
	"github.com/tamzrod/cve-gantry/internal/status"
)

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

// InfoSource is anything that exposes a cached axis view.
// *axis.Session implements it.
type InfoSource interface {
	Info() axis.Info
}

// Mirror publishes the status of every axis into its block.
// It owns the trackers; callers drive it from one goroutine.
type Mirror struct {
	sources  []InfoSource
	trackers []*status.Tracker
	writers  []StatusWriter
}

// NewMirror pairs each source with the block at the same position in plan.Axes.
func NewMirror(plan Plan, sources []InfoSource, cli endpointClient) (*Mirror, error) {
	if cli == nil {
		return nil, errors.New("writer: mirror client required")
	}
	if len(sources) != len(plan.Axes) {
		return nil, fmt.Errorf("writer: %d axis sources for %d status blocks", len(sources), len(plan.Axes))
	}

	m := &Mirror{sources: sources}
	for _, b := range plan.Axes {
		m.trackers = append(m.trackers, status.NewTracker(b.AxisName))
		m.writers = append(m.writers, newAxisStatusWriter(cli, plan.UnitID, b))
	}
	return m, nil
}

// Start writes every block in full with the boot snapshot.
func (m *Mirror) Start() error {
	return m.each(func(i int) error {
		return m.writers[i].WriteStatus(m.trackers[i].Snapshot())
	})
}

// Sync observes every source and writes the blocks that changed.
func (m *Mirror) Sync() error {
	return m.each(func(i int) error {
		if !m.trackers[i].Observe(m.sources[i].Info()) {
			return nil
		}
		return m.writers[i].WriteStatus(m.trackers[i].Snapshot())
	})
}

// Tick advances seconds_in_error on every axis that is not OK.
// Call at 1 Hz.
func (m *Mirror) Tick() error {
	return m.each(func(i int) error {
		if !m.trackers[i].Tick() {
			return nil
		}
		return m.writers[i].WriteStatus(m.trackers[i].Snapshot())
	})
}

// Snapshots returns the current snapshot of every axis.
func (m *Mirror) Snapshots() []status.Snapshot {
	out := make([]status.Snapshot, 0, len(m.trackers))
	for _, t := range m.trackers {
		out = append(out, t.Snapshot())
	}
	return out
}

func (m *Mirror) each(fn func(i int) error) error {
	var errs []string
	for i := range m.writers {
		if err := fn(i); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}
