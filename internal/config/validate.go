package config

import (
	"errors"
	"fmt"
	"strings"
)

// status mirror block geometry; mirrors internal/status
const (
	mirrorSlotsPerAxis = 20
	mirrorMaxRegister  = 0xFFFF
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	g := cfg.Gantry

	// ------------------------------------------------------------
	// GANTRY POLICY
	// ------------------------------------------------------------

	switch strings.ToLower(strings.TrimSpace(g.Policy)) {
	case "", "sequential", "parallel":
	default:
		return fmt.Errorf("gantry: unknown policy %q (want sequential or parallel)", g.Policy)
	}
	if g.MaxWorkers < 0 {
		return fmt.Errorf("gantry: max_workers must be >= 0, got %d", g.MaxWorkers)
	}
	if g.SettleMs < 0 {
		return fmt.Errorf("gantry: settle_ms must be >= 0, got %d", g.SettleMs)
	}
	if g.MaxPollAttempts < 0 {
		return fmt.Errorf("gantry: max_poll_attempts must be >= 0, got %d", g.MaxPollAttempts)
	}
	if g.Connect.TimeoutMs < 0 || g.Connect.Attempts < 0 || g.Connect.BackoffMs < 0 {
		return errors.New("gantry: connect values must be >= 0")
	}

	// ------------------------------------------------------------
	// GROUPS / AXES
	// ------------------------------------------------------------

	if len(g.Groups) == 0 {
		return errors.New("gantry: at least one group required")
	}

	groupNames := make(map[string]struct{})
	axisNames := make(map[string]string) // name -> group
	endpoints := make(map[string]string) // endpoint -> axis
	total := 0

	for _, grp := range g.Groups {
		if grp.Name != "" {
			if _, dup := groupNames[grp.Name]; dup {
				return fmt.Errorf("gantry: duplicate group name %q", grp.Name)
			}
			groupNames[grp.Name] = struct{}{}
		}
		if len(grp.Axes) == 0 {
			return fmt.Errorf("group %q: at least one axis required", grp.Name)
		}

		for _, a := range grp.Axes {
			total++

			if a.Name == "" {
				return fmt.Errorf("group %q: axis %d has no name", grp.Name, total-1)
			}
			for i := 0; i < len(a.Name); i++ {
				if a.Name[i] > 0x7F {
					return fmt.Errorf("axis %q: name must contain ASCII characters only", a.Name)
				}
			}
			if prev, dup := axisNames[a.Name]; dup {
				return fmt.Errorf("axis %q: duplicate name (groups %q and %q)", a.Name, prev, grp.Name)
			}
			axisNames[a.Name] = grp.Name

			ep := withDefaultPort(strings.TrimSpace(a.Endpoint))
			if ep == "" {
				return fmt.Errorf("axis %q: endpoint required", a.Name)
			}
			if prev, dup := endpoints[ep]; dup {
				return fmt.Errorf("axis %q: endpoint %s already used by axis %q", a.Name, ep, prev)
			}
			endpoints[ep] = a.Name

			if a.Record < 0 || a.Record > 0xFF {
				return fmt.Errorf("axis %q: record %d out of range 1-255", a.Name, a.Record)
			}
			if a.ConversionRatio < 0 {
				return fmt.Errorf("axis %q: conversion_ratio must be > 0", a.Name)
			}
			if a.ReferenceMm < 0 {
				return fmt.Errorf("axis %q: reference_mm must be > 0", a.Name)
			}
			if a.ReferenceRecord < 0 || a.ReferenceRecord > 0xFF {
				return fmt.Errorf("axis %q: reference_record %d out of range 1-255", a.Name, a.ReferenceRecord)
			}
		}
	}

	// ------------------------------------------------------------
	// STATUS MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.StatusMirror; m != nil {
		if strings.TrimSpace(m.Endpoint) == "" {
			return errors.New("status_mirror: endpoint required")
		}
		switch strings.ToLower(strings.TrimSpace(m.Protocol)) {
		case "", "modbus", "ingest":
		default:
			return fmt.Errorf("status_mirror: unknown protocol %q (want modbus or ingest)", m.Protocol)
		}
		if m.IntervalMs < 0 || m.TimeoutMs < 0 {
			return errors.New("status_mirror: interval_ms and timeout_ms must be >= 0")
		}

		last := (int(m.BaseSlot)+total)*mirrorSlotsPerAxis - 1
		if last > mirrorMaxRegister {
			return fmt.Errorf(
				"status_mirror: base_slot=%d with %d axes ends at register %d, beyond %d",
				m.BaseSlot, total, last, mirrorMaxRegister,
			)
		}
	}

	// ------------------------------------------------------------
	// PROGRAM
	// ------------------------------------------------------------

	for i, st := range cfg.Program {
		actions := 0
		if st.Enable {
			actions++
		}
		if st.Home {
			actions++
		}
		if st.Move != nil {
			actions++
		}
		if st.Velocity != nil {
			actions++
		}
		if st.PauseMs != 0 {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("program step %d: exactly one of enable, home, move, velocity, pause_ms required", i)
		}

		if len(st.Move) > total {
			return fmt.Errorf("program step %d: %d locations for %d axes", i, len(st.Move), total)
		}
		if st.Velocities != nil && st.Move == nil {
			return fmt.Errorf("program step %d: velocities only valid with move", i)
		}
		if len(st.Velocities) > total {
			return fmt.Errorf("program step %d: %d velocities for %d axes", i, len(st.Velocities), total)
		}
		for _, v := range st.Velocities {
			if v < 0 {
				return fmt.Errorf("program step %d: negative velocity %v", i, v)
			}
		}
		if st.Velocity != nil {
			if st.Velocity.Axis < 0 || st.Velocity.Axis >= total {
				return fmt.Errorf("program step %d: velocity axis %d out of range 0-%d", i, st.Velocity.Axis, total-1)
			}
			if st.Velocity.Value < 0 {
				return fmt.Errorf("program step %d: negative velocity %v", i, st.Velocity.Value)
			}
		}
		if st.PauseMs < 0 {
			return fmt.Errorf("program step %d: pause_ms must be >= 0", i)
		}
	}

	return nil
}
