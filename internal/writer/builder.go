// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/cve-gantry/internal/config"
	"github.com/tamzrod/cve-gantry/internal/writer/ingest"
	wmodbus "github.com/tamzrod/cve-gantry/internal/writer/modbus"
)

// BuildPlan converts the mirror config into a Plan with one block per axis,
// in gantry dispatch order.
// Assumes config has already passed Validate and Normalize.
func BuildPlan(m *cfg.MirrorConfig, axes []cfg.AxisConfig) (Plan, error) {
	if m == nil {
		return Plan{}, errors.New("writer: status_mirror not configured")
	}

	plan := Plan{
		Endpoint: m.Endpoint,
		Protocol: m.Protocol,
		UnitID:   m.UnitID,
	}
	for i, a := range axes {
		plan.Axes = append(plan.Axes, AxisBlock{
			Slot:     m.BaseSlot + uint16(i),
			AxisName: a.Name,
		})
	}
	return plan, nil
}

// BuildEndpointClient creates the client for the plan's protocol.
func BuildEndpointClient(plan Plan, timeout time.Duration) (endpointClient, func() error, error) {
	switch plan.Protocol {
	case "", "modbus":
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: plan.Endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	case "ingest":
		c, err := ingest.NewEndpointClient(ingest.Config{
			Endpoint: plan.Endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	default:
		return nil, nil, fmt.Errorf("writer: unknown protocol %q", plan.Protocol)
	}
}

// BuildMirror wires plan, client and axis sources into a Mirror.
func BuildMirror(c *cfg.Config, sources []InfoSource) (*Mirror, func() error, error) {
	plan, err := BuildPlan(c.StatusMirror, c.Gantry.Axes())
	if err != nil {
		return nil, nil, err
	}

	cli, closeClient, err := BuildEndpointClient(plan, time.Duration(c.StatusMirror.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, nil, err
	}

	m, err := NewMirror(plan, sources, cli)
	if err != nil {
		_ = closeClient()
		return nil, nil, err
	}
	return m, closeClient, nil
}
