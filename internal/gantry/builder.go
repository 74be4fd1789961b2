package gantry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/cve-gantry/internal/axis"
	"github.com/tamzrod/cve-gantry/internal/config"
	"github.com/tamzrod/cve-gantry/internal/transport"
)

// Build opens one session per configured axis and wires them into a Gantry.
// Sessions are opened concurrently; if any fails, the ones already open are
// closed before returning.
// Assumes config has already passed Validate and Normalize.
func Build(ctx context.Context, c *config.Config, trace func(axis.Event)) (*Gantry, []*axis.Session, error) {
	if c == nil {
		return nil, nil, errors.New("gantry: nil config")
	}
	gc := c.Gantry

	policy, err := ParsePolicy(gc.Policy)
	if err != nil {
		return nil, nil, err
	}

	axes := gc.Axes()
	sessions := make([]*axis.Session, len(axes))
	errs := make([]error, len(axes))

	var wg sync.WaitGroup
	for i, a := range axes {
		wg.Add(1)
		go func(i int, a config.AxisConfig) {
			defer wg.Done()
			sessions[i], errs[i] = axis.Open(ctx, sessionConfig(gc, a, trace), transport.Config{
				Endpoint:     a.Endpoint,
				Timeout:      time.Duration(gc.Connect.TimeoutMs) * time.Millisecond,
				DialAttempts: gc.Connect.Attempts,
				DialBackoff:  time.Duration(gc.Connect.BackoffMs) * time.Millisecond,
			})
		}(i, a)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		for _, s := range sessions {
			if s != nil {
				_ = s.Close()
			}
		}
		return nil, nil, err
	}

	groups := make([]Group, 0, len(gc.Groups))
	next := 0
	for _, grp := range gc.Groups {
		g := Group{Name: grp.Name}
		for range grp.Axes {
			g.Axes = append(g.Axes, sessions[next])
			next++
		}
		groups = append(groups, g)
	}

	gantry, err := New(Config{Policy: policy, MaxWorkers: gc.MaxWorkers}, groups)
	if err != nil {
		for _, s := range sessions {
			_ = s.Close()
		}
		return nil, nil, err
	}
	return gantry, sessions, nil
}

func sessionConfig(gc config.GantryConfig, a config.AxisConfig, trace func(axis.Event)) axis.Config {
	return axis.Config{
		Name:                 a.Name,
		Endpoint:             a.Endpoint,
		Record:               a.Record,
		ConversionRatio:      a.ConversionRatio,
		ReferenceRecord:      a.ReferenceRecord,
		ReferenceMillimeters: a.ReferenceMm,
		SettleDelay:          time.Duration(gc.SettleMs) * time.Millisecond,
		MaxPollAttempts:      gc.MaxPollAttempts,
		Trace:                trace,
	}
}
