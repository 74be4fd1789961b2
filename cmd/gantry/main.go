// cmd/gantry/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/cve-gantry/internal/axis"
	"github.com/tamzrod/cve-gantry/internal/config"
	"github.com/tamzrod/cve-gantry/internal/cve"
	"github.com/tamzrod/cve-gantry/internal/gantry"
	"github.com/tamzrod/cve-gantry/internal/poller"
	"github.com/tamzrod/cve-gantry/internal/status"
	"github.com/tamzrod/cve-gantry/internal/writer"
)

func main() {
	verbose := flag.Bool("v", false, "log every controller exchange")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("usage: gantry [-v] <config.yaml>")
	}

	if err := run(flag.Arg(0), *verbose); err != nil {
		log.Printf("gantry: %v", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup, so main can exit non-zero afterwards.
func run(cfgPath string, verbose bool) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Connect axes
	// --------------------

	var trace func(axis.Event)
	if verbose {
		trace = logEvent
	}

	g, sessions, err := gantry.Build(ctx, cfg, trace)
	if err != nil {
		return fmt.Errorf("gantry build failed: %w", err)
	}
	defer func() {
		if err := g.DisconnectAll(); err != nil {
			log.Printf("disconnect: %v", err)
		}
	}()

	log.Printf("gantry ready: %d axes, policy=%s", g.Len(), g.Policy())

	// --------------------
	// Status mirror (optional)
	// --------------------

	if cfg.StatusMirror != nil {
		sources := make([]writer.InfoSource, 0, len(sessions))
		for _, s := range sessions {
			sources = append(sources, s)
		}

		m, closeMirror, err := writer.BuildMirror(cfg, sources)
		if err != nil {
			return fmt.Errorf("status mirror build failed: %w", err)
		}
		defer closeMirror()

		mirrorDone := make(chan struct{})
		mctx, cancelMirror := context.WithCancel(ctx)
		defer func() {
			cancelMirror()
			<-mirrorDone
		}()

		go runMirror(mctx, m, time.Duration(cfg.StatusMirror.IntervalMs)*time.Millisecond, mirrorDone)
	}

	// --------------------
	// Program
	// --------------------

	if err := runProgram(ctx, g, cfg.Program); err != nil {
		var ce *gantry.CoordinationError
		if errors.As(err, &ce) {
			for _, f := range ce.Failures {
				log.Printf("  axis[%d] %s: code=0x%04X %v", f.Index, f.Axis, status.ErrorCode(f.Err), f.Err)
			}
		}
		return fmt.Errorf("program failed: %w", err)
	}

	log.Printf("program complete (%d steps)", len(cfg.Program))

	// With a mirror configured, keep publishing until signalled.
	if cfg.StatusMirror != nil {
		<-ctx.Done()
	}
	return nil
}

func runProgram(ctx context.Context, g *gantry.Gantry, steps []config.StepConfig) error {
	for i, st := range steps {
		start := time.Now()

		var (
			what string
			err  error
		)
		switch {
		case st.Enable:
			what = "enable"
			err = g.EnableAll(ctx)
		case st.Home:
			what = "home"
			err = g.HomeAll(ctx)
		case st.Move != nil:
			what = "move"
			err = g.MoveTo(ctx, st.Move, st.Velocities)
		case st.Velocity != nil:
			what = "velocity"
			err = g.SetVelocity(ctx, st.Velocity.Axis, st.Velocity.Value)
		case st.PauseMs > 0:
			what = "pause"
			err = poller.Wait(ctx, time.Duration(st.PauseMs)*time.Millisecond)
		}

		if err != nil {
			return err
		}
		log.Printf("step %d %s done in %s", i, what, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// runMirror is runner-owned state: trackers are only touched here.
// seconds_in_error advances once per elapsed second, whatever the interval.
func runMirror(ctx context.Context, m *writer.Mirror, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	// Full block write on start (identity re-assert).
	if err := m.Start(); err != nil {
		log.Printf("status write failed on start: %v", err)
	}

	lastTick := time.Now()

	poller.Run(ctx, interval, func(now time.Time) {
		if err := m.Sync(); err != nil {
			log.Printf("status write failed: %v", err)
		}

		for now.Sub(lastTick) >= time.Second {
			lastTick = lastTick.Add(time.Second)
			if err := m.Tick(); err != nil {
				log.Printf("status seconds tick write failed: %v", err)
			}
		}
	})
}

func logEvent(ev axis.Event) {
	if ev.Err != nil {
		log.Printf("[%s] %s %s %d.%d: %v (%s)", ev.Axis, ev.Op, ev.Service, ev.Index, ev.Subindex, ev.Err, ev.Elapsed)
		return
	}
	if ev.Service == cve.ServiceWrite {
		log.Printf("[%s] %s write %d.%d=%d ack=%s (%s)", ev.Axis, ev.Op, ev.Index, ev.Subindex, ev.Value, ev.Ack, ev.Elapsed)
		return
	}
	log.Printf("[%s] %s read %d.%d -> 0x%08X ack=%s (%s)", ev.Axis, ev.Op, ev.Index, ev.Subindex, ev.Payload, ev.Ack, ev.Elapsed)
}
