package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamzrod/cve-gantry/internal/cve"
	"github.com/tamzrod/cve-gantry/internal/cvesim"
)

func serveSim(t *testing.T, sim *cvesim.Controller) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err=%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = sim.Serve(ctx, ln) }()
	return ln.Addr().String()
}

func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	body := `gantry:
  policy: parallel
  settle_ms: 1
  connect:
    attempts: 1
    timeout_ms: 500
  groups:
    - name: all
      axes:
        - name: z
          endpoint: ` + endpoint + `
program:
  - enable: true
`
	path := filepath.Join(t.TempDir(), "gantry.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config err=%v", err)
	}
	return path
}

func TestRun_ProgramComplete(t *testing.T) {
	sim := cvesim.New(cvesim.Config{})
	path := writeConfig(t, serveSim(t, sim))

	if err := run(path, false); err != nil {
		t.Fatalf("run err=%v", err)
	}
}

func TestRun_ProgramFailureIsReturned(t *testing.T) {
	sim := cvesim.New(cvesim.Config{})
	sim.Reject(cve.ObjControl, cve.AckNotWritableWhileEnable)
	path := writeConfig(t, serveSim(t, sim))

	err := run(path, false)
	if err == nil || !strings.Contains(err.Error(), "program failed") {
		t.Fatalf("expected program failure, got %v", err)
	}
}

func TestRun_MissingConfig(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
