// internal/writer/status_writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/tamzrod/cve-gantry/internal/status"
)

// ---- fake endpoint client ----

type writeCall struct {
	area   byte
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []writeCall
	fail   error
}

func (f *fakeEndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes = append(f.writes, writeCall{
		area:   area,
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	return nil
}

func (f *fakeEndpointClient) last() writeCall {
	return f.writes[len(f.writes)-1]
}

// ---- tests ----

func TestAxisNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newAxisStatusWriter(cli, 1, AxisBlock{Slot: 2, AxisName: "Z-LEFT"})

	// ---- first write: FULL ASSERT ----
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	w := cli.last()
	if len(w.regs) != status.SlotsPerAxis {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerAxis, len(w.regs))
	}
	if w.addr != 2*status.SlotsPerAxis || w.area != statusAreaHoldingRegisters || w.unitID != 1 {
		t.Fatalf("write=%+v", w)
	}

	expectedNameRegs := status.EncodeName("Z-LEFT")
	for i := 0; i < status.SlotAxisNameSlots; i++ {
		slot := status.SlotAxisNameStart + i
		if w.regs[slot] != expectedNameRegs[i] {
			t.Fatalf("axis name slot %d mismatch: got=%d want=%d", slot, w.regs[slot], expectedNameRegs[i])
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 7}); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	if len(cli.writes) != 3 {
		t.Fatalf("expected 3 writes (full, health, error), got %d", len(cli.writes))
	}
	for _, w := range cli.writes[1:] {
		if len(w.regs) != 1 {
			t.Fatalf("incremental write rewrote %d regs", len(w.regs))
		}
	}
}

func TestStatusWordWrittenAsPair(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newAxisStatusWriter(cli, 1, AxisBlock{Slot: 0, AxisName: "x"})

	_ = sw.WriteStatus(status.Snapshot{Health: status.HealthOK})
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK, StatusWord: 0x0001C427}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	w := cli.last()
	if w.addr != status.SlotStatusWordLow || len(w.regs) != 2 || w.regs[0] != 0xC427 || w.regs[1] != 0x0001 {
		t.Fatalf("status word write=%+v", w)
	}
}

func TestSecondsInErrorResetOnRecovery(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newAxisStatusWriter(cli, 1, AxisBlock{Slot: 0, AxisName: "x"})

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 42, SecondsInError: 3}); err != nil {
		t.Fatalf("error snapshot write failed: %v", err)
	}
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("recovery snapshot write failed: %v", err)
	}

	w := cli.last()
	if w.addr != status.SlotSecondsInError {
		t.Fatalf("unexpected write addr: got=%d want=%d", w.addr, status.SlotSecondsInError)
	}
	if len(w.regs) != 1 || w.regs[0] != 0 {
		t.Fatalf("seconds_in_error not reset: %v", w.regs)
	}
}

func TestFailedWriteForcesFullReassert(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newAxisStatusWriter(cli, 1, AxisBlock{Slot: 0, AxisName: "x"})

	_ = sw.WriteStatus(status.Snapshot{Health: status.HealthOK})

	cli.fail = errors.New("broken pipe")
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthBusy}); err == nil {
		t.Fatalf("expected error, got nil")
	}

	cli.fail = nil
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthBusy}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if len(cli.last().regs) != status.SlotsPerAxis {
		t.Fatalf("expected full re-assert after failure")
	}
}
