// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/cve-gantry/internal/status"
)

// axisStatusWriter writes one axis block.
type axisStatusWriter struct {
	cli    endpointClient
	unitID uint8
	block  AxisBlock

	needFull bool
	last     status.Snapshot
}

const statusAreaHoldingRegisters byte = 3

func newAxisStatusWriter(cli endpointClient, unitID uint8, block AxisBlock) *axisStatusWriter {
	return &axisStatusWriter{
		cli:      cli,
		unitID:   unitID,
		block:    block,
		needFull: true, // full re-assert on first successful write
		last: status.Snapshot{
			Health: status.HealthUnknown,
			Name:   block.AxisName,
		},
	}
}

// WriteStatus delivers an axis status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *axisStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.cli == nil {
		return errors.New("status writer: disabled")
	}

	// the block identity is the configured name, not whatever the caller sent
	s.Name = sw.block.AxisName

	baseAddr := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(
			statusAreaHoldingRegisters,
			sw.unitID,
			baseAddr,
			status.Encode(s),
		); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: axis %s: full block write failed: %w", sw.block.AxisName, err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	write := func(slot uint16, what string, regs ...uint16) bool {
		if err := sw.cli.WriteRegisters(statusAreaHoldingRegisters, sw.unitID, baseAddr+slot, regs); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", slot, what, err))
			return false
		}
		return true
	}

	// Slot 0 - health_code
	if sw.last.Health != s.Health && write(status.SlotHealthCode, "health", s.Health) {
		sw.last.Health = s.Health
	}

	// Slot 1 - last_error_code
	if sw.last.LastErrorCode != s.LastErrorCode && write(status.SlotLastErrorCode, "last_error", s.LastErrorCode) {
		sw.last.LastErrorCode = s.LastErrorCode
	}

	// Slot 2 - seconds_in_error
	if sw.last.SecondsInError != s.SecondsInError && write(status.SlotSecondsInError, "seconds", s.SecondsInError) {
		sw.last.SecondsInError = s.SecondsInError
	}

	// Slot 3 - axis_state
	if sw.last.AxisState != s.AxisState && write(status.SlotAxisState, "axis_state", s.AxisState) {
		sw.last.AxisState = s.AxisState
	}

	// Slots 4-5 - status word, always as one pair
	if sw.last.StatusWord != s.StatusWord &&
		write(status.SlotStatusWordLow, "status_word", uint16(s.StatusWord), uint16(s.StatusWord>>16)) {
		sw.last.StatusWord = s.StatusWord
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt - re-assert on next success.
		sw.needFull = true
		return fmt.Errorf("status writer: axis %s: %s", sw.block.AxisName, strings.Join(errs, " | "))
	}

	return nil
}

func (sw *axisStatusWriter) baseAddr() uint16 {
	// Each axis owns a fixed SlotsPerAxis block.
	return sw.block.Slot * status.SlotsPerAxis
}
