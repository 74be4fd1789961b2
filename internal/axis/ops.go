package axis

import (
	"context"
	"fmt"
	"math"

	"github.com/tamzrod/cve-gantry/internal/cve"
	"github.com/tamzrod/cve-gantry/internal/poller"
)

// SetProtocolMode assigns master control to the CVE interface.
func (s *Session) SetProtocolMode(ctx context.Context) error {
	return s.do(ctx, "set protocol mode", StateConnected, func(ctx context.Context) error {
		if err := s.write(ctx, "master control", cve.UINT8, cve.ObjMasterControl, 0, int64(cve.MasterControlCVE)); err != nil {
			return err
		}
		if s.State() < StateModeSet {
			s.setState(StateModeSet)
		}
		return nil
	})
}

// Enable runs the shutdown / switch-on / enable-operation sequence.
// Each control word is followed by the settle delay and a status read.
func (s *Session) Enable(ctx context.Context) error {
	return s.do(ctx, "enable", StateModeSet, func(ctx context.Context) error {
		if _, err := s.readStatus(ctx, "status"); err != nil {
			return err
		}

		if err := s.write(ctx, "master control", cve.UINT8, cve.ObjMasterControl, 0, int64(cve.MasterControlCVE)); err != nil {
			return err
		}
		if err := s.settleAndRead(ctx); err != nil {
			return err
		}

		for _, word := range []uint32{
			cve.ControlShutdown,
			cve.ControlSwitchOn,
			cve.ControlEnableOperation,
		} {
			if err := s.control(ctx, fmt.Sprintf("control 0x%02X", word), word); err != nil {
				return err
			}
			if err := s.settleAndRead(ctx); err != nil {
				return err
			}
		}

		s.setState(StateEnabled)
		return nil
	})
}

// SetPositioningMode selects record positioning and confirms it via the
// mode display object.
func (s *Session) SetPositioningMode(ctx context.Context) error {
	return s.do(ctx, "set positioning mode", StateEnabled, func(ctx context.Context) error {
		if err := s.selectMode(ctx, cve.ModePositioning); err != nil {
			return err
		}
		s.setState(StatePositioningReady)
		return nil
	})
}

// Home runs the homing sequence and blocks until the controller reports
// target reached or the poll bound is exhausted.
func (s *Session) Home(ctx context.Context) error {
	return s.do(ctx, "home", StateEnabled, func(ctx context.Context) error {
		if err := s.write(ctx, "operating mode", cve.SINT8, cve.ObjOperatingMode, 0, int64(cve.ModeHoming)); err != nil {
			return err
		}
		if err := s.settleAndRead(ctx); err != nil {
			return err
		}
		// mode display is read for the trace only; homing mode is not confirmed
		if _, err := s.read(ctx, "mode display", cve.ObjModeDisplay, 0); err != nil {
			return err
		}

		s.setState(StateHoming)

		if err := s.startAndWait(ctx); err != nil {
			return err
		}
		if err := s.control(ctx, "control 0x0F", cve.ControlEnableOperation); err != nil {
			return err
		}
		if err := s.settleAndRead(ctx); err != nil {
			return err
		}

		s.setState(StatePositioningReady)
		return nil
	})
}

// SetRecord selects the record to run and returns the active record
// reported back by the controller.
func (s *Session) SetRecord(ctx context.Context, record int) (int, error) {
	var active int
	err := s.do(ctx, "set record", StateModeSet, func(ctx context.Context) error {
		var err error
		active, err = s.setRecord(ctx, record)
		return err
	})
	return active, err
}

// SetTargetLocation writes mm, converted to device units, into record.
func (s *Session) SetTargetLocation(ctx context.Context, mm float64, record int) error {
	return s.do(ctx, "set target location", StateModeSet, func(ctx context.Context) error {
		return s.setTarget(ctx, mm, record)
	})
}

// RunRecord starts the selected record and blocks until target reached.
func (s *Session) RunRecord(ctx context.Context) error {
	return s.do(ctx, "run record", StatePositioningReady, func(ctx context.Context) error {
		return s.runRecord(ctx)
	})
}

// MoveTo moves to mm using the configured record.
func (s *Session) MoveTo(ctx context.Context, mm float64) error {
	return s.MoveToRecord(ctx, mm, s.cfg.Record)
}

// MoveToRecord selects record, writes its target and runs it.
func (s *Session) MoveToRecord(ctx context.Context, mm float64, record int) error {
	return s.do(ctx, "move to", StatePositioningReady, func(ctx context.Context) error {
		if _, err := s.setRecord(ctx, record); err != nil {
			return err
		}
		if err := s.setTarget(ctx, mm, record); err != nil {
			return err
		}
		return s.runRecord(ctx)
	})
}

// SetVelocity writes the velocity of the configured record in mm/s.
func (s *Session) SetVelocity(ctx context.Context, mmPerSec float64) error {
	return s.SetRecordVelocity(ctx, mmPerSec, s.cfg.Record)
}

// SetRecordVelocity writes the velocity of record in mm/s.
func (s *Session) SetRecordVelocity(ctx context.Context, mmPerSec float64, record int) error {
	return s.do(ctx, "set velocity", StateModeSet, func(ctx context.Context) error {
		sub, err := recordSubindex(record)
		if err != nil {
			return err
		}
		return s.write(ctx, "record velocity", cve.UINT32, cve.ObjRecordVelocity, sub, s.toDevice(mmPerSec))
	})
}

// TargetPosition reads the current target position in mm.
func (s *Session) TargetPosition(ctx context.Context) (float64, error) {
	return s.readPosition(ctx, "target position", cve.ObjTargetPosition)
}

// TargetPositionAlt reads the target position from the alternate object.
func (s *Session) TargetPositionAlt(ctx context.Context) (float64, error) {
	return s.readPosition(ctx, "target position alt", cve.ObjTargetPosition2)
}

// CurrentRecord reads the number of the active record.
func (s *Session) CurrentRecord(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, "current record", StateConnected, func(ctx context.Context) error {
		rec, err := s.read(ctx, "active record", cve.ObjActiveRecord, 0)
		n = int(rec.Payload)
		return err
	})
	return n, err
}

// ReadStatus reads the raw status object.
func (s *Session) ReadStatus(ctx context.Context) (cve.Record, error) {
	var rec cve.Record
	err := s.do(ctx, "read status", StateConnected, func(ctx context.Context) error {
		var err error
		rec, err = s.readStatus(ctx, "status")
		return err
	})
	return rec, err
}

// DeriveConversion sets the ratio from the target stored in record, which
// is known to correspond to millimeters.
func (s *Session) DeriveConversion(ctx context.Context, record int, millimeters float64) (float64, error) {
	var ratio float64
	err := s.do(ctx, "derive conversion", StateConnected, func(ctx context.Context) error {
		if millimeters <= 0 {
			return fmt.Errorf("reference millimeters must be > 0, got %v", millimeters)
		}
		sub, err := recordSubindex(record)
		if err != nil {
			return err
		}
		rec, err := s.read(ctx, "record target", cve.ObjRecordTarget, sub)
		if err != nil {
			return err
		}

		ratio = float64(rec.Int32()) / millimeters
		if ratio <= 0 {
			return fmt.Errorf("record %d holds %d device units, cannot derive ratio", record, rec.Int32())
		}

		s.infoMu.Lock()
		s.ratio = ratio
		s.infoMu.Unlock()
		return nil
	})
	return ratio, err
}

// ---- steps (caller holds mu) ----

func (s *Session) setRecord(ctx context.Context, record int) (int, error) {
	sub, err := recordSubindex(record)
	if err != nil {
		return 0, err
	}
	if err := s.write(ctx, "record select", cve.UINT8, cve.ObjRecordSelect, 0, int64(sub)); err != nil {
		return 0, err
	}

	active, err := s.read(ctx, "active record", cve.ObjActiveRecord, 0)
	if err != nil {
		return 0, err
	}
	if _, err := s.read(ctx, "target position", cve.ObjTargetPosition, 0); err != nil {
		return 0, err
	}
	return int(active.Payload), nil
}

func (s *Session) setTarget(ctx context.Context, mm float64, record int) error {
	sub, err := recordSubindex(record)
	if err != nil {
		return err
	}
	if err := s.write(ctx, "record target", cve.SINT32, cve.ObjRecordTarget, sub, s.toDevice(mm)); err != nil {
		return err
	}
	_, err = s.readStatus(ctx, "status")
	return err
}

func (s *Session) runRecord(ctx context.Context) error {
	if err := s.control(ctx, "control 0x0F", cve.ControlEnableOperation); err != nil {
		return err
	}

	s.setState(StateMoving)

	if err := s.startAndWait(ctx); err != nil {
		return err
	}
	if err := s.control(ctx, "control 0x0F", cve.ControlEnableOperation); err != nil {
		return err
	}

	s.setState(StatePositioningReady)
	return nil
}

// startAndWait repeats {control 0x1F, settle, status} until target reached.
func (s *Session) startAndWait(ctx context.Context) error {
	_, err := poller.Until(
		ctx,
		poller.Config{
			Interval:    s.cfg.SettleDelay,
			MaxAttempts: s.cfg.MaxPollAttempts,
		},
		func(ctx context.Context) error {
			return s.control(ctx, "control 0x1F", cve.ControlStart)
		},
		func(ctx context.Context) (cve.Record, error) {
			return s.readStatus(ctx, "status")
		},
		cve.Record.TargetReached,
	)
	return err
}

func (s *Session) selectMode(ctx context.Context, mode int8) error {
	if err := s.write(ctx, "operating mode", cve.SINT8, cve.ObjOperatingMode, 0, int64(mode)); err != nil {
		return err
	}
	if err := s.settleAndRead(ctx); err != nil {
		return err
	}

	rec, err := s.read(ctx, "mode display", cve.ObjModeDisplay, 0)
	if err != nil {
		return err
	}
	if got := int8(rec.Payload); got != mode {
		return fmt.Errorf("%w: want %d, controller reports %d", ErrModeMismatch, mode, got)
	}
	return nil
}

func (s *Session) settleAndRead(ctx context.Context) error {
	if err := poller.Wait(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}
	_, err := s.readStatus(ctx, "status")
	return err
}

func (s *Session) readPosition(ctx context.Context, op string, index uint16) (float64, error) {
	var mm float64
	err := s.do(ctx, op, StateConnected, func(ctx context.Context) error {
		rec, err := s.read(ctx, op, index, 0)
		if err != nil {
			return err
		}
		mm = float64(rec.Int32()) / s.ratio
		return nil
	})
	return mm, err
}

func (s *Session) toDevice(mm float64) int64 {
	return int64(math.Round(mm * s.ratio))
}

func recordSubindex(record int) (uint8, error) {
	if record < 0 || record > 0xFF {
		return 0, fmt.Errorf("record %d out of range", record)
	}
	return uint8(record), nil
}
