// internal/status/tracker.go
package status

import (
	"context"
	"errors"

	"github.com/tamzrod/cve-gantry/internal/axis"
	"github.com/tamzrod/cve-gantry/internal/cve"
	"github.com/tamzrod/cve-gantry/internal/poller"
	"github.com/tamzrod/cve-gantry/internal/transport"
)

// Error codes for failures that carry no device ack.
// Device rejections report the raw ack (0x00-0xFF).
const (
	CodeGeneric      uint16 = 0x0001
	CodeConnection   uint16 = 0x0100
	CodeTimeout      uint16 = 0x0101
	CodeEncoding     uint16 = 0x0102
	CodeCancelled    uint16 = 0x0103
	CodeInvalidState uint16 = 0x0104
	CodeModeMismatch uint16 = 0x0105
)

// Tracker owns the snapshot of one axis.
// It is runner-owned state: not safe for concurrent use.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker(name string) *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown, Name: name}}
}

// Snapshot returns the current snapshot.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds the cached axis view into the snapshot and reports
// whether anything changed.
// seconds_in_error is NOT incremented here; see Tick.
func (t *Tracker) Observe(info axis.Info) bool {
	next := t.snap

	next.AxisState = uint16(info.State)
	if info.StatusValid {
		next.StatusWord = info.Status
	}

	switch {
	case info.State == axis.StateDisconnected:
		next.Health = HealthDisconnected

	case info.Busy:
		next.Health = HealthBusy

	case info.Err != nil:
		next.Health = HealthError
		next.LastErrorCode = ErrorCode(info.Err)

	default:
		// Recovery / OK
		next.Health = HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
	}

	changed := next != t.snap
	t.snap = next
	return changed
}

// Tick advances seconds_in_error by one while the axis is in error or
// disconnected. Call at 1 Hz. Reports whether the snapshot changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health != HealthError && t.snap.Health != HealthDisconnected {
		return false
	}
	if t.snap.SecondsInError == 0xFFFF {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error.
// If the error does not expose a code, returns CodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	var ce *transport.ConnError
	switch {
	case errors.As(err, &ce):
		return CodeConnection
	case errors.Is(err, poller.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, cve.ErrEncoding):
		return CodeEncoding
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.Is(err, axis.ErrInvalidState), errors.Is(err, axis.ErrClosed):
		return CodeInvalidState
	case errors.Is(err, axis.ErrModeMismatch):
		return CodeModeMismatch
	}

	return CodeGeneric
}
