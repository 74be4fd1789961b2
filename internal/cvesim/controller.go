// Package cvesim is a simulated CVE motor controller.
//
// It models the objects the gantry uses: master control, the control word
// state machine, operating mode, the record table and the status word with
// its "target reached" pattern. Motion completes after a configurable number
// of status reads.
package cvesim

import (
	"sync"

	"github.com/tamzrod/cve-gantry/internal/cve"
)

// Status words reported by the simulator.
const (
	StatusSwitchOnDisabled uint32 = 0x0040
	StatusReadyToSwitchOn  uint32 = 0x0021
	StatusSwitchedOn       uint32 = 0x0023
	StatusEnabled          uint32 = 0x0427
	StatusTargetReached    uint32 = 0xC427
)

var objectTypes = map[uint16]cve.DataType{
	cve.ObjStatus:          cve.UINT32,
	cve.ObjControl:         cve.UINT32,
	cve.ObjMasterControl:   cve.UINT8,
	cve.ObjRecordTarget:    cve.SINT32,
	cve.ObjRecordVelocity:  cve.UINT32,
	cve.ObjRecordSelect:    cve.UINT8,
	cve.ObjTargetPosition:  cve.SINT32,
	cve.ObjOperatingMode:   cve.SINT8,
	cve.ObjModeDisplay:     cve.SINT8,
	cve.ObjActiveRecord:    cve.UINT8,
	cve.ObjTargetPosition2: cve.SINT32,
}

var readOnly = map[uint16]bool{
	cve.ObjStatus:          true,
	cve.ObjTargetPosition:  true,
	cve.ObjModeDisplay:     true,
	cve.ObjActiveRecord:    true,
	cve.ObjTargetPosition2: true,
}

// Config tunes the simulated device.
type Config struct {
	// Status reads needed after a start before the target is reached.
	StepsToTarget int
	// Stall keeps motions running forever.
	Stall bool
}

// Controller is one simulated device. Safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	master   bool
	control  uint32
	mode     int8
	latched  bool // start bit seen since last 0x0F
	moving   int  // status reads left until target reached
	reached  bool
	record   uint8
	position int32

	targets    map[uint8]int32
	velocities map[uint8]uint32
	reject     map[uint16]cve.AckCode

	log []cve.Request
}

// New creates a powered-up controller with master control unassigned.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:        cfg,
		record:     1,
		targets:    make(map[uint8]int32),
		velocities: make(map[uint8]uint32),
		reject:     make(map[uint16]cve.AckCode),
	}
}

// Reject makes every request to index answer with ack. AckOK clears it.
func (c *Controller) Reject(index uint16, ack cve.AckCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ack.OK() {
		delete(c.reject, index)
		return
	}
	c.reject[index] = ack
}

// SetRecordTarget preloads the record table.
func (c *Controller) SetRecordTarget(record uint8, units int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[record] = units
}

// RecordTarget returns the stored target of record in device units.
func (c *Controller) RecordTarget(record uint8) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[record]
}

// RecordVelocity returns the stored velocity of record in device units.
func (c *Controller) RecordVelocity(record uint8) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.velocities[record]
}

// Position returns the simulated actual position in device units.
func (c *Controller) Position() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Requests returns a copy of every request received so far.
func (c *Controller) Requests() []cve.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cve.Request(nil), c.log...)
}

// RoundTrip lets the controller stand in for a transport.
func (c *Controller) RoundTrip(req []byte) ([]byte, error) {
	return c.Handle(req)
}

// Close is a no-op; the simulated device has no connection to release.
func (c *Controller) Close() error { return nil }

// Handle answers one request frame.
func (c *Controller) Handle(frame []byte) ([]byte, error) {
	q, err := cve.DecodeRequest(frame)
	if err != nil && q.Service != cve.ServiceWrite {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log = append(c.log, q)

	switch q.Service {
	case cve.ServiceWrite:
		if err != nil {
			return cve.EncodeWriteResponse(q, cve.AckInvalidDataType), nil
		}
		return cve.EncodeWriteResponse(q, c.write(q)), nil
	case cve.ServiceRead:
		ack, dt, v := c.read(q)
		return cve.EncodeReadResponse(q, ack, dt, v), nil
	default:
		return cve.EncodeWriteResponse(q, cve.AckUnsupportedService), nil
	}
}

// ---- object model (mu held) ----

func (c *Controller) write(q cve.Request) cve.AckCode {
	if ack, ok := c.reject[q.Index]; ok {
		return ack
	}
	dt, ok := objectTypes[q.Index]
	if !ok {
		return cve.AckInvalidIndex
	}
	if readOnly[q.Index] {
		return cve.AckNotWritable
	}
	if q.DataType != dt {
		return cve.AckInvalidDataType
	}
	if q.Index != cve.ObjMasterControl && !c.master {
		return cve.AckMasterControlRequired
	}

	v := q.Value()
	switch q.Index {
	case cve.ObjMasterControl:
		c.master = v == int64(cve.MasterControlCVE)
	case cve.ObjControl:
		c.writeControl(uint32(v))
	case cve.ObjOperatingMode:
		if c.moving > 0 {
			return cve.AckRangeViolation
		}
		c.mode = int8(v)
	case cve.ObjRecordTarget:
		c.targets[q.Subindex] = int32(v)
	case cve.ObjRecordVelocity:
		c.velocities[q.Subindex] = uint32(v)
	case cve.ObjRecordSelect:
		if v == 0 {
			return cve.AckBelowMinimum
		}
		c.record = uint8(v)
	}
	return cve.AckOK
}

func (c *Controller) writeControl(word uint32) {
	c.control = word

	if word&0x0F != 0x0F {
		c.moving = 0
		c.latched = false
		return
	}

	start := word&0x10 != 0
	if !start {
		c.latched = false
		return
	}
	if c.latched {
		return
	}
	c.latched = true

	if c.mode != int8(cve.ModeHoming) && c.mode != int8(cve.ModePositioning) {
		return
	}
	c.reached = false
	c.moving = c.cfg.StepsToTarget
	if c.moving == 0 {
		c.complete()
	}
}

func (c *Controller) complete() {
	c.reached = true
	if c.mode == int8(cve.ModeHoming) {
		c.position = 0
		return
	}
	c.position = c.targets[c.record]
}

func (c *Controller) status() uint32 {
	switch {
	case c.control&0x0F == 0x0F:
		if c.moving > 0 && !c.cfg.Stall {
			c.moving--
			if c.moving == 0 {
				c.complete()
			}
		}
		if c.reached {
			return StatusTargetReached
		}
		return StatusEnabled
	case c.control&0x07 == 0x07:
		return StatusSwitchedOn
	case c.control&0x06 == 0x06:
		return StatusReadyToSwitchOn
	default:
		return StatusSwitchOnDisabled
	}
}

func (c *Controller) read(q cve.Request) (cve.AckCode, cve.DataType, uint32) {
	dt, ok := objectTypes[q.Index]
	if ack, rejected := c.reject[q.Index]; rejected {
		return ack, dt, 0
	}
	if !ok {
		return cve.AckInvalidIndex, 0, 0
	}

	switch q.Index {
	case cve.ObjStatus:
		return cve.AckOK, dt, c.status()
	case cve.ObjControl:
		return cve.AckOK, dt, c.control
	case cve.ObjMasterControl:
		if c.master {
			return cve.AckOK, dt, uint32(cve.MasterControlCVE)
		}
		return cve.AckOK, dt, 0
	case cve.ObjRecordTarget:
		return cve.AckOK, dt, uint32(c.targets[q.Subindex])
	case cve.ObjRecordVelocity:
		return cve.AckOK, dt, c.velocities[q.Subindex]
	case cve.ObjRecordSelect, cve.ObjActiveRecord:
		return cve.AckOK, dt, uint32(c.record)
	case cve.ObjTargetPosition, cve.ObjTargetPosition2:
		return cve.AckOK, dt, uint32(c.targets[c.record])
	case cve.ObjOperatingMode, cve.ObjModeDisplay:
		return cve.AckOK, dt, uint32(uint8(c.mode))
	}
	return cve.AckInvalidIndex, 0, 0
}
