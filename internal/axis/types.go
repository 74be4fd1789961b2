package axis

import (
	"time"

	"github.com/tamzrod/cve-gantry/internal/cve"
)

// State is the logical mode of one axis as driven by this session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateModeSet
	StateEnabled
	StatePositioningReady
	StateHoming
	StateMoving
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateModeSet:
		return "mode-set"
	case StateEnabled:
		return "enabled"
	case StatePositioningReady:
		return "positioning-ready"
	case StateHoming:
		return "homing"
	case StateMoving:
		return "moving"
	default:
		return "unknown"
	}
}

// Event describes one request/response exchange.
type Event struct {
	Axis     string
	Op       string
	Service  cve.Service
	Index    uint16
	Subindex uint8
	Value    int64 // written value, writes only
	Ack      cve.AckCode
	Payload  uint32 // read payload, reads only
	Elapsed  time.Duration
	Err      error // transport or codec failure; Ack is meaningless when set
}

// Info is a cached view of the axis. Reading it performs no I/O.
type Info struct {
	Name        string
	Endpoint    string
	State       State
	Busy        bool
	Status      uint32 // last status word read from the controller
	StatusValid bool
	Err         error // last operation error, nil after a successful operation
	Updated     time.Time
}
