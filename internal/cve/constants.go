package cve

// CVE packet layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- SERVICES ----

// Service identifies the request kind at offset 0x00.
type Service byte

const (
	ServiceRead  Service = 0x10
	ServiceWrite Service = 0x11
)

func (s Service) String() string {
	switch s {
	case ServiceRead:
		return "read"
	case ServiceWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ---- OFFSETS ----

const (
	offService     = 0x00
	offTID         = 0x01
	offLength      = 0x05
	offAck         = 0x09
	offReserved    = 0x0A
	offIndex       = 0x0E
	offSubindex    = 0x10
	offDataType    = 0x11
	offPayload     = 0x12
	payloadMaxSize = 4
)

// HeaderSize is the part of every frame that precedes the declared length.
// The declared length counts the bytes after it.
const HeaderSize = offIndex

// RequestHeaderSize is the size of a write request without payload,
// and the full size of a read request.
const RequestHeaderSize = offPayload

// readDeclaredLength is index(2) + subindex(1) + placeholder(1).
const readDeclaredLength = 4

// MaxDeclaredLength bounds the declared length accepted by ReadFrame.
// index(2) + subindex(1) + type(1) + widest payload(4).
const MaxDeclaredLength = readDeclaredLength + payloadMaxSize

// DefaultTID is the transaction id used when the caller does not care.
const DefaultTID uint32 = 0xEFBEADDE

// ---- OBJECTS ----

const (
	ObjStatus          uint16 = 1   // status word (read)
	ObjControl         uint16 = 2   // control word (write UINT32)
	ObjMasterControl   uint16 = 3   // mode / master control (write UINT8)
	ObjRecordTarget    uint16 = 6   // target position per record (SINT32, subindex=record)
	ObjRecordVelocity  uint16 = 7   // velocity per record (UINT32, subindex=record)
	ObjRecordSelect    uint16 = 31  // active record select (write UINT8)
	ObjTargetPosition  uint16 = 60  // target position readback
	ObjOperatingMode   uint16 = 120 // operating mode (write SINT8)
	ObjModeDisplay     uint16 = 121 // operating mode confirmation
	ObjActiveRecord    uint16 = 141 // current active record
	ObjTargetPosition2 uint16 = 295 // alternate target position readback
)

// ---- CONTROL / MODE VALUES ----

const (
	MasterControlCVE uint8 = 0x02

	ControlShutdown        uint32 = 0x06
	ControlSwitchOn        uint32 = 0x07
	ControlEnableOperation uint32 = 0x0F
	ControlStart           uint32 = 0x1F

	ModePositioning int8 = 1
	ModeHoming      int8 = 6
)

// ---- STATUS ----

// TargetReachedPattern is matched against the two trailing bytes of the
// big-endian status payload.
var TargetReachedPattern = [2]byte{0xC4, 0x27}

// StatusTargetReached is TargetReachedPattern read as the low 16 bits of the status word.
const StatusTargetReached uint16 = 0xC427
