package cve

import (
	"fmt"
	"strings"
)

// DataType is the data-type tag carried at offset 0x11.
type DataType byte

const (
	UINT32 DataType = 0x02
	UINT16 DataType = 0x03
	UINT8  DataType = 0x04
	SINT32 DataType = 0x06
	SINT16 DataType = 0x07
	SINT8  DataType = 0x08
)

// Unknown is returned by the lookup tables for values outside the protocol.
const Unknown = "unknown"

// Width returns the payload width in bytes, or 0 for an unknown tag.
func (d DataType) Width() int {
	switch d {
	case UINT8, SINT8:
		return 1
	case UINT16, SINT16:
		return 2
	case UINT32, SINT32:
		return 4
	default:
		return 0
	}
}

// Signed reports whether the payload is two's complement.
func (d DataType) Signed() bool {
	return d == SINT8 || d == SINT16 || d == SINT32
}

// Valid reports whether d is one of the six protocol data types.
func (d DataType) Valid() bool { return d.Width() != 0 }

func (d DataType) String() string {
	switch d {
	case UINT32:
		return "UINT32"
	case UINT16:
		return "UINT16"
	case UINT8:
		return "UINT8"
	case SINT32:
		return "SINT32"
	case SINT16:
		return "SINT16"
	case SINT8:
		return "SINT8"
	default:
		return Unknown
	}
}

// ParseDataType maps a type name to its tag.
// Both "UINT8" and the zero-padded "UINT08" spellings are accepted.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "UINT32":
		return UINT32, nil
	case "UINT16":
		return UINT16, nil
	case "UINT8", "UINT08":
		return UINT8, nil
	case "SINT32":
		return SINT32, nil
	case "SINT16":
		return SINT16, nil
	case "SINT8", "SINT08":
		return SINT8, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDataType, name)
	}
}

// bounds returns the inclusive value range representable by d.
func (d DataType) bounds() (lo, hi int64) {
	switch d {
	case UINT8:
		return 0, 0xFF
	case UINT16:
		return 0, 0xFFFF
	case UINT32:
		return 0, 0xFFFFFFFF
	case SINT8:
		return -1 << 7, 1<<7 - 1
	case SINT16:
		return -1 << 15, 1<<15 - 1
	case SINT32:
		return -1 << 31, 1<<31 - 1
	default:
		return 0, -1
	}
}

// AckCode is the single-byte outcome reported by the controller at offset 0x09.
type AckCode byte

const (
	AckOK                     AckCode = 0x00
	AckUnsupportedService     AckCode = 0x01
	AckInvalidLength          AckCode = 0x03
	AckRangeViolation         AckCode = 0xA0
	AckInvalidIndex           AckCode = 0xA2
	AckNotReadable            AckCode = 0xA4
	AckNotWritable            AckCode = 0xA5
	AckNotWritableWhileEnable AckCode = 0xA6
	AckMasterControlRequired  AckCode = 0xA7
	AckBelowMinimum           AckCode = 0xA9
	AckNotInValidSet          AckCode = 0xAB
	AckInvalidDataType        AckCode = 0xAC
	AckPasswordProtected      AckCode = 0xAD
)

type ackInfo struct {
	name    string
	message string
}

var ackTable = map[AckCode]ackInfo{
	AckOK:                     {"ok", "everything ok"},
	AckUnsupportedService:     {"unsupported-service", "service is not supported, check the service id of the request"},
	AckInvalidLength:          {"invalid-length", "user data length of the request is invalid, check the structure of the request"},
	AckRangeViolation:         {"range-violation", "writing the object would violate the value range of another object"},
	AckInvalidIndex:           {"invalid-index", "invalid object index"},
	AckNotReadable:            {"not-readable", "the object cannot be read"},
	AckNotWritable:            {"not-writable", "the object cannot be written"},
	AckNotWritableWhileEnable: {"not-writable-while-enabled", "the object cannot be written while the drive is in \"operation enabled\" status"},
	AckMasterControlRequired:  {"master-control-required", "the object must not be written without master control, assign master control to the CVE interface (object 3)"},
	AckBelowMinimum:           {"below-minimum", "the value is lower than the minimum value"},
	AckNotInValidSet:          {"not-in-valid-set", "the value is not within the valid value set"},
	AckInvalidDataType:        {"invalid-data-type", "the specified data type is incorrect"},
	AckPasswordProtected:      {"password-protected", "the object is password-protected"},
}

// OK reports whether the payload of the response can be trusted.
func (a AckCode) OK() bool { return a == AckOK }

// String returns the machine name, or "unknown".
func (a AckCode) String() string {
	if info, ok := ackTable[a]; ok {
		return info.name
	}
	return Unknown
}

// Message returns the human-readable description, or "unknown".
func (a AckCode) Message() string {
	if info, ok := ackTable[a]; ok {
		return info.message
	}
	return Unknown
}
