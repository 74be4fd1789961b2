package cve

import (
	"errors"
	"fmt"
)

// ErrEncoding is matched by every local encoding failure. Nothing is sent.
var ErrEncoding = errors.New("cve: encoding error")

var (
	ErrInvalidDataType = fmt.Errorf("%w: invalid data type", ErrEncoding)
	ErrPayloadWidth    = fmt.Errorf("%w: payload width does not match data type", ErrEncoding)
	ErrPayloadRange    = fmt.Errorf("%w: value not representable in data type", ErrEncoding)
)

var (
	ErrShortFrame  = errors.New("cve: short frame")
	ErrFrameLength = errors.New("cve: declared length out of range")
)

// RejectedError is returned when the controller answers with a non-ok ack.
type RejectedError struct {
	Service  Service
	Index    uint16
	Subindex uint8
	Ack      AckCode
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf(
		"cve: %s of object %d.%d rejected: %s (0x%02X): %s",
		e.Service, e.Index, e.Subindex, e.Ack, byte(e.Ack), e.Ack.Message(),
	)
}

// Code exposes the raw ack for status reporting.
func (e *RejectedError) Code() uint16 { return uint16(e.Ack) }

// Check returns a *RejectedError when r does not carry AckOK.
func Check(r Record) error {
	if r.Ack.OK() {
		return nil
	}
	return &RejectedError{
		Service:  r.Service,
		Index:    r.Index,
		Subindex: r.Subindex,
		Ack:      r.Ack,
	}
}
