package cve

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record is a decoded response (or request, see DecodeRequest).
// Payload fields are only meaningful for read responses with AckOK.
type Record struct {
	Service        Service
	TransactionID  uint32
	DeclaredLength uint32
	Ack            AckCode
	Index          uint16
	Subindex       uint8
	DataType       DataType

	// Payload is the little-endian unsigned value at 0x12.
	Payload uint32
	// PayloadBE is the same four bytes in big-endian order.
	PayloadBE [4]byte
}

// Int32 reinterprets the payload as a signed 32-bit value.
func (r Record) Int32() int32 { return int32(r.Payload) }

// TargetReached reports whether the trailing two payload bytes carry the
// "target reached" pattern. Only meaningful for status reads.
func (r Record) TargetReached() bool {
	return r.PayloadBE[2] == TargetReachedPattern[0] &&
		r.PayloadBE[3] == TargetReachedPattern[1]
}

// Request is a decoded request frame.
type Request struct {
	Service       Service
	TransactionID uint32
	Index         uint16
	Subindex      uint8
	DataType      DataType // write only
	Payload       []byte   // write only, little-endian
}

// Value returns the write payload as an integer, sign-extended for signed types.
func (q Request) Value() int64 {
	var u uint64
	for i := len(q.Payload) - 1; i >= 0; i-- {
		u = u<<8 | uint64(q.Payload[i])
	}
	if q.DataType.Signed() && len(q.Payload) > 0 {
		shift := 64 - 8*uint(len(q.Payload))
		return int64(u<<shift) >> shift
	}
	return int64(u)
}

// ---- encoding ----

// EncodeWrite builds a write request for value encoded with dt.
//
// Layout:
//
//	service(1) tid(4) length(4) ack(1) reserved(4) index(2) subindex(1) type(1) payload(width)
func EncodeWrite(dt DataType, index uint16, subindex uint8, value int64, tid uint32) ([]byte, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: tag 0x%02X", ErrInvalidDataType, byte(dt))
	}
	lo, hi := dt.bounds()
	if value < lo || value > hi {
		return nil, fmt.Errorf("%w: %d for %s", ErrPayloadRange, value, dt)
	}

	payload := make([]byte, dt.Width())
	u := uint64(value)
	for i := range payload {
		payload[i] = byte(u >> (8 * uint(i)))
	}
	return EncodeWriteRaw(dt, index, subindex, payload, tid)
}

// EncodeWriteRaw builds a write request from little-endian payload bytes.
func EncodeWriteRaw(dt DataType, index uint16, subindex uint8, payload []byte, tid uint32) ([]byte, error) {
	width := dt.Width()
	if width == 0 {
		return nil, fmt.Errorf("%w: tag 0x%02X", ErrInvalidDataType, byte(dt))
	}
	if len(payload) != width {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrPayloadWidth, dt, width, len(payload))
	}

	pkt := make([]byte, RequestHeaderSize+width)
	putHeader(pkt, ServiceWrite, tid, uint32(width+4), index, subindex)
	pkt[offDataType] = byte(dt)
	copy(pkt[offPayload:], payload)
	return pkt, nil
}

// EncodeRead builds a read request. The type field is a zero placeholder.
func EncodeRead(index uint16, subindex uint8, tid uint32) []byte {
	pkt := make([]byte, RequestHeaderSize)
	putHeader(pkt, ServiceRead, tid, readDeclaredLength, index, subindex)
	return pkt
}

func putHeader(pkt []byte, s Service, tid, length uint32, index uint16, subindex uint8) {
	pkt[offService] = byte(s)
	binary.LittleEndian.PutUint32(pkt[offTID:], tid)
	binary.LittleEndian.PutUint32(pkt[offLength:], length)
	pkt[offAck] = 0
	// offReserved..offIndex stays zero
	binary.LittleEndian.PutUint16(pkt[offIndex:], index)
	pkt[offSubindex] = subindex
}

// ---- decoding ----

// DecodeWriteResponse parses the fixed fields of a write response.
func DecodeWriteResponse(b []byte) (Record, error) {
	if len(b) < RequestHeaderSize {
		return Record{}, fmt.Errorf("%w: write response has %d bytes, want %d", ErrShortFrame, len(b), RequestHeaderSize)
	}
	return decodeHeader(b), nil
}

// DecodeReadResponse parses a read response including its payload.
// A payload shorter than four bytes is zero-extended.
func DecodeReadResponse(b []byte) (Record, error) {
	if len(b) < RequestHeaderSize {
		return Record{}, fmt.Errorf("%w: read response has %d bytes, want at least %d", ErrShortFrame, len(b), RequestHeaderSize)
	}
	r := decodeHeader(b)

	var le [payloadMaxSize]byte
	copy(le[:], b[offPayload:])
	r.Payload = binary.LittleEndian.Uint32(le[:])
	binary.BigEndian.PutUint32(r.PayloadBE[:], r.Payload)
	return r, nil
}

func decodeHeader(b []byte) Record {
	return Record{
		Service:        Service(b[offService]),
		TransactionID:  binary.LittleEndian.Uint32(b[offTID:]),
		DeclaredLength: binary.LittleEndian.Uint32(b[offLength:]),
		Ack:            AckCode(b[offAck]),
		Index:          binary.LittleEndian.Uint16(b[offIndex:]),
		Subindex:       b[offSubindex],
		DataType:       DataType(b[offDataType]),
	}
}

// DecodeRequest parses a request frame as produced by EncodeWrite or EncodeRead.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < RequestHeaderSize {
		return Request{}, fmt.Errorf("%w: request has %d bytes, want at least %d", ErrShortFrame, len(b), RequestHeaderSize)
	}
	q := Request{
		Service:       Service(b[offService]),
		TransactionID: binary.LittleEndian.Uint32(b[offTID:]),
		Index:         binary.LittleEndian.Uint16(b[offIndex:]),
		Subindex:      b[offSubindex],
	}
	if q.Service != ServiceWrite {
		return q, nil
	}

	q.DataType = DataType(b[offDataType])
	width := q.DataType.Width()
	if width == 0 {
		return q, fmt.Errorf("%w: tag 0x%02X", ErrInvalidDataType, byte(q.DataType))
	}
	if len(b) < RequestHeaderSize+width {
		return q, fmt.Errorf("%w: %s payload truncated", ErrShortFrame, q.DataType)
	}
	q.Payload = append([]byte(nil), b[offPayload:offPayload+width]...)
	return q, nil
}

// ---- framing ----

// ReadFrame reads exactly one frame: the fixed header, then the number of
// bytes announced by its declared length.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, HeaderSize, HeaderSize+MaxDeclaredLength)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(hdr[offLength:])
	if n < readDeclaredLength || n > MaxDeclaredLength {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, n)
	}

	frame := hdr[:HeaderSize+int(n)]
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		return nil, err
	}
	return frame, nil
}
