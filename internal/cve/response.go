package cve

import "encoding/binary"

// EncodeWriteResponse builds the controller's answer to a write request.
// The controller echoes service, tid, index, subindex and type.
func EncodeWriteResponse(q Request, ack AckCode) []byte {
	pkt := make([]byte, RequestHeaderSize)
	putHeader(pkt, ServiceWrite, q.TransactionID, readDeclaredLength, q.Index, q.Subindex)
	pkt[offAck] = byte(ack)
	pkt[offDataType] = byte(q.DataType)
	return pkt
}

// EncodeReadResponse builds the controller's answer to a read request.
// Rejected reads carry no payload.
func EncodeReadResponse(q Request, ack AckCode, dt DataType, value uint32) []byte {
	width := dt.Width()
	if !ack.OK() {
		width = 0
	}

	pkt := make([]byte, RequestHeaderSize+width)
	putHeader(pkt, ServiceRead, q.TransactionID, uint32(readDeclaredLength+width), q.Index, q.Subindex)
	pkt[offAck] = byte(ack)
	pkt[offDataType] = byte(dt)

	var le [payloadMaxSize]byte
	binary.LittleEndian.PutUint32(le[:], value)
	copy(pkt[offPayload:], le[:width])
	return pkt
}
