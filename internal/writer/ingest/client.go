// internal/writer/ingest/client.go
package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Raw Ingest v1 framing, as accepted by the status endpoint.
const (
	magicHi byte = 0x52 // 'R'
	magicLo byte = 0x49 // 'I'

	versionV1 byte = 0x01

	headerSize = 10

	respOK       byte = 0x00
	respRejected byte = 0x01
)

// ErrRejected means the endpoint refused the axis block (bad area, unit
// or address range on its side).
var ErrRejected = errors.New("writer ingest: rejected")

// EndpointClient pushes axis status registers over Raw Ingest v1.
// It keeps no connection: every WriteRegisters dials, sends one packet and
// waits for the one-byte status.
type EndpointClient struct {
	endpoint string
	timeout  time.Duration
}

type Config struct {
	Endpoint string
	Timeout  time.Duration // dial and per-direction I/O; 0 = 2s
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer ingest: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &EndpointClient{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
	}, nil
}

// Close is a no-op; there is no pooled connection.
func (c *EndpointClient) Close() error { return nil }

// WriteRegisters sends a slice of one axis block (a full block, a single
// slot, or the status word pair). Implements writer.endpointClient.
func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 {
		return nil
	}
	pkt := encodeBlock(area, unitID, addr, regs)

	conn, err := net.DialTimeout("tcp", c.endpoint, c.timeout)
	if err != nil {
		return fmt.Errorf("writer ingest: dial %s: %w", c.endpoint, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(pkt); err != nil {
		return fmt.Errorf("writer ingest: write slot %d: %w", addr, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	var status [1]byte
	if _, err := io.ReadFull(conn, status[:]); err != nil {
		return fmt.Errorf("writer ingest: read status: %w", err)
	}

	switch status[0] {
	case respOK:
		return nil
	case respRejected:
		return fmt.Errorf("%w: unit %d addr %d count %d", ErrRejected, unitID, addr, len(regs))
	default:
		return fmt.Errorf("writer ingest: unknown status 0x%02x", status[0])
	}
}

// encodeBlock frames registers for the endpoint. Header, all big-endian:
//
//	0-1  "RI"
//	2    version
//	3    area (3 = holding registers)
//	4-5  unit id
//	6-7  first register
//	8-9  register count
//
// followed by the registers, high byte first.
func encodeBlock(area byte, unitID uint8, addr uint16, regs []uint16) []byte {
	pkt := make([]byte, headerSize+2*len(regs))

	pkt[0] = magicHi
	pkt[1] = magicLo
	pkt[2] = versionV1
	pkt[3] = area
	binary.BigEndian.PutUint16(pkt[4:6], uint16(unitID))
	binary.BigEndian.PutUint16(pkt[6:8], addr)
	binary.BigEndian.PutUint16(pkt[8:10], uint16(len(regs)))

	for i, r := range regs {
		binary.BigEndian.PutUint16(pkt[headerSize+2*i:], r)
	}
	return pkt
}
