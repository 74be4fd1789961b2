package ingest

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// serveOnce accepts one connection, captures the packet and answers status.
func serveOnce(t *testing.T, status byte, want int) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err=%v", err)
	}

	got := make(chan []byte, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, want)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		got <- buf
		_, _ = conn.Write([]byte{status})
	}()

	return ln.Addr().String(), got
}

func TestEncodeBlock_Layout(t *testing.T) {
	pkt := encodeBlock(3, 7, 0x0102, []uint16{0xAABB, 0xCCDD})

	want := []byte{
		'R', 'I', 0x01, 0x03,
		0x00, 0x07,
		0x01, 0x02,
		0x00, 0x02,
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("packet=% X want % X", pkt, want)
	}
}

func TestWriteRegisters_OK(t *testing.T) {
	addr, got := serveOnce(t, respOK, headerSize+4)

	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewEndpointClient err=%v", err)
	}

	if err := c.WriteRegisters(3, 1, 40, []uint16{0xC427, 0x0001}); err != nil {
		t.Fatalf("WriteRegisters err=%v", err)
	}

	pkt := <-got
	if !bytes.Equal(pkt[headerSize:], []byte{0xC4, 0x27, 0x00, 0x01}) {
		t.Fatalf("payload=% X", pkt[headerSize:])
	}
	if pkt[6] != 0 || pkt[7] != 40 {
		t.Fatalf("address bytes=% X", pkt[6:8])
	}
}

func TestWriteRegisters_Rejected(t *testing.T) {
	addr, _ := serveOnce(t, respRejected, headerSize+2)

	c, _ := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})

	if err := c.WriteRegisters(3, 1, 0, []uint16{1}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestWriteRegisters_EmptyIsNoop(t *testing.T) {
	// nothing listens here; a dial would fail
	c, _ := NewEndpointClient(Config{Endpoint: "127.0.0.1:1", Timeout: 100 * time.Millisecond})

	if err := c.WriteRegisters(3, 1, 0, nil); err != nil {
		t.Fatalf("empty write err=%v", err)
	}
}

func TestNewEndpointClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewEndpointClient(Config{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
