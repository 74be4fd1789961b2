package axis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/cve-gantry/internal/cve"
	"github.com/tamzrod/cve-gantry/internal/transport"
)

// DefaultConversionRatio is device units (SINC) per millimeter.
const DefaultConversionRatio = 1000

var (
	ErrClosed       = errors.New("axis: session closed")
	ErrInvalidState = errors.New("axis: operation not valid in current state")
	ErrModeMismatch = errors.New("axis: operating mode not confirmed")
)

// Transport is the exchange contract the session depends on.
// *transport.Client implements it.
type Transport interface {
	RoundTrip(req []byte) ([]byte, error)
	Close() error
}

// Config is the per-axis runtime config.
type Config struct {
	Name     string
	Endpoint string

	// Record used by MoveTo and SetVelocity. 0 means record 1.
	Record int

	// Device units per millimeter. 0 means DefaultConversionRatio.
	ConversionRatio float64

	// When ReferenceMillimeters > 0, Open derives the ratio from the
	// target position stored in ReferenceRecord.
	ReferenceRecord      int
	ReferenceMillimeters float64

	SettleDelay     time.Duration
	MaxPollAttempts int

	// Trace receives one event per exchange. May be nil.
	Trace func(Event)
}

// Session owns one controller connection exclusively.
type Session struct {
	cfg Config

	mu  sync.Mutex // serializes operations and the transport
	tr  Transport
	tid uint32

	infoMu sync.RWMutex
	info   Info
	closed bool
	ratio  float64 // written under mu and infoMu
}

// New wraps an open transport. The session starts in StateConnected.
func New(cfg Config, tr Transport) (*Session, error) {
	if tr == nil {
		return nil, errors.New("axis: transport required")
	}
	if cfg.Record == 0 {
		cfg.Record = 1
	}
	if cfg.Record < 0 || cfg.Record > 0xFF {
		return nil, fmt.Errorf("axis %s: record %d out of range", cfg.Name, cfg.Record)
	}

	ratio := cfg.ConversionRatio
	if ratio == 0 {
		ratio = DefaultConversionRatio
	}
	if ratio < 0 {
		return nil, fmt.Errorf("axis %s: conversion ratio must be > 0", cfg.Name)
	}

	return &Session{
		cfg:   cfg,
		tr:    tr,
		ratio: ratio,
		info: Info{
			Name:     cfg.Name,
			Endpoint: cfg.Endpoint,
			State:    StateConnected,
			Updated:  time.Now(),
		},
	}, nil
}

// Open dials the controller, assigns master control to the CVE interface
// and, if configured, derives the conversion ratio.
func Open(ctx context.Context, cfg Config, dial transport.Config) (*Session, error) {
	if dial.Endpoint == "" {
		dial.Endpoint = cfg.Endpoint
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = dial.Endpoint
	}

	tr, err := transport.Dial(ctx, dial)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", cfg.Name, err)
	}

	s, err := New(cfg, tr)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	if err := s.SetProtocolMode(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	if cfg.ReferenceMillimeters > 0 {
		if _, err := s.DeriveConversion(ctx, cfg.ReferenceRecord, cfg.ReferenceMillimeters); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return s, nil
}

// Name returns the configured axis name.
func (s *Session) Name() string { return s.cfg.Name }

// Conversion returns the active device-units-per-millimeter ratio.
func (s *Session) Conversion() float64 {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.ratio
}

// Info returns the cached axis view without touching the connection.
func (s *Session) Info() Info {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info
}

// State returns the current logical mode.
func (s *Session) State() State { return s.Info().State }

// Close releases the connection. Valid in any state; later calls are no-ops.
func (s *Session) Close() error {
	s.infoMu.Lock()
	if s.closed {
		s.infoMu.Unlock()
		return nil
	}
	s.closed = true
	s.info.State = StateDisconnected
	s.info.Updated = time.Now()
	s.infoMu.Unlock()

	if err := s.tr.Close(); err != nil {
		return fmt.Errorf("axis %s: close: %w", s.cfg.Name, err)
	}
	return nil
}

// ---- operation plumbing ----

// do runs fn under the session lock after checking the state precondition.
// Errors are wrapped with the axis name and op, and cached in Info.
func (s *Session) do(ctx context.Context, op string, need State, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infoMu.Lock()
	if s.closed {
		s.infoMu.Unlock()
		return fmt.Errorf("axis %s: %s: %w", s.cfg.Name, op, ErrClosed)
	}
	prev := s.info.State
	if prev < need {
		s.infoMu.Unlock()
		return fmt.Errorf("axis %s: %s: %w (state=%s, requires %s)", s.cfg.Name, op, ErrInvalidState, prev, need)
	}
	s.info.Busy = true
	s.infoMu.Unlock()

	err := fn(ctx)

	s.infoMu.Lock()
	s.info.Busy = false
	s.info.Err = err
	if err != nil && (s.info.State == StateHoming || s.info.State == StateMoving) {
		s.info.State = prev
	}
	s.info.Updated = time.Now()
	s.infoMu.Unlock()

	if err != nil {
		return fmt.Errorf("axis %s: %s: %w", s.cfg.Name, op, err)
	}
	return nil
}

func (s *Session) setState(st State) {
	s.infoMu.Lock()
	s.info.State = st
	s.info.Updated = time.Now()
	s.infoMu.Unlock()
}

func (s *Session) nextTID() uint32 {
	s.tid++
	return s.tid
}

// exchange sends one request and decodes the response. Caller holds mu.
func (s *Session) exchange(ctx context.Context, op string, req []byte, service cve.Service, value int64) (cve.Record, error) {
	if err := ctx.Err(); err != nil {
		return cve.Record{}, err
	}

	start := time.Now()
	raw, err := s.tr.RoundTrip(req)

	var rec cve.Record
	if err == nil {
		if service == cve.ServiceWrite {
			rec, err = cve.DecodeWriteResponse(raw)
		} else {
			rec, err = cve.DecodeReadResponse(raw)
		}
	}

	if s.cfg.Trace != nil {
		q, _ := cve.DecodeRequest(req)
		ev := Event{
			Axis:     s.cfg.Name,
			Op:       op,
			Service:  service,
			Index:    q.Index,
			Subindex: q.Subindex,
			Elapsed:  time.Since(start),
			Err:      err,
		}
		if err == nil {
			ev.Ack = rec.Ack
			if service == cve.ServiceWrite {
				ev.Value = value
			} else {
				ev.Payload = rec.Payload
			}
		}
		s.cfg.Trace(ev)
	}

	if err != nil {
		return rec, err
	}
	if err := cve.Check(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *Session) write(ctx context.Context, op string, dt cve.DataType, index uint16, subindex uint8, value int64) error {
	req, err := cve.EncodeWrite(dt, index, subindex, value, s.nextTID())
	if err != nil {
		return err
	}
	_, err = s.exchange(ctx, op, req, cve.ServiceWrite, value)
	return err
}

func (s *Session) read(ctx context.Context, op string, index uint16, subindex uint8) (cve.Record, error) {
	return s.exchange(ctx, op, cve.EncodeRead(index, subindex, s.nextTID()), cve.ServiceRead, 0)
}

func (s *Session) readStatus(ctx context.Context, op string) (cve.Record, error) {
	rec, err := s.read(ctx, op, cve.ObjStatus, 0)
	if err != nil {
		return rec, err
	}

	s.infoMu.Lock()
	s.info.Status = rec.Payload
	s.info.StatusValid = true
	s.info.Updated = time.Now()
	s.infoMu.Unlock()

	return rec, nil
}

func (s *Session) control(ctx context.Context, op string, word uint32) error {
	return s.write(ctx, op, cve.UINT32, cve.ObjControl, 0, int64(word))
}
