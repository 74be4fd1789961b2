package cvesim

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/tamzrod/cve-gantry/internal/cve"
)

// Serve accepts connections on ln until ctx is done. Every connection talks
// to the same controller state, one frame at a time.
func (c *Controller) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.serveConn(ctx, conn)
		}()
	}
}

func (c *Controller) serveConn(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		frame, err := cve.ReadFrame(conn)
		if err != nil {
			return
		}
		resp, err := c.Handle(frame)
		if err != nil {
			return
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}
