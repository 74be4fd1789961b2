// cve-sim runs simulated CVE motor controllers for bench testing.
//
// Usage:
//
//	cve-sim [-listen 127.0.0.1:49700,127.0.0.1:49701] [-steps 5] [-stall]
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/tamzrod/cve-gantry/internal/cvesim"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:49700", "comma-separated listen addresses, one controller each")
	steps := flag.Int("steps", 5, "status reads until a started motion reaches its target")
	stall := flag.Bool("stall", false, "never reach the target")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, addr := range strings.Split(*listen, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("listen %s: %v", addr, err)
		}

		sim := cvesim.New(cvesim.Config{StepsToTarget: *steps, Stall: *stall})
		log.Printf("controller listening on %s", ln.Addr())

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sim.Serve(ctx, ln); err != nil {
				log.Printf("serve %s: %v", ln.Addr(), err)
			}
		}()
	}

	wg.Wait()
	log.Printf("shutdown")
}
