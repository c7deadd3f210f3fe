package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thecyberx/cyberx/pkg/ui"
)

// SignalContext returns a child of parent that is cancelled on SIGINT or
// SIGTERM. A running panel sees the cancellation and its result is
// discarded. A second signal within grace exits the process with status 130.
//
//	ctx, cancel := cli.SignalContext(context.Background(), 5*time.Second)
//	defer cancel()
func SignalContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	return signalContext(parent, grace, nil, nil)
}

// signalContext takes the signal channel and exit function from tests.
func signalContext(parent context.Context, grace time.Duration, sigs chan os.Signal, exit func(int)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	owned := sigs == nil
	if owned {
		sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	}
	if exit == nil {
		exit = os.Exit
	}

	go func() {
		defer func() {
			if owned {
				signal.Stop(sigs)
			}
		}()
		select {
		case <-sigs:
			ui.PrintWarning("Interrupted, stopping (press Ctrl+C again to quit now)")
			cancel()
			select {
			case <-sigs:
				exit(130)
			case <-time.After(grace):
			}
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
