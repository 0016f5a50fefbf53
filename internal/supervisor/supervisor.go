// Package supervisor implements the Supervisor (§4.6): it starts the
// Scanner and Worker concurrently, translates SIGINT/SIGTERM into
// cooperative cancellation (grounded on the teacher's
// signal.NotifyContext usage in internal/cmd/index_build.go), and on
// either subsystem returning requests shutdown of the other, waiting
// up to a grace period for drainage.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DrainGrace is the maximum time Run waits for both subsystems to
// return after the first one exits, or after signal cancellation. A
// var, not a const, so tests can shrink it.
var DrainGrace = 5 * time.Second

// Subsystem is one concurrently-run loop (Scanner.Run or Worker.Run).
type Subsystem func(ctx context.Context) error

// Run starts scanner and worker concurrently under a context
// cancelled by SIGINT/SIGTERM. When either returns, the other's
// context is cancelled too. Run waits up to DrainGrace for both to
// return, then returns their joined errors (nil if both returned
// nil); if the wait times out, it returns a combined error noting
// which subsystem(s) never drained.
func Run(ctx context.Context, scanner, worker Subsystem, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanDone := make(chan error, 1)
	workDone := make(chan error, 1)

	go func() { scanDone <- scanner(runCtx) }()
	go func() { workDone <- worker(runCtx) }()

	var scanErr, workErr error
	var scanExited, workExited bool

	select {
	case scanErr = <-scanDone:
		scanExited = true
		log.Info("supervisor: scanner exited, requesting worker shutdown", zap.Error(scanErr))
	case workErr = <-workDone:
		workExited = true
		log.Info("supervisor: worker exited, requesting scanner shutdown", zap.Error(workErr))
	case <-ctx.Done():
		log.Info("supervisor: shutdown signal received")
	}
	cancel()

	timer := time.NewTimer(DrainGrace)
	defer timer.Stop()

	for !scanExited || !workExited {
		select {
		case scanErr = <-scanDone:
			scanExited = true
		case workErr = <-workDone:
			workExited = true
		case <-timer.C:
			return fmt.Errorf("supervisor: drain timed out after %s (scanner exited=%v, worker exited=%v): %w",
				DrainGrace, scanExited, workExited, errors.Join(scanErr, workErr))
		}
	}

	return errors.Join(scanErr, workErr)
}
