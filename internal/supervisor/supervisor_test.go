package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunReturnsNilWhenBothSubsystemsExitCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	scanner := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}
	worker := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, scanner, worker, zap.NewNop())
	assert.NoError(t, err)
}

func TestRunShutsDownWorkerWhenScannerExitsFirst(t *testing.T) {
	workerStopped := make(chan struct{})

	scanner := func(ctx context.Context) error {
		return errors.New("scanner crashed")
	}
	worker := func(ctx context.Context) error {
		<-ctx.Done()
		close(workerStopped)
		return nil
	}

	err := Run(context.Background(), scanner, worker, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scanner crashed")

	select {
	case <-workerStopped:
	case <-time.After(time.Second):
		t.Fatal("worker context was never cancelled")
	}
}

func TestRunShutsDownScannerWhenWorkerExitsFirst(t *testing.T) {
	scannerStopped := make(chan struct{})

	scanner := func(ctx context.Context) error {
		<-ctx.Done()
		close(scannerStopped)
		return nil
	}
	worker := func(ctx context.Context) error {
		return nil
	}

	err := Run(context.Background(), scanner, worker, zap.NewNop())
	assert.NoError(t, err)

	select {
	case <-scannerStopped:
	case <-time.After(time.Second):
		t.Fatal("scanner context was never cancelled")
	}
}

func TestRunReturnsErrorWhenDrainTimesOut(t *testing.T) {
	orig := DrainGrace
	DrainGrace = 30 * time.Millisecond
	defer func() { DrainGrace = orig }()

	scanner := func(ctx context.Context) error {
		return errors.New("scanner done")
	}
	worker := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second) // never drains within DrainGrace
		return nil
	}

	err := Run(context.Background(), scanner, worker, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "drain timed out")
}
