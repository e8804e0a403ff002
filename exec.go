package mnet

// exec.go declares the execution collaborator interface.  The model
// calls Run and Stop and observes success or failure; whatever launches
// the process or container behind a device lives on the far side of
// this interface.

import (
	"context"
	"fmt"
)

// A Runner launches and halts the execution backing a device.  Run
// returns an opaque handle (e.g. a container id) the device retains and
// later passes to Stop.
type Runner interface {
	Run(ctx context.Context, image string, command string) (string, error)
	Stop(ctx context.Context, handle string) error
}

// execFailure wraps a collaborator error as an ErrExecution failure.
// No retry is attached; retry policy belongs to the caller.
func execFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrExecution, err)
}
