package logship

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAlreadyStarted is returned by Start on every call after the first, including after Stop
var ErrAlreadyStarted = errors.New("forwarder has already been started")

// ErrFlush is reported when a batch could not be delivered. The batch is gone by the time this is seen.
type ErrFlush struct {
	Rows int
	Err  error
}

func (err *ErrFlush) Error() string {
	return fmt.Sprintf("failed to flush %d rows: %s", err.Rows, err.Err)
}

func (err *ErrFlush) Cause() error {
	return err.Err
}

func (err *ErrFlush) Unwrap() error {
	return err.Err
}

// ErrWorkerIteration is reported when one pass of the worker loop fails unexpectedly, including by panicking
type ErrWorkerIteration struct {
	Err error
}

func (err *ErrWorkerIteration) Error() string {
	return fmt.Sprintf("worker iteration failed: %s", err.Err)
}

func (err *ErrWorkerIteration) Cause() error {
	return err.Err
}

func (err *ErrWorkerIteration) Unwrap() error {
	return err.Err
}
