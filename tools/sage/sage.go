// Package sage runs symbolic computations on a SageMath backend.
//
// Two backends exist: CellClient talks to a SageMathCell service over HTTP and
// LocalRunner executes a local sage binary. Both bound every call to Timeout.
package sage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blackboard/tools/errs"
)

// Timeout bounds every computation
const Timeout = 10 * time.Second

// Backend executes a Sage program and returns what it printed
type Backend interface {
	Execute(ctx context.Context, code string) (string, error)
}

// classify maps a failed call to the error taxonomy. A deadline hit while the
// caller's own context is still alive is a computation timeout.
func classify(ctx, callCtx context.Context, timeout time.Duration, err error) error {
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no result after %s", errs.ErrComputationTimeout, timeout)
	}
	return fmt.Errorf("%w: %v", errs.ErrTransport, err)
}
