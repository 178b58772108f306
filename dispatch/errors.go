package dispatch

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when no strategy yields a candidate handler for a
// token and no generic fallback exists. It is always reported to the caller
// and never retried: retrying without changing the registry cannot succeed.
var ErrNoMatch = errors.New("no matching handler")

// ErrStopDispatch is a cooperative signal a handler may return (bare or
// wrapped) to stop multi-mode dispatch from trying further candidates. It is
// absorbed at the Results boundary as a normal end of the sequence and never
// surfaces to the caller.
var ErrStopDispatch = errors.New("stop dispatch")

// MisuseError reports programming misuse of the engine: registering after
// prepared data has been cached, reading prepared data from inside its own
// preparation function, or dispatching without a token. It indicates a
// defect in the embedding code, not a runtime condition, and is never
// recovered locally.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("dispatch: misuse of %s: %s", e.Op, e.Reason)
}

// ClobberError reports a call-time keyword argument that would silently
// overwrite one recorded at registration time. It is always surfaced, never
// coerced.
type ClobberError struct {
	Key string
}

func (e *ClobberError) Error() string {
	return fmt.Sprintf("dispatch: keyword argument %q would clobber a recorded value", e.Key)
}

// noMatch wraps ErrNoMatch with the strategy and invocation that failed.
func noMatch(strategy string, inv Invocation) error {
	return fmt.Errorf("%s dispatch of %s: %w", strategy, inv, ErrNoMatch)
}
