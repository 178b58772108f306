package dispatch

import (
	"sync"
	"sync/atomic"
)

const (
	cellIdle int32 = iota
	cellBuilding
	cellReady
)

// preparedCell is the once-initialized holder for a dispatcher's prepared
// data. The first reader computes the value while holding the cell lock, so
// concurrent first dispatches block and observe exactly one preparation
// pass. A preparation error is not cached; the next reader retries.
//
// A peek that arrives while the value is still being built can only come
// from inside the preparation function itself, which is misuse: prepare must
// work from the registry, not from the cache it is producing.
type preparedCell struct {
	mu    sync.Mutex
	state atomic.Int32
	value any
}

// get returns the prepared value, computing it on first use.
func (c *preparedCell) get(build func() (any, error)) (any, error) {
	if c.state.Load() == cellReady {
		return c.value, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Load() == cellReady {
		return c.value, nil
	}
	c.state.Store(cellBuilding)
	v, err := build()
	if err != nil {
		c.state.Store(cellIdle)
		return nil, err
	}
	c.value = v
	c.state.Store(cellReady)
	return v, nil
}

// peek is get with re-entrancy detection for direct cache reads.
func (c *preparedCell) peek(build func() (any, error)) (any, error) {
	if c.state.Load() == cellBuilding {
		return nil, &MisuseError{
			Op:     "DispatchData",
			Reason: "prepared data read during its own preparation; use the registry inside Prepare overrides",
		}
	}
	return c.get(build)
}

// ready reports whether the value has been computed.
func (c *preparedCell) ready() bool { return c.state.Load() == cellReady }

// invalidate drops the cached value so the next read recomputes it.
func (c *preparedCell) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.state.Store(cellIdle)
}
