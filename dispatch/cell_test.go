package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
)

// slowPrepareOwner counts preparation passes and lets the test order the
// goroutines that race into the first dispatch.
type slowPrepareOwner struct {
	*HandlerTable
	prepares atomic.Int32
	entered  chan struct{}
	release  chan struct{}
}

func (o *slowPrepareOwner) PrepareDispatch(reg *Registry) (any, error) {
	if o.prepares.Add(1) == 1 {
		close(o.entered)
		<-o.release
	}
	return reg.Entries(), nil
}

// TestConcurrentFirstDispatchPreparesOnce verifies the initialize-once
// discipline: parallel first dispatches observe exactly one preparation pass
// and every caller sees the finished value.
func TestConcurrentFirstDispatchPreparesOnce(t *testing.T) {
	d := New()
	if err := d.Register("h", NewInvocation()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := &slowPrepareOwner{
		HandlerTable: NewHandlerTable(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	owner.Set("h", func(Invocation) (any, error) { return "ok", nil })

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := d.Bind(owner).Dispatch(NewInvocation())
			if err != nil {
				errs <- err
				return
			}
			if out != "ok" {
				errs <- &MisuseError{Op: "test", Reason: "unexpected result"}
			}
		}()
	}

	// Let one goroutine reach prepare, then release it with the rest
	// blocked behind the cell lock.
	<-owner.entered
	close(owner.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Dispatch: %v", err)
	}
	if n := owner.prepares.Load(); n != 1 {
		t.Fatalf("prepare ran %d times under concurrency, want exactly once", n)
	}
}

func TestPreparedCellInvalidateRecomputes(t *testing.T) {
	var builds int
	var cell preparedCell

	build := func() (any, error) { builds++; return builds, nil }

	for i := 0; i < 3; i++ {
		if v, err := cell.get(build); err != nil || v != 1 {
			t.Fatalf("get #%d = (%v, %v), want cached 1", i, v, err)
		}
	}
	cell.invalidate()
	if v, err := cell.get(build); err != nil || v != 2 {
		t.Fatalf("get after invalidate = (%v, %v), want rebuilt 2", v, err)
	}
}

func TestPreparedCellErrorNotCached(t *testing.T) {
	var cell preparedCell
	attempts := 0
	build := func() (any, error) {
		attempts++
		if attempts == 1 {
			return nil, &MisuseError{Op: "prepare", Reason: "transient"}
		}
		return "ready", nil
	}

	if _, err := cell.get(build); err == nil {
		t.Fatalf("first get succeeded, want error")
	}
	v, err := cell.get(build)
	if err != nil || v != "ready" {
		t.Fatalf("second get = (%v, %v), want retry to succeed", v, err)
	}
}
