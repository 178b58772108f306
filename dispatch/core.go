package dispatch

import (
	"strconv"
	"unsafe"
)

// Candidate is one resolved dispatch target: a handler plus the arguments
// the strategy bound to it (recorded registration arguments for the
// signature strategy, match data for the pattern strategy, nothing for the
// type strategy).
type Candidate struct {
	Name    string
	Handler HandlerFunc
	Args    []any
	Kwargs  map[string]any
}

// strategy is the per-flavour algorithm behind a dispatcher: it prepares
// the registry and produces ordered handler candidates for an invocation.
type strategy interface {
	strategyName() string
	prepare(reg *Registry) (any, error)
	methods(b *Bound, prepared any, inv Invocation) ([]Candidate, error)
	apply(b *Bound, c Candidate, inv Invocation) (any, error)
}

// core carries the state shared by every dispatcher flavour: configuration,
// the registry, and the memoized prepared data.
type core struct {
	opts     options
	registry Registry
	cell     preparedCell
	self     strategy
}

func newCore(opts []Option) core {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return core{opts: o}
}

// Register appends a (matching key, handler name) pair to the registry. The
// registry is append-only before preparation; registering after prepared
// data has been cached is rejected as misuse rather than silently ignored.
func (c *core) Register(name string, inv Invocation) error {
	if c.cell.ready() {
		return &MisuseError{Op: "Register", Reason: "registry is closed once prepared data has been computed"}
	}
	c.registry.add(name, inv)
	return nil
}

// HandleFunc is decorator-style registration: it stores fn under name in
// tbl, records inv as its matching key, and returns fn unchanged.
func (c *core) HandleFunc(tbl *HandlerTable, name string, inv Invocation, fn HandlerFunc) (HandlerFunc, error) {
	if err := c.Register(name, inv); err != nil {
		return nil, err
	}
	return tbl.Set(name, fn), nil
}

// Registry exposes the registration list, e.g. to Prepare overrides.
func (c *core) Registry() *Registry { return &c.registry }

// InvalidatePrepared drops the cached prepared data so the next dispatch
// recomputes it. This is the only sanctioned way to recompute; it also
// reopens the registry.
func (c *core) InvalidatePrepared() { c.cell.invalidate() }

// Bind attaches the dispatcher to an owning object and returns the view all
// dispatch calls go through. The binding records only a non-owning
// reference; call Bind again whenever the owner changes.
func (c *core) Bind(owner Owner) *Bound {
	return &Bound{core: c, owner: owner}
}

// Bound is a dispatcher attached to its current owning object. It is cheap
// to create and safe to discard after use.
type Bound struct {
	core  *core
	owner Owner
}

// Owner returns the attached owning object.
func (b *Bound) Owner() Owner { return b.owner }

// DispatchData returns the memoized prepared data, computing it on first
// use. Reading it from inside a Prepare override fails with MisuseError.
func (b *Bound) DispatchData() (any, error) {
	return b.core.cell.peek(b.runPrepare)
}

func (b *Bound) ensurePrepared() (any, error) {
	return b.core.cell.get(b.runPrepare)
}

// runPrepare is the uncached preparation step: the owner's PrepareDelegate
// if present, the strategy default otherwise. It is a pure function of the
// registry.
func (b *Bound) runPrepare() (any, error) {
	if b.core.opts.delegate {
		if d, ok := b.owner.(PrepareDelegate); ok {
			return d.PrepareDispatch(&b.core.registry)
		}
	}
	return b.core.self.prepare(&b.core.registry)
}

// Methods returns every candidate the invocation dispatches to, in
// resolution order, deduplicated. The first call triggers preparation.
func (b *Bound) Methods(inv Invocation) ([]Candidate, error) {
	if b.core.opts.delegate {
		if d, ok := b.owner.(MethodsDelegate); ok {
			cands, err := d.DispatchMethods(inv)
			if err != nil {
				return nil, err
			}
			return dedupeCandidates(cands), nil
		}
	}
	prepared, err := b.ensurePrepared()
	if err != nil {
		return nil, err
	}
	cands, err := b.core.self.methods(b, prepared, inv)
	if err != nil {
		return nil, err
	}
	return dedupeCandidates(cands), nil
}

// GetMethod returns the first candidate the invocation dispatches to.
func (b *Bound) GetMethod(inv Invocation) (Candidate, error) {
	cands, err := b.Methods(inv)
	if err != nil {
		return Candidate{}, err
	}
	if len(cands) == 0 {
		return Candidate{}, noMatch(b.core.self.strategyName(), inv)
	}
	return cands[0], nil
}

// Dispatch finds and evaluates the first matching handler and returns its
// result; remaining candidates are not evaluated. With the WithMulti option
// it instead returns the lazy Results cursor over every match.
func (b *Bound) Dispatch(inv Invocation) (any, error) {
	res, err := b.GenDispatch(inv)
	if err != nil {
		return nil, err
	}
	if b.core.opts.multi {
		return res, nil
	}
	if res.Next() {
		return res.Result(), nil
	}
	// Either the first handler failed or it signalled a cooperative stop,
	// in which case there is no result and no error.
	return nil, res.Err()
}

// GenDispatch returns a lazy, finite, non-restartable sequence over the
// results of every matching handler, evaluated in resolution order as the
// cursor advances. It fails fast: a token with zero candidates returns
// ErrNoMatch here, not on first consumption.
func (b *Bound) GenDispatch(inv Invocation) (*Results, error) {
	cands, err := b.Methods(inv)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, noMatch(b.core.self.strategyName(), inv)
	}
	return &Results{bound: b, inv: inv, cands: cands}, nil
}

// Apply evaluates a single candidate against the call-time invocation.
func (b *Bound) Apply(c Candidate, inv Invocation) (any, error) {
	if b.core.opts.delegate {
		if d, ok := b.owner.(ApplyDelegate); ok {
			return d.ApplyHandler(c, inv)
		}
	}
	return b.core.self.apply(b, c, inv)
}

// mergeApply is the default application: recorded arguments merged into the
// call-time invocation with no-clobber keyword semantics.
func mergeApply(c Candidate, inv Invocation) (any, error) {
	merged, err := inv.merge(c.Args, c.Kwargs)
	if err != nil {
		return nil, err
	}
	return c.Handler(merged)
}

// genericCandidate resolves the owner's fallback handler under the first of
// the given alias names that exists.
func (b *Bound) genericCandidate(aliases ...string) (Candidate, bool) {
	for _, name := range aliases {
		if fn, ok := b.owner.Handler(name); ok {
			return Candidate{Name: name, Handler: fn}, true
		}
	}
	return Candidate{}, false
}

// handlerID identifies a resolved handler. A func value is a single pointer
// to its closure, so copies of one handler compare equal while distinct
// closures sharing a function body do not.
func handlerID(fn HandlerFunc) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&fn)))
}

// dedupeCandidates drops repeat candidates: the same resolved handler bound
// to the same arguments is yielded at most once per dispatch, even when
// reachable through multiple names (type and category aliases included).
// The input slice may belong to a MethodsDelegate, so it is never filtered
// in place.
func dedupeCandidates(in []Candidate) []Candidate {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		key := strconv.FormatUint(uint64(handlerID(c.Handler)), 16) +
			"\x00" + Invocation{Args: c.Args, Kwargs: c.Kwargs}.fingerprint()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
