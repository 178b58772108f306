package dispatch

import "fmt"

// Dispatcher is the signature strategy: registration records the exact
// arguments given at registration time, and dispatch replays them. Matching
// is deliberately permissive: every registered handler is unconditionally a
// candidate, invoked with its own recorded arguments merged with whatever
// the dispatch call supplies. Call-time keywords must not collide with
// recorded ones.
type Dispatcher struct {
	core
}

// New builds a signature dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{core: newCore(opts)}
	d.core.self = d
	return d
}

func (d *Dispatcher) strategyName() string { return "signature" }

// prepare snapshots the registry. The signature strategy needs no further
// transformation; overrides can return richer data.
func (d *Dispatcher) prepare(reg *Registry) (any, error) {
	return reg.Entries(), nil
}

func (d *Dispatcher) methods(b *Bound, _ any, _ Invocation) ([]Candidate, error) {
	entries := d.registry.Entries()
	if len(entries) == 0 {
		if c, ok := b.genericCandidate("generic_handler"); ok {
			return []Candidate{c}, nil
		}
		return nil, nil
	}

	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		fn, ok := b.owner.Handler(e.Name)
		if !ok {
			return nil, &MisuseError{
				Op:     "Methods",
				Reason: fmt.Sprintf("registered handler %q not found on owner", e.Name),
			}
		}
		out = append(out, Candidate{Name: e.Name, Handler: fn, Args: e.Args, Kwargs: e.Kwargs})
	}
	return out, nil
}

func (d *Dispatcher) apply(_ *Bound, c Candidate, inv Invocation) (any, error) {
	return mergeApply(c, inv)
}
