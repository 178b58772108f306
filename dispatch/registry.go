package dispatch

// Entry is one registered (matching key, handler name) pair. The recorded
// arguments are the strategy-specific matching key: the replayed invocation
// for the signature strategy, the pattern source for the pattern strategy.
type Entry struct {
	// Name identifies the handler on the owning object. It is resolved
	// lazily at call time, never stored as a bound reference.
	Name string

	// Args and Kwargs are the arguments recorded at registration time.
	Args   []any
	Kwargs map[string]any

	key string // canonical fingerprint of the recorded invocation
}

// Key returns the canonical comparable form of the recorded arguments.
func (e Entry) Key() string { return e.key }

// Registry is the append-only ordered list of registrations built during
// the registration phase. Order is preserved and is the tie-break for every
// strategy: first registered, first matched. The registry is immutable after
// the registration phase; appends happen only through a dispatcher's
// Register, which rejects them once prepared data has been cached.
type Registry struct {
	entries []Entry
}

func (r *Registry) add(name string, inv Invocation) {
	rec := inv.clone()
	r.entries = append(r.entries, Entry{
		Name:   name,
		Args:   rec.Args,
		Kwargs: rec.Kwargs,
		key:    rec.fingerprint(),
	})
}

// Len returns the number of registrations.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns a copy of the registration list in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
