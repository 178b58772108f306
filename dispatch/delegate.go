package dispatch

// Delegation lets the owning object replace any default engine operation.
// When delegation is enabled (the default), each operation first checks the
// bound owner against the matching interface below; if implemented, the
// owner's method fully replaces the default for that call. There is no
// automatic chaining: the owner's method is authoritative. Owners that
// implement none of these interfaces get the default behaviour.

// PrepareDelegate overrides the preparation step that transforms the raw
// registry into the data used at dispatch time. Implementations must work
// from the registry alone and must not read the prepared-data cache they are
// producing.
type PrepareDelegate interface {
	PrepareDispatch(reg *Registry) (any, error)
}

// MethodsDelegate overrides candidate generation: the owner supplies the
// full ordered candidate list for an invocation, bypassing the strategy.
type MethodsDelegate interface {
	DispatchMethods(inv Invocation) ([]Candidate, error)
}

// ApplyDelegate overrides handler application, e.g. to change how recorded
// and call-time arguments are combined.
type ApplyDelegate interface {
	ApplyHandler(c Candidate, inv Invocation) (any, error)
}

// TextDelegate overrides how the pattern strategy derives the text to match
// from the dispatch token. Required for tokens that are not strings, byte
// slices or fmt.Stringers.
type TextDelegate interface {
	DispatchText(inv Invocation) (string, error)
}

// TagsDelegate overrides the declared-type tag walk of the type strategy:
// the returned tags replace the concrete-type and ancestor-rule tags, in
// order. The fixed fallback catalogs still run afterwards.
type TagsDelegate interface {
	DispatchTags(token any) []string
}
