package dispatch

import "reflect"

// TypeRule pairs a dispatch tag with a structural predicate. The type
// strategy evaluates an ordered list of rules and yields the owner handler
// registered under prefix+Tag for each rule the token satisfies.
type TypeRule struct {
	Tag   string
	Match func(token any) bool
}

// Implements builds a TypeRule matching tokens whose dynamic type implements
// the interface T.
func Implements[T any](tag string) TypeRule {
	iface := reflect.TypeOf((*T)(nil)).Elem()
	return TypeRule{Tag: tag, Match: func(v any) bool {
		if v == nil {
			return false
		}
		return reflect.TypeOf(v).Implements(iface)
	}}
}

// OfKind builds a TypeRule matching tokens of any of the given kinds.
func OfKind(tag string, kinds ...reflect.Kind) TypeRule {
	return TypeRule{Tag: tag, Match: kindIs(kinds...)}
}

// runtimeCategories is the fixed catalog of reflection-level categories,
// tried after the primitive-kind fallback.
var runtimeCategories = []TypeRule{
	OfKind("func", reflect.Func),
	OfKind("chan", reflect.Chan),
	OfKind("ptr", reflect.Pointer),
	OfKind("struct", reflect.Struct),
}

// capabilityCategories is the fixed catalog of structural capabilities,
// tried last before the generic fallback. Order is fixed: it is the
// tie-break between capabilities a token satisfies simultaneously.
var capabilityCategories = []TypeRule{
	{Tag: "Hashable", Match: isHashable},
	OfKind("Iterable", reflect.Slice, reflect.Array, reflect.Map, reflect.Chan, reflect.String),
	OfKind("Sized", reflect.Slice, reflect.Array, reflect.Map, reflect.Chan, reflect.String),
	OfKind("Container", reflect.Slice, reflect.Array, reflect.Map),
	OfKind("Callable", reflect.Func),
	{Tag: "Set", Match: isSetLike},
	OfKind("Mapping", reflect.Map),
	OfKind("Sequence", reflect.Slice, reflect.Array, reflect.String),
	{Tag: "ByteString", Match: isByteString},
}

// genericAliases are the recognized generic-handler names, in priority
// order.
var genericAliases = []string{"handle_anything", "generic_handler", "generic_handle"}

// TypeDispatcher is the type strategy: no explicit registry, matching is by
// naming convention against the owner's handler table. For a token the
// resolution order is its concrete type (short name, then package-qualified
// name), the configured ancestor rules nearest first, the primitive kind,
// the runtime-category catalog, the structural-capability catalog, and
// finally the generic-handler aliases. More specific beats more generic,
// and declared-type ancestry beats structural capability.
type TypeDispatcher struct {
	core
}

// NewTypeDispatcher builds a type dispatcher. Supply ancestor rules with
// WithAncestors and a handler-name prefix with WithPrefix.
func NewTypeDispatcher(opts ...Option) *TypeDispatcher {
	d := &TypeDispatcher{core: newCore(opts)}
	d.core.self = d
	return d
}

func (d *TypeDispatcher) strategyName() string { return "type" }

// prepare has nothing to compute: the strategy has no registry to
// transform.
func (d *TypeDispatcher) prepare(*Registry) (any, error) {
	return nil, nil
}

func (d *TypeDispatcher) methods(b *Bound, _ any, inv Invocation) ([]Candidate, error) {
	token, ok := inv.Token()
	if !ok {
		return nil, &MisuseError{Op: "Dispatch", Reason: "type strategy needs a dispatch token"}
	}

	var out []Candidate
	yield := func(name string) {
		if fn, ok := b.owner.Handler(name); ok {
			out = append(out, Candidate{Name: name, Handler: fn})
		}
	}

	// Declared-type walk, nearest to farthest.
	for _, tag := range d.typeTags(b, token) {
		yield(d.opts.prefix + tag)
	}

	// Primitive-kind fallback for the token's most specific concrete type.
	if t := reflect.TypeOf(token); t != nil {
		yield(d.opts.prefix + t.Kind().String())
	}

	// Fixed runtime and capability catalogs.
	for _, rule := range runtimeCategories {
		if rule.Match(token) {
			yield(d.opts.prefix + rule.Tag)
		}
	}
	for _, rule := range capabilityCategories {
		if rule.Match(token) {
			yield(d.opts.prefix + rule.Tag)
		}
	}

	// Generic fallback, tried under each recognized alias.
	for _, alias := range genericAliases {
		yield(alias)
	}
	return out, nil
}

// typeTags generates the declared-type tags for a token: the concrete
// type's short and package-qualified names, then every matching ancestor
// rule in configured order. Owners can replace the walk via TagsDelegate.
func (d *TypeDispatcher) typeTags(b *Bound, token any) []string {
	if d.opts.delegate {
		if del, ok := b.owner.(TagsDelegate); ok {
			return del.DispatchTags(token)
		}
	}

	var tags []string
	if t := reflect.TypeOf(token); t != nil {
		if name := t.Name(); name != "" {
			tags = append(tags, name)
		}
		if qualified := t.String(); qualified != "" && (len(tags) == 0 || qualified != tags[0]) {
			tags = append(tags, qualified)
		}
	}
	for _, rule := range d.opts.ancestors {
		if rule.Match(token) {
			tags = append(tags, rule.Tag)
		}
	}
	return tags
}

func (d *TypeDispatcher) apply(_ *Bound, c Candidate, inv Invocation) (any, error) {
	return mergeApply(c, inv)
}

func kindIs(kinds ...reflect.Kind) func(any) bool {
	return func(v any) bool {
		t := reflect.TypeOf(v)
		if t == nil {
			return false
		}
		k := t.Kind()
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

func isHashable(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Comparable()
}

// isSetLike reports a map with empty-struct values, the conventional Go set
// shape.
func isSetLike(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Map {
		return false
	}
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 0
}

func isByteString(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}
