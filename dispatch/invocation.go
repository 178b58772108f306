package dispatch

import (
	"fmt"
	"sort"
	"strings"
)

// Invocation carries the positional and keyword arguments of a registration
// or dispatch call. The first positional argument of a dispatch call is the
// dispatch token, the subject whose type or text content drives matching.
// Tokens are read-only to the engine.
type Invocation struct {
	Args   []any
	Kwargs map[string]any
}

// NewInvocation builds an invocation from positional arguments.
func NewInvocation(args ...any) Invocation {
	return Invocation{Args: args}
}

// WithKwarg returns a copy of the invocation with one keyword argument set.
func (inv Invocation) WithKwarg(key string, value any) Invocation {
	out := inv.clone()
	if out.Kwargs == nil {
		out.Kwargs = make(map[string]any, 1)
	}
	out.Kwargs[key] = value
	return out
}

// Token returns the first positional argument.
func (inv Invocation) Token() (any, bool) {
	if len(inv.Args) == 0 {
		return nil, false
	}
	return inv.Args[0], true
}

// clone copies the argument slice and keyword map. Argument values are
// shared; the engine treats them as read-only.
func (inv Invocation) clone() Invocation {
	out := Invocation{}
	if inv.Args != nil {
		out.Args = make([]any, len(inv.Args))
		copy(out.Args, inv.Args)
	}
	if inv.Kwargs != nil {
		out.Kwargs = make(map[string]any, len(inv.Kwargs))
		for k, v := range inv.Kwargs {
			out.Kwargs[k] = v
		}
	}
	return out
}

// merge combines the call-time invocation with arguments recorded at
// registration time: recorded positionals are appended after the call-time
// ones, recorded keywords are merged in with no-clobber semantics. A
// call-time keyword that duplicates a recorded one fails with ClobberError.
func (inv Invocation) merge(recorded []any, recordedKwargs map[string]any) (Invocation, error) {
	out := inv.clone()
	out.Args = append(out.Args, recorded...)
	for k, v := range recordedKwargs {
		if _, dup := out.Kwargs[k]; dup {
			return Invocation{}, &ClobberError{Key: k}
		}
		if out.Kwargs == nil {
			out.Kwargs = make(map[string]any, len(recordedKwargs))
		}
		out.Kwargs[k] = v
	}
	return out, nil
}

// String renders the invocation for log and error messages. Keyword
// arguments are sorted so the output is stable.
func (inv Invocation) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, a := range inv.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", a)
	}
	for i, k := range sortedKeys(inv.Kwargs) {
		if i > 0 || len(inv.Args) > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, inv.Kwargs[k])
	}
	b.WriteByte(')')
	return b.String()
}

// fingerprint is the canonical comparable key for a recorded invocation,
// used for registry bookkeeping and candidate deduplication.
func (inv Invocation) fingerprint() string {
	var b strings.Builder
	for _, a := range inv.Args {
		fmt.Fprintf(&b, "%T=%#v;", a, a)
	}
	for _, k := range sortedKeys(inv.Kwargs) {
		fmt.Fprintf(&b, "%s:%T=%#v;", k, inv.Kwargs[k], inv.Kwargs[k])
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
