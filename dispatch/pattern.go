package dispatch

import (
	"fmt"
	"regexp"
)

// Match carries the outcome of the winning pattern. It is bound to the
// dispatched handler together with the matched text.
type Match struct {
	// Pattern is the pattern source as registered.
	Pattern string
	// Text is the text the pattern was run against.
	Text string
	// Groups holds the full match followed by the submatches.
	Groups []string
}

// patternEntry is one compiled registration, in registry order.
type patternEntry struct {
	re     *regexp.Regexp
	source string
	name   string
}

// PatternDispatcher is the pattern strategy: preparation compiles every
// registered matching key into a pattern, and dispatch runs the compiled
// patterns against a text derived from the token, in registration order.
// Patterns match at the start of the text. Registration order wins over
// pattern specificity.
type PatternDispatcher struct {
	core
}

// NewPatternDispatcher builds a pattern dispatcher. Register handlers with
// the pattern source as the first recorded argument:
//
//	pd.Register("handleGet", dispatch.NewInvocation(`GET (\S+)`))
func NewPatternDispatcher(opts ...Option) *PatternDispatcher {
	d := &PatternDispatcher{core: newCore(opts)}
	d.core.self = d
	return d
}

func (d *PatternDispatcher) strategyName() string { return "pattern" }

// prepare compiles the registered patterns, preserving registry order.
func (d *PatternDispatcher) prepare(reg *Registry) (any, error) {
	entries := reg.Entries()
	out := make([]patternEntry, 0, len(entries))
	for _, e := range entries {
		if len(e.Args) == 0 {
			return nil, &MisuseError{
				Op:     "Prepare",
				Reason: fmt.Sprintf("registration %q has no pattern argument", e.Name),
			}
		}
		src, ok := e.Args[0].(string)
		if !ok {
			return nil, &MisuseError{
				Op:     "Prepare",
				Reason: fmt.Sprintf("registration %q pattern is %T, want string", e.Name, e.Args[0]),
			}
		}
		// Anchor at the start of the text; the pattern decides how far to
		// reach.
		re, err := regexp.Compile(`\A(?:` + src + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q for %q: %w", src, e.Name, err)
		}
		out = append(out, patternEntry{re: re, source: src, name: e.Name})
	}
	return out, nil
}

func (d *PatternDispatcher) methods(b *Bound, prepared any, inv Invocation) ([]Candidate, error) {
	compiled, ok := prepared.([]patternEntry)
	if !ok {
		return nil, &MisuseError{
			Op:     "Methods",
			Reason: fmt.Sprintf("prepared data is %T, want compiled patterns", prepared),
		}
	}

	text, err := d.text(b, inv)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, p := range compiled {
		groups := p.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		fn, ok := b.owner.Handler(p.name)
		if !ok {
			return nil, &MisuseError{
				Op:     "Methods",
				Reason: fmt.Sprintf("registered handler %q not found on owner", p.name),
			}
		}
		out = append(out, Candidate{
			Name:    p.name,
			Handler: fn,
			Args:    []any{text, &Match{Pattern: p.source, Text: text, Groups: groups}},
		})
	}
	if len(out) == 0 {
		if c, ok := b.genericCandidate("generic_handler"); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// text derives the text to match from the token: identity for strings, a
// conversion for byte slices and Stringers, a TextDelegate override for
// anything else.
func (d *PatternDispatcher) text(b *Bound, inv Invocation) (string, error) {
	if d.opts.delegate {
		if del, ok := b.owner.(TextDelegate); ok {
			return del.DispatchText(inv)
		}
	}
	token, ok := inv.Token()
	if !ok {
		return "", &MisuseError{Op: "Dispatch", Reason: "pattern strategy needs a dispatch token"}
	}
	switch t := token.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", &MisuseError{
		Op:     "Dispatch",
		Reason: fmt.Sprintf("cannot derive text from %T token; implement TextDelegate", token),
	}
}

// apply hands matched candidates only their bound (text, match) arguments;
// the generic fallback, which has none, receives the call-time invocation.
func (d *PatternDispatcher) apply(_ *Bound, c Candidate, inv Invocation) (any, error) {
	if len(c.Args) == 0 && len(c.Kwargs) == 0 {
		return c.Handler(inv)
	}
	return c.Handler(Invocation{Args: c.Args, Kwargs: c.Kwargs})
}
