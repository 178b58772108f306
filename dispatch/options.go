package dispatch

// DefaultPrefix is the handler-name prefix the type strategy uses when none
// is configured.
const DefaultPrefix = "handle_"

type options struct {
	delegate  bool
	multi     bool
	prefix    string
	ancestors []TypeRule
}

func defaultOptions() options {
	return options{delegate: true, prefix: DefaultPrefix}
}

// Option configures a dispatcher at construction time.
type Option func(*options)

// WithoutDelegation disables owner overrides of the default engine
// operations. Delegation is on by default.
func WithoutDelegation() Option {
	return func(o *options) { o.delegate = false }
}

// WithMulti switches Dispatch to multi mode: instead of the first matching
// handler's result it returns a lazy Results cursor over every match.
func WithMulti() Option {
	return func(o *options) { o.multi = true }
}

// WithPrefix sets the handler-name prefix the type strategy prepends to
// type and category tags.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithAncestors supplies the ordered ancestor rules of the type strategy,
// nearest first. The rules are evaluated after the token's concrete type and
// before the fixed fallback catalogs.
func WithAncestors(rules ...TypeRule) Option {
	return func(o *options) { o.ancestors = append(o.ancestors, rules...) }
}
