package dispatch

// HandlerFunc is the uniform shape of a dispatchable handler. It receives
// the merged invocation (call-time arguments plus any recorded or
// strategy-bound ones) and returns a result.
type HandlerFunc func(inv Invocation) (any, error)

// Owner resolves handler names to handlers. A dispatcher never stores bound
// handler references; names are resolved against the currently attached
// owner at call time, since the owner may change across the dispatcher's
// lifetime. The relation is non-owning in both directions.
type Owner interface {
	Handler(name string) (HandlerFunc, bool)
}

// HandlerTable is a map-backed Owner for embedding applications that build
// their capability table once at construction time. It is append-only:
// handlers are registered during construction and looked up at dispatch
// time; concurrent registration and dispatch is out of contract.
type HandlerTable struct {
	handlers map[string]HandlerFunc
}

// NewHandlerTable returns an empty handler table.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{handlers: make(map[string]HandlerFunc)}
}

// Set registers fn under name and returns fn unchanged, so construction code
// can register a handler and keep a reference to it in one step.
func (t *HandlerTable) Set(name string, fn HandlerFunc) HandlerFunc {
	t.handlers[name] = fn
	return fn
}

// Handler implements Owner.
func (t *HandlerTable) Handler(name string) (HandlerFunc, bool) {
	fn, ok := t.handlers[name]
	return fn, ok
}

// Names returns the registered handler names, unordered.
func (t *HandlerTable) Names() []string {
	out := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		out = append(out, name)
	}
	return out
}
