// Package dispatch implements a multi-strategy method dispatch engine.
//
// Given a runtime value (the dispatch token) and an owning object, the engine
// selects and invokes one or more matching handlers out of a set registered
// ahead of time, without the caller writing an explicit branch per input
// shape. It is a register-once, dispatch-many component.
//
// Three strategies are provided:
//   - Dispatcher matches by replaying the exact arguments recorded at
//     registration time (every registration is a candidate, in order).
//   - TypeDispatcher matches by walking the token's type: concrete type
//     first, then embedding-supplied ancestor rules, then primitive-kind,
//     runtime-category and structural-capability fallbacks.
//   - PatternDispatcher matches compiled regular expressions against a text
//     derived from the token, in registration order.
//
// Handlers are identified by name and resolved lazily against the current
// Owner at call time; the dispatcher never stores bound references, since
// the owner may change across the dispatcher's lifetime. Attach an owner
// with Bind before dispatching:
//
//	disp := dispatch.New()
//	disp.Register("greet", dispatch.NewInvocation("hello"))
//
//	tbl := dispatch.NewHandlerTable()
//	tbl.Set("greet", func(inv dispatch.Invocation) (any, error) {
//		return "hi " + inv.Args[0].(string), nil
//	})
//
//	out, err := disp.Bind(tbl).Dispatch(dispatch.NewInvocation())
//
// Resolution order is a correctness rule, not an optimization: registration
// order is the tie-break for every strategy, more specific beats more
// generic, and the same resolved handler is never yielded twice for one
// token. Multi-mode dispatch (GenDispatch) evaluates every matching handler
// lazily, in order, through a Results cursor.
//
// Every default operation can be replaced per call by the bound owner
// through the delegate interfaces (PrepareDelegate, MethodsDelegate,
// ApplyDelegate, TextDelegate, TagsDelegate). When the owner implements one,
// its method is authoritative for that operation; there is no automatic
// chaining to the default.
//
// The engine has no built-in scheduling. All operations are synchronous and
// bounded by registry size or ancestor-chain depth. Prepared data (the
// memoized transform of the registry used at dispatch time) is computed at
// most once per dispatcher instance; concurrent first dispatches observe
// exactly one preparation pass. Registration must complete before concurrent
// dispatch begins.
package dispatch
