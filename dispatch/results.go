package dispatch

import "errors"

// Results is the lazy, finite, non-restartable sequence of multi-mode
// dispatch results. Candidates are evaluated in resolution order as the
// cursor advances:
//
//	res, err := disp.Bind(owner).GenDispatch(inv)
//	if err != nil { ... }
//	for res.Next() {
//		use(res.Result())
//	}
//	if err := res.Err(); err != nil { ... }
type Results struct {
	bound *Bound
	inv   Invocation
	cands []Candidate
	pos   int
	cur   any
	err   error
	done  bool
}

// Next evaluates the next matching handler and reports whether a result is
// available. It returns false when the sequence is exhausted, when a handler
// failed (see Err), or when a handler signalled ErrStopDispatch, which ends
// the sequence without error.
func (r *Results) Next() bool {
	if r.done || r.err != nil || r.pos >= len(r.cands) {
		r.done = true
		return false
	}
	c := r.cands[r.pos]
	r.pos++
	v, err := r.bound.Apply(c, r.inv)
	if err != nil {
		r.done = true
		if !errors.Is(err, ErrStopDispatch) {
			r.err = err
		}
		return false
	}
	r.cur = v
	return true
}

// Result returns the value produced by the last successful Next.
func (r *Results) Result() any { return r.cur }

// Err returns the handler error that terminated the sequence, if any. A
// cooperative ErrStopDispatch is absorbed and never reported here.
func (r *Results) Err() error { return r.err }

// Len returns the total number of matching candidates.
func (r *Results) Len() int { return len(r.cands) }

// Collect drains the cursor and returns every remaining result.
func (r *Results) Collect() ([]any, error) {
	var out []any
	for r.Next() {
		out = append(out, r.cur)
	}
	return out, r.err
}
