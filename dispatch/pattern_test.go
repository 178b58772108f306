package dispatch

import (
	"errors"
	"testing"
)

func patternOwner(names ...string) *HandlerTable {
	tbl := NewHandlerTable()
	for _, name := range names {
		name := name
		tbl.Set(name, func(Invocation) (any, error) { return name, nil })
	}
	return tbl
}

func TestPatternRegistrationOrderBeatsSpecificity(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p1", NewInvocation("^a")); err != nil {
		t.Fatalf("Register p1: %v", err)
	}
	if err := d.Register("p2", NewInvocation("^ab")); err != nil {
		t.Fatalf("Register p2: %v", err)
	}
	owner := patternOwner("p1", "p2")

	out, err := d.Bind(owner).Dispatch(NewInvocation("abc"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "p1" {
		t.Fatalf("Dispatch(abc) = %v, want the first-registered pattern", out)
	}
}

func TestPatternMultiModeTriesAll(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p1", NewInvocation("^a")); err != nil {
		t.Fatalf("Register p1: %v", err)
	}
	if err := d.Register("p2", NewInvocation("^ab")); err != nil {
		t.Fatalf("Register p2: %v", err)
	}
	if err := d.Register("p3", NewInvocation("^z")); err != nil {
		t.Fatalf("Register p3: %v", err)
	}
	owner := patternOwner("p1", "p2", "p3")

	res, err := d.Bind(owner).GenDispatch(NewInvocation("abc"))
	if err != nil {
		t.Fatalf("GenDispatch: %v", err)
	}
	out, err := res.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(out) != 2 || out[0] != "p1" || out[1] != "p2" {
		t.Fatalf("results = %v, want [p1 p2]", out)
	}
}

func TestPatternHandlerReceivesTextAndMatch(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("greet", NewInvocation(`hello (\w+)`)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := NewHandlerTable()
	var gotText string
	var gotMatch *Match
	owner.Set("greet", func(inv Invocation) (any, error) {
		gotText = inv.Args[0].(string)
		gotMatch = inv.Args[1].(*Match)
		return nil, nil
	})

	if _, err := d.Bind(owner).Dispatch(NewInvocation("hello world")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotText != "hello world" {
		t.Fatalf("handler text = %q, want the full token text", gotText)
	}
	if gotMatch == nil || len(gotMatch.Groups) != 2 || gotMatch.Groups[1] != "world" {
		t.Fatalf("handler match = %+v, want submatch world", gotMatch)
	}
	if gotMatch.Pattern != `hello (\w+)` {
		t.Fatalf("match pattern = %q, want the registered source", gotMatch.Pattern)
	}
}

func TestPatternMatchesAnchorAtStart(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("b", NewInvocation("b")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := patternOwner("b")

	_, err := d.Bind(owner).Dispatch(NewInvocation("abc"))
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Dispatch error = %v, want ErrNoMatch: pattern must anchor at the start", err)
	}
}

func TestPatternGenericFallback(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p", NewInvocation("^x")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := patternOwner("p", "generic_handler")

	out, err := d.Bind(owner).Dispatch(NewInvocation("abc"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "generic_handler" {
		t.Fatalf("Dispatch = %v, want the generic fallback", out)
	}
}

func TestPatternByteSliceAndStringerTokens(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p", NewInvocation("^ab")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := patternOwner("p")
	b := d.Bind(owner)

	out, err := b.Dispatch(NewInvocation([]byte("abc")))
	if err != nil {
		t.Fatalf("Dispatch([]byte): %v", err)
	}
	if out != "p" {
		t.Fatalf("Dispatch([]byte) = %v, want p", out)
	}
}

// urlOwner derives the match text from a structured token.
type urlOwner struct {
	*HandlerTable
}

func (o *urlOwner) DispatchText(inv Invocation) (string, error) {
	token, _ := inv.Token()
	return token.(map[string]string)["path"], nil
}

func TestPatternTextDelegate(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("api", NewInvocation("^/api/")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := &urlOwner{HandlerTable: patternOwner("api")}

	out, err := d.Bind(owner).Dispatch(NewInvocation(map[string]string{"path": "/api/v1"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "api" {
		t.Fatalf("Dispatch = %v, want the delegated text to match", out)
	}
}

func TestPatternNonTextTokenWithoutDelegateIsMisuse(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p", NewInvocation("^a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := d.Bind(patternOwner("p")).Dispatch(NewInvocation(42))
	var misuse *MisuseError
	if !errors.As(err, &misuse) {
		t.Fatalf("Dispatch error = %v, want MisuseError for a non-text token", err)
	}
}

func TestPatternInvalidPatternFailsPreparation(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("bad", NewInvocation("([unclosed")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := d.Bind(patternOwner("bad")).Dispatch(NewInvocation("abc"))
	if err == nil {
		t.Fatalf("Dispatch succeeded with an invalid pattern")
	}
}

func TestPatternNonStringKeyIsMisuse(t *testing.T) {
	d := NewPatternDispatcher()
	if err := d.Register("p", NewInvocation(42)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := d.Bind(patternOwner("p")).Dispatch(NewInvocation("abc"))
	var misuse *MisuseError
	if !errors.As(err, &misuse) {
		t.Fatalf("Dispatch error = %v, want MisuseError for a non-string key", err)
	}
}
