package schedule

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/engine"
	"github.com/dshills/calcdown/internal/engine/calclua"
)

// fakeEngine is a controllable in-memory engine. By default it treats
// every "name = number" line as a calculation evaluating to the number.
type fakeEngine struct {
	mu        sync.Mutex
	evalCalls int
	resets    int

	// calls records every engine call in execution order. A gated
	// evaluation is recorded when it unblocks, not when it is issued.
	calls []string

	// evalGates holds per-request gates: the nth EvaluateDocument call
	// blocks until evalGates[n-1] is closed, when present.
	evalGates []chan struct{}

	// evalErr, when non-nil, fails EvaluateDocument.
	evalErr error
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) ClassifyLines(_ context.Context, lines []string) ([]engine.LineKind, error) {
	f.record("classify")
	kinds := make([]engine.LineKind, len(lines))
	for i, line := range lines {
		if strings.Contains(line, "=") {
			kinds[i] = engine.LineCalculation
		}
	}
	return kinds, nil
}

func (f *fakeEngine) Tokenize(_ context.Context, line string) ([]engine.Token, error) {
	f.record("tokenize")
	eq := strings.Index(line, "=")
	if eq < 0 {
		return nil, nil
	}
	name := strings.TrimSpace(line[:eq])
	return []engine.Token{
		{Type: engine.TokenIdentifier, Start: 0, End: len(name), Value: name, OriginalText: name},
		{Type: engine.TokenAssignment, Start: eq, End: eq + 1, Value: "=", OriginalText: "="},
	}, nil
}

func (f *fakeEngine) EvaluateDocument(_ context.Context, fullText string, _ bool) ([]engine.EvalResult, error) {
	f.mu.Lock()
	f.evalCalls++
	var gate chan struct{}
	if n := f.evalCalls; n <= len(f.evalGates) {
		gate = f.evalGates[n-1]
	}
	err := f.evalErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	f.record("evaluate")
	if err != nil {
		return nil, err
	}

	var results []engine.EvalResult
	for i, line := range strings.Split(fullText, "\n") {
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if _, err := strconv.Atoi(value); err != nil {
			continue
		}
		results = append(results, engine.EvalResult{Line: i + 1, Name: name, Value: value})
	}
	return results, nil
}

func (f *fakeEngine) Validate(_ context.Context, _ string) (map[int][]engine.Diagnostic, error) {
	f.record("validate")
	return nil, nil
}

func (f *fakeEngine) ResetContext(_ context.Context) error {
	f.mu.Lock()
	f.resets++
	f.calls = append(f.calls, "reset")
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Version(_ context.Context) (string, error) {
	return "fake/1.0", nil
}

func (f *fakeEngine) evalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evalCalls
}

func (f *fakeEngine) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDebounceCollapsesMutations(t *testing.T) {
	doc := document.New("a = 1")
	eng := &fakeEngine{}
	applied := make(chan struct{}, 8)
	s := New(doc, eng,
		WithDebounce(10*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	s.NotifyChange()
	s.NotifyChange()
	s.NotifyChange()

	<-applied
	if got := eng.evalCount(); got != 1 {
		t.Errorf("expected 1 evaluation for a burst of mutations, got %d", got)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestMergeAppliesResults(t *testing.T) {
	doc := document.New("a = 2")
	eng := &fakeEngine{}
	applied := make(chan struct{}, 1)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	s.NotifyChange()
	<-applied

	line, _ := doc.GetLine(0)
	if line.Kind != engine.LineCalculation {
		t.Errorf("classification not merged: %v", line.Kind)
	}
	if line.Result == nil || line.Result.Value != "2" {
		t.Errorf("result not merged: %+v", line.Result)
	}
	if len(line.Tokens) == 0 {
		t.Error("tokens not merged")
	}
}

func TestResetPrecedesEveryEvaluation(t *testing.T) {
	doc := document.New("a = 1")
	eng := &fakeEngine{}
	applied := make(chan struct{}, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	s.NotifyChange()
	<-applied
	s.NotifyChange()
	<-applied

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.resets != eng.evalCalls {
		t.Errorf("resets = %d, evaluations = %d; every evaluation needs a fresh context",
			eng.resets, eng.evalCalls)
	}
}

func TestSupersededResponseDiscarded(t *testing.T) {
	doc := document.New("a = 1")
	gate1 := make(chan struct{})
	gate2 := make(chan struct{})
	eng := &fakeEngine{evalGates: []chan struct{}{gate1, gate2}}
	applied := make(chan struct{}, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	// Request 1 dispatches for "a = 1" and blocks inside the engine.
	s.NotifyChange()
	waitFor(t, "first dispatch", func() bool { return eng.evalCount() == 1 })

	// A mutation arrives while request 1 is in flight; request 2 queues
	// behind its conversation.
	doc.SetRawText("a = 2")
	s.NotifyChange()
	waitFor(t, "second dispatch", func() bool { return s.Seq() == 2 })

	// Release the stale request. Its response must never merge.
	close(gate1)
	waitFor(t, "second evaluation", func() bool { return eng.evalCount() == 2 })

	line, _ := doc.GetLine(0)
	if line.Result != nil {
		t.Errorf("stale response merged: %+v", line.Result)
	}

	close(gate2)
	<-applied

	line, _ = doc.GetLine(0)
	if line.Result == nil || line.Result.Value != "2" {
		t.Errorf("document shows %+v, want the newest result 2", line.Result)
	}

	select {
	case <-applied:
		t.Error("superseded response must never merge")
	default:
	}
}

func TestSupersededDispatchSkipsEngineConversation(t *testing.T) {
	doc := document.New("a = 1")
	gate1 := make(chan struct{})
	eng := &fakeEngine{evalGates: []chan struct{}{gate1}}
	applied := make(chan struct{}, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	s.NotifyChange()
	waitFor(t, "first dispatch", func() bool { return eng.evalCount() == 1 })

	doc.SetRawText("a = 2")
	s.NotifyChange()
	waitFor(t, "second dispatch", func() bool { return s.Seq() == 2 })

	// A third mutation supersedes request 2 while it is still queued
	// behind the blocked request 1.
	doc.SetRawText("a = 3")
	s.NotifyChange()

	close(gate1)
	<-applied

	line, _ := doc.GetLine(0)
	if line.Result == nil || line.Result.Value != "3" {
		t.Errorf("document shows %+v, want 3", line.Result)
	}

	// Request 2 was stale before its conversation started: it must not
	// have talked to the engine at all.
	if got := eng.evalCount(); got != 2 {
		t.Errorf("3 dispatches reached the engine %d times, want 2", got)
	}
}

func TestEngineConversationsDoNotInterleave(t *testing.T) {
	doc := document.New("x = 5")
	gate1 := make(chan struct{})
	eng := &fakeEngine{evalGates: []chan struct{}{gate1}}
	applied := make(chan struct{}, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	// Request 1 blocks inside its evaluation, after its reset.
	s.NotifyChange()
	waitFor(t, "first dispatch", func() bool { return eng.evalCount() == 1 })

	// The replacement dispatch must not start talking to the engine
	// until the stale conversation has fully ended.
	doc.SetRawText("y = 2")
	s.NotifyChange()
	waitFor(t, "second dispatch", func() bool { return s.Seq() == 2 })

	close(gate1)
	<-applied

	// A context reset must directly precede every evaluation. Any call
	// from another dispatch in between would let bindings computed from
	// stale text repopulate the context being evaluated against.
	calls := eng.callLog()
	for i, call := range calls {
		if call != "evaluate" {
			continue
		}
		if i == 0 || calls[i-1] != "reset" {
			t.Errorf("evaluation at call %d not directly preceded by a reset: %v", i, calls)
		}
	}
}

func TestRequestFailureIsRecoverable(t *testing.T) {
	doc := document.New("a = 4")
	eng := &fakeEngine{}
	applied := make(chan struct{}, 2)
	failures := make(chan error, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
		WithErrorHandler(func(err error) { failures <- err }),
	)
	defer s.Close()

	// Merge a good state first.
	s.NotifyChange()
	<-applied
	line, _ := doc.GetLine(0)
	if line.Result == nil {
		t.Fatal("expected an initial result")
	}

	// Now fail a cycle: last-known-good state stays rendered.
	eng.mu.Lock()
	eng.evalErr = errors.New("bridge down")
	eng.mu.Unlock()
	s.NotifyChange()
	<-failures

	if s.LastError() == nil {
		t.Error("expected LastError after a failed cycle")
	}
	line, _ = doc.GetLine(0)
	if line.Result == nil || line.Result.Value != "4" {
		t.Errorf("failed cycle must not touch the document, got %+v", line.Result)
	}

	// The next successful cycle clears the error.
	eng.mu.Lock()
	eng.evalErr = nil
	eng.mu.Unlock()
	s.NotifyChange()
	<-applied
	if s.LastError() != nil {
		t.Errorf("error should clear after success, got %v", s.LastError())
	}
}

func TestTypingSignal(t *testing.T) {
	doc := document.New("a = 1")
	eng := &fakeEngine{}
	s := New(doc, eng, WithDebounce(15*time.Millisecond))
	defer s.Close()

	if s.Typing() {
		t.Error("fresh scheduler should not be typing")
	}

	s.NotifyChange()
	if !s.Typing() {
		t.Error("typing state must be entered immediately on a keystroke")
	}

	// An interrupting keystroke restarts the window.
	time.Sleep(8 * time.Millisecond)
	s.NotifyChange()
	time.Sleep(8 * time.Millisecond)
	if !s.Typing() {
		t.Error("typing state must survive an interrupted debounce window")
	}

	waitFor(t, "typing to settle", func() bool { return !s.Typing() })
}

func TestEvaluateSkipsDebounce(t *testing.T) {
	doc := document.New("a = 5")
	eng := &fakeEngine{}
	applied := make(chan struct{}, 1)
	s := New(doc, eng,
		WithDebounce(time.Hour),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	s.Evaluate()
	<-applied

	line, _ := doc.GetLine(0)
	if line.Result == nil || line.Result.Value != "5" {
		t.Errorf("immediate evaluation did not merge, got %+v", line.Result)
	}
}

// gatedEngine blocks the first EvaluateDocument call until released,
// delegating everything to a real engine with persistent state.
type gatedEngine struct {
	engine.Engine
	mu    sync.Mutex
	evals int
	gate  chan struct{}
}

func (g *gatedEngine) EvaluateDocument(ctx context.Context, fullText string, useGlobalContext bool) ([]engine.EvalResult, error) {
	g.mu.Lock()
	g.evals++
	first := g.evals == 1
	g.mu.Unlock()

	if first {
		<-g.gate
	}
	return g.Engine.EvaluateDocument(ctx, fullText, useGlobalContext)
}

func (g *gatedEngine) evalStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evals >= 1
}

func TestStaleDispatchCannotLeakVariables(t *testing.T) {
	doc := document.New("x = 5")
	lua := calclua.New()
	defer lua.Close()
	eng := &gatedEngine{Engine: lua, gate: make(chan struct{})}
	applied := make(chan struct{}, 2)
	s := New(doc, eng,
		WithDebounce(5*time.Millisecond),
		WithAppliedHandler(func() { applied <- struct{}{} }),
	)
	defer s.Close()

	// Request 1 would bind x = 5; it blocks inside the engine.
	s.NotifyChange()
	waitFor(t, "first dispatch", func() bool { return eng.evalStarted() })

	// The replacement text references x but never defines it.
	doc.SetRawText("y = x + 1")
	s.NotifyChange()
	waitFor(t, "second dispatch", func() bool { return s.Seq() == 2 })

	close(eng.gate)
	<-applied

	// The merged response must treat x as undefined: no value and one
	// diagnostic. A binding surviving from the stale dispatch would put
	// a result and an error on the same line.
	line, _ := doc.GetLine(0)
	if line.Result != nil {
		t.Errorf("stale binding leaked into the merge: %+v", line.Result)
	}
	if len(line.Diagnostics) != 1 {
		t.Errorf("expected 1 undefined-variable diagnostic, got %v", line.Diagnostics)
	}
	if vars := doc.Variables(); len(vars) != 0 {
		t.Errorf("variable context should be empty, got %v", vars)
	}
}

func TestCloseStopsDispatch(t *testing.T) {
	doc := document.New("a = 1")
	eng := &fakeEngine{}
	s := New(doc, eng, WithDebounce(5*time.Millisecond))

	s.NotifyChange()
	s.Close()

	time.Sleep(20 * time.Millisecond)
	if got := eng.evalCount(); got != 0 {
		t.Errorf("closed scheduler dispatched %d evaluations", got)
	}
}
