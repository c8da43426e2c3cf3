// Package schedule drives evaluation of the document.
//
// The scheduler debounces raw-text mutations, keeps at most one engine
// request in flight, and merges responses back into the document. A
// response is applied only when no mutation happened after its dispatch;
// anything else is discarded unconditionally, so the last-dispatched
// request wins regardless of arrival order.
//
// The same debounce timer carries the caret's typing signal: a mutation
// enters the typing state immediately, and only an undisturbed debounce
// interval leaves it.
package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dshills/calcdown/internal/coord"
	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/engine"
)

// State is the scheduler's dispatch state.
type State int

const (
	// StateIdle means no evaluation is pending or in flight.
	StateIdle State = iota
	// StatePending means a mutation is waiting out the debounce window.
	StatePending
	// StateInFlight means a request has been dispatched and not yet
	// resolved.
	StateInFlight
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the delay between the last keystroke and dispatch.
const DefaultDebounce = 300 * time.Millisecond

// Scheduler debounces document mutations into engine evaluations.
type Scheduler struct {
	mu  sync.Mutex
	eng engine.Engine
	doc *document.Document

	// engMu serializes whole engine conversations. The engine keeps
	// mutable variable state between calls, so a stale dispatch must
	// never run between another dispatch's ResetContext and
	// EvaluateDocument.
	engMu sync.Mutex

	debounce time.Duration
	timer    *time.Timer

	state State
	// version counts mutations; a response is stale when the version
	// moved after its dispatch.
	version int64
	// seq numbers dispatched requests, for observability.
	seq int64

	typing  bool
	lastErr error
	closed  bool

	onApplied func()
	onError   func(error)
	onTyping  func(bool)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce sets the delay before dispatching evaluation after the
// last keystroke.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithAppliedHandler sets a callback invoked after a response merges.
func WithAppliedHandler(fn func()) Option {
	return func(s *Scheduler) { s.onApplied = fn }
}

// WithErrorHandler sets a callback invoked when a request fails.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// WithTypingHandler sets a callback invoked when the typing state
// changes.
func WithTypingHandler(fn func(bool)) Option {
	return func(s *Scheduler) { s.onTyping = fn }
}

// New creates a scheduler for the given document and engine.
func New(doc *document.Document, eng engine.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		eng:      eng,
		doc:      doc,
		debounce: DefaultDebounce,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyChange records a raw-text mutation and (re)starts the debounce
// window. Multiple mutations within the window collapse into a single
// dispatch. A mutation arriving while a request is in flight marks that
// request superseded; its response will be discarded on arrival.
func (s *Scheduler) NotifyChange() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.version++
	s.state = StatePending
	entered := s.setTypingLocked(true)

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.timerFired)
	s.mu.Unlock()

	// Handlers run outside the lock; they may call back in.
	if entered && s.onTyping != nil {
		s.onTyping(true)
	}
}

// Evaluate dispatches immediately, skipping the debounce window. Used
// for the initial evaluation when a document is opened.
func (s *Scheduler) Evaluate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dispatchLocked()
}

// timerFired runs when the debounce window elapses undisturbed.
func (s *Scheduler) timerFired() {
	s.mu.Lock()
	if s.closed || s.state != StatePending {
		s.mu.Unlock()
		return
	}
	// The debounce interval passed with no further input: the typing
	// burst is over, the custom caret may be shown again.
	exited := s.setTypingLocked(false)
	s.dispatchLocked()
	s.mu.Unlock()

	if exited && s.onTyping != nil {
		s.onTyping(false)
	}
}

// dispatchLocked issues one evaluation request for the current text.
func (s *Scheduler) dispatchLocked() {
	s.state = StateInFlight
	s.seq++

	version := s.version
	text := s.doc.Text()

	go s.run(version, text)
}

// run performs the engine round trips for one dispatch and delivers the
// outcome. It never touches the document itself; deliver does, under
// the scheduler lock, after the staleness check.
//
// The conversation lock is held across all six round trips, and a
// dispatch that was superseded while queued skips the engine entirely,
// so the reset-then-evaluate protocol is atomic per dispatch.
func (s *Scheduler) run(version int64, text string) {
	s.engMu.Lock()
	if !s.current(version) {
		s.engMu.Unlock()
		return
	}
	update, err := s.collect(context.Background(), text)
	s.engMu.Unlock()

	if err != nil {
		s.deliverError(version, err)
		return
	}
	s.deliver(version, update)
}

// current reports whether the given dispatch is still the newest one.
func (s *Scheduler) current(version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && version == s.version
}

// collect performs the reset-then-evaluate protocol and gathers one
// complete update in engine conventions.
func (s *Scheduler) collect(ctx context.Context, text string) (document.Update, error) {
	lines := strings.Split(text, "\n")

	kinds, err := s.eng.ClassifyLines(ctx, lines)
	if err != nil {
		return document.Update{}, err
	}

	tokensByLine := make(map[int][]engine.Token)
	for i, kind := range kinds {
		if kind != engine.LineCalculation {
			continue
		}
		tokens, err := s.eng.Tokenize(ctx, lines[i])
		if err != nil {
			return document.Update{}, err
		}
		// Token maps use the engine's 1-indexed convention; the
		// document normalizes the keys back on merge.
		tokensByLine[coord.ToTokenMap(i)] = tokens
	}

	// Reset immediately before evaluation so bindings from the prior
	// cycle cannot leak into this one.
	if err := s.eng.ResetContext(ctx); err != nil {
		return document.Update{}, err
	}
	results, err := s.eng.EvaluateDocument(ctx, text, true)
	if err != nil {
		return document.Update{}, err
	}

	diags, err := s.eng.Validate(ctx, text)
	if err != nil {
		return document.Update{}, err
	}

	return document.Update{
		Classifications:   kinds,
		TokensByLine:      tokensByLine,
		Results:           results,
		DiagnosticsByLine: diags,
	}, nil
}

// deliver merges a response unless it has been superseded. The version
// check and the merge happen under one lock, so at most one merge is
// applied at a time and a partially applied merge is never observed.
func (s *Scheduler) deliver(version int64, update document.Update) {
	s.mu.Lock()
	if s.closed || version != s.version {
		// Superseded: a newer mutation or dispatch owns the document.
		s.mu.Unlock()
		return
	}

	s.doc.ApplyEvaluation(update)
	s.state = StateIdle
	s.lastErr = nil
	s.mu.Unlock()

	if s.onApplied != nil {
		s.onApplied()
	}
}

// deliverError surfaces a failed request without touching the document;
// the last-known-good state stays rendered. Stale errors are dropped
// like stale results.
func (s *Scheduler) deliverError(version int64, err error) {
	s.mu.Lock()
	if s.closed || version != s.version {
		s.mu.Unlock()
		return
	}

	s.state = StateIdle
	s.lastErr = err
	s.mu.Unlock()

	if s.onError != nil {
		s.onError(err)
	}
}

// setTypingLocked flips the typing state and reports whether it
// changed. Callers notify the handler after releasing the lock.
func (s *Scheduler) setTypingLocked(typing bool) bool {
	if s.typing == typing {
		return false
	}
	s.typing = typing
	return true
}

// SetDebounce changes the debounce interval. It applies from the next
// mutation; a running window keeps its original delay.
func (s *Scheduler) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Typing reports whether a typing burst is active (native caret shown,
// custom caret hidden).
func (s *Scheduler) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// State returns the current dispatch state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent request failure, or nil after a
// successful merge.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Seq returns the number of requests dispatched so far.
func (s *Scheduler) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close stops the debounce timer and discards any in-flight response.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
