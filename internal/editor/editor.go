// Package editor coordinates one editing session.
//
// The editor owns the document, the evaluation scheduler, the block
// list, and the geometry engine, and translates UI events into document
// mutations. Every mutation funnels through one path: rewrite the full
// text, re-segment blocks with identity reconciliation, and notify the
// scheduler.
package editor

import (
	"strings"
	"sync"
	"time"

	"github.com/dshills/calcdown/internal/block"
	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/engine"
	"github.com/dshills/calcdown/internal/geometry"
	"github.com/dshills/calcdown/internal/schedule"
)

// Logger is the logging surface the editor needs. *app.Logger satisfies
// it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Editor is one editing session over a document.
type Editor struct {
	mu sync.Mutex

	doc   *document.Document
	sched *schedule.Scheduler
	geom  *geometry.Engine
	log   Logger

	blocks      []block.Block
	activeBlock string

	onRender func()
}

// Option configures an Editor.
type Option func(*options)

type options struct {
	debounce time.Duration
	log      Logger
	onRender func()
}

// WithDebounce sets the evaluation debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithLogger sets the session logger.
func WithLogger(log Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRenderHandler sets a callback invoked whenever merged evaluation
// state changed and the UI should redraw.
func WithRenderHandler(fn func()) Option {
	return func(o *options) { o.onRender = fn }
}

// New creates an editing session for the given text and engine.
func New(text string, eng engine.Engine, geom *geometry.Engine, opts ...Option) *Editor {
	return NewWithDocument(document.New(text), eng, geom, opts...)
}

// NewWithDocument creates a session over an existing document. Used by
// callers that prepare document state directly.
func NewWithDocument(doc *document.Document, eng engine.Engine, geom *geometry.Engine, opts ...Option) *Editor {
	o := options{
		debounce: schedule.DefaultDebounce,
		log:      nopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if geom == nil {
		geom = geometry.New(doc, geometry.FontMetrics{CellWidth: 8}, geometry.DefaultMetrics())
	}

	e := &Editor{
		doc:      doc,
		geom:     geom,
		log:      o.log,
		onRender: o.onRender,
	}
	e.sched = schedule.New(doc, eng,
		schedule.WithDebounce(o.debounce),
		schedule.WithAppliedHandler(e.evaluationApplied),
		schedule.WithErrorHandler(e.evaluationFailed),
		schedule.WithTypingHandler(e.typingChanged),
	)
	e.blocks = block.Segment(doc.RawLines(), doc.Kinds())
	return e
}

// Open dispatches the initial evaluation for a freshly loaded document.
func (e *Editor) Open() {
	e.geom.SetCaretVisible(true)
	e.sched.Evaluate()
}

// Close stops the session's scheduler.
func (e *Editor) Close() {
	e.sched.Close()
}

// Document returns the session's document.
func (e *Editor) Document() *document.Document { return e.doc }

// Geometry returns the session's geometry engine.
func (e *Editor) Geometry() *geometry.Engine { return e.geom }

// Scheduler returns the session's evaluation scheduler.
func (e *Editor) Scheduler() *schedule.Scheduler { return e.sched }

// Blocks returns the current block list.
func (e *Editor) Blocks() []block.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]block.Block, len(e.blocks))
	copy(out, e.blocks)
	return out
}

// ActiveBlock returns the focused block, if any.
func (e *Editor) ActiveBlock() (block.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findBlockLocked(e.activeBlock)
}

// Variables returns the document's variable context.
func (e *Editor) Variables() document.VariableContext {
	return e.doc.Variables()
}

// ActivateBlock focuses a block and moves the cursor to its first line.
func (e *Editor) ActivateBlock(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.findBlockLocked(id)
	if !ok {
		return false
	}
	e.activeBlock = b.ID
	e.geom.SetCursor(b.LineStart, 0)
	return true
}

// Blur drops block focus.
func (e *Editor) Blur() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeBlock = ""
}

// ContentChange replaces a block's text. Multi-line replacement text is
// allowed; the block list is re-segmented around it.
func (e *Editor) ContentChange(id, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.findBlockLocked(id)
	if !ok {
		e.log.Warn("content-change for unknown block %s", id)
		return false
	}

	lines := e.doc.RawLines()
	newLines := strings.Split(text, "\n")
	replaced := make([]string, 0, len(lines))
	replaced = append(replaced, lines[:b.LineStart]...)
	replaced = append(replaced, newLines...)
	replaced = append(replaced, lines[b.LineEnd+1:]...)

	e.doc.SetRawText(strings.Join(replaced, "\n"))

	// The replacement lines inherit the edited block's kind until the
	// next evaluation classifies them; otherwise the edit would collapse
	// neighboring blocks and destroy their ids for one cycle.
	kinds := e.doc.Kinds()
	for i := b.LineStart; i < b.LineStart+len(newLines) && i < len(kinds); i++ {
		kinds[i] = b.Kind
	}
	e.resegmentWithKindsLocked(kinds)
	e.sched.NotifyChange()

	// The edited block may have been re-identified; keep focus on the
	// block now covering its start line.
	if nb, ok := e.blockAtLineLocked(b.LineStart); ok {
		e.activeBlock = nb.ID
	}
	return true
}

// Enter inserts an empty line after the block, commits the block's
// content, and focuses the new line's block.
func (e *Editor) Enter(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.findBlockLocked(id)
	if !ok {
		return false
	}

	lines := e.doc.RawLines()
	replaced := make([]string, 0, len(lines)+1)
	replaced = append(replaced, lines[:b.LineEnd+1]...)
	replaced = append(replaced, "")
	replaced = append(replaced, lines[b.LineEnd+1:]...)

	e.applyTextLocked(strings.Join(replaced, "\n"))

	if nb, ok := e.blockAtLineLocked(b.LineEnd + 1); ok {
		e.activeBlock = nb.ID
		e.geom.SetCursor(b.LineEnd+1, 0)
	}
	return true
}

// Tab moves focus to the next block, wrapping at the end.
func (e *Editor) Tab(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.blocks) == 0 {
		return false
	}
	for i, b := range e.blocks {
		if b.ID == id {
			next := e.blocks[(i+1)%len(e.blocks)]
			e.activeBlock = next.ID
			e.geom.SetCursor(next.LineStart, 0)
			return true
		}
	}
	return false
}

// BackspaceAtStart joins the block's first line onto the previous line,
// merging the block into its predecessor.
func (e *Editor) BackspaceAtStart(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.findBlockLocked(id)
	if !ok || b.LineStart == 0 {
		return false
	}

	lines := e.doc.RawLines()
	join := b.LineStart
	prevLen := runeLen(lines[join-1])

	replaced := make([]string, 0, len(lines)-1)
	replaced = append(replaced, lines[:join-1]...)
	replaced = append(replaced, lines[join-1]+lines[join])
	replaced = append(replaced, lines[join+1:]...)

	e.applyTextLocked(strings.Join(replaced, "\n"))

	if nb, ok := e.blockAtLineLocked(join - 1); ok {
		e.activeBlock = nb.ID
	}
	e.geom.SetCursor(join-1, prevLen)
	return true
}

// applyTextLocked is the single mutation path: rewrite the document,
// re-segment with identity reconciliation, notify the scheduler.
func (e *Editor) applyTextLocked(text string) {
	e.doc.SetRawText(text)
	e.resegmentLocked()
	e.sched.NotifyChange()
}

// resegmentLocked rebuilds the block list from the document's current
// classifications.
func (e *Editor) resegmentLocked() {
	e.resegmentWithKindsLocked(e.doc.Kinds())
}

// resegmentWithKindsLocked rebuilds the block list, carrying ids
// forward for unchanged blocks. If the focused block's id did not
// survive, focus falls to the block under the cursor.
func (e *Editor) resegmentWithKindsLocked(kinds []engine.LineKind) {
	fresh := block.Segment(e.doc.RawLines(), kinds)
	e.blocks = block.Reconcile(e.blocks, fresh)

	if e.activeBlock == "" {
		return
	}
	if _, ok := e.findBlockLocked(e.activeBlock); ok {
		return
	}
	line, _ := e.geom.Cursor()
	if b, ok := e.blockAtLineLocked(line); ok {
		e.activeBlock = b.ID
	}
}

func (e *Editor) findBlockLocked(id string) (block.Block, bool) {
	for _, b := range e.blocks {
		if b.ID == id && id != "" {
			return b, true
		}
	}
	return block.Block{}, false
}

func (e *Editor) blockAtLineLocked(line int) (block.Block, bool) {
	for _, b := range e.blocks {
		if line >= b.LineStart && line <= b.LineEnd {
			return b, true
		}
	}
	return block.Block{}, false
}

// evaluationApplied runs after a merge; classifications may have moved
// block boundaries.
func (e *Editor) evaluationApplied() {
	e.mu.Lock()
	e.resegmentLocked()
	onRender := e.onRender
	e.mu.Unlock()

	if onRender != nil {
		onRender()
	}
}

func (e *Editor) evaluationFailed(err error) {
	e.log.Warn("evaluation failed: %v", err)
	e.mu.Lock()
	onRender := e.onRender
	e.mu.Unlock()
	if onRender != nil {
		onRender()
	}
}

// typingChanged mirrors the typing burst into caret visibility: the
// custom caret hides while typing and shows once input settles.
func (e *Editor) typingChanged(typing bool) {
	e.geom.SetCaretVisible(!typing)
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
