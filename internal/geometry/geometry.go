// Package geometry positions the custom caret and hover indicators.
//
// The raw input surface and the rendered overlay can disagree on text
// metrics, so vertical placement always derives from the overlay's line
// height and padding, and horizontal placement from measured glyph
// rectangles rather than a per-character width estimate. The Measurer
// abstraction carries that rendered-geometry dependency; interactive
// front ends satisfy it from live layout, tests from a font-metrics
// table.
package geometry

import (
	"sync"

	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/engine"
)

// Rect is a pixel rectangle in overlay coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Measurer measures rendered glyph geometry for a line of text.
type Measurer interface {
	// GlyphRect returns the horizontal pixel extent of the glyph at the
	// given rune column. A column at or past the end of the line
	// measures the caret slot after the last glyph.
	GlyphRect(line string, column int) (x, width int)

	// LineWidth returns the rendered pixel width of the whole line.
	LineWidth(line string) int
}

// Metrics holds the overlay's live layout metrics.
type Metrics struct {
	// LineHeight is the full line box height in pixels.
	LineHeight int

	// TopPadding is the overlay's top padding in pixels.
	TopPadding int

	// GlyphHeight is the font's glyph size in pixels. The caret uses
	// this, not the line box, so it cannot overflow into adjacent
	// lines.
	GlyphHeight int

	// CaretWidth is the caret bar width in pixels.
	CaretWidth int
}

// DefaultMetrics returns sensible default overlay metrics.
func DefaultMetrics() Metrics {
	return Metrics{
		LineHeight:  21,
		TopPadding:  8,
		GlyphHeight: 16,
		CaretWidth:  2,
	}
}

// Indicator summarizes the diagnostics on one line.
type Indicator struct {
	// Count is the number of diagnostics on the line.
	Count int

	// Severity is the most severe value among them.
	Severity engine.Severity
}

// Engine owns the transient cursor and hover state and translates it
// into pixel rectangles. State is never persisted.
type Engine struct {
	mu sync.RWMutex

	doc      *document.Document
	measurer Measurer
	metrics  Metrics

	cursorLine   int
	cursorColumn int

	hoveredLine int
	hovered     bool

	caretVisible bool
}

// New creates a geometry engine over the given document.
func New(doc *document.Document, measurer Measurer, metrics Metrics) *Engine {
	return &Engine{
		doc:      doc,
		measurer: measurer,
		metrics:  metrics,
	}
}

// SetMetrics replaces the overlay layout metrics, e.g. after a font or
// zoom change.
func (e *Engine) SetMetrics(m Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Metrics returns the current overlay layout metrics.
func (e *Engine) Metrics() Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics
}

// SetCursor moves the logical cursor. Line and column are 0-indexed.
func (e *Engine) SetCursor(line, column int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if line < 0 {
		line = 0
	}
	if column < 0 {
		column = 0
	}
	e.cursorLine = line
	e.cursorColumn = column
}

// Cursor returns the logical cursor position.
func (e *Engine) Cursor() (line, column int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursorLine, e.cursorColumn
}

// SetHover records the hovered line.
func (e *Engine) SetHover(line int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hoveredLine = line
	e.hovered = true
}

// ClearHover clears the hovered line, e.g. when the pointer leaves the
// surface.
func (e *Engine) ClearHover() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hovered = false
}

// SetCaretVisible flips the custom caret. The caret is hidden during a
// typing burst, when the native input caret takes over.
func (e *Engine) SetCaretVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caretVisible = visible
}

// CaretVisible reports whether the custom caret is shown.
func (e *Engine) CaretVisible() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.caretVisible
}

// CaretRect returns the caret's pixel rectangle. It reports false when
// the caret is hidden or the cursor line no longer exists.
func (e *Engine) CaretRect() (Rect, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.caretVisible {
		return Rect{}, false
	}
	line, ok := e.doc.GetLine(e.cursorLine)
	if !ok {
		return Rect{}, false
	}

	x, _ := e.measurer.GlyphRect(line.RawContent, e.cursorColumn)
	return Rect{
		X:      x,
		Y:      e.cursorLine*e.metrics.LineHeight + e.metrics.TopPadding,
		Width:  e.metrics.CaretWidth,
		Height: e.metrics.GlyphHeight,
	}, true
}

// HoverRect returns the hovered line's pixel rectangle. The overlay is
// suppressed when the hovered line is the cursor line and the caret is
// visible, so the two indicators never overlap; it still shows while
// the caret is hidden during a typing burst.
func (e *Engine) HoverRect() (Rect, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hovered {
		return Rect{}, false
	}
	if e.caretVisible && e.hoveredLine == e.cursorLine {
		return Rect{}, false
	}
	line, ok := e.doc.GetLine(e.hoveredLine)
	if !ok {
		return Rect{}, false
	}

	return Rect{
		X:      0,
		Y:      e.hoveredLine*e.metrics.LineHeight + e.metrics.TopPadding,
		Width:  e.measurer.LineWidth(line.RawContent),
		Height: e.metrics.LineHeight,
	}, true
}

// DiagnosticIndicator summarizes the diagnostics on a line. It reports
// false for a line with no diagnostics, whatever its neighbors carry.
func (e *Engine) DiagnosticIndicator(lineIndex int) (Indicator, bool) {
	line, ok := e.doc.GetLine(lineIndex)
	if !ok || len(line.Diagnostics) == 0 {
		return Indicator{}, false
	}
	sev, _ := line.MaxSeverity()
	return Indicator{
		Count:    len(line.Diagnostics),
		Severity: sev,
	}, true
}
