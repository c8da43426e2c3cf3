package document

import (
	"strings"
	"sync"

	"github.com/dshills/calcdown/internal/coord"
	"github.com/dshills/calcdown/internal/engine"
)

// Document owns the full raw text as an ordered sequence of lines.
// All methods are thread-safe.
type Document struct {
	mu    sync.RWMutex
	lines []*Line
}

// New creates a document with the given initial text.
func New(text string) *Document {
	d := &Document{}
	d.SetRawText(text)
	return d
}

// SetRawText replaces the entire line sequence by re-splitting on "\n".
//
// Per-line classification, tokens, diagnostics, and results survive only
// where a line's content is unchanged: old lines are consumed greedily
// in order by content equality, so unchanged lines keep their identity
// even when lines before them were inserted or removed. Everything else
// reverts to its default pending the next evaluation.
func (d *Document) SetRawText(fullText string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	contents := strings.Split(fullText, "\n")
	newLines := make([]*Line, len(contents))

	oldIdx := 0
	for i, content := range contents {
		var reused *Line
		for j := oldIdx; j < len(d.lines); j++ {
			if d.lines[j].RawContent == content {
				reused = d.lines[j]
				oldIdx = j + 1
				break
			}
		}
		if reused != nil {
			reused.Index = i
			newLines[i] = reused
			continue
		}
		newLines[i] = &Line{Index: i, RawContent: content}
	}

	d.lines = newLines
}

// Text returns the full raw text. It round-trips SetRawText exactly.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	contents := make([]string, len(d.lines))
	for i, line := range d.lines {
		contents[i] = line.RawContent
	}
	return strings.Join(contents, "\n")
}

// GetLine returns a copy of the line at the canonical index.
func (d *Document) GetLine(index int) (Line, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !coord.InRange(index, len(d.lines)) {
		return Line{}, false
	}
	return *d.lines[index], true
}

// LineCount returns the number of lines. A document always has at least
// one line.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// RawLines returns the raw content of every line, in order.
func (d *Document) RawLines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	contents := make([]string, len(d.lines))
	for i, line := range d.lines {
		contents[i] = line.RawContent
	}
	return contents
}

// Kinds returns the classification of every line, in order.
func (d *Document) Kinds() []engine.LineKind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]engine.LineKind, len(d.lines))
	for i, line := range d.lines {
		kinds[i] = line.Kind
	}
	return kinds
}

// UpdateClassifications overwrites line classifications. The engine
// returns one classification per document line, in canonical order;
// surplus entries are dropped.
func (d *Document) UpdateClassifications(kinds []engine.LineKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyClassifications(kinds)
}

// UpdateTokens overwrites tokens for the lines keyed by the engine's
// 1-indexed token-map convention. Other lines are untouched; entries
// resolving out of range are dropped.
func (d *Document) UpdateTokens(byLine map[int][]engine.Token) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyTokens(byLine)
}

// UpdateDiagnostics overwrites diagnostics for the lines keyed by the
// engine's 0-indexed validation convention. Other lines are untouched;
// entries resolving out of range are dropped.
func (d *Document) UpdateDiagnostics(byLine map[int][]engine.Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, diags := range byLine {
		idx := coord.FromValidation(key)
		if !coord.InRange(idx, len(d.lines)) {
			continue
		}
		d.lines[idx].Diagnostics = diags
	}
}

// UpdateResults overwrites evaluation results. Each result carries the
// engine's 1-indexed line number; entries resolving out of range are
// dropped.
func (d *Document) UpdateResults(results []engine.EvalResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyResults(results)
}

// Update is one full engine response, still in engine conventions.
type Update struct {
	// Classifications in canonical order, one per line.
	Classifications []engine.LineKind

	// TokensByLine keyed by the 1-indexed token-map convention.
	TokensByLine map[int][]engine.Token

	// Results carrying 1-indexed evaluation lines.
	Results []engine.EvalResult

	// DiagnosticsByLine keyed by the 0-indexed validation convention.
	DiagnosticsByLine map[int][]engine.Diagnostic
}

// ApplyEvaluation merges one engine response as a single logical step:
// classifications, then tokens, then results, then diagnostics. The
// response is authoritative for the whole document, so tokens, results,
// and diagnostics absent from it are cleared. Line records are updated
// in place; no *Line is structurally replaced.
func (d *Document) ApplyEvaluation(update Update) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.applyClassifications(update.Classifications)

	for _, line := range d.lines {
		line.Tokens = nil
		line.Result = nil
		line.Diagnostics = nil
	}

	d.applyTokens(update.TokensByLine)
	d.applyResults(update.Results)

	for key, diags := range update.DiagnosticsByLine {
		idx := coord.FromValidation(key)
		if !coord.InRange(idx, len(d.lines)) {
			continue
		}
		d.lines[idx].Diagnostics = diags
	}
}

func (d *Document) applyClassifications(kinds []engine.LineKind) {
	for i, kind := range kinds {
		if !coord.InRange(i, len(d.lines)) {
			break
		}
		d.lines[i].Kind = kind
	}
}

func (d *Document) applyTokens(byLine map[int][]engine.Token) {
	for key, tokens := range byLine {
		idx := coord.FromTokenMap(key)
		if !coord.InRange(idx, len(d.lines)) {
			continue
		}
		d.lines[idx].Tokens = tokens
	}
}

func (d *Document) applyResults(results []engine.EvalResult) {
	for _, result := range results {
		idx := coord.FromEvaluation(result.Line)
		if !coord.InRange(idx, len(d.lines)) {
			continue
		}
		r := result
		d.lines[idx].Result = &r
	}
}
