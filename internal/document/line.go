package document

import "github.com/dshills/calcdown/internal/engine"

// Line is one record per "\n"-delimited line of the document.
type Line struct {
	// Index is the canonical 0-indexed position. It always matches the
	// line's position in the document's line sequence.
	Index int

	// RawContent is the exact text of the line. The concatenation of
	// all lines joined by "\n" round-trips the document byte for byte.
	RawContent string

	// Kind is the engine's classification. Markdown until the first
	// classification arrives.
	Kind engine.LineKind

	// Tokens is populated only for calculation lines.
	Tokens []engine.Token

	// Diagnostics attached to this line. Multiple are permitted.
	Diagnostics []engine.Diagnostic

	// Result is the computed value for calculation lines that are
	// assignments or bare expressions; nil otherwise.
	Result *engine.EvalResult
}

// MaxSeverity returns the representative severity among the line's
// diagnostics (error > warning > info) and whether any exist.
func (l *Line) MaxSeverity() (engine.Severity, bool) {
	if len(l.Diagnostics) == 0 {
		return 0, false
	}
	max := l.Diagnostics[0].Severity
	for _, d := range l.Diagnostics[1:] {
		if d.Severity.MoreSevere(max) {
			max = d.Severity
		}
	}
	return max, true
}
