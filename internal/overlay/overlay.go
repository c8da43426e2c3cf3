// Package overlay models the rendered representation of the document.
//
// The overlay is the styled twin of the raw input surface: per-line
// style spans derived from engine tokens, a result gutter, and a
// diagnostic sign column. The overlay never computes semantics itself;
// it is a pure projection of line records, so two renders of an
// unchanged line are identical.
package overlay

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/engine"
)

// Span is a styled run of rune columns within one line. Spans are
// ordered by Start and non-overlapping; End is exclusive.
type Span struct {
	Start int
	End   int
	Style tcell.Style
}

// Sign marks a line in the sign column.
type Sign uint8

const (
	SignNone Sign = iota
	SignError
	SignWarning
	SignInfo
)

// String returns the sign name.
func (s Sign) String() string {
	switch s {
	case SignError:
		return "error"
	case SignWarning:
		return "warning"
	case SignInfo:
		return "info"
	default:
		return "none"
	}
}

// RenderedLine is the overlay's projection of one document line.
type RenderedLine struct {
	// Content is the raw text the spans index into.
	Content string

	// Spans cover the styled runs of the line. Unstyled gaps between
	// tokens carry the theme's default style.
	Spans []Span

	// Gutter is the result column text, empty when the line has no
	// evaluation result.
	Gutter string

	// Sign summarizes the line's diagnostics.
	Sign Sign

	// DiagnosticCount is the number of diagnostics on the line.
	DiagnosticCount int
}

// View projects documents into rendered lines under a theme.
type View struct {
	theme *Theme
}

// NewView creates a view with the given theme. A nil theme uses the
// default.
func NewView(theme *Theme) *View {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &View{theme: theme}
}

// Theme returns the view's theme.
func (v *View) Theme() *Theme {
	return v.theme
}

// RenderLine projects one line record.
func (v *View) RenderLine(line document.Line) RenderedLine {
	rl := RenderedLine{
		Content:         line.RawContent,
		Spans:           v.spansFor(line),
		Gutter:          gutterText(line),
		DiagnosticCount: len(line.Diagnostics),
	}
	if sev, ok := line.MaxSeverity(); ok {
		rl.Sign = signFor(sev)
	}
	return rl
}

// Render projects every line of the document, in order.
func (v *View) Render(doc *document.Document) []RenderedLine {
	count := doc.LineCount()
	lines := make([]RenderedLine, 0, count)
	for i := 0; i < count; i++ {
		line, ok := doc.GetLine(i)
		if !ok {
			break
		}
		lines = append(lines, v.RenderLine(line))
	}
	return lines
}

// spansFor converts engine tokens to styled spans, filling the gaps
// between tokens with the default style. Markdown lines get a single
// span styled by markdown kind.
func (v *View) spansFor(line document.Line) []Span {
	length := runeLen(line.RawContent)

	if line.Kind != engine.LineCalculation || len(line.Tokens) == 0 {
		if length == 0 {
			return nil
		}
		return []Span{{Start: 0, End: length, Style: v.theme.StyleForMarkdown(line.RawContent)}}
	}

	var spans []Span
	pos := 0
	for _, tok := range line.Tokens {
		if tok.Start > length {
			break
		}
		end := tok.End
		if end > length {
			end = length
		}
		if tok.Start > pos {
			spans = append(spans, Span{Start: pos, End: tok.Start, Style: v.theme.Default()})
		}
		spans = append(spans, Span{Start: tok.Start, End: end, Style: v.theme.StyleForToken(tok.Type)})
		pos = end
	}
	if pos < length {
		spans = append(spans, Span{Start: pos, End: length, Style: v.theme.Default()})
	}
	return spans
}

// gutterText formats the result column for a line.
func gutterText(line document.Line) string {
	if line.Result == nil {
		return ""
	}
	return "= " + line.Result.Value
}

func signFor(sev engine.Severity) Sign {
	switch sev {
	case engine.SeverityError:
		return SignError
	case engine.SeverityWarning:
		return SignWarning
	case engine.SeverityInfo:
		return SignInfo
	default:
		return SignNone
	}
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
