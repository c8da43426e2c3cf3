package geometry

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// FontMetrics is a table-driven Measurer for monospaced rendering. It
// walks grapheme clusters so wide scripts and combining marks measure
// as the glyphs they render as, not as their rune counts.
type FontMetrics struct {
	// CellWidth is the pixel advance of one single-width cell.
	CellWidth int
}

// GlyphRect returns the pixel extent of the glyph containing the given
// rune column. Columns past the end of the line measure the empty caret
// slot after the last glyph.
func (m FontMetrics) GlyphRect(line string, column int) (x, width int) {
	cells := 0
	runes := 0

	g := uniseg.NewGraphemes(line)
	for g.Next() {
		clusterRunes := len(g.Runes())
		w := runewidth.StringWidth(g.Str())
		if w < 1 {
			// A degenerate cluster (lone combining mark) still needs a
			// caret target.
			w = 1
		}
		if column < runes+clusterRunes {
			return cells * m.CellWidth, w * m.CellWidth
		}
		cells += w
		runes += clusterRunes
	}
	return cells * m.CellWidth, m.CellWidth
}

// LineWidth returns the rendered pixel width of the whole line.
func (m FontMetrics) LineWidth(line string) int {
	cells := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		w := runewidth.StringWidth(g.Str())
		if w < 1 {
			w = 1
		}
		cells += w
	}
	return cells * m.CellWidth
}
