package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/calcdown/internal/overlay"
)

// Draw renders the visible window of the session to the screen.
func (u *UI) Draw() {
	u.screen.Clear()

	ed := u.app.Editor()
	view := u.app.View()
	theme := view.Theme()
	lines := view.Render(ed.Document())

	_, height := u.screen.Size()
	u.followCursor(len(lines), height)

	// The result gutter starts after the widest line.
	maxWidth := 0
	for _, rl := range lines {
		if w := runewidth.StringWidth(rl.Content); w > maxWidth {
			maxWidth = w
		}
	}
	gutterX := signColWidth + maxWidth + gutterGap

	hoverRect, hoverOK := ed.Geometry().HoverRect()
	metrics := ed.Geometry().Metrics()

	for i, rl := range lines {
		y := i - u.scroll
		if y < 0 || y >= height {
			continue
		}
		u.drawSign(y, rl)
		u.drawSpans(y, rl, theme)

		if rl.Gutter != "" {
			u.drawString(gutterX, y, rl.Gutter, theme.GutterStyle)
		}

		// Hover underline for the hovered line.
		if hoverOK && metrics.LineHeight > 0 && hoverRect.Y/metrics.LineHeight == i {
			u.drawString(signColWidth+runewidth.StringWidth(rl.Content)+1, y, "◀", theme.Default())
		}
	}

	u.drawCaret(lines, height)
	u.screen.Show()
}

// followCursor scrolls the viewport to keep the cursor line visible when
// the cursor moved, then clamps the offset to the document. A wheel
// scroll away from the cursor sticks until the cursor moves again.
func (u *UI) followCursor(lineCount, height int) {
	if height <= 0 {
		return
	}

	line, _ := u.app.Editor().Geometry().Cursor()
	if line != u.lastCursorLine {
		u.lastCursorLine = line
		if line < u.scroll {
			u.scroll = line
		}
		if line >= u.scroll+height {
			u.scroll = line - height + 1
		}
	}

	if max := lineCount - height; u.scroll > max {
		u.scroll = max
	}
	if u.scroll < 0 {
		u.scroll = 0
	}
}

func (u *UI) drawSign(y int, rl overlay.RenderedLine) {
	var (
		ch    rune
		style tcell.Style
	)
	switch rl.Sign {
	case overlay.SignError:
		ch, style = '!', tcell.StyleDefault.Foreground(tcell.ColorRed)
	case overlay.SignWarning:
		ch, style = '*', tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case overlay.SignInfo:
		ch, style = 'i', tcell.StyleDefault.Foreground(tcell.ColorBlue)
	default:
		return
	}
	u.screen.SetContent(0, y, ch, nil, style)
	if rl.DiagnosticCount > 1 && rl.DiagnosticCount < 10 {
		u.screen.SetContent(1, y, rune('0'+rl.DiagnosticCount), nil, style)
	}
}

// drawSpans writes the line text, styling each rune by the span that
// covers its rune column.
func (u *UI) drawSpans(y int, rl overlay.RenderedLine, theme *overlay.Theme) {
	x := signColWidth
	col := 0
	for _, r := range rl.Content {
		style := theme.Default()
		for _, span := range rl.Spans {
			if col >= span.Start && col < span.End {
				style = span.Style
				break
			}
		}
		u.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
		col++
	}
}

func (u *UI) drawString(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		u.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// drawCaret places the terminal cursor at the logical cursor position,
// hidden during typing bursts and when scrolled out of the viewport.
func (u *UI) drawCaret(lines []overlay.RenderedLine, height int) {
	ed := u.app.Editor()
	if !ed.Geometry().CaretVisible() {
		u.screen.HideCursor()
		return
	}

	line, col := ed.Geometry().Cursor()
	y := line - u.scroll
	if line < 0 || line >= len(lines) || y < 0 || y >= height {
		u.screen.HideCursor()
		return
	}

	x := signColWidth
	i := 0
	for _, r := range lines[line].Content {
		if i >= col {
			break
		}
		x += runewidth.RuneWidth(r)
		i++
	}
	u.screen.ShowCursor(x, y)
}
