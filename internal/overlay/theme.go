package overlay

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/calcdown/internal/engine"
)

// Theme defines colors for the rendered overlay.
type Theme struct {
	// Name is the display name of the theme.
	Name string

	// Background is the overlay background color.
	Background tcell.Color

	// Foreground is the default text color.
	Foreground tcell.Color

	// Heading is the color for markdown heading lines.
	Heading tcell.Color

	// TokenStyles maps token types to their styles.
	TokenStyles map[engine.TokenType]tcell.Style

	// GutterStyle is the result column style.
	GutterStyle tcell.Style
}

// Default returns the theme's default text style.
func (t *Theme) Default() tcell.Style {
	return tcell.StyleDefault.Foreground(t.Foreground).Background(t.Background)
}

// StyleForToken returns the style for a token type, falling back to the
// default style for unmapped types.
func (t *Theme) StyleForToken(tokenType engine.TokenType) tcell.Style {
	if style, ok := t.TokenStyles[tokenType]; ok {
		return style
	}
	return t.Default()
}

// StyleForMarkdown returns the style for a markdown line. Heading lines
// get the heading color, everything else the default.
func (t *Theme) StyleForMarkdown(content string) tcell.Style {
	if strings.HasPrefix(strings.TrimLeft(content, " \t"), "#") {
		return t.Default().Foreground(t.Heading).Bold(true)
	}
	return t.Default()
}

// DefaultTheme returns a sensible default dark theme.
func DefaultTheme() *Theme {
	bg := tcell.NewRGBColor(30, 30, 30)
	fg := tcell.NewRGBColor(212, 212, 212)
	base := tcell.StyleDefault.Background(bg)

	return &Theme{
		Name:       "calcdown-dark",
		Background: bg,
		Foreground: fg,
		Heading:    tcell.NewRGBColor(86, 156, 214),
		TokenStyles: map[engine.TokenType]tcell.Style{
			engine.TokenIdentifier: base.Foreground(tcell.NewRGBColor(156, 220, 254)),
			engine.TokenNumber:     base.Foreground(tcell.NewRGBColor(181, 206, 168)),
			engine.TokenCurrency:   base.Foreground(tcell.NewRGBColor(184, 215, 163)),
			engine.TokenPercent:    base.Foreground(tcell.NewRGBColor(184, 215, 163)),
			engine.TokenUnit:       base.Foreground(tcell.NewRGBColor(78, 201, 176)),
			engine.TokenOperator:   base.Foreground(tcell.NewRGBColor(212, 212, 212)),
			engine.TokenAssignment: base.Foreground(tcell.NewRGBColor(197, 134, 192)),
			engine.TokenKeyword:    base.Foreground(tcell.NewRGBColor(197, 134, 192)),
			engine.TokenComment:    base.Foreground(tcell.NewRGBColor(106, 153, 85)),
			engine.TokenString:     base.Foreground(tcell.NewRGBColor(206, 145, 120)),
		},
		GutterStyle: base.Foreground(tcell.NewRGBColor(128, 128, 128)).Italic(true),
	}
}
