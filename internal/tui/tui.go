// Package tui renders the editing session in a terminal.
//
// The terminal shows the dual surface on one grid: a sign column for
// diagnostics, the document text styled by overlay spans, and the
// result gutter to the right of each line. Key and mouse events
// translate into editor events.
package tui

import (
	"errors"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/calcdown/internal/app"
)

// ErrQuit signals a user-requested exit.
var ErrQuit = errors.New("tui: quit")

const (
	signColWidth = 2
	gutterGap    = 2
)

// UI drives a terminal session.
type UI struct {
	mu sync.Mutex

	app    *app.Application
	screen tcell.Screen

	// scroll is the first document line shown on screen. It follows the
	// cursor and is otherwise moved by the mouse wheel.
	scroll         int
	lastCursorLine int

	quitting bool
}

// New creates a terminal UI and the application it runs. The render
// handler is wired before the application starts evaluating.
func New(opts app.Options) (*UI, error) {
	ui := &UI{}
	opts.OnRender = ui.requestRedraw

	a, err := app.New(opts)
	if err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		a.Close()
		return nil, err
	}

	ui.app = a
	ui.screen = screen
	return ui, nil
}

// NewWithScreen creates a UI over an existing screen. Tests use this
// with tcell's simulation screen.
func NewWithScreen(a *app.Application, screen tcell.Screen) *UI {
	return &UI{app: a, screen: screen}
}

// App returns the underlying application.
func (u *UI) App() *app.Application { return u.app }

// Run initializes the terminal and processes events until quit.
func (u *UI) Run() error {
	if err := u.screen.Init(); err != nil {
		return err
	}
	defer u.screen.Fini()

	u.screen.EnableMouse()
	u.app.Open()
	u.Draw()

	for {
		event := u.screen.PollEvent()
		if event == nil {
			return nil
		}
		if err := u.handleEvent(event); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
		u.Draw()
	}
}

// Quit stops the event loop.
func (u *UI) Quit() {
	u.mu.Lock()
	if u.quitting {
		u.mu.Unlock()
		return
	}
	u.quitting = true
	u.mu.Unlock()

	// Wake the poll loop; the quit flag turns the event into ErrQuit.
	_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// requestRedraw wakes the event loop after evaluation state changed.
func (u *UI) requestRedraw() {
	_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (u *UI) handleEvent(event tcell.Event) error {
	u.mu.Lock()
	quitting := u.quitting
	u.mu.Unlock()
	if quitting {
		return ErrQuit
	}

	switch ev := event.(type) {
	case *tcell.EventKey:
		return u.handleKey(ev)
	case *tcell.EventMouse:
		u.handleMouse(ev)
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventInterrupt:
		// Redraw request; fall through to Draw in the loop.
	}
	return nil
}

func (u *UI) handleKey(ev *tcell.EventKey) error {
	ed := u.app.Editor()

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ:
		return ErrQuit
	case tcell.KeyEscape:
		ed.Blur()
	case tcell.KeyTab:
		if b, ok := ed.ActiveBlock(); ok {
			ed.Tab(b.ID)
		}
	case tcell.KeyEnter:
		if b, ok := ed.ActiveBlock(); ok {
			ed.Enter(b.ID)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		u.backspace()
	case tcell.KeyUp:
		u.moveCursor(-1, 0)
	case tcell.KeyDown:
		u.moveCursor(1, 0)
	case tcell.KeyLeft:
		u.moveCursor(0, -1)
	case tcell.KeyRight:
		u.moveCursor(0, 1)
	case tcell.KeyRune:
		u.insertRune(ev.Rune())
	}
	return nil
}

func (u *UI) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	ed := u.app.Editor()

	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		u.scrollBy(-1)
		return
	case ev.Buttons()&tcell.WheelDown != 0:
		u.scrollBy(1)
		return
	}

	line := y + u.scroll
	if line >= ed.Document().LineCount() {
		ed.Geometry().ClearHover()
		return
	}

	if ev.Buttons()&tcell.Button1 != 0 {
		col := x - signColWidth
		if col < 0 {
			col = 0
		}
		u.activateBlockAt(line)
		ed.Geometry().SetCursor(line, col)
		return
	}
	ed.Geometry().SetHover(line)
}

// activateBlockAt focuses the block covering the given line.
func (u *UI) activateBlockAt(line int) {
	ed := u.app.Editor()
	for _, b := range ed.Blocks() {
		if line >= b.LineStart && line <= b.LineEnd {
			ed.ActivateBlock(b.ID)
			return
		}
	}
}

// scrollBy moves the viewport without touching the cursor. Draw clamps
// the offset against the document and screen height.
func (u *UI) scrollBy(delta int) {
	u.scroll += delta
	if u.scroll < 0 {
		u.scroll = 0
	}
}

func (u *UI) moveCursor(dLine, dCol int) {
	ed := u.app.Editor()
	line, col := ed.Geometry().Cursor()
	line += dLine
	col += dCol

	if line < 0 {
		line = 0
	}
	if max := ed.Document().LineCount() - 1; line > max {
		line = max
	}
	if col < 0 {
		col = 0
	}
	if l, ok := ed.Document().GetLine(line); ok {
		if n := runeLen(l.RawContent); col > n {
			col = n
		}
	}

	u.activateBlockAt(line)
	ed.Geometry().SetCursor(line, col)
}

// insertRune splices a rune into the cursor line and reports the edit
// as a content change on the containing block.
func (u *UI) insertRune(r rune) {
	ed := u.app.Editor()
	line, col := ed.Geometry().Cursor()

	l, ok := ed.Document().GetLine(line)
	if !ok {
		return
	}
	runes := []rune(l.RawContent)
	if col > len(runes) {
		col = len(runes)
	}
	edited := string(runes[:col]) + string(r) + string(runes[col:])

	if u.replaceLine(line, edited) {
		ed.Geometry().SetCursor(line, col+1)
	}
}

func (u *UI) backspace() {
	ed := u.app.Editor()
	line, col := ed.Geometry().Cursor()

	if col == 0 {
		if b, ok := ed.ActiveBlock(); ok && line == b.LineStart {
			ed.BackspaceAtStart(b.ID)
		}
		return
	}

	l, ok := ed.Document().GetLine(line)
	if !ok {
		return
	}
	runes := []rune(l.RawContent)
	if col > len(runes) {
		col = len(runes)
	}
	edited := string(runes[:col-1]) + string(runes[col:])

	if u.replaceLine(line, edited) {
		ed.Geometry().SetCursor(line, col-1)
	}
}

// replaceLine rewrites one line of the block covering it.
func (u *UI) replaceLine(line int, content string) bool {
	ed := u.app.Editor()

	for _, b := range ed.Blocks() {
		if line >= b.LineStart && line <= b.LineEnd {
			lines := ed.Document().RawLines()[b.LineStart : b.LineEnd+1]
			edited := make([]string, len(lines))
			copy(edited, lines)
			edited[line-b.LineStart] = content
			return ed.ContentChange(b.ID, strings.Join(edited, "\n"))
		}
	}
	return false
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
