package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dshills/calcdown/internal/config"
	"github.com/dshills/calcdown/internal/document"
	"github.com/dshills/calcdown/internal/editor"
	"github.com/dshills/calcdown/internal/engine"
	"github.com/dshills/calcdown/internal/engine/calclua"
	"github.com/dshills/calcdown/internal/engine/remote"
	"github.com/dshills/calcdown/internal/geometry"
	"github.com/dshills/calcdown/internal/overlay"
)

// Options configure an Application.
type Options struct {
	// ConfigPath locates the TOML configuration file. Empty uses the
	// default location.
	ConfigPath string

	// Text is the initial document text.
	Text string

	// LogOutput receives log lines. Nil logs to stderr.
	LogOutput io.Writer

	// OnRender is invoked whenever evaluation state changed and the UI
	// should redraw.
	OnRender func()

	// WatchConfig enables live reload of the configuration file.
	WatchConfig bool
}

// Application wires configuration, engine, editor, and overlay into one
// running session.
type Application struct {
	cfg config.Config
	log *Logger

	eng      engine.Engine
	engClose func()

	editor  *editor.Editor
	view    *overlay.View
	watcher *config.Watcher
}

// New assembles an application. Engine initialization failure is fatal:
// the session cannot open without a reachable engine.
func New(opts Options) (*Application, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := NewLogger(opts.LogOutput, ParseLogLevel(cfg.LogLevel))

	eng, engClose, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	// Verify the engine answers before opening the session.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	version, err := eng.Version(ctx)
	cancel()
	if err != nil {
		engClose()
		return nil, fmt.Errorf("engine unavailable: %w", err)
	}
	log.Info("engine ready: %s", version)

	doc := document.New(opts.Text)
	geom := geometry.New(doc,
		geometry.FontMetrics{CellWidth: cfg.CellWidth},
		geometry.Metrics{
			LineHeight:  cfg.LineHeight,
			TopPadding:  cfg.TopPadding,
			GlyphHeight: cfg.GlyphHeight,
			CaretWidth:  geometry.DefaultMetrics().CaretWidth,
		},
	)

	ed := editor.NewWithDocument(doc, eng, geom,
		editor.WithDebounce(cfg.Debounce()),
		editor.WithLogger(log.WithComponent("editor")),
		editor.WithRenderHandler(opts.OnRender),
	)

	a := &Application{
		cfg:      cfg,
		log:      log,
		eng:      eng,
		engClose: engClose,
		editor:   ed,
		view:     overlay.NewView(nil),
	}

	if opts.WatchConfig {
		w, err := config.Watch(path, a.configChanged)
		if err != nil {
			log.Warn("config watch disabled: %v", err)
		} else {
			a.watcher = w
		}
	}
	return a, nil
}

// newEngine builds the configured evaluation engine and its cleanup.
func newEngine(cfg config.Config) (engine.Engine, func(), error) {
	switch cfg.Engine {
	case config.EngineRemote:
		conn, err := net.Dial("tcp", cfg.EngineAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing engine at %s: %w", cfg.EngineAddr, err)
		}
		client := remote.NewClient(conn, conn)
		return client, func() {
			client.Close()
			conn.Close()
		}, nil
	default:
		eng := calclua.New()
		return eng, eng.Close, nil
	}
}

// configChanged applies a live-reloaded configuration. Only settings
// that can change mid-session are applied; the engine selection needs a
// restart.
func (a *Application) configChanged(cfg config.Config) {
	a.log.Info("configuration reloaded")
	a.log.SetLevel(ParseLogLevel(cfg.LogLevel))
	a.editor.Scheduler().SetDebounce(cfg.Debounce())
	a.editor.Geometry().SetMetrics(geometry.Metrics{
		LineHeight:  cfg.LineHeight,
		TopPadding:  cfg.TopPadding,
		GlyphHeight: cfg.GlyphHeight,
		CaretWidth:  a.editor.Geometry().Metrics().CaretWidth,
	})
	a.cfg = cfg
}

// Config returns the configuration the application started with.
func (a *Application) Config() config.Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *Logger { return a.log }

// Editor returns the editing session.
func (a *Application) Editor() *editor.Editor { return a.editor }

// View returns the overlay view.
func (a *Application) View() *overlay.View { return a.view }

// Open starts the session with an initial evaluation.
func (a *Application) Open() {
	a.editor.Open()
}

// Close shuts the session down.
func (a *Application) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.editor.Close()
	if a.engClose != nil {
		a.engClose()
	}
}
