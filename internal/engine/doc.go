// Package engine defines the bridge to the external evaluation engine.
//
// The engine classifies document lines as markdown or calculation,
// tokenizes calculation lines, evaluates the document, and validates it.
// The editor talks to the engine only through the Engine interface; the
// engine's line-numbering conventions are normalized by internal/coord
// before any result touches the document.
//
// Two implementations ship with the editor: calclua runs the engine
// in-process on a Lua state, and remote speaks the engine's JSON message
// contract across a process boundary.
package engine
