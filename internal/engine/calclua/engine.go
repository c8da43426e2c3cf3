// Package calclua implements the evaluation engine on an embedded Lua
// state.
//
// The Lua state is the engine's isolated execution context. Variable
// bindings live in a dedicated environment table and persist across
// EvaluateDocument calls until ResetContext clears them, matching the
// reset-then-evaluate protocol the scheduler follows.
package calclua

import (
	"context"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/calcdown/internal/engine"
)

// engineVersion identifies this engine implementation.
const engineVersion = "calclua/1.0 (gopher-lua)"

// envTable is the Lua global holding all calculation variable bindings.
const envTable = "__calc_env"

// Engine evaluates calculation lines on a gopher-lua state.
// All methods are safe for concurrent use; the Lua state itself is
// single-threaded and guarded by a mutex.
type Engine struct {
	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// New creates a new engine with an empty variable context.
func New() *Engine {
	e := &Engine{}
	e.state = newState()
	return e
}

// newState creates a Lua state with a fresh environment table.
// Only the base, math, and string libraries are opened; calculations
// have no business doing I/O.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	L.SetGlobal(envTable, L.NewTable())
	return L
}

// Close releases the Lua state. Subsequent calls return ErrUnavailable.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.state.Close()
		e.closed = true
	}
}

// ClassifyLines returns one classification per input line, in order.
func (e *Engine) ClassifyLines(_ context.Context, lines []string) ([]engine.LineKind, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrUnavailable
	}

	kinds := make([]engine.LineKind, len(lines))
	for i, line := range lines {
		kinds[i] = classifyLine(line)
	}
	return kinds, nil
}

// Tokenize returns the tokens for one calculation line.
func (e *Engine) Tokenize(_ context.Context, line string) ([]engine.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrUnavailable
	}

	// Partial tokens from a failed scan are still useful for
	// highlighting; the scan error surfaces through Validate.
	tokens, _ := scanLine(line)
	return tokens, nil
}

// EvaluateDocument evaluates every calculation line of the document in
// order. Each result carries the engine's 1-indexed line number.
// Lines that fail to evaluate simply produce no result; per-line errors
// surface through Validate, not here.
func (e *Engine) EvaluateDocument(_ context.Context, fullText string, useGlobalContext bool) ([]engine.EvalResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrUnavailable
	}

	L := e.state
	if !useGlobalContext {
		L = newState()
		defer L.Close()
	}

	var results []engine.EvalResult
	for i, line := range strings.Split(fullText, "\n") {
		if classifyLine(line) != engine.LineCalculation {
			continue
		}
		tokens, serr := scanLine(line)
		if serr != nil {
			continue
		}

		name, value, ok := evalLine(L, tokens)
		if !ok {
			continue
		}
		results = append(results, engine.EvalResult{
			Line:  i + 1, // this engine reports 1-indexed lines
			Name:  name,
			Value: value,
		})
	}
	return results, nil
}

// Validate checks the document and returns diagnostics keyed by
// 0-indexed line number.
func (e *Engine) Validate(_ context.Context, fullText string) (map[int][]engine.Diagnostic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrUnavailable
	}
	return validateText(fullText), nil
}

// ResetContext clears all variable bindings from prior evaluations.
func (e *Engine) ResetContext(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrUnavailable
	}
	e.state.SetGlobal(envTable, e.state.NewTable())
	return nil
}

// Version returns the engine identification string.
func (e *Engine) Version(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", engine.ErrUnavailable
	}
	return engineVersion + " " + lua.LuaVersion, nil
}

// classifyLine decides whether a line is markdown prose or calculation.
//
// Markdown structure markers win outright. Otherwise a line is a
// calculation when it scans cleanly and contains either an assignment
// or an operator/keyword applied to at least one operand.
func classifyLine(line string) engine.LineKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return engine.LineMarkdown
	}
	if hasMarkdownMarker(trimmed) {
		return engine.LineMarkdown
	}

	tokens, serr := scanLine(line)
	if serr != nil || len(tokens) == 0 {
		return engine.LineMarkdown
	}

	// Prose full of words scans cleanly too, so an operator or keyword
	// alone is not enough: the non-assignment path also needs a numeric
	// operand ("well-known idea" stays markdown, "b * 2" does not).
	var hasAssign, hasCombinator, hasNumeric bool
	for _, tok := range tokens {
		switch tok.Type {
		case engine.TokenAssignment:
			hasAssign = true
		case engine.TokenOperator, engine.TokenKeyword:
			hasCombinator = true
		case engine.TokenNumber, engine.TokenCurrency, engine.TokenPercent:
			hasNumeric = true
		}
	}

	if hasAssign {
		return engine.LineCalculation
	}
	if hasCombinator && hasNumeric {
		return engine.LineCalculation
	}
	return engine.LineMarkdown
}

// hasMarkdownMarker reports whether the trimmed line starts with a
// markdown structure marker (heading, quote, list item).
func hasMarkdownMarker(trimmed string) bool {
	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ">") {
		return true
	}
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
		return true
	}
	// Ordered list: digits followed by ". "
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(trimmed[i:], ". ")
}
