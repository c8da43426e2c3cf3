package engine

import "context"

// Engine is the request/response bridge to the evaluation engine.
//
// Calls are conceptually synchronous; the scheduler invokes them from a
// dispatch goroutine and discards superseded responses. The engine
// retains variable bindings across EvaluateDocument calls; callers issue
// ResetContext immediately before each full-document evaluation so prior
// bindings cannot leak into the new result set.
//
// All textual payloads are UTF-8 and split on "\n" exclusively. Callers
// normalize "\r\n" before dispatch if needed.
type Engine interface {
	// ClassifyLines returns one classification per input line, in order.
	ClassifyLines(ctx context.Context, lines []string) ([]LineKind, error)

	// Tokenize returns the tokens for one calculation line.
	Tokenize(ctx context.Context, line string) ([]Token, error)

	// EvaluateDocument evaluates the full document text. Each result
	// carries its originating 1-indexed line number.
	EvaluateDocument(ctx context.Context, fullText string, useGlobalContext bool) ([]EvalResult, error)

	// Validate checks the full document text and returns diagnostics
	// keyed by 0-indexed line number.
	Validate(ctx context.Context, fullText string) (map[int][]Diagnostic, error)

	// ResetContext clears variable bindings persisted by prior
	// evaluations.
	ResetContext(ctx context.Context) error

	// Version returns an identification string. Informational only.
	Version(ctx context.Context) (string, error)
}
