// Package coord normalizes the line-numbering conventions used by the
// evaluation engine onto the document's canonical 0-indexed line space.
//
// The engine reports line numbers three different ways: validation
// diagnostics are keyed by 0-indexed line, evaluation results carry
// 1-indexed lines, and per-line token maps are keyed by 1-indexed line.
// Every consumer of engine output converts through this package before
// indexing into the document. No other code performs off-by-one
// arithmetic on line numbers.
package coord

// FromValidation converts a 0-indexed validation diagnostic line to a
// canonical document line index.
func FromValidation(line int) int {
	return line
}

// FromEvaluation converts a 1-indexed evaluation result line to a
// canonical document line index.
func FromEvaluation(line int) int {
	return line - 1
}

// FromTokenMap converts a 1-indexed token map line to a canonical
// document line index.
func FromTokenMap(line int) int {
	return line - 1
}

// ToEvaluation converts a canonical document line index to the engine's
// 1-indexed evaluation convention.
func ToEvaluation(line int) int {
	return line + 1
}

// ToTokenMap converts a canonical document line index to the engine's
// 1-indexed token map convention.
func ToTokenMap(line int) int {
	return line + 1
}

// InRange reports whether a canonical line index addresses a line in a
// document of lineCount lines. Engine responses can race with concurrent
// edits; callers drop entries that resolve out of range.
func InRange(line, lineCount int) bool {
	return line >= 0 && line < lineCount
}
