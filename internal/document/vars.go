package document

import "github.com/dshills/calcdown/internal/engine"

// VariableContext maps variable names to their latest evaluation result.
type VariableContext map[string]string

// Variables derives the variable context from the current lines: for
// each line that has an evaluation result, the first identifier token
// preceding an assignment token names the variable. Lines without both
// are excluded. Later lines win, so each name maps to its latest value.
//
// The context is rebuilt fully on every call, never merged
// incrementally.
func (d *Document) Variables() VariableContext {
	d.mu.RLock()
	defer d.mu.RUnlock()

	vars := make(VariableContext)
	for _, line := range d.lines {
		if line.Result == nil {
			continue
		}
		name, ok := assignmentTarget(line.Tokens)
		if !ok {
			continue
		}
		vars[name] = line.Result.Value
	}
	return vars
}

// assignmentTarget returns the first identifier token that precedes an
// assignment-operator token.
func assignmentTarget(tokens []engine.Token) (string, bool) {
	var name string
	seen := false
	for _, tok := range tokens {
		switch tok.Type {
		case engine.TokenIdentifier:
			if !seen {
				name = tok.Value
				seen = true
			}
		case engine.TokenAssignment:
			if seen {
				return name, true
			}
			return "", false
		}
	}
	return "", false
}
