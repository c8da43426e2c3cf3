package calclua

import (
	"fmt"
	"strings"

	"github.com/dshills/calcdown/internal/engine"
)

// validateText checks every calculation line and returns diagnostics
// keyed by 0-indexed line number.
//
// Checks, in order per line: lexical errors, unbalanced parentheses,
// malformed assignments, and references to variables that no earlier
// line has assigned.
func validateText(fullText string) map[int][]engine.Diagnostic {
	byLine := make(map[int][]engine.Diagnostic)
	defined := make(map[string]bool)

	for i, line := range strings.Split(fullText, "\n") {
		if classifyLine(line) != engine.LineCalculation {
			continue
		}

		tokens, serr := scanLine(line)
		if serr != nil {
			byLine[i] = append(byLine[i], lineDiag(i, serr.Offset, serr.Offset+1,
				engine.SeverityError, serr.Message))
			continue
		}

		if diag, bad := checkParens(i, tokens); bad {
			byLine[i] = append(byLine[i], diag)
		}

		assignIdx := -1
		for j, tok := range tokens {
			if tok.Type == engine.TokenAssignment {
				assignIdx = j
				break
			}
		}

		if assignIdx >= 0 {
			if assignIdx != 1 || tokens[0].Type != engine.TokenIdentifier {
				tok := tokens[assignIdx]
				byLine[i] = append(byLine[i], lineDiag(i, tok.Start, tok.End,
					engine.SeverityError, "assignment requires a single variable name on the left"))
			} else if assignIdx == len(tokens)-1 {
				tok := tokens[assignIdx]
				byLine[i] = append(byLine[i], lineDiag(i, tok.Start, tok.End,
					engine.SeverityError, "assignment is missing an expression"))
			}
		}

		// References before the assignment target becomes defined.
		for j, tok := range tokens {
			if tok.Type != engine.TokenIdentifier {
				continue
			}
			if assignIdx == 1 && j == 0 {
				continue // assignment target, not a reference
			}
			if !defined[tok.Value] {
				byLine[i] = append(byLine[i], lineDiag(i, tok.Start, tok.End,
					engine.SeverityError, fmt.Sprintf("undefined variable %q", tok.Value)))
			}
		}

		if assignIdx == 1 && tokens[0].Type == engine.TokenIdentifier {
			defined[tokens[0].Value] = true
		}
	}

	return byLine
}

// checkParens verifies parenthesis balance for one line.
func checkParens(line int, tokens []engine.Token) (engine.Diagnostic, bool) {
	depth := 0
	for _, tok := range tokens {
		if tok.Type != engine.TokenOperator {
			continue
		}
		switch tok.Value {
		case "(":
			depth++
		case ")":
			depth--
			if depth < 0 {
				return lineDiag(line, tok.Start, tok.End,
					engine.SeverityError, "unmatched closing parenthesis"), true
			}
		}
	}
	if depth > 0 {
		last := tokens[len(tokens)-1]
		return lineDiag(line, last.Start, last.End,
			engine.SeverityError, "unclosed parenthesis"), true
	}
	return engine.Diagnostic{}, false
}

// lineDiag builds a diagnostic spanning [start, end) on a line.
// Line numbers here are already 0-indexed, the validation convention.
func lineDiag(line, start, end int, sev engine.Severity, msg string) engine.Diagnostic {
	return engine.Diagnostic{
		Severity: sev,
		Message:  msg,
		Range: engine.Range{
			Start: engine.Position{Line: line, Column: start},
			End:   engine.Position{Line: line, Column: end},
		},
	}
}
