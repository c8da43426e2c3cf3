// Package remote speaks the evaluation engine's message contract across
// a process or worker boundary.
//
// Frames are newline-delimited UTF-8 JSON. A request carries a sequence
// id, a method name, and method parameters; the matching response echoes
// the id and carries either a result or an error string. Requests are
// encoded with sjson and responses decoded with gjson; a frame that does
// not parse is reported as engine.ErrMalformedResponse and never
// partially applied.
package remote

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/calcdown/internal/engine"
)

// Method names of the engine message contract.
const (
	methodClassifyLines    = "classifyLines"
	methodTokenize         = "tokenize"
	methodEvaluateDocument = "evaluateDocument"
	methodValidate         = "validate"
	methodResetContext     = "resetContext"
	methodGetVersion       = "getVersion"
)

// encodeTokens renders tokens as a JSON array.
func encodeTokens(tokens []engine.Token) (string, error) {
	out := "[]"
	var err error
	for i, tok := range tokens {
		prefix := strconv.Itoa(i) + "."
		if out, err = sjson.Set(out, prefix+"type", tok.Type.String()); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"start", tok.Start); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"end", tok.End); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"value", tok.Value); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"originalText", tok.OriginalText); err != nil {
			return "", err
		}
	}
	return out, nil
}

// decodeTokens parses a JSON token array.
func decodeTokens(raw gjson.Result) ([]engine.Token, bool) {
	if !raw.IsArray() {
		return nil, false
	}
	var tokens []engine.Token
	ok := true
	raw.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			ok = false
			return false
		}
		tokens = append(tokens, engine.Token{
			Type:         engine.TokenTypeFromString(item.Get("type").String()),
			Start:        int(item.Get("start").Int()),
			End:          int(item.Get("end").Int()),
			Value:        item.Get("value").String(),
			OriginalText: item.Get("originalText").String(),
		})
		return true
	})
	if !ok {
		return nil, false
	}
	return tokens, true
}

// encodeResults renders evaluation results as a JSON array.
func encodeResults(results []engine.EvalResult) (string, error) {
	out := "[]"
	var err error
	for i, r := range results {
		prefix := strconv.Itoa(i) + "."
		if out, err = sjson.Set(out, prefix+"line", r.Line); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"name", r.Name); err != nil {
			return "", err
		}
		if out, err = sjson.Set(out, prefix+"value", r.Value); err != nil {
			return "", err
		}
	}
	return out, nil
}

// decodeResults parses a JSON evaluation result array.
func decodeResults(raw gjson.Result) ([]engine.EvalResult, bool) {
	if !raw.IsArray() {
		return nil, false
	}
	var results []engine.EvalResult
	ok := true
	raw.ForEach(func(_, item gjson.Result) bool {
		line := item.Get("line")
		if !line.Exists() {
			ok = false
			return false
		}
		results = append(results, engine.EvalResult{
			Line:  int(line.Int()),
			Name:  item.Get("name").String(),
			Value: item.Get("value").String(),
		})
		return true
	})
	if !ok {
		return nil, false
	}
	return results, true
}

// encodeDiagnostics renders diagnostics keyed by line as a JSON object.
func encodeDiagnostics(byLine map[int][]engine.Diagnostic) (string, error) {
	out := "{}"
	var err error
	for line, diags := range byLine {
		key := strconv.Itoa(line)
		for i, d := range diags {
			prefix := key + "." + strconv.Itoa(i) + "."
			if out, err = sjson.Set(out, prefix+"severity", d.Severity.String()); err != nil {
				return "", err
			}
			if out, err = sjson.Set(out, prefix+"message", d.Message); err != nil {
				return "", err
			}
			if out, err = sjson.Set(out, prefix+"range.start.line", d.Range.Start.Line); err != nil {
				return "", err
			}
			if out, err = sjson.Set(out, prefix+"range.start.column", d.Range.Start.Column); err != nil {
				return "", err
			}
			if out, err = sjson.Set(out, prefix+"range.end.line", d.Range.End.Line); err != nil {
				return "", err
			}
			if out, err = sjson.Set(out, prefix+"range.end.column", d.Range.End.Column); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}

// decodeDiagnostics parses a JSON diagnostics-by-line object.
func decodeDiagnostics(raw gjson.Result) (map[int][]engine.Diagnostic, bool) {
	if !raw.IsObject() {
		return nil, false
	}
	byLine := make(map[int][]engine.Diagnostic)
	ok := true
	raw.ForEach(func(key, list gjson.Result) bool {
		line, err := strconv.Atoi(key.String())
		if err != nil || !list.IsArray() {
			ok = false
			return false
		}
		list.ForEach(func(_, item gjson.Result) bool {
			byLine[line] = append(byLine[line], engine.Diagnostic{
				Severity: severityFromString(item.Get("severity").String()),
				Message:  item.Get("message").String(),
				Range: engine.Range{
					Start: engine.Position{
						Line:   int(item.Get("range.start.line").Int()),
						Column: int(item.Get("range.start.column").Int()),
					},
					End: engine.Position{
						Line:   int(item.Get("range.end.line").Int()),
						Column: int(item.Get("range.end.column").Int()),
					},
				},
			})
			return true
		})
		return true
	})
	if !ok {
		return nil, false
	}
	return byLine, true
}

// severityFromString parses a severity name, defaulting to error so an
// unknown severity is never silently downgraded.
func severityFromString(s string) engine.Severity {
	switch s {
	case "warning":
		return engine.SeverityWarning
	case "info":
		return engine.SeverityInfo
	default:
		return engine.SeverityError
	}
}

// kindFromString parses a line classification name.
func kindFromString(s string) engine.LineKind {
	if s == "calculation" {
		return engine.LineCalculation
	}
	return engine.LineMarkdown
}
