package calclua

import (
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/calcdown/internal/engine"
)

// evalLine evaluates one scanned calculation line against the given Lua
// state. It returns the assigned variable name (empty for a bare
// expression), the formatted value, and whether a value was produced.
func evalLine(L *lua.LState, tokens []engine.Token) (name, value string, ok bool) {
	name, chunk, ok := translate(tokens)
	if !ok {
		return "", "", false
	}

	if err := L.DoString(chunk); err != nil {
		return "", "", false
	}

	lv := L.Get(-1)
	L.Pop(1)
	value, ok = formatValue(lv)
	if !ok {
		return "", "", false
	}
	return name, value, true
}

// translate converts a token stream to a Lua chunk that returns the
// line's value. Assignments store into the environment table so that
// bindings persist across evaluations; bare expressions only read it.
func translate(tokens []engine.Token) (name, chunk string, ok bool) {
	// Strip trailing comments.
	exprTokens := tokens
	for len(exprTokens) > 0 && exprTokens[len(exprTokens)-1].Type == engine.TokenComment {
		exprTokens = exprTokens[:len(exprTokens)-1]
	}
	if len(exprTokens) == 0 {
		return "", "", false
	}

	// Assignment: first identifier followed by the assignment token.
	assignIdx := -1
	for i, tok := range exprTokens {
		if tok.Type == engine.TokenAssignment {
			assignIdx = i
			break
		}
	}

	if assignIdx >= 0 {
		if assignIdx != 1 || exprTokens[0].Type != engine.TokenIdentifier {
			return "", "", false
		}
		name = exprTokens[0].Value
		rhs, rhsOK := translateExpr(exprTokens[assignIdx+1:])
		if !rhsOK {
			return "", "", false
		}
		target := envTable + "." + name
		return name, target + " = (" + rhs + ")\nreturn " + target, true
	}

	expr, exprOK := translateExpr(exprTokens)
	if !exprOK {
		return "", "", false
	}
	return "", "return (" + expr + ")", true
}

// translateExpr renders expression tokens as Lua source.
func translateExpr(tokens []engine.Token) (string, bool) {
	if len(tokens) == 0 {
		return "", false
	}

	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch tok.Type {
		case engine.TokenIdentifier:
			sb.WriteString(envTable + "." + tok.Value)
		case engine.TokenNumber, engine.TokenCurrency:
			sb.WriteString(tok.Value)
		case engine.TokenPercent:
			sb.WriteString("(" + tok.Value + "/100)")
		case engine.TokenOperator:
			if tok.Value == "!=" {
				sb.WriteString("~=")
			} else {
				sb.WriteString(tok.Value)
			}
		case engine.TokenKeyword:
			// "12% of 500" multiplies.
			if tok.Value != "of" {
				return "", false
			}
			sb.WriteString("*")
		case engine.TokenString:
			sb.WriteString(strconv.Quote(tok.Value))
		case engine.TokenUnit:
			// Units annotate the preceding number; no numeric effect.
		case engine.TokenAssignment:
			return "", false
		default:
			return "", false
		}
	}
	return sb.String(), true
}

// formatValue renders a Lua value for the result gutter.
func formatValue(lv lua.LValue) (string, bool) {
	switch v := lv.(type) {
	case lua.LNumber:
		return strconv.FormatFloat(float64(v), 'f', -1, 64), true
	case lua.LString:
		return string(v), true
	case lua.LBool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
