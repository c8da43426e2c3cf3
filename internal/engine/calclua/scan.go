package calclua

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/calcdown/internal/engine"
)

// keywords recognized by the expression language.
var keywords = map[string]bool{
	"of": true,
	"to": true,
	"in": true,
}

// units recognized when they immediately follow a number.
var units = map[string]bool{
	"kg": true, "g": true, "lb": true, "oz": true,
	"km": true, "m": true, "cm": true, "mm": true, "mi": true, "ft": true,
	"h": true, "min": true, "s": true, "ms": true,
	"yr": true, "mo": true, "wk": true, "d": true,
}

// scanError reports a lexical error with its rune offset in the line.
type scanError struct {
	Offset  int
	Message string
}

func (e *scanError) Error() string {
	return fmt.Sprintf("col %d: %s", e.Offset, e.Message)
}

// scanner tokenizes a single calculation line.
// Offsets are rune offsets, end-exclusive.
type scanner struct {
	src    []rune
	pos    int
	tokens []engine.Token
}

// scanLine tokenizes one line. It returns the tokens scanned so far and
// the first lexical error, if any.
func scanLine(line string) ([]engine.Token, *scanError) {
	s := &scanner{src: []rune(line)}
	return s.run()
}

func (s *scanner) run() ([]engine.Token, *scanError) {
	for s.pos < len(s.src) {
		r := s.src[s.pos]

		switch {
		case r == ' ' || r == '\t':
			s.pos++
		case r == '/' && s.peek(1) == '/':
			s.scanComment()
		case r == '$':
			if err := s.scanCurrency(); err != nil {
				return s.tokens, err
			}
		case unicode.IsDigit(r):
			s.scanNumber()
		case r == '"':
			if err := s.scanString(); err != nil {
				return s.tokens, err
			}
		case isIdentStart(r):
			s.scanIdentifier()
		case r == '=':
			if s.peek(1) == '=' {
				s.emit(engine.TokenOperator, s.pos, s.pos+2, "==")
				s.pos += 2
			} else {
				s.emit(engine.TokenAssignment, s.pos, s.pos+1, "=")
				s.pos++
			}
		case isOperatorRune(r):
			s.scanOperator()
		default:
			return s.tokens, &scanError{
				Offset:  s.pos,
				Message: fmt.Sprintf("unexpected character %q", r),
			}
		}
	}
	return s.tokens, nil
}

func (s *scanner) peek(n int) rune {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

// emit appends a token whose Value equals its source text.
func (s *scanner) emit(t engine.TokenType, start, end int, value string) {
	s.tokens = append(s.tokens, engine.Token{
		Type:         t,
		Start:        start,
		End:          end,
		Value:        value,
		OriginalText: string(s.src[start:end]),
	})
}

func (s *scanner) scanComment() {
	start := s.pos
	s.pos = len(s.src)
	text := string(s.src[start:])
	s.tokens = append(s.tokens, engine.Token{
		Type:         engine.TokenComment,
		Start:        start,
		End:          s.pos,
		Value:        strings.TrimSpace(strings.TrimPrefix(text, "//")),
		OriginalText: text,
	})
}

// scanCurrency scans "$" followed by a number with optional thousands
// separators, e.g. "$5,000.50". Value is the bare numeric text.
func (s *scanner) scanCurrency() *scanError {
	start := s.pos
	s.pos++ // consume '$'

	if s.pos >= len(s.src) || !unicode.IsDigit(s.src[s.pos]) {
		return &scanError{Offset: start, Message: "currency symbol without amount"}
	}

	numEnd, value := s.scanNumericText()
	s.tokens = append(s.tokens, engine.Token{
		Type:         engine.TokenCurrency,
		Start:        start,
		End:          numEnd,
		Value:        value,
		OriginalText: string(s.src[start:numEnd]),
	})
	return nil
}

// scanNumber scans a number, then reclassifies it as a percent when a
// "%" follows or as carrying a unit when a known unit name follows.
func (s *scanner) scanNumber() {
	start := s.pos
	end, value := s.scanNumericText()

	if end < len(s.src) && s.src[end] == '%' {
		s.pos = end + 1
		s.tokens = append(s.tokens, engine.Token{
			Type:         engine.TokenPercent,
			Start:        start,
			End:          s.pos,
			Value:        value,
			OriginalText: string(s.src[start:s.pos]),
		})
		return
	}

	s.tokens = append(s.tokens, engine.Token{
		Type:         engine.TokenNumber,
		Start:        start,
		End:          end,
		Value:        value,
		OriginalText: string(s.src[start:end]),
	})

	// A known unit name directly after a number (optionally separated
	// by one space) becomes a unit token.
	unitStart := end
	if unitStart < len(s.src) && s.src[unitStart] == ' ' {
		unitStart++
	}
	unitEnd := unitStart
	for unitEnd < len(s.src) && isIdentRune(s.src[unitEnd]) {
		unitEnd++
	}
	if unitEnd > unitStart {
		name := string(s.src[unitStart:unitEnd])
		if units[name] {
			s.emit(engine.TokenUnit, unitStart, unitEnd, name)
			s.pos = unitEnd
			return
		}
	}
	s.pos = end
}

// scanNumericText consumes digits with optional comma separators and a
// single decimal point starting at s.pos. It returns the end offset and
// the numeric text with separators stripped. It does not advance s.pos.
func (s *scanner) scanNumericText() (end int, value string) {
	var sb strings.Builder
	i := s.pos
	seenDot := false
	for i < len(s.src) {
		r := s.src[i]
		switch {
		case unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == ',' && i+1 < len(s.src) && unicode.IsDigit(s.src[i+1]):
			// thousands separator, skipped
		case r == '.' && !seenDot && i+1 < len(s.src) && unicode.IsDigit(s.src[i+1]):
			seenDot = true
			sb.WriteRune(r)
		default:
			return i, sb.String()
		}
		i++
	}
	return i, sb.String()
}

func (s *scanner) scanString() *scanError {
	start := s.pos
	s.pos++ // consume opening quote
	for s.pos < len(s.src) {
		if s.src[s.pos] == '"' {
			s.pos++
			text := string(s.src[start:s.pos])
			s.tokens = append(s.tokens, engine.Token{
				Type:         engine.TokenString,
				Start:        start,
				End:          s.pos,
				Value:        string(s.src[start+1 : s.pos-1]),
				OriginalText: text,
			})
			return nil
		}
		s.pos++
	}
	return &scanError{Offset: start, Message: "unterminated string"}
}

func (s *scanner) scanIdentifier() {
	start := s.pos
	for s.pos < len(s.src) && isIdentRune(s.src[s.pos]) {
		s.pos++
	}
	name := string(s.src[start:s.pos])
	if keywords[name] {
		s.emit(engine.TokenKeyword, start, s.pos, name)
		return
	}
	s.emit(engine.TokenIdentifier, start, s.pos, name)
}

func (s *scanner) scanOperator() {
	start := s.pos
	r := s.src[s.pos]
	s.pos++

	// two-rune comparison operators
	if s.pos < len(s.src) {
		two := string(r) + string(s.src[s.pos])
		switch two {
		case "==", "!=", "<=", ">=":
			s.pos++
			s.emit(engine.TokenOperator, start, s.pos, two)
			return
		}
	}
	s.emit(engine.TokenOperator, start, s.pos, string(r))
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isOperatorRune(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '^', '%', '(', ')', '<', '>', '!', ',':
		return true
	default:
		return false
	}
}
