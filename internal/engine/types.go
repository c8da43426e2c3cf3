package engine

// LineKind classifies a document line.
type LineKind uint8

const (
	// LineMarkdown is prose rendered as markdown. Lines default to
	// markdown until the first classification arrives.
	LineMarkdown LineKind = iota
	// LineCalculation is a line of the embedded expression language.
	LineCalculation
)

// String returns the string representation of the line kind.
func (k LineKind) String() string {
	switch k {
	case LineMarkdown:
		return "markdown"
	case LineCalculation:
		return "calculation"
	default:
		return "markdown"
	}
}

// TokenType identifies the lexical class of a token.
type TokenType uint8

const (
	TokenIdentifier TokenType = iota
	TokenNumber
	TokenOperator
	TokenAssignment
	TokenCurrency
	TokenPercent
	TokenUnit
	TokenKeyword
	TokenComment
	TokenString
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenIdentifier:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	case TokenAssignment:
		return "assignment"
	case TokenCurrency:
		return "currency"
	case TokenPercent:
		return "percent"
	case TokenUnit:
		return "unit"
	case TokenKeyword:
		return "keyword"
	case TokenComment:
		return "comment"
	case TokenString:
		return "string"
	default:
		return "unknown"
	}
}

// TokenTypeFromString converts a token type name to a TokenType.
func TokenTypeFromString(s string) TokenType {
	switch s {
	case "identifier":
		return TokenIdentifier
	case "number":
		return TokenNumber
	case "operator":
		return TokenOperator
	case "assignment":
		return TokenAssignment
	case "currency":
		return TokenCurrency
	case "percent":
		return TokenPercent
	case "unit":
		return TokenUnit
	case "keyword":
		return TokenKeyword
	case "comment":
		return TokenComment
	case "string":
		return TokenString
	default:
		return TokenIdentifier
	}
}

// Token is one lexical token within a calculation line.
//
// Start and End are rune offsets within the line, End exclusive. Tokens
// for a line are sorted by Start and never overlap. Value holds the
// semantic value, which may differ from the literal source text: the
// currency literal "$5,000" carries Value "5000".
type Token struct {
	Type         TokenType
	Start        int
	End          int
	Value        string
	OriginalText string
}

// Severity orders diagnostics, following the LSP convention of lower
// numbers being more severe: error > warning > info.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MoreSevere reports whether s takes precedence over other.
func (s Severity) MoreSevere(other Severity) bool {
	return s < other
}

// Position is a location in canonical 0-indexed line space.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// Diagnostic annotates a span of the document with a message.
// Multiple diagnostics per line are permitted.
type Diagnostic struct {
	Severity Severity
	Message  string
	Range    Range
}

// EvalResult is one evaluated calculation line.
//
// Line is the engine's 1-indexed originating line number; consumers
// normalize it through internal/coord before use. Name is the assigned
// variable for assignment lines, empty for bare expressions.
type EvalResult struct {
	Line  int
	Name  string
	Value string
}
