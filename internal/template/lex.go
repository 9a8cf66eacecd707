package template

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	escapeToken = iota
	exprStartToken
	exprEndToken
	whitespaceToken
	identifierToken
	argsBlockToken
	singleQuotedToken
	doubleQuotedToken
	numberToken
	commaToken
	anyToken
)

var escapeMatcher = parsly.NewToken(escapeToken, "Escape", matcher.NewFragment(`\${`))
var exprStartMatcher = parsly.NewToken(exprStartToken, "${", matcher.NewFragment("${"))
var exprEndMatcher = parsly.NewToken(exprEndToken, "}", matcher.NewByte('}'))
var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var identifierMatcher = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
var argsBlockMatcher = parsly.NewToken(argsBlockToken, "Arguments", &argsBlockMatch{})
var singleQuotedMatcher = parsly.NewToken(singleQuotedToken, "SingleQuote", matcher.NewBlock('\'', '\'', '\\'))
var doubleQuotedMatcher = parsly.NewToken(doubleQuotedToken, "DoubleQuote", matcher.NewBlock('"', '"', '\\'))
var numberMatcher = parsly.NewToken(numberToken, "Number", &numberMatch{})
var commaMatcher = parsly.NewToken(commaToken, "Comma", matcher.NewByte(','))
var anyMatcher = parsly.NewToken(anyToken, "Any", &anyMatch{})

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

// identifierMatch accepts [A-Za-z_][A-Za-z0-9_.-]*.
type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	if !isIdentifierStart(cursor.Input[cursor.Pos]) {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isIdentifierPart(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || (b >= '0' && b <= '9') || b == '.' || b == '-'
}

// numberMatch accepts an optionally signed decimal: -12, 3.5, +7.
type numberMatch struct{}

func (n *numberMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos < cursor.InputSize && (cursor.Input[pos] == '-' || cursor.Input[pos] == '+') {
		pos++
	}
	digits := 0
	for pos < cursor.InputSize && isDigit(cursor.Input[pos]) {
		pos++
		digits++
	}
	if pos < cursor.InputSize && cursor.Input[pos] == '.' {
		pos++
		for pos < cursor.InputSize && isDigit(cursor.Input[pos]) {
			pos++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	return pos - cursor.Pos
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// argsBlockMatch matches a parenthesised argument list. Quotes are honored
// so "(')')" is one block; an unterminated list does not match.
type argsBlockMatch struct{}

func (a *argsBlockMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != '(' {
		return 0
	}
	depth := 0
	var quote byte
	escape := false
	for pos := cursor.Pos; pos < cursor.InputSize; pos++ {
		b := cursor.Input[pos]
		if quote != 0 {
			switch {
			case escape:
				escape = false
			case b == '\\':
				escape = true
			case b == quote:
				quote = 0
			}
			continue
		}
		switch b {
		case '\'', '"':
			quote = b
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pos - cursor.Pos + 1
			}
		}
	}
	return 0
}
