package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"

	"github.com/roach88/varscope/internal/ir"
)

// ValidationResult lists every syntax error found in a template.
type ValidationResult struct {
	IsValid bool
	Errors  []*SyntaxError
}

// Parse splits template into literal and reference segments.
// It returns the first syntax error encountered, and no segments.
func Parse(template string) ([]Segment, error) {
	p := &parser{template: template}
	p.run(false)
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return p.segments, nil
}

// Validate parses template and collects all syntax errors, resuming after
// each malformed expression.
func Validate(template string) ValidationResult {
	p := &parser{template: template}
	p.run(true)
	return ValidationResult{IsValid: len(p.errs) == 0, Errors: p.errs}
}

// ReferencedVariables returns the unique variable names referenced by
// template, in order of first appearance. Function names are excluded.
func ReferencedVariables(template string) ([]string, error) {
	if !HasReferences(template) {
		return []string{}, nil
	}
	segments, err := Parse(template)
	if err != nil {
		return nil, err
	}
	return VariableNames(segments), nil
}

// VariableNames returns the unique variable names in segments, in order.
func VariableNames(segments []Segment) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, seg := range segments {
		if seg.Kind != Variable || seen[seg.Name] {
			continue
		}
		seen[seg.Name] = true
		names = append(names, seg.Name)
	}
	return names
}

// HasReferences reports whether template could contain a reference.
// Templates without "${" are returned verbatim by the engine.
func HasReferences(template string) bool {
	return strings.Contains(template, "${")
}

type parser struct {
	template string
	segments []Segment
	errs     []*SyntaxError
}

func (p *parser) run(recover bool) {
	cursor := parsly.NewCursor("", []byte(p.template), 0)
	literal := strings.Builder{}
	literalStart := 0
	flush := func(end int) {
		if literal.Len() > 0 {
			p.segments = append(p.segments, Segment{
				Kind: Literal,
				Text: literal.String(),
				Span: ir.Span{Start: literalStart, End: end},
				Raw:  p.template[literalStart:end],
			})
			literal.Reset()
		}
	}

	for cursor.Pos < cursor.InputSize {
		start := cursor.Pos
		match := cursor.MatchAny(escapeMatcher, exprStartMatcher, anyMatcher)
		switch match.Code {
		case escapeToken:
			if literal.Len() == 0 {
				literalStart = start
			}
			literal.WriteString("${")
		case exprStartToken:
			flush(start)
			seg, err := p.expression(cursor, start)
			if err != nil {
				p.errs = append(p.errs, err)
				if !recover {
					return
				}
				cursor.Pos = err.Span.End
				literalStart = cursor.Pos
				continue
			}
			p.segments = append(p.segments, seg)
			literalStart = cursor.Pos
		default:
			if literal.Len() == 0 {
				literalStart = start
			}
			literal.WriteString(match.Text(cursor))
		}
	}
	flush(cursor.Pos)
}

// expression parses the remainder of a ${...} expression; cursor is
// positioned just after "${".
func (p *parser) expression(cursor *parsly.Cursor, start int) (Segment, *SyntaxError) {
	name := cursor.MatchAfterOptional(whitespaceMatcher, identifierMatcher)
	if name.Code != identifierToken {
		end, closed := p.closeAfter(start)
		if !closed {
			return Segment{}, p.error("unterminated reference, expected '}'", start, end)
		}
		inner := strings.TrimSpace(p.template[start+2 : end-1])
		if inner == "" {
			return Segment{}, p.error("empty reference", start, end)
		}
		return Segment{}, p.error(fmt.Sprintf("invalid identifier %q", inner), start, end)
	}

	seg := Segment{Kind: Variable, Name: name.Text(cursor)}
	next := cursor.MatchAfterOptional(whitespaceMatcher, argsBlockMatcher, exprEndMatcher)
	switch next.Code {
	case argsBlockToken:
		seg.Kind = Function
		block := next.Text(cursor)
		args, msg := parseArgs(block[1 : len(block)-1])
		if msg != "" {
			end, _ := p.closeAfter(start)
			return Segment{}, p.error(fmt.Sprintf("function %s: %s", seg.Name, msg), start, end)
		}
		seg.Args = args
		if end := cursor.MatchAfterOptional(whitespaceMatcher, exprEndMatcher); end.Code != exprEndToken {
			return Segment{}, p.unexpected(cursor, start)
		}
	case exprEndToken:
	default:
		return Segment{}, p.unexpected(cursor, start)
	}
	seg.Span = ir.Span{Start: start, End: cursor.Pos}
	seg.Raw = p.template[start:cursor.Pos]
	return seg, nil
}

func (p *parser) unexpected(cursor *parsly.Cursor, start int) *SyntaxError {
	end, _ := p.closeAfter(start)
	if cursor.Pos >= cursor.InputSize {
		return p.error("unterminated reference, expected '}'", start, end)
	}
	c := cursor.Input[cursor.Pos]
	if c == '(' {
		return p.error("unterminated argument list, expected ')'", start, end)
	}
	return p.error(fmt.Sprintf("unexpected %q in reference", c), start, end)
}

// closeAfter returns the end offset of the expression starting at start:
// one past the next '}', or the template length when it is never closed.
func (p *parser) closeAfter(start int) (int, bool) {
	if i := strings.IndexByte(p.template[start:], '}'); i >= 0 {
		return start + i + 1, true
	}
	return len(p.template), false
}

func (p *parser) error(msg string, start, end int) *SyntaxError {
	return &SyntaxError{Message: msg, Span: ir.Span{Start: start, End: end}, Template: p.template}
}

// parseArgs parses the text between a function's parentheses. It returns a
// non-empty message on malformed input.
func parseArgs(text string) ([]Arg, string) {
	args := []Arg{}
	if strings.TrimSpace(text) == "" {
		return args, ""
	}
	cursor := parsly.NewCursor("", []byte(text), 0)
	for {
		index := len(args) + 1
		match := cursor.MatchAfterOptional(whitespaceMatcher, singleQuotedMatcher, doubleQuotedMatcher, numberMatcher, exprStartMatcher, identifierMatcher)
		switch match.Code {
		case singleQuotedToken, doubleQuotedToken:
			value, err := unquote(match.Text(cursor))
			if err != "" {
				return nil, fmt.Sprintf("argument %d: %s", index, err)
			}
			args = append(args, Arg{Kind: StringArg, Value: value})
		case numberToken:
			raw := match.Text(cursor)
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Sprintf("argument %d: invalid number %q", index, raw)
			}
			args = append(args, Arg{Kind: NumberArg, Value: strings.TrimPrefix(raw, "+"), Number: n})
		case exprStartToken:
			return nil, fmt.Sprintf("argument %d: references are not allowed in arguments", index)
		case identifierToken:
			word := match.Text(cursor)
			if next := cursor.MatchAfterOptional(whitespaceMatcher, argsBlockMatcher); next.Code == argsBlockToken {
				return nil, fmt.Sprintf("argument %d: nested function call %s() is not allowed", index, word)
			}
			return nil, fmt.Sprintf("argument %d: bare word %q, arguments must be quoted strings or numbers", index, word)
		case parsly.EOF:
			return nil, fmt.Sprintf("argument %d is empty", index)
		default:
			if cursor.Pos < cursor.InputSize && cursor.Input[cursor.Pos] == ',' {
				return nil, fmt.Sprintf("argument %d is empty", index)
			}
			return nil, fmt.Sprintf("argument %d: unexpected %q", index, rest(cursor))
		}

		sep := cursor.MatchAfterOptional(whitespaceMatcher, commaMatcher)
		switch sep.Code {
		case commaToken:
			continue
		case parsly.EOF:
			return args, ""
		default:
			return nil, fmt.Sprintf("expected ',' after argument %d, found %q", index, rest(cursor))
		}
	}
}

func rest(cursor *parsly.Cursor) string {
	if cursor.Pos >= cursor.InputSize {
		return ""
	}
	return string(cursor.Input[cursor.Pos:])
}

// unquote strips the surrounding quotes and applies backslash escapes.
func unquote(quoted string) (string, string) {
	if len(quoted) < 2 {
		return "", "unterminated string"
	}
	body := quoted[1 : len(quoted)-1]
	if !strings.Contains(body, `\`) {
		return body, ""
	}
	out := strings.Builder{}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", "dangling escape"
		}
		switch body[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		default:
			out.WriteByte(body[i])
		}
	}
	return out.String(), ""
}
