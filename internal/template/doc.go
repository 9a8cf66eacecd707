// Package template tokenizes varscope template strings.
//
// A template is literal text interspersed with reference expressions:
//
//	Bearer ${API_TOKEN}
//	X-Request-Id: ${uuid()}
//	${timestamp("iso")} / ${random(1, 100)}
//
// ${identifier} is a variable reference; ${identifier(arg, ...)} is a
// function call whose arguments are quoted strings or numbers. Nesting is
// never syntactic: a variable's value may itself contain ${...}, which the
// engine expands recursively. \${ produces a literal "${".
//
// Parsing is all-or-nothing: Parse returns either the complete segment list
// or a *SyntaxError naming the offending span.
package template
