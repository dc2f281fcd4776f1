// Package expr parses and evaluates the arithmetic expressions used in graph
// equations such as "y = 2x^2 - sin(x)". Only a fixed set of functions and
// constants is available; nothing is ever executed as code.
package expr

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var lexdef = lexer.MustSimple([]lexer.SimpleRule{
	{"Whitespace", `[ \t\r\n]+`},
	{"Number", `(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
	{"Ident", `[a-zA-Z_][a-zA-Z_0-9]*`},
	{"Operator", `\*\*|[-+*/^(),]`},
})

var parser = participle.MustBuild[Expression](
	participle.Lexer(lexdef),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Expression is a sum of terms
type Expression struct {
	Head *Term    `@@`
	Tail []*AddOp `@@*`
}

type AddOp struct {
	Op   string `@("+" | "-")`
	Term *Term  `@@`
}

// Term is a product of factors. A factor directly following another one
// without an operator is an implicit multiplication ("2x", "3(x+1)").
type Term struct {
	Head *Unary   `@@`
	Tail []*MulOp `@@*`
}

type MulOp struct {
	Op       string `(  @("*" | "/")`
	Explicit *Unary `   @@`
	Implicit *Power `| @@ )`
}

type Unary struct {
	Signs []string `@("-" | "+")*`
	Power *Power   `@@`
}

// Power binds tighter than a leading sign, so -2^2 is -4, and associates to
// the right.
type Power struct {
	Base     *Primary `@@`
	Exponent *Unary   `( ("^" | "**") @@ )?`
}

type Primary struct {
	Number *float64    `  @Number`
	Call   *Call       `| @@`
	Ident  *string     `| @Ident`
	Group  *Expression `| "(" @@ ")"`
}

type Call struct {
	Name string        `@Ident "("`
	Args []*Expression `@@ ( "," @@ )* ")"`
}
