// Package tdop is a generic Top-Down Operator Precedence (Pratt) parser
// framework: a reusable engine that XPath 1.0 and XPath 2.0 extend by
// registering nud/led denotation functions against a shared TokenSpec
// registry keyed by symbol, rather than an engine hardwired to a single
// query language.
//
// A token does not hold a back-reference to its owning parser;
// nud/led/check callbacks receive the *Parser explicitly.
package tdop


// Label categorizes a symbol: "operator", "axis",
// "function", "constructor function", "kind test", "literal", "symbol".
type Label string

const (
	LabelOperator    Label = "operator"
	LabelAxis        Label = "axis"
	LabelFunction    Label = "function"
	LabelConstructor Label = "constructor function"
	LabelKindTest    Label = "kind test"
	LabelLiteral     Label = "literal"
	LabelSymbol      Label = "symbol"
)

// NudFunc is a token's null-denotation: how it starts an expression.
type NudFunc func(p *Parser, self *Token) (*Token, error)

// LedFunc is a token's left-denotation: how it combines with a left operand
// already parsed.
type LedFunc func(p *Parser, self *Token, left *Token) (*Token, error)

// CheckFunc performs static evaluation of self: it
// calls the token's own Evaluate/Select logic without a dynamic context so
// type/arity errors surface at parse time. A CheckFunc that needs data
// returns a *xpatherr.MissingContext, which Parse absorbs.
type CheckFunc func(p *Parser, self *Token) error

// TokenSpec is the registered shape of a grammar symbol: everything a
// token carries except its per-occurrence operands, value, and position,
// which live on the Token itself.
type TokenSpec struct {
	Symbol string
	Label  Label
	Lbp    int // left binding power
	Rbp    int // right binding power; the parser never reads it (Infixr parses its right operand at Lbp-1)

	Nud   NudFunc
	Led   LedFunc
	Check CheckFunc
}

// Position is a (line, column) location into the source.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token is both the lexical symbol matched at this position and the AST
// node it becomes once nud/led run.
type Token struct {
	Spec     *TokenSpec
	Operands []*Token // AST edges; arity == len(Operands) once parsing completes
	Value    interface{}
	Position Position
	Lexeme   string

	// Data is scratch space for the concrete grammar's own AST payload
	// (e.g. a parsed axis/node-test pair, a function's resolved arity),
	// kept generic here so tdop never imports xpath1/xpath2 types.
	Data interface{}

	// Source is the canonical text of the expression this token is the
	// root of. Parse sets it on the root token only; re-parsing Source
	// yields an equal AST.
	Source string
}

// Symbol returns the token's registered symbol string.
func (t *Token) Symbol() string {
	if t.Spec == nil {
		return ""
	}
	return t.Spec.Symbol
}

// Arity is len(Operands).
func (t *Token) Arity() int { return len(t.Operands) }
