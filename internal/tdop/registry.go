package tdop

import "fmt"

// Registry is the set of symbols a grammar has registered. XPath 1.0
// registers its symbols (a few dozen operators, keywords and functions)
// into one Registry; XPath 2.0 extends it by
// registering additional symbols and re-registering (via Method) new
// behavior onto existing ones, so the 2.0 grammar is an extension of a
// common token registry.
type Registry struct {
	specs map[string]*TokenSpec
	// order preserves registration order, used only to make the tokenizer's
	// symbol-alternation deterministic before it is sorted by length.
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: map[string]*TokenSpec{}}
}

// Lookup returns the spec registered for symbol, or nil.
func (r *Registry) Lookup(symbol string) *TokenSpec {
	return r.specs[symbol]
}

// Symbols returns every registered symbol, in registration order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// getOrCreate returns the existing spec for symbol, or creates and inserts
// one with the given label. A symbol that plays more than one grammatical
// role at once — "-" as both unary prefix and binary infix minus is the
// canonical XPath example — must share one TokenSpec so a later registrar
// augments it instead of clobbering an earlier one.
func (r *Registry) getOrCreate(symbol string, label Label) *TokenSpec {
	if existing, ok := r.specs[symbol]; ok {
		return existing
	}
	spec := &TokenSpec{Symbol: symbol, Label: label}
	r.specs[symbol] = spec
	r.order = append(r.order, symbol)
	return spec
}

// Symbol registers a bare symbol with no nud/led, for delimiters like ")"
// and "]" whose only job is to be recognized and skipped over.
func (r *Registry) Symbol(symbol string, lbp int) *TokenSpec {
	spec := r.getOrCreate(symbol, LabelSymbol)
	spec.Lbp = lbp
	return spec
}

// Literal registers a literal token (numbers, strings, context-item "."
// before it's overridden, etc.): its nud is always "return self unchanged".
func (r *Registry) Literal(symbol string, label Label) *TokenSpec {
	spec := r.getOrCreate(symbol, label)
	spec.Nud = func(p *Parser, self *Token) (*Token, error) {
		return self, nil
	}
	return spec
}

// Nullary registers a symbol that only ever appears as a nud (it never
// combines with a left operand), such as true()/false() once parenthesized,
// or a named constant.
func (r *Registry) Nullary(symbol string, label Label, nud NudFunc) *TokenSpec {
	spec := r.getOrCreate(symbol, label)
	spec.Nud = nud
	return spec
}

// Prefix registers symbol as a prefix operator binding its operand at rbp,
// e.g. unary "-" at the unary precedence level.
func (r *Registry) Prefix(symbol string, rbp int) *TokenSpec {
	spec := r.getOrCreate(symbol, LabelOperator)
	spec.Nud = func(p *Parser, self *Token) (*Token, error) {
		operand, err := p.Expression(rbp)
		if err != nil {
			return nil, err
		}
		self.Operands = []*Token{operand}
		return self, nil
	}
	return spec
}

// Postfix registers symbol as a postfix operator with left binding power
// lbp and no further right operand.
func (r *Registry) Postfix(symbol string, lbp int) *TokenSpec {
	spec := r.getOrCreate(symbol, LabelOperator)
	spec.Lbp = lbp
	spec.Led = func(p *Parser, self *Token, left *Token) (*Token, error) {
		self.Operands = []*Token{left}
		return self, nil
	}
	return spec
}

// Infix registers a left-associative binary operator at binding power lbp.
func (r *Registry) Infix(symbol string, lbp int) *TokenSpec {
	spec := r.getOrCreate(symbol, LabelOperator)
	spec.Lbp = lbp
	spec.Led = func(p *Parser, self *Token, left *Token) (*Token, error) {
		right, err := p.Expression(lbp)
		if err != nil {
			return nil, err
		}
		self.Operands = []*Token{left, right}
		return self, nil
	}
	return spec
}

// Infixr registers a right-associative binary operator: unlike Infix, its
// led parses the right operand at lbp-1, so a chain of the same operator
// nests to the right instead of the left.
func (r *Registry) Infixr(symbol string, lbp int) *TokenSpec {
	spec := r.getOrCreate(symbol, LabelOperator)
	spec.Lbp = lbp
	spec.Led = func(p *Parser, self *Token, left *Token) (*Token, error) {
		right, err := p.Expression(lbp - 1)
		if err != nil {
			return nil, err
		}
		self.Operands = []*Token{left, right}
		return self, nil
	}
	return spec
}

// Method attaches nud/led/check behavior to a symbol already registered
// (typically by a base grammar), without changing its binding powers —
// used by XPath 2.0 to generalize an XPath 1.0 production.
func (r *Registry) Method(symbol string, nud NudFunc, led LedFunc) (*TokenSpec, error) {
	spec, ok := r.specs[symbol]
	if !ok {
		return nil, fmt.Errorf("tdop: Method: symbol %q is not registered", symbol)
	}
	if nud != nil {
		spec.Nud = nud
	}
	if led != nil {
		spec.Led = led
	}
	return spec, nil
}

// SetCheck attaches static-evaluation behavior to an already-registered
// symbol.
func (r *Registry) SetCheck(symbol string, check CheckFunc) error {
	spec, ok := r.specs[symbol]
	if !ok {
		return fmt.Errorf("tdop: SetCheck: symbol %q is not registered", symbol)
	}
	spec.Check = check
	return nil
}
