package tdop

import (
	"testing"

	"github.com/gogo-agent/xpathlang/xpatherr"
)

// buildArithRegistry registers a minimal four-function arithmetic grammar:
// numbers, +, -, *, /, unary -, and parentheses. This exercises the generic
// engine independent of any XPath grammar, the way a Pratt-parser library
// would ship its own smoke test for the engine before a real grammar is
// layered on top.
func buildArithRegistry() *Registry {
	r := NewRegistry()
	r.Literal(SymNumber, LabelLiteral)
	r.Infix("+", 50)
	r.Infix("-", 50)
	r.Infix("*", 55)
	r.Infix("/", 55)
	r.Prefix("-", 75)
	r.Symbol(")", 0)
	r.Nullary("(", LabelSymbol, func(p *Parser, self *Token) (*Token, error) {
		inner, err := p.Expression(0)
		if err != nil {
			return nil, err
		}
		if err := p.advance(")"); err != nil {
			return nil, err
		}
		return inner, nil
	})
	return r
}

func evalArith(t *Token) float64 {
	switch t.Symbol() {
	case SymNumber:
		var f float64
		for _, c := range t.Lexeme {
			if c == '.' {
				continue
			}
			f = f*10 + float64(c-'0')
		}
		return f
	case "+":
		if len(t.Operands) == 1 {
			return evalArith(t.Operands[0])
		}
		return evalArith(t.Operands[0]) + evalArith(t.Operands[1])
	case "-":
		if len(t.Operands) == 1 {
			return -evalArith(t.Operands[0])
		}
		return evalArith(t.Operands[0]) - evalArith(t.Operands[1])
	case "*":
		return evalArith(t.Operands[0]) * evalArith(t.Operands[1])
	case "/":
		return evalArith(t.Operands[0]) / evalArith(t.Operands[1])
	}
	return 0
}

func TestParsePrecedenceAndAssociativity(t *testing.T) {
	r := buildArithRegistry()
	cases := []struct {
		src  string
		want float64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"2-3-4", -5}, // left-associative: (2-3)-4
		{"-3+4", 1},
		{"2*-3", -6},
	}
	for _, c := range cases {
		p := NewParser(r, DefaultLexConfig())
		root, err := p.Parse(c.src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.src, err)
		}
		if got := evalArith(root); got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	r := buildArithRegistry()
	p := NewParser(r, DefaultLexConfig())
	if _, err := p.Parse("2+"); err == nil {
		t.Fatal("expected a syntax error for a truncated expression")
	}
	p2 := NewParser(r, DefaultLexConfig())
	if _, err := p2.Parse("2 3"); err == nil {
		t.Fatal("expected a syntax error for adjacent literals with no operator")
	}
}

func TestCheckAbsorbsMissingContext(t *testing.T) {
	r := NewRegistry()
	spec := r.Literal(SymNumber, LabelLiteral)
	_ = spec
	if err := r.SetCheck(SymNumber, func(p *Parser, self *Token) error {
		return xpatherr.NewMissingContext("context item")
	}); err != nil {
		t.Fatal(err)
	}
	p := NewParser(r, DefaultLexConfig())
	if _, err := p.Parse("42"); err != nil {
		t.Fatalf("Parse should absorb MissingContext at the top level: %v", err)
	}
}

func TestSharedSymbolKeepsBothDenotations(t *testing.T) {
	// "-" is registered as both Infix (binary minus) and Prefix (unary
	// minus); the second registration must augment the shared TokenSpec,
	// not replace the first one's Led.
	r := buildArithRegistry()
	spec := r.Lookup("-")
	if spec == nil || spec.Nud == nil || spec.Led == nil {
		t.Fatalf("expected \"-\" to carry both Nud and Led, got %+v", spec)
	}
	if spec.Lbp != 50 {
		t.Fatalf("expected \"-\" Lbp to remain 50 from Infix, got %d", spec.Lbp)
	}
}

// TestKeywordDoesNotSplitLongerName: name-shaped symbols are resolved from
// the name category, never from the symbol alternation, so registering
// "mod" must not lex the front of an identifier like "model".
func TestKeywordDoesNotSplitLongerName(t *testing.T) {
	r := NewRegistry()
	r.Literal(SymNumber, LabelLiteral)
	r.Literal(SymName, LabelLiteral)
	r.Infix("mod", 55)
	p := NewParser(r, DefaultLexConfig())
	root, err := p.Parse("model")
	if err != nil {
		t.Fatalf("Parse(model): %v", err)
	}
	if root.Symbol() != SymName || root.Lexeme != "model" {
		t.Fatalf("Parse(model) = %q token %q, want one whole name", root.Symbol(), root.Lexeme)
	}

	p2 := NewParser(r, DefaultLexConfig())
	root2, err := p2.Parse("6 mod 4")
	if err != nil {
		t.Fatalf("Parse(6 mod 4): %v", err)
	}
	if root2.Symbol() != "mod" || root2.Arity() != 2 {
		t.Fatalf("Parse(6 mod 4) root = %q/%d, want mod/2", root2.Symbol(), root2.Arity())
	}
}

func TestMethodOverridesExistingSymbol(t *testing.T) {
	r := NewRegistry()
	r.Literal(SymNumber, LabelLiteral)
	calls := 0
	if _, err := r.Method(SymNumber, func(p *Parser, self *Token) (*Token, error) {
		calls++
		return self, nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	p := NewParser(r, DefaultLexConfig())
	if _, err := p.Parse("7"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("overridden nud called %d times, want 1", calls)
	}
}
