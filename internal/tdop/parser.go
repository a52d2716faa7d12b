package tdop

import (
	"errors"
	"strings"
	"sync"

	"github.com/gogo-agent/xpathlang/xpatherr"
)

// Parser drives one parse of one source string against a Registry. A
// Parser is not reused across sources; XPath1Parser/XPath2Parser construct
// a fresh tdop.Parser per Parse call, sharing the (immutable once built)
// Registry across calls.
type Parser struct {
	registry *Registry
	lex      *LexConfig

	raw []rawToken
	pos int // index into raw of the not-yet-consumed token

	cur *Token

	source string

	// UserData lets a concrete grammar (internal/xpath1, internal/xpath2)
	// stash its own parser-level state — a static context, a schema proxy —
	// somewhere a nud/led/Check callback can reach it via the *Parser they
	// are handed, without tdop importing grammar-specific types.
	UserData interface{}
}

// NewParser builds a Parser bound to registry and cfg. The tokenizer itself
// is built lazily on first use and cached per Registry in a package-level
// map, so parsers sharing a Registry share one tokenizer.
func NewParser(registry *Registry, cfg LexConfig) *Parser {
	return &Parser{registry: registry, lex: &cfg}
}

// Registry returns the symbol registry this parser was built with, so
// nud/led/check callbacks can look up sibling symbols (e.g. a function-call
// led resolving its own closing paren).
func (p *Parser) Registry() *Registry { return p.registry }

var (
	tokenizerCacheMu sync.Mutex
	tokenizerCache   = map[*Registry]*tokenizer{}
)

// tokenizer lazily builds and caches the composed regular expression for
// this parser's registry.
func (p *Parser) tokenizer() *tokenizer {
	tokenizerCacheMu.Lock()
	defer tokenizerCacheMu.Unlock()
	if tz, ok := tokenizerCache[p.registry]; ok {
		return tz
	}
	tz := buildTokenizer(p.registry.Symbols(), *p.lex)
	tokenizerCache[p.registry] = tz
	return tz
}

// Parse runs the full parse loop: tokenize, load the
// first token, parse one expression at the lowest binding power, require
// end-of-source, then statically evaluate the result so type and arity
// errors surface immediately instead of at first dynamic evaluation. A
// *xpatherr.MissingContext raised during that static pass is expected and
// absorbed; any other error is returned.
func (p *Parser) Parse(source string) (*Token, error) {
	p.source = source
	raw, err := p.tokenizer().tokenize(source)
	if err != nil {
		return nil, err
	}
	p.raw = raw
	p.pos = 0

	if err := p.advance(); err != nil {
		return nil, err
	}

	root, err := p.Expression(0)
	if err != nil {
		return nil, err
	}

	if p.cur.Symbol() != SymEOF {
		return nil, p.unexpected()
	}
	root.Source = strings.TrimSpace(source)

	if err := p.checkStatic(root); err != nil {
		var mc *xpatherr.MissingContext
		if errors.As(err, &mc) {
			return root, nil
		}
		return nil, err
	}

	return root, nil
}

// checkStatic runs each token's Check callback bottom-up: operands are
// checked before the token itself, matching the bottom-up evaluation order
// a real Evaluate pass would use.
func (p *Parser) checkStatic(t *Token) error {
	if t == nil {
		return nil
	}
	for _, operand := range t.Operands {
		if err := p.checkStatic(operand); err != nil {
			return err
		}
	}
	if t.Spec != nil && t.Spec.Check != nil {
		return t.Spec.Check(p, t)
	}
	return nil
}

// Expression is the standard Pratt loop: parse a nud, then keep extending
// it with led while the next token's left binding power exceeds rbp.
func (p *Parser) Expression(rbp int) (*Token, error) {
	t := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	if t.Spec == nil || t.Spec.Nud == nil {
		return nil, p.wrongSyntax(t, "unexpected token %q", t.Lexeme)
	}
	left, err := t.Spec.Nud(p, t)
	if err != nil {
		return nil, err
	}

	for rbp < p.cur.Spec.Lbp {
		t = p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if t.Spec.Led == nil {
			return nil, p.wrongSyntax(t, "%q cannot combine with a preceding expression", t.Lexeme)
		}
		left, err = t.Spec.Led(p, t, left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// Current returns the not-yet-consumed lookahead token.
func (p *Parser) Current() *Token { return p.cur }

// Advance consumes the current lookahead token and loads the next one. If
// expectedSymbols is non-empty, the consumed token's symbol must match one
// of them, else Advance raises a syntax error — exported so the grammars
// built on top of tdop (internal/xpath1, internal/xpath2) can call it from
// their own nud/led functions.
func (p *Parser) Advance(expectedSymbols ...string) error {
	return p.advance(expectedSymbols...)
}

// AdvanceUntil consumes tokens until the current one matches one of
// symbols or end-of-source is reached — a recovery aid used while
// reporting a cascade of errors instead of stopping at the first.
func (p *Parser) AdvanceUntil(symbols ...string) {
	for p.cur.Symbol() != SymEOF {
		for _, s := range symbols {
			if p.cur.Symbol() == s {
				return
			}
		}
		if err := p.advance(); err != nil {
			return
		}
	}
}

// Expected raises a syntax error reporting that the current token was not
// one of symbols.
func (p *Parser) Expected(symbols ...string) error { return p.expected(symbols...) }

// Unexpected raises a syntax error reporting that the current token was
// not expected at all.
func (p *Parser) Unexpected() error { return p.unexpected() }

// WrongSyntax raises a general grammar-violation syntax error at t.
func (p *Parser) WrongSyntax(t *Token, format string, args ...interface{}) error {
	return p.wrongSyntax(t, format, args...)
}

// WrongType raises a static type-mismatch error at t.
func (p *Parser) WrongType(t *Token, format string, args ...interface{}) error {
	return p.wrongType(t, format, args...)
}

// advance consumes the current lookahead and loads the next one. If
// expectedSymbols is non-empty, the just-consumed token must match one of
// them, else advance raises a syntax error.
func (p *Parser) advance(expectedSymbols ...string) error {
	if p.cur != nil && len(expectedSymbols) > 0 {
		matched := false
		for _, sym := range expectedSymbols {
			if p.cur.Symbol() == sym {
				matched = true
				break
			}
		}
		if !matched {
			return p.expected(expectedSymbols...)
		}
	}

	if p.pos >= len(p.raw) {
		p.cur = p.eofToken()
		return nil
	}
	raw := p.raw[p.pos]
	p.pos++

	p.cur = p.tokenFromRaw(raw)
	return nil
}

func (p *Parser) eofToken() *Token {
	spec := p.registry.Lookup(SymEOF)
	if spec == nil {
		spec = &TokenSpec{Symbol: SymEOF, Label: LabelSymbol}
	}
	return &Token{Spec: spec}
}

func (p *Parser) tokenFromRaw(raw rawToken) *Token {
	var spec *TokenSpec
	switch raw.Category {
	case "eof":
		spec = p.registry.Lookup(SymEOF)
		if spec == nil {
			spec = &TokenSpec{Symbol: SymEOF}
		}
	case "name":
		spec = p.registry.Lookup(raw.Lexeme)
		if spec == nil {
			spec = p.registry.Lookup(SymName)
		}
	case "number":
		spec = p.registry.Lookup(SymNumber)
	case "string":
		spec = p.registry.Lookup(SymString)
	case "symbol":
		spec = p.registry.Lookup(raw.Lexeme)
	}
	if spec == nil {
		spec = &TokenSpec{Symbol: raw.Lexeme, Label: LabelSymbol}
	}
	return &Token{
		Spec:     spec,
		Value:    raw.Lexeme,
		Position: raw.Position,
		Lexeme:   raw.Lexeme,
	}
}

// --- error aids ---

// expected reports that the current token was not one of symbols.
func (p *Parser) expected(symbols ...string) error {
	return xpatherr.New(xpatherr.XPST0003, p.cur.Position.Offset,
		"expected %v, found %q", symbols, p.cur.Lexeme)
}

// unexpected reports that the current token was not expected here at all
// (typically: trailing input after a complete expression).
func (p *Parser) unexpected() error {
	return xpatherr.New(xpatherr.XPST0003, p.cur.Position.Offset,
		"unexpected trailing input %q", p.cur.Lexeme)
}

// wrongSyntax reports a general grammar violation at token t.
func (p *Parser) wrongSyntax(t *Token, format string, args ...interface{}) error {
	return xpatherr.New(xpatherr.XPST0003, t.Position.Offset, format, args...)
}

// wrongValue reports a value outside the legal domain for its production
// (e.g. a malformed numeric literal).
func (p *Parser) wrongValue(t *Token, format string, args ...interface{}) error {
	return xpatherr.New(xpatherr.XPST0003, t.Position.Offset, format, args...)
}

// wrongType reports a static type mismatch discovered during Check.
func (p *Parser) wrongType(t *Token, format string, args ...interface{}) error {
	return xpatherr.New(xpatherr.XPTY0004, t.Position.Offset, format, args...)
}
