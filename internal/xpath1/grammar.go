package xpath1

import (
	"math"
	"strconv"
	"sync"

	"github.com/gogo-agent/xpathlang/internal/statictx"
	"github.com/gogo-agent/xpathlang/internal/tdop"
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/internal/xpeval"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// Binding powers, ascending precedence.
const (
	bpComma      = 5
	bpOr         = 25
	bpAnd        = 30
	bpCompare    = 40
	bpAdditive   = 50
	bpMultiplic  = 55
	bpUnion      = 60
	bpUnaryRbp   = 75
	bpPath       = 90
	bpPredicate  = 100
)

var (
	registryOnce sync.Once
	registry     *tdop.Registry
)

// Registry returns the XPath 1.0 token registry, built once and shared
// across every XPath1Parser: a parser is reusable across expressions, and
// the symbol table never changes after registration.
func Registry() *tdop.Registry {
	registryOnce.Do(func() {
		registry = BuildRegistry()
	})
	return registry
}

// BuildRegistry builds a fresh registry carrying the full XPath 1.0 token
// set. internal/xpath2 starts from its own BuildRegistry result and extends
// it, so 2.0-only symbols never leak into the plain 1.0 grammar Registry()
// serves.
func BuildRegistry() *tdop.Registry {
	r := tdop.NewRegistry()
	buildRegistry(r)
	return r
}

// NewParser builds a fresh tdop.Parser bound to the XPath 1.0 registry and
// the static context sc, ready to Parse one expression.
func NewParser(sc *statictx.Context) *tdop.Parser {
	p := tdop.NewParser(Registry(), tdop.DefaultLexConfig())
	p.UserData = sc
	return p
}

// Parse parses source against a fresh XPath 1.0 parser over sc, returning
// the root AST token.
func Parse(sc *statictx.Context, source string) (*tdop.Token, error) {
	return NewParser(sc).Parse(source)
}

// StaticOf extracts the *statictx.Context a NewParser call stashed in
// p.UserData, or nil.
func StaticOf(p *tdop.Parser) *statictx.Context {
	sc, _ := p.UserData.(*statictx.Context)
	return sc
}

func buildRegistry(r *tdop.Registry) {
	registerStructuralSymbols(r)
	registerLiterals(r)
	registerPrimaries(r)
	registerPath(r)
	registerOperators(r)
	registerCoreFunctions(r)

	// XPath reserves none of its keywords: an element named "div" or "and"
	// is still selectable, so every name-shaped operator that lacks a null
	// denotation parses as a child:: name test in operand position.
	for _, sym := range r.Symbols() {
		if spec := r.Lookup(sym); spec.Nud == nil && tdop.IsNameShaped(sym) {
			spec.Nud = nameNud
		}
	}

	// Every registered symbol gets a static-evaluation Check that calls
	// its own AST payload's Eval against a context-free Context, surfacing
	// type/arity errors at parse time.
	for _, sym := range r.Symbols() {
		_ = r.SetCheck(sym, staticCheck)
	}
}

func staticCheck(p *tdop.Parser, t *tdop.Token) error {
	ev, ok := t.Data.(xpeval.Evaluable)
	if !ok {
		return nil
	}
	_, err := ev.Eval(xpeval.NewStatic(StaticOf(p)))
	return err
}

// registerStructuralSymbols registers the delimiters that only ever get
// consumed via Advance, never reached by the Pratt loop as a led.
func registerStructuralSymbols(r *tdop.Registry) {
	r.Symbol(")", 0)
	r.Symbol("]", 0)
	r.Symbol("::", 0)
	r.Symbol(tdop.SymEOF, 0)
}

// registerLiterals registers number and string literal lexical categories
// with evaluators attached directly at parse time.
func registerLiterals(r *tdop.Registry) {
	r.Nullary(tdop.SymNumber, tdop.LabelLiteral, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		v, err := strconv.ParseFloat(self.Lexeme, 64)
		if err != nil {
			return nil, p.WrongSyntax(self, "invalid numeric literal %q", self.Lexeme)
		}
		self.Value = v
		self.Data = xpeval.EvalFunc(func(ctx *xpeval.Context) (xpeval.Sequence, error) {
			return xpeval.Sequence{xpeval.NumberItemOf(v)}, nil
		})
		return self, nil
	})
	r.Nullary(tdop.SymString, tdop.LabelLiteral, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		s := unquote(self.Lexeme)
		self.Value = s
		self.Data = xpeval.EvalFunc(func(ctx *xpeval.Context) (xpeval.Sequence, error) {
			return xpeval.Sequence{xpeval.StringItemOf(s)}, nil
		})
		return self, nil
	})
}

// registerPrimaries registers the primary-expression productions that are
// not path steps: names (fallback to child:: node tests), variable
// references, parenthesized expressions and the empty sequence, and the
// generic "[" predicate suffix any primary can take.
func registerPrimaries(r *tdop.Registry) {
	r.Nullary(tdop.SymName, tdop.LabelSymbol, nameNud)

	r.Nullary("$", tdop.LabelOperator, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		nameTok := p.Current()
		if nameTok.Symbol() != tdop.SymName {
			return nil, p.WrongSyntax(self, "expected a variable name after '$'")
		}
		if err := p.Advance(); err != nil {
			return nil, err
		}
		name := nameTok.Lexeme
		self.Value = name
		self.Data = xpeval.EvalFunc(func(ctx *xpeval.Context) (xpeval.Sequence, error) {
			if v, ok := ctx.Variable(name); ok {
				return v, nil
			}
			if ctx.StaticOnly {
				return nil, xpatherr.NewMissingContext("variable $" + name)
			}
			return nil, xpatherr.New(xpatherr.XPDY0002, self.Position.Offset, "variable $%s is not bound", name)
		})
		return self, nil
	})

	r.Nullary("(", tdop.LabelSymbol, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		if p.Current().Symbol() == ")" {
			if err := p.Advance(")"); err != nil {
				return nil, err
			}
			self.Data = xpeval.EvalFunc(func(ctx *xpeval.Context) (xpeval.Sequence, error) {
				return xpeval.Sequence{}, nil
			})
			return self, nil
		}
		inner, err := p.Expression(0)
		if err != nil {
			return nil, err
		}
		if err := p.Advance(")"); err != nil {
			return nil, err
		}
		self.Operands = []*tdop.Token{inner}
		self.Data = tokenEval{inner}
		return self, nil
	})

	bracketSpec := r.Symbol("[", bpPredicate)
	bracketSpec.Led = func(p *tdop.Parser, self *tdop.Token, left *tdop.Token) (*tdop.Token, error) {
		predTok, err := p.Expression(0)
		if err != nil {
			return nil, err
		}
		if err := p.Advance("]"); err != nil {
			return nil, err
		}
		self.Operands = []*tdop.Token{left, predTok}
		self.Data = &filterExpr{left: left, predicate: tokenEval{predTok}}
		return self, nil
	}

	r.Nullary(".", tdop.LabelSymbol, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		return finishStep(p, self, xdm.Self, anyNodeTest())
	})
	r.Nullary("..", tdop.LabelSymbol, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		return finishStep(p, self, xdm.Parent, anyNodeTest())
	})
	r.Nullary("@", tdop.LabelOperator, func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		head, err := consumeNodeTestHead(p)
		if err != nil {
			return nil, err
		}
		test, err := buildNodeTest(p, xdm.Attribute, head)
		if err != nil {
			return nil, err
		}
		return finishStep(p, self, xdm.Attribute, test)
	})

	// "*" plays both a node-test nud (wildcard child-axis step) and an
	// infix multiply led; see registerOperators for the led half.
	starSpec := r.Symbol("*", bpMultiplic)
	starSpec.Nud = func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		return finishStep(p, self, xdm.Child, wildcardTestFor(xdm.Child))
	}
}

// nameNud is the fallback nud for any NCName/QName lexeme in operand
// position: an axis name before "::", a kind test or unknown-function error
// before "(", or (the common case) a child:: name test.
func nameNud(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
	name := self.Lexeme
	if p.Current().Symbol() == "::" {
		axis, ok := axisByName[name]
		if !ok {
			return nil, p.WrongSyntax(self, "unknown axis %q", name)
		}
		if err := p.Advance("::"); err != nil {
			return nil, err
		}
		head, err := consumeNodeTestHead(p)
		if err != nil {
			return nil, err
		}
		test, err := buildNodeTest(p, axis, head)
		if err != nil {
			return nil, err
		}
		return finishStep(p, self, axis, test)
	}
	if p.Current().Symbol() == "(" {
		if isKindTestKeyword(name) {
			test, err := buildKindTest(p, name)
			if err != nil {
				return nil, err
			}
			return finishStep(p, self, xdm.Child, test)
		}
		return nil, xpatherr.New(xpatherr.XPST0017, self.Position.Offset, "unknown function %q", name)
	}
	test, err := resolveNameTest(p, xdm.Child, self)
	if err != nil {
		return nil, err
	}
	return finishStep(p, self, xdm.Child, test)
}

// NameTestNud exposes nameNud to internal/xpath2, whose keyword nuds
// ("for" not followed by "$", "if" not followed by "(") fall back to the
// plain name-test reading of the same lexeme.
func NameTestNud(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
	return nameNud(p, self)
}

// finishStep parses self's trailing predicates and attaches the completed
// step payload, recording the predicate expressions as Operands so static
// analysis walks them.
func finishStep(p *tdop.Parser, self *tdop.Token, axis xdm.Axis, test xpeval.NodeTest) (*tdop.Token, error) {
	predToks, err := parsePredicates(p)
	if err != nil {
		return nil, err
	}
	self.Operands = append(self.Operands, predToks...)
	self.Data = &step{axis: axis, test: test, predicates: predicateEvals(predToks)}
	return self, nil
}

// isStepStart reports whether t's symbol can begin a RelativePathExpr
// step, used by "/" and "//" to decide whether a leading path operator is
// bare ("/" selecting just the document root) or root-plus-step.
func isStepStart(t *tdop.Token) bool {
	switch t.Symbol() {
	case tdop.SymName, "*", "@", ".", "..":
		return true
	}
	if t.Spec == nil {
		return false
	}
	if t.Spec.Label == tdop.LabelFunction {
		return true
	}
	// Keyword symbols ("div", "mod", "for", ...) carry a name-test
	// fallback nud, so in step position they begin a step too.
	return t.Spec.Nud != nil && tdop.IsNameShaped(t.Spec.Symbol)
}

// registerPath registers "/" and "//".
func registerPath(r *tdop.Registry) {
	slash := r.Symbol("/", bpPath)
	slash.Nud = pathNud(false)
	slash.Led = pathLed(false)

	dslash := r.Symbol("//", bpPath)
	dslash.Nud = pathNud(true)
	dslash.Led = pathLed(true)
}

func pathNud(desc bool) tdop.NudFunc {
	return func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		if !isStepStart(p.Current()) {
			self.Data = &pathNode{root: true, desc: desc}
			return self, nil
		}
		stepTok, err := p.Expression(bpPath)
		if err != nil {
			return nil, err
		}
		self.Operands = []*tdop.Token{stepTok}
		self.Data = &pathNode{root: true, desc: desc, step: stepTok}
		return self, nil
	}
}

func pathLed(desc bool) tdop.LedFunc {
	return func(p *tdop.Parser, self *tdop.Token, left *tdop.Token) (*tdop.Token, error) {
		stepTok, err := p.Expression(bpPath)
		if err != nil {
			return nil, err
		}
		self.Operands = []*tdop.Token{left, stepTok}
		self.Data = &pathNode{left: left, desc: desc, step: stepTok}
		return self, nil
	}
}

// registerOperators registers union, boolean, comparison, and arithmetic
// operators.
func registerOperators(r *tdop.Registry) {
	unionSpec := r.Infix("|", bpUnion)
	attachBinary(unionSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &unionExpr{left: left, right: right}
	})

	orSpec := r.Infix("or", bpOr)
	attachBinary(orSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &boolOp{and: false, left: left, right: right}
	})
	andSpec := r.Infix("and", bpAnd)
	attachBinary(andSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &boolOp{and: true, left: left, right: right}
	})

	for _, op := range []string{"=", "!=", "<", "<=", ">", ">="} {
		opCopy := op
		spec := r.Infix(op, bpCompare)
		attachBinary(spec, func(left, right *tdop.Token) xpeval.Evaluable {
			return &compareExpr{op: opCopy, left: left, right: right}
		})
	}

	plusSpec := r.Prefix("+", bpUnaryRbp)
	attachUnary(plusSpec, false)
	r.Infix("+", bpAdditive)
	attachBinary(plusSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &binOp{op: "+", left: left, right: right}
	})

	minusSpec := r.Prefix("-", bpUnaryRbp)
	attachUnary(minusSpec, true)
	r.Infix("-", bpAdditive)
	attachBinary(minusSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &binOp{op: "-", left: left, right: right}
	})

	r.Infix("*", bpMultiplic)
	attachBinary(starSpecOf(r), func(left, right *tdop.Token) xpeval.Evaluable {
		return &binOp{op: "*", left: left, right: right}
	})

	divSpec := r.Infix("div", bpMultiplic)
	attachBinary(divSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &binOp{op: "div", left: left, right: right}
	})
	modSpec := r.Infix("mod", bpMultiplic)
	attachBinary(modSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &binOp{op: "mod", left: left, right: right}
	})

	commaSpec := r.Infix(",", bpComma)
	attachBinary(commaSpec, func(left, right *tdop.Token) xpeval.Evaluable {
		return &seqExpr{left: left, right: right}
	})
}

func starSpecOf(r *tdop.Registry) *tdop.TokenSpec { return r.Lookup("*") }

// attachBinary wraps an already-registered infix TokenSpec's Led so the
// parsed token's Data carries build(left, right) instead of leaving
// Operands as the only record of the subtree.
func attachBinary(spec *tdop.TokenSpec, build func(left, right *tdop.Token) xpeval.Evaluable) {
	inner := spec.Led
	spec.Led = func(p *tdop.Parser, self *tdop.Token, left *tdop.Token) (*tdop.Token, error) {
		t, err := inner(p, self, left)
		if err != nil {
			return nil, err
		}
		t.Data = build(t.Operands[0], t.Operands[1])
		return t, nil
	}
}

// attachUnary wraps an already-registered prefix TokenSpec's Nud so the
// parsed token's Data carries the unary evaluator.
func attachUnary(spec *tdop.TokenSpec, negate bool) {
	inner := spec.Nud
	spec.Nud = func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		t, err := inner(p, self)
		if err != nil {
			return nil, err
		}
		t.Data = &unaryOp{neg: negate, operand: t.Operands[0]}
		return t, nil
	}
}

// --- evaluators for the operators above ---

type seqExpr struct{ left, right *tdop.Token }

func (s *seqExpr) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	l, err := evalToken(s.left, ctx)
	if err != nil {
		return nil, err
	}
	r, err := evalToken(s.right, ctx)
	if err != nil {
		return nil, err
	}
	out := make(xpeval.Sequence, 0, len(l)+len(r))
	out = append(out, l...)
	out = append(out, r...)
	return out, nil
}

type unionExpr struct{ left, right *tdop.Token }

func (u *unionExpr) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	l, err := evalToken(u.left, ctx)
	if err != nil {
		return nil, err
	}
	r, err := evalToken(u.right, ctx)
	if err != nil {
		return nil, err
	}
	if ctx.StaticOnly {
		if len(l) == 0 && len(r) == 0 {
			return xpeval.Sequence{}, nil
		}
		return nil, xpatherr.NewMissingContext("union")
	}
	ids := make([]xdm.NodeId, 0, len(l)+len(r))
	for _, it := range append(append(xpeval.Sequence{}, l...), r...) {
		if it.Kind != xpeval.NodeItem {
			return nil, xpatherr.New(xpatherr.XPTY0004, -1, "union operands must be node sequences")
		}
		ids = append(ids, it.Node)
	}
	return xpeval.NodeSequenceOf(ctx.Tree, ctx.Tree.SortDocumentOrder(ids)), nil
}

type boolOp struct {
	and         bool
	left, right *tdop.Token
}

func (b *boolOp) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	l, err := evalToken(b.left, ctx)
	if err != nil {
		return nil, err
	}
	lv, err := xpeval.EffectiveBooleanValue(l)
	if err != nil {
		return nil, err
	}
	if b.and && !lv {
		return xpeval.Sequence{xpeval.BooleanItemOf(false)}, nil
	}
	if !b.and && lv {
		return xpeval.Sequence{xpeval.BooleanItemOf(true)}, nil
	}
	r, err := evalToken(b.right, ctx)
	if err != nil {
		return nil, err
	}
	rv, err := xpeval.EffectiveBooleanValue(r)
	if err != nil {
		return nil, err
	}
	return xpeval.Sequence{xpeval.BooleanItemOf(rv)}, nil
}

type compareExpr struct {
	op          string
	left, right *tdop.Token
}

func (c *compareExpr) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	l, err := evalToken(c.left, ctx)
	if err != nil {
		return nil, err
	}
	r, err := evalToken(c.right, ctx)
	if err != nil {
		return nil, err
	}
	if ctx.StaticOnly {
		return nil, xpatherr.NewMissingContext("comparison")
	}
	compat := ctx.Static != nil && ctx.Static.CompatibilityMode
	ok, err := generalCompare(c.op, l, r, compat)
	if err != nil {
		return nil, err
	}
	return xpeval.Sequence{xpeval.BooleanItemOf(ok)}, nil
}

// generalCompare implements the XPath general comparison: existential
// over every pair of atomized items from the two operand sequences, each
// pair compared with the value-comparison rules. In XPath 1.0
// compatibility mode (compat) the relational operators coerce both sides
// numerically instead.
func generalCompare(op string, lseq, rseq xpeval.Sequence, compat bool) (bool, error) {
	l := xpeval.Atomize(lseq)
	r := xpeval.Atomize(rseq)
	for _, a := range l {
		for _, b := range r {
			ok, err := compareOne(op, a, b, compat)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func compareOne(op string, a, b xpeval.Item, compat bool) (bool, error) {
	switch op {
	case "=":
		return xpeval.Equal(a, b), nil
	case "!=":
		return !xpeval.Equal(a, b), nil
	case "<", "<=", ">", ">=":
		return relationalCompare(op, a, b, compat)
	}
	return false, xpatherr.New(xpatherr.XPST0003, -1, "unknown comparison operator %q", op)
}

// relationalCompare orders one atomized pair: two strings compare by
// code-point order, any other pairing (and every pairing in XPath 1.0
// compatibility mode) coerces both sides to numbers.
func relationalCompare(op string, a, b xpeval.Item, compat bool) (bool, error) {
	if !compat && a.Kind == xpeval.StringItem && b.Kind == xpeval.StringItem {
		switch op {
		case "<":
			return a.Str < b.Str, nil
		case "<=":
			return a.Str <= b.Str, nil
		case ">":
			return a.Str > b.Str, nil
		case ">=":
			return a.Str >= b.Str, nil
		}
	}
	an, bn := xpeval.NumberValue(a), xpeval.NumberValue(b)
	switch op {
	case "<":
		return an < bn, nil
	case "<=":
		return an <= bn, nil
	case ">":
		return an > bn, nil
	case ">=":
		return an >= bn, nil
	}
	return false, xpatherr.New(xpatherr.XPST0003, -1, "unknown comparison operator %q", op)
}

type unaryOp struct {
	neg     bool
	operand *tdop.Token
}

func (u *unaryOp) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	v, err := evalToken(u.operand, ctx)
	if err != nil {
		return nil, err
	}
	it, err := arithOperand(v)
	if err != nil {
		return nil, err
	}
	n := it.Num
	if u.neg {
		n = -n
	}
	return xpeval.Sequence{xpeval.NumberItemOf(n)}, nil
}

type binOp struct {
	op          string
	left, right *tdop.Token
}

func (b *binOp) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	lv, err := evalToken(b.left, ctx)
	if err != nil {
		return nil, err
	}
	rv, err := evalToken(b.right, ctx)
	if err != nil {
		return nil, err
	}
	l, err := arithOperand(lv)
	if err != nil {
		return nil, err
	}
	r, err := arithOperand(rv)
	if err != nil {
		return nil, err
	}
	switch b.op {
	case "+":
		return xpeval.Sequence{xpeval.NumberItemOf(l.Num + r.Num)}, nil
	case "-":
		return xpeval.Sequence{xpeval.NumberItemOf(l.Num - r.Num)}, nil
	case "*":
		return xpeval.Sequence{xpeval.NumberItemOf(l.Num * r.Num)}, nil
	case "div":
		if r.Num == 0 {
			return nil, xpatherr.New(xpatherr.FOAR0001, -1, "division by zero")
		}
		return xpeval.Sequence{xpeval.NumberItemOf(l.Num / r.Num)}, nil
	case "mod":
		if r.Num == 0 {
			return nil, xpatherr.New(xpatherr.FOAR0001, -1, "modulo by zero")
		}
		return xpeval.Sequence{xpeval.NumberItemOf(math.Mod(l.Num, r.Num))}, nil
	}
	return nil, xpatherr.New(xpatherr.XPST0003, -1, "unknown arithmetic operator %q", b.op)
}

// arithOperand atomizes seq and requires its first item to already be
// numeric, so `1 + "1"` raises XPTY0004 at parse time: arithmetic takes
// genuinely numeric operands rather than XPath 1.0's usual implicit
// string-to-number coercion; callers needing
// that coercion still have number() available explicitly. An empty
// sequence is not a type violation — it coerces to NaN, matching number().
func arithOperand(seq xpeval.Sequence) (xpeval.Item, error) {
	if len(seq) == 0 {
		return xpeval.NumberItemOf(math.NaN()), nil
	}
	atom := xpeval.Atomize(seq)
	it := atom[0]
	if it.Kind != xpeval.NumberItem {
		return xpeval.Item{}, xpatherr.New(xpatherr.XPTY0004, -1, "arithmetic operand must be numeric")
	}
	return it, nil
}
