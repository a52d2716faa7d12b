// Package xpath1 registers the XPath 1.0 token set onto an internal/tdop
// registry: axes, node tests, path operators, comparisons, arithmetic,
// sequences-as-function-arguments, and the core function library.
// internal/xpath2 layers sequence types, FLWOR, and typed comparisons on
// its own copy of these registrations.
package xpath1

import (
	"github.com/gogo-agent/xpathlang/internal/tdop"
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/internal/xpeval"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// stepApplier is implemented by every path-step AST node: it evaluates the
// step against an explicitly supplied context sequence, the way "/" and
// "//" hand a left step's result to the step on their right.
type stepApplier interface {
	applyStep(ctx *xpeval.Context, contextSeq xpeval.Sequence) (xpeval.Sequence, error)
}

// step is one path step's AST payload: axis, node test, and its own
// trailing predicates, consumed directly by the step's nud rather than via
// the generic "[" led (see nodetest.go's parsePredicates).
type step struct {
	axis       xdm.Axis
	test       xpeval.NodeTest
	predicates []xpeval.Evaluable
}

func (s *step) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	if ctx.StaticOnly {
		return nil, xpatherr.NewMissingContext("step requires a dynamic context item")
	}
	return s.applyStep(ctx, xpeval.Sequence{ctx.Focus.Item})
}

func (s *step) applyStep(ctx *xpeval.Context, contextSeq xpeval.Sequence) (xpeval.Sequence, error) {
	if ctx.StaticOnly {
		return nil, xpatherr.NewMissingContext("step requires a dynamic context item")
	}
	return xpeval.EvalStep(ctx, contextSeq, s.axis, s.test, s.predicates)
}

// tokenEval adapts a parsed *tdop.Token to xpeval.Evaluable by dispatching
// to whatever Evaluable its Data holds, looked up lazily at Eval time
// (Data is populated by the token's own nud/led before parsing returns, so
// by the time anything calls Eval, it is always present).
type tokenEval struct{ t *tdop.Token }

func (w tokenEval) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) { return evalToken(w.t, ctx) }

func evalToken(t *tdop.Token, ctx *xpeval.Context) (xpeval.Sequence, error) {
	ev, ok := t.Data.(xpeval.Evaluable)
	if !ok {
		return nil, xpatherr.New(xpatherr.XPST0003, t.Position.Offset, "internal: token %q has no evaluator", t.Symbol())
	}
	return ev.Eval(ctx)
}

func applierOf(t *tdop.Token) (stepApplier, bool) {
	a, ok := t.Data.(stepApplier)
	return a, ok
}

// pathNode implements "/" and "//": Eval applies the left side (the
// document root, for a leading "/" or "//") and hands its result to the
// right step via stepApplier, exactly mirroring how the led variants
// combine an arbitrary left expression with a following step.
type pathNode struct {
	root bool // true: the absolute-root form ("/" or "//" at expression start)
	tree func(ctx *xpeval.Context) xpeval.Sequence

	left *tdop.Token // nil when root is true
	step *tdop.Token // nil for a bare "/" with nothing following
	desc bool        // true for "//": insert descendant-or-self::node() first
}

func (p *pathNode) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	var base xpeval.Sequence
	if p.root {
		if ctx.StaticOnly {
			return nil, xpatherr.NewMissingContext("path root requires a dynamic context tree")
		}
		base = xpeval.Sequence{xpeval.NodeItemOf(ctx.Tree, ctx.Tree.Root())}
	} else {
		seq, err := evalToken(p.left, ctx)
		if err != nil {
			return nil, err
		}
		base = seq
	}
	if p.desc {
		descended, err := xpeval.EvalStep(ctx, base, xdm.DescendantOrSelf, nil, nil)
		if err != nil {
			return nil, err
		}
		base = descended
	}
	if p.step == nil {
		return base, nil
	}
	applier, ok := applierOf(p.step)
	if !ok {
		return nil, xpatherr.New(xpatherr.XPST0003, p.step.Position.Offset, "expected a path step after %q", "/")
	}
	return applier.applyStep(ctx, base)
}

// filterExpr implements FilterExpr's predicate suffix on a non-step
// primary (a variable reference, function call, or parenthesized
// expression): `left[pred]`, chained via the generic "[" led.
type filterExpr struct {
	left      *tdop.Token
	predicate xpeval.Evaluable
}

func (f *filterExpr) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	seq, err := evalToken(f.left, ctx)
	if err != nil {
		return nil, err
	}
	return xpeval.FilterPredicatesOnly(ctx, seq, []xpeval.Evaluable{f.predicate})
}

// unquote strips the matching pair of quote characters a string-literal
// lexeme was tokenized with.
func unquote(lexeme string) string {
	if len(lexeme) >= 2 {
		return lexeme[1 : len(lexeme)-1]
	}
	return lexeme
}

// resolvedNameTest matches a node of the principal kind whose namespace
// URI and local name equal uri/local exactly; resolveNameTest in
// nodetest.go is what turns a parsed QName lexeme into this
// kind/uri/local triple against the static context, so this stays a pure
// comparison with no namespace lookup of its own. The kind check matters:
// a name test selects only the axis's principal node kind, so child::x
// must not match a processing instruction whose target happens to be "x".
func resolvedNameTest(kind xdm.Kind, uri, local string) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == kind && tree.NamespaceURI(id) == uri && localPart(tree.Name(id)) == local
	}
}

// prefixWildcardTest matches any name in one namespace, the "ns:*" form.
func prefixWildcardTest(kind xdm.Kind, uri string) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == kind && tree.NamespaceURI(id) == uri
	}
}

// localWildcardTest matches one local name in any namespace, the
// "*:local" form.
func localWildcardTest(kind xdm.Kind, local string) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == kind && localPart(tree.Name(id)) == local
	}
}

// namespacePrefixTest matches a namespace node by its declared prefix,
// the meaning of an unprefixed name test on the namespace axis.
func namespacePrefixTest(prefix string) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == xdm.NamespaceNode && tree.Name(id) == prefix
	}
}

// anyElementTest matches any Element node, the wildcard "*" test which is
// only ever reachable from axes that can yield elements; the Iterate
// dispatcher already excludes attribute/namespace nodes from child/
// descendant/sibling axes, so "*" never needs to check kind beyond Element
// itself except on the attribute:: and namespace:: axes, which register
// their own wildcard test (attributeWildcardTest).
func anyElementTest() xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == xdm.ElementNode
	}
}

// attributeWildcardTest matches any attribute node, for "@*".
func attributeWildcardTest() xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == xdm.AttributeNode
	}
}

// kindTest matches any node of the given XDM kind, for node()/text()/
// comment() kind tests.
func kindTest(kind xdm.Kind) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == kind
	}
}

// processingInstructionTest matches a processing-instruction node, filtered
// by target name when target is non-empty.
func processingInstructionTest(target string) xpeval.NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		if tree.Kind(id) != xdm.ProcessingInstructionNode {
			return false
		}
		return target == "" || tree.Name(id) == target
	}
}

// anyNodeTest matches every node kind, for node() used on axes that can
// produce any kind (self::, parent::, ancestor::, ...).
func anyNodeTest() xpeval.NodeTest { return nil } // nil test = unfiltered, see xpeval.EvalStep
