package xpath1

import (
	"fmt"

	"github.com/gogo-agent/xpathlang/domtree"
	"github.com/gogo-agent/xpathlang/internal/tdop"
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/internal/xpeval"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// axisByName maps the 13 axis keywords to their xdm.Axis.
var axisByName = map[string]xdm.Axis{
	"child":              xdm.Child,
	"descendant":         xdm.Descendant,
	"attribute":          xdm.Attribute,
	"self":               xdm.Self,
	"descendant-or-self": xdm.DescendantOrSelf,
	"following-sibling":  xdm.FollowingSibling,
	"following":          xdm.Following,
	"namespace":          xdm.Namespace,
	"parent":             xdm.Parent,
	"ancestor":           xdm.Ancestor,
	"preceding-sibling":  xdm.PrecedingSibling,
	"preceding":          xdm.Preceding,
	"ancestor-or-self":   xdm.AncestorOrSelf,
}

// wildcardTestFor returns the "*" node test appropriate to axis: an
// attribute-axis "*" matches any attribute, a namespace-axis "*" matches
// any namespace node, and every other axis's "*" matches any element
// (the child/descendant/sibling/following/preceding/ancestor axes never
// yield attribute or namespace nodes in the first place, since
// xdm.Tree.Iterate already excludes them).
func wildcardTestFor(axis xdm.Axis) xpeval.NodeTest {
	switch axis {
	case xdm.Attribute:
		return attributeWildcardTest()
	case xdm.Namespace:
		return kindTest(xdm.NamespaceNode)
	default:
		return anyElementTest()
	}
}

// consumeNodeTestHead fetches the not-yet-consumed current token as the
// head of a node test and advances past it, mirroring how Expression's own
// Pratt loop consumes a token before calling its nud/led.
func consumeNodeTestHead(p *tdop.Parser) (*tdop.Token, error) {
	head := p.Current()
	if err := p.Advance(); err != nil {
		return nil, err
	}
	return head, nil
}

// buildNodeTest parses the node-test production that begins at head,
// given axis for resolving "*"'s meaning. head has already been consumed
// by the caller; buildNodeTest consumes whatever additional tokens a kind
// test requires ("(", an optional argument, ")").
//
// Dispatch is on head's lexeme, not its registered symbol: a kind-test
// keyword like "text" or a registered operator/function name reaching this
// position is just an NCName here, whatever spec the tokenizer resolved it
// to. A kind-test keyword is only a kind test when immediately followed by
// "(" — used bare it is an ordinary name test, the same ambiguity a keyword
// like "count" resolves by peeking for "(" in functions.go's functionNud.
func buildNodeTest(p *tdop.Parser, axis xdm.Axis, head *tdop.Token) (xpeval.NodeTest, error) {
	if head.Symbol() == "*" {
		return wildcardTestFor(axis), nil
	}
	if head.Symbol() == tdop.SymName || tdop.IsNameShaped(head.Symbol()) {
		if isKindTestKeyword(head.Lexeme) && p.Current().Symbol() == "(" {
			return buildKindTest(p, head.Lexeme)
		}
		return resolveNameTest(p, axis, head)
	}
	return nil, p.WrongSyntax(head, "expected a node test, found %q", head.Lexeme)
}

func isKindTestKeyword(name string) bool {
	switch name {
	case "node", "text", "comment", "processing-instruction",
		"element", "attribute", "document-node",
		"schema-element", "schema-attribute":
		return true
	}
	return false
}

// resolveNameTest builds a name test for head's lexeme, covering all four
// spellings — ns:local, *, ns:* and *:local (the tokenizer's NAME
// production matches the prefixed and wildcard forms whole; a bare "*"
// arrives as the "*" symbol and is handled by buildNodeTest). A prefix is
// resolved against the parser's static context instead of matching the
// lexical spelling directly. An unprefixed name resolves against the
// default element namespace on any axis that can yield elements, and
// never against a default namespace on the attribute axis, since an
// unprefixed attribute name is never affected by a default namespace
// declaration (XML Namespaces recommendation). A prefix with no bound URI
// raises XPST0081 rather than silently building a test that can never
// match.
func resolveNameTest(p *tdop.Parser, axis xdm.Axis, head *tdop.Token) (xpeval.NodeTest, error) {
	prefix, local := domtree.Prefix(head.Lexeme), domtree.LocalName(head.Lexeme)
	sc := StaticOf(p)
	kind := nameTestKind(axis)

	if prefix == "*" {
		return localWildcardTest(kind, local), nil
	}
	if prefix != "" {
		var uri string
		var ok bool
		if sc != nil {
			uri, ok = sc.Namespace(prefix)
		}
		if !ok {
			return nil, xpatherr.New(xpatherr.XPST0081, head.Position.Offset, "undeclared namespace prefix %q", prefix)
		}
		if local == "*" {
			return prefixWildcardTest(kind, uri), nil
		}
		return resolvedNameTest(kind, uri, local), nil
	}

	if axis == xdm.Namespace {
		// On the namespace axis a name test names the declared prefix.
		return namespacePrefixTest(local), nil
	}
	var uri string
	if axis != xdm.Attribute && sc != nil {
		uri = sc.DefaultElementNamespace()
	}
	return resolvedNameTest(kind, uri, local), nil
}

// nameTestKind is the principal node kind a name test selects on axis:
// attributes on attribute::, namespace nodes on namespace::, elements
// everywhere else.
func nameTestKind(axis xdm.Axis) xdm.Kind {
	switch axis {
	case xdm.Attribute:
		return xdm.AttributeNode
	case xdm.Namespace:
		return xdm.NamespaceNode
	default:
		return xdm.ElementNode
	}
}

// buildKindTest parses the "(" [args] ")" suffix of a kind-test keyword
// already confirmed (by buildNodeTest) to be followed by "(".
func buildKindTest(p *tdop.Parser, keyword string) (xpeval.NodeTest, error) {
	switch keyword {
	case "text":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return kindTest(xdm.TextNode), nil
	case "comment":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return kindTest(xdm.CommentNode), nil
	case "node":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return anyNodeTest(), nil
	case "element":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return kindTest(xdm.ElementNode), nil
	case "attribute":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return kindTest(xdm.AttributeNode), nil
	case "document-node":
		if err := requireKindTestParens(p, ""); err != nil {
			return nil, err
		}
		return kindTest(xdm.DocumentNode), nil
	case "processing-instruction":
		target := ""
		if err := p.Advance("("); err != nil {
			return nil, err
		}
		if p.Current().Symbol() == tdop.SymString {
			target = unquote(p.Current().Lexeme)
			if err := p.Advance(tdop.SymString); err != nil {
				return nil, err
			}
		}
		if err := p.Advance(")"); err != nil {
			return nil, err
		}
		return processingInstructionTest(target), nil
	case "schema-element", "schema-attribute":
		return buildSchemaKindTest(p, keyword)
	}
	return nil, fmt.Errorf("xpath1: buildKindTest: unhandled keyword %q", keyword)
}

// buildSchemaKindTest parses "(" QName ")" and resolves the named global
// declaration against the attached schema proxy; without a
// proxy, or for an undeclared name, the test is a static name-resolution
// error rather than a test that silently never matches.
func buildSchemaKindTest(p *tdop.Parser, keyword string) (xpeval.NodeTest, error) {
	if err := p.Advance("("); err != nil {
		return nil, err
	}
	nameTok := p.Current()
	if nameTok.Symbol() != tdop.SymName && !tdop.IsNameShaped(nameTok.Symbol()) {
		return nil, p.WrongSyntax(nameTok, "expected an element or attribute name, found %q", nameTok.Lexeme)
	}
	if err := p.Advance(); err != nil {
		return nil, err
	}
	if err := p.Advance(")"); err != nil {
		return nil, err
	}

	prefix, local := domtree.Prefix(nameTok.Lexeme), domtree.LocalName(nameTok.Lexeme)
	sc := StaticOf(p)
	if sc == nil || sc.Schema() == nil {
		return nil, xpatherr.New(xpatherr.XPST0008, nameTok.Position.Offset,
			"%s(%s) requires an attached schema", keyword, nameTok.Lexeme)
	}
	uri := ""
	if prefix != "" {
		var ok bool
		uri, ok = sc.Namespace(prefix)
		if !ok {
			return nil, xpatherr.New(xpatherr.XPST0081, nameTok.Position.Offset, "undeclared namespace prefix %q", prefix)
		}
	} else if keyword == "schema-element" {
		uri = sc.DefaultElementNamespace()
	}
	proxy := sc.Schema()
	if keyword == "schema-element" {
		if _, ok := proxy.GetElement(uri, local); !ok {
			return nil, xpatherr.New(xpatherr.XPST0008, nameTok.Position.Offset, "undeclared element %q", nameTok.Lexeme)
		}
		return func(tree *xdm.Tree, id xdm.NodeId) bool {
			return tree.Kind(id) == xdm.ElementNode && localPart(tree.Name(id)) == local && tree.NamespaceURI(id) == uri
		}, nil
	}
	if _, ok := proxy.GetAttribute(uri, local); !ok {
		return nil, xpatherr.New(xpatherr.XPST0008, nameTok.Position.Offset, "undeclared attribute %q", nameTok.Lexeme)
	}
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == xdm.AttributeNode && localPart(tree.Name(id)) == local && tree.NamespaceURI(id) == uri
	}, nil
}

// requireKindTestParens consumes "(" ")" for a kind test that takes no
// argument (text(), node(), comment(), element(), attribute(), document-node()).
func requireKindTestParens(p *tdop.Parser, _ string) error {
	if err := p.Advance("("); err != nil {
		return err
	}
	return p.Advance(")")
}

// parsePredicates consumes zero or more trailing "[expr]" predicate
// groups, used directly by step nuds; non-step primaries get their
// predicates via the generic "[" led instead (see filterExpr). The
// predicate expression tokens
// are returned so the caller can append them to its own Operands — they are
// AST edges, and checkStatic only walks Operands.
func parsePredicates(p *tdop.Parser) ([]*tdop.Token, error) {
	var preds []*tdop.Token
	for p.Current().Symbol() == "[" {
		if err := p.Advance("["); err != nil {
			return nil, err
		}
		expr, err := p.Expression(0)
		if err != nil {
			return nil, err
		}
		if err := p.Advance("]"); err != nil {
			return nil, err
		}
		preds = append(preds, expr)
	}
	return preds, nil
}

// predicateEvals wraps predicate tokens as the step's Evaluable filters.
func predicateEvals(toks []*tdop.Token) []xpeval.Evaluable {
	if len(toks) == 0 {
		return nil
	}
	out := make([]xpeval.Evaluable, len(toks))
	for i, t := range toks {
		out[i] = tokenEval{t}
	}
	return out
}
