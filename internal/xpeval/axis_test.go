package xpeval

import (
	"strings"
	"testing"

	"github.com/gogo-agent/xpathlang/domtree"
	"github.com/gogo-agent/xpathlang/internal/xdm"
)

func buildTestTree(t *testing.T, xml string) *xdm.Tree {
	t.Helper()
	doc, err := domtree.Parse(strings.NewReader(xml), domtree.DefaultBuildOptions())
	if err != nil {
		t.Fatalf("domtree.Parse: %v", err)
	}
	return xdm.BuildNodeTree(doc)
}

func elementTest(name string) NodeTest {
	return func(tree *xdm.Tree, id xdm.NodeId) bool {
		return tree.Kind(id) == xdm.ElementNode && (name == "*" || tree.Name(id) == name)
	}
}

// TestAxisSelfTest checks the axis round-trip at the step-evaluation layer:
// child::* then parent:: returns exactly the original element for every
// element child.
func TestAxisSelfTest(t *testing.T) {
	tree := buildTestTree(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
	ctx := NewDynamic(tree, nil, NodeItemOf(tree, tree.Root()))

	docSeq := Sequence{NodeItemOf(tree, tree.Root())}
	children, err := EvalStep(ctx, docSeq, xdm.Child, elementTest("*"), nil)
	if err != nil {
		t.Fatalf("EvalStep child::*: %v", err)
	}
	a := children[0]

	grandchildren, err := EvalStep(ctx, Sequence{a}, xdm.Child, elementTest("*"), nil)
	if err != nil {
		t.Fatalf("EvalStep child::* of A: %v", err)
	}
	for _, gc := range grandchildren {
		parents, err := EvalStep(ctx, Sequence{gc}, xdm.Parent, nil, nil)
		if err != nil {
			t.Fatalf("EvalStep parent:: : %v", err)
		}
		if len(parents) != 1 || parents[0].Node != a.Node {
			t.Errorf("parent:: of %v = %v, want [%v]", gc, parents, a)
		}
	}
}

// TestPredicatePositionLaw: E[position()=k] ≡
// E[k] at the step-evaluation layer.
func TestPredicatePositionLaw(t *testing.T) {
	tree := buildTestTree(t, `<r><a/><b/><c/></r>`)
	ctx := NewDynamic(tree, nil, NodeItemOf(tree, tree.Root()))

	literalThird := []Evaluable{EvalFunc(func(ctx *Context) (Sequence, error) {
		return Sequence{NumberItemOf(3)}, nil
	})}
	positionThird := []Evaluable{EvalFunc(func(ctx *Context) (Sequence, error) {
		return Sequence{BooleanItemOf(ctx.Focus.Position == 3)}, nil
	})}

	root := Sequence{NodeItemOf(tree, tree.Root())}
	rChildren, err := EvalStep(ctx, root, xdm.Child, elementTest("*"), nil)
	if err != nil {
		t.Fatalf("EvalStep child::*: %v", err)
	}
	rElem := Sequence{rChildren[0]}

	byLiteral, err := EvalStep(ctx, rElem, xdm.Child, elementTest("*"), literalThird)
	if err != nil {
		t.Fatalf("EvalStep with [3]: %v", err)
	}
	byPosition, err := EvalStep(ctx, rElem, xdm.Child, elementTest("*"), positionThird)
	if err != nil {
		t.Fatalf("EvalStep with [position()=3]: %v", err)
	}
	if len(byLiteral) != 1 || len(byPosition) != 1 || byLiteral[0].Node != byPosition[0].Node {
		t.Fatalf("E[3] = %v, E[position()=3] = %v, want equal singletons", byLiteral, byPosition)
	}
	if tree.Name(byLiteral[0].Node) != "c" {
		t.Errorf("E[3] matched %q, want \"c\"", tree.Name(byLiteral[0].Node))
	}
}

// TestDocumentOrderAtStepOutput checks document ordering on a
// reverse axis: preceding-sibling:: is walked in reverse document order
// internally but EvalStep must still hand back document order.
func TestDocumentOrderAtStepOutput(t *testing.T) {
	tree := buildTestTree(t, `<r><a/><b/><c/></r>`)
	ctx := NewDynamic(tree, nil, NodeItemOf(tree, tree.Root()))
	root := Sequence{NodeItemOf(tree, tree.Root())}
	rChildren, _ := EvalStep(ctx, root, xdm.Child, elementTest("*"), nil)
	cNodes, _ := EvalStep(ctx, Sequence{rChildren[0]}, xdm.Child, elementTest("c"), nil)

	preceding, err := EvalStep(ctx, cNodes, xdm.PrecedingSibling, elementTest("*"), nil)
	if err != nil {
		t.Fatalf("EvalStep preceding-sibling::*: %v", err)
	}
	if len(preceding) != 2 {
		t.Fatalf("preceding-sibling::* of c = %v, want 2 nodes", preceding)
	}
	if !tree.Precedes(preceding[0].Node, preceding[1].Node) {
		t.Errorf("preceding-sibling::* result %v is not in document order", preceding)
	}
}
