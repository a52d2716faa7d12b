package xdm

import (
	"strings"
	"testing"

	"github.com/gogo-agent/xpathlang/domtree"
)

func parseTree(t *testing.T, xml string) *Tree {
	t.Helper()
	doc, err := domtree.Parse(strings.NewReader(xml), domtree.DefaultBuildOptions())
	if err != nil {
		t.Fatalf("domtree.Parse: %v", err)
	}
	return BuildNodeTree(doc)
}

func tags(tr *Tree, ids []NodeId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = tr.Name(id)
	}
	return out
}

func collect(tr *Tree, id NodeId, axis Axis) []NodeId {
	var out []NodeId
	tr.Iterate(id, axis, func(n NodeId) bool {
		out = append(out, n)
		return true
	})
	return out
}

func TestChildAxisScenario1(t *testing.T) {
	tr := parseTree(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
	root := tr.Root()
	a := tr.arena[root].children[0] // document's single child: element A
	b2 := tr.arena[a].children[1]
	got := tags(tr, collect(tr, b2, Child))
	want := []string{"C1", "C2", "C3"}
	if len(got) != len(want) {
		t.Fatalf("children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("children[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDocumentOrderStrictlyIncreasing(t *testing.T) {
	tr := parseTree(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
	var last = -1
	for i := range tr.arena {
		if tr.Position(NodeId(i)) <= last {
			t.Fatalf("position at %d not strictly increasing: %d <= %d", i, tr.Position(NodeId(i)), last)
		}
		last = tr.Position(NodeId(i))
	}
}

func TestAxisSelfRoundTrip(t *testing.T) {
	// child::* ∘ parent:: returns {N} for every element child of N.
	tr := parseTree(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
	root := tr.Root()
	a := tr.arena[root].children[0]
	for _, child := range collect(tr, a, Child) {
		if tr.Kind(child) != ElementNode {
			continue
		}
		parents := collect(tr, child, Parent)
		if len(parents) != 1 || parents[0] != a {
			t.Errorf("parent:: of child %v = %v, want [%v]", child, parents, a)
		}
	}
}

func TestAttributeAxisExcludedFromChild(t *testing.T) {
	tr := parseTree(t, `<r><x a="10"/></r>`)
	root := tr.Root()
	r := tr.arena[root].children[0]
	x := tr.arena[r].children[0]
	if kids := collect(tr, x, Child); len(kids) != 0 {
		t.Fatalf("child:: of <x a=.../> = %v, want none (attribute is not a child)", kids)
	}
	attrs := collect(tr, x, Attribute)
	if len(attrs) != 1 || tr.Name(attrs[0]) != "a" || tr.StringValue(attrs[0]) != "10" {
		t.Fatalf("attribute:: = %v", attrs)
	}
}
