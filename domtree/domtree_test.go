package domtree

import (
	"strings"
	"testing"
)

func TestParseBuildsElementTree(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<A><B1/><B2><C1/><C2/><C3/></B2></A>`), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := doc.Root()
	if root.Tag() != "A" {
		t.Fatalf("root tag = %q, want A", root.Tag())
	}
	if len(root.Children()) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children()))
	}
	b2 := root.Children()[1]
	if b2.Tag() != "B2" || len(b2.Children()) != 3 {
		t.Fatalf("B2 = %+v", b2)
	}
	for i, want := range []string{"C1", "C2", "C3"} {
		if got := b2.Children()[i].Tag(); got != want {
			t.Errorf("B2 child %d = %q, want %q", i, got, want)
		}
	}
}

func TestParseTailText(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<r><a/>tail text<b/></r>`), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a := doc.Root().Children()[0]
	if a.Tail() != "tail text" {
		t.Errorf("tail = %q, want %q", a.Tail(), "tail text")
	}
}

func TestAttributeNodes(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<x a="10" b="20"/>`), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	attrs := AttributeNodes(doc.Root())
	if len(attrs) != 2 {
		t.Fatalf("attrs = %d, want 2", len(attrs))
	}
	if attrs[0].Tag() != "a" || attrs[0].Text() != "10" {
		t.Errorf("attrs[0] = %+v", attrs[0])
	}
}

func TestParseTopLevelOrder(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<!--pre--><r/><!--post-->`), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top := doc.TopLevel()
	if len(top) != 3 {
		t.Fatalf("TopLevel = %d nodes, want 3", len(top))
	}
	if top[0].Kind() != CommentKind || top[1] != doc.Root() || top[2].Kind() != CommentKind {
		t.Errorf("TopLevel order = [%v %v %v], want [comment root comment]",
			top[0].Kind(), top[1].Kind(), top[2].Kind())
	}
	if top[0].Text() != "pre" || top[2].Text() != "post" {
		t.Errorf("comments = %q, %q, want pre, post", top[0].Text(), top[2].Text())
	}
}

func TestLocalNameAndPrefix(t *testing.T) {
	if got := LocalName("ns:local"); got != "local" {
		t.Errorf("LocalName = %q", got)
	}
	if got := Prefix("ns:local"); got != "ns" {
		t.Errorf("Prefix = %q", got)
	}
	if got := LocalName("local"); got != "local" {
		t.Errorf("LocalName no prefix = %q", got)
	}
}
