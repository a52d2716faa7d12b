package xpathlang_test

import (
	"strings"
	"testing"

	"github.com/gogo-agent/xpathlang"
	"github.com/gogo-agent/xpathlang/domtree"
	"github.com/gogo-agent/xpathlang/schema"
)

func mustParse(t *testing.T, xml string) domtree.Document {
	t.Helper()
	doc, err := domtree.Parse(strings.NewReader(xml), domtree.DefaultBuildOptions())
	if err != nil {
		t.Fatalf("domtree.Parse(%q): %v", xml, err)
	}
	return doc
}

func tagsOf(t *testing.T, results []interface{}) []string {
	t.Helper()
	out := make([]string, len(results))
	for i, r := range results {
		n, ok := r.(domtree.Node)
		if !ok {
			t.Fatalf("result %d = %#v, want a domtree.Node", i, r)
		}
		out[i] = n.Tag()
	}
	return out
}

// TestConformanceScenarios covers the canonical end-to-end selection
// scenarios.
func TestConformanceScenarios(t *testing.T) {
	t.Run("scenario1_childWildcard", func(t *testing.T) {
		doc := mustParse(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
		got, err := xpathlang.Select(doc, "/A/B2/*")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		want := []string{"C1", "C2", "C3"}
		gotTags := tagsOf(t, got)
		if len(gotTags) != len(want) {
			t.Fatalf("got %v, want %v", gotTags, want)
		}
		for i := range want {
			if gotTags[i] != want[i] {
				t.Errorf("tag[%d] = %q, want %q", i, gotTags[i], want[i])
			}
		}
	})

	t.Run("scenario2_descendant", func(t *testing.T) {
		doc := mustParse(t, `<A><B1/><B2><C1/><C2/><C3/></B2></A>`)
		got, err := xpathlang.Select(doc, "//C2")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "C2" {
			t.Fatalf("got %v, want [C2]", gotTags)
		}
	})

	t.Run("scenario3_predicateAttribute", func(t *testing.T) {
		doc := mustParse(t, `<r><x a="10"/><x a="20"/></r>`)
		got, err := xpathlang.Select(doc, "/r/x[@a>15]/@a")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d results, want 1", len(got))
		}
		attr, ok := got[0].(domtree.Node)
		if !ok || attr.Text() != "20" {
			t.Errorf("got %#v, want attribute with value 20", got[0])
		}
	})

	t.Run("scenario4_count", func(t *testing.T) {
		doc := mustParse(t, `<r><x/><x/><x/></r>`)
		got, err := xpathlang.Select(doc, "count(/r/x)")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 1 || got[0].(float64) != 3 {
			t.Fatalf("got %v, want [3]", got)
		}
	})

	t.Run("scenario5_concat", func(t *testing.T) {
		doc := mustParse(t, `<r/>`)
		got, err := xpathlang.Select(doc, `concat("foo", " ", "bar")`)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 1 || got[0].(string) != "foo bar" {
			t.Fatalf("got %v, want [\"foo bar\"]", got)
		}
	})

	t.Run("scenario6_arithmeticTypeErrorAtParseTime", func(t *testing.T) {
		_, err := xpathlang.NewSelector(`1 + "1"`)
		if err == nil {
			t.Fatal("expected a static XPTY0004 error at parse time for 1 + \"1\"")
		}
	})

	t.Run("scenario7_lastPredicate", func(t *testing.T) {
		doc := mustParse(t, `<r><a/><b/><c/></r>`)
		got, err := xpathlang.Select(doc, "/r/*[last()]")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "c" {
			t.Fatalf("got %v, want [c]", gotTags)
		}
	})

	t.Run("scenario8_forReturn", func(t *testing.T) {
		doc := mustParse(t, `<r><a/><b/></r>`)
		got, err := xpathlang.Select(doc, "for $x in /r/* return name($x)")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 2 || got[0].(string) != "a" || got[1].(string) != "b" {
			t.Fatalf("got %v, want [a b]", got)
		}
	})
}

// TestPredicateNumericLaw exercises the numeric predicate law at the
// facade level: E[position()=k] and E[k] agree, and a non-integer
// predicate value matches nothing.
func TestPredicateNumericLaw(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/><c/><d/></r>`)

	byLiteral, err := xpathlang.Select(doc, "/r/*[4]")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	byPosition, err := xpathlang.Select(doc, "/r/*[position()=4]")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(byLiteral) != 1 || len(byPosition) != 1 {
		t.Fatalf("got %d and %d results, want 1 and 1", len(byLiteral), len(byPosition))
	}
	if tagsOf(t, byLiteral)[0] != tagsOf(t, byPosition)[0] {
		t.Errorf("E[4] = %v, E[position()=4] = %v, want equal", byLiteral, byPosition)
	}

	nonInteger, err := xpathlang.Select(doc, "/r/*[4.5]")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(nonInteger) != 0 {
		t.Errorf("E[4.5] = %v, want no matches (strict equality)", nonInteger)
	}
}

// TestDocumentOrderInvariant: union results are document-ordered and
// duplicate-free.
func TestDocumentOrderInvariant(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/><c/></r>`)
	got, err := xpathlang.Select(doc, "/r/c | /r/a | /r/b | /r/a")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []string{"a", "b", "c"}
	gotTags := tagsOf(t, got)
	if len(gotTags) != len(want) {
		t.Fatalf("got %v, want %v", gotTags, want)
	}
	for i := range want {
		if gotTags[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, gotTags[i], want[i])
		}
	}
}

// TestEmptyStringEffectiveBooleanValue locks in that the effective
// boolean value of a singleton "" is false. The node itself is a
// different story: a singleton node is always true, however empty its
// value.
func TestEmptyStringEffectiveBooleanValue(t *testing.T) {
	doc := mustParse(t, `<r a=""/>`)
	got, err := xpathlang.Select(doc, `if (string(/r/@a)) then "yes" else "no"`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0].(string) != "no" {
		t.Fatalf("got %v, want [\"no\"]", got)
	}

	asNode, err := xpathlang.Select(doc, `if (/r/@a) then "yes" else "no"`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(asNode) != 1 || asNode[0].(string) != "yes" {
		t.Fatalf("got %v, want [\"yes\"] (a singleton node is true)", asNode)
	}
}

func TestNamespaceOption(t *testing.T) {
	doc := mustParse(t, `<r xmlns:ns="http://example.com/ns"><ns:a/><b/></r>`)
	got, err := xpathlang.Select(doc, "/r/ns:a", xpathlang.WithNamespace("ns", "http://example.com/ns"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "ns:a" {
		t.Fatalf("got %v, want [ns:a]", gotTags)
	}
}

func TestVariableOption(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/></r>`)
	got, err := xpathlang.Select(doc, "/r/*[name() = $want]", xpathlang.WithVariable("want", "b"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "b" {
		t.Fatalf("got %v, want [b]", gotTags)
	}
}

func TestXPath1ModeRejectsXPath2Syntax(t *testing.T) {
	_, err := xpathlang.NewSelector("for $x in (1,2) return $x", xpathlang.WithXPath1())
	if err == nil {
		t.Fatal("expected XPath 1.0 mode to reject a FLWOR expression")
	}
}

// TestSelectorReuse: one compiled expression evaluates against multiple
// host trees.
func TestSelectorReuse(t *testing.T) {
	sel, err := xpathlang.NewSelector("/r/*")
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	doc1 := mustParse(t, `<r><a/></r>`)
	doc2 := mustParse(t, `<r><a/><b/></r>`)

	got1, err := sel.Select(doc1)
	if err != nil {
		t.Fatalf("Select(doc1): %v", err)
	}
	if len(got1) != 1 {
		t.Fatalf("Select(doc1) = %v, want 1 result", got1)
	}

	got2, err := sel.Select(doc2)
	if err != nil {
		t.Fatalf("Select(doc2): %v", err)
	}
	if len(got2) != 2 {
		t.Fatalf("Select(doc2) = %v, want 2 results", got2)
	}
}

func TestIterSelectStopsEarly(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/><c/></r>`)
	var seen []string
	for v := range xpathlang.IterSelect(doc, "/r/*") {
		n := v.(domtree.Node)
		seen = append(seen, n.Tag())
		if len(seen) == 2 {
			break
		}
	}
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("seen = %v, want [a b]", seen)
	}
}

// TestEvaluateDOMResultSurface exercises the DOM Living Standard-style
// Evaluate/Result API that sits alongside Select.
func TestEvaluateDOMResultSurface(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/><c/></r>`)
	result, err := xpathlang.Evaluate(doc, "/r/*", xpathlang.ResultOrderedNodeSnapshotType)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if n := result.SnapshotLength(); n != 3 {
		t.Fatalf("SnapshotLength = %d, want 3", n)
	}
	first, ok := result.SnapshotItem(0).(domtree.Node)
	if !ok || first.Tag() != "a" {
		t.Errorf("SnapshotItem(0) = %#v, want <a/>", result.SnapshotItem(0))
	}
}

func TestIdFunction(t *testing.T) {
	doc := mustParse(t, `<r><a id="x1"/><b id="x2"/></r>`)
	got, err := xpathlang.Select(doc, `id("x2")`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "b" {
		t.Fatalf("got %v, want [b]", gotTags)
	}
}

func TestLangFunction(t *testing.T) {
	doc := mustParse(t, `<r xml:lang="en"><a/><b xml:lang="fr"/></r>`)
	got, err := xpathlang.Select(doc, `/r/*[lang("en")]`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gotTags := tagsOf(t, got); len(gotTags) != 1 || gotTags[0] != "a" {
		t.Fatalf("got %v, want [a]", gotTags)
	}
}

func TestIfExpression(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/></r>`)
	got, err := xpathlang.Select(doc, `if (count(/r/*) > 1) then "many" else "few"`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0].(string) != "many" {
		t.Fatalf("got %v, want [\"many\"]", got)
	}
}

func TestSelectRejectsWrongRootType(t *testing.T) {
	if _, err := xpathlang.Select(42, "/r"); err == nil {
		t.Fatal("expected an error selecting against a non-domtree root")
	}
}

// TestKeywordsAreNotReserved: XPath reserves none of its operator or
// function names, so elements spelled like them still select.
func TestKeywordsAreNotReserved(t *testing.T) {
	doc := mustParse(t, `<r><counter/><count/><div/><for/><text/></r>`)
	for _, path := range []string{"/r/counter", "/r/count", "/r/div", "/r/for", "/r/text"} {
		got, err := xpathlang.Select(doc, path)
		if err != nil {
			t.Fatalf("Select(%q): %v", path, err)
		}
		if len(got) != 1 {
			t.Errorf("Select(%q) = %v, want exactly the matching element", path, got)
		}
	}
}

func TestKindTests(t *testing.T) {
	doc := mustParse(t, `<r>hello<!--note--><?pi data?><x/></r>`)

	got, err := xpathlang.Select(doc, "string(/r/text())")
	if err != nil {
		t.Fatalf("Select text(): %v", err)
	}
	if len(got) != 1 || got[0].(string) != "hello" {
		t.Errorf("string(/r/text()) = %v, want [hello]", got)
	}

	got, err = xpathlang.Select(doc, "count(/r/comment())")
	if err != nil {
		t.Fatalf("Select comment(): %v", err)
	}
	if len(got) != 1 || got[0].(float64) != 1 {
		t.Errorf("count(/r/comment()) = %v, want [1]", got)
	}

	got, err = xpathlang.Select(doc, `count(/r/processing-instruction("pi"))`)
	if err != nil {
		t.Fatalf("Select processing-instruction: %v", err)
	}
	if len(got) != 1 || got[0].(float64) != 1 {
		t.Errorf("count(processing-instruction) = %v, want [1]", got)
	}

	got, err = xpathlang.Select(doc, "count(/r/node())")
	if err != nil {
		t.Fatalf("Select node(): %v", err)
	}
	if len(got) != 1 || got[0].(float64) != 4 {
		t.Errorf("count(/r/node()) = %v, want [4]", got)
	}
}

func TestTopLevelCommentsKeepDocumentOrder(t *testing.T) {
	doc := mustParse(t, `<!--pre--><r/><!--post-->`)

	got, err := xpathlang.Select(doc, "count(/node())")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].(float64) != 3 {
		t.Fatalf("count(/node()) = %v, want 3 (two comments plus the root element)", got)
	}

	pre, err := xpathlang.Select(doc, "count(/r/preceding::comment())")
	if err != nil {
		t.Fatalf("Select preceding: %v", err)
	}
	post, err := xpathlang.Select(doc, "count(/r/following::comment())")
	if err != nil {
		t.Fatalf("Select following: %v", err)
	}
	if pre[0].(float64) != 1 || post[0].(float64) != 1 {
		t.Errorf("preceding = %v, following = %v, want one comment on each side", pre, post)
	}
}

func TestSetOperators(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/><c/></r>`)

	got, err := xpathlang.Select(doc, "/r/a union /r/b")
	if err != nil {
		t.Fatalf("union: %v", err)
	}
	if tags := tagsOf(t, got); len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("union = %v, want [a b]", tags)
	}

	got, err = xpathlang.Select(doc, "/r/* intersect /r/b")
	if err != nil {
		t.Fatalf("intersect: %v", err)
	}
	if tags := tagsOf(t, got); len(tags) != 1 || tags[0] != "b" {
		t.Errorf("intersect = %v, want [b]", tags)
	}

	got, err = xpathlang.Select(doc, "/r/* except /r/b")
	if err != nil {
		t.Fatalf("except: %v", err)
	}
	if tags := tagsOf(t, got); len(tags) != 2 || tags[0] != "a" || tags[1] != "c" {
		t.Errorf("except = %v, want [a c]", tags)
	}
}

func TestXPath2Operators(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/></r>`)

	cases := []struct {
		path string
		want interface{}
	}{
		{"7 idiv 2", float64(3)},
		{"-7 idiv 2", float64(-3)},
		{"count(1 to 4)", float64(4)},
		{`"a" eq "a"`, true},
		{"1 lt 2", true},
		{"3 ne 3", false},
		{"5 instance of xs:integer", true},
		{`"x" instance of xs:integer`, false},
		{`"1.5" castable as xs:double`, true},
		{`"abc" castable as xs:double`, false},
		{`"2" cast as xs:double`, float64(2)},
	}
	for _, c := range cases {
		got, err := xpathlang.Select(doc, c.path)
		if err != nil {
			t.Errorf("Select(%q): %v", c.path, err)
			continue
		}
		if len(got) != 1 || got[0] != c.want {
			t.Errorf("Select(%q) = %v, want [%v]", c.path, got, c.want)
		}
	}
}

func TestNodeComparisons(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/></r>`)

	got, err := xpathlang.Select(doc, "/r/a is /r/a")
	if err != nil {
		t.Fatalf("is: %v", err)
	}
	if got[0] != true {
		t.Errorf("/r/a is /r/a = %v, want true", got)
	}

	got, err = xpathlang.Select(doc, "/r/a << /r/b")
	if err != nil {
		t.Fatalf("<<: %v", err)
	}
	if got[0] != true {
		t.Errorf("/r/a << /r/b = %v, want true", got)
	}

	got, err = xpathlang.Select(doc, "/r/a >> /r/b")
	if err != nil {
		t.Fatalf(">>: %v", err)
	}
	if got[0] != false {
		t.Errorf("/r/a >> /r/b = %v, want false", got)
	}
}

func TestQuantifiedExpressions(t *testing.T) {
	doc := mustParse(t, `<r><x a="1"/><x a="2"/></r>`)

	got, err := xpathlang.Select(doc, `some $x in /r/x satisfies $x/@a = "2"`)
	if err != nil {
		t.Fatalf("some: %v", err)
	}
	if got[0] != true {
		t.Errorf("some = %v, want true", got)
	}

	got, err = xpathlang.Select(doc, `every $x in /r/x satisfies $x/@a = "2"`)
	if err != nil {
		t.Fatalf("every: %v", err)
	}
	if got[0] != false {
		t.Errorf("every = %v, want false", got)
	}
}

func TestSequenceFilter(t *testing.T) {
	doc := mustParse(t, `<r/>`)
	got, err := xpathlang.Select(doc, "(1, 2, 3)[2]")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0].(float64) != 2 {
		t.Fatalf("(1,2,3)[2] = %v, want [2]", got)
	}
}

// TestCompiledExpressionsNotSharedAcrossNamespaces: name tests resolve
// their prefix at parse time, so two selectors with the same path text but
// different bindings must compile separately.
func TestCompiledExpressionsNotSharedAcrossNamespaces(t *testing.T) {
	doc := mustParse(t, `<r xmlns:one="urn:one" xmlns:two="urn:two"><one:x/><two:x/></r>`)

	gotOne, err := xpathlang.Select(doc, "/r/p:x", xpathlang.WithNamespace("p", "urn:one"))
	if err != nil {
		t.Fatalf("Select(urn:one): %v", err)
	}
	gotTwo, err := xpathlang.Select(doc, "/r/p:x", xpathlang.WithNamespace("p", "urn:two"))
	if err != nil {
		t.Fatalf("Select(urn:two): %v", err)
	}
	if tags := tagsOf(t, gotOne); len(tags) != 1 || tags[0] != "one:x" {
		t.Errorf("Select(urn:one) = %v, want [one:x]", tags)
	}
	if tags := tagsOf(t, gotTwo); len(tags) != 1 || tags[0] != "two:x" {
		t.Errorf("Select(urn:two) = %v, want [two:x]", tags)
	}
}

// TestPathRoundTrip: the canonical source of a compiled expression
// re-compiles to an equivalent selector, and the canonical form is a
// fixed point.
func TestPathRoundTrip(t *testing.T) {
	doc := mustParse(t, `<r><a/><b/></r>`)
	sel, err := xpathlang.NewSelector("  /r/* ")
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	again, err := xpathlang.NewSelector(sel.Path())
	if err != nil {
		t.Fatalf("NewSelector(Path()): %v", err)
	}
	if again.Path() != sel.Path() {
		t.Errorf("Path() not a fixed point: %q then %q", sel.Path(), again.Path())
	}
	got1, err := sel.Select(doc)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got2, err := again.Select(doc)
	if err != nil {
		t.Fatalf("Select (round-tripped): %v", err)
	}
	if len(got1) != len(got2) {
		t.Errorf("round-tripped selector returned %d results, want %d", len(got2), len(got1))
	}
}

func TestUndeclaredPrefixIsStaticError(t *testing.T) {
	if _, err := xpathlang.NewSelector("/r/nope:x"); err == nil {
		t.Fatal("expected XPST0081 for an undeclared namespace prefix")
	}
}

// TestWildcardNameTestForms covers the two wildcard name-test spellings
// beyond a bare "*": ns:* (any name in one namespace) and *:local (one
// local name in any namespace), on both the child and attribute axes.
func TestWildcardNameTestForms(t *testing.T) {
	doc := mustParse(t, `<r xmlns:a="urn:one" xmlns:b="urn:two"><a:x/><a:y/><b:x/><plain/></r>`)

	nsStar, err := xpathlang.Select(doc, "/r/p:*", xpathlang.WithNamespace("p", "urn:one"))
	if err != nil {
		t.Fatalf("Select(/r/p:*): %v", err)
	}
	if tags := tagsOf(t, nsStar); len(tags) != 2 || tags[0] != "a:x" || tags[1] != "a:y" {
		t.Errorf("/r/p:* = %v, want [a:x a:y]", tags)
	}

	starLocal, err := xpathlang.Select(doc, "/r/*:x")
	if err != nil {
		t.Fatalf("Select(/r/*:x): %v", err)
	}
	if tags := tagsOf(t, starLocal); len(tags) != 2 || tags[0] != "a:x" || tags[1] != "b:x" {
		t.Errorf("/r/*:x = %v, want [a:x b:x]", tags)
	}

	attrDoc := mustParse(t, `<r xmlns:a="urn:one"><x a:id="1" name="n"/></r>`)
	attrs, err := xpathlang.Select(attrDoc, "/r/x/@p:*", xpathlang.WithNamespace("p", "urn:one"))
	if err != nil {
		t.Fatalf("Select(@p:*): %v", err)
	}
	if len(attrs) != 1 || attrs[0].(domtree.Node).Text() != "1" {
		t.Errorf("@p:* = %v, want the one attribute in urn:one", attrs)
	}

	nsAxis, err := xpathlang.Select(doc, "count(/r/namespace::a)")
	if err != nil {
		t.Fatalf("Select(namespace::a): %v", err)
	}
	if nsAxis[0].(float64) != 1 {
		t.Errorf("count(/r/namespace::a) = %v, want 1", nsAxis)
	}
}

// TestStringRelationalComparison: general and value comparisons order two
// strings by code-point order; XPath 1.0 mode keeps 1.0's numeric
// coercion, under which non-numeric strings never compare true.
func TestStringRelationalComparison(t *testing.T) {
	doc := mustParse(t, `<r/>`)

	cases := []struct {
		path string
		want bool
	}{
		{`"abc" < "abd"`, true},
		{`"abd" <= "abc"`, false},
		{`"b" > "a"`, true},
		{`"10" < "9"`, true}, // both strings: code-point order, not numeric
		{`"abc" lt "abd"`, true},
		{`"b" ge "b"`, true},
		{`1 < "2"`, true}, // mixed: numeric coercion
	}
	for _, c := range cases {
		got, err := xpathlang.Select(doc, c.path)
		if err != nil {
			t.Errorf("Select(%q): %v", c.path, err)
			continue
		}
		if len(got) != 1 || got[0] != c.want {
			t.Errorf("Select(%q) = %v, want [%v]", c.path, got, c.want)
		}
	}

	compat, err := xpathlang.Select(doc, `"abc" < "abd"`, xpathlang.WithXPath1())
	if err != nil {
		t.Fatalf("Select (1.0 mode): %v", err)
	}
	if compat[0] != false {
		t.Errorf(`1.0 mode "abc" < "abd" = %v, want false (NaN comparison)`, compat)
	}
}

// TestNameTestSelectsPrincipalKindOnly: child::x must not match a
// processing instruction whose target happens to be x.
func TestNameTestSelectsPrincipalKindOnly(t *testing.T) {
	doc := mustParse(t, `<r><?x data?><x/></r>`)
	got, err := xpathlang.Select(doc, "/r/x")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0].(domtree.Node).Kind() != domtree.ElementKind {
		t.Fatalf("/r/x = %v, want only the element", got)
	}
}

// fakeSchema declares a single global element "item", enough to drive the
// schema-element() kind test through the schema.Proxy seam.
type fakeSchema struct{}

func (fakeSchema) GetType(namespace, localName string) (schema.Type, bool) {
	return schema.Type{}, false
}

func (fakeSchema) GetAttribute(namespace, localName string) (schema.Attribute, bool) {
	return schema.Attribute{}, false
}

func (fakeSchema) GetElement(namespace, localName string) (schema.Element, bool) {
	if localName == "item" {
		return schema.Element{Name: "item"}, true
	}
	return schema.Element{}, false
}

func (fakeSchema) IsInstance(value interface{}, fromType, toType schema.Type) bool { return false }

func (fakeSchema) CastAs(value interface{}, toType schema.Type) (interface{}, error) {
	return value, nil
}

func (fakeSchema) IterAtomicTypes() []schema.Type { return nil }

func (fakeSchema) GetPrimitiveType(t schema.Type) schema.Type { return t }

func (fakeSchema) BindParser(p schema.ParserBinder) {}

func TestSchemaElementKindTest(t *testing.T) {
	doc := mustParse(t, `<r><item/><other/><item/></r>`)

	got, err := xpathlang.Select(doc, "//schema-element(item)", xpathlang.WithSchema(fakeSchema{}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if tags := tagsOf(t, got); len(tags) != 2 || tags[0] != "item" || tags[1] != "item" {
		t.Errorf("schema-element(item) = %v, want both <item/> elements", tags)
	}

	if _, err := xpathlang.Select(doc, "//schema-element(undeclared)", xpathlang.WithSchema(fakeSchema{})); err == nil {
		t.Error("expected XPST0008 for an undeclared element name")
	}
	if _, err := xpathlang.Select(doc, "//schema-element(item)"); err == nil {
		t.Error("expected XPST0008 without an attached schema")
	}
}
