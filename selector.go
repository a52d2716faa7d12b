// Package xpathlang is the selector facade: Select, IterSelect, and a
// reusable Selector tie the parser, node model, and evaluator together
// over a host domtree.Document/domtree.Node, as the one exported surface
// a caller actually touches.
package xpathlang

import (
	"sort"
	"strings"
	"sync"

	lru "github.com/golang/groupcache/lru"

	"github.com/gogo-agent/xpathlang/domtree"
	"github.com/gogo-agent/xpathlang/internal/statictx"
	"github.com/gogo-agent/xpathlang/internal/tdop"
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/internal/xpath1"
	"github.com/gogo-agent/xpathlang/internal/xpath2"
	"github.com/gogo-agent/xpathlang/internal/xpeval"
	"github.com/gogo-agent/xpathlang/schema"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// Option configures a Selector in the functional-options style.
type Option func(*config)

type config struct {
	namespaces  map[string]string
	defaultElem string
	defaultFunc string
	schema      schema.Proxy
	variables   map[string]xpeval.Sequence
	xpath1      bool
	elementTree bool
	item        domtree.Node
}

// WithNamespace declares a prefix->URI binding in the static context.
func WithNamespace(prefix, uri string) Option {
	return func(c *config) { c.namespaces[prefix] = uri }
}

// WithDefaultElementNamespace sets the XPath 2.0+ default element namespace.
func WithDefaultElementNamespace(uri string) Option {
	return func(c *config) { c.defaultElem = uri }
}

// WithDefaultFunctionNamespace sets the XPath 2.0+ default function namespace.
func WithDefaultFunctionNamespace(uri string) Option {
	return func(c *config) { c.defaultFunc = uri }
}

// WithSchema attaches a schema proxy.
func WithSchema(p schema.Proxy) Option {
	return func(c *config) { c.schema = p }
}

// WithVariable binds a variable the dynamic context exposes to $name
// references. Accepted value types are string, float64, int, bool, or an
// xpeval.Sequence for a pre-built multi-item binding; any other value
// binds the empty sequence.
func WithVariable(name string, value interface{}) Option {
	return func(c *config) { c.variables[name] = toSequence(value) }
}

// WithXPath1 compiles the expression against the XPath 1.0 grammar only
// (internal/xpath1), instead of the default XPath 2.0 superset
// (internal/xpath2).
func WithXPath1() Option {
	return func(c *config) { c.xpath1 = true }
}

// WithElementTreeSemantics builds the node tree with xdm.BuildNodeTree
// (tails dropped) instead of the default xdm.BuildLxmlNodeTree (tails
// preserved as sibling text).
func WithElementTreeSemantics() Option {
	return func(c *config) { c.elementTree = true }
}

// WithContextItem evaluates the path relative to item instead of the
// document root.
func WithContextItem(item domtree.Node) Option {
	return func(c *config) { c.item = item }
}

func toSequence(value interface{}) xpeval.Sequence {
	switch v := value.(type) {
	case xpeval.Sequence:
		return v
	case string:
		return xpeval.Sequence{xpeval.StringItemOf(v)}
	case float64:
		return xpeval.Sequence{xpeval.NumberItemOf(v)}
	case int:
		return xpeval.Sequence{xpeval.NumberItemOf(float64(v))}
	case bool:
		return xpeval.Sequence{xpeval.BooleanItemOf(v)}
	default:
		return nil
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		namespaces: map[string]string{},
		variables:  map[string]xpeval.Sequence{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *config) staticContext() *statictx.Context {
	sc := statictx.New()
	for prefix, uri := range c.namespaces {
		sc.DeclareNamespace(prefix, uri)
	}
	if c.defaultElem != "" {
		sc.SetDefaultElementNamespace(c.defaultElem)
	}
	if c.defaultFunc != "" {
		sc.SetDefaultFunctionNamespace(c.defaultFunc)
	}
	if c.schema != nil {
		sc.SetSchema(c.schema, nil)
	}
	// The XPath 1.0 grammar keeps XPath 1.0 comparison semantics:
	// relational general comparisons coerce both operands numerically.
	sc.CompatibilityMode = c.xpath1
	return sc
}

// --- compiled-expression cache ---

var (
	compileCacheMu sync.RWMutex
	compileCache   = lru.New(1000)
)

// compileKey identifies one compiled AST. Name tests resolve their prefix
// against the static context at parse time (nodetest.go's resolveNameTest
// bakes the URI into the AST), so the key carries the namespace bindings
// and default namespaces alongside the source text — two selectors sharing
// an expression but not its bindings must not share an AST.
type compileKey struct {
	path      string
	xpath1    bool
	staticSig string
}

// staticSignature canonicalizes the parse-time-relevant static context
// configuration for use in compileKey.
func (c *config) staticSignature() string {
	prefixes := make([]string, 0, len(c.namespaces))
	for p := range c.namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	var b strings.Builder
	for _, p := range prefixes {
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(c.namespaces[p])
		b.WriteByte('\n')
	}
	b.WriteString(c.defaultElem)
	b.WriteByte('\n')
	b.WriteString(c.defaultFunc)
	return b.String()
}

// compile parses path against sc, memoizing the result. Schema-aware
// parses bypass the cache: a schema.Proxy has no stable identity to key on,
// and schema-element()/schema-attribute() tests resolve against it at
// parse time.
func compile(path string, cfg *config, sc *statictx.Context) (*tdop.Token, error) {
	cacheable := cfg.schema == nil
	key := compileKey{path: path, xpath1: cfg.xpath1, staticSig: cfg.staticSignature()}

	if cacheable {
		compileCacheMu.RLock()
		cached, ok := compileCache.Get(key)
		compileCacheMu.RUnlock()
		if ok {
			return cached.(*tdop.Token), nil
		}
	}

	var root *tdop.Token
	var err error
	if cfg.xpath1 {
		root, err = xpath1.Parse(sc, path)
	} else {
		root, err = xpath2.Parse(sc, path)
	}
	if err != nil {
		return nil, err
	}

	if cacheable {
		compileCacheMu.Lock()
		compileCache.Add(key, root)
		compileCacheMu.Unlock()
	}
	return root, nil
}

// Selector is a pre-parsed, reusable XPath expression.
type Selector struct {
	path string
	cfg  *config
	sc   *statictx.Context
	root *tdop.Token
}

// Path returns the canonical source text of the compiled expression:
// re-compiling Path() yields an equivalent Selector.
func (s *Selector) Path() string { return s.root.Source }

// NewSelector compiles path once, ready for repeated Select/IterSelect
// calls against different host trees.
func NewSelector(path string, opts ...Option) (*Selector, error) {
	cfg := newConfig(opts)
	sc := cfg.staticContext()
	root, err := compile(path, cfg, sc)
	if err != nil {
		return nil, err
	}
	return &Selector{path: path, cfg: cfg, sc: sc, root: root}, nil
}

// buildTree builds (or reuses) the XDM tree and resolves the context item
// for root, per cfg's tail-text policy and WithContextItem override.
func (s *Selector) buildTree(root interface{}) (*xdm.Tree, xdm.NodeId, error) {
	doc, err := asDocument(root)
	if err != nil {
		return nil, xdm.NoNode, err
	}
	var tree *xdm.Tree
	if s.cfg.elementTree {
		tree = xdm.BuildNodeTree(doc)
	} else {
		tree = xdm.BuildLxmlNodeTree(doc)
	}
	itemId := tree.Root()
	if s.cfg.item != nil {
		if id, ok := findHost(tree, s.cfg.item); ok {
			itemId = id
		}
	}
	return tree, itemId, nil
}

// asDocument adapts root (a domtree.Document or a single domtree.Node) into
// a domtree.Document, wrapping a bare node in a single-element document.
func asDocument(root interface{}) (domtree.Document, error) {
	switch r := root.(type) {
	case domtree.Document:
		return r, nil
	case domtree.Node:
		return domtree.NewDocument(r), nil
	default:
		return nil, xpatherr.Static(xpatherr.XPDY0002, "select: root must be a domtree.Document or domtree.Node, got %T", root)
	}
}

// findHost locates the NodeId in tree backed by host, by identity, via a
// pre-order walk; used only for the (uncommon) WithContextItem override.
func findHost(tree *xdm.Tree, host domtree.Node) (xdm.NodeId, bool) {
	var found xdm.NodeId = xdm.NoNode
	var walk func(xdm.NodeId)
	walk = func(id xdm.NodeId) {
		if found != xdm.NoNode {
			return
		}
		if tree.Host(id) == host {
			found = id
			return
		}
		tree.Iterate(id, xdm.Child, func(c xdm.NodeId) bool {
			walk(c)
			return found == xdm.NoNode
		})
	}
	walk(tree.Root())
	return found, found != xdm.NoNode
}

func (s *Selector) dynamicContext(tree *xdm.Tree, itemId xdm.NodeId) *xpeval.Context {
	ctx := xpeval.NewDynamic(tree, s.sc, xpeval.NodeItemOf(tree, itemId))
	for name, value := range s.cfg.variables {
		ctx.BindVariable(name, value)
	}
	return ctx
}

// Select evaluates the compiled expression against root and returns the
// unwrapped result sequence: node items become domtree.Node
// values (or XDMNode, when no host node backs them), atomic items become
// string/float64/bool.
func (s *Selector) Select(root interface{}) ([]interface{}, error) {
	tree, itemId, err := s.buildTree(root)
	if err != nil {
		return nil, err
	}
	ctx := s.dynamicContext(tree, itemId)
	seq, err := evalRoot(s.root, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(seq))
	for i, it := range seq {
		out[i] = unwrapItem(it)
	}
	return out, nil
}

// IterSelect returns the result sequence as a range-over-func iterator:
// `for v := range sel.IterSelect(root) { ... }`. The whole result is
// evaluated before the first value is yielded; an evaluation error yields
// no values.
func (s *Selector) IterSelect(root interface{}) func(func(interface{}) bool) {
	return func(yield func(interface{}) bool) {
		results, err := s.Select(root)
		if err != nil {
			return
		}
		for _, v := range results {
			if !yield(v) {
				return
			}
		}
	}
}

func evalRoot(root *tdop.Token, ctx *xpeval.Context) (xpeval.Sequence, error) {
	ev, ok := root.Data.(xpeval.Evaluable)
	if !ok {
		return nil, xpatherr.Static(xpatherr.XPST0003, "select: compiled expression has no evaluator")
	}
	return ev.Eval(ctx)
}

// unwrapItem converts one result Item back to a plain Go value.
func unwrapItem(it xpeval.Item) interface{} {
	switch it.Kind {
	case xpeval.NodeItem:
		if host := it.Tree.Host(it.Node); host != nil {
			return host
		}
		// The document node and namespace nodes have no domtree.Node
		// representation; expose the
		// raw XDM handle instead of silently dropping the result.
		return XDMNode{Tree: it.Tree, ID: it.Node}
	case xpeval.StringItem:
		return it.Str
	case xpeval.NumberItem:
		return it.Num
	case xpeval.BooleanItem:
		return it.Bool
	default:
		return nil
	}
}

// XDMNode is the fallback result shape for a node Item that unwrapItem could
// not resolve to a domtree.Node (the document node and namespace nodes,
// which internal/xdm builds with no backing host object).
type XDMNode struct {
	Tree *xdm.Tree
	ID   xdm.NodeId
}

// Select parses path (or reuses the compiled-expression cache) and evaluates
// it against root in one call.
func Select(root interface{}, path string, opts ...Option) ([]interface{}, error) {
	sel, err := NewSelector(path, opts...)
	if err != nil {
		return nil, err
	}
	return sel.Select(root)
}

// IterSelect parses path and iterates over its result against root, as
// (*Selector).IterSelect does; a parse error yields no values.
func IterSelect(root interface{}, path string, opts ...Option) func(func(interface{}) bool) {
	sel, err := NewSelector(path, opts...)
	if err != nil {
		return func(func(interface{}) bool) {}
	}
	return sel.IterSelect(root)
}

// --- DOM Living Standard Evaluate/CreateExpression/XPathResult surface ---

// Result type constants mirroring the DOM Living Standard XPathResult
// XPATH_*_TYPE constants, trimmed to the shapes this engine's Sequence
// model can actually produce.
const (
	ResultAnyType uint16 = iota
	ResultNumberType
	ResultStringType
	ResultBooleanType
	ResultUnorderedNodeIteratorType
	ResultOrderedNodeIteratorType
	ResultUnorderedNodeSnapshotType
	ResultOrderedNodeSnapshotType
	ResultFirstOrderedNodeType
)

// Result is this engine's XPathResult: a materialized sequence plus the
// requested result-type coercion and iterator/snapshot state.
type Result struct {
	seq        xpeval.Sequence
	resultType uint16
	iterPos    int
}

func newResult(seq xpeval.Sequence, resultType uint16) *Result {
	if resultType == ResultOrderedNodeIteratorType || resultType == ResultOrderedNodeSnapshotType {
		seq = orderSeq(seq)
	}
	return &Result{seq: seq, resultType: resultType}
}

func orderSeq(seq xpeval.Sequence) xpeval.Sequence {
	var tree *xdm.Tree
	for _, it := range seq {
		if it.Kind == xpeval.NodeItem {
			tree = it.Tree
			break
		}
	}
	if tree == nil {
		return seq
	}
	sorted := append(xpeval.Sequence{}, seq...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind != xpeval.NodeItem || b.Kind != xpeval.NodeItem {
			return false
		}
		return a.Tree.Precedes(a.Node, b.Node)
	})
	return sorted
}

// ResultType reports the requested coercion for this Result.
func (r *Result) ResultType() uint16 { return r.resultType }

// NumberValue coerces the whole result sequence via XPath number().
func (r *Result) NumberValue() float64 { return xpeval.NumberValue(firstAtom(r.seq)) }

// StringValue coerces the whole result sequence via XPath string().
func (r *Result) StringValue() string { return xpeval.StringValue(firstAtom(r.seq)) }

// BooleanValue computes the effective boolean value of the result sequence.
func (r *Result) BooleanValue() (bool, error) { return xpeval.EffectiveBooleanValue(r.seq) }

// SingleNodeValue returns the first node result, or nil if the sequence is
// empty or its first item is not a node.
func (r *Result) SingleNodeValue() interface{} {
	if len(r.seq) == 0 || r.seq[0].Kind != xpeval.NodeItem {
		return nil
	}
	return unwrapItem(r.seq[0])
}

// InvalidIteratorState always reports false: this engine materializes the
// full sequence up front rather than lazily invalidating on tree mutation
// (domtree trees are read-only for the engine's lifetime).
func (r *Result) InvalidIteratorState() bool { return false }

// IterateNext returns the next node result and advances the cursor, mirroring
// XPathResult.iterateNext().
func (r *Result) IterateNext() (interface{}, bool) {
	for r.iterPos < len(r.seq) {
		it := r.seq[r.iterPos]
		r.iterPos++
		if it.Kind == xpeval.NodeItem {
			return unwrapItem(it), true
		}
	}
	return nil, false
}

// SnapshotLength is the DOM Living Standard's snapshotLength.
func (r *Result) SnapshotLength() int { return len(r.seq) }

// SnapshotItem is the DOM Living Standard's snapshotItem(index).
func (r *Result) SnapshotItem(index int) interface{} {
	if index < 0 || index >= len(r.seq) {
		return nil
	}
	return unwrapItem(r.seq[index])
}

func firstAtom(seq xpeval.Sequence) xpeval.Item {
	if len(seq) == 0 {
		return xpeval.Item{}
	}
	return xpeval.Atomize(seq)[0]
}

// CreateExpression compiles path for repeated Evaluate calls (DOM Living
// Standard's document.createExpression).
func CreateExpression(path string, opts ...Option) (*Selector, error) {
	return NewSelector(path, opts...)
}

// Evaluate runs the compiled Selector against contextItem and returns a
// Result recording resultType (DOM Living Standard's
// XPathExpression.evaluate). Only the ordered node types change the
// result, which they sort into document order; the value accessors behave
// the same for every resultType.
func (s *Selector) Evaluate(contextItem interface{}, resultType uint16) (*Result, error) {
	tree, itemId, err := s.buildTree(contextItem)
	if err != nil {
		return nil, err
	}
	ctx := s.dynamicContext(tree, itemId)
	seq, err := evalRoot(s.root, ctx)
	if err != nil {
		return nil, err
	}
	return newResult(seq, resultType), nil
}

// Evaluate parses path and evaluates it against contextItem directly (DOM
// Living Standard's document.evaluate), without retaining the compiled
// expression.
func Evaluate(contextItem interface{}, path string, resultType uint16, opts ...Option) (*Result, error) {
	sel, err := NewSelector(path, opts...)
	if err != nil {
		return nil, err
	}
	return sel.Evaluate(contextItem, resultType)
}
