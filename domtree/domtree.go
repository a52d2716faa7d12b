// Package domtree is the host XML tree the selector engine evaluates
// against: a DOM-shaped node model trimmed to a read-only capability set,
// since a host tree is consumed, never mutated, by the XPath engine.
// Building and decoding XML is a collaborator, not the engine itself —
// this package is deliberately small.
package domtree

import "strings"

// Kind mirrors the handful of DOM node types a host tree can expose.
// Unlike the DOM Living Standard's twelve NodeType constants, domtree only
// distinguishes the kinds the XDM node model (internal/xdm) needs to tell
// apart; CDATA is folded into Text.
type Kind uint8

const (
	DocumentKind Kind = iota
	ElementKind
	AttributeKind
	TextKind
	CommentKind
	ProcessingInstructionKind
)

// Node is the host capability interface: tag,
// optional text/tail payloads, ordered child iteration, an attribute map,
// and a document accessor. Implementations may be backed by an in-memory
// tree (as here) or adapted from a third-party XML library.
type Node interface {
	Kind() Kind
	// Tag is the expanded or lexical name for Element/Attribute/PI nodes.
	Tag() string
	// Text is the character payload for Text/Comment nodes, or the PI data.
	Text() string
	// Tail is the text immediately following this node and before the next
	// sibling, lxml-style. Only populated when the host tree preserves
	// tails (see BuildOptions.PreserveTails).
	Tail() string
	Children() []Node
	Attributes() map[string]string
	// AttributeOrder preserves declaration order for deterministic iteration.
	AttributeOrder() []string
	Parent() Node
	Document() Document
}

// Document is the document-level capability: a root element plus any
// top-level comments/processing-instructions that sit outside of it,
// lxml-style.
type Document interface {
	Root() Node
	// TopLevel returns the document-level nodes in document order. Parse
	// includes the root element itself in this list, so comments and PIs
	// after the root element keep their place relative to it; consumers
	// building a tree over a Document must not emit Root twice when it
	// appears here. Hand-assembled documents (NewDocument) list only the
	// extra comments/PIs.
	TopLevel() []Node
}

// node is the concrete, read-only in-memory implementation used by the
// default XML builder below.
type node struct {
	kind       Kind
	tag        string
	text       string
	tail       string
	children   []Node
	attrs      map[string]string
	attrOrder  []string
	parent     Node
	doc        *document
}

func (n *node) Kind() Kind                     { return n.kind }
func (n *node) Tag() string                    { return n.tag }
func (n *node) Text() string                   { return n.text }
func (n *node) Tail() string                   { return n.tail }
func (n *node) Children() []Node               { return n.children }
func (n *node) Attributes() map[string]string  { return n.attrs }
func (n *node) AttributeOrder() []string       { return n.attrOrder }
func (n *node) Parent() Node                   { return n.parent }
func (n *node) Document() Document             { return n.doc }

type document struct {
	root     Node
	topLevel []Node
}

func (d *document) Root() Node      { return d.root }
func (d *document) TopLevel() []Node { return d.topLevel }

// NewElement constructs a detached element node, primarily for tests that
// build trees by hand instead of parsing XML text.
func NewElement(tag string, attrs map[string]string, children ...Node) Node {
	order := make([]string, 0, len(attrs))
	for k := range attrs {
		order = append(order, k)
	}
	n := &node{kind: ElementKind, tag: tag, attrs: attrs, attrOrder: order, children: children}
	for _, c := range children {
		if cn, ok := c.(*node); ok {
			cn.parent = n
		}
	}
	return n
}

// NewText constructs a detached text node.
func NewText(text string) Node { return &node{kind: TextKind, text: text} }

// NewComment constructs a detached comment node.
func NewComment(text string) Node { return &node{kind: CommentKind, text: text} }

// NewDocument wraps root (and any top-level siblings) into a Document,
// wiring parent pointers and the document back-reference on every node in
// the subtree, the way a DOM document fixes up parentNode on insertion.
func NewDocument(root Node, topLevel ...Node) Document {
	d := &document{}
	attachDoc(root, nil, d)
	for _, t := range topLevel {
		attachDoc(t, nil, d)
	}
	d.root = root
	d.topLevel = topLevel
	return d
}

func attachDoc(n Node, parent Node, d *document) {
	cn, ok := n.(*node)
	if !ok {
		return
	}
	cn.parent = parent
	cn.doc = d
	for _, c := range cn.children {
		attachDoc(c, n, d)
	}
}

// attrNode is a synthetic Node used to expose an attribute through the same
// Node interface the attribute:: axis walks.
type attrNode struct {
	name   string
	value  string
	owner  Node
}

func (a *attrNode) Kind() Kind                    { return AttributeKind }
func (a *attrNode) Tag() string                   { return a.name }
func (a *attrNode) Text() string                  { return a.value }
func (a *attrNode) Tail() string                  { return "" }
func (a *attrNode) Children() []Node              { return nil }
func (a *attrNode) Attributes() map[string]string { return nil }
func (a *attrNode) AttributeOrder() []string      { return nil }
func (a *attrNode) Parent() Node                  { return a.owner }
func (a *attrNode) Document() Document            { return a.owner.Document() }

// AttributeNode synthesizes a single attribute Node for owner/name, or nil
// if owner carries no such attribute.
func AttributeNode(owner Node, name string) Node {
	v, ok := owner.Attributes()[name]
	if !ok {
		return nil
	}
	return &attrNode{name: name, value: v, owner: owner}
}

// AttributeNodes returns the attribute nodes of an element, in declaration
// order, synthesized on demand rather than stored on the element — a thin
// view in the NamedNodeMap style.
func AttributeNodes(n Node) []Node {
	if n.Kind() != ElementKind {
		return nil
	}
	order := n.AttributeOrder()
	out := make([]Node, 0, len(order))
	for _, name := range order {
		out = append(out, &attrNode{name: name, value: n.Attributes()[name], owner: n})
	}
	return out
}

// LocalName strips a namespace prefix off a lexical "ns:local" tag name.
func LocalName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// Prefix returns the namespace prefix of a lexical tag name, or "".
func Prefix(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[:i]
	}
	return ""
}
