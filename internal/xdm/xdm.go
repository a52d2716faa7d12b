// Package xdm implements the XPath/XQuery Data Model node model: a
// seven-kind node abstraction over a domtree.Document, with document
// order, parent links, and axis iteration.
//
// Nodes live in an arena (a slice) keyed by NodeId rather than as a graph
// of pointers with parent back-references — this sidesteps the cycle a
// parent pointer would otherwise create and lets axis iterators be plain
// value types that borrow from the arena.
package xdm

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogo-agent/xpathlang/domtree"
)

// Kind is one of the seven XDM node kinds.
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	AttributeNode
	TextNode
	NamespaceNode
	CommentNode
	ProcessingInstructionNode
)

func (k Kind) String() string {
	switch k {
	case DocumentNode:
		return "document-node()"
	case ElementNode:
		return "element()"
	case AttributeNode:
		return "attribute()"
	case TextNode:
		return "text()"
	case NamespaceNode:
		return "namespace()"
	case CommentNode:
		return "comment()"
	case ProcessingInstructionNode:
		return "processing-instruction()"
	default:
		return "node()"
	}
}

// NodeId indexes into a Tree's arena. Arena slot 0 is always the document
// root; the sentinel NoNode (-1) never refers to a real node.
type NodeId int

// NoNode is the sentinel "no node" id, analogous to a nil parent pointer.
const NoNode NodeId = -1

// node is one arena slot. It is immutable once BuildNodeTree returns:
// trees are immutable for the duration of evaluation.
type node struct {
	kind     Kind
	position int // document order rank, strictly increasing across the arena
	parent   NodeId
	children []NodeId // child:: axis order; empty for non-element/document kinds

	host domtree.Node // backing host node; nil for Document/Namespace nodes and schema-built elements
	name string       // attribute/namespace name, or the name of a host-less element
	uri  string       // namespace URI (Namespace/qualified Attribute/Element)

	// typedValue holds a schema-annotated typed value (Attribute/Element
	// only); nil when the node has not been schema-validated.
	typedValue interface{}
}

// Tree is an immutable, built XDM node tree. It is safe to share across
// evaluations run concurrently, provided the underlying host tree is not
// mutated concurrently.
type Tree struct {
	arena []node
	root  NodeId

	// stringValues memoizes element/document string values: atomization of
	// the same element during repeated comparisons and sorts would otherwise
	// re-concatenate its whole descendant text each time. The lru.Cache is
	// internally locked, so shared-tree concurrent evaluation stays safe.
	stringValues *lru.Cache[NodeId, string]
}

const stringValueCacheSize = 4096

func newTree(capacityHint int) *Tree {
	cache, _ := lru.New[NodeId, string](stringValueCacheSize)
	return &Tree{
		arena:        make([]node, 0, capacityHint),
		stringValues: cache,
	}
}

func (t *Tree) alloc(n node) NodeId {
	id := NodeId(len(t.arena))
	n.position = len(t.arena)
	t.arena = append(t.arena, n)
	return id
}

// Root returns the tree's root node id (always a DocumentNode).
func (t *Tree) Root() NodeId { return t.root }

// Kind returns the node kind for id.
func (t *Tree) Kind(id NodeId) Kind { return t.arena[id].kind }

// Position returns the document-order rank assigned at build time.
func (t *Tree) Position(id NodeId) int { return t.arena[id].position }

// Parent returns id's parent, or NoNode at the root.
func (t *Tree) Parent(id NodeId) NodeId { return t.arena[id].parent }

// Host returns the backing domtree.Node for Element/Text/Comment/PI nodes
// and a synthesized domtree attribute node for Attribute nodes; it returns
// nil for the document node, Namespace nodes and schema-built elements.
func (t *Tree) Host(id NodeId) domtree.Node { return t.arena[id].host }

// Name returns the lexical name for Element/Attribute/Namespace/PI nodes.
func (t *Tree) Name(id NodeId) string {
	n := &t.arena[id]
	switch n.kind {
	case AttributeNode, NamespaceNode:
		return n.name
	case ProcessingInstructionNode:
		return n.host.Tag()
	case ElementNode:
		// Schema-built element nodes (BuildSchemaNodeTree) carry no host.
		if n.host != nil {
			return n.host.Tag()
		}
		return n.name
	default:
		return ""
	}
}

// NamespaceURI returns the namespace URI associated with id, when any.
func (t *Tree) NamespaceURI(id NodeId) string { return t.arena[id].uri }

// StringValue is the XDM string-value accessor: element/document
// concatenate descendant text, attributes/text/comments/PIs return their
// inline value directly.
func (t *Tree) StringValue(id NodeId) string {
	n := &t.arena[id]
	switch n.kind {
	case AttributeNode, NamespaceNode:
		return n.name2value()
	case TextNode, CommentNode:
		return n.host.Text()
	case ProcessingInstructionNode:
		return n.host.Text()
	case ElementNode, DocumentNode:
		if t.stringValues != nil {
			if v, ok := t.stringValues.Get(id); ok {
				return v
			}
		}
		v := concatDescendantText(t, id)
		if t.stringValues != nil {
			t.stringValues.Add(id, v)
		}
		return v
	default:
		return ""
	}
}

func (n *node) name2value() string {
	if n.host != nil {
		return n.host.Text()
	}
	return n.uri
}

func concatDescendantText(t *Tree, id NodeId) string {
	var buf []byte
	var walk func(NodeId)
	walk = func(cur NodeId) {
		for _, c := range t.arena[cur].children {
			switch t.arena[c].kind {
			case TextNode:
				buf = append(buf, t.arena[c].host.Text()...)
			case ElementNode:
				walk(c)
			}
		}
	}
	walk(id)
	return string(buf)
}

// TypedValue returns the schema-annotated typed value for an
// Attribute/Element node, or nil if unannotated.
func (t *Tree) TypedValue(id NodeId) interface{} { return t.arena[id].typedValue }

// SetTypedValue schema-annotates a node. Only meaningful for
// Attribute/Element nodes; called by the (out of scope) schema layer.
func (t *Tree) SetTypedValue(id NodeId, v interface{}) { t.arena[id].typedValue = v }

// Precedes reports whether a precedes b in document order. Positions are
// assigned at build time, so this is a plain rank comparison.
func (t *Tree) Precedes(a, b NodeId) bool {
	return t.arena[a].position < t.arena[b].position
}

// SortDocumentOrder sorts ids into document order in place and removes
// duplicates, the invariant every node-producing operator must uphold.
func (t *Tree) SortDocumentOrder(ids []NodeId) []NodeId {
	sort.Slice(ids, func(i, j int) bool { return t.Precedes(ids[i], ids[j]) })
	out := ids[:0]
	var last NodeId = NoNode
	first := true
	for _, id := range ids {
		if first || id != last {
			out = append(out, id)
		}
		last = id
		first = false
	}
	return out
}
