package xdm

import (
	"strings"

	"github.com/gogo-agent/xpathlang/domtree"
	"github.com/gogo-agent/xpathlang/schema"
)

// BuildNodeTree builds an XDM Tree from a domtree.Document the way an
// ElementTree-style host would be consumed: tails are not walked as
// separate nodes since BuildNodeTree assumes the conservative default
// (drop tails unless the caller's domtree already preserves them) — callers
// that need lxml tail-as-sibling-text semantics should use
// BuildLxmlNodeTree instead.
func BuildNodeTree(doc domtree.Document) *Tree {
	return build(doc, false)
}

// BuildLxmlNodeTree builds an XDM Tree honoring lxml-style quirks: comments
// and processing instructions before/after the root element attach as
// children of the synthesized document node, and each element's tail text
// becomes a TextNode sibling immediately following it.
func BuildLxmlNodeTree(doc domtree.Document) *Tree {
	return build(doc, true)
}

// xmlNamespaceURI is the URI the implicit "xml" prefix is always bound to,
// seeded into every build's namespace scope the same way
// internal/statictx.New seeds it into the static context.
const xmlNamespaceURI = "http://www.w3.org/XML/1998/namespace"

func build(doc domtree.Document, withTails bool) *Tree {
	t := newTree(64)
	docId := t.alloc(node{kind: DocumentNode, parent: NoNode})
	t.root = docId

	baseScope := map[string]string{"xml": xmlNamespaceURI}

	// domtree.Parse includes the root element in TopLevel (keeping trailing
	// comments/PIs ordered after it); hand-built documents list only the
	// extras, so the root is appended when TopLevel didn't carry it.
	var docChildren []NodeId
	rootSeen := false
	for _, tl := range doc.TopLevel() {
		if tl == doc.Root() {
			rootSeen = true
		}
		if id, ok := buildHostNode(t, tl, docId, withTails, baseScope); ok {
			docChildren = append(docChildren, id)
		}
	}
	if root := doc.Root(); root != nil && !rootSeen {
		if id, ok := buildHostNode(t, root, docId, withTails, baseScope); ok {
			docChildren = append(docChildren, id)
		}
	}
	t.arena[docId].children = docChildren
	return t
}

// buildHostNode allocates the node (and, for elements, its attribute nodes
// and recursively its children) for a single domtree.Node, honoring the
// document-order invariant that attribute/namespace nodes sort after their
// owning element's start and before its first child.
func buildHostNode(t *Tree, host domtree.Node, parent NodeId, withTails bool, scope map[string]string) (NodeId, bool) {
	switch host.Kind() {
	case domtree.ElementKind:
		scope = extendScope(scope, host)
		id := t.alloc(node{kind: ElementNode, parent: parent, host: host, uri: namespaceURIOf(host, scope)})

		var kids []NodeId
		for _, name := range host.AttributeOrder() {
			if strings.HasPrefix(name, "xmlns") {
				nsId := t.alloc(node{
					kind:   NamespaceNode,
					parent: id,
					name:   namespacePrefixFromDecl(name),
					uri:    host.Attributes()[name],
				})
				kids = append(kids, nsId)
				continue
			}
			attrId := t.alloc(node{
				kind:   AttributeNode,
				parent: id,
				name:   name,
				uri:    attributeNamespaceURI(name, scope),
				host:   domtree.AttributeNode(host, name),
			})
			kids = append(kids, attrId)
		}

		for _, c := range host.Children() {
			if cid, ok := buildHostNode(t, c, id, withTails, scope); ok {
				kids = append(kids, cid)
				if withTails && c.Kind() == domtree.ElementKind && c.Tail() != "" {
					kids = append(kids, t.alloc(node{
						kind:   TextNode,
						parent: id,
						host:   domtree.NewText(c.Tail()),
					}))
				}
			}
		}
		t.arena[id].children = kids
		return id, true

	case domtree.TextKind:
		return t.alloc(node{kind: TextNode, parent: parent, host: host}), true
	case domtree.CommentKind:
		return t.alloc(node{kind: CommentNode, parent: parent, host: host}), true
	case domtree.ProcessingInstructionKind:
		return t.alloc(node{kind: ProcessingInstructionNode, parent: parent, host: host}), true
	default:
		return NoNode, false
	}
}

func namespacePrefixFromDecl(attrName string) string {
	if attrName == "xmlns" {
		return ""
	}
	return strings.TrimPrefix(attrName, "xmlns:")
}

// extendScope returns the prefix->URI bindings visible to host's children:
// the inherited scope plus whatever xmlns declarations host itself carries,
// shadowing an outer binding of the same prefix. Returns the
// parent scope unchanged (no copy) when host declares nothing, so an
// element-heavy document without namespaces allocates no extra maps.
func extendScope(parent map[string]string, host domtree.Node) map[string]string {
	var scope map[string]string
	for _, name := range host.AttributeOrder() {
		if !strings.HasPrefix(name, "xmlns") {
			continue
		}
		if scope == nil {
			scope = make(map[string]string, len(parent)+1)
			for k, v := range parent {
				scope[k] = v
			}
		}
		scope[namespacePrefixFromDecl(name)] = host.Attributes()[name]
	}
	if scope == nil {
		return parent
	}
	return scope
}

// namespaceURIOf resolves host's own tag prefix (or the default-namespace
// binding, for an unprefixed tag) against scope.
func namespaceURIOf(host domtree.Node, scope map[string]string) string {
	return scope[domtree.Prefix(host.Tag())]
}

// attributeNamespaceURI resolves name's prefix against scope. An unprefixed
// attribute name is never affected by a default xmlns="..." declaration
// (only element names are, per the XML namespaces recommendation), so its
// namespace URI is always "" regardless of scope[""].
func attributeNamespaceURI(name string, scope map[string]string) string {
	prefix := domtree.Prefix(name)
	if prefix == "" {
		return ""
	}
	return scope[prefix]
}

// BuildSchemaNodeTree builds an XDM Tree over a schema.Element particle
// structure, for static analysis of schema-element()/schema-attribute()
// node tests.
func BuildSchemaNodeTree(root schema.Element) *Tree {
	t := newTree(16)
	docId := t.alloc(node{kind: DocumentNode, parent: NoNode})
	t.root = docId
	elemId := buildSchemaElement(t, root, docId)
	t.arena[docId].children = []NodeId{elemId}
	return t
}

func buildSchemaElement(t *Tree, e schema.Element, parent NodeId) NodeId {
	id := t.alloc(node{kind: ElementNode, parent: parent, name: e.Name, uri: e.Type.Namespace})
	kids := make([]NodeId, 0, len(e.Children))
	for _, c := range e.Children {
		kids = append(kids, buildSchemaElement(t, c, id))
	}
	t.arena[id].children = kids
	return id
}
