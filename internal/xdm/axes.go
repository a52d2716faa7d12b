package xdm

// Axis identifies one of the thirteen XPath axes.
type Axis uint8

const (
	Child Axis = iota
	Descendant
	Attribute
	Self
	DescendantOrSelf
	FollowingSibling
	Following
	Namespace
	Parent
	Ancestor
	PrecedingSibling
	Preceding
	AncestorOrSelf
)

// Reverse reports whether an axis walks against document order.
func (a Axis) Reverse() bool {
	switch a {
	case Ancestor, AncestorOrSelf, Preceding, PrecedingSibling:
		return true
	default:
		return false
	}
}

// Iterate lazily walks axis from id, calling yield for each node in the
// axis's natural order (reverse document order for reverse axes). Iterate
// stops early if yield returns false, the same short-circuit a predicate
// filter needs to stop consuming a descendant:: scan once enough items are
// known.
func (t *Tree) Iterate(id NodeId, axis Axis, yield func(NodeId) bool) {
	switch axis {
	case Self:
		yield(id)
	case Child:
		for _, c := range t.arena[id].children {
			if t.arena[c].kind == AttributeNode || t.arena[c].kind == NamespaceNode {
				continue
			}
			if !yield(c) {
				return
			}
		}
	case Attribute:
		for _, c := range t.arena[id].children {
			if t.arena[c].kind == AttributeNode && !yield(c) {
				return
			}
		}
	case Namespace:
		for _, c := range t.arena[id].children {
			if t.arena[c].kind == NamespaceNode && !yield(c) {
				return
			}
		}
	case Descendant:
		t.iterateDescendants(id, false, yield)
	case DescendantOrSelf:
		t.iterateDescendants(id, true, yield)
	case Parent:
		if p := t.arena[id].parent; p != NoNode {
			yield(p)
		}
	case Ancestor:
		for p := t.arena[id].parent; p != NoNode; p = t.arena[p].parent {
			if !yield(p) {
				return
			}
		}
	case AncestorOrSelf:
		if !yield(id) {
			return
		}
		for p := t.arena[id].parent; p != NoNode; p = t.arena[p].parent {
			if !yield(p) {
				return
			}
		}
	case FollowingSibling:
		t.iterateSiblings(id, true, yield)
	case PrecedingSibling:
		t.iterateSiblings(id, false, yield)
	case Following:
		t.iterateFollowing(id, yield)
	case Preceding:
		t.iteratePreceding(id, yield)
	}
}

func (t *Tree) iterateDescendants(id NodeId, includeSelf bool, yield func(NodeId) bool) bool {
	if includeSelf {
		if !yield(id) {
			return false
		}
	}
	for _, c := range t.arena[id].children {
		if t.arena[c].kind == AttributeNode || t.arena[c].kind == NamespaceNode {
			continue
		}
		if !yield(c) {
			return false
		}
		if !t.iterateDescendants(c, false, yield) {
			return false
		}
	}
	return true
}

func (t *Tree) iterateSiblings(id NodeId, forward bool, yield func(NodeId) bool) {
	parent := t.arena[id].parent
	if parent == NoNode {
		return
	}
	siblings := elementSiblings(t, parent)
	idx := indexOf(siblings, id)
	if idx < 0 {
		return
	}
	if forward {
		for i := idx + 1; i < len(siblings); i++ {
			if !yield(siblings[i]) {
				return
			}
		}
	} else {
		for i := idx - 1; i >= 0; i-- {
			if !yield(siblings[i]) {
				return
			}
		}
	}
}

// elementSiblings returns parent's children minus attribute/namespace
// nodes, since siblings (following-sibling::/preceding-sibling::) only
// range over the child:: axis's membership.
func elementSiblings(t *Tree, parent NodeId) []NodeId {
	all := t.arena[parent].children
	out := make([]NodeId, 0, len(all))
	for _, c := range all {
		if t.arena[c].kind != AttributeNode && t.arena[c].kind != NamespaceNode {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(ids []NodeId, id NodeId) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

// iterateFollowing walks every node in document order after id, excluding
// id's own descendants and its attribute/namespace nodes.
func (t *Tree) iterateFollowing(id NodeId, yield func(NodeId) bool) {
	var endOfSubtree int
	t.iterateDescendants(id, true, func(n NodeId) bool {
		if t.arena[n].position > endOfSubtree {
			endOfSubtree = t.arena[n].position
		}
		return true
	})
	for pos := endOfSubtree + 1; pos < len(t.arena); pos++ {
		n := t.byPosition(pos)
		if n == NoNode {
			continue
		}
		k := t.arena[n].kind
		if k == AttributeNode || k == NamespaceNode {
			continue
		}
		if !yield(n) {
			return
		}
	}
}

// iteratePreceding walks every node in reverse document order before id,
// excluding id's ancestors and its attribute/namespace nodes.
func (t *Tree) iteratePreceding(id NodeId, yield func(NodeId) bool) {
	ancestors := map[NodeId]bool{}
	for p := t.arena[id].parent; p != NoNode; p = t.arena[p].parent {
		ancestors[p] = true
	}
	selfPos := t.arena[id].position
	for pos := selfPos - 1; pos >= 0; pos-- {
		n := t.byPosition(pos)
		if n == NoNode || ancestors[n] {
			continue
		}
		k := t.arena[n].kind
		if k == AttributeNode || k == NamespaceNode {
			continue
		}
		if !yield(n) {
			return
		}
	}
}

// byPosition resolves a document-order rank back to a NodeId. Since the
// arena is allocated in pre-order, position i is always stored at index i.
func (t *Tree) byPosition(pos int) NodeId {
	if pos < 0 || pos >= len(t.arena) {
		return NoNode
	}
	return NodeId(pos)
}
