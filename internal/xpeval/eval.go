package xpeval

import "github.com/gogo-agent/xpathlang/internal/xdm"

// Evaluable is what every xpath1/xpath2 AST node's tdop.Token.Data holds:
// the evaluate half of the token contract, letting parsing and evaluation
// share one tree. Static analysis calls the same Eval against a
// StaticOnly Context; an Evaluable that genuinely needs dynamic data
// returns a *xpatherr.MissingContext from that call instead of guessing.
type Evaluable interface {
	Eval(ctx *Context) (Sequence, error)
}

// EvalFunc adapts a plain function to Evaluable, for operators whose
// behavior is simple enough not to need its own named type.
type EvalFunc func(ctx *Context) (Sequence, error)

func (f EvalFunc) Eval(ctx *Context) (Sequence, error) { return f(ctx) }

// NodeSequenceOf wraps ids (already produced in the order a caller wants)
// as a Sequence of node Items, without imposing document order — callers
// producing a path step's result call SortNodeSequence separately.
func NodeSequenceOf(tree *xdm.Tree, ids []xdm.NodeId) Sequence {
	out := make(Sequence, len(ids))
	for i, id := range ids {
		out[i] = NodeItemOf(tree, id)
	}
	return out
}

// SortNodeSequence re-sorts s into document order with duplicates removed,
// assuming every item in s is a node Item from the same tree.
func SortNodeSequence(tree *xdm.Tree, s Sequence) Sequence {
	ids := make([]xdm.NodeId, len(s))
	for i, it := range s {
		ids[i] = it.Node
	}
	sorted := tree.SortDocumentOrder(ids)
	return NodeSequenceOf(tree, sorted)
}
