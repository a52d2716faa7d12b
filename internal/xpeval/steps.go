package xpeval

import (
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// NodeTest decides whether id (a node reached by an axis step) matches a
// step's node test.
type NodeTest func(tree *xdm.Tree, id xdm.NodeId) bool

// EvalStep evaluates one path step — axis, node test, predicates — against
// every context node in contextSeq, unions the per-context-node results,
// and returns them in document order with duplicates removed.
func EvalStep(ctx *Context, contextSeq Sequence, axis xdm.Axis, test NodeTest, predicates []Evaluable) (Sequence, error) {
	if len(contextSeq) == 0 {
		return nil, nil
	}
	tree := ctx.Tree
	var union []xdm.NodeId
	for _, ctxItem := range contextSeq {
		if ctxItem.Kind != NodeItem {
			return nil, xpatherr.New(xpatherr.XPTY0020, -1, "context item of a step is not a node")
		}
		var candidates []xdm.NodeId
		tree.Iterate(ctxItem.Node, axis, func(id xdm.NodeId) bool {
			if test == nil || test(tree, id) {
				candidates = append(candidates, id)
			}
			return true
		})
		filtered, err := applyPredicates(ctx, tree, candidates, predicates)
		if err != nil {
			return nil, err
		}
		union = append(union, filtered...)
	}
	sorted := tree.SortDocumentOrder(union)
	return NodeSequenceOf(tree, sorted), nil
}

// applyPredicates runs each predicate over ids in turn: for predicate i,
// the focus position/size are recomputed from the *current* filtered
// candidate list, not from the original axis scan, so `E[1][position()=2]`
// composes the way two successive predicates should.
func applyPredicates(ctx *Context, tree *xdm.Tree, ids []xdm.NodeId, predicates []Evaluable) ([]xdm.NodeId, error) {
	for _, pred := range predicates {
		size := len(ids)
		var kept []xdm.NodeId
		for i, id := range ids {
			sub := ctx.WithFocus(Focus{Item: NodeItemOf(tree, id), Position: i + 1, Size: size})
			result, err := pred.Eval(sub)
			if err != nil {
				return nil, err
			}
			ok, err := matchesPredicate(result, i+1)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	return ids, nil
}

// matchesPredicate implements the predicate keep/drop rule: a singleton
// numeric result keeps the item iff it equals the 1-based position
// exactly (strict equality, so E[4.5] matches nothing); otherwise the
// item is kept iff the result's effective boolean value is true.
func matchesPredicate(result Sequence, position int) (bool, error) {
	if len(result) == 1 && result[0].Kind == NumberItem {
		return result[0].Num == float64(position), nil
	}
	return EffectiveBooleanValue(result)
}

// FilterPredicatesOnly applies predicates to an already-atomic or
// already-node sequence without an axis step, for parenthesized-expression
// predicates (e.g. `(E)[1]`) where the focus ranges over E's own result
// sequence rather than an axis scan. Node-kind items are supported the same
// way EvalStep supports them; atomic items are supported too since XPath
// 2.0 allows predicates on non-node sequences.
func FilterPredicatesOnly(ctx *Context, seq Sequence, predicates []Evaluable) (Sequence, error) {
	items := seq
	for _, pred := range predicates {
		size := len(items)
		var kept Sequence
		for i, it := range items {
			sub := ctx.WithFocus(Focus{Item: it, Position: i + 1, Size: size})
			result, err := pred.Eval(sub)
			if err != nil {
				return nil, err
			}
			ok, err := matchesPredicate(result, i+1)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	return items, nil
}
