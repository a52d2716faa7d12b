// Package xpeval is the dynamic context and evaluator:
// the runtime focus (context item/position/size), the variable stack, axis
// iteration glue, and the XDM value model (items, sequences, atomization,
// effective boolean value) that internal/xpath1 and internal/xpath2's
// Evaluable trees are driven by.
package xpeval

import (
	"fmt"
	"math"

	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// ItemKind distinguishes an Item's payload: one tagged struct covers the
// node-set/string/number/boolean value union instead of four wrapper
// types.
type ItemKind uint8

const (
	NodeItem ItemKind = iota
	StringItem
	NumberItem
	BooleanItem
)

// Item is a single member of an XDM sequence: either a node (a Tree plus
// the NodeId within it) or one of the three atomic kinds XPath 1.0 knows.
// XPath 2.0's richer atomic type system (xs:integer, xs:date, ...) is
// layered on top via the TypeName annotation without changing this shape.
type Item struct {
	Kind ItemKind

	Tree *xdm.Tree
	Node xdm.NodeId

	Str  string
	Num  float64
	Bool bool

	// TypeName carries an XPath 2.0 atomic type annotation (e.g.
	// "xs:integer") for items produced by a cast/constructor; empty for
	// plain XPath 1.0 string/number/boolean items.
	TypeName string
}

// NodeItemOf builds a node Item.
func NodeItemOf(tree *xdm.Tree, id xdm.NodeId) Item {
	return Item{Kind: NodeItem, Tree: tree, Node: id}
}

// StringItemOf builds a string Item.
func StringItemOf(s string) Item { return Item{Kind: StringItem, Str: s} }

// NumberItemOf builds a number Item.
func NumberItemOf(n float64) Item { return Item{Kind: NumberItem, Num: n} }

// BooleanItemOf builds a boolean Item.
func BooleanItemOf(b bool) Item { return Item{Kind: BooleanItem, Bool: b} }

// Sequence is an ordered list of Items. A node sequence produced by a
// path step, union, or unprefixed step composition must be
// document-ordered and duplicate-free; Sequence itself does not enforce
// this — callers that build node sequences from axis iteration call
// SortDocumentOrder before returning (see steps.go).
type Sequence []Item

// Atomize projects every node Item in s to its typed value, leaving
// atomic items unchanged. A node's schema-annotated typed value
// (SetTypedValue) is used when it is a string; otherwise (no typed value,
// or a non-string one) atomization falls back to the node's plain XDM
// string value.
func Atomize(s Sequence) Sequence {
	out := make(Sequence, len(s))
	for i, it := range s {
		if it.Kind == NodeItem {
			if tv, ok := it.Tree.TypedValue(it.Node).(string); ok {
				out[i] = StringItemOf(tv)
			} else {
				out[i] = StringItemOf(it.Tree.StringValue(it.Node))
			}
		} else {
			out[i] = it
		}
	}
	return out
}

// StringValue renders an Item as its XPath string value, atomizing nodes.
func StringValue(it Item) string {
	switch it.Kind {
	case NodeItem:
		return it.Tree.StringValue(it.Node)
	case StringItem:
		return it.Str
	case NumberItem:
		return formatNumber(it.Num)
	case BooleanItem:
		if it.Bool {
			return "true"
		}
		return "false"
	}
	return ""
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// NumberValue coerces an Item to a float64 per XPath's number() rules: node
// and string items parse their string value as a number (NaN on failure),
// booleans are 1/0.
func NumberValue(it Item) float64 {
	switch it.Kind {
	case NumberItem:
		return it.Num
	case BooleanItem:
		if it.Bool {
			return 1
		}
		return 0
	default:
		return parseXPathNumber(StringValue(it))
	}
}

func parseXPathNumber(s string) float64 {
	var f float64
	n, err := fmt.Sscanf(trimSpace(s), "%g", &f)
	if err != nil || n != 1 {
		return math.NaN()
	}
	return f
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// BooleanValue coerces an Item to a bool per XPath's boolean() rules.
func BooleanValue(it Item) bool {
	switch it.Kind {
	case BooleanItem:
		return it.Bool
	case NumberItem:
		return it.Num != 0 && !math.IsNaN(it.Num)
	case StringItem:
		return it.Str != ""
	case NodeItem:
		return true
	}
	return false
}

// EffectiveBooleanValue implements the XPath effective boolean value
// rules: empty sequence
// is false; a singleton node is true; a singleton boolean/string/number
// uses its own coercion; anything else (2+ items of mixed/atomic type, or
// 2+ atomics) is a type error.
func EffectiveBooleanValue(s Sequence) (bool, error) {
	if len(s) == 0 {
		return false, nil
	}
	if s[0].Kind == NodeItem {
		return true, nil
	}
	if len(s) > 1 {
		return false, xpatherr.New(xpatherr.XPTY0004, -1,
			"effective boolean value of a sequence of %d atomic items is undefined", len(s))
	}
	switch s[0].Kind {
	case BooleanItem:
		return s[0].Bool, nil
	case StringItem:
		return s[0].Str != "", nil
	case NumberItem:
		return s[0].Num != 0 && !math.IsNaN(s[0].Num), nil
	}
	return false, xpatherr.New(xpatherr.XPTY0004, -1, "effective boolean value: unsupported item")
}

// Equal reports value equality between two atomic items for general
// comparisons: numeric if either side is numeric, else boolean if either
// side is boolean, else string equality. Node items are atomized by the caller before Equal is
// reached (xpath1's generalCompare, xpath2's valueCompare).
func Equal(a, b Item) bool {
	if a.Kind == NumberItem || b.Kind == NumberItem {
		return NumberValue(a) == NumberValue(b)
	}
	if a.Kind == BooleanItem || b.Kind == BooleanItem {
		return BooleanValue(a) == BooleanValue(b)
	}
	return StringValue(a) == StringValue(b)
}
