package xpeval

import (
	"time"

	"github.com/gogo-agent/xpathlang/internal/statictx"
	"github.com/gogo-agent/xpathlang/internal/xdm"
)

// Focus is the (context item, position, size) triple that drives
// predicate evaluation. A Context's current Focus
// changes as step/predicate evaluation descends; everything else on
// Context is shared across the whole evaluation.
type Focus struct {
	Item     Item
	Position int
	Size     int
}

// Context is the dynamic context: the evaluation-wide state
// plus the currently active Focus. A Context built via NewStatic
// means "evaluating without data" — Evaluable implementations
// that need the context item/position/size must return
// xpatherr.MissingContext in that mode instead of reading zero values.
type Context struct {
	Tree   *xdm.Tree
	Static *statictx.Context

	Focus Focus

	// StaticOnly reports whether this Context was built for static
	// analysis: no root, no context item, no real focus. Any
	// Evaluable whose result depends on dynamic data must check this and
	// raise MissingContext rather than silently evaluating against a zero
	// Focus.
	StaticOnly bool

	vars []map[string]Sequence // stack of variable frames, innermost last

	URI      string
	Fragment string
	Timezone *time.Location

	currentDT     time.Time
	currentDTSet  bool
}

// NewDynamic builds a dynamic context rooted at tree, with item as the
// initial context item (position 1, size 1), ready for a top-level
// evaluate/select call.
func NewDynamic(tree *xdm.Tree, sc *statictx.Context, item Item) *Context {
	return &Context{
		Tree:   tree,
		Static: sc,
		Focus:  Focus{Item: item, Position: 1, Size: 1},
		vars:   []map[string]Sequence{{}},
	}
}

// NewStatic builds a context-free Context used only to drive the static
// evaluation pass: Evaluable.Eval is called against it purely to surface
// type/arity errors; anything needing real data must raise
// MissingContext.
func NewStatic(sc *statictx.Context) *Context {
	return &Context{Static: sc, StaticOnly: true, vars: []map[string]Sequence{{}}}
}

// CurrentDateTime returns the stable "current dateTime" for the whole
// top-level evaluate. It is lazily captured on first read so a
// Context constructed well before evaluation starts doesn't freeze a
// distant timestamp, while still honoring the invariant that every
// reference within one evaluate sees the same value.
func (c *Context) CurrentDateTime(now func() time.Time) time.Time {
	if !c.currentDTSet {
		c.currentDT = now()
		c.currentDTSet = true
	}
	return c.currentDT
}

// PushFrame pushes a new innermost variable scope, for entry into a
// for/let/quantifier binding or a function call.
func (c *Context) PushFrame() {
	c.vars = append(c.vars, map[string]Sequence{})
}

// PopFrame pops the innermost variable scope. Callers must pop on every
// exit path, including error returns, typically via `defer ctx.PopFrame()`
// immediately after PushFrame.
func (c *Context) PopFrame() {
	if len(c.vars) > 0 {
		c.vars = c.vars[:len(c.vars)-1]
	}
}

// BindVariable binds name to value in the innermost scope.
func (c *Context) BindVariable(name string, value Sequence) {
	c.vars[len(c.vars)-1][name] = value
}

// Variable resolves name by searching scopes innermost-first.
func (c *Context) Variable(name string) (Sequence, bool) {
	for i := len(c.vars) - 1; i >= 0; i-- {
		if v, ok := c.vars[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// WithFocus returns a shallow copy of c with Focus replaced, used when
// entering a step/predicate evaluation without disturbing the caller's own
// Focus (each nested evaluation gets its own Focus but shares the variable
// stack and tree).
func (c *Context) WithFocus(f Focus) *Context {
	cp := *c
	cp.Focus = f
	return &cp
}
