package xpath1

import (
	"math"
	"strings"

	"github.com/gogo-agent/xpathlang/internal/tdop"
	"github.com/gogo-agent/xpathlang/internal/xdm"
	"github.com/gogo-agent/xpathlang/internal/xpeval"
	"github.com/gogo-agent/xpathlang/xpatherr"
)

// FuncEval is the evaluation behavior of a registered function call: given
// the dynamic context and each argument's already-evaluated Sequence, it
// produces the function's result sequence.
type FuncEval func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error)

// funcCall is the AST payload for a parsed function call.
type funcCall struct {
	name string
	args []*tdop.Token
	fn   FuncEval
}

func (f *funcCall) Eval(ctx *xpeval.Context) (xpeval.Sequence, error) {
	argSeqs := make([]xpeval.Sequence, len(f.args))
	for i, a := range f.args {
		seq, err := evalToken(a, ctx)
		if err != nil {
			return nil, err
		}
		argSeqs[i] = seq
	}
	return f.fn(ctx, argSeqs)
}

// registerFunction registers name as a function-call token: NAME "(" args?
// ")". Function names are ordinary identifiers (Label function, not a
// reserved word), so they only ever resolve to a call when immediately
// followed by "(" — functionNud checks for that before falling
// back to the node-test interpretation.
func registerFunction(r *tdop.Registry, name string, minArgs, maxArgs int, fn FuncEval) {
	spec := r.Nullary(name, tdop.LabelFunction, nil)
	spec.Nud = functionNud(name, minArgs, maxArgs, fn)
}

// functionNud peeks for "(" before committing to the function-call
// production: XPath's core function names (count, string, not, ...) are
// ordinary NCNames, so "child::count" and bare "count" as an element name
// test must still work when not immediately applied.
func functionNud(name string, minArgs, maxArgs int, fn FuncEval) tdop.NudFunc {
	return func(p *tdop.Parser, self *tdop.Token) (*tdop.Token, error) {
		if p.Current().Symbol() != "(" {
			test, err := resolveNameTest(p, xdm.Child, self)
			if err != nil {
				return nil, err
			}
			return finishStep(p, self, xdm.Child, test)
		}
		return parseFunctionArgs(p, self, name, minArgs, maxArgs, fn)
	}
}

// parseFunctionArgs parses "(" arg ("," arg)* ")" immediately following
// self (a function-name token already consumed). Arguments are parsed at
// binding power 6 — just above comma's lbp of 5 — so the comma operator's
// own led is never reached inside an argument list.
func parseFunctionArgs(p *tdop.Parser, self *tdop.Token, name string, minArgs, maxArgs int, fn FuncEval) (*tdop.Token, error) {
	if err := p.Advance("("); err != nil {
		return nil, err
	}
	var argTokens []*tdop.Token
	if p.Current().Symbol() != ")" {
		for {
			arg, err := p.Expression(6)
			if err != nil {
				return nil, err
			}
			argTokens = append(argTokens, arg)
			if p.Current().Symbol() == "," {
				if err := p.Advance(","); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.Advance(")"); err != nil {
		return nil, err
	}
	if len(argTokens) < minArgs || (maxArgs >= 0 && len(argTokens) > maxArgs) {
		return nil, p.WrongSyntax(self, "%s() expects %s argument(s), got %d", name, arityDesc(minArgs, maxArgs), len(argTokens))
	}
	self.Operands = argTokens
	self.Data = &funcCall{name: name, args: argTokens, fn: fn}
	return self, nil
}

func arityDesc(min, max int) string {
	if max < 0 {
		return "at least " + itoaSimple(min)
	}
	if min == max {
		return itoaSimple(min)
	}
	return itoaSimple(min) + "-" + itoaSimple(max)
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func sequenceToString(seq xpeval.Sequence) string {
	if len(seq) == 0 {
		return ""
	}
	atom := xpeval.Atomize(seq)
	return xpeval.StringValue(atom[0])
}

func stringArgOrContext(ctx *xpeval.Context, args []xpeval.Sequence) (string, error) {
	if len(args) == 0 {
		if ctx.StaticOnly {
			return "", xpatherr.NewMissingContext("context item string value")
		}
		return xpeval.StringValue(ctx.Focus.Item), nil
	}
	return sequenceToString(args[0]), nil
}

func nodeArgOrContext(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Item, bool, error) {
	if len(args) == 0 {
		if ctx.StaticOnly {
			return xpeval.Item{}, false, xpatherr.NewMissingContext("context item")
		}
		return ctx.Focus.Item, true, nil
	}
	if len(args[0]) == 0 {
		return xpeval.Item{}, false, nil
	}
	return args[0][0], true, nil
}

// registerCoreFunctions registers the XPath 1.0 core function library.
func registerCoreFunctions(r *tdop.Registry) {
	// --- node-set functions ---
	registerFunction(r, "last", 0, 0, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		if ctx.StaticOnly {
			return nil, xpatherr.NewMissingContext("last()")
		}
		return xpeval.Sequence{xpeval.NumberItemOf(float64(ctx.Focus.Size))}, nil
	})
	registerFunction(r, "position", 0, 0, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		if ctx.StaticOnly {
			return nil, xpatherr.NewMissingContext("position()")
		}
		return xpeval.Sequence{xpeval.NumberItemOf(float64(ctx.Focus.Position))}, nil
	})
	registerFunction(r, "count", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.NumberItemOf(float64(len(args[0])))}, nil
	})
	registerFunction(r, "name", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		item, has, err := nodeArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		if !has || item.Kind != xpeval.NodeItem {
			return xpeval.Sequence{xpeval.StringItemOf("")}, nil
		}
		return xpeval.Sequence{xpeval.StringItemOf(item.Tree.Name(item.Node))}, nil
	})
	registerFunction(r, "local-name", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		item, has, err := nodeArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		if !has || item.Kind != xpeval.NodeItem {
			return xpeval.Sequence{xpeval.StringItemOf("")}, nil
		}
		return xpeval.Sequence{xpeval.StringItemOf(localPart(item.Tree.Name(item.Node)))}, nil
	})
	registerFunction(r, "namespace-uri", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		item, has, err := nodeArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		if !has || item.Kind != xpeval.NodeItem {
			return xpeval.Sequence{xpeval.StringItemOf("")}, nil
		}
		return xpeval.Sequence{xpeval.StringItemOf(item.Tree.NamespaceURI(item.Node))}, nil
	})
	registerFunction(r, "id", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		if ctx.StaticOnly {
			return nil, xpatherr.NewMissingContext("id()")
		}
		tree := ctx.Focus.Item.Tree
		if tree == nil {
			return nil, nil
		}
		return idLookup(tree, idRefTokens(args[0])), nil
	})
	registerFunction(r, "lang", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		if ctx.StaticOnly {
			return nil, xpatherr.NewMissingContext("lang()")
		}
		want := strings.ToLower(sequenceToString(args[0]))
		return xpeval.Sequence{xpeval.BooleanItemOf(matchesLang(ctx.Focus.Item, want))}, nil
	})

	// --- string functions ---
	registerFunction(r, "string", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s, err := stringArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		return xpeval.Sequence{xpeval.StringItemOf(s)}, nil
	})
	registerFunction(r, "concat", 2, -1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(sequenceToString(a))
		}
		return xpeval.Sequence{xpeval.StringItemOf(b.String())}, nil
	})
	registerFunction(r, "starts-with", 2, 2, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.BooleanItemOf(strings.HasPrefix(sequenceToString(args[0]), sequenceToString(args[1])))}, nil
	})
	registerFunction(r, "contains", 2, 2, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.BooleanItemOf(strings.Contains(sequenceToString(args[0]), sequenceToString(args[1])))}, nil
	})
	registerFunction(r, "substring-before", 2, 2, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s, sep := sequenceToString(args[0]), sequenceToString(args[1])
		if i := strings.Index(s, sep); i >= 0 {
			return xpeval.Sequence{xpeval.StringItemOf(s[:i])}, nil
		}
		return xpeval.Sequence{xpeval.StringItemOf("")}, nil
	})
	registerFunction(r, "substring-after", 2, 2, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s, sep := sequenceToString(args[0]), sequenceToString(args[1])
		if i := strings.Index(s, sep); i >= 0 {
			return xpeval.Sequence{xpeval.StringItemOf(s[i+len(sep):])}, nil
		}
		return xpeval.Sequence{xpeval.StringItemOf("")}, nil
	})
	registerFunction(r, "substring", 2, 3, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s := []rune(sequenceToString(args[0]))
		start := xpeval.NumberValue(firstItem(args[1]))
		length := math.Inf(1)
		if len(args) == 3 {
			length = xpeval.NumberValue(firstItem(args[2]))
		}
		return xpeval.Sequence{xpeval.StringItemOf(xpathSubstring(s, start, length))}, nil
	})
	registerFunction(r, "string-length", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s, err := stringArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		return xpeval.Sequence{xpeval.NumberItemOf(float64(len([]rune(s))))}, nil
	})
	registerFunction(r, "normalize-space", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s, err := stringArgOrContext(ctx, args)
		if err != nil {
			return nil, err
		}
		return xpeval.Sequence{xpeval.StringItemOf(strings.Join(strings.Fields(s), " "))}, nil
	})
	registerFunction(r, "translate", 3, 3, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		s := sequenceToString(args[0])
		from := []rune(sequenceToString(args[1]))
		to := []rune(sequenceToString(args[2]))
		var b strings.Builder
		for _, c := range s {
			idx := -1
			for i, f := range from {
				if f == c {
					idx = i
					break
				}
			}
			if idx < 0 {
				b.WriteRune(c)
			} else if idx < len(to) {
				b.WriteRune(to[idx])
			}
		}
		return xpeval.Sequence{xpeval.StringItemOf(b.String())}, nil
	})

	// --- boolean functions ---
	registerFunction(r, "boolean", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		v, err := xpeval.EffectiveBooleanValue(args[0])
		if err != nil {
			return nil, err
		}
		return xpeval.Sequence{xpeval.BooleanItemOf(v)}, nil
	})
	registerFunction(r, "not", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		v, err := xpeval.EffectiveBooleanValue(args[0])
		if err != nil {
			return nil, err
		}
		return xpeval.Sequence{xpeval.BooleanItemOf(!v)}, nil
	})
	registerFunction(r, "true", 0, 0, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.BooleanItemOf(true)}, nil
	})
	registerFunction(r, "false", 0, 0, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.BooleanItemOf(false)}, nil
	})

	// --- number functions ---
	registerFunction(r, "number", 0, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		if len(args) == 0 {
			if ctx.StaticOnly {
				return nil, xpatherr.NewMissingContext("number()")
			}
			return xpeval.Sequence{xpeval.NumberItemOf(xpeval.NumberValue(ctx.Focus.Item))}, nil
		}
		return xpeval.Sequence{xpeval.NumberItemOf(xpeval.NumberValue(firstItem(args[0])))}, nil
	})
	registerFunction(r, "sum", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		total := 0.0
		for _, it := range xpeval.Atomize(args[0]) {
			total += xpeval.NumberValue(it)
		}
		return xpeval.Sequence{xpeval.NumberItemOf(total)}, nil
	})
	registerFunction(r, "floor", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.NumberItemOf(math.Floor(xpeval.NumberValue(firstItem(args[0]))))}, nil
	})
	registerFunction(r, "ceiling", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.NumberItemOf(math.Ceil(xpeval.NumberValue(firstItem(args[0]))))}, nil
	})
	registerFunction(r, "round", 1, 1, func(ctx *xpeval.Context, args []xpeval.Sequence) (xpeval.Sequence, error) {
		return xpeval.Sequence{xpeval.NumberItemOf(math.Round(xpeval.NumberValue(firstItem(args[0]))))}, nil
	})
}

func firstItem(seq xpeval.Sequence) xpeval.Item {
	if len(seq) == 0 {
		return xpeval.Item{}
	}
	atom := xpeval.Atomize(seq)
	return atom[0]
}

// idRefTokens splits id()'s argument into whitespace-separated IDREF
// tokens per XPath 1.0's definition: a node-set argument contributes each
// of its items' string values, a string argument is itself split on
// whitespace.
func idRefTokens(seq xpeval.Sequence) map[string]bool {
	wanted := map[string]bool{}
	add := func(s string) {
		for _, tok := range strings.Fields(s) {
			wanted[tok] = true
		}
	}
	if len(seq) == 0 {
		return wanted
	}
	if seq[0].Kind == xpeval.NodeItem {
		for _, it := range seq {
			add(xpeval.StringValue(it))
		}
		return wanted
	}
	add(sequenceToString(seq))
	return wanted
}

// idLookup scans tree for elements carrying an "id"-named attribute (no
// DTD is available to name the true ID-typed attribute, so "id" is used
// as the conventional stand-in, the same simplification lightweight XML
// tooling without DTD validation relies on) whose value is one of wanted,
// returning matches in document order.
func idLookup(tree *xdm.Tree, wanted map[string]bool) xpeval.Sequence {
	if len(wanted) == 0 {
		return nil
	}
	var matches []xdm.NodeId
	tree.Iterate(tree.Root(), xdm.DescendantOrSelf, func(id xdm.NodeId) bool {
		if tree.Kind(id) != xdm.ElementNode {
			return true
		}
		tree.Iterate(id, xdm.Attribute, func(a xdm.NodeId) bool {
			if localPart(tree.Name(a)) == "id" && wanted[tree.StringValue(a)] {
				matches = append(matches, id)
			}
			return true
		})
		return true
	})
	matches = tree.SortDocumentOrder(matches)
	out := make(xpeval.Sequence, len(matches))
	for i, id := range matches {
		out[i] = xpeval.Item{Kind: xpeval.NodeItem, Tree: tree, Node: id}
	}
	return out
}

// matchesLang implements lang()'s xml:lang inheritance: the nearest
// xml:lang on the context node or an ancestor must equal want or have it
// as a prefix before a '-' subtag separator.
func matchesLang(ctx xpeval.Item, want string) bool {
	if ctx.Kind != xpeval.NodeItem {
		return false
	}
	tree := ctx.Tree
	for id := ctx.Node; id != xdm.NoNode; id = tree.Parent(id) {
		if tree.Kind(id) != xdm.ElementNode {
			continue
		}
		found := false
		var lang string
		tree.Iterate(id, xdm.Attribute, func(a xdm.NodeId) bool {
			if tree.Name(a) == "xml:lang" {
				lang = strings.ToLower(tree.StringValue(a))
				found = true
			}
			return true
		})
		if found {
			return lang == want || strings.HasPrefix(lang, want+"-")
		}
	}
	return false
}

func localPart(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// xpathSubstring implements substring()'s 1-based, non-integer-tolerant
// slicing rule: the character at 1-based position p is kept when
// round(start) <= p < round(start) + round(length).
func xpathSubstring(s []rune, start, length float64) string {
	if math.IsNaN(start) || math.IsNaN(length) {
		return ""
	}
	first := roundHalfAwayFromZero(start)
	end := first + roundHalfAwayFromZero(length)
	var b strings.Builder
	for i, r := range s {
		pos := float64(i + 1)
		if pos >= first && pos < end {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func roundHalfAwayFromZero(f float64) float64 { return math.Round(f) }
