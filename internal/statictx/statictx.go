// Package statictx implements the XPath static context:
// namespaces, in-scope variables, an optional schema proxy, and the
// default element/function namespaces XPath 2.0 adds.
package statictx

import (
	"sync"

	"github.com/gogo-agent/xpathlang/schema"
)

// SequenceType is a minimal occurrence-indicator-qualified item type,
// e.g. "element()*", "xs:integer?". The core does not need to parse
// sequence-type syntax beyond what static variable declarations and
// function signatures carry, so this stays a plain string wrapper rather
// than a parsed type algebra.
type SequenceType string

const (
	AnyItem   SequenceType = "item()*"
	AnyAtomic SequenceType = "xs:anyAtomicType"
)

// Context is the compile-time configuration attached to a parser. It is
// mutated only during parser construction/registration and is read-only
// for the remainder of a parse, the same single-owner discipline the
// parser itself follows.
type Context struct {
	mu sync.RWMutex

	namespaces map[string]string // prefix -> URI, including implicit "xml"

	defaultElementNamespace  string // XPath 2.0+
	defaultFunctionNamespace string // XPath 2.0+

	variables map[string]SequenceType // QName -> declared sequence type

	schema schema.Proxy

	// CompatibilityMode runs an XPath 2.0 parser in XPath 1.0 compatibility
	// mode: the relational general comparisons (<, <=, >, >=) numerically
	// coerce both operands the way XPath 1.0 does, instead of ordering two
	// strings by code-point comparison.
	CompatibilityMode bool
}

// New builds a Context with the implicit "xml" namespace binding and the
// XPath 2.0 default function namespace, seeded before any caller-supplied namespaces are added.
func New() *Context {
	return &Context{
		namespaces: map[string]string{
			"xml": "http://www.w3.org/XML/1998/namespace",
		},
		defaultFunctionNamespace: "http://www.w3.org/2005/xpath-functions",
		variables:                map[string]SequenceType{},
	}
}

// DeclareNamespace binds prefix to uri. An empty prefix is stored like any
// other; unprefixed name tests resolve against DefaultElementNamespace,
// which only SetDefaultElementNamespace changes.
func (c *Context) DeclareNamespace(prefix, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[prefix] = uri
}

// Namespace resolves prefix to a URI, reporting ok=false for an unbound
// prefix (the caller raises XPST0081).
func (c *Context) Namespace(prefix string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uri, ok := c.namespaces[prefix]
	return uri, ok
}

// SetDefaultElementNamespace sets the namespace unprefixed element name
// tests resolve against in XPath 2.0+.
func (c *Context) SetDefaultElementNamespace(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultElementNamespace = uri
}

func (c *Context) DefaultElementNamespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultElementNamespace
}

// SetDefaultFunctionNamespace sets the namespace unprefixed function calls
// resolve against.
func (c *Context) SetDefaultFunctionNamespace(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultFunctionNamespace = uri
}

func (c *Context) DefaultFunctionNamespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultFunctionNamespace
}

// DeclareVariable registers an in-scope variable's static sequence type, so
// a $var reference can be statically type-checked before any dynamic
// context exists.
func (c *Context) DeclareVariable(qname string, t SequenceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[qname] = t
}

// VariableType looks up a statically declared variable's type.
func (c *Context) VariableType(qname string) (SequenceType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.variables[qname]
	return t, ok
}

// SetSchema attaches a schema proxy and lets it seed
// constructor functions / schema-aware types against the owning parser via
// schema.ParserBinder.
func (c *Context) SetSchema(p schema.Proxy, binder schema.ParserBinder) {
	c.mu.Lock()
	c.schema = p
	c.mu.Unlock()
	if p != nil && binder != nil {
		p.BindParser(binder)
	}
}

// Schema returns the attached schema proxy, or nil.
func (c *Context) Schema() schema.Proxy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema
}
