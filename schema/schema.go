// Package schema defines the abstract schema-proxy capability the XPath 2.0
// parser can be seeded with. The core performs no XSD
// parsing itself; an external XSD processor implements this interface.
package schema

// Type describes a schema (XSD) type as seen by the static context: enough
// to drive instance-of/castable/cast-as checks and constructor-function
// registration without the core depending on any XSD library.
type Type struct {
	Name      string
	Namespace string
	Primitive string // the primitive type this type derives from, e.g. "xs:decimal"
	ListType  bool
	UnionType bool
}

// Attribute describes a schema attribute declaration.
type Attribute struct {
	Name string
	Type Type
}

// Element describes a schema element declaration, including enough particle
// structure for SchemaElementNode traversal during static analysis.
type Element struct {
	Name     string
	Type     Type
	Children []Element
	Nillable bool
}

// Proxy is the capability set the XPath 2.0 parser depends on. Implementations
// may be backed by any XSD processor; the core only ever calls through this
// interface.
type Proxy interface {
	// GetType resolves a QName to its schema type, or ok=false if undeclared.
	GetType(namespace, localName string) (Type, bool)
	// GetAttribute resolves a global attribute declaration.
	GetAttribute(namespace, localName string) (Attribute, bool)
	// GetElement resolves a global element declaration.
	GetElement(namespace, localName string) (Element, bool)
	// IsInstance reports whether value, typed as fromType, is an instance of toType.
	IsInstance(value interface{}, fromType, toType Type) bool
	// CastAs converts value from its current type to toType, following XPath
	// 2.0 casting rules; it returns an error the caller maps to FORG0001/FOCA0002.
	CastAs(value interface{}, toType Type) (interface{}, error)
	// IterAtomicTypes yields every atomic type the schema makes available.
	// Nothing in this module calls it; no constructor functions are built
	// from it.
	IterAtomicTypes() []Type
	// GetPrimitiveType returns the XSD primitive type backing t.
	GetPrimitiveType(t Type) Type
	// BindParser hands the proxy a ParserBinder to register constructor
	// functions against. statictx.Context.SetSchema calls it only when given
	// a non-nil binder; the Selector facade passes none, so selectors never
	// call it.
	BindParser(p ParserBinder)
}

// ParserBinder is the minimal surface of a parser a Proxy needs to register
// constructor functions against, without the schema package depending on
// internal/tdop or internal/xpath2 (which would create an import cycle).
type ParserBinder interface {
	RegisterConstructor(namespace, localName string, fn func(args []interface{}) (interface{}, error))
}
