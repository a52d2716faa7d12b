package domtree

import (
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"
)

// BuildOptions configures how Parse turns an XML byte stream into a Node
// tree.
type BuildOptions struct {
	// PreserveTails keeps element tail text (lxml-style) as a Tail() value
	// on the preceding sibling rather than folding it into the next text
	// node. Defaults to true: tails are preserved where the text model
	// exposes them.
	PreserveTails bool
	// CharsetReader, if non-nil, decodes XML input from a non-UTF-8 charset
	// via golang.org/x/text/encoding/ianaindex.
	CharsetReader func(charset string, input io.Reader) (io.Reader, error)
}

// DefaultBuildOptions returns the conventional options: tails preserved,
// charsets resolved through ianaindex.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		PreserveTails: true,
		CharsetReader: ianaCharsetReader,
	}
}

// ianaCharsetReader adapts golang.org/x/text/encoding/ianaindex to the
// encoding/xml.Decoder.CharsetReader signature.
func ianaCharsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("domtree: unknown charset %q: %w", charset, err)
	}
	if enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

// Parse decodes r as an XML document and builds a read-only Document
// over it.
func Parse(r io.Reader, opts BuildOptions) (Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = opts.CharsetReader

	var root *node
	var stack []*node
	var topLevel []Node

	appendChild := func(parent *node, child Node) {
		if parent == nil {
			topLevel = append(topLevel, child)
			return
		}
		if cn, ok := child.(*node); ok {
			cn.parent = parent
		} else if an, ok := child.(*attrNode); ok {
			an.owner = parent
		}
		parent.children = append(parent.children, child)
	}

	current := func() *node {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		// RawToken, unlike Token, leaves Name.Space holding the literal
		// prefix text written in the source (translate() never runs), so
		// qname can recover the real "ns:local"/"xml:lang" spelling instead
		// of Token's already-resolved namespace URI.
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("domtree: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			order := make([]string, 0, len(t.Attr))
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				name := qname(a.Name)
				order = append(order, name)
				attrs[name] = a.Value
			}
			n := &node{kind: ElementKind, tag: qname(t.Name), attrs: attrs, attrOrder: order}
			appendChild(current(), n)
			stack = append(stack, n)
			if root == nil {
				root = n
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			text := string(t)
			parent := current()
			if parent == nil {
				// Character data outside the root element is, at most,
				// inter-markup whitespace; it has no place in the tree.
				continue
			}
			if len(parent.children) > 0 {
				switch last := parent.children[len(parent.children)-1].(type) {
				case *node:
					if last.kind == TextKind {
						last.text += text
						continue
					}
					if opts.PreserveTails && last.kind == ElementKind {
						last.tail += text
						continue
					}
				}
			}
			appendChild(parent, &node{kind: TextKind, text: text})
		case xml.Comment:
			appendChild(current(), &node{kind: CommentKind, text: string(t)})
		case xml.ProcInst:
			appendChild(current(), &node{kind: ProcessingInstructionKind, tag: t.Target, text: string(t.Inst)})
		}
	}

	if root == nil {
		return nil, fmt.Errorf("domtree: no root element")
	}

	doc := &document{root: root, topLevel: topLevel}
	attachDoc(root, nil, doc)
	for _, t := range topLevel {
		attachDoc(t, nil, doc)
	}
	return doc, nil
}

// qname rebuilds the lexical "prefix:local" spelling from a RawToken's
// xml.Name. RawToken leaves Space as whatever prefix text preceded the
// colon in the source (or "" for an unprefixed name), so this is a literal
// reassembly rather than a resolution against any declared binding —
// resolving "prefix" to a namespace URI is internal/statictx's job.
func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
