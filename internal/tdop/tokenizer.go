package tdop

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gogo-agent/xpathlang/xpatherr"
)

// Pseudo-symbols the tokenizer emits for the three lexical categories every
// XPath-family grammar needs beyond its literal operator symbols. A grammar
// registers these with Registry.Literal the same as any other symbol; the
// tokenizer decides which one matched, not the grammar.
const (
	SymName   = "(name)"
	SymNumber = "(number)"
	SymString = "(string)"
	SymEOF    = "(end)"
)

// LexConfig configures the lexical categories layered underneath a
// grammar's registered operator symbols. XPath 1.0 and 2.0 share one
// LexConfig; only the operator symbol set differs between them.
type LexConfig struct {
	// Name matches QNames/NCNames plus the wildcard name-test forms
	// "prefix:*" and "*:local" a path grammar needs; a bare "*" is left to
	// the symbol alternation.
	Name string
	// Number matches numeric literals, e.g. `\d+(\.\d*)?|\.\d+`.
	Number string
	// Comment matches and discards source comments, e.g. XPath's `\(:.*?:\)`.
	// Empty disables comment skipping.
	Comment string
}

// DefaultLexConfig is the lexical shape of XPath 1.0/2.0 names, numbers, and
// comments (XML Names production, XPath NumericLiteral, "(: ... :)"). The
// NCName after an optional prefix may be "*" and the prefix itself may be
// "*", covering all four name-test spellings: ns:local, *, ns:*, *:local.
func DefaultLexConfig() LexConfig {
	return LexConfig{
		Name:    `[A-Za-z_][A-Za-z0-9_.\-]*(:([A-Za-z_][A-Za-z0-9_.\-]*|\*))?|\*:[A-Za-z_][A-Za-z0-9_.\-]*`,
		Number:  `[0-9]+(\.[0-9]*)?|\.[0-9]+`,
		Comment: `\(:.*?:\)`,
	}
}

// tokenizer composes one regular expression whose alternatives are the
// registered operator symbols sorted longest-first (so "//" matches before
// "/" and "<=" before "<"), plus the lexical categories for names, numbers,
// quoted strings, comments, and whitespace. It is built lazily on first use
// and cached on the Registry, since a Registry's symbol set is fixed once
// registration finishes.
type tokenizer struct {
	re       *regexp.Regexp
	groups   []string // subexpression names, index-aligned with re's groups
	symbolIx int      // index (within groups) of the "symbol" alternative
}

func buildTokenizer(symbols []string, cfg LexConfig) *tokenizer {
	// Name-shaped symbols ("and", "div", "count", ...) are left out of the
	// symbol alternation: the name category matches them whole, and
	// tokenFromRaw resolves a name lexeme against the registry first, so a
	// keyword still reaches its registered spec. Including them here would
	// let "count" match the front of an element name like "counter". The
	// lexical-category pseudo-symbols are likewise skipped; "(name)" as an
	// alternative would swallow a real parenthesized step.
	var sorted []string
	for _, s := range symbols {
		switch s {
		case SymName, SymNumber, SymString, SymEOF:
			continue
		}
		if IsNameShaped(s) {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, s := range sorted {
		quoted[i] = regexp.QuoteMeta(s)
	}

	var b strings.Builder
	groups := []string{}
	symbolIx := -1

	addGroup := func(name, pattern string) {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString("(?P<" + name + ">" + pattern + ")")
		groups = append(groups, name)
	}

	addGroup("ws", `[ \t\r\n]+`)
	if cfg.Comment != "" {
		addGroup("comment", cfg.Comment)
	}
	addGroup("string", `"[^"]*"|'[^']*'`)
	if cfg.Number != "" {
		addGroup("number", cfg.Number)
	}
	// The name category is tried before the symbol alternation so a
	// wildcard name test like "*:local" lexes as one name instead of the
	// "*" operator symbol plus an unmatchable ":". The reverse collision
	// cannot happen: name-shaped symbols are excluded from the alternation
	// above, and every remaining symbol starts with punctuation the name
	// pattern cannot begin with (a bare "*" only matches a name when a
	// ":" NCName follows it).
	if cfg.Name != "" {
		addGroup("name", cfg.Name)
	}
	if len(quoted) > 0 {
		symbolIx = len(groups)
		addGroup("symbol", strings.Join(quoted, "|"))
	}

	return &tokenizer{
		re:       regexp.MustCompile("^(?:" + b.String() + ")"),
		groups:   groups,
		symbolIx: symbolIx,
	}
}

// IsNameShaped reports whether s lexes as a single NCName-like token
// (letters, digits, '_', '.', '-' after a letter/underscore head) — the
// shape DefaultLexConfig's Name category matches whole.
func IsNameShaped(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// rawToken is one lexical match: which category it belongs to (its group
// name: "symbol", "name", "number", "string") and the exact source text.
type rawToken struct {
	Category string
	Lexeme   string
	Position Position
}

// tokenize splits source into rawTokens, skipping whitespace and comments,
// and appends a trailing SymEOF marker.
func (tz *tokenizer) tokenize(source string) ([]rawToken, error) {
	var out []rawToken
	pos := Position{Line: 1, Column: 1}
	advancePos := func(s string) {
		for _, r := range s {
			if r == '\n' {
				pos.Line++
				pos.Column = 1
			} else {
				pos.Column++
			}
		}
		pos.Offset += len(s)
	}

	rest := source
	for len(rest) > 0 {
		loc := tz.re.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			return nil, xpatherr.New(xpatherr.XPST0003, pos.Offset,
				"unrecognized input at line %d, column %d: %s", pos.Line, pos.Column, snippet(rest))
		}
		matched := rest[loc[0]:loc[1]]
		names := tz.re.SubexpNames()
		category := ""
		for i := 2; i < len(loc); i += 2 {
			if loc[i] < 0 {
				continue
			}
			if names[i/2] != "" {
				category = names[i/2]
				break
			}
		}
		start := pos
		switch category {
		case "ws", "comment":
			// discarded
		default:
			out = append(out, rawToken{Category: category, Lexeme: matched, Position: start})
		}
		advancePos(matched)
		rest = rest[loc[1]:]
	}
	out = append(out, rawToken{Category: "eof", Lexeme: "", Position: pos})
	return out, nil
}

func snippet(s string) string {
	const max = 24
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
