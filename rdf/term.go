package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known vocabulary IRIs.
const (
	xsdNS  = "http://www.w3.org/2001/XMLSchema#"
	rdfNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNS = "http://www.w3.org/2000/01/rdf-schema#"
)

// XSD datatype IRIs used by the typed-literal constructors.
var (
	XSDString   = IRI{xsdNS + "string"}
	XSDInteger  = IRI{xsdNS + "integer"}
	XSDDecimal  = IRI{xsdNS + "decimal"}
	XSDDouble   = IRI{xsdNS + "double"}
	XSDBoolean  = IRI{xsdNS + "boolean"}
	XSDDateTime = IRI{xsdNS + "dateTime"}

	// Type is the rdf:type predicate. The serializer abbreviates it to "a".
	Type = IRI{rdfNS + "type"}

	// LangString is the datatype of language-tagged literals.
	LangString = IRI{rdfNS + "langString"}
)

// TermKind identifies term types.
type TermKind uint8

const (
	// TermIRI represents an IRI term.
	TermIRI TermKind = iota
	// TermBlankNode represents a blank node term.
	TermBlankNode
	// TermLiteral represents a literal term.
	TermLiteral
	// TermVariable represents a query variable.
	TermVariable
)

// Term is a value that can appear in a triple pattern or a solution.
// String returns the term in SPARQL surface syntax.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI represents an IRI term.
type IRI struct {
	// Value is the IRI string, without angle brackets.
	Value string
}

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

// String returns the IRI wrapped in angle brackets.
func (i IRI) String() string { return "<" + i.Value + ">" }

// BlankNode represents a blank node term.
type BlankNode struct {
	// ID is the blank node label, without the "_:" prefix.
	ID string
}

// NewBlankNode returns a blank node with a generated, collision-free label.
// Used by the update builder when statements introduce anonymous nodes.
func NewBlankNode() BlankNode {
	return BlankNode{ID: "b" + strings.ReplaceAll(uuid.NewString(), "-", "")}
}

// Kind returns TermBlankNode.
func (b BlankNode) Kind() TermKind { return TermBlankNode }

// String returns the label prefixed with "_:".
func (b BlankNode) String() string { return "_:" + b.ID }

// Variable represents a query variable.
type Variable struct {
	// Name is the variable name, without the "?" prefix.
	Name string
}

// Var is shorthand for Variable{Name: name}.
func Var(name string) Variable { return Variable{Name: name} }

// Kind returns TermVariable.
func (v Variable) Kind() TermKind { return TermVariable }

// String returns the name prefixed with "?".
func (v Variable) String() string { return "?" + v.Name }

// Literal represents a literal term.
type Literal struct {
	// Lexical is the lexical form.
	Lexical string
	// Datatype is the datatype IRI. Zero value means a plain literal.
	Datatype IRI
	// Lang is the language tag, if any.
	Lang string
}

// NewLiteral builds a typed literal from a Go value. Strings map to
// xsd:string, integers to xsd:integer, floats to xsd:double, booleans to
// xsd:boolean, and time.Time to xsd:dateTime. A Literal passes through
// unchanged. Unsupported types fall back to an xsd:string of the value's
// default formatting.
func NewLiteral(value any) Literal {
	switch v := value.(type) {
	case Literal:
		return v
	case string:
		return Literal{Lexical: v, Datatype: XSDString}
	case int:
		return Literal{Lexical: strconv.Itoa(v), Datatype: XSDInteger}
	case int64:
		return Literal{Lexical: strconv.FormatInt(v, 10), Datatype: XSDInteger}
	case float64:
		return Literal{Lexical: strconv.FormatFloat(v, 'g', -1, 64), Datatype: XSDDouble}
	case bool:
		return Literal{Lexical: strconv.FormatBool(v), Datatype: XSDBoolean}
	case time.Time:
		return Literal{Lexical: v.Format(time.RFC3339), Datatype: XSDDateTime}
	default:
		return Literal{Lexical: fmt.Sprint(v), Datatype: XSDString}
	}
}

// LangLiteral builds a language-tagged literal.
func LangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: lexical, Lang: lang}
}

// PlainLiteral builds a literal with no datatype and no language tag.
// Delimited-text result formats carry no type metadata, so their cells
// decode to plain literals.
func PlainLiteral(lexical string) Literal {
	return Literal{Lexical: lexical}
}

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

// String returns the literal in SPARQL surface syntax. The lexical form is
// escaped; a datatype renders as ^^<iri> even for xsd:string, since some
// endpoints do not treat untyped strings as xsd:string.
func (l Literal) String() string {
	quoted := `"` + escapeLiteral(l.Lexical) + `"`
	switch {
	case l.Lang != "":
		return quoted + "@" + l.Lang
	case l.Datatype.Value != "":
		return quoted + "^^" + l.Datatype.String()
	default:
		return quoted
	}
}

// escapeLiteral escapes the characters N-Triples requires escaping inside
// a double-quoted lexical form.
func escapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Triple is a statement or pattern. Any position may hold a Variable when
// the triple is used as a pattern; decoded graph statements contain only
// IRIs, blank nodes, and literals.
type Triple struct {
	S Term
	P Term
	O Term
}

// T is shorthand for building a triple pattern.
func T(s, p, o Term) Triple { return Triple{S: s, P: p, O: o} }

// IsGround reports whether the triple contains no variables.
func (t Triple) IsGround() bool {
	for _, term := range []Term{t.S, t.P, t.O} {
		if term == nil || term.Kind() == TermVariable {
			return false
		}
	}
	return true
}

// String renders the triple in SPARQL surface syntax without the
// terminating dot.
func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String()
}
