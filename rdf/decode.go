package rdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError reports a syntax error in a graph serialization.
type ParseError struct {
	// Line is the 1-based line number of the offending input.
	Line int
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("rdf: parse error at line %d: %s", e.Line, e.Message)
}

// DecodeGraph parses an N-Triples or Turtle document into a list of
// triples. The Turtle support covers what SPARQL endpoints emit for
// CONSTRUCT and DESCRIBE results: prefix and base directives, prefixed
// names, the "a" shorthand, predicate-object lists with ";" and ",",
// numeric and boolean literal abbreviations, long strings, and anonymous
// blank nodes with property lists. RDF collections are not supported.
func DecodeGraph(r io.Reader) ([]Triple, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rdf: read graph body: %w", err)
	}
	d := &decoder{
		in:       string(data),
		line:     1,
		prefixes: map[string]string{},
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.triples, nil
}

// ParseTerm parses a single term in N-Triples syntax, as found in
// tab-separated result cells: an IRI, a blank node label, or a literal
// with optional language tag or datatype.
func ParseTerm(s string) (Term, error) {
	d := &decoder{in: s, line: 1, prefixes: map[string]string{}}
	d.skipWS()
	term, err := d.parseObject()
	if err != nil {
		return nil, err
	}
	d.skipWS()
	if d.pos != len(d.in) {
		return nil, d.errorf("trailing input after term")
	}
	return term, nil
}

type decoder struct {
	in       string
	pos      int
	line     int
	prefixes map[string]string
	base     string
	triples  []Triple
	bnodeSeq int
}

func (d *decoder) errorf(format string, args ...any) error {
	return &ParseError{Line: d.line, Message: fmt.Sprintf(format, args...)}
}

func (d *decoder) run() error {
	for {
		d.skipWS()
		if d.pos >= len(d.in) {
			return nil
		}
		if err := d.parseStatement(); err != nil {
			return err
		}
	}
}

func (d *decoder) parseStatement() error {
	switch {
	case d.hasPrefix("@prefix"):
		d.pos += len("@prefix")
		if err := d.parsePrefixDirective(); err != nil {
			return err
		}
		return d.expect('.')
	case d.hasKeyword("PREFIX"):
		d.pos += len("PREFIX")
		return d.parsePrefixDirective()
	case d.hasPrefix("@base"):
		d.pos += len("@base")
		if err := d.parseBaseDirective(); err != nil {
			return err
		}
		return d.expect('.')
	case d.hasKeyword("BASE"):
		d.pos += len("BASE")
		return d.parseBaseDirective()
	}

	subject, err := d.parseSubject()
	if err != nil {
		return err
	}
	if err := d.parsePredicateObjectList(subject); err != nil {
		return err
	}
	return d.expect('.')
}

func (d *decoder) parsePrefixDirective() error {
	d.skipWS()
	colon := strings.IndexByte(d.in[d.pos:], ':')
	if colon < 0 {
		return d.errorf("prefix directive missing ':'")
	}
	name := d.in[d.pos : d.pos+colon]
	d.pos += colon + 1
	d.skipWS()
	iri, err := d.parseIRIRef()
	if err != nil {
		return err
	}
	d.prefixes[name] = iri.Value
	return nil
}

func (d *decoder) parseBaseDirective() error {
	d.skipWS()
	iri, err := d.parseIRIRef()
	if err != nil {
		return err
	}
	d.base = iri.Value
	return nil
}

func (d *decoder) parsePredicateObjectList(subject Term) error {
	for {
		d.skipWS()
		predicate, err := d.parsePredicate()
		if err != nil {
			return err
		}
		for {
			d.skipWS()
			object, err := d.parseObject()
			if err != nil {
				return err
			}
			d.triples = append(d.triples, Triple{S: subject, P: predicate, O: object})
			d.skipWS()
			if !d.consume(',') {
				break
			}
		}
		if !d.consume(';') {
			return nil
		}
		d.skipWS()
		// Turtle permits a trailing semicolon before the closing dot/bracket.
		if d.pos < len(d.in) && (d.in[d.pos] == '.' || d.in[d.pos] == ']') {
			return nil
		}
	}
}

func (d *decoder) parseSubject() (Term, error) {
	d.skipWS()
	if d.pos >= len(d.in) {
		return nil, d.errorf("unexpected end of input, expected subject")
	}
	switch d.in[d.pos] {
	case '<':
		return d.parseIRIRef()
	case '_':
		return d.parseBlankNodeLabel()
	case '[':
		return d.parseBlankNodePropertyList()
	case '(':
		return nil, d.errorf("RDF collections are not supported")
	default:
		return d.parsePrefixedName()
	}
}

func (d *decoder) parsePredicate() (Term, error) {
	if d.pos >= len(d.in) {
		return nil, d.errorf("unexpected end of input, expected predicate")
	}
	if d.in[d.pos] == 'a' && d.pos+1 < len(d.in) && isWhitespace(d.in[d.pos+1]) {
		d.pos++
		return Type, nil
	}
	if d.in[d.pos] == '<' {
		return d.parseIRIRef()
	}
	return d.parsePrefixedName()
}

func (d *decoder) parseObject() (Term, error) {
	if d.pos >= len(d.in) {
		return nil, d.errorf("unexpected end of input, expected object")
	}
	switch c := d.in[d.pos]; {
	case c == '<':
		return d.parseIRIRef()
	case c == '_':
		return d.parseBlankNodeLabel()
	case c == '[':
		return d.parseBlankNodePropertyList()
	case c == '(':
		return nil, d.errorf("RDF collections are not supported")
	case c == '"' || c == '\'':
		return d.parseLiteral()
	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		return d.parseNumericLiteral()
	case d.hasKeyword("true"):
		d.pos += len("true")
		return Literal{Lexical: "true", Datatype: XSDBoolean}, nil
	case d.hasKeyword("false"):
		d.pos += len("false")
		return Literal{Lexical: "false", Datatype: XSDBoolean}, nil
	default:
		return d.parsePrefixedName()
	}
}

func (d *decoder) parseIRIRef() (IRI, error) {
	if d.pos >= len(d.in) || d.in[d.pos] != '<' {
		return IRI{}, d.errorf("expected '<'")
	}
	end := strings.IndexByte(d.in[d.pos+1:], '>')
	if end < 0 {
		return IRI{}, d.errorf("unterminated IRI")
	}
	raw := d.in[d.pos+1 : d.pos+1+end]
	d.pos += end + 2
	value, err := unescape(raw)
	if err != nil {
		return IRI{}, d.errorf("invalid IRI escape: %v", err)
	}
	return IRI{Value: d.resolve(value)}, nil
}

// resolve applies the base IRI to relative references. Only the simple
// cases endpoints emit are handled: scheme-carrying IRIs pass through,
// anything else concatenates onto the base.
func (d *decoder) resolve(iri string) string {
	if d.base == "" || strings.Contains(iri, ":") {
		return iri
	}
	return d.base + iri
}

func (d *decoder) parseBlankNodeLabel() (Term, error) {
	if !strings.HasPrefix(d.in[d.pos:], "_:") {
		return nil, d.errorf("expected blank node label")
	}
	d.pos += 2
	start := d.pos
	for d.pos < len(d.in) && isNameChar(d.in[d.pos]) {
		d.pos++
	}
	if d.pos == start {
		return nil, d.errorf("empty blank node label")
	}
	return BlankNode{ID: d.in[start:d.pos]}, nil
}

func (d *decoder) parseBlankNodePropertyList() (Term, error) {
	d.pos++ // consume '['
	node := BlankNode{ID: fmt.Sprintf("anon%d", d.bnodeSeq)}
	d.bnodeSeq++
	d.skipWS()
	if d.consume(']') {
		return node, nil
	}
	if err := d.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	d.skipWS()
	if !d.consume(']') {
		return nil, d.errorf("unterminated blank node property list")
	}
	return node, nil
}

func (d *decoder) parsePrefixedName() (Term, error) {
	start := d.pos
	for d.pos < len(d.in) && d.in[d.pos] != ':' && isNameChar(d.in[d.pos]) {
		d.pos++
	}
	if d.pos >= len(d.in) || d.in[d.pos] != ':' {
		return nil, d.errorf("expected prefixed name near %q", excerpt(d.in, start))
	}
	prefix := d.in[start:d.pos]
	d.pos++
	ns, ok := d.prefixes[prefix]
	if !ok {
		return nil, d.errorf("undeclared prefix %q", prefix)
	}
	localStart := d.pos
	for d.pos < len(d.in) && isLocalChar(d.in[d.pos]) {
		d.pos++
	}
	return IRI{Value: ns + d.in[localStart:d.pos]}, nil
}

func (d *decoder) parseLiteral() (Term, error) {
	lexical, err := d.parseString()
	if err != nil {
		return nil, err
	}
	lit := Literal{Lexical: lexical}
	switch {
	case d.pos < len(d.in) && d.in[d.pos] == '@':
		d.pos++
		start := d.pos
		for d.pos < len(d.in) && (isNameChar(d.in[d.pos]) || d.in[d.pos] == '-') {
			d.pos++
		}
		if d.pos == start {
			return nil, d.errorf("empty language tag")
		}
		lit.Lang = d.in[start:d.pos]
	case strings.HasPrefix(d.in[d.pos:], "^^"):
		d.pos += 2
		var dt Term
		if d.pos < len(d.in) && d.in[d.pos] == '<' {
			dt, err = d.parseIRIRef()
		} else {
			dt, err = d.parsePrefixedName()
		}
		if err != nil {
			return nil, err
		}
		lit.Datatype = dt.(IRI)
	}
	return lit, nil
}

func (d *decoder) parseString() (string, error) {
	quote := d.in[d.pos]
	long := strings.HasPrefix(d.in[d.pos:], strings.Repeat(string(quote), 3))
	delim := string(quote)
	if long {
		delim = strings.Repeat(string(quote), 3)
	}
	d.pos += len(delim)
	var b strings.Builder
	for d.pos < len(d.in) {
		if strings.HasPrefix(d.in[d.pos:], delim) {
			d.pos += len(delim)
			return unescape(b.String())
		}
		c := d.in[d.pos]
		if c == '\\' && d.pos+1 < len(d.in) {
			b.WriteByte(c)
			b.WriteByte(d.in[d.pos+1])
			d.pos += 2
			continue
		}
		if c == '\n' {
			if !long {
				return "", d.errorf("unescaped newline in string")
			}
			d.line++
		}
		b.WriteByte(c)
		d.pos++
	}
	return "", d.errorf("unterminated string literal")
}

func (d *decoder) parseNumericLiteral() (Term, error) {
	start := d.pos
	if d.in[d.pos] == '+' || d.in[d.pos] == '-' {
		d.pos++
	}
	dots, exp := 0, false
	for d.pos < len(d.in) {
		c := d.in[d.pos]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !exp:
			// A dot followed by a non-digit terminates the statement instead.
			if d.pos+1 >= len(d.in) || d.in[d.pos+1] < '0' || d.in[d.pos+1] > '9' {
				goto done
			}
			dots++
		case (c == 'e' || c == 'E') && !exp:
			exp = true
		case (c == '+' || c == '-') && exp && (d.in[d.pos-1] == 'e' || d.in[d.pos-1] == 'E'):
		default:
			goto done
		}
		d.pos++
	}
done:
	lex := d.in[start:d.pos]
	if lex == "" || lex == "+" || lex == "-" {
		return nil, d.errorf("malformed numeric literal")
	}
	switch {
	case exp:
		return Literal{Lexical: lex, Datatype: XSDDouble}, nil
	case dots > 0:
		return Literal{Lexical: lex, Datatype: XSDDecimal}, nil
	default:
		return Literal{Lexical: lex, Datatype: XSDInteger}, nil
	}
}

func (d *decoder) expect(c byte) error {
	d.skipWS()
	if !d.consume(c) {
		return d.errorf("expected %q", string(c))
	}
	return nil
}

func (d *decoder) consume(c byte) bool {
	if d.pos < len(d.in) && d.in[d.pos] == c {
		d.pos++
		return true
	}
	return false
}

func (d *decoder) hasPrefix(s string) bool {
	return strings.HasPrefix(d.in[d.pos:], s)
}

// hasKeyword matches a case-sensitive keyword followed by a non-name byte.
func (d *decoder) hasKeyword(kw string) bool {
	if !strings.HasPrefix(d.in[d.pos:], kw) {
		return false
	}
	next := d.pos + len(kw)
	return next >= len(d.in) || !isNameChar(d.in[next])
}

func (d *decoder) skipWS() {
	for d.pos < len(d.in) {
		c := d.in[d.pos]
		switch {
		case c == '\n':
			d.line++
			d.pos++
		case isWhitespace(c):
			d.pos++
		case c == '#':
			for d.pos < len(d.in) && d.in[d.pos] != '\n' {
				d.pos++
			}
		default:
			return
		}
	}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c >= 0x80
}

func isLocalChar(c byte) bool {
	return isNameChar(c) || c == '-' || c == '.'
}

func excerpt(s string, pos int) string {
	end := pos + 20
	if end > len(s) {
		end = len(s)
	}
	return s[pos:end]
}

// unescape resolves the N-Triples escape sequences \t \b \n \r \f \" \'
// \\ and the \uXXXX / \UXXXXXXXX numeric escapes.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling backslash")
		}
		switch e := s[i+1]; e {
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case '"', '\'', '\\':
			b.WriteByte(e)
			i += 2
		case 'u', 'U':
			width := 4
			if e == 'U' {
				width = 8
			}
			if i+2+width > len(s) {
				return "", fmt.Errorf("truncated \\%c escape", e)
			}
			code, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid \\%c escape: %w", e, err)
			}
			if !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("escape out of unicode range")
			}
			b.WriteRune(rune(code))
			i += 2 + width
		default:
			return "", fmt.Errorf("unknown escape \\%c", e)
		}
	}
	return b.String(), nil
}
