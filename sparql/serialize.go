package sparql

import (
	"strconv"
	"strings"

	"github.com/roach88/sparql-go/rdf"
)

// serialize renders a constructed query to protocol text. It is a pure
// function over the AST; construction already validated every input, so
// rendering cannot fail.
//
// Emission order is fixed: prefixes (reverse declaration order), form
// keyword, projection or template, FROM clauses, WHERE group, GROUP BY,
// ORDER BY, OFFSET, LIMIT.
func serialize(q *Query) string {
	var parts []string

	// Each declaration is prepended in front of the form keyword, so the
	// final text carries them in reverse declaration order.
	for i := len(q.prefixes) - 1; i >= 0; i-- {
		parts = append(parts, q.prefixes[i])
	}

	switch q.form {
	case FormAsk:
		parts = append(parts, "ASK")
	case FormSelect:
		parts = append(parts, "SELECT")
		if kw := q.setKeyword(); kw != "" {
			parts = append(parts, kw)
		}
		parts = append(parts, q.renderProjection())
	case FormDescribe:
		parts = append(parts, "DESCRIBE")
		if kw := q.setKeyword(); kw != "" {
			parts = append(parts, kw)
		}
		parts = append(parts, q.renderProjection())
	case FormConstruct:
		parts = append(parts, "CONSTRUCT", "{")
		for _, t := range q.template {
			parts = append(parts, renderPattern(t), ".")
		}
		parts = append(parts, "}")
	}

	for _, g := range q.froms {
		parts = append(parts, "FROM", g.String())
	}

	parts = append(parts, "WHERE", renderGroup(q))

	if len(q.groupBy) > 0 {
		parts = append(parts, "GROUP", "BY")
		for _, e := range q.groupBy {
			parts = append(parts, e.render())
		}
	}
	if len(q.orderBy) > 0 {
		parts = append(parts, "ORDER", "BY")
		for _, e := range q.orderBy {
			parts = append(parts, e.render())
		}
	}

	// OFFSET before LIMIT, independent of call order.
	if q.hasOffset {
		parts = append(parts, "OFFSET", strconv.Itoa(q.offset))
	}
	if q.hasLimit {
		parts = append(parts, "LIMIT", strconv.Itoa(q.limit))
	}

	return strings.Join(parts, " ")
}

// setKeyword returns the DISTINCT/REDUCED keyword, suppressed when the
// projection consists of aggregates only (the aggregate carries its own
// DISTINCT).
func (q *Query) setKeyword() string {
	if len(q.projection) > 0 {
		aggregatesOnly := true
		for _, p := range q.projection {
			if _, ok := p.(Aggregate); !ok {
				aggregatesOnly = false
				break
			}
		}
		if aggregatesOnly {
			return ""
		}
	}
	switch {
	case q.distinct:
		return "DISTINCT"
	case q.reduced:
		return "REDUCED"
	default:
		return ""
	}
}

// renderProjection renders the projection list, or "*" when empty
// (project all bound variables).
func (q *Query) renderProjection() string {
	if len(q.projection) == 0 {
		return "*"
	}
	rendered := make([]string, len(q.projection))
	for i, p := range q.projection {
		switch v := p.(type) {
		case Aggregate:
			rendered[i] = v.render()
		case rdf.Term:
			rendered[i] = v.String()
		}
	}
	return strings.Join(rendered, " ")
}

func (a Aggregate) render() string {
	arg := "*"
	if a.Arg != nil {
		arg = a.Arg.String()
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return "(" + a.Fn + "(" + arg + ") AS " + a.As.String() + ")"
}

func (e orderEntry) render() string {
	if !e.directed {
		return e.v.String()
	}
	return string(e.dir) + "(" + e.v.String() + ")"
}

// renderGroup renders a query's group graph pattern, braces included.
// Nested sub-queries come first, then the group's own patterns, optional
// blocks, filters, service blocks, and the VALUES table. A graph selector
// wraps all of those; MINUS blocks follow the graph wrapper but stay
// inside the group. Union branches concatenate after the closing brace.
func renderGroup(q *Query) string {
	segs := []string{"{"}

	if q.graph != nil {
		segs = append(segs, "GRAPH", q.graph.String(), "{")
	}

	for _, sub := range q.subqueries {
		segs = append(segs, "{", serialize(sub), "}", ".")
	}
	for _, p := range q.patterns {
		segs = append(segs, renderPattern(p), ".")
	}
	for _, opt := range q.optionals {
		segs = append(segs, "OPTIONAL", "{")
		for _, p := range opt.patterns {
			segs = append(segs, renderPattern(p), ".")
		}
		for _, f := range opt.filters {
			segs = append(segs, "FILTER("+f+")")
		}
		segs = append(segs, "}")
	}
	for _, f := range q.filters {
		segs = append(segs, "FILTER("+f+")")
	}
	for _, s := range q.services {
		segs = append(segs, "SERVICE")
		if s.silent {
			segs = append(segs, "SILENT")
		}
		segs = append(segs, s.endpoint.String(), renderGroup(s.query))
	}
	if q.values != nil {
		segs = append(segs, "VALUES", renderVarList(q.values.vars), "{")
		for _, row := range q.values.rows {
			segs = append(segs, renderValueRow(row))
		}
		segs = append(segs, "}")
	}

	if q.graph != nil {
		segs = append(segs, "}")
	}

	for _, m := range q.minuses {
		segs = append(segs, "MINUS", renderGroup(m))
	}

	segs = append(segs, "}")
	text := strings.Join(segs, " ")

	// Union branches replace the group's terminal position; they are always
	// the last clause appended.
	for _, u := range q.unions {
		text += " UNION " + renderGroup(u)
	}
	return text
}

// renderPattern renders a triple pattern without the terminating dot,
// abbreviating the rdf:type predicate to "a".
func renderPattern(t rdf.Triple) string {
	p := t.P.String()
	if iri, ok := t.P.(rdf.IRI); ok && iri == rdf.Type {
		p = "a"
	}
	return t.S.String() + " " + p + " " + t.O.String()
}

func renderVarList(vars []rdf.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return "(" + strings.Join(names, " ") + ")"
}

func renderValueRow(row []valueCell) string {
	cells := make([]string, len(row))
	for i, c := range row {
		if c.unbound {
			cells[i] = "UNDEF"
		} else {
			cells[i] = c.term.String()
		}
	}
	return "(" + strings.Join(cells, " ") + ")"
}
