package sparql

import (
	"fmt"
	"strings"

	"github.com/roach88/sparql-go/rdf"
)

// updateKind fixes an Update's operation at construction.
type updateKind string

const (
	updateInsertData   updateKind = "INSERT DATA"
	updateDeleteData   updateKind = "DELETE DATA"
	updateDeleteWhere  updateKind = "DELETE WHERE"
	updateDeleteInsert updateKind = "MODIFY"
	updateClear        updateKind = "CLEAR"
)

// ClearTarget selects what a CLEAR operation empties.
type ClearTarget string

const (
	ClearDefault ClearTarget = "DEFAULT"
	ClearNamed   ClearTarget = "NAMED"
	ClearAll     ClearTarget = "ALL"
)

// Update builds protocol-conformant update text: INSERT DATA, DELETE DATA,
// DELETE WHERE, combined DELETE/INSERT ... WHERE, and CLEAR. It has no
// execution semantics of its own beyond transport submission; the
// repository adapter consumes the rendered text. Same sticky first-error
// contract as Query.
type Update struct {
	kind     updateKind
	prefixes []string
	graph    rdf.Term

	data     []rdf.Triple // INSERT DATA / DELETE DATA payload
	deletes  []rdf.Triple
	inserts  []rdf.Triple
	wheres   []rdf.Triple
	target   ClearTarget
	clearIRI rdf.IRI
	silent   bool

	err error
}

// InsertData builds an INSERT DATA operation. Statements must be ground;
// use rdf.NewBlankNode for anonymous nodes.
func InsertData(statements ...rdf.Triple) *Update {
	u := &Update{kind: updateInsertData, data: statements}
	u.requireGround("InsertData", statements, true)
	return u
}

// DeleteData builds a DELETE DATA operation. Statements must be ground and
// must not contain blank nodes.
func DeleteData(statements ...rdf.Triple) *Update {
	u := &Update{kind: updateDeleteData, data: statements}
	u.requireGround("DeleteData", statements, false)
	return u
}

// DeleteWhere builds a DELETE WHERE operation from patterns that serve as
// both the match and the delete template.
func DeleteWhere(patterns ...rdf.Triple) *Update {
	u := &Update{kind: updateDeleteWhere, wheres: patterns}
	if len(patterns) == 0 {
		u.fail(ErrCodeInvalidArgument, "DeleteWhere", "requires at least one pattern")
	}
	return u
}

// DeleteInsert builds a combined DELETE { } INSERT { } WHERE { } operation.
// Either template may be empty, but not both; the match patterns come from
// Where.
func DeleteInsert(deletes, inserts []rdf.Triple) *Update {
	u := &Update{kind: updateDeleteInsert, deletes: deletes, inserts: inserts}
	if len(deletes) == 0 && len(inserts) == 0 {
		u.fail(ErrCodeInvalidArgument, "DeleteInsert", "requires a delete or insert template")
	}
	return u
}

// Clear builds a CLEAR GRAPH <iri> operation.
func Clear(graph rdf.IRI) *Update {
	return &Update{kind: updateClear, clearIRI: graph}
}

// ClearTarget builds a CLEAR DEFAULT/NAMED/ALL operation.
func ClearTargetOp(target ClearTarget) *Update {
	u := &Update{kind: updateClear, target: target}
	switch target {
	case ClearDefault, ClearNamed, ClearAll:
	default:
		u.fail(ErrCodeInvalidArgument, "Clear", fmt.Sprintf("unknown clear target %q", target))
	}
	return u
}

func (u *Update) fail(code ErrorCode, op, message string) {
	if u.err == nil {
		u.err = &BuildError{Code: code, Op: "Update." + op, Message: message}
	}
}

func (u *Update) requireGround(op string, statements []rdf.Triple, allowBlank bool) {
	if len(statements) == 0 {
		u.fail(ErrCodeInvalidArgument, op, "requires at least one statement")
		return
	}
	for i, s := range statements {
		if !s.IsGround() {
			u.fail(ErrCodeInvalidTerm, op, fmt.Sprintf("statement %d contains a variable", i))
			return
		}
		if allowBlank {
			continue
		}
		for _, term := range []rdf.Term{s.S, s.P, s.O} {
			if term.Kind() == rdf.TermBlankNode {
				u.fail(ErrCodeInvalidTerm, op, fmt.Sprintf("statement %d contains a blank node", i))
				return
			}
		}
	}
}

// Err returns the first construction error, or nil.
func (u *Update) Err() error { return u.err }

// Where sets the match patterns of a DELETE/INSERT operation.
func (u *Update) Where(patterns ...rdf.Triple) *Update {
	if u.err != nil {
		return u
	}
	if u.kind != updateDeleteInsert {
		u.fail(ErrCodeInvalidArgument, "Where", "only DELETE/INSERT operations take a WHERE clause")
		return u
	}
	u.wheres = append(u.wheres, patterns...)
	return u
}

// Graph scopes the operation to a named graph: data operations wrap their
// payload in GRAPH { }, DELETE/INSERT renders a WITH clause.
func (u *Update) Graph(graph rdf.IRI) *Update {
	if u.err != nil {
		return u
	}
	u.graph = graph
	return u
}

// Silent marks a CLEAR operation as SILENT.
func (u *Update) Silent() *Update {
	if u.err != nil {
		return u
	}
	if u.kind != updateClear {
		u.fail(ErrCodeInvalidArgument, "Silent", "only CLEAR supports the SILENT flag")
		return u
	}
	u.silent = true
	return u
}

// Prefix appends a PREFIX declaration.
func (u *Update) Prefix(name string, iri rdf.IRI) *Update {
	if u.err != nil {
		return u
	}
	u.prefixes = append(u.prefixes, "PREFIX "+name+": "+iri.String())
	return u
}

// Render returns the canonical update text.
func (u *Update) Render() (string, error) {
	if u.err != nil {
		return "", u.err
	}
	var parts []string
	for i := len(u.prefixes) - 1; i >= 0; i-- {
		parts = append(parts, u.prefixes[i])
	}

	switch u.kind {
	case updateInsertData, updateDeleteData:
		parts = append(parts, string(u.kind), renderDataBlock(u.data, u.graph))
	case updateDeleteWhere:
		parts = append(parts, "DELETE", "WHERE", renderTemplate(u.wheres))
	case updateDeleteInsert:
		if u.graph != nil {
			parts = append(parts, "WITH", u.graph.String())
		}
		if len(u.deletes) > 0 {
			parts = append(parts, "DELETE", renderTemplate(u.deletes))
		}
		if len(u.inserts) > 0 {
			parts = append(parts, "INSERT", renderTemplate(u.inserts))
		}
		parts = append(parts, "WHERE", renderTemplate(u.wheres))
	case updateClear:
		parts = append(parts, "CLEAR")
		if u.silent {
			parts = append(parts, "SILENT")
		}
		if u.target != "" {
			parts = append(parts, string(u.target))
		} else {
			parts = append(parts, "GRAPH", u.clearIRI.String())
		}
	}
	return strings.Join(parts, " "), nil
}

func renderDataBlock(statements []rdf.Triple, graph rdf.Term) string {
	inner := renderTemplate(statements)
	if graph == nil {
		return inner
	}
	return "{ GRAPH " + graph.String() + " " + inner + " }"
}

func renderTemplate(triples []rdf.Triple) string {
	segs := []string{"{"}
	for _, t := range triples {
		segs = append(segs, renderPattern(t), ".")
	}
	segs = append(segs, "}")
	return strings.Join(segs, " ")
}
