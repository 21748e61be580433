package sparql

import (
	"errors"
	"fmt"

	"github.com/roach88/sparql-go/rdf"
)

// ErrResultKind is returned by a Result accessor that does not match the
// populated variant.
var ErrResultKind = errors.New("sparql: result kind mismatch")

// ResultKind identifies which variant of a Result is populated.
type ResultKind uint8

const (
	// KindBoolean holds the outcome of an ask query.
	KindBoolean ResultKind = iota
	// KindSolutions holds a solution sequence from a select query.
	KindSolutions
	// KindGraph holds statements from a construct or describe query.
	KindGraph
)

// Solution maps variable names (without the "?" prefix) to bound terms.
// Unbound variables are absent from the map.
type Solution map[string]rdf.Term

// Result is the uniform decoded outcome of a query: exactly one variant
// is populated, determined by the originating query's form, never by the
// wire format the endpoint chose.
type Result struct {
	kind      ResultKind
	boolean   bool
	vars      []string
	solutions []Solution
	graph     []rdf.Triple
}

// NewBooleanResult builds an ask result.
func NewBooleanResult(value bool) *Result {
	return &Result{kind: KindBoolean, boolean: value}
}

// NewSolutionsResult builds a select result. vars preserves the wire-format
// variable order.
func NewSolutionsResult(vars []string, solutions []Solution) *Result {
	return &Result{kind: KindSolutions, vars: vars, solutions: solutions}
}

// NewGraphResult builds a construct/describe result.
func NewGraphResult(statements []rdf.Triple) *Result {
	return &Result{kind: KindGraph, graph: statements}
}

// Kind returns the populated variant.
func (r *Result) Kind() ResultKind { return r.kind }

// Boolean returns the ask outcome.
func (r *Result) Boolean() (bool, error) {
	if r.kind != KindBoolean {
		return false, fmt.Errorf("%w: want boolean, have %v", ErrResultKind, r.kind)
	}
	return r.boolean, nil
}

// Vars returns the projected variable names in wire order.
func (r *Result) Vars() []string { return r.vars }

// Solutions returns the decoded solution sequence. The slice is retained
// by the Result, so enumeration is restartable; callers must not mutate it.
func (r *Result) Solutions() ([]Solution, error) {
	if r.kind != KindSolutions {
		return nil, fmt.Errorf("%w: want solutions, have %v", ErrResultKind, r.kind)
	}
	return r.solutions, nil
}

// Graph returns the decoded statement sequence.
func (r *Result) Graph() ([]rdf.Triple, error) {
	if r.kind != KindGraph {
		return nil, fmt.Errorf("%w: want graph, have %v", ErrResultKind, r.kind)
	}
	return r.graph, nil
}

// Len returns the number of solutions or statements, or 1 for a boolean.
func (r *Result) Len() int {
	switch r.kind {
	case KindSolutions:
		return len(r.solutions)
	case KindGraph:
		return len(r.graph)
	default:
		return 1
	}
}

// String implements fmt.Stringer for the ResultKind.
func (k ResultKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindSolutions:
		return "solutions"
	case KindGraph:
		return "graph"
	default:
		return fmt.Sprintf("ResultKind(%d)", uint8(k))
	}
}
