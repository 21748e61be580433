package sparql

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/sparql-go/rdf"
)

// Form identifies the query form. Fixed at construction.
type Form string

const (
	FormAsk       Form = "ASK"
	FormSelect    Form = "SELECT"
	FormDescribe  Form = "DESCRIBE"
	FormConstruct Form = "CONSTRUCT"
)

// Direction restricts order/group entries to the two protocol directions.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Ordering pairs a variable with an explicit direction for Order and Group.
type Ordering struct {
	Var rdf.Variable
	Dir Direction
}

// Aggregate is an aggregate projection entry, rendered as
// "(FN(?arg) AS ?alias)". A nil Arg renders as "*".
type Aggregate struct {
	Fn       string
	Arg      rdf.Term
	Distinct bool
	As       rdf.Variable
}

// Count builds a COUNT aggregate projection. arg may be nil for COUNT(*).
func Count(arg rdf.Term, as rdf.Variable) Aggregate {
	return Aggregate{Fn: "COUNT", Arg: arg, As: as}
}

// CountDistinct builds a COUNT(DISTINCT ...) aggregate projection.
func CountDistinct(arg rdf.Term, as rdf.Variable) Aggregate {
	return Aggregate{Fn: "COUNT", Arg: arg, Distinct: true, As: as}
}

// Sum builds a SUM aggregate projection.
func Sum(arg rdf.Term, as rdf.Variable) Aggregate { return Aggregate{Fn: "SUM", Arg: arg, As: as} }

// Avg builds an AVG aggregate projection.
func Avg(arg rdf.Term, as rdf.Variable) Aggregate { return Aggregate{Fn: "AVG", Arg: arg, As: as} }

// Min builds a MIN aggregate projection.
func Min(arg rdf.Term, as rdf.Variable) Aggregate { return Aggregate{Fn: "MIN", Arg: arg, As: as} }

// Max builds a MAX aggregate projection.
func Max(arg rdf.Term, as rdf.Variable) Aggregate { return Aggregate{Fn: "MAX", Arg: arg, As: as} }

// optionalGroup is a pattern group rendered inside OPTIONAL { }.
// Its filters are scoped to the group and never leak into the outer query.
type optionalGroup struct {
	patterns []rdf.Triple
	filters  []string
}

// serviceBlock is a federated sub-query evaluated against a named endpoint.
type serviceBlock struct {
	endpoint rdf.Term
	silent   bool
	query    *Query
}

// valueCell is one VALUES table cell: a bound term or the UNDEF marker.
type valueCell struct {
	term    rdf.Term
	unbound bool
}

type valuesBlock struct {
	vars []rdf.Variable
	rows [][]valueCell
}

// orderEntry is one ORDER BY / GROUP BY entry. Undirected entries render as
// a bare variable; directed entries as ASC(?v) / DESC(?v) regardless of the
// argument shape they came from.
type orderEntry struct {
	v        rdf.Variable
	dir      Direction
	directed bool
}

// Query is a buildable, serializable query. Modifier calls mutate and
// return the same instance so chains compose. The first invalid call
// records a BuildError; later calls are no-ops and the error surfaces from
// Err, Render, CacheKey, and Execute.
//
// A Query is single-writer during the build phase. Once construction has
// finished it may be rendered and executed concurrently; the first Execute
// wins and its outcome is memoized.
type Query struct {
	form       Form
	projection []any // rdf.Variable | Aggregate
	template   []rdf.Triple

	prefixes []string
	froms    []rdf.IRI
	graph    rdf.Term

	patterns   []rdf.Triple
	subqueries []*Query
	optionals  []optionalGroup
	filters    []string
	unions     []*Query
	minuses    []*Query
	services   []serviceBlock
	values     *valuesBlock

	orderBy []orderEntry
	groupBy []orderEntry

	distinct  bool
	reduced   bool
	offset    int
	limit     int
	hasOffset bool
	hasLimit  bool

	err error

	execOnce sync.Once
	result   *Result
	execErr  error
}

// Ask builds a boolean query.
func Ask() *Query {
	return &Query{form: FormAsk}
}

// Select builds a solution-sequence query. Entries are variables or
// aggregate projections; no entries means "project all bound variables".
func Select(entries ...any) *Query {
	q := &Query{form: FormSelect}
	for _, e := range entries {
		switch e.(type) {
		case rdf.Variable, Aggregate:
			q.projection = append(q.projection, e)
		default:
			q.fail(ErrCodeInvalidArgument, "Select",
				fmt.Sprintf("projection entry must be a variable or aggregate, got %T", e))
			return q
		}
	}
	return q
}

// Describe builds a graph query describing the given variables or IRIs.
func Describe(terms ...rdf.Term) *Query {
	q := &Query{form: FormDescribe}
	for _, t := range terms {
		switch t.Kind() {
		case rdf.TermVariable, rdf.TermIRI:
			q.projection = append(q.projection, t)
		default:
			q.fail(ErrCodeInvalidArgument, "Describe",
				fmt.Sprintf("describe target must be a variable or IRI, got %s", t))
			return q
		}
	}
	return q
}

// Construct builds a graph query with the given template.
func Construct(template ...rdf.Triple) *Query {
	q := &Query{form: FormConstruct, template: template}
	if len(template) == 0 {
		q.fail(ErrCodeEmptyTemplate, "Construct", "construct requires a template pattern list")
	}
	return q
}

// fail records the first construction error.
func (q *Query) fail(code ErrorCode, op, message string) {
	if q.err == nil {
		q.err = &BuildError{Code: code, Op: "Query." + op, Message: message}
	}
}

// Err returns the first construction error, or nil. A nil Err guarantees
// Render cannot fail.
func (q *Query) Err() error { return q.err }

// Form returns the query form.
func (q *Query) Form() Form { return q.form }

// Froms returns the configured source graphs in configured order.
func (q *Query) Froms() []rdf.IRI {
	out := make([]rdf.IRI, len(q.froms))
	copy(out, q.froms)
	return out
}

// Where merges triple patterns and sub-queries into the main group in
// argument order. Arguments that are *Query values are filed as nested
// sub-queries and render as "{ <text> } ." before the group's own patterns.
func (q *Query) Where(items ...any) *Query {
	if q.err != nil {
		return q
	}
	for _, item := range items {
		switch v := item.(type) {
		case rdf.Triple:
			q.patterns = append(q.patterns, v)
		case []rdf.Triple:
			q.patterns = append(q.patterns, v...)
		case *Query:
			q.subqueries = append(q.subqueries, v)
		default:
			q.fail(ErrCodeInvalidArgument, "Where",
				fmt.Sprintf("argument must be a triple or *Query, got %T", item))
			return q
		}
	}
	return q
}

// WithSubquery attaches a detached, independently built child query. The
// child is owned by this query and must not be mutated afterwards.
func (q *Query) WithSubquery(sub *Query) *Query {
	if q.err != nil {
		return q
	}
	if sub == nil {
		q.fail(ErrCodeInvalidArgument, "WithSubquery", "sub-query must not be nil")
		return q
	}
	q.subqueries = append(q.subqueries, sub)
	return q
}

// OptionalScope accumulates patterns and filters for one OPTIONAL group.
// Filters added here attach to the group only; the outer query's filter
// list is never touched.
type OptionalScope struct {
	group *optionalGroup
}

// Where adds patterns to the optional group.
func (o *OptionalScope) Where(patterns ...rdf.Triple) *OptionalScope {
	o.group.patterns = append(o.group.patterns, patterns...)
	return o
}

// Filter adds a filter expression to the optional group. Empty expressions
// are ignored.
func (o *OptionalScope) Filter(expr string) *OptionalScope {
	if strings.TrimSpace(expr) != "" {
		o.group.filters = append(o.group.filters, expr)
	}
	return o
}

// Optional files patterns into a new optional group, distinct from the
// main pattern group.
func (q *Query) Optional(patterns ...rdf.Triple) *Query {
	if q.err != nil {
		return q
	}
	q.optionals = append(q.optionals, optionalGroup{patterns: patterns})
	return q
}

// OptionalWhere opens a new optional group and passes its scope to fn.
// The scope carries a fresh filter accumulator that is merged into the
// group when fn returns.
func (q *Query) OptionalWhere(fn func(*OptionalScope)) *Query {
	if q.err != nil {
		return q
	}
	if fn == nil {
		q.fail(ErrCodeInvalidArgument, "OptionalWhere", "block must not be nil")
		return q
	}
	group := optionalGroup{}
	fn(&OptionalScope{group: &group})
	q.optionals = append(q.optionals, group)
	return q
}

// Union appends a union branch. Exactly one mode may be used per call:
// triple patterns (wrapped in an implicit select), a single pre-built
// *Query, or a single builder callback receiving a fresh select query.
func (q *Query) Union(args ...any) *Query {
	if sub, ok := q.branch("Union", args); ok {
		q.unions = append(q.unions, sub)
	}
	return q
}

// Minus appends a MINUS sub-query with the same three-mode contract as
// Union.
func (q *Query) Minus(args ...any) *Query {
	if sub, ok := q.branch("Minus", args); ok {
		q.minuses = append(q.minuses, sub)
	}
	return q
}

// Service appends a federated sub-query evaluated against endpoint, which
// may be a bound IRI or a variable. The body follows the Union three-mode
// contract.
func (q *Query) Service(endpoint any, args ...any) *Query {
	return q.service(endpoint, false, args)
}

// ServiceSilent is Service with the SILENT flag: failures from the remote
// fragment are tolerated by the endpoint instead of aborting the query.
func (q *Query) ServiceSilent(endpoint any, args ...any) *Query {
	return q.service(endpoint, true, args)
}

func (q *Query) service(endpoint any, silent bool, args []any) *Query {
	if q.err != nil {
		return q
	}
	var ep rdf.Term
	switch v := endpoint.(type) {
	case rdf.IRI:
		ep = v
	case rdf.Variable:
		ep = v
	case string:
		ep = rdf.IRI{Value: v}
	default:
		q.fail(ErrCodeInvalidTerm, "Service",
			fmt.Sprintf("endpoint must be an IRI or variable, got %T", endpoint))
		return q
	}
	if sub, ok := q.branch("Service", args); ok {
		q.services = append(q.services, serviceBlock{endpoint: ep, silent: silent, query: sub})
	}
	return q
}

// branch resolves the three-mode (patterns | query | block) contract shared
// by Union, Minus, and Service. Reports ok=false when a construction error
// was recorded.
func (q *Query) branch(op string, args []any) (*Query, bool) {
	if q.err != nil {
		return nil, false
	}
	if len(args) == 0 {
		q.fail(ErrCodeInvalidArgument, op, "requires patterns, a query, or a block")
		return nil, false
	}

	var patterns []rdf.Triple
	var sub *Query
	var block func(*Query)
	for _, arg := range args {
		switch v := arg.(type) {
		case rdf.Triple:
			patterns = append(patterns, v)
		case []rdf.Triple:
			patterns = append(patterns, v...)
		case *Query:
			if sub != nil || block != nil {
				q.fail(ErrCodeMixedArguments, op, "at most one query or block may be given")
				return nil, false
			}
			sub = v
		case func(*Query):
			if sub != nil || block != nil {
				q.fail(ErrCodeMixedArguments, op, "at most one query or block may be given")
				return nil, false
			}
			block = v
		default:
			q.fail(ErrCodeInvalidArgument, op,
				fmt.Sprintf("argument must be a triple, *Query, or block, got %T", arg))
			return nil, false
		}
	}

	switch {
	case len(patterns) > 0 && (sub != nil || block != nil):
		q.fail(ErrCodeMixedArguments, op, "patterns cannot be combined with a query or block")
		return nil, false
	case sub != nil:
		return sub, true
	case block != nil:
		fresh := Select()
		block(fresh)
		if fresh.err != nil {
			if q.err == nil {
				q.err = fresh.err
			}
			return nil, false
		}
		return fresh, true
	default:
		return Select().Where(patterns), true
	}
}

// Values appends an inline binding table. vars fixes the column list; each
// row is a []any of matching arity, or — for a single variable — a bare
// scalar that is wrapped into a one-column row. Strings and other Go
// scalars are promoted to typed literals; nil becomes the UNDEF marker.
func (q *Query) Values(vars []rdf.Variable, rows ...any) *Query {
	if q.err != nil {
		return q
	}
	if len(vars) == 0 {
		q.fail(ErrCodeInvalidArgument, "Values", "requires at least one variable")
		return q
	}
	block := &valuesBlock{vars: vars}
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			if len(vars) != 1 {
				q.fail(ErrCodeArityMismatch, "Values",
					fmt.Sprintf("row %d: scalar shorthand requires a single variable", i))
				return q
			}
			cells = []any{row}
		}
		if len(cells) != len(vars) {
			q.fail(ErrCodeArityMismatch, "Values",
				fmt.Sprintf("row %d has %d cells for %d variables", i, len(cells), len(vars)))
			return q
		}
		parsed := make([]valueCell, len(cells))
		for j, cell := range cells {
			vc, err := toValueCell(cell)
			if err != nil {
				q.fail(ErrCodeInvalidTerm, "Values",
					fmt.Sprintf("row %d cell %d: %v", i, j, err))
				return q
			}
			parsed[j] = vc
		}
		block.rows = append(block.rows, parsed)
	}
	q.values = block
	return q
}

func toValueCell(cell any) (valueCell, error) {
	if cell == nil {
		return valueCell{unbound: true}, nil
	}
	switch v := cell.(type) {
	case rdf.Variable:
		return valueCell{}, fmt.Errorf("variables cannot appear in a VALUES row")
	case rdf.Term:
		return valueCell{term: v}, nil
	case string, int, int64, float64, bool:
		return valueCell{term: rdf.NewLiteral(v)}, nil
	default:
		return valueCell{}, fmt.Errorf("not a term: %T", cell)
	}
}

// Order appends ORDER BY entries. Each entry is a bare variable, an
// Ordering pair, or a map[rdf.Variable]Direction (expanded in variable
// name order). Directions other than Asc/Desc fail at this call.
func (q *Query) Order(entries ...any) *Query {
	q.orderBy = append(q.orderBy, q.orderEntries("Order", entries)...)
	return q
}

// Group appends GROUP BY entries with the same argument shapes as Order.
func (q *Query) Group(entries ...any) *Query {
	q.groupBy = append(q.groupBy, q.orderEntries("Group", entries)...)
	return q
}

func (q *Query) orderEntries(op string, entries []any) []orderEntry {
	if q.err != nil {
		return nil
	}
	var out []orderEntry
	for _, e := range entries {
		switch v := e.(type) {
		case rdf.Variable:
			out = append(out, orderEntry{v: v})
		case Ordering:
			if v.Dir != Asc && v.Dir != Desc {
				q.fail(ErrCodeInvalidDirection, op,
					fmt.Sprintf("direction must be ASC or DESC, got %q", v.Dir))
				return nil
			}
			out = append(out, orderEntry{v: v.Var, dir: v.Dir, directed: true})
		case map[rdf.Variable]Direction:
			vars := make([]rdf.Variable, 0, len(v))
			for mv := range v {
				vars = append(vars, mv)
			}
			sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
			for _, mv := range vars {
				dir := v[mv]
				if dir != Asc && dir != Desc {
					q.fail(ErrCodeInvalidDirection, op,
						fmt.Sprintf("direction must be ASC or DESC, got %q", dir))
					return nil
				}
				out = append(out, orderEntry{v: mv, dir: dir, directed: true})
			}
		default:
			q.fail(ErrCodeInvalidArgument, op,
				fmt.Sprintf("entry must be a variable, Ordering, or direction map, got %T", e))
			return nil
		}
	}
	return out
}

// Filter appends a filter expression to the main group. Empty expressions
// are ignored and never produce an empty FILTER().
func (q *Query) Filter(expr string) *Query {
	if q.err != nil {
		return q
	}
	if strings.TrimSpace(expr) != "" {
		q.filters = append(q.filters, expr)
	}
	return q
}

// Distinct sets the DISTINCT flag.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// Reduced sets the REDUCED flag.
func (q *Query) Reduced() *Query {
	q.reduced = true
	return q
}

// Graph wraps the main pattern group in GRAPH <term> { }.
func (q *Query) Graph(term rdf.Term) *Query {
	if q.err != nil {
		return q
	}
	if term == nil || (term.Kind() != rdf.TermIRI && term.Kind() != rdf.TermVariable) {
		q.fail(ErrCodeInvalidTerm, "Graph", "graph selector must be an IRI or variable")
		return q
	}
	q.graph = term
	return q
}

// From appends a source graph, rendered as a FROM clause and sent as a
// default-graph-uri protocol parameter.
func (q *Query) From(graph rdf.IRI) *Query {
	if q.err != nil {
		return q
	}
	q.froms = append(q.froms, graph)
	return q
}

// Offset sets the solution offset.
func (q *Query) Offset(n int) *Query {
	if q.err != nil {
		return q
	}
	if n < 0 {
		q.fail(ErrCodeInvalidArgument, "Offset", "offset must not be negative")
		return q
	}
	q.offset, q.hasOffset = n, true
	return q
}

// Limit caps the solution count.
func (q *Query) Limit(n int) *Query {
	if q.err != nil {
		return q
	}
	if n < 0 {
		q.fail(ErrCodeInvalidArgument, "Limit", "limit must not be negative")
		return q
	}
	q.limit, q.hasLimit = n, true
	return q
}

// Prefix appends a PREFIX declaration from a name and namespace IRI.
func (q *Query) Prefix(name string, iri rdf.IRI) *Query {
	if q.err != nil {
		return q
	}
	q.prefixes = append(q.prefixes, "PREFIX "+name+": "+iri.String())
	return q
}

// PrefixString appends a pre-formatted PREFIX declaration.
func (q *Query) PrefixString(decl string) *Query {
	if q.err != nil {
		return q
	}
	q.prefixes = append(q.prefixes, decl)
	return q
}

// Render returns the canonical protocol text. It fails only when a
// construction error was recorded.
func (q *Query) Render() (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return serialize(q), nil
}

// Executor issues one query exchange: transport plus result decoding.
// *client.Client implements it.
type Executor interface {
	ExecuteQuery(ctx context.Context, q *Query) (*Result, error)
}

// Execute renders and executes the query once, memoizing the decoded
// Result. Repeat calls return the cached outcome and never re-issue the
// request; under concurrent first access exactly one execution takes
// effect.
func (q *Query) Execute(ctx context.Context, ex Executor) (*Result, error) {
	q.execOnce.Do(func() {
		if q.err != nil {
			q.execErr = q.err
			return
		}
		q.result, q.execErr = ex.ExecuteQuery(ctx, q)
	})
	return q.result, q.execErr
}
