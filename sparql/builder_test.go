package sparql

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparql-go/rdf"
)

var (
	s = rdf.Var("s")
	p = rdf.Var("p")
	o = rdf.Var("o")
)

func TestAskRendersSinglePatternGroup(t *testing.T) {
	text, err := Ask().Where(rdf.T(s, p, o)).Render()
	require.NoError(t, err)
	assert.Equal(t, "ASK WHERE { ?s ?p ?o . }", text)
}

func TestPatternsRenderOnceInInsertionOrder(t *testing.T) {
	name := rdf.IRI{Value: "http://example.org/name"}
	age := rdf.IRI{Value: "http://example.org/age"}
	text, err := Select().
		Where(rdf.T(s, name, rdf.Var("n"))).
		Where(rdf.T(s, age, rdf.Var("a"))).
		Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * WHERE { ?s <http://example.org/name> ?n . ?s <http://example.org/age> ?a . }",
		text)
}

func TestTypePredicateShorthand(t *testing.T) {
	text, err := Select(s).
		Where(rdf.T(s, rdf.Type, rdf.IRI{Value: "http://example.org/Book"})).
		Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?s WHERE { ?s a <http://example.org/Book> . }", text)
	assert.NotContains(t, text, "rdf-syntax-ns#type")
}

func TestStringLiteralCarriesExplicitDatatype(t *testing.T) {
	text, err := Ask().
		Where(rdf.T(s, rdf.IRI{Value: "http://example.org/name"}, rdf.NewLiteral("Alice"))).
		Render()
	require.NoError(t, err)
	assert.Contains(t, text, `"Alice"^^<http://www.w3.org/2001/XMLSchema#string>`)
}

func TestOffsetLimitFixedOrder(t *testing.T) {
	base := func() *Query { return Select().Where(rdf.T(s, p, o)) }

	a, err := base().Offset(5).Limit(10).Render()
	require.NoError(t, err)
	b, err := base().Limit(10).Offset(5).Render()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "OFFSET 5 LIMIT 10")
}

func TestOrderEntryShapesRenderIdentically(t *testing.T) {
	base := func() *Query { return Select().Where(rdf.T(s, p, o)) }

	pair, err := base().Order(Ordering{Var: rdf.Var("name"), Dir: Desc}).Render()
	require.NoError(t, err)
	mapped, err := base().Order(map[rdf.Variable]Direction{rdf.Var("name"): Desc}).Render()
	require.NoError(t, err)

	assert.Equal(t, pair, mapped)
	assert.Contains(t, pair, "ORDER BY DESC(?name)")

	bare, err := base().Order(rdf.Var("name")).Render()
	require.NoError(t, err)
	assert.Contains(t, bare, "ORDER BY ?name")
}

func TestOrderRejectsInvalidDirection(t *testing.T) {
	q := Select().Order(Ordering{Var: rdf.Var("x"), Dir: Direction("SIDEWAYS")})
	err := q.Err()
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeInvalidDirection, be.Code)

	// The error also surfaces from Render.
	_, rerr := q.Render()
	assert.Equal(t, err, rerr)
}

func TestGroupAcceptsSameShapesAsOrder(t *testing.T) {
	text, err := Select(Count(s, rdf.Var("n"))).
		Where(rdf.T(s, p, o)).
		Group(rdf.Var("p")).
		Render()
	require.NoError(t, err)
	assert.Contains(t, text, "GROUP BY ?p")
}

func TestValuesScalarShorthandAndUndef(t *testing.T) {
	text, err := Select().
		Where(rdf.T(s, p, o)).
		Values([]rdf.Variable{rdf.Var("o")}, "a", nil).
		Render()
	require.NoError(t, err)
	assert.Contains(t, text,
		`VALUES (?o) { ("a"^^<http://www.w3.org/2001/XMLSchema#string>) (UNDEF) }`)
}

func TestValuesArityMismatch(t *testing.T) {
	q := Select().Values(
		[]rdf.Variable{rdf.Var("a"), rdf.Var("b")},
		[]any{"only-one"},
	)
	var be *BuildError
	require.ErrorAs(t, q.Err(), &be)
	assert.Equal(t, ErrCodeArityMismatch, be.Code)
}

func TestValuesRejectsNonTermCell(t *testing.T) {
	q := Select().Values([]rdf.Variable{rdf.Var("a")}, []any{struct{}{}})
	var be *BuildError
	require.ErrorAs(t, q.Err(), &be)
	assert.Equal(t, ErrCodeInvalidTerm, be.Code)
}

func TestUnionOwnPatternsFormFirstBranch(t *testing.T) {
	text, err := Select().
		Where(rdf.T(s, p, o)).
		Union(rdf.T(rdf.Var("x"), rdf.Var("y"), rdf.Var("z"))).
		Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * WHERE { ?s ?p ?o . } UNION { ?x ?y ?z . }", text)
}

func TestUnionQueryMode(t *testing.T) {
	branch := Select().Where(rdf.T(rdf.Var("x"), rdf.Var("y"), rdf.Var("z")))
	text, err := Select().Where(rdf.T(s, p, o)).Union(branch).Render()
	require.NoError(t, err)
	assert.Contains(t, text, "UNION { ?x ?y ?z . }")
}

func TestUnionBlockMode(t *testing.T) {
	text, err := Select().
		Where(rdf.T(s, p, o)).
		Union(func(b *Query) {
			b.Where(rdf.T(rdf.Var("x"), rdf.Var("y"), rdf.Var("z")))
		}).
		Render()
	require.NoError(t, err)
	assert.Contains(t, text, "UNION { ?x ?y ?z . }")
}

func TestUnionRejectsMixedModes(t *testing.T) {
	q := Select().Where(rdf.T(s, p, o)).
		Union(rdf.T(s, p, o), Select())
	var be *BuildError
	require.ErrorAs(t, q.Err(), &be)
	assert.Equal(t, ErrCodeMixedArguments, be.Code)
}

func TestMinusRendersInsideGroup(t *testing.T) {
	text, err := Select().
		Where(rdf.T(s, p, o)).
		Minus(rdf.T(s, rdf.Type, rdf.IRI{Value: "http://example.org/Hidden"})).
		Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * WHERE { ?s ?p ?o . MINUS { ?s a <http://example.org/Hidden> . } }",
		text)
}

func TestServiceModes(t *testing.T) {
	plain, err := Select().
		Where(rdf.T(s, p, o)).
		Service("http://remote.example/sparql", rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.Contains(t, plain, "SERVICE <http://remote.example/sparql> { ?s ?p ?o . }")

	silent, err := Select().
		Where(rdf.T(s, p, o)).
		ServiceSilent(rdf.Var("endpoint"), rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.Contains(t, silent, "SERVICE SILENT ?endpoint { ?s ?p ?o . }")
}

func TestOptionalFiltersScopedToGroup(t *testing.T) {
	mbox := rdf.IRI{Value: "http://xmlns.com/foaf/0.1/mbox"}
	q := Select().
		Where(rdf.T(s, p, o)).
		OptionalWhere(func(opt *OptionalScope) {
			opt.Where(rdf.T(s, mbox, rdf.Var("m")))
			opt.Filter("isIRI(?m)")
		}).
		Filter("bound(?o)")
	text, err := q.Render()
	require.NoError(t, err)

	assert.Contains(t, text,
		"OPTIONAL { ?s <http://xmlns.com/foaf/0.1/mbox> ?m . FILTER(isIRI(?m)) }")
	// Outer filter stays outside the optional group.
	assert.Contains(t, text, "} FILTER(bound(?o))")
	assert.Len(t, q.filters, 1)
}

func TestEmptyFilterIgnored(t *testing.T) {
	text, err := Select().Where(rdf.T(s, p, o)).Filter("  ").Render()
	require.NoError(t, err)
	assert.NotContains(t, text, "FILTER")
}

func TestWithSubqueryRendersBeforeOwnPatterns(t *testing.T) {
	sub := Select(rdf.Var("x")).Where(rdf.T(rdf.Var("x"), p, o))
	text, err := Select().
		WithSubquery(sub).
		Where(rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * WHERE { { SELECT ?x WHERE { ?x ?p ?o . } } . ?s ?p ?o . }",
		text)
}

func TestPrefixesPrependedInReverseDeclarationOrder(t *testing.T) {
	text, err := Select().
		Prefix("foaf", rdf.IRI{Value: "http://xmlns.com/foaf/0.1/"}).
		Prefix("ex", rdf.IRI{Value: "http://example.org/"}).
		Where(rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.True(t, len(text) > 0)
	assert.Equal(t,
		"PREFIX ex: <http://example.org/> PREFIX foaf: <http://xmlns.com/foaf/0.1/> SELECT * WHERE { ?s ?p ?o . }",
		text)
}

func TestAggregateProjectionSuppressesDistinctKeyword(t *testing.T) {
	text, err := Select(CountDistinct(s, rdf.Var("count"))).
		Distinct().
		Where(rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT (COUNT(DISTINCT ?s) AS ?count) WHERE { ?s ?p ?o . }",
		text)
}

func TestConstructRequiresTemplate(t *testing.T) {
	q := Construct()
	var be *BuildError
	require.ErrorAs(t, q.Err(), &be)
	assert.Equal(t, ErrCodeEmptyTemplate, be.Code)
}

func TestGraphSelectorWrapsGroup(t *testing.T) {
	text, err := Select().
		Graph(rdf.IRI{Value: "http://example.org/g"}).
		Where(rdf.T(s, p, o)).
		Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * WHERE { GRAPH <http://example.org/g> { ?s ?p ?o . } }", text)
}

// countingExecutor records how many exchanges were issued.
type countingExecutor struct {
	mu    sync.Mutex
	calls int
	res   *Result
	err   error
}

func (e *countingExecutor) ExecuteQuery(ctx context.Context, q *Query) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.res, e.err
}

func TestExecuteMemoizesResult(t *testing.T) {
	ex := &countingExecutor{res: NewBooleanResult(true)}
	q := Ask().Where(rdf.T(s, p, o))

	first, err := q.Execute(context.Background(), ex)
	require.NoError(t, err)
	second, err := q.Execute(context.Background(), ex)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, ex.calls)
}

func TestExecuteMemoizesUnderConcurrentFirstAccess(t *testing.T) {
	ex := &countingExecutor{res: NewBooleanResult(false)}
	q := Ask().Where(rdf.T(s, p, o))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Execute(context.Background(), ex)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ex.calls)
}

func TestExecuteSurfacesConstructionError(t *testing.T) {
	ex := &countingExecutor{res: NewBooleanResult(true)}
	q := Select().Offset(-1)
	_, err := q.Execute(context.Background(), ex)
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.Equal(t, 0, ex.calls)
}

func TestStickyErrorStopsLaterMutation(t *testing.T) {
	q := Select().Offset(-1).Limit(10).Where(rdf.T(s, p, o))
	require.Error(t, q.Err())
	assert.False(t, q.hasLimit)
	assert.Empty(t, q.patterns)
}
