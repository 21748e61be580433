package sparql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparql-go/rdf"
)

// assertGolden compares rendered query text against a fixture in
// testdata/golden. Regenerate with: go test ./sparql -update
func assertGolden(t *testing.T, name string, q *Query) {
	t.Helper()
	text, err := q.Render()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(text))
}

func TestGoldenComplexSelect(t *testing.T) {
	foaf := "http://xmlns.com/foaf/0.1/"
	q := Select(rdf.Var("name"), rdf.Var("mbox")).
		Distinct().
		Prefix("foaf", rdf.IRI{Value: foaf}).
		From(rdf.IRI{Value: "http://example.org/graphs/people"}).
		Where(
			rdf.T(rdf.Var("person"), rdf.Type, rdf.IRI{Value: foaf + "Person"}),
			rdf.T(rdf.Var("person"), rdf.IRI{Value: foaf + "name"}, rdf.Var("name")),
		).
		Optional(rdf.T(rdf.Var("person"), rdf.IRI{Value: foaf + "mbox"}, rdf.Var("mbox"))).
		Filter(`LANG(?name) = "en"`).
		Order(Ordering{Var: rdf.Var("name"), Dir: Asc}).
		Limit(20)
	assertGolden(t, "complex_select", q)
}

func TestGoldenFederatedAsk(t *testing.T) {
	q := Ask().
		Where(rdf.T(rdf.Var("s"), rdf.Var("p"), rdf.Var("o"))).
		ServiceSilent("http://remote.example/sparql",
			rdf.T(rdf.Var("s"), rdf.IRI{Value: "http://example.org/linked"}, rdf.Var("t"))).
		Values([]rdf.Variable{rdf.Var("p")},
			rdf.IRI{Value: "http://example.org/knows"}, nil)
	assertGolden(t, "federated_ask", q)
}

func TestGoldenConstructWithMinus(t *testing.T) {
	q := Construct(
		rdf.T(rdf.Var("s"), rdf.IRI{Value: "http://example.org/label"}, rdf.Var("l"))).
		Where(rdf.T(rdf.Var("s"), rdf.IRI{Value: "http://www.w3.org/2000/01/rdf-schema#label"}, rdf.Var("l"))).
		Minus(rdf.T(rdf.Var("s"), rdf.Type, rdf.IRI{Value: "http://example.org/Hidden"}))
	assertGolden(t, "construct_minus", q)
}

func TestDescribeRendersTargets(t *testing.T) {
	text, err := Describe(rdf.IRI{Value: "http://example.org/alice"}, rdf.Var("friend")).
		Where(rdf.T(rdf.IRI{Value: "http://example.org/alice"},
			rdf.IRI{Value: "http://xmlns.com/foaf/0.1/knows"}, rdf.Var("friend"))).
		Render()
	require.NoError(t, err)
	require.Equal(t,
		"DESCRIBE <http://example.org/alice> ?friend WHERE "+
			"{ <http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> ?friend . }",
		text)
}

func TestSerializationIsDeterministic(t *testing.T) {
	build := func() *Query {
		return Select().
			Where(rdf.T(rdf.Var("s"), rdf.Var("p"), rdf.Var("o"))).
			Order(map[rdf.Variable]Direction{
				rdf.Var("b"): Desc,
				rdf.Var("a"): Asc,
			})
	}
	a, err := build().Render()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := build().Render()
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
	require.Contains(t, a, "ORDER BY ASC(?a) DESC(?b)")
}
