// Package sparql builds, serializes, and memoizes SPARQL queries and
// updates over an in-memory AST.
//
// Queries start from a form constructor and compose through chained
// modifiers:
//
//	q := sparql.Select(rdf.Var("name")).
//		Prefix("foaf", rdf.IRI{Value: "http://xmlns.com/foaf/0.1/"}).
//		Where(rdf.T(rdf.Var("s"), rdf.Type, rdf.IRI{Value: "http://xmlns.com/foaf/0.1/Person"}),
//			rdf.T(rdf.Var("s"), rdf.IRI{Value: "http://xmlns.com/foaf/0.1/name"}, rdf.Var("name"))).
//		Limit(10)
//	text, err := q.Render()
//
// Modifier arguments are validated at the offending call; the first
// failure is recorded and surfaced by Err, Render, CacheKey, and Execute.
// A query whose Err is nil always serializes.
//
// Execute runs the query through an Executor (the client package provides
// one) exactly once and memoizes the decoded Result; repeated calls return
// the cached value without re-issuing the request.
package sparql
