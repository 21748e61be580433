package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparql-go/rdf"
	"github.com/roach88/sparql-go/sparql"
)

func TestDecodeJSONTermTypes(t *testing.T) {
	body := []byte(`{
	  "head": {"vars": ["a", "b", "c", "d", "e"]},
	  "results": {"bindings": [{
	    "a": {"type": "uri", "value": "http://e/x"},
	    "b": {"type": "bnode", "value": "b0"},
	    "c": {"type": "literal", "value": "plain"},
	    "d": {"type": "typed-literal", "value": "5", "datatype": "http://www.w3.org/2001/XMLSchema#integer"},
	    "e": {"type": "literal", "value": "hallo", "xml:lang": "de"}
	  }]}
	}`)

	result, err := decodeJSON(body)
	require.NoError(t, err)
	sols, err := result.Solutions()
	require.NoError(t, err)
	require.Len(t, sols, 1)

	sol := sols[0]
	assert.Equal(t, rdf.IRI{Value: "http://e/x"}, sol["a"])
	assert.Equal(t, rdf.BlankNode{ID: "b0"}, sol["b"])
	assert.Equal(t, rdf.Literal{Lexical: "plain"}, sol["c"])
	assert.Equal(t, rdf.Literal{Lexical: "5", Datatype: rdf.XSDInteger}, sol["d"])
	assert.Equal(t, rdf.Literal{Lexical: "hallo", Lang: "de"}, sol["e"])
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, result.Vars())
}

func TestDecodeJSONUnknownTermType(t *testing.T) {
	body := []byte(`{"head":{"vars":["a"]},"results":{"bindings":[{"a":{"type":"quad","value":"x"}}]}}`)
	_, err := decodeJSON(body)
	require.Error(t, err)
	assert.True(t, sparql.IsProtocolError(err))
}

func TestDecodeJSONEmptyDocument(t *testing.T) {
	_, err := decodeJSON([]byte(`{"head":{}}`))
	require.Error(t, err)
	assert.True(t, sparql.IsProtocolError(err))
}

func TestDecodeXMLBoolean(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
	<sparql xmlns="http://www.w3.org/2005/sparql-results#">
	  <head/>
	  <boolean>false</boolean>
	</sparql>`)

	result, err := decodeXML(body)
	require.NoError(t, err)
	v, err := result.Boolean()
	require.NoError(t, err)
	assert.False(t, v)
}

func TestDecodeXMLSolutions(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
	<sparql xmlns="http://www.w3.org/2005/sparql-results#">
	  <head><variable name="s"/><variable name="name"/></head>
	  <results>
	    <result>
	      <binding name="s"><uri>http://e/alice</uri></binding>
	      <binding name="name"><literal xml:lang="en">Alice</literal></binding>
	    </result>
	    <result>
	      <binding name="s"><bnode>b1</bnode></binding>
	      <binding name="name"><literal datatype="http://www.w3.org/2001/XMLSchema#string">Bob</literal></binding>
	    </result>
	  </results>
	</sparql>`)

	result, err := decodeXML(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "name"}, result.Vars())

	sols, err := result.Solutions()
	require.NoError(t, err)
	require.Len(t, sols, 2)
	assert.Equal(t, rdf.IRI{Value: "http://e/alice"}, sols[0]["s"])
	assert.Equal(t, rdf.Literal{Lexical: "Alice", Lang: "en"}, sols[0]["name"])
	assert.Equal(t, rdf.BlankNode{ID: "b1"}, sols[1]["s"])
	assert.Equal(t, rdf.Literal{Lexical: "Bob", Datatype: rdf.XSDString}, sols[1]["name"])
}

func TestDecodeCSV(t *testing.T) {
	body := []byte("s,name\nhttp://e/alice,Alice\nhttp://e/bob,\n")

	result, err := decodeCSV(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "name"}, result.Vars())

	sols, err := result.Solutions()
	require.NoError(t, err)
	require.Len(t, sols, 2)
	assert.Equal(t, rdf.PlainLiteral("http://e/alice"), sols[0]["s"])
	assert.Equal(t, rdf.PlainLiteral("Alice"), sols[0]["name"])

	_, bound := sols[1]["name"]
	assert.False(t, bound, "empty cell stays unbound")
}

func TestDecodeTSV(t *testing.T) {
	body := []byte("?s\t?age\n<http://e/alice>\t\"30\"^^<http://www.w3.org/2001/XMLSchema#integer>\n")

	result, err := decodeTSV(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "age"}, result.Vars())

	sols, err := result.Solutions()
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.Equal(t, rdf.IRI{Value: "http://e/alice"}, sols[0]["s"])
	assert.Equal(t, rdf.Literal{Lexical: "30", Datatype: rdf.XSDInteger}, sols[0]["age"])
}

func TestDecodeTSVFallsBackToPlainLiterals(t *testing.T) {
	body := []byte("?v\nnot a term\n")

	result, err := decodeTSV(body)
	require.NoError(t, err)
	sols, err := result.Solutions()
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.Equal(t, rdf.PlainLiteral("not a term"), sols[0]["v"])
}

func TestDecodeTurtleGraph(t *testing.T) {
	body := []byte(`@prefix foaf: <http://xmlns.com/foaf/0.1/> .
<http://e/alice> foaf:name "Alice" .`)

	result, err := decodeGraph(body)
	require.NoError(t, err)
	g, err := result.Graph()
	require.NoError(t, err)
	require.Len(t, g, 1)
	assert.Equal(t, rdf.IRI{Value: "http://xmlns.com/foaf/0.1/name"}, g[0].P)
}

func TestDecodeJSONLD(t *testing.T) {
	body := []byte(`{
	  "@id": "http://e/alice",
	  "http://xmlns.com/foaf/0.1/name": "Alice"
	}`)

	result, err := decodeJSONLD(body)
	require.NoError(t, err)
	g, err := result.Graph()
	require.NoError(t, err)
	require.Len(t, g, 1)

	assert.Equal(t, rdf.IRI{Value: "http://e/alice"}, g[0].S)
	assert.Equal(t, rdf.IRI{Value: "http://xmlns.com/foaf/0.1/name"}, g[0].P)
	lit, ok := g[0].O.(rdf.Literal)
	require.True(t, ok)
	assert.Equal(t, "Alice", lit.Lexical)
}

func TestDecodeDispatch(t *testing.T) {
	t.Run("missing content type", func(t *testing.T) {
		_, err := decodeResult(sparql.FormAsk, "", []byte("{}"))
		require.Error(t, err)
		assert.True(t, sparql.IsProtocolError(err))
	})

	t.Run("unsupported content type", func(t *testing.T) {
		_, err := decodeResult(sparql.FormAsk, "application/pdf", nil)
		require.Error(t, err)
		assert.True(t, sparql.IsProtocolError(err))
	})

	t.Run("media type parameters are ignored", func(t *testing.T) {
		result, err := decodeResult(sparql.FormAsk,
			"application/sparql-results+json; charset=utf-8",
			[]byte(`{"head":{},"boolean":true}`))
		require.NoError(t, err)
		v, err := result.Boolean()
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("form and shape must agree", func(t *testing.T) {
		_, err := decodeResult(sparql.FormSelect,
			"application/sparql-results+json",
			[]byte(`{"head":{},"boolean":true}`))
		require.Error(t, err)
		assert.True(t, sparql.IsProtocolError(err))
	})
}
