package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparql-go/rdf"
)

func TestCacheKeyIgnoresGraphOrder(t *testing.T) {
	g1 := rdf.IRI{Value: "http://example.org/g1"}
	g2 := rdf.IRI{Value: "http://example.org/g2"}
	pattern := rdf.T(rdf.Var("s"), rdf.Var("p"), rdf.Var("o"))

	// Identical text and graph set: graph order and duplicates are
	// irrelevant to the key.
	c := CacheKey("SELECT * WHERE { }", []string{"http://g/1", "http://g/2"})
	d := CacheKey("SELECT * WHERE { }", []string{"http://g/2", "http://g/1", "http://g/2"})
	assert.Equal(t, c, d)

	// Swapping FROM calls changes the rendered text itself, so the
	// query-level keys differ.
	a, err := Select().From(g1).From(g2).Where(pattern).CacheKey()
	require.NoError(t, err)
	b, err := Select().From(g2).From(g1).Where(pattern).CacheKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCacheKeyDiffersWhenTextDiffers(t *testing.T) {
	a := CacheKey("ASK WHERE { ?s ?p ?o . }", nil)
	b := CacheKey("ASK WHERE { ?s ?p ?x . }", nil)
	assert.NotEqual(t, a, b)
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("ASK WHERE { }", []string{"http://g"})
	b := CacheKey("ASK WHERE { }", []string{"http://g"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestCacheKeyNormalizesUnicode(t *testing.T) {
	// Precomposed U+00E9 vs decomposed e plus combining acute.
	a := CacheKey("ASK WHERE { ?s ?p é . }", nil)
	b := CacheKey("ASK WHERE { ?s ?p é . }", nil)
	assert.Equal(t, a, b)
}

func TestCacheKeySurfacesConstructionError(t *testing.T) {
	_, err := Select().Offset(-1).CacheKey()
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
}
