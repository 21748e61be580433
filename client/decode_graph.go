package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/roach88/sparql-go/rdf"
	"github.com/roach88/sparql-go/sparql"
)

// decodeGraph handles Turtle and N-Triples responses.
func decodeGraph(body []byte) (*sparql.Result, error) {
	triples, err := rdf.DecodeGraph(bytes.NewReader(body))
	if err != nil {
		return nil, decodeErr("text/turtle", "malformed graph document", err)
	}
	return sparql.NewGraphResult(triples), nil
}

// decodeJSONLD handles application/ld+json by expanding the document to
// RDF quads and flattening all graphs into one triple set.
func decodeJSONLD(body []byte) (*sparql.Result, error) {
	const ct = "application/ld+json"

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, decodeErr(ct, "malformed JSON-LD document", err)
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	raw, err := proc.ToRDF(doc, opts)
	if err != nil {
		return nil, decodeErr(ct, "JSON-LD expansion failed", err)
	}
	dataset, ok := raw.(*ld.RDFDataset)
	if !ok {
		return nil, decodeErr(ct, "unexpected ToRDF result", nil)
	}

	var triples []rdf.Triple
	for _, quads := range dataset.Graphs {
		for _, quad := range quads {
			s, err := nodeTerm(quad.Subject)
			if err != nil {
				return nil, decodeErr(ct, "subject", err)
			}
			p, err := nodeTerm(quad.Predicate)
			if err != nil {
				return nil, decodeErr(ct, "predicate", err)
			}
			o, err := nodeTerm(quad.Object)
			if err != nil {
				return nil, decodeErr(ct, "object", err)
			}
			triples = append(triples, rdf.T(s, p, o))
		}
	}
	return sparql.NewGraphResult(triples), nil
}

func nodeTerm(node ld.Node) (rdf.Term, error) {
	switch n := node.(type) {
	case ld.IRI:
		return rdf.IRI{Value: n.Value}, nil
	case ld.BlankNode:
		return rdf.BlankNode{ID: strings.TrimPrefix(n.Attribute, "_:")}, nil
	case ld.Literal:
		lit := rdf.Literal{Lexical: n.Value, Lang: n.Language}
		if n.Language == "" {
			lit.Datatype = rdf.IRI{Value: n.Datatype}
		}
		return lit, nil
	default:
		return nil, fmt.Errorf("unknown node type %T", node)
	}
}
