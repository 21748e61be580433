package client

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sparql-go/rdf"
	"github.com/roach88/sparql-go/sparql"
)

// SPARQL 1.1 Query Results JSON Format.
type jsonResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results *struct {
		Bindings []map[string]jsonTerm `json:"bindings"`
	} `json:"results"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Lang     string `json:"xml:lang"`
}

func decodeJSON(body []byte) (*sparql.Result, error) {
	const ct = "application/sparql-results+json"

	var doc jsonResults
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, decodeErr(ct, "malformed results document", err)
	}

	if doc.Boolean != nil {
		return sparql.NewBooleanResult(*doc.Boolean), nil
	}
	if doc.Results == nil {
		return nil, decodeErr(ct, "document has neither boolean nor results", nil)
	}

	solutions := make([]sparql.Solution, 0, len(doc.Results.Bindings))
	for _, binding := range doc.Results.Bindings {
		sol := make(sparql.Solution, len(binding))
		for name, jt := range binding {
			term, err := jt.term()
			if err != nil {
				return nil, decodeErr(ct, fmt.Sprintf("binding %q", name), err)
			}
			sol[name] = term
		}
		solutions = append(solutions, sol)
	}
	return sparql.NewSolutionsResult(doc.Head.Vars, solutions), nil
}

func (jt jsonTerm) term() (rdf.Term, error) {
	switch jt.Type {
	case "uri":
		return rdf.IRI{Value: jt.Value}, nil
	case "bnode":
		return rdf.BlankNode{ID: jt.Value}, nil
	case "literal", "typed-literal":
		return rdf.Literal{
			Lexical:  jt.Value,
			Datatype: rdf.IRI{Value: jt.Datatype},
			Lang:     jt.Lang,
		}, nil
	default:
		return nil, fmt.Errorf("unknown term type %q", jt.Type)
	}
}
