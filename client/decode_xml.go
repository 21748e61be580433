package client

import (
	"encoding/xml"
	"fmt"

	"github.com/roach88/sparql-go/rdf"
	"github.com/roach88/sparql-go/sparql"
)

// SPARQL Query Results XML Format.
type xmlResults struct {
	XMLName xml.Name `xml:"sparql"`
	Head    struct {
		Vars []struct {
			Name string `xml:"name,attr"`
		} `xml:"variable"`
	} `xml:"head"`
	Boolean *bool `xml:"boolean"`
	Results *struct {
		Results []struct {
			Bindings []xmlBinding `xml:"binding"`
		} `xml:"result"`
	} `xml:"results"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri"`
	BNode   *string     `xml:"bnode"`
	Literal *xmlLiteral `xml:"literal"`
}

type xmlLiteral struct {
	Value    string `xml:",chardata"`
	Datatype string `xml:"datatype,attr"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
}

func decodeXML(body []byte) (*sparql.Result, error) {
	const ct = "application/sparql-results+xml"

	var doc xmlResults
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, decodeErr(ct, "malformed results document", err)
	}

	if doc.Boolean != nil {
		return sparql.NewBooleanResult(*doc.Boolean), nil
	}
	if doc.Results == nil {
		return nil, decodeErr(ct, "document has neither boolean nor results", nil)
	}

	vars := make([]string, 0, len(doc.Head.Vars))
	for _, v := range doc.Head.Vars {
		vars = append(vars, v.Name)
	}

	solutions := make([]sparql.Solution, 0, len(doc.Results.Results))
	for _, row := range doc.Results.Results {
		sol := make(sparql.Solution, len(row.Bindings))
		for _, binding := range row.Bindings {
			term, err := binding.term()
			if err != nil {
				return nil, decodeErr(ct, fmt.Sprintf("binding %q", binding.Name), err)
			}
			sol[binding.Name] = term
		}
		solutions = append(solutions, sol)
	}
	return sparql.NewSolutionsResult(vars, solutions), nil
}

func (b xmlBinding) term() (rdf.Term, error) {
	switch {
	case b.URI != nil:
		return rdf.IRI{Value: *b.URI}, nil
	case b.BNode != nil:
		return rdf.BlankNode{ID: *b.BNode}, nil
	case b.Literal != nil:
		return rdf.Literal{
			Lexical:  b.Literal.Value,
			Datatype: rdf.IRI{Value: b.Literal.Datatype},
			Lang:     b.Literal.Lang,
		}, nil
	default:
		return nil, fmt.Errorf("binding carries no term element")
	}
}
