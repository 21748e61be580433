// Package rdf provides the term model consumed by the SPARQL query builder
// and result decoders: IRIs, literals, blank nodes, variables, and triple
// patterns, plus a decoder for graph serializations (N-Triples and the
// Turtle subset SPARQL endpoints emit for CONSTRUCT/DESCRIBE results).
//
// Terms render in SPARQL surface syntax via String(): IRIs in angle
// brackets, literals with escaped lexical forms and explicit datatypes,
// variables with a leading question mark. A term's String output is valid
// in both query text and N-Triples documents.
package rdf
