package client

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/roach88/sparql-go/rdf"
	"github.com/roach88/sparql-go/sparql"
)

// decodeCSV handles text/csv per the SPARQL 1.1 CSV results format. CSV
// carries no term metadata, so every non-empty cell decodes to a plain
// literal and empty cells are left unbound.
func decodeCSV(body []byte) (*sparql.Result, error) {
	const ct = "text/csv"

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, decodeErr(ct, "malformed CSV", err)
	}
	if len(records) == 0 {
		return nil, decodeErr(ct, "missing header row", nil)
	}

	vars := records[0]
	solutions := make([]sparql.Solution, 0, len(records)-1)
	for _, record := range records[1:] {
		sol := make(sparql.Solution, len(vars))
		for i, cell := range record {
			if i >= len(vars) || cell == "" {
				continue
			}
			sol[vars[i]] = rdf.PlainLiteral(cell)
		}
		solutions = append(solutions, sol)
	}
	return sparql.NewSolutionsResult(vars, solutions), nil
}

// decodeTSV handles text/tab-separated-values. TSV cells carry SPARQL
// term syntax, so each cell is parsed as a term; cells that do not parse
// fall back to plain literals.
func decodeTSV(body []byte) (*sparql.Result, error) {
	const ct = "text/tab-separated-values"

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, decodeErr(ct, "missing header row", nil)
	}

	header := strings.Split(strings.TrimSuffix(lines[0], "\r"), "\t")
	vars := make([]string, len(header))
	for i, h := range header {
		vars[i] = strings.TrimPrefix(h, "?")
	}

	solutions := make([]sparql.Solution, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := strings.Split(strings.TrimSuffix(line, "\r"), "\t")
		sol := make(sparql.Solution, len(vars))
		for i, cell := range cells {
			if i >= len(vars) || cell == "" {
				continue
			}
			term, err := rdf.ParseTerm(cell)
			if err != nil {
				term = rdf.PlainLiteral(cell)
			}
			sol[vars[i]] = term
		}
		solutions = append(solutions, sol)
	}
	return sparql.NewSolutionsResult(vars, solutions), nil
}
