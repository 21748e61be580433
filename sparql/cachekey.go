package sparql

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// keyDomain versions the cache-key algorithm so a future change cannot
// collide with keys already stored by an external caching layer.
const keyDomain = "sparql-go/query/v1"

// CacheKey computes a stable identifier for rendered query text and its
// source graph set. The text is NFC-normalized first, so two renderings
// that differ only in Unicode normalization form produce the same key;
// graphs are deduplicated and sorted, so their original order is
// irrelevant. Keys differ whenever the rendered text differs.
func CacheKey(text string, graphs []string) string {
	seen := make(map[string]struct{}, len(graphs))
	normalized := make([]string, 0, len(graphs))
	for _, g := range graphs {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		normalized = append(normalized, g)
	}
	sort.Strings(normalized)

	h := sha256.New()
	h.Write([]byte(keyDomain))
	h.Write([]byte{0x00}) // domain/data boundary
	h.Write([]byte(norm.NFC.String(text)))
	for _, g := range normalized {
		h.Write([]byte{0x1e}) // record separator between graph IRIs
		h.Write([]byte(g))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey returns the identifier for this query's rendered text and FROM
// graphs, intended for an external caching layer.
func (q *Query) CacheKey() (string, error) {
	text, err := q.Render()
	if err != nil {
		return "", err
	}
	graphs := make([]string, len(q.froms))
	for i, g := range q.froms {
		graphs[i] = g.Value
	}
	return CacheKey(text, graphs), nil
}
