package output

import (
	"bytes"
	"fmt"

	"github.com/antchfx/jsonquery"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

// Query evaluates an xpath expression against the json snapshot of s, eg.
// "//items/*[status/code='urlaub']/name". It returns the values of the
// matching nodes.
func Query(s *record.Store, expr string) ([]any, error) {
	b, err := marshalStore(s)
	if err != nil {
		return nil, err
	}
	doc, err := jsonquery.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	nodes, err := jsonquery.QueryAll(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Value())
	}
	return out, nil
}
