package resolver

import "github.com/gocons/gocons/graph"

// EntryClosure returns every Entry in n's transitive dependency closure
// (excluding n itself), using the reachable-graph edges computed by
// Prepare. Used both by freshness analysis (to build the signature to
// compare) and by metadata commit (to build the signature to store).
func EntryClosure(n graph.Node, edges map[graph.Node][]graph.Node) []graph.Entry {
	seen := map[graph.Node]bool{n: true}
	var out []graph.Entry
	var walk func(graph.Node)
	walk = func(x graph.Node) {
		for _, d := range edges[x] {
			if seen[d] {
				continue
			}
			seen[d] = true
			if e, ok := d.(graph.Entry); ok {
				out = append(out, e)
			}
			walk(d)
		}
	}
	walk(n)
	return out
}
