package scheduler

import "github.com/gocons/gocons/graph"

// prune restricts edges (node -> its dependencies) to the nodes in toBuild,
// splicing out every other node and stitching its predecessors directly to
// its successors so the pruned graph still connects every to-build node to
// every to-build dependency it ultimately needs. Returns the pruned
// dependency edges and the pruned reverse (dependent) edges.
func prune(order []graph.Node, edges map[graph.Node][]graph.Node, toBuild map[graph.Node]bool) (fwd, rev map[graph.Node]map[graph.Node]bool) {
	fwd = make(map[graph.Node]map[graph.Node]bool, len(order))
	rev = make(map[graph.Node]map[graph.Node]bool, len(order))
	for _, n := range order {
		deps := make(map[graph.Node]bool, len(edges[n]))
		for _, d := range edges[n] {
			deps[d] = true
		}
		fwd[n] = deps
		if rev[n] == nil {
			rev[n] = map[graph.Node]bool{}
		}
		for d := range deps {
			if rev[d] == nil {
				rev[d] = map[graph.Node]bool{}
			}
			rev[d][n] = true
		}
	}

	for _, n := range order {
		if toBuild[n] {
			continue
		}
		preds := rev[n] // nodes depending on n
		succs := fwd[n] // nodes n depends on
		for p := range preds {
			delete(fwd[p], n)
			for s := range succs {
				if s == p {
					continue
				}
				fwd[p][s] = true
				rev[s][p] = true
			}
		}
		for s := range succs {
			delete(rev[s], n)
		}
		delete(fwd, n)
		delete(rev, n)
	}

	for n := range fwd {
		if !toBuild[n] {
			delete(fwd, n)
			delete(rev, n)
		}
	}
	return fwd, rev
}
