package resolver

import "github.com/gocons/gocons/graph"

// propagateDirty expands the out-of-date set into the full to-build set,
// per spec §4.5:
//
//  1. Downward pass, leaves-first (order is dependency-first): any node
//     with a dependency already in to_build joins to_build too, since a
//     builder is not guaranteed pure.
//  2. Upward pass, reverse order: any non-Entry dependency (FileSet) of a
//     to-build node joins to_build too, since a FileSet's contents are
//     only known after its builder runs.
func propagateDirty(order []graph.Node, edges map[graph.Node][]graph.Node, outOfDate map[graph.Node]bool) map[graph.Node]bool {
	toBuild := make(map[graph.Node]bool, len(outOfDate))
	for n := range outOfDate {
		toBuild[n] = true
	}

	for _, n := range order {
		if toBuild[n] {
			continue
		}
		for _, d := range edges[n] {
			if toBuild[d] {
				toBuild[n] = true
				break
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if !toBuild[n] {
			continue
		}
		for _, d := range edges[n] {
			if _, isEntry := d.(graph.Entry); !isEntry {
				toBuild[d] = true
			}
		}
	}

	return toBuild
}
