// Package resolver implements graph reachability, topological ordering,
// cycle detection, freshness analysis and dirty propagation: everything
// needed to turn a set of target nodes into a PreparedBuild the scheduler
// can execute.
package resolver

import (
	"context"
	"fmt"
	"strings"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/metadata"
)

// PreparedBuild is the result of dependency analysis, fed to the
// scheduler and to any reporter (e.g. the tree printer).
type PreparedBuild struct {
	// Order lists every reachable node in topological order, dependencies
	// strictly before dependents.
	Order []graph.Node

	// Edges maps a node to the nodes it depends on (its own Depends, its
	// builder's Depends if it has one, and the Depends of every sibling
	// output of that builder).
	Edges map[graph.Node][]graph.Node

	// ToBuild is the set of nodes the scheduler must (re)build, after
	// downward/upward dirty propagation.
	ToBuild map[graph.Node]bool

	// OutOfDate is the set of nodes whose own stored signature no longer
	// matches their dependencies' current on-disk signatures, before
	// propagation. Every OutOfDate node is also in ToBuild.
	OutOfDate map[graph.Node]bool

	// Changed is the informational set of dependencies whose individual
	// on-disk signature changed since the last build.
	Changed map[graph.Node]bool
}

// wrappedNode adapts a graph.Node to gonum's graph.Node interface.
type wrappedNode struct {
	id int64
	n  graph.Node
}

func (w *wrappedNode) ID() int64 { return w.id }

// reachable performs depth-first reachability from targets, returning every
// reached node (in depth-first visitation order, each node before its
// dependencies, starting from the first target) and its effective
// out-edges per spec: own Depends, plus (if it has a builder) the
// builder's Depends, plus the Depends of every sibling output of that
// builder.
func reachable(targets []graph.Node) ([]graph.Node, map[graph.Node][]graph.Node) {
	var order []graph.Node
	seen := map[graph.Node]bool{}
	edges := map[graph.Node][]graph.Node{}

	var visit func(n graph.Node)
	visit = func(n graph.Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)

		var out []graph.Node
		outSeen := map[graph.Node]bool{}
		add := func(d graph.Node) {
			if !outSeen[d] {
				outSeen[d] = true
				out = append(out, d)
			}
		}
		for _, d := range n.Depends() {
			add(d)
		}
		if b := n.Builder(); b != nil {
			for _, d := range b.Depends() {
				add(d)
			}
			for _, sib := range b.Outputs() {
				if sib == n {
					continue
				}
				for _, d := range sib.Depends() {
					add(d)
				}
			}
		}
		edges[n] = out
		for _, d := range out {
			visit(d)
		}
	}
	for _, t := range targets {
		visit(t)
	}
	return order, edges
}

// Prepare runs reachability, topological sort and freshness/dirty analysis
// for targets, producing a PreparedBuild ready for the scheduler.
//
// If alwaysBuild is true, every reachable Entry with a builder is seeded
// into the out-of-date set regardless of its on-disk signature (the "-B"
// / always-build CLI option).
func Prepare(ctx context.Context, store *metadata.Store, targets []graph.Node, alwaysBuild bool) (*PreparedBuild, error) {
	nodes, edges := reachable(targets)

	order, err := topoOrder(nodes, edges)
	if err != nil {
		return nil, err
	}

	fresh, err := analyzeFreshness(ctx, store, nodes, edges, alwaysBuild)
	if err != nil {
		return nil, err
	}

	toBuild := propagateDirty(order, edges, fresh.OutOfDate)

	return &PreparedBuild{
		Order:     order,
		Edges:     edges,
		ToBuild:   toBuild,
		OutOfDate: fresh.OutOfDate,
		Changed:   fresh.Changed,
	}, nil
}

// topoOrder returns nodes in dependency-first topological order, using
// gonum's Kahn's-algorithm-based sort for both ordering and cycle
// detection. Edges are added dependency -> dependent (the reverse of the
// Edges map, which records dependent -> dependency) so that topo.Sort's
// "edge u->v means u precedes v" contract yields dependencies first.
func topoOrder(nodes []graph.Node, edges map[graph.Node][]graph.Node) ([]graph.Node, error) {
	g := simple.NewDirectedGraph()
	ids := map[graph.Node]*wrappedNode{}
	var nextID int64
	wrap := func(n graph.Node) *wrappedNode {
		w, ok := ids[n]
		if !ok {
			w = &wrappedNode{id: nextID, n: n}
			nextID++
			ids[n] = w
			g.AddNode(w)
		}
		return w
	}
	for _, n := range nodes {
		wrap(n)
	}
	for n, deps := range edges {
		wn := wrap(n)
		for _, d := range deps {
			wd := wrap(d)
			g.SetEdge(g.NewEdge(wd, wn)) // dependency -> dependent
		}
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return nil, &graph.DependencyError{Msg: err.Error()}
		}
		return nil, cycleError(uo, edges)
	}

	out := make([]graph.Node, len(sorted))
	for i, gn := range sorted {
		out[i] = gn.(*wrappedNode).n
	}
	return out, nil
}

// cycleError formats the edges within each cyclic component as
// "source → target" pairs, one per line.
func cycleError(uo topo.Unorderable, edges map[graph.Node][]graph.Node) error {
	inComponent := map[graph.Node]bool{}
	for _, component := range uo {
		for _, gn := range component {
			inComponent[gn.(*wrappedNode).n] = true
		}
	}
	var lines []string
	for n := range inComponent {
		for _, d := range edges[n] {
			if inComponent[d] {
				lines = append(lines, fmt.Sprintf("%s → %s", n, d))
			}
		}
	}
	return &graph.DependencyError{Msg: "cycle detected:\n" + strings.Join(lines, "\n")}
}

var _ gonumgraph.Node = (*wrappedNode)(nil)
