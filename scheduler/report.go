package scheduler

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/resolver"
)

// PrintTree writes the dependency tree rooted at targets to w, one line per
// node: three flag characters (O out-of-date, B to-build, C changed),
// followed by box-drawing indentation and the node's path relative to
// root. When all is false, non-Entry nodes (builders' bare FileSets and
// the like) are elided and their dependencies are reattached to the
// nearest Entry ancestor.
func PrintTree(w io.Writer, targets []graph.Node, pb *resolver.PreparedBuild, root string, all bool) error {
	roots := visibleChildren(nil, targets, pb.Edges, all)
	for i, n := range roots {
		if err := printNode(w, n, pb, root, "", i == len(roots)-1, all); err != nil {
			return err
		}
	}
	return nil
}

// visibleChildren returns the children of n that should be printed: n's
// direct dependency edges (or, for a synthetic nil n, the supplied
// targets), with non-Entry nodes spliced out and replaced by their own
// visible children when all is false.
func visibleChildren(n graph.Node, targets []graph.Node, edges map[graph.Node][]graph.Node, all bool) []graph.Node {
	var raw []graph.Node
	if n == nil {
		raw = targets
	} else {
		raw = edges[n]
	}
	var out []graph.Node
	for _, d := range raw {
		if !all {
			if _, ok := d.(graph.Entry); !ok {
				out = append(out, visibleChildren(d, nil, edges, all)...)
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

func printNode(w io.Writer, n graph.Node, pb *resolver.PreparedBuild, root, prefix string, last bool, all bool) error {
	flags := ""
	if pb.OutOfDate[n] {
		flags += "O"
	} else {
		flags += " "
	}
	if pb.ToBuild[n] {
		flags += "B"
	} else {
		flags += " "
	}
	if pb.Changed[n] {
		flags += "C"
	} else {
		flags += " "
	}

	connector := "├─"
	if last {
		connector = "└─"
	}

	if _, err := fmt.Fprintf(w, "%s %s%s%s\n", flags, prefix, connector, label(n, root)); err != nil {
		return err
	}

	childPrefix := prefix
	if last {
		childPrefix += "  "
	} else {
		childPrefix += "│ "
	}

	children := visibleChildren(n, nil, pb.Edges, all)
	for i, c := range children {
		if err := printNode(w, c, pb, root, childPrefix, i == len(children)-1, all); err != nil {
			return err
		}
	}
	return nil
}

func label(n graph.Node, root string) string {
	if e, ok := n.(graph.Entry); ok {
		if rel, err := filepath.Rel(root, e.Path()); err == nil {
			return rel
		}
		return e.Path()
	}
	return n.String()
}
