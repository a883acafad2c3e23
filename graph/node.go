// Package graph implements the typed dependency-graph vertices of a
// dependency-tracking build engine: entries bound to a static filesystem
// path (File, Directory), dynamically-populated FileSets, and the Builders
// that produce them. An Execution owns every node for the lifetime of a
// build and interns Entries by absolute path so that two requests for the
// same path always return the same instance.
package graph

import "sync"

// Node is any vertex in the dependency graph: a path-bearing Entry (File or
// Directory) or a dynamically-populated FileSet.
//
// Two nodes are equal iff they are the same instance. Entries are interned
// by absolute path (see Execution), so two requests for the same path
// always yield the same Node; FileSets have fresh identity.
type Node interface {
	// Depends returns the node's explicit, user-declared dependencies in
	// declaration order. The slice is a copy; mutate the graph with
	// AddDepend.
	Depends() []Node

	// AddDepend appends d to Depends.
	AddDepend(d Node)

	// Builder returns the builder that produces this node, or nil if the
	// node is expected to already exist on disk.
	Builder() Builder

	// String returns a human-readable identifier for diagnostics: the
	// absolute path for an Entry, a synthetic name for a FileSet.
	String() string

	// bindBuilder attaches b as this node's producer. Re-binding the same
	// builder is a no-op; binding a different builder is a
	// ConfigurationError. Unexported so only this package can construct
	// Nodes that satisfy the interface.
	bindBuilder(b Builder) error
}

// nodeBase implements the Depends/AddDepend/Builder/bindBuilder bookkeeping
// shared by every concrete Node type.
type nodeBase struct {
	mu      sync.Mutex
	depends []Node
	builder Builder
}

func (n *nodeBase) Depends() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Node, len(n.depends))
	copy(out, n.depends)
	return out
}

func (n *nodeBase) AddDepend(d Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.depends = append(n.depends, d)
}

func (n *nodeBase) Builder() Builder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.builder
}

func (n *nodeBase) bindBuilder(b Builder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.builder != nil && n.builder != b {
		return &ConfigurationError{Msg: "node already has a different builder"}
	}
	n.builder = b
	return nil
}

// Entry is a Node bound to a static absolute filesystem path.
type Entry interface {
	Node

	// Path returns the entry's absolute filesystem path.
	Path() string

	// IsDir reports whether the entry is a Directory.
	IsDir() bool

	// Signature computes the entry's current on-disk identity: mtime and
	// regular-file-ness for a File, or the recursive map of child file
	// signatures for a Directory.
	Signature() (EntrySignature, error)

	// Remove deletes the artifact. A missing artifact is not an error.
	Remove() error

	// Prepare ensures the artifact's parent directory exists.
	Prepare() error
}
