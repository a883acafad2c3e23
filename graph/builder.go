package graph

import (
	"context"
	"sync"
)

// Builder is a recipe: given its declared inputs, Execute produces its
// declared outputs. Outputs is populated once, at construction, plus any
// explicit side-effect additions (e.g. a FileSet builder discovering more
// members); Depends grows as Environment helpers wire up inputs.
type Builder interface {
	// Depends returns this builder's declared input nodes, in the order
	// they were added.
	Depends() []Node

	// AddDepend appends an input node. Called by Environment's depends_*
	// helpers; recipe authors do not normally call it directly.
	AddDepend(n Node)

	// Outputs returns this builder's declared output nodes.
	Outputs() []Node

	// Execute runs the recipe. The scheduler calls it only once every
	// entry in Depends, and the Depends of every sibling in Outputs, is
	// up to date.
	Execute(ctx context.Context) error

	// String names the builder for diagnostics and trace events.
	String() string
}

// Base implements the bookkeeping (Depends/AddDepend/Outputs/String) shared
// by concrete builder kinds. Embed it and implement Execute.
type Base struct {
	mu      sync.Mutex
	name    string
	depends []Node
	outputs []Node
}

// NewBase constructs a Base builder named name producing outputs. Pass the
// result to Execution.RegisterBuilder to bind it to its outputs.
func NewBase(name string, outputs ...Node) Base {
	return Base{name: name, outputs: outputs}
}

func (b *Base) Depends() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Node, len(b.depends))
	copy(out, b.depends)
	return out
}

func (b *Base) AddDepend(n Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depends = append(b.depends, n)
}

func (b *Base) Outputs() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Node, len(b.outputs))
	copy(out, b.outputs)
	return out
}

// AddOutput appends an explicit side-effect output, e.g. a FileSet builder
// that discovers additional members while declaring its primary outputs.
func (b *Base) AddOutput(n Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = append(b.outputs, n)
}

func (b *Base) String() string { return b.name }
