// Package demo is a reference recipe exercising the core end-to-end: a
// concat builder and an upper builder over two small text files, wired
// the way spec.md's end-to-end scenarios describe. It exists purely to
// give cmd/gocons something to build; production recipes live in their
// own packages.
package demo

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/gocons/gocons/graph"
)

// concat writes the concatenation of its Depends to its single output.
type concat struct {
	graph.Base
}

func newConcat(out *graph.File) *concat {
	b := &concat{Base: graph.NewBase(fmt.Sprintf("concat(%s)", out.Path()), out)}
	return b
}

func (b *concat) Execute(ctx context.Context) error {
	var buf bytes.Buffer
	for _, d := range b.Depends() {
		e, ok := d.(graph.Entry)
		if !ok {
			continue
		}
		data, err := os.ReadFile(e.Path())
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	out := b.Outputs()[0].(*graph.File)
	return os.WriteFile(out.Path(), buf.Bytes(), 0o644)
}

// upper writes the uppercased contents of its single input to its single
// output.
type upper struct {
	graph.Base
}

func newUpper(out *graph.File) *upper {
	return &upper{Base: graph.NewBase(fmt.Sprintf("upper(%s)", out.Path()), out)}
}

func (b *upper) Execute(ctx context.Context) error {
	deps := b.Depends()
	if len(deps) != 1 {
		return &graph.ConfigurationError{Msg: fmt.Sprintf("upper: want exactly one input, got %d", len(deps))}
	}
	in, ok := deps[0].(graph.Entry)
	if !ok {
		return &graph.ConfigurationError{Msg: "upper: input is not an Entry"}
	}
	data, err := os.ReadFile(in.Path())
	if err != nil {
		return err
	}
	for i, c := range data {
		if c >= 'a' && c <= 'z' {
			data[i] = c - ('a' - 'A')
		}
	}
	out := b.Outputs()[0].(*graph.File)
	return os.WriteFile(out.Path(), data, 0o644)
}

// Recipe builds the spec's chained-graph scenario:
//
//	build/a.up  <- upper(src/a.txt)
//	build/b.up  <- upper(src/b.txt)
//	build/a-all.txt <- concat(build/a.up, build/b.up)
//
// and registers "all" as an alias for build/a-all.txt, the target
// cmd/gocons builds by default.
func Recipe(e *graph.Environment) error {
	a, err := e.File("a.txt")
	if err != nil {
		return err
	}
	b, err := e.File("b.txt")
	if err != nil {
		return err
	}

	aUpPath, err := e.GetBuildPath(a.Path(), "", ".up")
	if err != nil {
		return err
	}
	bUpPath, err := e.GetBuildPath(b.Path(), "", ".up")
	if err != nil {
		return err
	}
	aUp, err := e.File(aUpPath)
	if err != nil {
		return err
	}
	bUp, err := e.File(bUpPath)
	if err != nil {
		return err
	}

	upA := newUpper(aUp)
	if _, err := e.DependsFile(upA, a); err != nil {
		return err
	}
	if err := e.Execution().RegisterBuilder(upA); err != nil {
		return err
	}

	upB := newUpper(bUp)
	if _, err := e.DependsFile(upB, b); err != nil {
		return err
	}
	if err := e.Execution().RegisterBuilder(upB); err != nil {
		return err
	}

	allPath, err := e.GetBuildPath(a.Path(), "", ".txt")
	if err != nil {
		return err
	}
	allPath = allPath[:len(allPath)-len(".txt")] + "-all.txt"
	all, err := e.File(allPath)
	if err != nil {
		return err
	}

	cc := newConcat(all)
	if _, err := e.DependsFiles(cc, aUp, bUp); err != nil {
		return err
	}
	if err := e.Execution().RegisterBuilder(cc); err != nil {
		return err
	}

	e.Execution().Alias("all", all)
	e.Execution().SetVar("demo.target", "all")
	return nil
}
