package cons

import (
	"context"
	"fmt"
	"io"
	"log"

	"dario.cat/mergo"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/metadata"
	"github.com/gocons/gocons/resolver"
	"github.com/gocons/gocons/scheduler"
)

// Recipe populates an Environment's graph: files, directories, builders
// and aliases. A driver program registers one Recipe with Main. Recipes
// may call Environment.Execution().SetVar to declare defaults that a
// driver's CLI can still override (see Config.Vars).
type Recipe func(e *graph.Environment) error

// Config configures one Main invocation.
type Config struct {
	// SrcRoot and BuildRoot are the source and build tree roots passed to
	// graph.NewEnvironment.
	SrcRoot, BuildRoot string

	// MetadataPath is the sqlite database file backing the metadata store.
	MetadataPath string

	// Targets names the entries or aliases to build, resolved against the
	// Environment after Recipe has run.
	Targets []string

	// Vars overrides recipe-declared defaults, e.g. from CLI -D flags.
	Vars map[string]string

	// Workers bounds the parallel worker pool; 1 forces serial execution.
	Workers int

	// DryRun and AlwaysBuild mirror resolver.Prepare / scheduler.Options.
	DryRun, AlwaysBuild bool

	// Tree, if non-nil, receives the dependency tree instead of (or in
	// addition to) running the scheduler.
	Tree     io.Writer
	TreeAll  bool
	TreeOnly bool

	Log *log.Logger
}

// Result is returned by Main.
type Result struct {
	Prepared *resolver.PreparedBuild
	Built    *scheduler.Result
}

// Main runs one build: it constructs a graph.Environment, runs recipe to
// populate it, resolves cfg.Targets, prepares the build and, unless
// cfg.TreeOnly is set, executes it. The metadata store is opened and
// registered for cleanup via RegisterAtExit; callers still call RunAtExit
// themselves (typically via defer in their driver's main).
func Main(ctx context.Context, recipe Recipe, cfg Config) (*Result, error) {
	exec := graph.NewExecution()
	env, err := graph.NewEnvironment(exec, cfg.SrcRoot, cfg.BuildRoot)
	if err != nil {
		return nil, err
	}

	if err := recipe(env); err != nil {
		return nil, fmt.Errorf("recipe: %w", err)
	}

	merged, err := mergeVars(exec.Vars(), cfg.Vars)
	if err != nil {
		return nil, err
	}
	for k, v := range merged {
		exec.SetVar(k, v)
	}

	targets, err := resolveTargets(exec, cfg.Targets)
	if err != nil {
		return nil, err
	}

	store, err := metadata.Open(cfg.MetadataPath)
	if err != nil {
		return nil, &graph.StorageError{Err: err}
	}
	RegisterAtExit(store.Close)

	pb, err := resolver.Prepare(ctx, store, targets, cfg.AlwaysBuild)
	if err != nil {
		return nil, err
	}

	if cfg.Tree != nil {
		if err := scheduler.PrintTree(cfg.Tree, targets, pb, cfg.SrcRoot, cfg.TreeAll); err != nil {
			return nil, err
		}
		if cfg.TreeOnly {
			return &Result{Prepared: pb}, nil
		}
	}

	opts := scheduler.Options{Workers: cfg.Workers, DryRun: cfg.DryRun, Log: cfg.Log}
	run := scheduler.RunParallel
	if cfg.Workers == 1 {
		run = scheduler.RunSerial
	}
	built, err := run(ctx, pb, store, opts)
	if err != nil {
		return &Result{Prepared: pb, Built: built}, err
	}
	return &Result{Prepared: pb, Built: built}, nil
}

// mergeVars layers recipe-declared defaults under CLI-style overrides,
// CLI values winning on key collision.
func mergeVars(recipeDefaults, overrides map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(recipeDefaults)+len(overrides))
	for k, v := range recipeDefaults {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging variables: %w", err)
	}
	return merged, nil
}

// resolveTargets resolves each name against exec's interned entries and
// aliases. A name matching neither is a DependencyError.
func resolveTargets(exec *graph.Execution, names []string) ([]graph.Node, error) {
	var nodes []graph.Node
	for _, name := range names {
		if entry, ok := exec.LookupEntry(name); ok {
			nodes = append(nodes, entry)
			continue
		}
		if alias, ok := exec.ResolveAlias(name); ok {
			nodes = append(nodes, alias...)
			continue
		}
		return nil, &graph.DependencyError{Msg: fmt.Sprintf("unknown target %q", name)}
	}
	return nodes, nil
}
