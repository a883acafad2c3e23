// Package scheduler executes ready-to-run builders in dependency order,
// serially or with a bounded worker pool, committing metadata for every
// successfully built Entry.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/internal/trace"
	"github.com/gocons/gocons/metadata"
	"github.com/gocons/gocons/resolver"
)

// Options configures a scheduler run.
type Options struct {
	// Workers bounds the parallel worker pool. Values <= 0 or greater
	// than the available CPU count are clamped to the CPU count. Ignored
	// by RunSerial.
	Workers int

	// DryRun prints intended actions without invoking builders, removing
	// artifacts, or committing metadata.
	DryRun bool

	Log *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Log != nil {
		return o.Log
	}
	return log.Default()
}

// Result summarizes one scheduler run.
type Result struct {
	// Invoked lists the builders that were actually executed, in the
	// order their invocation completed.
	Invoked []graph.Builder
}

// invoke runs the builder invocation protocol from spec §4.6: remove,
// prepare, execute, verify every declared Entry output. worker identifies
// the trace track (0 in serial mode, the worker index in parallel mode).
func invoke(ctx context.Context, b graph.Builder, worker int) error {
	outputs := b.Outputs()

	for _, o := range outputs {
		e, ok := o.(graph.Entry)
		if !ok {
			continue
		}
		if err := e.Remove(); err != nil {
			return &graph.BuildError{Builder: b.String(), Err: fmt.Errorf("removing %s: %w", e.Path(), err)}
		}
	}

	for _, o := range outputs {
		e, ok := o.(graph.Entry)
		if !ok {
			continue
		}
		if err := e.Prepare(); err != nil {
			return &graph.BuildError{Builder: b.String(), Err: fmt.Errorf("preparing %s: %w", e.Path(), err)}
		}
	}

	invocationID := uuid.NewString()
	ev := trace.Event(b.String(), worker)
	start := time.Now()
	buildsInFlight.Inc()
	err := b.Execute(ctx)
	buildsInFlight.Dec()
	buildDuration.Observe(time.Since(start).Seconds())
	ev.Done()
	if err != nil {
		buildsTotal.WithLabelValues("failed").Inc()
		return &graph.BuildError{Builder: b.String(), Err: fmt.Errorf("invocation %s: %w", invocationID, err)}
	}
	buildsTotal.WithLabelValues("succeeded").Inc()

	for _, o := range outputs {
		e, ok := o.(graph.Entry)
		if !ok {
			continue
		}
		if _, err := os.Stat(e.Path()); err != nil {
			return &graph.DependencyError{Msg: fmt.Sprintf("builder %s didn't output %s", b, e.Path())}
		}
	}
	return nil
}

// commit computes and stores the new signature for every Entry output of b,
// using cache to memoize get_metadata across outputs that share
// dependencies.
func commit(ctx context.Context, store *metadata.Store, b graph.Builder, edges map[graph.Node][]graph.Node, cache *entryCache) error {
	for _, o := range b.Outputs() {
		e, ok := o.(graph.Entry)
		if !ok {
			continue
		}
		deps := resolver.EntryClosure(o, edges)
		sig := make(metadata.ClosureSignature, len(deps))
		for _, d := range deps {
			s, err := cache.get(d)
			if err != nil {
				return &graph.StorageError{Err: err}
			}
			sig[d.Path()] = s
		}
		if err := store.Put(ctx, e.Path(), sig); err != nil {
			return err
		}
	}
	return nil
}
