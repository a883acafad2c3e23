package scheduler

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/metadata"
	"github.com/gocons/gocons/resolver"
)

// buildersReady tracks the builder-level dependency DAG derived from a
// pruned node graph: one entry per builder that owns at least one
// to-build node, counting how many of its dependency builders have not
// yet completed.
type buildersReady struct {
	remaining  map[graph.Builder]int
	dependents map[graph.Builder][]graph.Builder
}

// builderGraph collapses the pruned per-node edges into a per-builder
// dependency graph: a builder depends on another builder if any of its
// to-build outputs depends (directly or through pruning) on any output
// of the other builder. Builders with no outgoing dependency edges
// within toBuild start the build.
func builderGraph(order []graph.Node, fwd map[graph.Node]map[graph.Node]bool, toBuild map[graph.Node]bool) *buildersReady {
	deps := map[graph.Builder]map[graph.Builder]bool{}
	dependents := map[graph.Builder][]graph.Builder{}
	seen := map[graph.Builder]bool{}

	var owners []graph.Builder
	for _, n := range order {
		if !toBuild[n] {
			continue
		}
		b := n.Builder()
		if b == nil {
			continue
		}
		if !seen[b] {
			seen[b] = true
			owners = append(owners, b)
			deps[b] = map[graph.Builder]bool{}
		}
		for d := range fwd[n] {
			db := d.Builder()
			if db == nil || db == b {
				continue
			}
			deps[b][db] = true
		}
	}

	remaining := make(map[graph.Builder]int, len(owners))
	for _, b := range owners {
		remaining[b] = len(deps[b])
		for db := range deps[b] {
			dependents[db] = append(dependents[db], b)
		}
	}
	return &buildersReady{remaining: remaining, dependents: dependents}
}

var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

// statusBoard prints one status line per worker plus a summary line,
// redrawing in place on a terminal. On a non-terminal it stays silent;
// RunParallel then logs only failed builds through opts.Log.
type statusBoard struct {
	mu         sync.Mutex
	lines      []string
	lastRedraw time.Time
}

func newStatusBoard(workers int) *statusBoard {
	return &statusBoard{lines: make([]string, workers+1)}
}

func (s *statusBoard) set(idx int, line string) {
	if !isTerminal {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if diff := len(s.lines[idx]) - len(line); diff > 0 {
		line += strings.Repeat(" ", diff)
	}
	s.lines[idx] = line
	if time.Since(s.lastRedraw) < 100*time.Millisecond {
		return
	}
	s.redrawLocked()
}

func (s *statusBoard) redrawLocked() {
	s.lastRedraw = time.Now()
	for _, line := range s.lines {
		fmt.Println(line)
	}
	fmt.Printf("\033[%dA", len(s.lines)) // restore cursor position
}

type workItem struct {
	b graph.Builder
}

type workResult struct {
	b   graph.Builder
	err error
}

// RunParallel builds every builder that owns a node in pb.ToBuild using a
// bounded worker pool, respecting builder-level dependency order. A
// builder becomes eligible once every builder it depends on (among
// to-build builders) has completed successfully.
func RunParallel(ctx context.Context, pb *resolver.PreparedBuild, store *metadata.Store, opts Options) (*Result, error) {
	log := opts.logger()
	result := &Result{}

	if len(pb.ToBuild) == 0 {
		log.Printf("all up to date")
		return result, nil
	}

	workers := opts.Workers
	if workers <= 0 || workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	}

	fwd, _ := prune(pb.Order, pb.Edges, pb.ToBuild)
	ready := builderGraph(pb.Order, fwd, pb.ToBuild)
	total := len(ready.remaining)

	if opts.DryRun {
		for b := range ready.remaining {
			log.Printf("would build %s", b)
		}
		return result, nil
	}

	cache := newEntryCache(total + 1)
	board := newStatusBoard(workers)

	work := make(chan workItem, total)
	done := make(chan workResult)
	eg, egCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(egCtx)
	defer cancel()

	for i := 0; i < workers; i++ {
		i := i
		eg.Go(func() error {
			for item := range work {
				if err := runCtx.Err(); err != nil {
					return nil
				}
				board.set(i+1, "building "+item.b.String())
				start := time.Now()
				err := invoke(runCtx, item.b, i+1)
				if err == nil {
					err = commit(runCtx, store, item.b, pb.Edges, cache)
				}
				board.set(i+1, fmt.Sprintf("built %s in %v", item.b, time.Since(start).Round(time.Millisecond)))
				select {
				case done <- workResult{b: item.b, err: err}:
				case <-runCtx.Done():
					return nil
				}
			}
			return nil
		})
	}

	completed := 0
	failed := 0
	var invoked []graph.Builder

	for b, n := range ready.remaining {
		if n == 0 {
			work <- workItem{b: b}
		}
	}

	dispatcher := make(chan error, 1)
	go func() {
		defer close(work)
		for completed+failed < total {
			select {
			case r := <-done:
				completed++
				if r.err == nil {
					invoked = append(invoked, r.b)
					for _, next := range ready.dependents[r.b] {
						ready.remaining[next]--
						if ready.remaining[next] == 0 {
							work <- workItem{b: next}
						}
					}
				} else {
					failed++
					log.Printf("build of %s failed: %v", r.b, r.err)
				}
				board.set(0, fmt.Sprintf("%d of %d builders: %d built, %d failed", completed+failed, total, completed-failed, failed))
				if r.err != nil {
					cancel()
					dispatcher <- r.err
					return
				}
			case <-runCtx.Done():
				dispatcher <- runCtx.Err()
				return
			}
		}
		dispatcher <- nil
	}()

	err := <-dispatcher
	cancel()
	if egErr := eg.Wait(); egErr != nil && err == nil {
		err = egErr
	}
	if err != nil {
		return &Result{Invoked: invoked}, err
	}
	return &Result{Invoked: invoked}, nil
}
