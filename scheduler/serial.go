package scheduler

import (
	"context"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/metadata"
	"github.com/gocons/gocons/resolver"
)

// RunSerial walks pb.Order and invokes, in dependency order, every builder
// that owns at least one node in pb.ToBuild. A builder invoked via one
// output is not invoked again for a sibling output.
func RunSerial(ctx context.Context, pb *resolver.PreparedBuild, store *metadata.Store, opts Options) (*Result, error) {
	log := opts.logger()
	invoked := map[graph.Builder]bool{}
	cache := newEntryCache(len(pb.Order) + 1)
	result := &Result{}

	if len(pb.ToBuild) == 0 {
		log.Printf("all up to date")
		return result, nil
	}

	for _, n := range pb.Order {
		if !pb.ToBuild[n] {
			continue
		}
		b := n.Builder()
		if b == nil {
			continue // FileSet or Entry with no builder; nothing to invoke
		}
		if invoked[b] {
			continue
		}
		invoked[b] = true

		if opts.DryRun {
			log.Printf("would build %s", b)
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		log.Printf("building %s", b)
		if err := invoke(ctx, b, 0); err != nil {
			return result, err
		}
		if err := commit(ctx, store, b, pb.Edges, cache); err != nil {
			return result, err
		}
		result.Invoked = append(result.Invoked, b)
	}

	return result, nil
}
