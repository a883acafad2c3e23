package resolver

import (
	"context"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gocons/gocons/graph"
	"github.com/gocons/gocons/metadata"
)

// Freshness is the result of comparing every reachable Entry's current
// signature against its stored signature.
type Freshness struct {
	// OutOfDate is the set of Entries (with a builder) whose current
	// signature differs from, or has no, stored record.
	OutOfDate map[graph.Node]bool

	// Changed is the informational set of dependency Entries whose own
	// signature differs from what it was when the dependent was last
	// built.
	Changed map[graph.Node]bool
}

// cachedSignature memoizes Entry.Signature() across a single freshness
// analysis pass, so a dependency shared by many nodes is stat'd once.
// (Metadata commit uses the scheduler's own cache.)
type cachedSignature struct {
	cache *lru.Cache[string, graph.EntrySignature]
}

func newCachedSignature(size int) *cachedSignature {
	if size < 1 {
		size = 1
	}
	c, _ := lru.New[string, graph.EntrySignature](size)
	return &cachedSignature{cache: c}
}

func (c *cachedSignature) get(e graph.Entry) (graph.EntrySignature, error) {
	if sig, ok := c.cache.Get(e.Path()); ok {
		return sig, nil
	}
	sig, err := e.Signature()
	if err != nil {
		return graph.EntrySignature{}, err
	}
	c.cache.Add(e.Path(), sig)
	return sig, nil
}

// analyzeFreshness implements spec §4.4: entries without a builder must
// already exist on disk; entries with a builder are out of date if their
// path is missing, or if their dependency-closure signature differs from
// the stored one.
func analyzeFreshness(ctx context.Context, store *metadata.Store, nodes []graph.Node, edges map[graph.Node][]graph.Node, alwaysBuild bool) (*Freshness, error) {
	cache := newCachedSignature(len(nodes) + 1)
	f := &Freshness{OutOfDate: map[graph.Node]bool{}, Changed: map[graph.Node]bool{}}

	for _, n := range nodes {
		e, ok := n.(graph.Entry)
		if !ok {
			continue // FileSets are handled by the dirty propagator
		}
		b := n.Builder()
		if b == nil {
			if _, err := os.Stat(e.Path()); err != nil {
				return nil, &graph.DependencyError{Msg: fmt.Sprintf("path required but not present and no builder defined: %s", e.Path())}
			}
			continue
		}

		if alwaysBuild {
			f.OutOfDate[n] = true
			continue
		}

		if _, err := os.Stat(e.Path()); err != nil {
			f.OutOfDate[n] = true
			continue
		}

		deps := EntryClosure(n, edges)
		current := make(metadata.ClosureSignature, len(deps))
		for _, d := range deps {
			sig, err := cache.get(d)
			if err != nil {
				return nil, err
			}
			current[d.Path()] = sig
		}

		stored, found, err := store.Get(ctx, e.Path())
		if err != nil {
			return nil, err
		}
		if !found {
			f.OutOfDate[n] = true
			continue
		}
		if !stored.Equal(current) {
			f.OutOfDate[n] = true
			for _, d := range deps {
				old, hadOld := stored[d.Path()]
				cur := current[d.Path()]
				if !hadOld || !metadata.EntrySignatureEqual(old, cur) {
					f.Changed[d] = true
				}
			}
		}
	}
	return f, nil
}
