package scheduler

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gocons/gocons/graph"
)

// entryCache memoizes Entry.Signature() across one commit pass, so a
// dependency shared by several built outputs is stat'd only once.
type entryCache struct {
	cache *lru.Cache[string, graph.EntrySignature]
}

func newEntryCache(size int) *entryCache {
	if size < 1 {
		size = 1
	}
	c, _ := lru.New[string, graph.EntrySignature](size)
	return &entryCache{cache: c}
}

func (c *entryCache) get(e graph.Entry) (graph.EntrySignature, error) {
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
