// Package asynchook decouples hook sinks from the index's hot paths: events
// are handed to a bounded queue and delivered by worker goroutines; when
// the queue is full the event is dropped rather than blocking the caller.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StalePrunedEvery: 10, // sample logs: ~every 10th prune
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	idx, _ := rediscache.New(rediscache.Options{
//	    Store: rdb,
//	    Codec: codec.JSON{},
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	rediscache "github.com/StockDrops/CachingFramework.Redis"
)

type Hooks struct {
	inner rediscache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ rediscache.Hooks = (*Hooks)(nil)

func New(inner rediscache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) StalePruned(tag string, n int) { h.try(func() { h.inner.StalePruned(tag, n) }) }
func (h *Hooks) WrongTypeTag(tag string)       { h.try(func() { h.inner.WrongTypeTag(tag) }) }
func (h *Hooks) LocalHit(tag string)           { h.try(func() { h.inner.LocalHit(tag) }) }
func (h *Hooks) LocalMiss(tag string)          { h.try(func() { h.inner.LocalMiss(tag) }) }
func (h *Hooks) Invalidated(tags []string, n int) {
	h.try(func() { h.inner.Invalidated(tags, n) })
}
