// Package metricshooks exports the index's hook events as counters through
// VictoriaMetrics/metrics. Tag names are deliberately not used as labels to
// keep series cardinality bounded.
package metricshooks

import (
	"github.com/VictoriaMetrics/metrics"

	rediscache "github.com/StockDrops/CachingFramework.Redis"
)

type Hooks struct {
	stalePruned        *metrics.Counter
	invalidations      *metrics.Counter
	invalidatedEntries *metrics.Counter
	wrongTypeTags      *metrics.Counter
	localHits          *metrics.Counter
	localMisses        *metrics.Counter
}

var _ rediscache.Hooks = (*Hooks)(nil)

// New registers the counters in the default metrics set under the given
// prefix (e.g. "rediscache").
func New(prefix string) *Hooks {
	if prefix == "" {
		prefix = "rediscache"
	}
	return &Hooks{
		stalePruned:        metrics.GetOrCreateCounter(prefix + "_stale_pruned_total"),
		invalidations:      metrics.GetOrCreateCounter(prefix + "_invalidations_total"),
		invalidatedEntries: metrics.GetOrCreateCounter(prefix + "_invalidated_entries_total"),
		wrongTypeTags:      metrics.GetOrCreateCounter(prefix + "_wrong_type_tags_total"),
		localHits:          metrics.GetOrCreateCounter(prefix + "_local_hits_total"),
		localMisses:        metrics.GetOrCreateCounter(prefix + "_local_misses_total"),
	}
}

func (h *Hooks) StalePruned(_ string, removed int) { h.stalePruned.Add(removed) }
func (h *Hooks) WrongTypeTag(string)               { h.wrongTypeTags.Inc() }
func (h *Hooks) LocalHit(string)                   { h.localHits.Inc() }
func (h *Hooks) LocalMiss(string)                  { h.localMisses.Inc() }

func (h *Hooks) Invalidated(_ []string, entries int) {
	h.invalidations.Inc()
	h.invalidatedEntries.Add(entries)
}
