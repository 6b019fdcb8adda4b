package rediscache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the index calls them on
// hot paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// Verified resolution found dangling entries and removed them from a tag.
	StalePruned(tag string, removed int)

	// An invalidation batch completed; entries is the number of index
	// entries whose targets were deleted.
	Invalidated(tags []string, entries int)

	// A tag's underlying key held a non-set type and contributed nothing.
	WrongTypeTag(tag string)

	// Raw tag read served from / missed the local memoization cache.
	LocalHit(tag string)
	LocalMiss(tag string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StalePruned(string, int)   {}
func (NopHooks) Invalidated([]string, int) {}
func (NopHooks) WrongTypeTag(string)       {}
func (NopHooks) LocalHit(string)           {}
func (NopHooks) LocalMiss(string)          {}
