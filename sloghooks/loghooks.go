package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	rediscache "github.com/StockDrops/CachingFramework.Redis"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StalePrunedEvery uint64
	LocalEvery       uint64
	// Optional tag redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	pruneCtr atomic.Uint64
	localCtr atomic.Uint64
}

var _ rediscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(t string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(t)
	}
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StalePruned(tag string, removed int) {
	if h.l == nil || !sample(h.opts.StalePrunedEvery, &h.pruneCtr) {
		return
	}
	h.l.Debug("rediscache.stale_pruned",
		"tag", h.redact(tag),
		"removed", removed)
}

func (h *Hooks) Invalidated(tags []string, entries int) {
	if h.l == nil {
		return
	}
	h.l.Info("rediscache.invalidated",
		"tags", len(tags),
		"entries", entries)
}

func (h *Hooks) WrongTypeTag(tag string) {
	if h.l == nil {
		return
	}
	h.l.Warn("rediscache.wrong_type_tag",
		"tag", h.redact(tag))
}

func (h *Hooks) LocalHit(tag string) {
	if h.l == nil || !sample(h.opts.LocalEvery, &h.localCtr) {
		return
	}
	h.l.Debug("rediscache.local_hit", "tag", h.redact(tag))
}

func (h *Hooks) LocalMiss(tag string) {
	if h.l == nil || !sample(h.opts.LocalEvery, &h.localCtr) {
		return
	}
	h.l.Debug("rediscache.local_miss", "tag", h.redact(tag))
}
