// Package bigcache adapts allegro/bigcache to the LocalCache interface
// used for memoizing raw tag reads.
package bigcache

import (
	"time"

	bc "github.com/allegro/bigcache/v3"
)

type Cache struct {
	c *bc.BigCache
}

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Cache, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (p *Cache) Get(key string) ([]byte, bool) {
	b, err := p.c.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set stores the entry. BigCache does not support per-entry TTL; the
// global LifeWindow bounds staleness instead.
func (p *Cache) Set(key string, value []byte, _ time.Duration) {
	_ = p.c.Set(key, value)
}

func (p *Cache) Del(key string) {
	_ = p.c.Delete(key)
}

func (p *Cache) Close() error {
	return p.c.Close()
}
