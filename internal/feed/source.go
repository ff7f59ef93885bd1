// Package feed ingests headlines from pluggable signal sources and merges
// them into the headline cache, deduplicated by URL.
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"polysignal/internal/models"
	"polysignal/internal/store"
)

// Source is a single headline feed. Implementations return whatever they can
// and report fetch problems as errors; a failing source never stops the
// collector.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Headline, error)
}

// Collector pulls all sources, merges new headlines into the store, and
// reports how many were new.
type Collector struct {
	Sources []Source
	Store   store.HeadlineStore
	Logger  *zap.Logger
	// Limiter spaces out successive source fetches.
	Limiter *rate.Limiter
	Now     func() time.Time
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Refresh fetches every source and merges by URL. Previously cached
// headlines are kept untouched; the return value counts only additions.
func (c *Collector) Refresh(ctx context.Context) (int, error) {
	cached, err := c.Store.Load()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(cached))
	for _, h := range cached {
		seen[h.URL] = struct{}{}
	}

	merged := cached
	added := 0
	for _, src := range c.Sources {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return added, err
			}
		}
		headlines, err := src.Fetch(ctx)
		if err != nil {
			c.Logger.Warn("feed fetch failed",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		for _, h := range headlines {
			if h.URL == "" {
				continue
			}
			if _, ok := seen[h.URL]; ok {
				continue
			}
			h.FetchedAt = c.now()
			seen[h.URL] = struct{}{}
			merged = append(merged, h)
			added++
		}
	}

	if err := c.Store.Save(merged); err != nil {
		return added, err
	}
	c.Logger.Info("headline refresh complete",
		zap.Int("new", added),
		zap.Int("total", len(merged)),
	)
	return added, nil
}
