// Package index maintains the market embedding index used for the semantic
// pre-filter stage of matching.
package index

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"polysignal/internal/embed"
	"polysignal/internal/models"
	"polysignal/internal/store"
)

// Candidate is one similarity hit for a query text.
type Candidate struct {
	Market models.Market
	Score  float64
}

// Index answers nearest-neighbor queries over market embeddings. Upsert keeps
// the vector cache spanning exactly the current market set without
// re-embedding unchanged markets.
type Index struct {
	embedder embed.Embedder
	vectors  store.VectorStore
	logger   *zap.Logger
	model    string

	loaded  bool
	built   bool
	entries []store.VectorEntry
	markets map[string]models.Market
}

func New(embedder embed.Embedder, vectors store.VectorStore, model string, logger *zap.Logger) *Index {
	return &Index{
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
		model:    model,
		markets:  map[string]models.Market{},
	}
}

func (ix *Index) loadCache() error {
	if ix.loaded {
		return nil
	}
	set, err := ix.vectors.Load()
	if err != nil {
		return fmt.Errorf("load vector cache: %w", err)
	}
	if set.Model != "" && ix.model != "" && set.Model != ix.model {
		// A model change invalidates every cached vector.
		ix.logger.Warn("vector cache built with different model, discarding",
			zap.String("cached", set.Model),
			zap.String("configured", ix.model),
		)
		set.Entries = nil
	}
	ix.entries = set.Entries
	ix.loaded = true
	return nil
}

// Upsert builds or repairs the index so it exactly spans the given markets.
// Cached vectors are reused by market id; only unseen markets are embedded;
// vectors for absent markets are dropped. An unchanged set is a no-op.
func (ix *Index) Upsert(ctx context.Context, markets []models.Market) error {
	if err := ix.loadCache(); err != nil {
		return err
	}

	byID := make(map[string]store.VectorEntry, len(ix.entries))
	for _, e := range ix.entries {
		byID[e.MarketID] = e
	}

	ix.markets = make(map[string]models.Market, len(markets))
	reused := make([]store.VectorEntry, 0, len(markets))
	var newMarkets []models.Market
	for _, m := range markets {
		if m.ID == "" {
			continue
		}
		ix.markets[m.ID] = m
		if e, ok := byID[m.ID]; ok {
			reused = append(reused, e)
		} else {
			newMarkets = append(newMarkets, m)
		}
	}

	if len(newMarkets) == 0 && len(reused) == len(ix.entries) {
		ix.logger.Info("embedding cache up to date", zap.Int("markets", len(reused)))
		ix.built = true
		return nil
	}

	if len(newMarkets) == 0 {
		pruned := len(ix.entries) - len(reused)
		ix.entries = reused
		ix.built = true
		if err := ix.save(); err != nil {
			return err
		}
		ix.logger.Info("pruned closed markets from embedding cache",
			zap.Int("pruned", pruned),
			zap.Int("remaining", len(reused)),
		)
		return nil
	}

	ix.logger.Info("embedding new markets",
		zap.Int("new", len(newMarkets)),
		zap.Int("reused", len(reused)),
	)
	texts := make([]string, 0, len(newMarkets))
	for _, m := range newMarkets {
		texts = append(texts, m.EmbedText())
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d markets: %w", len(newMarkets), err)
	}
	if len(vectors) != len(newMarkets) {
		return fmt.Errorf("embedder returned %d vectors for %d markets", len(vectors), len(newMarkets))
	}

	ix.entries = reused
	for i, m := range newMarkets {
		ix.entries = append(ix.entries, store.VectorEntry{MarketID: m.ID, Vector: vectors[i]})
	}
	ix.built = true
	return ix.save()
}

func (ix *Index) save() error {
	if err := ix.vectors.Save(store.VectorSet{Model: ix.model, Entries: ix.entries}); err != nil {
		return fmt.Errorf("save vector cache: %w", err)
	}
	return nil
}

// Query embeds the text and returns markets scoring at or above threshold,
// best first. A query against an unbuilt index returns nothing and logs a
// warning rather than failing.
func (ix *Index) Query(ctx context.Context, text string, threshold float64) ([]Candidate, error) {
	if !ix.built || len(ix.entries) == 0 {
		ix.logger.Warn("similarity index is empty, call Upsert first")
		return nil, nil
	}
	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))
	}
	query := vectors[0]

	var out []Candidate
	for _, e := range ix.entries {
		market, ok := ix.markets[e.MarketID]
		if !ok {
			continue
		}
		score := embed.Cosine(query, e.Vector)
		if score >= threshold {
			out = append(out, Candidate{Market: market, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
