package index

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"polysignal/internal/models"
	"polysignal/internal/store"
)

// fakeEmbedder returns a fixed vector per text and records every batch it
// was asked to embed.
type fakeEmbedder struct {
	vectors map[string][]float32
	batches [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) embedCalls() int {
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func market(id, question string) models.Market {
	return models.Market{ID: id, Question: question}
}

func TestUpsertEmbedsOnlyNewMarkets(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {1, 1, 0},
	}}
	vectors := &store.MemoryVectorStore{}
	ix := New(emb, vectors, "test-model", zap.NewNop())

	markets := []models.Market{market("a", "alpha"), market("b", "beta")}
	if err := ix.Upsert(context.Background(), markets); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}
	if emb.embedCalls() != 2 {
		t.Fatalf("initial upsert embedded %d texts, want 2", emb.embedCalls())
	}
	if vectors.Saves != 1 {
		t.Fatalf("saves = %d, want 1", vectors.Saves)
	}

	// One new market: only it is embedded, the rest comes from cache.
	markets = append(markets, market("c", "gamma"))
	if err := ix.Upsert(context.Background(), markets); err != nil {
		t.Fatalf("incremental upsert: %v", err)
	}
	if emb.embedCalls() != 3 {
		t.Fatalf("incremental upsert embedded %d total texts, want 3", emb.embedCalls())
	}
	last := emb.batches[len(emb.batches)-1]
	if len(last) != 1 || last[0] != "gamma" {
		t.Fatalf("incremental batch = %v, want [gamma]", last)
	}
}

func TestUpsertUnchangedSetIsNoOp(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"alpha": {1, 0, 0}}}
	vectors := &store.MemoryVectorStore{}
	ix := New(emb, vectors, "test-model", zap.NewNop())

	markets := []models.Market{market("a", "alpha")}
	if err := ix.Upsert(context.Background(), markets); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	savesAfterBuild := vectors.Saves
	callsAfterBuild := emb.embedCalls()

	if err := ix.Upsert(context.Background(), markets); err != nil {
		t.Fatalf("repeat upsert: %v", err)
	}
	if emb.embedCalls() != callsAfterBuild {
		t.Fatalf("identical set re-embedded: %d calls", emb.embedCalls()-callsAfterBuild)
	}
	if vectors.Saves != savesAfterBuild {
		t.Fatalf("identical set rewrote cache: %d saves", vectors.Saves-savesAfterBuild)
	}
}

func TestUpsertPrunesClosedMarkets(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
	}}
	vectors := &store.MemoryVectorStore{}
	ix := New(emb, vectors, "test-model", zap.NewNop())

	if err := ix.Upsert(context.Background(), []models.Market{market("a", "alpha"), market("b", "beta")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	callsAfterBuild := emb.embedCalls()

	if err := ix.Upsert(context.Background(), []models.Market{market("a", "alpha")}); err != nil {
		t.Fatalf("pruning upsert: %v", err)
	}
	if emb.embedCalls() != callsAfterBuild {
		t.Fatalf("prune-only upsert embedded %d texts", emb.embedCalls()-callsAfterBuild)
	}
	if len(vectors.Set.Entries) != 1 || vectors.Set.Entries[0].MarketID != "a" {
		t.Fatalf("cache after prune = %+v", vectors.Set.Entries)
	}
}

func TestUpsertDiscardsCacheOnModelChange(t *testing.T) {
	vectors := &store.MemoryVectorStore{Set: store.VectorSet{
		Model:   "old-model",
		Entries: []store.VectorEntry{{MarketID: "a", Vector: []float32{9, 9, 9}}},
	}}
	emb := &fakeEmbedder{vectors: map[string][]float32{"alpha": {1, 0, 0}}}
	ix := New(emb, vectors, "new-model", zap.NewNop())

	if err := ix.Upsert(context.Background(), []models.Market{market("a", "alpha")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if emb.embedCalls() != 1 {
		t.Fatalf("stale-model cache reused, %d embeds", emb.embedCalls())
	}
	if vectors.Set.Model != "new-model" {
		t.Fatalf("saved model = %q", vectors.Set.Model)
	}
}

func TestQueryFiltersAndRanks(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"alpha":     {1, 0, 0},
		"beta":      {0, 1, 0},
		"alpha-ish": {0.9, 0.1, 0},
		"query":     {1, 0, 0},
	}}
	vectors := &store.MemoryVectorStore{}
	ix := New(emb, vectors, "test-model", zap.NewNop())

	markets := []models.Market{
		market("a", "alpha"),
		market("b", "beta"),
		market("c", "alpha-ish"),
	}
	if err := ix.Upsert(context.Background(), markets); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := ix.Query(context.Background(), "query", 0.65)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2 (beta is orthogonal)", len(hits))
	}
	if hits[0].Market.ID != "a" || hits[1].Market.ID != "c" {
		t.Fatalf("ranking = %s, %s; want a then c", hits[0].Market.ID, hits[1].Market.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("scores not descending: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestQueryOnEmptyIndexReturnsNothing(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	ix := New(emb, &store.MemoryVectorStore{}, "test-model", zap.NewNop())

	hits, err := ix.Query(context.Background(), "anything", 0.5)
	if err != nil {
		t.Fatalf("query on unbuilt index errored: %v", err)
	}
	if hits != nil {
		t.Fatalf("hits = %v, want nil", hits)
	}
	if len(emb.batches) != 0 {
		t.Fatalf("unbuilt index still embedded the query")
	}
}
