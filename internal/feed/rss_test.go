package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"polysignal/internal/models"
	"polysignal/internal/store"
)

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Album smashes streaming records</title>
      <link>https://example.com/album</link>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
      <description>Summary text.</description>
    </item>
    <item>
      <title>Undated story</title>
      <link>https://example.com/undated</link>
    </item>
  </channel>
</rss>`

func TestRSSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssPayload)
	}))
	defer srv.Close()

	src := NewRSSSource("Test Feed", srv.URL, srv.Client())
	src.now = func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) }

	headlines, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(headlines) != 2 {
		t.Fatalf("headlines = %d", len(headlines))
	}

	h := headlines[0]
	if h.Title != "Album smashes streaming records" || h.URL != "https://example.com/album" {
		t.Fatalf("headline = %+v", h)
	}
	if h.Source != "Test Feed" {
		t.Fatalf("source = %q", h.Source)
	}
	want := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !h.Published.Equal(want) {
		t.Fatalf("published = %s, want %s", h.Published, want)
	}
	// Items without a date fall back to fetch time.
	if !headlines[1].Published.Equal(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("undated published = %s", headlines[1].Published)
	}
}

type staticSource struct {
	name      string
	headlines []models.Headline
	err       error
}

func (s *staticSource) Name() string { return s.name }
func (s *staticSource) Fetch(_ context.Context) ([]models.Headline, error) {
	return s.headlines, s.err
}

func TestCollectorMergesByURL(t *testing.T) {
	cached := []models.Headline{{Title: "existing", URL: "https://example.com/1"}}
	headlineStore := &store.MemoryHeadlineStore{Headlines: cached}

	collector := &Collector{
		Sources: []Source{
			&staticSource{name: "a", headlines: []models.Headline{
				{Title: "existing again", URL: "https://example.com/1"},
				{Title: "fresh", URL: "https://example.com/2"},
				{Title: "no url"},
			}},
			&staticSource{name: "b", err: fmt.Errorf("feed down")},
			&staticSource{name: "c", headlines: []models.Headline{
				{Title: "fresh dup", URL: "https://example.com/2"},
				{Title: "another", URL: "https://example.com/3"},
			}},
		},
		Store:  headlineStore,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) },
	}

	added, err := collector.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if len(headlineStore.Headlines) != 3 {
		t.Fatalf("total = %d, want 3", len(headlineStore.Headlines))
	}
	// Cached entries keep their original FetchedAt; new ones are stamped.
	if headlineStore.Headlines[0].Title != "existing" {
		t.Fatalf("cached headline displaced: %+v", headlineStore.Headlines[0])
	}
	if headlineStore.Headlines[1].FetchedAt.IsZero() {
		t.Fatal("new headline missing fetched_at")
	}
}
