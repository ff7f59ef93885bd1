package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"polysignal/internal/models"
)

// DefaultFeeds covers the entertainment, sports and crypto beats that map
// onto Polymarket's market categories.
var DefaultFeeds = map[string]string{
	"CoinDesk":           "https://www.coindesk.com/arc/outboundfeeds/rss/",
	"Billboard":          "https://www.billboard.com/feed/",
	"Box Office Mojo":    "https://www.boxofficemojo.com/feed/",
	"Variety":            "https://variety.com/feed/",
	"ESPN":               "https://www.espn.com/espn/rss/news",
	"Bleacher Report":    "https://bleacherreport.com/articles/feed",
	"Hollywood Reporter": "https://www.hollywoodreporter.com/feed/",
	"TMZ":                "https://www.tmz.com/rss.xml",
	"Reuters Breaking":   "https://www.reuters.com/rssfeed/breakingviews",
}

// RSSSource fetches one RSS/Atom feed.
type RSSSource struct {
	name   string
	url    string
	parser *gofeed.Parser
	now    func() time.Time
}

func NewRSSSource(name, url string, httpClient *http.Client) *RSSSource {
	parser := gofeed.NewParser()
	if httpClient != nil {
		parser.Client = httpClient
	}
	return &RSSSource{
		name:   name,
		url:    url,
		parser: parser,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RSSSources builds one source per configured feed.
func RSSSources(feeds map[string]string, httpClient *http.Client) []Source {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	out := make([]Source, 0, len(feeds))
	for name, url := range feeds {
		out = append(out, NewRSSSource(name, url, httpClient))
	}
	return out
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context) ([]models.Headline, error) {
	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, err
	}
	headlines := make([]models.Headline, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		published := s.now()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}
		headlines = append(headlines, models.Headline{
			Title:     item.Title,
			URL:       item.Link,
			Published: published,
			Summary:   item.Description,
			Source:    s.name,
		})
	}
	return headlines, nil
}
