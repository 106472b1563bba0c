package crawler

import (
	"context"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Renderer executes a page in a JS-capable browser and returns the DOM.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
	Close(ctx context.Context) error
}

// Detector decides whether a fetched page needs JS rendering.
type Detector interface {
	NeedsJS(ctx context.Context, page Page) bool
}

// SearchResult is one hit from the escalation search index.
type SearchResult struct {
	Title string
	URL   string
}

// SearchIndex is the general-purpose search backend used as a one-shot
// escalation when a source's crawl yields zero candidates.
type SearchIndex interface {
	Search(ctx context.Context, domain string, terms []string, limit int) ([]SearchResult, error)
}

// Archive stores raw page snapshots for debugging. Optional.
type Archive interface {
	SavePage(ctx context.Context, page Page) (string, error)
}
