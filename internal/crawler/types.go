// Package crawler implements the bounded-frontier crawl over procurement
// sites: link discovery, pagination, politeness, and optional JS rendering.
package crawler

import (
	"net/http"
	"time"
)

// SeedSource is one named crawl origin, typically a prefecture's
// procurement section. Loaded at startup and never mutated.
type SeedSource struct {
	Name       string
	Prefecture string
	Domain     string
	EntryURLs  []string
}

// Candidate is a discovered link that has not been fetched yet. Within one
// run a URL appears as a Candidate at most once per SeedSource.
type Candidate struct {
	SourceName string
	Prefecture string
	URL        string
	AnchorText string
	Depth      int // pagination hops from the entry page it was found behind
}

// Page is the raw result of fetching a URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	UsedJS     bool
}

// ContentType returns the Content-Type header of the fetched page.
func (p Page) ContentType() string {
	if p.Headers == nil {
		return ""
	}
	return p.Headers.Get("Content-Type")
}

// Vocabulary gates which links become Candidates.
//
// A link is accepted when its anchor text or enclosing text contains an
// Interest term, or when it is a PDF whose anchor matches a Bundle term.
// A link matching an Exclusion term is rejected unless the same text also
// contains a TargetYear marker; forward-looking notices routinely quote
// past-year references and must not be dropped for it.
type Vocabulary struct {
	Interest   []string
	Exclusion  []string
	Bundle     []string
	TargetYear []string
}

// Config holds the settings for a crawl session. Decoupled from Viper so the
// crawler can be constructed and tested independently.
type Config struct {
	UserAgent            string
	RequestTimeout       time.Duration
	MaxPages             int
	MaxPaginationPerPage int
	Concurrency          int
	DomainRPS            float64
	MaxPageBytes         int64

	RenderTimeout        time.Duration
	RenderMaxConcurrency int
	DetectorMinHTMLBytes int
	DetectorKeywords     []string
}
