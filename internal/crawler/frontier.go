package crawler

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/metrics"
)

// Frontier runs a bounded-depth BFS over one SeedSource. Each source owns
// its own queue and visited set, so sources can crawl concurrently with no
// shared mutable state.
type Frontier struct {
	fetcher    Fetcher
	renderer   Renderer
	detector   Detector
	discoverer *Discoverer
	limiter    *DomainLimiter
	archive    Archive
	search     SearchIndex
	searchTerm []string
	searchMax  int
	cfg        Config
	logger     *zap.Logger
}

// NewFrontier constructs a Frontier. Renderer, detector, archive and search
// index are optional; pass nil to disable the corresponding behavior.
func NewFrontier(
	cfg Config,
	fetcher Fetcher,
	renderer Renderer,
	detector Detector,
	discoverer *Discoverer,
	limiter *DomainLimiter,
	archive Archive,
	search SearchIndex,
	searchTerms []string,
	searchMax int,
	logger *zap.Logger,
) *Frontier {
	return &Frontier{
		fetcher:    fetcher,
		renderer:   renderer,
		detector:   detector,
		discoverer: discoverer,
		limiter:    limiter,
		archive:    archive,
		search:     search,
		searchTerm: searchTerms,
		searchMax:  searchMax,
		cfg:        cfg,
		logger:     logger,
	}
}

// Crawl visits pages breadth-first from the source's entry URLs and returns
// the deduplicated candidates. It terminates when the queue empties or
// MaxPages pages have been visited; the page bound is the cycle guard, since
// pagination graphs can loop.
func (f *Frontier) Crawl(ctx context.Context, source SeedSource) []Candidate {
	type queued struct {
		url   string
		depth int
	}

	var (
		queue      []queued
		visited    = map[string]struct{}{}
		seenTarget = map[string]struct{}{}
		out        []Candidate
		pages      int
	)
	for _, u := range source.EntryURLs {
		queue = append(queue, queued{url: u})
	}

	for len(queue) > 0 && pages < f.cfg.MaxPages {
		if ctx.Err() != nil {
			return out
		}

		target := queue[0]
		queue = queue[1:]

		key, err := NormalizeURL(target.url)
		if err != nil {
			f.logger.Warn("skipping malformed url", zap.String("url", target.url), zap.Error(err))
			continue
		}
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}
		pages++

		page, ok := f.fetchPage(ctx, source, target.url)
		if !ok {
			continue
		}

		candidates, pagination := f.discoverer.Discover(source, page)
		for _, c := range candidates {
			if _, dup := seenTarget[c.URL]; dup {
				continue
			}
			seenTarget[c.URL] = struct{}{}
			c.Depth = target.depth
			out = append(out, c)
		}

		for _, p := range pagination {
			pk, err := NormalizeURL(p)
			if err != nil {
				continue
			}
			if _, seen := visited[pk]; !seen {
				queue = append(queue, queued{url: p, depth: target.depth + 1})
			}
		}
	}

	metrics.ObserveCandidates(source.Name, len(out))

	if len(out) == 0 && f.search != nil {
		out = f.escalate(ctx, source, seenTarget)
	}

	f.logger.Info("source crawl finished",
		zap.String("source", source.Name),
		zap.Int("pages", pages),
		zap.Int("candidates", len(out)),
	)
	return out
}

// escalate issues a single domain-scoped search query and harvests the top
// result pages one-shot, with no further pagination.
func (f *Frontier) escalate(ctx context.Context, source SeedSource, seen map[string]struct{}) []Candidate {
	f.logger.Info("no candidates found, escalating to search index",
		zap.String("source", source.Name),
		zap.String("domain", source.Domain),
	)

	results, err := f.search.Search(ctx, source.Domain, f.searchTerm, f.searchMax)
	if err != nil {
		f.logger.Warn("search escalation failed", zap.String("source", source.Name), zap.Error(err))
		return nil
	}

	var out []Candidate
	for _, res := range results {
		page, ok := f.fetchPage(ctx, source, res.URL)
		if !ok {
			continue
		}
		candidates, _ := f.discoverer.Discover(source, page)
		for _, c := range candidates {
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// fetchPage applies the politeness delay, fetches the page, optionally
// escalates to the JS renderer, and archives the snapshot. Any failure is
// logged and reported as a soft miss.
func (f *Frontier) fetchPage(ctx context.Context, source SeedSource, target string) (Page, bool) {
	if err := f.limiter.Wait(ctx, target); err != nil {
		return Page{}, false
	}

	page, err := f.fetcher.Fetch(ctx, target)
	if err != nil {
		f.logger.Warn("fetch failed",
			zap.String("source", source.Name),
			zap.String("url", target),
			zap.Error(err),
		)
		metrics.ObservePageFetch(target, "error")
		return Page{}, false
	}
	metrics.ObservePageFetch(target, strconv.Itoa(page.StatusCode))

	if page.StatusCode < 200 || page.StatusCode >= 300 || len(page.Body) == 0 {
		f.logger.Warn("skipping response",
			zap.String("url", target),
			zap.Int("status_code", page.StatusCode),
		)
		return Page{}, false
	}

	if f.renderer != nil && f.detector != nil && f.detector.NeedsJS(ctx, page) {
		rendered, rerr := f.renderer.Render(ctx, target)
		if rerr != nil {
			f.logger.Warn("render escalation failed", zap.String("url", target), zap.Error(rerr))
		} else if len(rendered.Body) > 0 {
			page = rendered
		}
	}

	if f.archive != nil {
		if _, aerr := f.archive.SavePage(ctx, page); aerr != nil {
			f.logger.Warn("page archive failed", zap.String("url", target), zap.Error(aerr))
		}
	}

	return page, true
}
