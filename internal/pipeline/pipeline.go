// Package pipeline orchestrates a full run: crawl each seed source,
// extract documents, classify them, filter the judgments and persist
// the survivors.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/classify"
	"github.com/hsugimura/eizocrawl/internal/crawler"
	"github.com/hsugimura/eizocrawl/internal/extract"
	"github.com/hsugimura/eizocrawl/internal/filter"
	"github.com/hsugimura/eizocrawl/internal/metrics"
	"github.com/hsugimura/eizocrawl/internal/sheets"
)

// Crawler discovers candidates for one seed source.
type Crawler interface {
	Crawl(ctx context.Context, source crawler.SeedSource) []crawler.Candidate
}

// Extractor turns a candidate into a document, nil on soft failure.
type Extractor interface {
	Extract(ctx context.Context, cand crawler.Candidate) *extract.Document
}

// Classifier judges a batch of documents.
type Classifier interface {
	Classify(ctx context.Context, items []classify.Item) []classify.Judgment
}

// FilterFactory builds the run-scoped filter once the destination
// table's existing URLs are known.
type FilterFactory func(existingURLs []string) *filter.Filter

// Summary is the final accounting of one run.
type Summary struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	Discovered     int       `json:"discovered"`
	Extracted      int       `json:"extracted"`
	Classified     int       `json:"classified"`
	ClassifyFailed int       `json:"classify_failed"`
	FilteredIn     int       `json:"filtered_in"`
	FilteredOut    int       `json:"filtered_out"`
	Persisted      int       `json:"persisted"`
}

// Pipeline runs the stages over a configured source set.
type Pipeline struct {
	sources    []crawler.SeedSource
	crawler    Crawler
	extractor  Extractor
	classifier Classifier
	newFilter  FilterFactory
	sink       sheets.Sink
	workers    int
	logger     *zap.Logger

	mu      sync.Mutex
	summary Summary
}

// New builds a Pipeline. workers bounds how many sources crawl
// concurrently; values below one are treated as one.
func New(
	sources []crawler.SeedSource,
	cr Crawler,
	ex Extractor,
	cl Classifier,
	newFilter FilterFactory,
	sink sheets.Sink,
	workers int,
	logger *zap.Logger,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		sources:    sources,
		crawler:    cr,
		extractor:  ex,
		classifier: cl,
		newFilter:  newFilter,
		sink:       sink,
		workers:    workers,
		logger:     logger,
	}
}

// Snapshot returns the current run accounting. Safe to call while the
// run is in flight; the status server does exactly that.
func (p *Pipeline) Snapshot() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// Run executes one full pass. Per-item failures are absorbed by the
// stages; only sink access and context cancellation are fatal.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	p.mu.Lock()
	p.summary = Summary{RunID: uuid.NewString(), StartedAt: time.Now()}
	runID := p.summary.RunID
	p.mu.Unlock()

	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.Int("sources", len(p.sources)))

	existing, err := p.sink.ExistingURLs(ctx)
	if err != nil {
		return p.Snapshot(), fmt.Errorf("load existing urls: %w", err)
	}
	flt := p.newFilter(existing)

	items := p.crawlAndExtract(ctx, logger)
	judgments := p.classifier.Classify(ctx, items)
	p.update(func(s *Summary) {
		s.Classified = len(judgments)
		s.ClassifyFailed = len(items) - len(judgments)
	})

	// The filter stage is cheap and holds the duplicate sets, so it
	// runs serialized even when everything upstream was parallel.
	var records []filter.Record
	for _, j := range judgments {
		rec, reason := flt.Accept(j)
		if reason != "" {
			p.update(func(s *Summary) { s.FilteredOut++ })
			continue
		}
		p.update(func(s *Summary) { s.FilteredIn++ })
		records = append(records, rec)
	}

	persisted, err := p.sink.Append(ctx, records)
	if err != nil {
		p.logFinal(logger)
		return p.Snapshot(), fmt.Errorf("persist records: %w", err)
	}
	metrics.ObservePersisted(persisted)
	p.update(func(s *Summary) { s.Persisted = persisted })

	p.logFinal(logger)
	return p.Snapshot(), ctx.Err()
}

// logFinal emits the run's counts. It runs even when persistence fails,
// so operators always see what the run produced.
func (p *Pipeline) logFinal(logger *zap.Logger) {
	final := p.Snapshot()
	logger.Info("run finished",
		zap.Int("discovered", final.Discovered),
		zap.Int("extracted", final.Extracted),
		zap.Int("classified", final.Classified),
		zap.Int("classify_failed", final.ClassifyFailed),
		zap.Int("filtered_in", final.FilteredIn),
		zap.Int("filtered_out", final.FilteredOut),
		zap.Int("persisted", final.Persisted))
}

// crawlAndExtract fans the sources over the worker pool. Each source
// owns its own frontier state, so workers share nothing but the item
// slice.
func (p *Pipeline) crawlAndExtract(ctx context.Context, logger *zap.Logger) []classify.Item {
	srcCh := make(chan crawler.SeedSource)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		items []classify.Item
	)

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range srcCh {
				found := p.processSource(ctx, source, logger)
				mu.Lock()
				items = append(items, found...)
				mu.Unlock()
			}
		}()
	}

	for _, source := range p.sources {
		select {
		case srcCh <- source:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(srcCh)
	wg.Wait()
	return items
}

func (p *Pipeline) processSource(ctx context.Context, source crawler.SeedSource, logger *zap.Logger) []classify.Item {
	candidates := p.crawler.Crawl(ctx, source)
	p.update(func(s *Summary) { s.Discovered += len(candidates) })
	logger.Info("source crawled",
		zap.String("source", source.Name), zap.Int("candidates", len(candidates)))

	var items []classify.Item
	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		doc := p.extractor.Extract(ctx, cand)
		if doc == nil {
			continue
		}
		p.update(func(s *Summary) { s.Extracted++ })
		items = append(items, classify.Item{Doc: doc, Prefecture: cand.Prefecture})
	}
	return items
}

func (p *Pipeline) update(fn func(*Summary)) {
	p.mu.Lock()
	fn(&p.summary)
	p.mu.Unlock()
}
