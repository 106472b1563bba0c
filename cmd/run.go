package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/api"
	"github.com/hsugimura/eizocrawl/internal/classify"
	"github.com/hsugimura/eizocrawl/internal/classify/anthropic"
	"github.com/hsugimura/eizocrawl/internal/clock"
	"github.com/hsugimura/eizocrawl/internal/config"
	"github.com/hsugimura/eizocrawl/internal/crawler"
	"github.com/hsugimura/eizocrawl/internal/dates"
	"github.com/hsugimura/eizocrawl/internal/extract"
	"github.com/hsugimura/eizocrawl/internal/filter"
	"github.com/hsugimura/eizocrawl/internal/logging"
	"github.com/hsugimura/eizocrawl/internal/metrics"
	"github.com/hsugimura/eizocrawl/internal/pipeline"
	"github.com/hsugimura/eizocrawl/internal/search"
	"github.com/hsugimura/eizocrawl/internal/sheets"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Executes one crawl-classify-persist pass over all sources",
		Long: `Crawls every configured seed source, classifies the extracted
documents and appends the accepted records to the destination
spreadsheet. Configuration problems abort before any network activity.`,
		RunE: runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.InitLogger(cfg.Logging.Development)
	defer logging.Sync()
	logger := logging.L
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	today, err := clock.Today(cfg.Pipeline.Today, cfg.Pipeline.Timezone)
	if err != nil {
		return err
	}
	logger.Info("run date resolved", zap.String("today", today.Format("2006-01-02")))

	p, closeFn, err := buildPipeline(ctx, cfg, today, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.Server.Enabled {
		srv := api.NewServer(func() any { return p.Snapshot() }, logger)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			if serr := srv.Serve(ctx, addr); serr != nil {
				logger.Warn("status server stopped", zap.Error(serr))
			}
		}()
	}

	if _, err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run pipeline: %w", err)
	}
	return nil
}

func buildPipeline(ctx context.Context, cfg config.Config, today time.Time, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	ccfg := crawlerConfig(cfg.Crawler)

	fetcher, err := crawler.NewCollyFetcher(ccfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init fetcher: %w", err)
	}

	renderer, err := buildRenderer(cfg, ccfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if renderer != nil {
			if cerr := renderer.Close(context.Background()); cerr != nil {
				logger.Warn("renderer close failed", zap.Error(cerr))
			}
		}
	}

	var detector crawler.Detector
	if renderer != nil {
		detector = crawler.NewHeuristicDetector(cfg.Crawler.DetectorMinHTMLBytes, cfg.Crawler.DetectorKeywords)
	}

	var archive crawler.Archive
	if cfg.Crawler.ArchiveDir != "" {
		fsArchive, aerr := crawler.NewFileSystemArchive(cfg.Crawler.ArchiveDir, cfg.Crawler.MaxPageBytes, logger)
		if aerr != nil {
			return nil, nil, fmt.Errorf("init archive: %w", aerr)
		}
		archive = fsArchive
	}

	var searchIdx crawler.SearchIndex
	gi, err := search.NewGoogleIndex(ctx, cfg.Search.APIKey, cfg.Search.EngineID, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init search index: %w", err)
	}
	if gi != nil {
		searchIdx = gi
	}

	limiter := crawler.NewDomainLimiter(cfg.Crawler.DomainRPS)
	vocab := crawler.Vocabulary{
		Interest:   cfg.Vocab.Interest,
		Exclusion:  cfg.Vocab.Exclusion,
		Bundle:     cfg.Vocab.Bundle,
		TargetYear: cfg.Vocab.TargetYearMarkers,
	}
	discoverer := crawler.NewDiscoverer(vocab, cfg.Crawler.MaxPaginationPerPage, logger)
	frontier := crawler.NewFrontier(
		ccfg, fetcher, renderer, detector, discoverer, limiter,
		archive, searchIdx, cfg.Vocab.Interest, cfg.Search.MaxResults, logger,
	)

	dateParser := dates.NewDateParser(cfg.Eras, today.Location())
	extractor := extract.New(
		fetcher, limiter,
		extract.AttachmentVocabulary{
			Relevant: cfg.Vocab.AttachmentRelevant,
			Noise:    cfg.Vocab.AttachmentNoise,
		},
		extract.Config{
			MaxTextRunes:  cfg.Extract.MaxTextRunes,
			PDFMaxPages:   cfg.Extract.PDFMaxPages,
			ScheduleTerms: cfg.Vocab.ScheduleTerms,
		},
		dateParser, today.Year(), logger,
	)

	client := anthropic.NewClient(cfg.Classify.BaseURL, cfg.Classify.APIKey)
	dispatcher := classify.NewDispatcher(client, cfg.Classify, logger)

	sink, err := buildSink(ctx, cfg, today, logger)
	if err != nil {
		return nil, nil, err
	}

	newFilter := func(existing []string) *filter.Filter {
		return filter.New(dateParser, today, cfg.Vocab.StalenessMarkers, cfg.Vocab.TargetYearMarkers, existing, logger)
	}

	p := pipeline.New(
		seedSources(cfg.Sources),
		frontier, extractor, dispatcher, newFilter, sink,
		cfg.Crawler.Concurrency, logger,
	)
	return p, closeFn, nil
}

func buildRenderer(cfg config.Config, ccfg crawler.Config, logger *zap.Logger) (crawler.Renderer, error) {
	if !cfg.Crawler.RenderEnabled {
		return nil, nil
	}
	renderer, err := crawler.NewChromedpRenderer(ccfg, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, crawler.ErrRendererDisabled):
		logger.Warn("Renderer unavailable; continuing without JS escalation")
		return nil, nil
	default:
		return nil, fmt.Errorf("init renderer: %w", err)
	}
}

func buildSink(ctx context.Context, cfg config.Config, today time.Time, logger *zap.Logger) (sheets.Sink, error) {
	if cfg.Sheets.Provider == "memory" {
		logger.Info("using in-memory sink; records will not be persisted")
		return sheets.NewMemorySink(), nil
	}
	sink, err := sheets.NewGoogleSink(
		ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetPrefix,
		cfg.Sheets.CredentialsFile, today, logger,
	)
	if err != nil {
		return nil, fmt.Errorf("init sheets sink: %w", err)
	}
	return sink, nil
}

func crawlerConfig(c config.CrawlerConfig) crawler.Config {
	return crawler.Config{
		UserAgent:            c.UserAgent,
		RequestTimeout:       c.RequestTimeout(),
		MaxPages:             c.MaxPagesPerSource,
		MaxPaginationPerPage: c.MaxPaginationPerPage,
		Concurrency:          c.Concurrency,
		DomainRPS:            c.DomainRPS,
		MaxPageBytes:         c.MaxPageBytes,
		RenderTimeout:        c.RenderTimeout(),
		RenderMaxConcurrency: c.RenderMaxConcurrency,
		DetectorMinHTMLBytes: c.DetectorMinHTMLBytes,
		DetectorKeywords:     c.DetectorKeywords,
	}
}

// seedSources flattens the config map into a deterministic order so
// runs visit sources in the same sequence.
func seedSources(sources map[string]config.SourceConfig) []crawler.SeedSource {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]crawler.SeedSource, 0, len(names))
	for _, name := range names {
		src := sources[name]
		out = append(out, crawler.SeedSource{
			Name:       name,
			Prefecture: src.Prefecture,
			Domain:     src.Domain,
			EntryURLs:  src.EntryURLs,
		})
	}
	return out
}
