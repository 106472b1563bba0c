// Package search provides the escalation search index used when a source's
// direct crawl yields nothing.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/hsugimura/eizocrawl/internal/crawler"
)

// GoogleIndex implements crawler.SearchIndex via the Custom Search API.
type GoogleIndex struct {
	svc      *customsearch.Service
	engineID string
	logger   *zap.Logger
}

// NewGoogleIndex builds a GoogleIndex. Returns nil when the API key or
// engine ID is missing: escalation is optional and the pipeline runs
// without it.
func NewGoogleIndex(ctx context.Context, apiKey, engineID string, logger *zap.Logger) (*GoogleIndex, error) {
	if apiKey == "" || engineID == "" {
		return nil, nil
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("custom search service: %w", err)
	}
	return &GoogleIndex{
		svc:      svc,
		engineID: engineID,
		logger:   logger,
	}, nil
}

// Search queries the index restricted to the given domain and interest terms.
func (g *GoogleIndex) Search(ctx context.Context, domain string, terms []string, limit int) ([]crawler.SearchResult, error) {
	if limit <= 0 {
		limit = 3
	}

	query := fmt.Sprintf("site:%s %s (入札 OR 公募 OR 調達 OR 募集)", domain, strings.Join(terms, " OR "))
	g.logger.Info("search escalation query", zap.String("query", query))

	resp, err := g.svc.Cse.List().
		Context(ctx).
		Cx(g.engineID).
		Q(query).
		Num(int64(limit)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search list: %w", err)
	}

	results := make([]crawler.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, crawler.SearchResult{
			Title: item.Title,
			URL:   item.Link,
		})
	}
	return results, nil
}
