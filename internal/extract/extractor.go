// Package extract turns candidate links into text documents, handling HTML
// pages with linked PDF attachments as well as direct PDF links.
package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/crawler"
	"github.com/hsugimura/eizocrawl/internal/dates"
	"github.com/hsugimura/eizocrawl/internal/metrics"
)

// Document is the extracted content of one Candidate.
type Document struct {
	URL             string
	Title           string
	BodyText        string
	AttachedPDFURLs []string
}

// AttachmentVocabulary selects which linked PDF is worth a deep scan.
type AttachmentVocabulary struct {
	Relevant []string // guideline/specification wording
	Noise    []string // Q&A, results, forms, templates
}

// Config bounds extraction output.
type Config struct {
	MaxTextRunes  int
	PDFMaxPages   int
	ScheduleTerms []string
}

// Extractor fetches a candidate URL and produces a Document. A nil Document
// means the candidate is dropped; extraction never raises past one item.
type Extractor struct {
	fetcher crawler.Fetcher
	limiter *crawler.DomainLimiter
	vocab   AttachmentVocabulary
	cfg     Config
	dates   *dates.DateParser
	year    int
	logger  *zap.Logger
}

// New builds an Extractor. The date parser and year feed the PDF page
// relevance test: pages mentioning dates in or after year are kept.
func New(
	fetcher crawler.Fetcher,
	limiter *crawler.DomainLimiter,
	vocab AttachmentVocabulary,
	cfg Config,
	parser *dates.DateParser,
	year int,
	logger *zap.Logger,
) *Extractor {
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = 15000
	}
	if cfg.PDFMaxPages <= 0 {
		cfg.PDFMaxPages = 30
	}
	return &Extractor{
		fetcher: fetcher,
		limiter: limiter,
		vocab:   vocab,
		cfg:     cfg,
		dates:   parser,
		year:    year,
		logger:  logger,
	}
}

// Extract fetches the candidate and returns its document, or nil on fetch
// failure, unsupported content, or an empty body.
func (e *Extractor) Extract(ctx context.Context, cand crawler.Candidate) *Document {
	page, ok := e.fetch(ctx, cand.URL)
	if !ok {
		return nil
	}

	if isPDF(page) {
		doc := e.extractPDFDocument(cand, page)
		outcome := "ok"
		if doc == nil {
			outcome = "empty"
		}
		metrics.ObserveExtraction("pdf", outcome)
		return doc
	}

	doc := e.extractHTML(ctx, cand, page)
	outcome := "ok"
	if doc == nil {
		outcome = "empty"
	}
	metrics.ObserveExtraction("html", outcome)
	return doc
}

func (e *Extractor) extractHTML(ctx context.Context, cand crawler.Candidate, page crawler.Page) *Document {
	gq, err := crawler.NewDocument(page)
	if err != nil {
		e.logger.Warn("html parse failed", zap.String("url", cand.URL), zap.Error(err))
		return nil
	}

	title := strings.TrimSpace(gq.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(gq.Find("h1").First().Text())
	}
	if title == "" {
		title = cand.AnchorText
	}

	attachment, pdfURLs := e.selectAttachment(gq, page)

	gq.Find("script, style, nav, header, footer").Remove()
	body := collapseWhitespace(gq.Find("body").Text())
	if body == "" {
		return nil
	}

	if attachment != "" {
		if text := e.deepScanPDF(ctx, attachment); text != "" {
			body = body + "\n--- 添付資料 ---\n" + text
		}
	}

	return &Document{
		URL:             cand.URL,
		Title:           title,
		BodyText:        truncateRunes(body, e.cfg.MaxTextRunes),
		AttachedPDFURLs: pdfURLs,
	}
}

// selectAttachment scans outbound links and returns the first PDF whose
// anchor matches the relevant vocabulary without matching the noise
// vocabulary, plus every PDF link found on the page.
func (e *Extractor) selectAttachment(gq *goquery.Document, page crawler.Page) (string, []string) {
	base := pageBase(page)
	if base == nil {
		return "", nil
	}

	var (
		chosen  string
		pdfURLs []string
	)
	gq.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, ok := crawler.ResolveURL(base, href)
		if !ok || !crawler.IsPDFURL(abs) {
			return
		}
		pdfURLs = append(pdfURLs, abs)

		if chosen != "" {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if !containsAnyFold(text, e.vocab.Relevant) || containsAnyFold(text, e.vocab.Noise) {
			return
		}
		chosen = abs
	})
	return chosen, pdfURLs
}

func (e *Extractor) deepScanPDF(ctx context.Context, pdfURL string) string {
	page, ok := e.fetch(ctx, pdfURL)
	if !ok {
		return ""
	}
	text, err := e.pdfText(page.Body)
	if err != nil {
		e.logger.Warn("attachment scan failed", zap.String("url", pdfURL), zap.Error(err))
		return ""
	}
	return text
}

func (e *Extractor) extractPDFDocument(cand crawler.Candidate, page crawler.Page) *Document {
	text, err := e.pdfText(page.Body)
	if err != nil {
		e.logger.Warn("pdf extraction failed", zap.String("url", cand.URL), zap.Error(err))
		return nil
	}
	if text == "" {
		e.logger.Warn("pdf yielded no text, possibly image-only", zap.String("url", cand.URL))
		return nil
	}

	title := cand.AnchorText
	if title == "" {
		title = lastPathSegment(cand.URL)
	}
	return &Document{
		URL:      cand.URL,
		Title:    title,
		BodyText: truncateRunes(text, e.cfg.MaxTextRunes),
	}
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (crawler.Page, bool) {
	if err := e.limiter.Wait(ctx, rawURL); err != nil {
		return crawler.Page{}, false
	}
	page, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		e.logger.Warn("extract fetch failed", zap.String("url", rawURL), zap.Error(err))
		return crawler.Page{}, false
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 || len(page.Body) == 0 {
		return crawler.Page{}, false
	}
	return page, true
}

// pageRelevant keeps a PDF page when it mentions a date in the current or
// future year, or a schedule term. Procurement PDFs are long; taking the
// first N pages misses schedule tables that sit near the end.
func (e *Extractor) pageRelevant(text string) bool {
	if e.dates.HasDateInOrAfterYear(text, e.year) {
		return true
	}
	return containsAnyFold(text, e.cfg.ScheduleTerms)
}
