package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hsugimura/eizocrawl/internal/crawler"
)

// pdfText extracts text from a PDF, page by page, keeping only pages that
// pass the relevance test. Recovers from the parser's panics: municipal
// PDFs are frequently malformed.
func (e *Extractor) pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	limit := total
	if limit > e.cfg.PDFMaxPages {
		limit = e.cfg.PDFMaxPages
	}

	var parts []string
	for i := 1; i <= limit; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		pageText = collapseWhitespace(pageText)
		if pageText == "" || !e.pageRelevant(pageText) {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---", i), pageText)
	}

	return strings.Join(parts, "\n"), nil
}

func isPDF(page crawler.Page) bool {
	ct := strings.ToLower(page.ContentType())
	if strings.Contains(ct, "application/pdf") {
		return true
	}
	return crawler.IsPDFURL(page.FinalURL) || crawler.IsPDFURL(page.URL)
}

// pageBase returns the page's address as a URL for resolving relative links.
func pageBase(page crawler.Page) *url.URL {
	addr := page.FinalURL
	if addr == "" {
		addr = page.URL
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil
	}
	return u
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		kept = append(kept, line)
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	return blankLines.ReplaceAllString(out, "\n\n")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "\n...(省略)"
}

func containsAnyFold(haystack string, needles []string) bool {
	if haystack == "" {
		return false
	}
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return rawURL
	}
	return segs[len(segs)-1]
}
