package crawler

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// paginationNumber matches the small page numbers procurement sites use.
var paginationNumber = regexp.MustCompile(`^([2-9]|10)$`)

// Discoverer extracts candidate notice links and pagination links from a
// fetched page. All vocabularies arrive via the constructor; there is no
// package-level keyword state.
type Discoverer struct {
	vocab         Vocabulary
	maxPagination int
	logger        *zap.Logger
}

// NewDiscoverer builds a Discoverer.
func NewDiscoverer(vocab Vocabulary, maxPagination int, logger *zap.Logger) *Discoverer {
	if maxPagination <= 0 {
		maxPagination = 5
	}
	return &Discoverer{
		vocab:         vocab,
		maxPagination: maxPagination,
		logger:        logger,
	}
}

// Discover parses the page and returns candidate links plus same-authority
// pagination links. It fails soft: any parse problem yields empty results
// and a logged warning, never an error to the caller.
func (d *Discoverer) Discover(source SeedSource, page Page) ([]Candidate, []string) {
	doc, err := NewDocument(page)
	if err != nil {
		d.logger.Warn("page parse failed",
			zap.String("source", source.Name),
			zap.String("url", page.URL),
			zap.Error(err),
		)
		return nil, nil
	}

	base, err := url.Parse(pageAddress(page))
	if err != nil {
		d.logger.Warn("page url unparseable", zap.String("url", page.URL), zap.Error(err))
		return nil, nil
	}

	var (
		candidates []Candidate
		pagination []string
		seenPag    = map[string]struct{}{}
	)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, ok := ResolveURL(base, href)
		if !ok {
			return
		}

		text := strings.TrimSpace(sel.Text())
		enclosing := strings.TrimSpace(sel.Parent().Text())
		combined := text + enclosing

		if d.isPagination(text) {
			if !SameAuthority(pageAddress(page), abs) {
				return
			}
			if _, dup := seenPag[abs]; dup || len(pagination) >= d.maxPagination {
				return
			}
			seenPag[abs] = struct{}{}
			pagination = append(pagination, abs)
			return
		}

		// Exclusion terms drop a link unless the same text names the
		// target fiscal year; stale wording often appears inside notices
		// that are still open.
		if containsAny(combined, d.vocab.Exclusion) && !containsAny(combined, d.vocab.TargetYear) {
			return
		}

		interesting := containsAny(combined, d.vocab.Interest)
		bundlePDF := IsPDFURL(abs) && containsAny(text, d.vocab.Bundle)
		if !interesting && !bundlePDF {
			return
		}

		title := text
		if title == "" {
			title = "詳細資料"
		}
		candidates = append(candidates, Candidate{
			SourceName: source.Name,
			Prefecture: source.Prefecture,
			URL:        abs,
			AnchorText: title,
		})
	})

	return candidates, pagination
}

func (d *Discoverer) isPagination(text string) bool {
	if paginationNumber.MatchString(text) {
		return true
	}
	return strings.Contains(text, "次") || strings.Contains(text, ">")
}

// NewDocument parses a fetched page into a goquery document, decoding from
// the server-declared or sniffed encoding. Prefecture sites still serve
// Shift_JIS and EUC-JP.
func NewDocument(page Page) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType())
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(reader)
}

func pageAddress(page Page) string {
	if page.FinalURL != "" {
		return page.FinalURL
	}
	return page.URL
}

func containsAny(haystack string, needles []string) bool {
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
