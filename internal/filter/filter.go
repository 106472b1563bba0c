// Package filter decides which judged documents become persisted
// records, applying temporal and duplicate rules in a fixed order.
package filter

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/classify"
	"github.com/hsugimura/eizocrawl/internal/dates"
)

// Record is one row bound for the destination table. Field order here
// mirrors the table's column order.
type Record struct {
	CapturedAt     string
	Prefecture     string
	Title          string
	Summary        string
	Deadline       string
	SourceURL      string
	ApplicationURL string
}

// Rejection reasons surfaced in logs and run statistics.
const (
	ReasonLabel    = "label"
	ReasonDupTitle = "duplicate_title"
	ReasonStale    = "stale_marker"
	ReasonExpired  = "expired"
	ReasonDupURL   = "duplicate_url"
	reasonAccepted = ""
)

// Filter holds run-scoped state, so one instance serves exactly one
// run. Accept is not safe for concurrent use; callers serialize this
// stage.
type Filter struct {
	dates      *dates.DateParser
	today      time.Time
	staleness  []string
	targetYear []string
	existing   map[string]struct{}
	seenTitles map[string]struct{}
	logger     *zap.Logger
}

// New builds a Filter. today must already be truncated to a calendar
// date in the run's timezone. existingURLs is the destination table's
// current source-URL index.
func New(parser *dates.DateParser, today time.Time, staleness, targetYear, existingURLs []string, logger *zap.Logger) *Filter {
	existing := make(map[string]struct{}, len(existingURLs))
	for _, u := range existingURLs {
		existing[u] = struct{}{}
	}
	return &Filter{
		dates:      parser,
		today:      today,
		staleness:  staleness,
		targetYear: targetYear,
		existing:   existing,
		seenTitles: make(map[string]struct{}),
		logger:     logger,
	}
}

// Accept applies the rejection rules in order and materializes a
// Record for a judgment that survives all of them. The second return
// is the rejection reason, empty on acceptance.
func (f *Filter) Accept(j classify.Judgment) (Record, string) {
	if reason := f.reject(j); reason != reasonAccepted {
		f.logger.Info("record rejected",
			zap.String("url", j.Doc.URL),
			zap.String("title", j.Verdict.CanonicalTitle),
			zap.String("reason", reason))
		return Record{}, reason
	}

	title := strings.TrimSpace(j.Verdict.CanonicalTitle)
	f.seenTitles[title] = struct{}{}
	f.existing[j.Doc.URL] = struct{}{}

	prefecture := j.Verdict.Prefecture
	if prefecture == "" {
		prefecture = j.Prefecture
	}
	return Record{
		CapturedAt:     f.today.Format("2006-01-02"),
		Prefecture:     prefecture,
		Title:          title,
		Summary:        j.Verdict.Summary,
		Deadline:       j.Verdict.Deadline(),
		SourceURL:      j.Doc.URL,
		ApplicationURL: j.Verdict.ApplicationURL,
	}, reasonAccepted
}

func (f *Filter) reject(j classify.Judgment) string {
	if !j.Verdict.Label.Relevant() {
		return ReasonLabel
	}

	title := strings.TrimSpace(j.Verdict.CanonicalTitle)
	if _, seen := f.seenTitles[title]; seen && title != "" {
		return ReasonDupTitle
	}

	// The judgment's own language gets the same staleness check the
	// discoverer applies to anchor text, with the same current-year
	// override, because keyword filtering upstream is imprecise.
	freeText := j.Verdict.EvidenceQuote + "\n" + j.Verdict.Memo
	if containsAny(freeText, f.staleness) && !containsAny(freeText, f.targetYear) {
		return ReasonStale
	}

	if f.expired(j.Verdict) {
		return ReasonExpired
	}

	if _, dup := f.existing[j.Doc.URL]; dup {
		return ReasonDupURL
	}
	return reasonAccepted
}

// expired reports whether every date the verdict carries is strictly
// before today. A verdict with no parseable date is never expired.
func (f *Filter) expired(v classify.Verdict) bool {
	parsedAny := false
	for _, field := range []string{v.ApplicationDeadline, v.ProposalDeadline} {
		d, ok := f.dates.Parse(field)
		if !ok {
			continue
		}
		parsedAny = true
		if !d.Before(f.today) {
			return false
		}
	}
	return parsedAny
}

func containsAny(s string, terms []string) bool {
	lower := strings.ToLower(s)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
