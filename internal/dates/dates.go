// Package dates normalizes the date expressions procurement notices use:
// Gregorian with -, / or 年月日 separators, and era notation converted
// through a configurable base-year table.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// gregorianPattern accepts YYYY-MM-DD and the -, / and 年月日 separator
// variants procurement notices use.
var gregorianPattern = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})日?`)

// DateParser converts free-form date strings into calendar dates. Era base
// years are configuration: gregorian year = base year + era year.
type DateParser struct {
	eras  map[string]int
	eraRe *regexp.Regexp
	loc   *time.Location
}

// NewDateParser builds a parser for the configured era table. The location
// anchors parsed dates, normally Asia/Tokyo.
func NewDateParser(eras map[string]int, loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.UTC
	}

	names := make([]string, 0, len(eras))
	for name := range eras {
		names = append(names, regexp.QuoteMeta(name))
	}
	// Longest era name first so prefixes never shadow.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	var eraRe *regexp.Regexp
	if len(names) > 0 {
		eraRe = regexp.MustCompile(`(` + strings.Join(names, "|") + `)(元|\d{1,2})年(\d{1,2})月(\d{1,2})日?`)
	}

	return &DateParser{
		eras:  eras,
		eraRe: eraRe,
		loc:   loc,
	}
}

// Parse extracts the first date expression in s. The second return value is
// false when no supported expression is present; unparseable input is an
// "unknown" date, never an error.
func (p *DateParser) Parse(s string) (time.Time, bool) {
	dates := p.FindAll(s)
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[0], true
}

// FindAll returns every date expression found in s, in order of appearance.
// Era dates are converted through the configured base-year table.
func (p *DateParser) FindAll(s string) []time.Time {
	if s == "" {
		return nil
	}

	type hit struct {
		pos int
		t   time.Time
	}
	var hits []hit

	for _, m := range gregorianPattern.FindAllStringSubmatchIndex(s, -1) {
		year, _ := strconv.Atoi(s[m[2]:m[3]])
		month, _ := strconv.Atoi(s[m[4]:m[5]])
		day, _ := strconv.Atoi(s[m[6]:m[7]])
		if t, ok := p.makeDate(year, month, day); ok {
			hits = append(hits, hit{pos: m[0], t: t})
		}
	}

	if p.eraRe != nil {
		for _, m := range p.eraRe.FindAllStringSubmatchIndex(s, -1) {
			name := s[m[2]:m[3]]
			eraYear := 1
			if y := s[m[4]:m[5]]; y != "元" {
				eraYear, _ = strconv.Atoi(y)
			}
			month, _ := strconv.Atoi(s[m[6]:m[7]])
			day, _ := strconv.Atoi(s[m[8]:m[9]])
			base, ok := p.eras[name]
			if !ok {
				continue
			}
			if t, dok := p.makeDate(base+eraYear, month, day); dok {
				hits = append(hits, hit{pos: m[0], t: t})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]time.Time, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.t)
	}
	return out
}

// HasDateInOrAfterYear reports whether s contains any date expression whose
// year is at or past the given year. The content extractor uses this to keep
// PDF pages carrying current or future schedule information.
func (p *DateParser) HasDateInOrAfterYear(s string, year int) bool {
	for _, t := range p.FindAll(s) {
		if t.Year() >= year {
			return true
		}
	}
	return false
}

func (p *DateParser) makeDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
	// Reject overflow like Feb 30 silently rolling into March.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
