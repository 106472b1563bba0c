package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Label is the classification outcome for one document.
type Label string

const (
	LabelConfirmed Label = "confirmed"
	LabelCandidate Label = "candidate"
	LabelExcluded  Label = "excluded"
)

// Relevant reports whether the label marks a notice worth keeping.
func (l Label) Relevant() bool {
	return l == LabelConfirmed || l == LabelCandidate
}

// Verdict is the structured judgment returned for one document.
type Verdict struct {
	Label               Label  `json:"label"`
	CanonicalTitle      string `json:"title"`
	Prefecture          string `json:"prefecture"`
	Summary             string `json:"summary"`
	ApplicationDeadline string `json:"application_deadline"`
	ProposalDeadline    string `json:"proposal_deadline"`
	ApplicationURL      string `json:"application_url"`
	EvidenceQuote       string `json:"evidence"`
	Memo                string `json:"memo"`
}

// Deadline prefers the application deadline, falling back to the
// proposal deadline when only that was stated.
func (v Verdict) Deadline() string {
	if v.ApplicationDeadline != "" {
		return v.ApplicationDeadline
	}
	return v.ProposalDeadline
}

var errNoJSON = errors.New("no JSON object in model output")

// labelSynonyms maps the labels models actually emit, including the
// Japanese terms the prompt uses, onto the three canonical labels.
var labelSynonyms = map[string]Label{
	"confirmed": LabelConfirmed,
	"確定":        LabelConfirmed,
	"candidate": LabelCandidate,
	"候補":        LabelCandidate,
	"excluded":  LabelExcluded,
	"対象外":       LabelExcluded,
}

// ParseVerdict extracts the first balanced JSON object from raw model
// output, which may be wrapped in prose or code fences, and decodes it.
func ParseVerdict(raw string) (Verdict, error) {
	obj, err := firstJSONObject(raw)
	if err != nil {
		return Verdict{}, err
	}

	var v Verdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	label, ok := labelSynonyms[strings.ToLower(strings.TrimSpace(string(v.Label)))]
	if !ok {
		return Verdict{}, fmt.Errorf("unknown label %q", v.Label)
	}
	v.Label = label
	v.CanonicalTitle = strings.TrimSpace(v.CanonicalTitle)
	v.Prefecture = strings.TrimSpace(v.Prefecture)
	return v, nil
}

// firstJSONObject scans raw for the first balanced {...} span, tracking
// string literals so braces inside quoted values do not confuse it.
func firstJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", errNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", errNoJSON
}
