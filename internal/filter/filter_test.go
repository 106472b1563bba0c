package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/classify"
	"github.com/hsugimura/eizocrawl/internal/dates"
	"github.com/hsugimura/eizocrawl/internal/extract"
)

func newTestFilter(existing ...string) *Filter {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	parser := dates.NewDateParser(map[string]int{"令和": 2018}, time.UTC)
	return New(
		parser, today,
		[]string{"終了しました", "対象外", "not applicable"},
		[]string{"令和8年度", "2026年度"},
		existing,
		zap.NewNop(),
	)
}

func judgment(url, title string, label classify.Label) classify.Judgment {
	return classify.Judgment{
		Item: classify.Item{
			Doc:        &extract.Document{URL: url, Title: title},
			Prefecture: "東京都",
		},
		Verdict: classify.Verdict{
			Label:               label,
			CanonicalTitle:      title,
			Summary:             "プロモーション動画の制作委託",
			ApplicationDeadline: "2026-09-15",
		},
	}
}

func TestAcceptMaterializesRecord(t *testing.T) {
	f := newTestFilter()

	rec, reason := f.Accept(judgment("https://pref.example.jp/eizo.html", "動画制作業務", classify.LabelConfirmed))
	require.Empty(t, reason)
	require.Equal(t, "2026-08-28", rec.CapturedAt)
	require.Equal(t, "動画制作業務", rec.Title)
	require.Equal(t, "2026-09-15", rec.Deadline)
	require.Equal(t, "https://pref.example.jp/eizo.html", rec.SourceURL)
}

func TestRejectsNegativeLabel(t *testing.T) {
	f := newTestFilter()

	_, reason := f.Accept(judgment("https://pref.example.jp/a.html", "物品購入", classify.LabelExcluded))
	require.Equal(t, ReasonLabel, reason)
}

func TestRejectsDuplicateTitleWithinRun(t *testing.T) {
	f := newTestFilter()

	first := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	second := judgment("https://pref.example.jp/b.html", "動画制作業務", classify.LabelConfirmed)

	_, reason := f.Accept(first)
	require.Empty(t, reason)
	_, reason = f.Accept(second)
	require.Equal(t, ReasonDupTitle, reason, "same canonical title via a second link yields no second record")
}

func TestRejectsStalenessMarker(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelCandidate)
	j.Verdict.Memo = "この公募は終了しました"

	_, reason := f.Accept(j)
	require.Equal(t, ReasonStale, reason)
}

func TestStalenessMarkerMatchesCaseFolded(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelCandidate)
	j.Verdict.Memo = "Not Applicable for this fiscal year"

	_, reason := f.Accept(j)
	require.Equal(t, ReasonStale, reason)
}

func TestTargetYearOverridesStalenessMarker(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelCandidate)
	j.Verdict.EvidenceQuote = "令和8年度の公募。前年度分は終了しました"

	_, reason := f.Accept(j)
	require.Empty(t, reason, "target-year marker wins over the staleness marker")
}

func TestRejectsExpiredDeadlines(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	j.Verdict.ApplicationDeadline = "2026-08-27"
	j.Verdict.ProposalDeadline = "令和8年8月1日"

	_, reason := f.Accept(j)
	require.Equal(t, ReasonExpired, reason)
}

func TestOneFutureDateKeepsRecordAlive(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	j.Verdict.ApplicationDeadline = "2026-08-01"
	j.Verdict.ProposalDeadline = "2026-09-15"

	_, reason := f.Accept(j)
	require.Empty(t, reason)
}

func TestTodayItselfIsNotExpired(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	j.Verdict.ApplicationDeadline = "2026-08-28"
	j.Verdict.ProposalDeadline = ""

	_, reason := f.Accept(j)
	require.Empty(t, reason, "expiry is strictly before today")
}

func TestMissingDatesDoNotExpire(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	j.Verdict.ApplicationDeadline = ""
	j.Verdict.ProposalDeadline = "随時"

	_, reason := f.Accept(j)
	require.Empty(t, reason, "a notice without a parseable deadline stays eligible")
}

func TestRejectsCrossRunDuplicateURL(t *testing.T) {
	f := newTestFilter("https://pref.example.jp/a.html")

	_, reason := f.Accept(judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed))
	require.Equal(t, ReasonDupURL, reason)
}

func TestVerdictPrefectureWinsOverSource(t *testing.T) {
	f := newTestFilter()

	j := judgment("https://pref.example.jp/a.html", "動画制作業務", classify.LabelConfirmed)
	j.Verdict.Prefecture = "北海道"

	rec, reason := f.Accept(j)
	require.Empty(t, reason)
	require.Equal(t, "北海道", rec.Prefecture)
}
