package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testVocabulary() Vocabulary {
	return Vocabulary{
		Interest:   []string{"動画", "映像", "プロモーション"},
		Exclusion:  []string{"審査結果", "入札結果"},
		Bundle:     []string{"入札公告", "調達情報"},
		TargetYear: []string{"令和8年度", "2026年度"},
	}
}

func testSource() SeedSource {
	return SeedSource{Name: "tokyo", Prefecture: "東京都", EntryURLs: []string{"https://pref.example.jp/nyusatsu/"}}
}

func htmlPage(url, body string) Page {
	return Page{URL: url, StatusCode: 200, Body: []byte(body)}
}

func TestDiscoverAcceptsInterestLink(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body><a href="kokoku/eizo.html">動画制作業務委託公募</a></body></html>`)

	candidates, pagination := d.Discover(testSource(), page)
	require.Len(t, candidates, 1)
	require.Empty(t, pagination)
	require.Equal(t, "https://pref.example.jp/nyusatsu/kokoku/eizo.html", candidates[0].URL)
	require.Equal(t, "動画制作業務委託公募", candidates[0].AnchorText)
	require.Equal(t, "東京都", candidates[0].Prefecture)
}

func TestDiscoverRejectsExcludedLink(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body><a href="kekka.html">映像制作業務の審査結果の公表について</a></body></html>`)

	candidates, _ := d.Discover(testSource(), page)
	require.Empty(t, candidates, "exclusion term must drop the link")
}

func TestDiscoverTargetYearOverridesExclusion(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body><a href="r8.html">令和8年度 映像制作委託(前回の審査結果を踏まえた再公募)</a></body></html>`)

	candidates, _ := d.Discover(testSource(), page)
	require.Len(t, candidates, 1, "target-year marker must override exclusion")
}

func TestDiscoverBundlePDF(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body>
			<a href="list.pdf">入札公告一覧</a>
			<a href="list2.html">入札公告一覧</a>
		</body></html>`)

	candidates, _ := d.Discover(testSource(), page)
	require.Len(t, candidates, 1, "bundle terms only admit PDF links")
	require.Equal(t, "https://pref.example.jp/nyusatsu/list.pdf", candidates[0].URL)
}

func TestDiscoverPagination(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 2, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body>
			<a href="?page=2">2</a>
			<a href="?page=3">3</a>
			<a href="?page=4">4</a>
			<a href="https://other.example.jp/?page=2">2</a>
			<a href="?page=2">2</a>
		</body></html>`)

	_, pagination := d.Discover(testSource(), page)
	require.Equal(t, []string{
		"https://pref.example.jp/nyusatsu/?page=2",
		"https://pref.example.jp/nyusatsu/?page=3",
	}, pagination, "pagination is same-authority only, deduplicated and capped")
}

func TestDiscoverNextMarkerIsPagination(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body><a href="?page=2">次へ</a></body></html>`)

	candidates, pagination := d.Discover(testSource(), page)
	require.Empty(t, candidates)
	require.Len(t, pagination, 1)
}

func TestDiscoverEmptyAnchorGetsPlaceholderTitle(t *testing.T) {
	d := NewDiscoverer(testVocabulary(), 5, zap.NewNop())

	page := htmlPage("https://pref.example.jp/nyusatsu/",
		`<html><body><p>動画制作の公募はこちら <a href="eizo.html"><img src="icon.png"></a></p></body></html>`)

	candidates, _ := d.Discover(testSource(), page)
	require.Len(t, candidates, 1, "enclosing text carries the interest term")
	require.Equal(t, "詳細資料", candidates[0].AnchorText)
}
