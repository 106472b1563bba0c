package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEras() map[string]int {
	return map[string]int{
		"令和": 2018,
		"平成": 1988,
	}
}

func TestParseSeparatorStyles(t *testing.T) {
	p := NewDateParser(testEras(), time.UTC)
	want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2026-09-15",
		"2026/9/15",
		"2026年9月15日",
		"提出期限:2026年9月15日(火)17時まで",
	} {
		t.Run(in, func(t *testing.T) {
			got, ok := p.Parse(in)
			require.True(t, ok)
			require.True(t, got.Equal(want), "got %v", got)
		})
	}
}

func TestParseEraNotationMatchesGregorian(t *testing.T) {
	p := NewDateParser(testEras(), time.UTC)

	tests := []struct {
		era       string
		gregorian string
	}{
		{era: "令和8年9月15日", gregorian: "2026年9月15日"},
		{era: "令和元年5月1日", gregorian: "2019年5月1日"},
		{era: "平成31年4月30日", gregorian: "2019年4月30日"},
	}
	for _, tt := range tests {
		t.Run(tt.era, func(t *testing.T) {
			fromEra, ok := p.Parse(tt.era)
			require.True(t, ok)
			fromGregorian, ok := p.Parse(tt.gregorian)
			require.True(t, ok)
			require.True(t, fromEra.Equal(fromGregorian))
		})
	}
}

func TestParseUnknownIsNotAnError(t *testing.T) {
	p := NewDateParser(testEras(), time.UTC)

	for _, in := range []string{"", "未定", "随時受付", "大正15年1月1日", "2026年2月30日"} {
		t.Run(in, func(t *testing.T) {
			_, ok := p.Parse(in)
			require.False(t, ok)
		})
	}
}

func TestFindAllReturnsDatesInOrder(t *testing.T) {
	p := NewDateParser(testEras(), time.UTC)

	dates := p.FindAll("公告日 令和8年8月1日、提出期限 2026-09-15、開札 2026/10/01")
	require.Len(t, dates, 3)
	require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), dates[0])
	require.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), dates[1])
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestHasDateInOrAfterYear(t *testing.T) {
	p := NewDateParser(testEras(), time.UTC)

	require.True(t, p.HasDateInOrAfterYear("提出期限 令和8年9月15日", 2026))
	require.False(t, p.HasDateInOrAfterYear("公告日 平成31年4月1日", 2026))
	require.False(t, p.HasDateInOrAfterYear("日付の記載なし", 2026))
}
