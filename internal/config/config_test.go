package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.Set("classify.api_key", "test-key")
	v.Set("sheets.spreadsheet_id", "sheet-id")
	return v
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	require.Equal(t, 10, cfg.Crawler.MaxPagesPerSource)
	require.Equal(t, "batch", cfg.Classify.Mode)
	require.Equal(t, "Asia/Tokyo", cfg.Pipeline.Timezone)
	require.Equal(t, 2018, cfg.Eras["令和"])
	require.NotEmpty(t, cfg.Vocab.Interest)
	require.NotEmpty(t, cfg.Vocab.Exclusion)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	v := newTestViper()
	v.Set("classify.api_key", "")

	_, err := Load(v)
	require.ErrorContains(t, err, "classify.api_key")
}

func TestValidateRequiresSpreadsheetForSheetsProvider(t *testing.T) {
	v := newTestViper()
	v.Set("sheets.spreadsheet_id", "")

	_, err := Load(v)
	require.ErrorContains(t, err, "spreadsheet_id")

	v.Set("sheets.provider", "memory")
	_, err = Load(v)
	require.NoError(t, err, "memory provider needs no spreadsheet")
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	v := newTestViper()
	v.Set("classify.mode", "stream")

	_, err := Load(v)
	require.ErrorContains(t, err, "classify.mode")
}

func TestValidateRejectsBadTodayOverride(t *testing.T) {
	v := newTestViper()
	v.Set("pipeline.today", "08/28/2026")

	_, err := Load(v)
	require.ErrorContains(t, err, "pipeline.today")
}

func TestSourcesUnmarshal(t *testing.T) {
	v := newTestViper()
	v.Set("sources.tokyo.prefecture", "東京都")
	v.Set("sources.tokyo.domain", "www.metro.tokyo.lg.jp")
	v.Set("sources.tokyo.entry_urls", []string{"https://www.metro.tokyo.lg.jp/nyusatsu/"})

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "東京都", cfg.Sources["tokyo"].Prefecture)
	require.Len(t, cfg.Sources["tokyo"].EntryURLs, 1)
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	require.Equal(t, "20s", cfg.Crawler.RequestTimeout().String())
	require.Equal(t, "30s", cfg.Classify.PollInterval().String())
	require.Equal(t, "30m0s", cfg.Classify.BatchWait().String())
	require.Equal(t, "12h0m0s", cfg.Classify.ResumeWindow().String())
}
