// Package config loads and validates application configuration via Viper.
//
// Every keyword vocabulary used by the link discoverer and the temporal
// filter lives here as explicit configuration with shipped defaults. No
// package carries its own mutable vocabulary.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hsugimura/eizocrawl/internal/logging"
	"go.uber.org/zap"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig           `mapstructure:"crawler"`
	Extract  ExtractConfig           `mapstructure:"extract"`
	Classify ClassifyConfig          `mapstructure:"classify"`
	Vocab    VocabConfig             `mapstructure:"vocab"`
	Eras     map[string]int          `mapstructure:"eras"`
	Sheets   SheetsConfig            `mapstructure:"sheets"`
	Search   SearchConfig            `mapstructure:"search"`
	Server   ServerConfig            `mapstructure:"server"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// SourceConfig names one crawl origin (typically a prefecture) together
// with its entry URLs.
type SourceConfig struct {
	Prefecture string   `mapstructure:"prefecture"`
	Domain     string   `mapstructure:"domain"`
	EntryURLs  []string `mapstructure:"entry_urls"`
}

// CrawlerConfig governs the frontier and fetch behavior.
type CrawlerConfig struct {
	UserAgent            string  `mapstructure:"user_agent"`
	MaxPagesPerSource    int     `mapstructure:"max_pages_per_source"`
	MaxPaginationPerPage int     `mapstructure:"max_pagination_per_page"`
	Concurrency          int     `mapstructure:"concurrency"`
	RequestTimeoutSec    int     `mapstructure:"request_timeout_seconds"`
	DomainRPS            float64 `mapstructure:"domain_rps"`
	ArchiveDir           string  `mapstructure:"archive_dir"`
	MaxPageBytes         int64   `mapstructure:"max_page_bytes"`

	RenderEnabled        bool     `mapstructure:"render_enabled"`
	RenderTimeoutSec     int      `mapstructure:"render_timeout_seconds"`
	RenderMaxConcurrency int      `mapstructure:"render_max_concurrency"`
	DetectorMinHTMLBytes int      `mapstructure:"detector_min_html_bytes"`
	DetectorKeywords     []string `mapstructure:"detector_keywords"`
}

// ExtractConfig bounds content extraction.
type ExtractConfig struct {
	MaxTextRunes int `mapstructure:"max_text_runes"`
	PDFMaxPages  int `mapstructure:"pdf_max_pages"`
}

// ClassifyConfig configures the judgment service dispatcher.
type ClassifyConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	Model           string `mapstructure:"model"`
	MaxTokens       int    `mapstructure:"max_tokens"`
	Mode            string `mapstructure:"mode"` // "batch" or "sync"
	PollIntervalSec int    `mapstructure:"poll_interval_seconds"`
	BatchWaitSec    int    `mapstructure:"batch_wait_seconds"`
	SyncDelaySec    int    `mapstructure:"sync_delay_seconds"`
	ResumeWindowHrs int    `mapstructure:"resume_window_hours"`
	PromptMaxRunes  int    `mapstructure:"prompt_max_runes"`
}

// VocabConfig holds the keyword vocabularies used to gate links, select
// attachments, and re-check verdict language. Terms match by substring.
type VocabConfig struct {
	Interest           []string `mapstructure:"interest"`
	Exclusion          []string `mapstructure:"exclusion"`
	Bundle             []string `mapstructure:"bundle"`
	AttachmentRelevant []string `mapstructure:"attachment_relevant"`
	AttachmentNoise    []string `mapstructure:"attachment_noise"`
	ScheduleTerms      []string `mapstructure:"schedule_terms"`
	StalenessMarkers   []string `mapstructure:"staleness_markers"`
	TargetYearMarkers  []string `mapstructure:"target_year_markers"`
}

// SheetsConfig controls the spreadsheet sink.
type SheetsConfig struct {
	Provider        string `mapstructure:"provider"` // "sheets" or "memory"
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	SheetPrefix     string `mapstructure:"sheet_prefix"`
}

// SearchConfig configures the one-shot search-index escalation.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	EngineID   string `mapstructure:"engine_id"`
	MaxResults int    `mapstructure:"max_results"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PipelineConfig holds run-level knobs.
type PipelineConfig struct {
	Today    string `mapstructure:"today"` // YYYY-MM-DD override, empty means now
	Timezone string `mapstructure:"timezone"`
}

// InitConfig wires Viper's search paths, environment handling and defaults.
// Designed to be called once from cobra.OnInitialize.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/eizocrawl/")
	viper.AddConfigPath("$HOME/.eizocrawl")

	viper.SetEnvPrefix("EIZOCRAWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; eizocrawl/1.0)")
	v.SetDefault("crawler.max_pages_per_source", 10)
	v.SetDefault("crawler.max_pagination_per_page", 5)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.request_timeout_seconds", 20)
	v.SetDefault("crawler.domain_rps", 2.0)
	v.SetDefault("crawler.max_page_bytes", 5*1024*1024)
	v.SetDefault("crawler.render_enabled", false)
	v.SetDefault("crawler.render_timeout_seconds", 15)
	v.SetDefault("crawler.render_max_concurrency", 2)
	v.SetDefault("crawler.detector_min_html_bytes", 2000)
	v.SetDefault("crawler.detector_keywords", []string{
		"__NEXT_DATA__",
		"data-reactroot",
		"window.onload",
	})

	v.SetDefault("extract.max_text_runes", 15000)
	v.SetDefault("extract.pdf_max_pages", 30)

	v.SetDefault("classify.base_url", "https://api.anthropic.com")
	v.SetDefault("classify.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("classify.max_tokens", 1024)
	v.SetDefault("classify.mode", "batch")
	v.SetDefault("classify.poll_interval_seconds", 30)
	v.SetDefault("classify.batch_wait_seconds", 1800)
	v.SetDefault("classify.sync_delay_seconds", 2)
	v.SetDefault("classify.resume_window_hours", 12)
	v.SetDefault("classify.prompt_max_runes", 15000)

	// Vocabularies mirror the procurement wording used on prefecture sites.
	v.SetDefault("vocab.interest", []string{"動画", "映像", "配信", "撮影", "プロモーション"})
	v.SetDefault("vocab.exclusion", []string{"審査結果", "入札結果", "落札", "質問回答", "質疑回答", "Q&A"})
	v.SetDefault("vocab.bundle", []string{"入札公告", "調達情報", "公募一覧", "発注見通し"})
	v.SetDefault("vocab.attachment_relevant", []string{"仕様書", "実施要領", "募集要項", "公募要領", "企画提案"})
	v.SetDefault("vocab.attachment_noise", []string{"質問", "回答", "結果", "様式", "申請書"})
	v.SetDefault("vocab.schedule_terms", []string{"期間", "期限", "締切", "提出", "スケジュール", "日程"})
	v.SetDefault("vocab.staleness_markers", []string{"対象外", "該当しない", "終了済", "終了しました", "過去の", "already concluded", "not applicable"})
	v.SetDefault("vocab.target_year_markers", []string{"令和8年度", "2026年度"})

	// Era base years: gregorian = base + era year.
	v.SetDefault("eras", map[string]int{
		"令和": 2018,
		"平成": 1988,
		"昭和": 1925,
	})

	v.SetDefault("sheets.provider", "sheets")
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.sheet_prefix", "映像案件")

	v.SetDefault("search.max_results", 3)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.development", true)

	v.SetDefault("pipeline.timezone", "Asia/Tokyo")
}

// Load builds a Config from the given Viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits. A failure here is
// fatal: the run aborts before any network activity begins.
func (c Config) Validate() error {
	if c.Classify.APIKey == "" {
		return fmt.Errorf("classify.api_key must be set")
	}
	if c.Sheets.Provider == "sheets" && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id must be set when sheets.provider is 'sheets'")
	}
	if c.Crawler.MaxPagesPerSource <= 0 {
		return fmt.Errorf("crawler.max_pages_per_source must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Classify.Mode != "batch" && c.Classify.Mode != "sync" {
		return fmt.Errorf("classify.mode must be 'batch' or 'sync', got %q", c.Classify.Mode)
	}
	if c.Crawler.RenderEnabled && c.Crawler.RenderMaxConcurrency <= 0 {
		return fmt.Errorf("crawler.render_max_concurrency must be > 0 when rendering is enabled")
	}
	if len(c.Eras) == 0 {
		return fmt.Errorf("eras table must not be empty")
	}
	if c.Pipeline.Today != "" {
		if _, err := time.Parse("2006-01-02", c.Pipeline.Today); err != nil {
			return fmt.Errorf("pipeline.today must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// RequestTimeout converts the configured fetch timeout into a duration.
func (c CrawlerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// RenderTimeout converts the configured render timeout into a duration.
func (c CrawlerConfig) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}

// PollInterval converts the configured poll cadence into a duration.
func (c ClassifyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// BatchWait returns how long batch polling may run before falling back.
func (c ClassifyConfig) BatchWait() time.Duration {
	return time.Duration(c.BatchWaitSec) * time.Second
}

// SyncDelay returns the pause between synchronous fallback calls.
func (c ClassifyConfig) SyncDelay() time.Duration {
	return time.Duration(c.SyncDelaySec) * time.Second
}

// ResumeWindow returns how far back an outstanding batch is considered ours.
func (c ClassifyConfig) ResumeWindow() time.Duration {
	return time.Duration(c.ResumeWindowHrs) * time.Hour
}
