package strategyconfig

import (
	"time"

	"github.com/wonny/rsqm/internal/contracts"
)

// Config는 RSQM 워치리스트 전략의 전체 설정
type Config struct {
	Meta      Meta                 `yaml:"meta" json:"meta"`
	Universe  Universe             `yaml:"universe" json:"universe"`
	Benchmark Benchmark            `yaml:"benchmark" json:"benchmark"`
	Lookbacks []contracts.Lookback `yaml:"lookbacks" json:"lookbacks"`
	Ranking   Ranking              `yaml:"ranking" json:"ranking"`
	Fetch     Fetch                `yaml:"fetch" json:"fetch"`
	Export    Export               `yaml:"export" json:"export"`
	Schedule  Schedule             `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Universe S1: 평가 대상 종목 목록
type Universe struct {
	Scope    int    `yaml:"scope" json:"scope"`         // 50, 100, 200, 500
	LocalDir string `yaml:"local_dir" json:"local_dir"` // ind_nifty<scope>list.csv 위치
	HTMLURL  string `yaml:"html_url" json:"html_url"`   // optional, "{scope}" placeholder
	Suffix   string `yaml:"suffix" json:"suffix"`       // exchange suffix, ".NS"
}

// Benchmark 비교 기준 지수
type Benchmark struct {
	Symbol string `yaml:"symbol" json:"symbol"`
}

// Ranking S4: 순위/선별
type Ranking struct {
	TopK int `yaml:"top_k" json:"top_k"` // 0 = 전체
}

// Fetch S0: 가격 수집
type Fetch struct {
	HistoryDays  int   `yaml:"history_days" json:"history_days"` // calendar days
	Workers      int   `yaml:"workers" json:"workers"`
	BatchEnabled bool  `yaml:"batch_enabled" json:"batch_enabled"`
	Retry        Retry `yaml:"retry" json:"retry"`
}

// Retry 종목별 재시도 정책
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// Export S5: 결과 내보내기
type Export struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Prefix  string   `yaml:"prefix" json:"prefix"`   // RSQM_watchlist
	Formats []string `yaml:"formats" json:"formats"` // csv, xlsx, html, postgres
}

// Schedule 정기 실행
type Schedule struct {
	Cron   string `yaml:"cron" json:"cron"` // 6-field (seconds) cron expression
	Scopes []int  `yaml:"scopes" json:"scopes"`
}

// Supported export formats
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatHTML     = "html"
	FormatPostgres = "postgres"
)

// Default returns the built-in strategy (Nifty 50, ^NSEI, 30/90/180D, top 15)
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "rsqm_nifty",
			Version:    "1.0.0",
			Timezone:   "Asia/Kolkata",
		},
		Universe: Universe{
			Scope:    50,
			LocalDir: ".",
			Suffix:   ".NS",
		},
		Benchmark: Benchmark{Symbol: "^NSEI"},
		Lookbacks: contracts.DefaultLookbacks(),
		Ranking:   Ranking{TopK: 15},
		Fetch: Fetch{
			HistoryDays:  400,
			Workers:      8,
			BatchEnabled: true,
			Retry: Retry{
				MaxAttempts:  3,
				InitialDelay: 2 * time.Second,
				MaxDelay:     10 * time.Second,
				Multiplier:   1,
			},
		},
		Export: Export{
			Dir:     ".",
			Prefix:  "RSQM_watchlist",
			Formats: []string{FormatCSV, FormatXLSX, FormatHTML},
		},
		Schedule: Schedule{
			Cron:   "0 30 16 * * 1-5",
			Scopes: []int{50},
		},
	}
}

// MaxLookbackDays returns the longest configured window
func (c *Config) MaxLookbackDays() int {
	max := 0
	for _, lb := range c.Lookbacks {
		if lb.Days > max {
			max = lb.Days
		}
	}
	return max
}

// HasFormat reports whether format is enabled for export
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Export.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// WithScope returns a shallow copy targeting another scope
func (c *Config) WithScope(scope int) *Config {
	cp := *c
	cp.Universe.Scope = scope
	return &cp
}
