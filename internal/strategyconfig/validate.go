package strategyconfig

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Kolkata on minimal images

	"github.com/robfig/cron/v3"

	"github.com/wonny/rsqm/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// cronParser matches the scheduler (seconds field enabled)
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Universe ===
	if !contracts.IsValidScope(cfg.Universe.Scope) {
		return ValidationError{"universe.scope", fmt.Sprintf("must be one of %v", contracts.ValidScopes)}
	}
	if cfg.Universe.HTMLURL != "" && !strings.HasPrefix(cfg.Universe.HTMLURL, "http") {
		return ValidationError{"universe.html_url", "must be an http(s) URL"}
	}

	// === Benchmark ===
	if strings.TrimSpace(cfg.Benchmark.Symbol) == "" {
		return ValidationError{"benchmark.symbol", "required"}
	}

	// === Lookbacks ===
	if err := validateLookbacks(cfg.Lookbacks); err != nil {
		return err
	}

	// === Ranking ===
	if cfg.Ranking.TopK < 0 {
		return ValidationError{"ranking.top_k", "must be >= 0"}
	}

	// === Fetch ===
	// 달력일 기준 이력이 최장 기간(거래일)보다 짧으면 계산 불가
	if cfg.Fetch.HistoryDays <= cfg.MaxLookbackDays() {
		return ValidationError{"fetch.history_days", fmt.Sprintf("must be > longest lookback (%d)", cfg.MaxLookbackDays())}
	}
	if cfg.Fetch.Workers < 1 {
		return ValidationError{"fetch.workers", "must be >= 1"}
	}
	r := cfg.Fetch.Retry
	if r.MaxAttempts < 1 {
		return ValidationError{"fetch.retry.max_attempts", "must be >= 1"}
	}
	if r.InitialDelay < 0 || r.MaxDelay < 0 {
		return ValidationError{"fetch.retry", "delays must be >= 0"}
	}
	if r.MaxDelay > 0 && r.InitialDelay > r.MaxDelay {
		return ValidationError{"fetch.retry", "initial_delay must be <= max_delay"}
	}
	if r.Multiplier < 1 {
		return ValidationError{"fetch.retry.multiplier", "must be >= 1"}
	}

	// === Export ===
	if len(cfg.Export.Formats) == 0 {
		return ValidationError{"export.formats", "required"}
	}
	for i, f := range cfg.Export.Formats {
		switch f {
		case FormatCSV, FormatXLSX, FormatHTML, FormatPostgres:
		default:
			return ValidationError{
				Field:   fmt.Sprintf("export.formats[%d]", i),
				Message: fmt.Sprintf("unknown format %q", f),
			}
		}
	}
	if cfg.Export.Prefix == "" {
		return ValidationError{"export.prefix", "required"}
	}

	// === Schedule ===
	if cfg.Schedule.Cron != "" {
		if _, err := cronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}
	for i, scope := range cfg.Schedule.Scopes {
		if !contracts.IsValidScope(scope) {
			return ValidationError{
				Field:   fmt.Sprintf("schedule.scopes[%d]", i),
				Message: fmt.Sprintf("must be one of %v", contracts.ValidScopes),
			}
		}
	}

	return nil
}

func validateLookbacks(lookbacks []contracts.Lookback) error {
	if len(lookbacks) == 0 {
		return ValidationError{"lookbacks", "must not be empty"}
	}

	seen := make(map[string]bool, len(lookbacks))
	for i, lb := range lookbacks {
		field := fmt.Sprintf("lookbacks[%d]", i)
		if lb.Label == "" {
			return ValidationError{field + ".label", "required"}
		}
		if seen[lb.Label] {
			return ValidationError{field + ".label", fmt.Sprintf("duplicate label %q", lb.Label)}
		}
		seen[lb.Label] = true
		if lb.Days <= 0 {
			return ValidationError{field + ".days", "must be > 0"}
		}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 거래일 → 달력일 환산 (약 1.45배) 여유 부족
	need := cfg.MaxLookbackDays() * 145 / 100
	if cfg.Fetch.HistoryDays < need {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: fmt.Sprintf("history_days=%d may not cover %d trading days", cfg.Fetch.HistoryDays, cfg.MaxLookbackDays()),
		})
	}

	if cfg.Ranking.TopK > cfg.Universe.Scope {
		warnings = append(warnings, Warning{
			Code:    "TOPK_EXCEEDS_SCOPE",
			Message: fmt.Sprintf("top_k=%d > universe scope %d: full table exported", cfg.Ranking.TopK, cfg.Universe.Scope),
		})
	}

	if cfg.Fetch.Retry.MaxAttempts == 1 {
		warnings = append(warnings, Warning{
			Code:    "NO_RETRY",
			Message: "max_attempts=1: transient failures drop symbols immediately",
		})
	}

	return warnings
}
