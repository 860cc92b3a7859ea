package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/pkg/database"
	"github.com/wonny/rsqm/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정/연결 점검",
	Long: `환경 설정과 전략 파일을 검증하고 선택 의존성(PostgreSQL, Redis) 연결을 점검합니다.

이 명령어는:
- .env / 환경변수 로드
- 전략 파일 검증 및 해시 출력
- DATABASE_URL 설정 시 Ping + 풀 통계
- REDIS_ENABLED=true 시 연결 확인

Example:
  go run ./cmd/rsqm check
  go run ./cmd/rsqm check --config configs/rsqm.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintHeader(out, "RSQM Environment Check")

	// 1. Config + strategy
	cfg, strategy, err := loadSettings()
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s, log level: %s)", cfg.Env, cfg.LogLevel))

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash strategy: %w", err)
	}
	PrintSuccess(out, fmt.Sprintf("Strategy %s v%s (%s, sha256 %s)",
		strategy.Meta.StrategyID, strategy.Meta.Version, cfg.StrategyPath, hash[:12]))
	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(out, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	failed := 0

	// 2. Database
	if !cfg.Database.Enabled() {
		PrintWarning(out, "DATABASE_URL not set, postgres export disabled")
	} else {
		fmt.Fprintf(out, "   Database URL: %s\n", maskPassword(cfg.Database.URL))
		db, err := database.New(ctx, cfg)
		if err != nil {
			failed++
			PrintError(out, fmt.Sprintf("Database: %v", err))
		} else {
			status, err := db.HealthCheck(ctx)
			if err != nil {
				failed++
				PrintError(out, fmt.Sprintf("Database health check: %v", err))
			} else {
				PrintSuccess(out, fmt.Sprintf("Database healthy (PostgreSQL %s, %v, %d/%d conns)",
					status.ServerVersion, status.ResponseTime, status.TotalConns, status.MaxConns))
			}
			db.Close()
		}
	}

	// 3. Redis
	if !cfg.Redis.Enabled {
		PrintWarning(out, "Redis disabled, using local rate limit and no shared cache")
	} else {
		client, err := redis.New(cfg)
		if err != nil {
			failed++
			PrintError(out, fmt.Sprintf("Redis: %v", err))
		} else {
			PrintSuccess(out, fmt.Sprintf("Redis connected (%s)", client.Addr()))
			_ = client.Close()
		}
	}

	PrintSeparator(out)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

// maskPassword hides the password in a connection URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	return u.Redacted()
}
