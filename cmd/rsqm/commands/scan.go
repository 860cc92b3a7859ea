package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/internal/contracts"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [scope]",
	Short: "워치리스트 생성 (전체 파이프라인 1회 실행)",
	Long: `유니버스 확보 → 가격 수집 → 수익률/상대강도 계산 → 순위 → 내보내기.

scope: 50 | 100 | 200 | 500 (nifty50 형식도 허용, 기본: 전략 파일 값)

Flags:
  --top-k      상위 N 종목만 내보내기 (0 = 전체)
  --date       기준일 (YYYY-MM-DD, 기본: 오늘)
  --formats    csv,xlsx,html,postgres (기본: 전략 파일 값)
  --out-dir    파일 출력 디렉토리
  --dry-run    계산만 하고 내보내지 않음
  --json       결과를 JSON 으로 출력

Example:
  go run ./cmd/rsqm scan 50
  go run ./cmd/rsqm scan nifty500 --top-k 25 --formats csv,html
  go run ./cmd/rsqm scan 100 --dry-run --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var (
	scanTopK    int
	scanDate    string
	scanFormats []string
	scanOutDir  string
	scanDryRun  bool
	scanJSON    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVar(&scanTopK, "top-k", -1, "상위 N 종목 (0 = 전체, 기본: 전략 파일 값)")
	scanCmd.Flags().StringVar(&scanDate, "date", "", "기준일 (YYYY-MM-DD)")
	scanCmd.Flags().StringSliceVar(&scanFormats, "formats", nil, "내보내기 형식 (csv,xlsx,html,postgres)")
	scanCmd.Flags().StringVar(&scanOutDir, "out-dir", "", "파일 출력 디렉토리")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "내보내기 생략")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "JSON 출력")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(s *strategyconfig.Config) {
		if scanFormats != nil {
			s.Export.Formats = scanFormats
		}
		if scanOutDir != "" {
			s.Export.Dir = scanOutDir
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	scope := a.strategy.Universe.Scope
	if len(args) == 1 {
		if scope, err = contracts.ParseScope(args[0]); err != nil {
			return err
		}
	}

	config := a.runConfig(scope)
	if scanTopK >= 0 {
		config.TopK = scanTopK
	}
	if scanDate != "" {
		date, err := time.ParseInLocation("2006-01-02", scanDate, a.location())
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
		// 해당 일자 종가까지 포함
		config.Date = date.Add(24*time.Hour - time.Second)
	}
	config.DryRun = scanDryRun

	out := cmd.OutOrStdout()
	result, err := a.orchestrator.Run(cmd.Context(), config)
	if result == nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if scanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
	} else {
		PrintRunResult(out, result)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, contracts.ErrNoUsableSymbols):
		return fmt.Errorf("nifty%d: %w (check network access to the price source)", scope, err)
	default:
		return fmt.Errorf("pipeline run failed: %w", err)
	}
}

// parseScopes parses a comma separated scope list
func parseScopes(raw []string) ([]int, error) {
	scopes := make([]int, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			scope, err := contracts.ParseScope(part)
			if err != nil {
				return nil, err
			}
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}
