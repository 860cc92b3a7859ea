package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rsqm",
	Short: "RSQM - Nifty 상대강도 워치리스트",
	Long: `RSQM Watchlist CLI

Nifty 50/100/200/500 종목을 ^NSEI 대비 30/90/180일 상대강도로 평가해
RS Score 상위 종목 워치리스트를 만듭니다.

S1 → S0 → S2 → S4 → S5
Universe → Data → Signals → Ranker → Export

Usage:
  go run ./cmd/rsqm [command]

Examples:
  go run ./cmd/rsqm scan 50
  go run ./cmd/rsqm scan nifty200 --top-k 20 --formats csv,html
  go run ./cmd/rsqm universe 100
  go run ./cmd/rsqm api --schedule
  go run ./cmd/rsqm check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "strategy file (default is $STRATEGY_CONFIG or configs/rsqm.yaml)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
