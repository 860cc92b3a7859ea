package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/rsqm/internal/contracts"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe [scope]",
	Short: "유니버스 종목 목록 확인 (S1)",
	Long: `로컬 CSV → Redis 캐시 → NSE 원격 CSV → 원격 HTML 순서로 종목 목록을 확보해 출력합니다.

Example:
  go run ./cmd/rsqm universe 50
  go run ./cmd/rsqm universe nifty200`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
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

	universe, err := a.resolver.Resolve(cmd.Context(), scope)
	if err != nil {
		return fmt.Errorf("resolve nifty%d: %w", scope, err)
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, fmt.Sprintf("Nifty %d Universe", scope))
	fmt.Fprintf(out, "  Source    : %s\n", universe.Source)
	fmt.Fprintf(out, "  Symbols   : %d\n", universe.Count())
	if len(universe.Excluded) > 0 {
		fmt.Fprintf(out, "  Excluded  : %d\n", len(universe.Excluded))
	}
	PrintSeparator(out)

	const perLine = 6
	for i := 0; i < len(universe.Symbols); i += perLine {
		end := i + perLine
		if end > len(universe.Symbols) {
			end = len(universe.Symbols)
		}
		fmt.Fprintf(out, "  %s\n", strings.Join(universe.Symbols[i:end], "  "))
	}
	for raw, reason := range universe.Excluded {
		PrintWarning(out, fmt.Sprintf("excluded %q: %s", raw, reason))
	}

	return nil
}
