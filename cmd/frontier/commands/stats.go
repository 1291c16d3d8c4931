package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/contracts"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "종목별 위험/수익 통계",
	Long: `프로파일의 종목별 통계를 최적화 전 기준으로 출력합니다.

출력 항목:
- Volatility: 수익률 표준편차 (기간 단위)
- Ann.Return: 벤치마크 대비 연환산 조정 수익률
- Exp.Return: CAPM 기대 수익률
- Beta, Sharpe, 기준 비중

Example:
  go run ./cmd/frontier stats
  go run ./cmd/frontier stats --source csv --csv-dir ./data`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	port, err := a.svc.Build(ctx, a.profile)
	if err != nil {
		return fmt.Errorf("build portfolio: %w", err)
	}

	PrintHeader(fmt.Sprintf("Instrument Statistics (%s vs %s)", a.profile.Meta.ProfileID, a.profile.Universe.Benchmark))
	PrintKeyValue("Window", fmt.Sprintf("%s ~ %s", a.profile.Universe.From, a.profile.Universe.To), 8)
	PrintKeyValue("Periods", fmt.Sprintf("%d", len(port.Grid())), 8)
	fmt.Fprintln(out)

	printInstruments(port.InstrumentPoints())

	if dropped := port.Dropped(); len(dropped) > 0 {
		symbols := make([]string, 0, len(dropped))
		for s := range dropped {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)

		items := make([]string, len(symbols))
		for i, s := range symbols {
			items[i] = fmt.Sprintf("%s: %v", s, dropped[s])
		}
		PrintWarning(fmt.Sprintf("%d symbol(s) dropped", len(dropped)))
		PrintList(items)
	}
	return nil
}

// printInstruments prints the per-instrument table
func printInstruments(points []contracts.InstrumentPoint) {
	widths := []int{10, 12, 12, 12, 8, 8, 8}
	PrintTableHeader([]string{"Symbol", "Volatility", "Ann.Return", "Exp.Return", "Beta", "Sharpe", "Weight"}, widths)
	for _, p := range points {
		PrintTableRow([]string{
			p.Symbol,
			fmt.Sprintf("%.6f", p.Volatility),
			fmt.Sprintf("%.6f", p.AnnualizedAdjustedReturn),
			fmt.Sprintf("%.6f", p.ExpectedReturn),
			fmt.Sprintf("%.3f", p.Beta),
			fmt.Sprintf("%.3f", p.SharpeRatio),
			fmt.Sprintf("%.4f", p.Weight),
		}, widths)
	}
}
