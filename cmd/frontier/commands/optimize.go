package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/risk"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "단일 위험 허용도 최적화",
	Long: `주어진 연간 위험 허용도에서 Sharpe 스왑 최적화를 한 번 실행합니다.

Example:
  go run ./cmd/frontier optimize --rt 0.5
  go run ./cmd/frontier optimize --rt 1.2 --profile config/profiles/sp_sample.yaml`,
	RunE: runOptimize,
}

var (
	riskTolerance float64
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	// Flags
	optimizeCmd.Flags().Float64Var(&riskTolerance, "rt", 0.5, "annual risk tolerance")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.svc.Optimize(ctx, a.profile, riskTolerance)
	if result != nil {
		PrintHeader(fmt.Sprintf("Optimization (rt=%.2f annual)", riskTolerance))
		fmt.Fprint(out, result.Report())
	}
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	printTailRisk(result.Snapshot)

	fmt.Fprintln(out)
	PrintSuccess(fmt.Sprintf("Converged in %d iterations", result.Iterations))
	return nil
}

// printTailRisk prints historical and normal-fit VaR/CVaR of the optimized weights
func printTailRisk(snap *portfolio.Snapshot) {
	if snap == nil {
		return
	}
	all, err := snap.RateSeries()
	if err != nil {
		return
	}
	rs := risk.Observed(all)

	fmt.Fprintln(out, "Tail risk (95%, per period):")
	if v, err := risk.HistoricalVaR(rs, risk.DefaultConfidence); err == nil {
		PrintKeyValue("Historical", fmt.Sprintf("VaR %s  CVaR %s", FormatPercent(v.VaR), FormatPercent(v.CVaR)), 10)
	}
	if v, err := risk.ParametricVaR(rs, risk.DefaultConfidence); err == nil {
		PrintKeyValue("Normal", fmt.Sprintf("VaR %s  CVaR %s", FormatPercent(v.VaR), FormatPercent(v.CVaR)), 10)
	}
}
