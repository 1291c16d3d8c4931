package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/profile"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "효율적 투자선 계산",
	Long: `프로파일의 위험 허용도 구간을 스윕해 효율적 투자선을 계산합니다.

결과는 Redis에 캐시되고 (활성 시) PostgreSQL에 저장됩니다.
수렴하지 못한 포인트는 FAILED로 표시되고 스윕은 계속됩니다.

Example:
  go run ./cmd/frontier sweep
  go run ./cmd/frontier sweep --refresh
  go run ./cmd/frontier sweep --stored
  go run ./cmd/frontier sweep --json > frontier.json`,
	RunE: runSweep,
}

var (
	sweepRefresh bool
	sweepStored  bool
	sweepJSON    bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	// Flags
	sweepCmd.Flags().BoolVar(&sweepRefresh, "refresh", false, "ignore the cached frontier")
	sweepCmd.Flags().BoolVar(&sweepStored, "stored", false, "print the latest run saved in PostgreSQL without recomputing")
	sweepCmd.Flags().BoolVar(&sweepJSON, "json", false, "print the frontier as JSON")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var (
		frontier *contracts.Frontier
		cached   bool
	)
	if sweepStored {
		if a.frontiers == nil {
			return errors.New("--stored needs a reachable DATABASE_URL")
		}
		hash, err := profile.Hash(a.profile)
		if err != nil {
			return err
		}
		if frontier, err = a.frontiers.LatestFrontier(ctx, hash); err != nil {
			return fmt.Errorf("load stored frontier: %w", err)
		}
		cached = true
	} else {
		frontier, cached, err = a.svc.Frontier(ctx, a.profile, sweepRefresh)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
	}

	if sweepJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(frontier)
	}

	PrintHeader(fmt.Sprintf("Efficient Frontier (%s)", a.profile.Meta.ProfileID))
	PrintKeyValue("Run ID", frontier.RunID, 8)
	PrintKeyValue("Symbols", fmt.Sprintf("%v", frontier.Symbols), 8)
	PrintKeyValue("Cached", fmt.Sprintf("%v", cached), 8)
	fmt.Fprintln(out)

	printFrontier(frontier)

	fmt.Fprintln(out)
	if n := frontier.FailedCount(); n > 0 {
		PrintWarning(fmt.Sprintf("%d of %d points failed", n, len(frontier.Points)))
		return nil
	}
	PrintSuccess(fmt.Sprintf("%d points computed", len(frontier.Points)))
	return nil
}

// printFrontier prints one row per risk tolerance
func printFrontier(f *contracts.Frontier) {
	widths := []int{6, 10, 10, 9, 9, 6, 40}
	PrintTableHeader([]string{"RT", "Return", "Vol", "VaR95", "CVaR95", "Iter", "Weights"}, widths)
	for _, p := range f.Points {
		if p.Failed {
			PrintTableRow([]string{
				fmt.Sprintf("%.2f", p.RiskTolerance), "-", "-", "-", "-",
				fmt.Sprintf("%d", p.Iterations),
				"FAILED: " + p.Error,
			}, widths)
			continue
		}
		PrintTableRow([]string{
			fmt.Sprintf("%.2f", p.RiskTolerance),
			fmt.Sprintf("%.6f", p.Return),
			fmt.Sprintf("%.6f", p.Volatility),
			FormatPercent(p.VaR95),
			FormatPercent(p.CVaR95),
			fmt.Sprintf("%d", p.Iterations),
			FormatWeights(p.Weights),
		}, widths)
	}
}
