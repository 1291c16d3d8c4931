package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	source      string
	csvDir      string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "frontier",
	Short: "Efficient frontier engine",
	Long: `Efficient Frontier CLI

가격 이력으로 종목별 위험/수익을 계산하고
Sharpe 스왑 최적화로 효율적 투자선을 만듭니다.

Usage:
  go run ./cmd/frontier [command]

Examples:
  go run ./cmd/frontier stats --source csv --csv-dir ./data
  go run ./cmd/frontier optimize --rt 0.5
  go run ./cmd/frontier sweep --profile config/profiles/sp_sample.yaml
  go run ./cmd/frontier api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML profile (default PROFILE_PATH or built-in)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "price source (postgres|csv), default PRICE_SOURCE")
	rootCmd.PersistentFlags().StringVar(&csvDir, "csv-dir", "", "directory of <SYMBOL>.csv files, default CSV_DIR")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
