package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/pricedata"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "CSV 가격 이력을 PostgreSQL로 적재",
	Long: `CSV_DIR의 <SYMBOL>.csv 파일(Yahoo 형식)을 stocks 테이블에 upsert 합니다.

이 명령어는:
- stocks 테이블/인덱스 생성 (없을 때)
- 컬럼 수가 맞지 않는 행은 건너뜀
- (symbol, date) 중복은 최신 값으로 갱신

Example:
  go run ./cmd/frontier import --csv-dir ./data
  go run ./cmd/frontier import --csv-dir ./data --symbols SPY,AGG`,
	RunE: runImport,
}

var (
	importSymbols string
)

func init() {
	rootCmd.AddCommand(importCmd)

	// Flags
	importCmd.Flags().StringVar(&importSymbols, "symbols", "", "comma separated symbols (default: every file)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.csv == nil {
		return errors.New("import needs --csv-dir or CSV_DIR")
	}
	if a.prices == nil {
		return errors.New("import needs a reachable DATABASE_URL")
	}

	if err := a.prices.EnsureSchema(ctx); err != nil {
		return err
	}

	var symbols []string
	for _, s := range strings.Split(importSymbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}

	PrintHeader("Price Import")
	PrintKeyValue("Source", a.cfg.CSVDir, 8)

	start := time.Now()
	stats, err := pricedata.Import(ctx, a.csv, a.prices, symbols, a.log)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	PrintKeyValue("Symbols", fmt.Sprintf("%d", stats.Symbols), 8)
	PrintKeyValue("Rows", fmt.Sprintf("%d", stats.Rows), 8)
	PrintKeyValue("Saved", fmt.Sprintf("%d", stats.Saved), 8)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", stats.Skipped), 8)

	if len(stats.Failed) > 0 {
		failed := make([]string, 0, len(stats.Failed))
		for s, reason := range stats.Failed {
			failed = append(failed, fmt.Sprintf("%s: %s", s, reason))
		}
		sort.Strings(failed)
		PrintWarning(fmt.Sprintf("%d symbol(s) failed", len(failed)))
		PrintList(failed)
	}

	fmt.Fprintln(out)
	PrintSuccess(fmt.Sprintf("Import completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
