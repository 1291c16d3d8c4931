package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/pkg/database"
)

// dbCheckCmd represents the db-check command
var dbCheckCmd = &cobra.Command{
	Use:   "db-check",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성 및 Health Check
- Connection Pool 통계와 저장된 심볼 수 표시

Example:
  go run ./cmd/frontier db-check`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	PrintHeader("Database Connection Test")

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue("Database URL", maskPassword(cfg.Database.URL), 12)

	// Create database connection
	db, err := database.New(cmd.Context(), cfg.Database)
	if err != nil {
		PrintError("Failed to connect to database")
		return err
	}
	defer db.Close()
	PrintSuccess("Database connection established")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError("Health check failed")
		return err
	}

	fmt.Fprintln(out)
	PrintSuccess("Health Check Results:")
	PrintKeyValue("Healthy", fmt.Sprintf("%v", status.Healthy), 20)
	PrintKeyValue("Response Time", status.ResponseTime.String(), 20)
	PrintKeyValue("Timestamp", status.Timestamp.Format(time.RFC3339), 20)

	// Pool statistics
	fmt.Fprintln(out, "\n📊 Connection Pool Statistics:")
	PrintKeyValue("Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 20)
	PrintKeyValue("Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 20)
	PrintKeyValue("Acquired Connections", fmt.Sprintf("%d", status.Stats.AcquiredConns), 20)
	PrintKeyValue("Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns), 20)
	PrintKeyValue("Acquire Count", fmt.Sprintf("%d", status.Stats.AcquireCount), 20)
	PrintKeyValue("Acquire Duration", status.Stats.AcquireDuration.String(), 20)

	// stocks 테이블이 없으면 경고만 출력
	symbols, err := pricedata.NewRepository(db.Pool).Symbols(ctx)
	if err != nil {
		PrintWarning(fmt.Sprintf("Price table not readable: %v (run the import command first)", err))
	} else {
		fmt.Fprintln(out)
		PrintKeyValue("Stored Symbols", fmt.Sprintf("%d", len(symbols)), 20)
	}

	fmt.Fprintln(out)
	PrintSuccess("All checks passed!")
	return nil
}
