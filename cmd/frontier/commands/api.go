package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/api"
	"github.com/tvaught/experimental/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/instruments                 - 종목별 통계 (?symbols=A,B)
  GET  /api/instruments/{symbol}/prices - 가격/수익률 이력 (?from&to)
  GET  /api/frontier                    - 효율적 투자선 (?refresh=true)
  POST /api/optimize                    - 단일 최적화

Example:
  go run ./cmd/frontier api
  go run ./cmd/frontier api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	var db api.Pinger
	if a.db != nil {
		db = a.db
	}

	router := api.NewRouter(
		handlers.NewFrontierHandler(a.svc, a.profile, a.log),
		handlers.NewPriceHandler(a.provider, a.profile, a.log),
		db,
		a.log,
	)
	server := api.New(a.cfg, a.log, router)

	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Ctrl+C → graceful shutdown
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
