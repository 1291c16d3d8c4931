package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvaught/experimental/internal/scheduler"
	"github.com/tvaught/experimental/internal/scheduler/jobs"
)

// refreshTimeout bounds one scheduled frontier sweep
const refreshTimeout = 30 * time.Minute

// importSchedule runs the CSV import before the frontier refresh (평일 18:00)
const importSchedule = "0 0 18 * * 1-5"

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/frontier scheduler start
  go run ./cmd/frontier scheduler list
  go run ./cmd/frontier scheduler run frontier_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- price_import: 평일 오후 6시 (CSV_DIR과 DB가 모두 설정된 경우)
- frontier_refresh: REFRESH_SCHEDULE (기본 평일 오후 6시 30분)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

var (
	schedulerRunNow bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	// Flags
	schedulerStartCmd.Flags().BoolVar(&schedulerRunNow, "run-now", false, "frontier_refresh를 시작 직후 한 번 실행")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	PrintHeader("Frontier Scheduler")

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	if schedulerRunNow {
		if err := sched.RunJob("frontier_refresh"); err != nil {
			return err
		}
	}

	PrintSuccess("Scheduler started successfully")
	printJobs(sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jobName := args[0]

	fmt.Fprintf(out, "Running job: %s\n", jobName)

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// 즉시 실행은 동기로 수행 (재시도 포함)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()

	fmt.Fprintln(out, "Job Statistics:")
	fmt.Fprintln(out)

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Fprintf(out, "📊 %s\n", jobName)
		fmt.Fprintf(out, "   Schedule: %s\n", stat.Schedule)
		if next, ok := sched.NextRun(jobName); ok && !next.IsZero() {
			fmt.Fprintf(out, "   Next Run: %s\n", next.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(out, "   Total Runs: %d\n", stat.TotalRuns)
		fmt.Fprintf(out, "   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Fprintf(out, "   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Fprintf(out, "   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if history, err := sched.GetJobHistory(jobName); err == nil {
			for _, r := range history.GetLatestResults(3) {
				if !r.Success {
					fmt.Fprintf(out, "   Error (%s): %s\n", r.StartTime.Format("2006-01-02 15:04:05"), r.Error)
				}
			}
		}

		fmt.Fprintln(out)
	}

	return nil
}

// printJobs lists registered jobs with their schedules
func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %-18s %s\n", jobName, stats[jobName].Schedule)
	}
}

// initScheduler registers the jobs the configuration supports
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if a.csv != nil && a.prices != nil {
		job := jobs.NewPriceImportJob(a.csv, a.prices, a.profile.Universe.Symbols, importSchedule, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	job := jobs.NewFrontierRefreshJob(a.svc, a.profile, a.cfg.RefreshSchedule, refreshTimeout, a.log)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}

	return sched, nil
}
