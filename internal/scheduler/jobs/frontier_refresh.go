package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/pkg/logger"
)

// Refresher recomputes and re-caches a frontier
type Refresher interface {
	Refresh(ctx context.Context, p *profile.Profile) (*contracts.Frontier, error)
}

// FrontierRefreshJob recomputes the frontier of a profile after the close
// ⭐ SSOT: Frontier 갱신 스케줄은 이 Job에서만
type FrontierRefreshJob struct {
	refresher Refresher
	profile   *profile.Profile
	schedule  string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewFrontierRefreshJob creates a refresh job. A zero timeout means no limit.
func NewFrontierRefreshJob(r Refresher, p *profile.Profile, schedule string, timeout time.Duration, log *logger.Logger) *FrontierRefreshJob {
	return &FrontierRefreshJob{
		refresher: r,
		profile:   p,
		schedule:  schedule,
		timeout:   timeout,
		logger:    log,
	}
}

// Name returns the job name
func (j *FrontierRefreshJob) Name() string {
	return "frontier_refresh"
}

// Schedule returns the configured cron schedule
func (j *FrontierRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *FrontierRefreshJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.logger.WithField("profile", j.profile.Meta.ProfileID).Info("Starting scheduled frontier refresh")

	frontier, err := j.refresher.Refresh(ctx, j.profile)
	if err != nil {
		return fmt.Errorf("refresh frontier: %w", err)
	}

	// 모든 포인트 실패 시 재시도 대상
	if len(frontier.Points) > 0 && frontier.FailedCount() == len(frontier.Points) {
		return fmt.Errorf("refresh frontier: all %d points failed", len(frontier.Points))
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": frontier.RunID,
		"points": len(frontier.Points),
		"failed": frontier.FailedCount(),
	}).Info("Scheduled frontier refresh completed")

	return nil
}
