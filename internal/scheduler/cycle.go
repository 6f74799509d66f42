package scheduler

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/simaogato/dca-tracker/internal/usecase/tracker"
)

// CycleJob runs the monthly contribution cycle
type CycleJob struct {
	tracker *tracker.Tracker
	log     zerolog.Logger
}

// NewCycleJob creates a new contribution cycle job
func NewCycleJob(t *tracker.Tracker, log zerolog.Logger) *CycleJob {
	return &CycleJob{
		tracker: t,
		log:     log.With().Str("job", "contribution_cycle").Logger(),
	}
}

// Name returns the job name
func (j *CycleJob) Name() string {
	return "contribution_cycle"
}

// Run executes one cycle. Degraded steps are logged, not returned.
func (j *CycleJob) Run(ctx context.Context) error {
	result, err := j.tracker.Run(ctx)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		j.log.Warn().Err(w).Msg("Cycle completed with warning")
	}
	return nil
}
