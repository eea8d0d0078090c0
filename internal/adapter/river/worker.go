package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// DealEventWorker processes deal event jobs from the River queue.
// For now it logs the event; future versions will dispatch to
// webhooks, activity feeds, or notification systems.
type DealEventWorker struct {
	river.WorkerDefaults[DealEventJobArgs]
}

// Work processes a single deal event job.
func (w *DealEventWorker) Work(ctx context.Context, job *river.Job[DealEventJobArgs]) error {
	slog.InfoContext(ctx, "processing deal event",
		"event", job.Args.Event,
		"deal_id", job.Args.DealID,
		"stage_id", job.Args.StageID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
