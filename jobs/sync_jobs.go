package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tillbridge/tillbridge/internal/jobs"
	"github.com/tillbridge/tillbridge/internal/sync"
)

// NewSyncHandlers wires the sync engine into task handlers. Each run is
// tracked through the job metrics; skipped records are counted per entity.
func NewSyncHandlers(logger *slog.Logger, engine *sync.Service, metrics *jobmetrics.Metrics) []TaskHandler {
	run := func(job string, fn func(ctx context.Context) (*sync.Result, error)) asynq.HandlerFunc {
		return func(ctx context.Context, _ *asynq.Task) error {
			tracker := metrics.Track(job)
			result, err := fn(ctx)
			if err != nil {
				logger.Error("sync job failed", slog.String("job", job), slog.Any("error", err))
				return tracker.End(err)
			}
			metrics.AddSkipped("customers", result.CustomersSkipped)
			metrics.AddSkipped("sales", result.SalesSkipped)
			logger.Info("sync job finished",
				slog.String("job", job),
				slog.Int("items_pulled", result.ItemsPulled),
				slog.Int("sales_pushed", result.SalesPushed),
				slog.Int("customers_pushed", result.CustomersPushed),
				slog.Int("errors", len(result.Errors)),
			)
			return tracker.End(nil)
		}
	}

	return []TaskHandler{
		{Type: TaskSyncFull, Handler: run(TaskSyncFull, engine.Run)},
		{Type: TaskSyncPull, Handler: run(TaskSyncPull, engine.Pull)},
		{Type: TaskSyncPush, Handler: run(TaskSyncPush, engine.Push)},
	}
}
