package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TrialSweeper expires trial tenants whose trial period has ended
type TrialSweeper interface {
	SweepExpiredTrials(ctx context.Context) (int, error)
}

// IngestionRunner processes a batch of pending knowledge documents
type IngestionRunner interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// MaintenanceExecutor dispatches maintenance jobs to their services
type MaintenanceExecutor struct {
	trials             TrialSweeper
	ingestion          IngestionRunner
	ingestionBatchSize int
	logger             *zap.Logger
}

// NewMaintenanceExecutor creates an executor over the given services.
// Either dependency may be nil; jobs of that type then fail.
func NewMaintenanceExecutor(
	trials TrialSweeper,
	ingestion IngestionRunner,
	ingestionBatchSize int,
	logger *zap.Logger,
) *MaintenanceExecutor {
	if ingestionBatchSize <= 0 {
		ingestionBatchSize = 5
	}
	return &MaintenanceExecutor{
		trials:             trials,
		ingestion:          ingestion,
		ingestionBatchSize: ingestionBatchSize,
		logger:             logger,
	}
}

// Execute runs a single maintenance job
func (e *MaintenanceExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeTrialSweep:
		return e.executeTrialSweep(ctx, job)
	case JobTypeIngestionSweep:
		return e.executeIngestionSweep(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}
}

func (e *MaintenanceExecutor) executeTrialSweep(ctx context.Context, job *Job) error {
	if e.trials == nil {
		return fmt.Errorf("trial sweeper not configured")
	}

	expired, err := e.trials.SweepExpiredTrials(ctx)
	if err != nil {
		return fmt.Errorf("trial sweep failed: %w", err)
	}

	e.logger.Info("Trial sweep completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("expired", expired),
	)
	return nil
}

func (e *MaintenanceExecutor) executeIngestionSweep(ctx context.Context, job *Job) error {
	if e.ingestion == nil {
		return fmt.Errorf("ingestion runner not configured")
	}

	processed, err := e.ingestion.ProcessPending(ctx, e.ingestionBatchSize)
	if err != nil {
		return fmt.Errorf("ingestion sweep failed: %w", err)
	}

	e.logger.Info("Ingestion sweep completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("processed", processed),
	)
	return nil
}

// Ensure MaintenanceExecutor implements JobExecutor
var _ JobExecutor = (*MaintenanceExecutor)(nil)
