package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/internal/service/pipeline"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/queue"
)

// RunStore records run status transitions.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) error
}

type PipelineWorker struct {
	BaseWorker
	pipeline pipeline.Pipeline
	runs     RunStore
}

func NewPipelineWorker(cfg *Config, p pipeline.Pipeline, runs RunStore, log logger.Logger) (*PipelineWorker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		// Runs overwrite the same tables.
		concurrency = 1
	}
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      cfg.Queues,
		},
	)

	w := &PipelineWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log.Named("worker"),
		},
		pipeline: p,
		runs:     runs,
	}

	w.registerHandlers()
	return w, nil
}

func (w *PipelineWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeRun, w.handleRun)
}

func (w *PipelineWorker) handleRun(ctx context.Context, t *asynq.Task) error {
	task, err := queue.ParseTask(t.Payload())
	if err != nil {
		w.logger.Error("Invalid run task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	ctx = logger.ContextWithRunID(ctx, task.ID)
	log := logger.FromContext(ctx, w.logger)
	log.Info("Processing run task", logger.Any("metadata", task.Metadata))

	run := &models.Run{
		ID:        task.ID,
		Status:    models.StatusRunning,
		CreatedAt: task.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	w.save(ctx, log, run)
	w.writeResult(t, log, fmt.Sprintf(`{"status":%q}`, run.Status))

	report, err := w.pipeline.Run(ctx)
	run.Report = report
	run.UpdatedAt = time.Now().UTC()
	if err != nil {
		run.Status = models.StatusFailed
		if ctx.Err() != nil {
			run.Status = models.StatusCancelled
		}
		run.Error = err.Error()
		w.save(ctx, log, run)
		w.writeResult(t, log, fmt.Sprintf(`{"status":%q,"error":%q}`, run.Status, run.Error))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	run.Status = models.StatusCompleted
	w.save(ctx, log, run)
	w.writeResult(t, log, fmt.Sprintf(`{"status":%q}`, run.Status))
	log.Info("Run completed", logger.Int("tables", len(report.Tables)))
	return nil
}

// save uses a detached context so a cancelled run still records its outcome.
func (w *PipelineWorker) save(ctx context.Context, log logger.Logger, run *models.Run) {
	if err := w.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("Failed to save run status", logger.Error(err), logger.String("status", string(run.Status)))
	}
}

func (w *PipelineWorker) writeResult(t *asynq.Task, log logger.Logger, result string) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	if _, err := rw.Write([]byte(result)); err != nil {
		log.Error("Failed to write task result", logger.Error(err))
	}
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
