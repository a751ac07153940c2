// Package queue hands pipeline runs to workers through asynq and keeps the
// status of each run in Redis.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/internal/models"
)

const TaskTypeRun = "etl:run"

const statusTTL = 24 * time.Hour

var queues = []string{"critical", "default", "low"}

// ErrRunNotFound is returned for a run id that was never enqueued or has expired.
var ErrRunNotFound = errors.New("run not found")

type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	CancelRun(ctx context.Context, runID string) error
	SaveRun(ctx context.Context, run *models.Run) error
}

// Task is the payload of an etl:run task.
type Task struct {
	ID        string            `json:"id"`
	Priority  int               `json:"priority"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ParseTask decodes the payload written by Enqueue.
func ParseTask(payload []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.ID == "" {
		return nil, errors.New("invalid task data: missing run id")
	}
	return &task, nil
}

type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	cfg       *QueueConfig
}

type QueueConfig struct {
	RedisAddr      string
	RedisDB        int
	ProcessTimeout time.Duration
}

// GetQueue returns a queue on the Redis configured for the app.
func GetQueue() (*AsynqQueue, error) {
	appCfg := config.GetAppConfig()
	return NewAsynqQueue(&QueueConfig{
		RedisAddr:      appCfg.RedisAddr,
		RedisDB:        appCfg.RedisDB,
		ProcessTimeout: 2 * time.Hour,
	})
}

func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis: redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		}),
		cfg: cfg,
	}, nil
}

// Enqueue schedules the run and records it as pending.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeRun, payload, q.taskOptions(task)...)); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return q.SaveRun(ctx, &models.Run{
		ID:        task.ID,
		Status:    models.StatusPending,
		CreatedAt: task.CreatedAt,
	})
}

// taskOptions never allows a retry: a failed run is reported and a new one
// has to be started.
func (q *AsynqQueue) taskOptions(task *Task) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(q.cfg.ProcessTimeout),
		asynq.TaskID(task.ID),
		asynq.Queue(queueFor(task.Priority)),
	}
}

// GetRun prefers the status saved in Redis and falls back to the task
// state asynq still holds.
func (q *AsynqQueue) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	data, err := q.redis.Get(ctx, statusKey(runID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	if err == nil {
		var run models.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &run, nil
	}

	for _, name := range queues {
		info, err := q.inspector.GetTaskInfo(name, runID)
		if err == nil {
			return runFromTaskInfo(info), nil
		}
		if !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, fmt.Errorf("failed to inspect task: %w", err)
		}
	}
	return nil, ErrRunNotFound
}

// CancelRun removes a waiting run, or signals an active one to stop.
func (q *AsynqQueue) CancelRun(ctx context.Context, runID string) error {
	run, err := q.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return fmt.Errorf("run %s already %s", runID, run.Status)
	}

	deleted := false
	for _, name := range queues {
		if err := q.inspector.DeleteTask(name, runID); err == nil {
			deleted = true
			break
		}
	}
	if !deleted {
		if err := q.inspector.CancelProcessing(runID); err != nil {
			return fmt.Errorf("failed to cancel task: %w", err)
		}
	}

	run.Status = models.StatusCancelled
	run.UpdatedAt = time.Now().UTC()
	return q.SaveRun(ctx, run)
}

func (q *AsynqQueue) SaveRun(ctx context.Context, run *models.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, statusKey(run.ID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close(), q.redis.Close())
}

func statusKey(runID string) string {
	return fmt.Sprintf("run_status:%s", runID)
}

func queueFor(priority int) string {
	switch priority {
	case 1:
		return "critical"
	case 2:
		return "default"
	default:
		return "low"
	}
}

func runFromTaskInfo(info *asynq.TaskInfo) *models.Run {
	run := &models.Run{
		ID:        info.ID,
		UpdatedAt: time.Now().UTC(),
	}
	if task, err := ParseTask(info.Payload); err == nil {
		run.CreatedAt = task.CreatedAt
	}

	switch info.State {
	case asynq.TaskStateActive:
		run.Status = models.StatusRunning
	case asynq.TaskStateCompleted:
		run.Status = models.StatusCompleted
		run.UpdatedAt = info.CompletedAt
	case asynq.TaskStateArchived:
		run.Status = models.StatusFailed
		run.Error = info.LastErr
	case asynq.TaskStateRetry:
		run.Status = models.StatusPending
		run.Error = info.LastErr
	default:
		run.Status = models.StatusPending
	}
	return run
}
