// Package job runs background work on Asynq, a Redis-backed task queue.
package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/deppfellow/go-invoices/internal/config"
)

// enqueuer is the part of asynq.Client used to push tasks.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type JobService struct {
	client enqueuer
	server *asynq.Server
	logger *zerolog.Logger

	// enabled is false when no email provider is configured; nothing
	// enqueues tasks then and the workers stay down.
	enabled bool

	invoices InvoiceLookup
	mailer   Mailer
}

func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("type", task.Type()).Msg("task failed")
		}),
	})

	return &JobService{
		client:  asynq.NewClient(redisOpt),
		server:  server,
		logger:  logger,
		enabled: cfg.Integration.NotificationsEnabled(),
	}
}

// Enabled reports whether the workers run and tasks may be enqueued.
func (j *JobService) Enabled() bool {
	return j.enabled
}

// Start registers the task handlers and starts the workers in the
// background. It does nothing while notifications are disabled.
func (j *JobService) Start() error {
	if !j.enabled {
		j.logger.Info().Msg("notifications disabled, background job server not started")
		return nil
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInvoiceCreated, j.handleInvoiceCreatedTask)

	j.logger.Info().Msg("starting background job server")
	return j.server.Start(mux)
}

// EnqueueInvoiceCreated schedules the customer notification for invoiceID.
func (j *JobService) EnqueueInvoiceCreated(ctx context.Context, invoiceID string) error {
	task, err := NewInvoiceCreatedTask(invoiceID)
	if err != nil {
		return fmt.Errorf("building invoice created task: %w", err)
	}

	info, err := j.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueueing invoice created task: %w", err)
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("invoice_id", invoiceID).
		Msg("enqueued invoice created task")
	return nil
}

func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	if j.server != nil {
		j.server.Shutdown()
	}
	if err := j.client.Close(); err != nil {
		j.logger.Error().Err(err).Msg("failed to close job client")
	}
}
