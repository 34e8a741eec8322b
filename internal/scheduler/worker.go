package scheduler

import (
	"context"
	"fmt"

	"realty_leads_backend/internal/leads/escalation"
	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sweep  *escalation.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweep *escalation.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sweep:  sweep,
		log:    log,
	}

	mux.HandleFunc(TaskEscalationSweep, w.handleEscalationSweep)

	return w, nil
}

func (w *Worker) handleEscalationSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEscalationSweepPayload(task)
	if err != nil {
		return err
	}

	escalated, err := w.sweep.Sweep(ctx)
	if err != nil {
		w.log.Error("escalation sweep failed", "requestedAt", payload.RequestedAt, "error", err)
		return err
	}

	if escalated > 0 {
		w.log.Info("escalation sweep complete", "escalated", escalated, "requestedAt", payload.RequestedAt)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
