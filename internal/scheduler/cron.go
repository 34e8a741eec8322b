package scheduler

import (
	"context"
	"time"

	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// Cron enqueues the recurring escalation sweep on a fixed schedule. The
// heavy lifting happens in the asynq worker; the cron side only produces
// tasks, so a crashed sweep never blocks the schedule.
type Cron struct {
	runner *cron.Cron
	log    *logger.Logger
}

func NewCron(cfg config.EscalationConfig, sweeps SweepScheduler, log *logger.Logger) (*Cron, error) {
	runner := cron.New()

	spec := cfg.GetEscalationSweepSpec()
	if spec == "" {
		spec = "@every 5m"
	}

	_, err := runner.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := sweeps.ScheduleEscalationSweep(ctx, time.Now()); err != nil {
			log.Error("enqueue escalation sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Cron{runner: runner, log: log}, nil
}

// Run starts the schedule and blocks until ctx is cancelled.
func (c *Cron) Run(ctx context.Context) {
	c.runner.Start()
	<-ctx.Done()

	stopCtx := c.runner.Stop()
	<-stopCtx.Done()
}
