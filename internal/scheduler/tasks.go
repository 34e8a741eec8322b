package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskEscalationSweep = "leads.escalation.sweep"

type EscalationSweepPayload struct {
	RequestedAt string `json:"requestedAt"`
}

func NewEscalationSweepTask(payload EscalationSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscalationSweep, data), nil
}

func ParseEscalationSweepPayload(task *asynq.Task) (EscalationSweepPayload, error) {
	var payload EscalationSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EscalationSweepPayload{}, err
	}
	return payload, nil
}
