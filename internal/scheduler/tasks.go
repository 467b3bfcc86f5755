package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAutomationRun = "automation.run"

type AutomationRunPayload struct {
	Trigger string  `json:"trigger"`
	RuleID  *string `json:"ruleId,omitempty"`
}

func NewAutomationRunTask(payload AutomationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutomationRun, data), nil
}

func ParseAutomationRunPayload(task *asynq.Task) (AutomationRunPayload, error) {
	var payload AutomationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutomationRunPayload{}, err
	}
	return payload, nil
}
