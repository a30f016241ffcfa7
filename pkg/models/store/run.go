package store

import (
	"encoding/json"
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

type Run struct {
	ID         string
	Report     string
	Status     string
	Error      *string
	Params     map[string]any
	Result     json.RawMessage
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (r *Run) Done() bool {
	return r.Status != RunStatusRunning
}
