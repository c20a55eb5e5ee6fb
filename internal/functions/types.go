// Package functions is the in-process function runtime: named functions triggered by
// events or cron schedules, with every run recorded.
package functions

import (
	"context"
	"time"

	"github.com/signalist/signalist/internal/events"
)

// DefaultTimeout bounds a single run when a function sets none
const DefaultTimeout = 5 * time.Minute

// Run statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Trigger names recorded on runs
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// Func is a function body. event is nil for cron runs. The returned message is stored on the run.
type Func func(ctx context.Context, event *events.Event) (string, error)

// Function is a registered unit of background work
type Function struct {
	// ID is the stable function id, e.g. "sign-up-email"
	ID string

	// Events lists the event types that trigger the function
	Events []events.EventType

	// Cron is an optional schedule (seconds field first)
	Cron string

	// Timeout overrides DefaultTimeout
	Timeout time.Duration

	Run Func
}

// Info is the public description of a function
type Info struct {
	ID     string   `json:"id"`
	Events []string `json:"events"`
	Cron   string   `json:"cron,omitempty"`
}

// Describe returns the function's public description
func (f *Function) Describe() Info {
	evs := make([]string, len(f.Events))
	for i, e := range f.Events {
		evs[i] = string(e)
	}
	return Info{ID: f.ID, Events: evs, Cron: f.Cron}
}

func (f *Function) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultTimeout
}

// RunRecord is one recorded execution
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	ID         string    `json:"id"`
	FunctionID string    `json:"function_id"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}
