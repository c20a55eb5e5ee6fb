// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types.
// Values are the event names accepted by POST /api/functions.
type EventType string

const (
	// UserCreated is emitted once per successful sign-up
	UserCreated EventType = "app/user.created"
	// SendDailyNews triggers the daily digest outside its schedule
	SendDailyNews EventType = "app/send.daily.news"
	// FunctionFinished is emitted after every function run
	FunctionFinished EventType = "app/function.finished"
	// ErrorOccurred reports a background failure
	ErrorOccurred EventType = "app/error"
)

// Event represents a system event
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	ID        string                 `json:"id"`
}

// Known reports whether t is one of the declared event types
func Known(t EventType) bool {
	switch t {
	case UserCreated, SendDailyNews, FunctionFinished, ErrorOccurred:
		return true
	}
	return false
}
