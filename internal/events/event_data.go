package events

import (
	"encoding/json"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// UserCreatedData carries the sign-up profile used to personalise the welcome email
type UserCreatedData struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// EventType returns the event type for UserCreatedData
func (d *UserCreatedData) EventType() EventType {
	return UserCreated
}

// SendDailyNewsData has no fields; the digest covers every subscribed user
type SendDailyNewsData struct{}

// EventType returns the event type for SendDailyNewsData
func (d *SendDailyNewsData) EventType() EventType {
	return SendDailyNews
}

// FunctionFinishedData summarises one function run
type FunctionFinishedData struct {
	FunctionID string `json:"function_id"`
	Trigger    string `json:"trigger"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// EventType returns the event type for FunctionFinishedData
func (d *FunctionFinishedData) EventType() EventType {
	return FunctionFinished
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Decode converts an event's data map into the typed payload for its type.
// Returns nil when the type is unknown or the payload does not fit.
func (e *Event) Decode() EventData {
	if e.Data == nil && e.Type != SendDailyNews {
		return nil
	}

	var target EventData
	switch e.Type {
	case UserCreated:
		target = &UserCreatedData{}
	case SendDailyNews:
		return &SendDailyNewsData{}
	case FunctionFinished:
		target = &FunctionFinishedData{}
	case ErrorOccurred:
		target = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, target); err != nil {
		return nil
	}
	return target
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
