package entity

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AnalysisRequestedMessage is the inbound message from the analysis.requested queue.
type AnalysisRequestedMessage struct {
	JobID     uuid.UUID         `json:"job_id"`
	UserID    string            `json:"user_id"`
	UserEmail string            `json:"user_email"`
	VideoKey  string            `json:"video_key"`
	Sport     Sport             `json:"sport"`
	Provider  ProviderName      `json:"provider"`
	StartTime *float64          `json:"start_time,omitempty"`
	EndTime   *float64          `json:"end_time,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
}

// TimeRange returns the requested window, or nil when either bound is missing.
func (m AnalysisRequestedMessage) TimeRange() *TimeRange {
	if m.StartTime == nil || m.EndTime == nil {
		return nil
	}
	return &TimeRange{Start: *m.StartTime, End: *m.EndTime}
}

// AnalysisStatusMessage is the outbound message published to the analysis.status queue.
type AnalysisStatusMessage struct {
	JobID        uuid.UUID       `json:"job_id"`
	UserID       string          `json:"user_id"`
	Status       JobStatus       `json:"status"`
	VideoKey     string          `json:"video_key"`
	VideoURL     string          `json:"video_url,omitempty"`
	Sport        Sport           `json:"sport"`
	Provider     ProviderName    `json:"provider"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorKind    ErrorKind       `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Attempt      int             `json:"attempt"`
	MaxAttempts  int             `json:"max_attempts"`
}
