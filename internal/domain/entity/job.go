package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// AnalysisJob tracks one queued analysis request across delivery attempts.
type AnalysisJob struct {
	ID           uuid.UUID
	UserID       string
	VideoKey     string
	Sport        Sport
	Provider     ProviderName
	Status       JobStatus
	Result       json.RawMessage
	ErrorKind    ErrorKind
	ErrorMessage string
	Attempt      int
	MaxAttempts  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewAnalysisJob(userID, videoKey string, sport Sport, provider ProviderName, maxAttempts int) *AnalysisJob {
	now := time.Now().UTC()
	return &AnalysisJob{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		Sport:       sport,
		Provider:    provider,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *AnalysisJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *AnalysisJob) MarkCompleted(result json.RawMessage) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Result = result
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *AnalysisJob) MarkFailed(kind ErrorKind, errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *AnalysisJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
