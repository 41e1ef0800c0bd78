package entity

import (
	"encoding/json"
	"math"
	"time"
)

type Sport string

const SportGolf Sport = "golf"

type ProviderName string

const (
	ProviderGPT5              ProviderName = "gpt-5"
	ProviderGPT5Nano          ProviderName = "gpt-5-nano"
	ProviderGPT52             ProviderName = "gpt-5.2"
	ProviderGemini25Flash     ProviderName = "gemini-2.5-flash"
	ProviderGemini25FlashLite ProviderName = "gemini-2.5-flash-lite"
	ProviderGemini25Pro       ProviderName = "gemini-2.5-pro"
	ProviderGemini3ProPreview ProviderName = "gemini-3-pro-preview"
)

// Stage is the position of one provider invocation in its lifecycle.
type Stage string

const (
	StagePreparing  Stage = "PREPARING"
	StageSent       Stage = "SENT"
	StageActive     Stage = "ACTIVE"
	StageFailed     Stage = "FAILED"
	StageParsed     Stage = "PARSED"
	StageParseError Stage = "PARSE_ERROR"
)

// TimeRange is a half-open [Start, End) window in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r TimeRange) Length() float64 { return r.End - r.Start }

// Validate checks the range shape. The upper bound against the source duration
// needs the media and is checked by the trimmer.
func (r TimeRange) Validate() error {
	if !finite(r.Start) || !finite(r.End) {
		return NewValidationError("time_range", "start and end must be finite numbers")
	}
	if r.Start < 0 || r.End < 0 {
		return NewValidationError("time_range", "start and end must be non-negative (got %.3f, %.3f)", r.Start, r.End)
	}
	if r.End <= r.Start {
		return NewValidationError("time_range", "end %.3f must be greater than start %.3f", r.End, r.Start)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// UserNotes are free-form self-reported notes about a swing. They are context
// for the model, never ground truth.
type UserNotes map[string]string

type AnalysisRequest struct {
	UserID    string
	Media     MediaAsset
	TimeRange *TimeRange
	Sport     Sport
	Provider  ProviderName
	Notes     UserNotes
}

func (r AnalysisRequest) Validate() error {
	if r.UserID == "" {
		return NewValidationError("user_id", "must not be empty")
	}
	if !r.Media.IsVideo() {
		return NewValidationError("media", "expected a video asset, got %q", r.Media.Kind)
	}
	if r.Media.Path == "" {
		return NewValidationError("media", "path must not be empty")
	}
	if r.TimeRange != nil {
		return r.TimeRange.Validate()
	}
	return nil
}

// AnalysisResult is the parsed provider output. Data is the decoded JSON
// object, Raw the exact bytes it was decoded from.
type AnalysisResult struct {
	Provider         ProviderName    `json:"provider"`
	Sport            Sport           `json:"sport"`
	Data             map[string]any  `json:"data"`
	Raw              json.RawMessage `json:"-"`
	FrameCount       int             `json:"frame_count,omitempty"`
	Metered          bool            `json:"metered"`
	CreditsRemaining *int64          `json:"credits_remaining,omitempty"`
	CompletedAt      time.Time       `json:"completed_at"`
}
