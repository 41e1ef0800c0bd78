package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
)

type QualityThresholds struct {
	MinWidth    int
	MinHeight   int
	MinDuration time.Duration
	MaxDuration time.Duration
}

// EvaluateMetrics runs the resolution and duration checks. Both always run so
// the report lists every problem at once.
func EvaluateMetrics(m entity.VideoMetrics, t QualityThresholds) entity.QualityReport {
	issues := []string{}

	if m.Width < t.MinWidth || m.Height < t.MinHeight {
		issues = append(issues, fmt.Sprintf("resolution too low: got %dx%d, minimum %dx%d",
			m.Width, m.Height, t.MinWidth, t.MinHeight))
	}

	minSec, maxSec := t.MinDuration.Seconds(), t.MaxDuration.Seconds()
	switch {
	case m.Duration <= minSec:
		issues = append(issues, fmt.Sprintf("video too short: %.2fs, minimum %.2fs", m.Duration, minSec))
	case m.Duration >= maxSec:
		issues = append(issues, fmt.Sprintf("video too long: %.2fs, maximum %.2fs", m.Duration, maxSec))
	}

	return entity.QualityReport{Valid: len(issues) == 0, Issues: issues}
}

type QualityGate struct {
	prober     port.MetricsProber
	thresholds QualityThresholds
}

func NewQualityGate(prober port.MetricsProber, thresholds QualityThresholds) *QualityGate {
	return &QualityGate{prober: prober, thresholds: thresholds}
}

func (g *QualityGate) Evaluate(ctx context.Context, asset entity.MediaAsset) (entity.QualityReport, error) {
	m, err := g.prober.Metrics(ctx, asset)
	if err != nil {
		return entity.QualityReport{}, err
	}
	return EvaluateMetrics(m, g.thresholds), nil
}
