package port

import (
	"context"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// FailureNotifier tells the user that a job failed for good.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, job *entity.AnalysisJob) error
}
