package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

type AnalysisJobRepository interface {
	Create(ctx context.Context, job *entity.AnalysisJob) error
	Update(ctx context.Context, job *entity.AnalysisJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.AnalysisJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.AnalysisJob, error)
}
