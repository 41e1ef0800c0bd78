package port

import (
	"context"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// StatusPublisher announces every job state change to the status topic.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg entity.AnalysisStatusMessage) error
}

// DLQPublisher parks a raw request that will never be processed, with the
// reason it was rejected.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
