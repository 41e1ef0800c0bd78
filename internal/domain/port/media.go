package port

import (
	"context"
	"io"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

type MediaStore interface {
	Ingest(r io.Reader, filename string, kind entity.MediaKind) (entity.MediaAsset, error)
	Remove(asset entity.MediaAsset) error
}

type MetricsProber interface {
	Metrics(ctx context.Context, asset entity.MediaAsset) (entity.VideoMetrics, error)
}

type FrameSampler interface {
	Sample(ctx context.Context, asset entity.MediaAsset, count int) (*entity.FrameSet, error)
}

type Trimmer interface {
	Trim(ctx context.Context, asset entity.MediaAsset, start, end float64) (entity.MediaAsset, error)
}

// Redactor obscures identifiable faces in an image asset in place and returns
// how many regions it changed.
type Redactor interface {
	Redact(ctx context.Context, frame entity.MediaAsset) (int, error)
}
