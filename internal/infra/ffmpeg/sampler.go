package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"go.uber.org/zap"
)

// AssetAllocator hands out output paths for files written by ffmpeg.
type AssetAllocator interface {
	Allocate(kind entity.MediaKind, base, ext string) (string, error)
	Adopt(path string, kind entity.MediaKind) (entity.MediaAsset, error)
}

type Sampler struct {
	ffmpegPath string
	runner     Runner
	prober     port.MetricsProber
	store      AssetAllocator
	logger     *zap.Logger
}

func NewSampler(ffmpegPath string, runner Runner, prober port.MetricsProber, store AssetAllocator, logger *zap.Logger) *Sampler {
	return &Sampler{ffmpegPath: ffmpegPath, runner: runner, prober: prober, store: store, logger: logger}
}

// SampleIndices picks count evenly spaced frame numbers from the middle half
// of a clip of totalFrames frames. The first and last quarter are skipped.
func SampleIndices(totalFrames, count int) ([]int, error) {
	if count <= 0 {
		return nil, entity.NewValidationError("count", "must be positive, got %d", count)
	}
	start := totalFrames / 4
	end := totalFrames * 3 / 4
	usable := end - start
	if usable <= 0 {
		return nil, &entity.ExtractionError{Msg: fmt.Sprintf("not enough frames to sample (total %d)", totalFrames)}
	}
	if count > usable {
		return nil, &entity.ExtractionError{Msg: fmt.Sprintf("cannot sample %d distinct frames from %d usable", count, usable)}
	}

	stride := usable / count
	indices := make([]int, count)
	for i := range indices {
		indices[i] = start + i*stride
	}
	return indices, nil
}

// Sample decodes count frames of asset to PNG files. On any failure the
// frames already written are removed.
func (s *Sampler) Sample(ctx context.Context, asset entity.MediaAsset, count int) (*entity.FrameSet, error) {
	if count <= 0 {
		return nil, entity.NewValidationError("count", "must be positive, got %d", count)
	}
	metrics, err := s.prober.Metrics(ctx, asset)
	if err != nil {
		return nil, err
	}
	indices, err := SampleIndices(metrics.TotalFrames, count)
	if err != nil {
		return nil, err
	}

	frames := make([]entity.Frame, 0, len(indices))
	cleanup := func() {
		for _, f := range frames {
			if rmErr := os.Remove(f.Asset.Path); rmErr != nil {
				s.logger.Warn("failed to remove partial frame", zap.String("path", f.Asset.Path), zap.Error(rmErr))
			}
		}
	}

	for i, idx := range indices {
		frame, err := s.decodeFrame(ctx, asset, i, idx)
		if err != nil {
			cleanup()
			return nil, err
		}
		frames = append(frames, frame)
	}

	s.logger.Info("frames sampled",
		zap.String("video", asset.Name()),
		zap.Int("count", len(frames)),
		zap.Int("total_frames", metrics.TotalFrames),
	)
	return entity.NewFrameSet(frames), nil
}

func (s *Sampler) decodeFrame(ctx context.Context, asset entity.MediaAsset, i, idx int) (entity.Frame, error) {
	out, err := s.store.Allocate(entity.MediaKindImage, fmt.Sprintf("frame_%03d", i), "png")
	if err != nil {
		return entity.Frame{}, &entity.ExtractionError{Msg: "allocate frame file", Err: err}
	}

	args := []string{
		"-y",
		"-v", "error",
		"-i", asset.Path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, idx),
		"-frames:v", "1",
		"-fps_mode", "passthrough",
		out,
	}
	output, err := s.runner.Run(ctx, s.ffmpegPath, args...)
	if err != nil {
		_ = os.Remove(out)
		return entity.Frame{}, &entity.ExtractionError{
			Msg: fmt.Sprintf("decode frame %d: %s", idx, string(output)),
			Err: err,
		}
	}

	frameAsset, err := s.store.Adopt(out, entity.MediaKindImage)
	if err != nil || frameAsset.SizeBytes == 0 {
		_ = os.Remove(out)
		return entity.Frame{}, &entity.ExtractionError{Msg: fmt.Sprintf("frame %d produced no image", idx), Err: err}
	}
	return entity.Frame{Index: i, FrameNumber: idx, Asset: frameAsset}, nil
}
