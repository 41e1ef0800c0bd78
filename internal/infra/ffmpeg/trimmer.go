package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"go.uber.org/zap"
)

// trimTolerance absorbs container duration rounding at the end bound.
const trimTolerance = 0.05

type Trimmer struct {
	ffmpegPath string
	runner     Runner
	prober     port.MetricsProber
	store      AssetAllocator
	logger     *zap.Logger
}

func NewTrimmer(ffmpegPath string, runner Runner, prober port.MetricsProber, store AssetAllocator, logger *zap.Logger) *Trimmer {
	return &Trimmer{ffmpegPath: ffmpegPath, runner: runner, prober: prober, store: store, logger: logger}
}

// Trim re-encodes [start, end) of asset into a new mp4 asset. The source asset
// is left in place.
func (t *Trimmer) Trim(ctx context.Context, asset entity.MediaAsset, start, end float64) (entity.MediaAsset, error) {
	window := entity.TimeRange{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return entity.MediaAsset{}, err
	}

	metrics, err := t.prober.Metrics(ctx, asset)
	if err != nil {
		return entity.MediaAsset{}, err
	}
	if end > metrics.Duration+trimTolerance {
		return entity.MediaAsset{}, entity.NewValidationError("time_range",
			"end %.3f exceeds video duration %.3f", end, metrics.Duration)
	}

	base := strings.TrimSuffix(asset.Name(), "."+asset.Extension) + "_trim"
	out, err := t.store.Allocate(entity.MediaKindVideo, base, "mp4")
	if err != nil {
		return entity.MediaAsset{}, &entity.TrimError{Err: err}
	}

	args := []string{
		"-y",
		"-v", "error",
		"-ss", formatSeconds(start),
		"-i", asset.Path,
		"-t", formatSeconds(window.Length()),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-af", "aresample=async=1",
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		out,
	}
	output, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		_ = os.Remove(out)
		return entity.MediaAsset{}, &entity.TrimError{Diagnostic: string(output), Err: err}
	}

	trimmed, err := t.store.Adopt(out, entity.MediaKindVideo)
	if err != nil {
		_ = os.Remove(out)
		return entity.MediaAsset{}, &entity.TrimError{Err: err}
	}
	if trimmed.SizeBytes == 0 {
		_ = os.Remove(out)
		return entity.MediaAsset{}, &entity.TrimError{Diagnostic: string(output), Err: fmt.Errorf("encoder produced an empty file")}
	}

	t.logger.Info("video trimmed",
		zap.String("source", asset.Name()),
		zap.String("output", trimmed.Name()),
		zap.Float64("start", start),
		zap.Float64("end", end),
	)
	return trimmed, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
