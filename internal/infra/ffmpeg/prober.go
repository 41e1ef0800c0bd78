package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

type Prober struct {
	ffprobePath string
	runner      Runner
}

func NewProber(ffprobePath string, runner Runner) *Prober {
	return &Prober{ffprobePath: ffprobePath, runner: runner}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType     string `json:"codec_type"`
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		Duration      string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Metrics probes the first video stream of asset.
func (p *Prober) Metrics(ctx context.Context, asset entity.MediaAsset) (entity.VideoMetrics, error) {
	if !asset.IsVideo() {
		return entity.VideoMetrics{}, entity.NewValidationError("media", "metrics require a video asset, got %q", asset.Kind)
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-count_packets",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		asset.Path,
	}
	output, err := p.runner.Run(ctx, p.ffprobePath, args...)
	if err != nil {
		return entity.VideoMetrics{}, &entity.ExtractionError{Msg: "ffprobe " + asset.Name(), Err: err}
	}

	m, err := parseProbe(output, entity.NormalizeExtension(asset.Extension))
	if err != nil {
		return entity.VideoMetrics{}, &entity.ExtractionError{Msg: "read metrics of " + asset.Name(), Err: err}
	}
	return m, nil
}

func parseProbe(output []byte, format string) (entity.VideoMetrics, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return entity.VideoMetrics{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		fps := parseRate(s.RFrameRate)
		if fps == 0 {
			fps = parseRate(s.AvgFrameRate)
		}

		total := parseInt(s.NbReadPackets)
		if total == 0 {
			total = parseInt(s.NbFrames)
		}
		if total == 0 && fps > 0 {
			// Containers such as mkv carry no frame count.
			duration := parseFloat(s.Duration)
			if duration == 0 {
				duration = parseFloat(probe.Format.Duration)
			}
			total = int(math.Round(duration * fps))
		}

		return entity.NewVideoMetrics(s.Width, s.Height, fps, total, format), nil
	}
	return entity.VideoMetrics{}, fmt.Errorf("no video stream found")
}

// parseRate reads an ffprobe rational such as "30000/1001".
func parseRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		return parseFloat(rate)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d <= 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
