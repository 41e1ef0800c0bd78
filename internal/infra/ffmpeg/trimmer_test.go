package ffmpeg

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTrimmer(t *testing.T, runner Runner) (*Trimmer, *disk.Store) {
	t.Helper()
	store, err := disk.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewTrimmer("ffmpeg", runner, NewProber("ffprobe", runner), store, zap.NewNop()), store
}

func TestTrimWritesNewAssetAndKeepsSource(t *testing.T) {
	runner := &fakeRunner{probeOutput: probeJSON(1280, 720, "30/1", "300")}
	tr, store := newTrimmer(t, runner)
	video := ingestFakeVideo(t, store)

	trimmed, err := tr.Trim(context.Background(), video, 1.5, 4)
	require.NoError(t, err)

	assert.NotEqual(t, video.Path, trimmed.Path)
	assert.Equal(t, "mp4", trimmed.Extension)
	assert.FileExists(t, trimmed.Path)
	assert.FileExists(t, video.Path)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	args := calls[0].args
	assert.Equal(t, []string{"-ss", "1.500"}, args[3:5])
	assert.Contains(t, args, "2.500")
	assert.Contains(t, args, "libx264")
	assert.Equal(t, trimmed.Path, args[len(args)-1])
}

func TestTrimRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
	}{
		{name: "end before start", start: 3, end: 2},
		{name: "empty window", start: 2, end: 2},
		{name: "negative start", start: -1, end: 2},
		{name: "nan", start: math.NaN(), end: 2},
		{name: "past the end", start: 1, end: 10.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{probeOutput: probeJSON(1280, 720, "30/1", "300")}
			tr, store := newTrimmer(t, runner)
			video := ingestFakeVideo(t, store)

			_, err := tr.Trim(context.Background(), video, tt.start, tt.end)
			assert.Equal(t, entity.ErrorKindValidation, entity.KindOf(err))
			assert.Empty(t, runner.ffmpegCalls())
		})
	}
}

func TestTrimEndWithinToleranceIsAccepted(t *testing.T) {
	runner := &fakeRunner{probeOutput: probeJSON(1280, 720, "30/1", "300")}
	tr, store := newTrimmer(t, runner)
	video := ingestFakeVideo(t, store)

	_, err := tr.Trim(context.Background(), video, 9, 10.04)
	assert.NoError(t, err)
}

func TestTrimFailureRemovesPartialOutput(t *testing.T) {
	runner := &fakeRunner{probeOutput: probeJSON(1280, 720, "30/1", "300"), failOnDecode: 1}
	tr, store := newTrimmer(t, runner)
	video := ingestFakeVideo(t, store)

	_, err := tr.Trim(context.Background(), video, 0, 2)
	var trimErr *entity.TrimError
	require.ErrorAs(t, err, &trimErr)
	assert.Contains(t, trimErr.Diagnostic, "Invalid data")

	entries, err := os.ReadDir(filepath.Dir(video.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTrimAndSampleWithRealFFmpeg(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg test in short mode")
	}
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found on PATH", bin)
		}
	}

	store, err := disk.NewStore(t.TempDir())
	require.NoError(t, err)

	src, err := store.Allocate(entity.MediaKindVideo, "lavfi", "mp4")
	require.NoError(t, err)
	gen := exec.Command("ffmpeg", "-y", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=duration=10:size=640x480:rate=30",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=10",
		"-pix_fmt", "yuv420p", "-c:a", "aac", "-shortest", src)
	out, err := gen.CombinedOutput()
	require.NoError(t, err, string(out))
	video, err := store.Adopt(src, entity.MediaKindVideo)
	require.NoError(t, err)

	runner := NewCommandRunner()
	prober := NewProber("ffprobe", runner)
	tr := NewTrimmer("ffmpeg", runner, prober, store, zap.NewNop())

	trimmed, err := tr.Trim(context.Background(), video, 0, 2)
	require.NoError(t, err)
	defer store.Remove(trimmed)

	m, err := prober.Metrics(context.Background(), trimmed)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Duration, 0.1)
	assert.FileExists(t, video.Path)

	sampler := NewSampler("ffmpeg", runner, prober, store, zap.NewNop())
	set, err := sampler.Sample(context.Background(), video, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{75, 105, 135, 165, 195}, set.FrameNumbers())
	require.NoError(t, set.Remove())
}
