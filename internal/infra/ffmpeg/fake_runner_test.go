package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

type runCall struct {
	name string
	args []string
}

// fakeRunner answers ffprobe with a canned payload and emulates ffmpeg by
// writing a small file to the last argument.
type fakeRunner struct {
	mu          sync.Mutex
	calls       []runCall
	probeOutput string
	probeErr    error
	// failOnDecode fails the n-th ffmpeg call (1-based); 0 never fails.
	failOnDecode int
	emptyOutput  bool
	decodes      int
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{name: name, args: args})

	if strings.Contains(name, "ffprobe") {
		return []byte(f.probeOutput), f.probeErr
	}

	f.decodes++
	if f.failOnDecode > 0 && f.decodes == f.failOnDecode {
		return []byte("Invalid data found when processing input"), errFakeExit
	}
	out := args[len(args)-1]
	payload := []byte("encoded")
	if f.emptyOutput {
		payload = nil
	}
	if err := os.WriteFile(out, payload, 0644); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeRunner) ffmpegCalls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []runCall
	for _, c := range f.calls {
		if !strings.Contains(c.name, "ffprobe") {
			out = append(out, c)
		}
	}
	return out
}

type fakeExitError struct{}

func (fakeExitError) Error() string { return "exit status 1" }

var errFakeExit = fakeExitError{}

func probeJSON(width, height int, rate, packets string) string {
	return fmt.Sprintf(`{"streams":[{"codec_type":"video","width":%d,"height":%d,"r_frame_rate":%q,"avg_frame_rate":%q,"nb_read_packets":%q}],"format":{"duration":"10.000000"}}`,
		width, height, rate, rate, packets)
}
