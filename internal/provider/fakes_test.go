package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	dir  string
	err  error
	sets []*entity.FrameSet
}

func newFakeSampler(t *testing.T) *fakeSampler {
	return &fakeSampler{dir: t.TempDir()}
}

func (s *fakeSampler) Sample(_ context.Context, _ entity.MediaAsset, count int) (*entity.FrameSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	frames := make([]entity.Frame, count)
	for i := range frames {
		path := filepath.Join(s.dir, fmt.Sprintf("frame_%d.png", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("png-%d", i)), 0644); err != nil {
			return nil, err
		}
		frames[i] = entity.Frame{
			Index:       i,
			FrameNumber: 100 + i*10,
			Asset:       entity.MediaAsset{Path: path, Kind: entity.MediaKindImage, Extension: "png"},
		}
	}
	set := entity.NewFrameSet(frames)
	s.sets = append(s.sets, set)
	return set, nil
}

func (s *fakeSampler) remaining(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	return len(entries)
}

type fakeRedactor struct {
	order []string
	err   error
}

func (r *fakeRedactor) Redact(_ context.Context, frame entity.MediaAsset) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.order = append(r.order, filepath.Base(frame.Path))
	return 1, nil
}

type fakeFrameModel struct {
	text   string
	err    error
	calls  int
	images []port.InlineImage
	system string
	prompt string
}

func (m *fakeFrameModel) GenerateFromImages(_ context.Context, _ string, system, prompt string, images []port.InlineImage) (string, error) {
	m.calls++
	m.images = images
	m.system = system
	m.prompt = prompt
	return m.text, m.err
}

type fakeVideoModel struct {
	mu        sync.Mutex
	uploadErr error
	states    []port.RemoteFileState
	polls     int
	deleted   []string
	text      string
	genErr    error
	genCalls  int
}

func (m *fakeVideoModel) Upload(_ context.Context, path, mimeType string) (port.RemoteFile, error) {
	if m.uploadErr != nil {
		return port.RemoteFile{}, m.uploadErr
	}
	return port.RemoteFile{Name: "files/abc", URI: "https://example.test/files/abc", MIMEType: mimeType, State: port.RemoteFileProcessing}, nil
}

func (m *fakeVideoModel) Status(_ context.Context, name string) (port.RemoteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := port.RemoteFileProcessing
	if m.polls < len(m.states) {
		state = m.states[m.polls]
	}
	m.polls++
	f := port.RemoteFile{Name: name, URI: "https://example.test/" + name, State: state}
	if state == port.RemoteFileFailed {
		f.FailureReason = "unsupported codec"
	}
	return f, nil
}

func (m *fakeVideoModel) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *fakeVideoModel) GenerateFromFile(_ context.Context, _, _, _ string, file port.RemoteFile) (string, error) {
	m.genCalls++
	if file.State != port.RemoteFileActive {
		return "", errors.New("file not active")
	}
	return m.text, m.genErr
}

type stageLog struct {
	stages []entity.Stage
}

func (l *stageLog) observe(_ entity.ProviderName, s entity.Stage) {
	l.stages = append(l.stages, s)
}
