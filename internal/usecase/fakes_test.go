package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/sport"
	"github.com/oskarjolofsson/GSA1.0/internal/provider"
)

type fakeProber struct {
	byPath map[string]entity.VideoMetrics
	err    error
}

func (p *fakeProber) Metrics(_ context.Context, asset entity.MediaAsset) (entity.VideoMetrics, error) {
	if p.err != nil {
		return entity.VideoMetrics{}, p.err
	}
	return p.byPath[asset.Path], nil
}

type fakeTrimmer struct {
	dir   string
	err   error
	calls int
}

func (t *fakeTrimmer) Trim(_ context.Context, asset entity.MediaAsset, start, end float64) (entity.MediaAsset, error) {
	t.calls++
	if t.err != nil {
		return entity.MediaAsset{}, t.err
	}
	path := filepath.Join(t.dir, "trimmed.mp4")
	if err := os.WriteFile(path, []byte("trimmed"), 0644); err != nil {
		return entity.MediaAsset{}, err
	}
	return entity.MediaAsset{Path: path, Kind: entity.MediaKindVideo, Extension: "mp4", SizeBytes: 7}, nil
}

type fakeMediaStore struct {
	mu      sync.Mutex
	dir     string
	removed []string
	err     error
}

func (s *fakeMediaStore) Ingest(r io.Reader, filename string, kind entity.MediaKind) (entity.MediaAsset, error) {
	if s.err != nil {
		return entity.MediaAsset{}, s.err
	}
	if !entity.ExtensionAllowed(kind, filepath.Ext(filename)) {
		return entity.MediaAsset{}, entity.NewValidationError("filename", "%q not allowed", filename)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return entity.MediaAsset{}, err
	}
	path := filepath.Join(s.dir, "ingested_"+filename)
	if err := os.WriteFile(path, b, 0644); err != nil {
		return entity.MediaAsset{}, err
	}
	return entity.MediaAsset{Path: path, Kind: kind, Extension: entity.NormalizeExtension(filepath.Ext(filename)), SizeBytes: int64(len(b))}, nil
}

func (s *fakeMediaStore) Remove(asset entity.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, asset.Path)
	return os.Remove(asset.Path)
}

type fakeProvider struct {
	mu       sync.Mutex
	name     entity.ProviderName
	result   *entity.AnalysisResult
	err      error
	calls    int
	gotMedia entity.MediaAsset
	gotNotes entity.UserNotes
}

func (p *fakeProvider) Name() entity.ProviderName { return p.name }

func (p *fakeProvider) Analyze(_ context.Context, video entity.MediaAsset, in sport.Instruction, notes entity.UserNotes) (*entity.AnalysisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.gotMedia = video
	p.gotNotes = notes
	if p.err != nil {
		return nil, p.err
	}
	r := *p.result
	r.Sport = in.Sport
	return &r, nil
}

func newRegistry(t *testing.T, providers ...provider.Provider) *provider.Registry {
	t.Helper()
	r, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	grant    int64
	spends   int
	adds     int
	spendErr error
}

func newMemLedger(grant int64) *memLedger {
	return &memLedger{balances: map[string]int64{}, grant: grant}
}

func (l *memLedger) get(user string) int64 {
	if b, ok := l.balances[user]; ok {
		return b
	}
	l.balances[user] = l.grant
	return l.grant
}

func (l *memLedger) Spend(_ context.Context, user string, amount int64) (entity.SpendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spendErr != nil {
		return entity.SpendResult{}, l.spendErr
	}
	l.spends++
	b := l.get(user)
	if b < amount {
		return entity.SpendResult{OK: false, Remaining: b, Reason: entity.SpendReasonInsufficient}, nil
	}
	l.balances[user] = b - amount
	return entity.SpendResult{OK: true, Remaining: b - amount, Reason: entity.SpendReasonOK}, nil
}

func (l *memLedger) Add(_ context.Context, user string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adds++
	l.balances[user] = l.get(user) + amount
	return l.balances[user], nil
}

func (l *memLedger) Balance(_ context.Context, user string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(user), nil
}

type fakeEntitlements struct {
	unlimited map[string]bool
	err       error
}

func (e *fakeEntitlements) HasUnlimitedEntitlement(_ context.Context, user string) (bool, error) {
	return e.unlimited[user], e.err
}

type fakeObjectStorage struct {
	objects   map[string][]byte
	existsErr error
}

func (s *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *fakeObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeObjectStorage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://storage.test/" + key + "?ttl=" + ttl.String(), nil
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.AnalysisJob
	// failCompleted rejects this many COMPLETED writes before accepting one
	failCompleted int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[uuid.UUID]entity.AnalysisJob{}}
}

func (r *memJobRepo) Create(_ context.Context, job *entity.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobRepo) Update(_ context.Context, job *entity.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.Status == entity.JobStatusCompleted && r.failCompleted > 0 {
		r.failCompleted--
		return errors.New("db blip")
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &j, nil
}

func (r *memJobRepo) ListByUser(_ context.Context, userID string, _ int) ([]*entity.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AnalysisJob
	for _, j := range r.jobs {
		if j.UserID == userID {
			j := j
			out = append(out, &j)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []entity.AnalysisStatusMessage
	dlq      [][]byte
	reasons  []string
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg entity.AnalysisStatusMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *recordingPublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dlq = append(p.dlq, msg)
	p.reasons = append(p.reasons, reason)
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.AnalysisJob) error {
	n.sent = append(n.sent, userEmail+"/"+job.ID.String())
	return nil
}
