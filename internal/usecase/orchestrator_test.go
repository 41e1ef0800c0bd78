package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orchestratorFixture struct {
	source       entity.MediaAsset
	prober       *fakeProber
	trimmer      *fakeTrimmer
	store        *fakeMediaStore
	provider     *fakeProvider
	ledger       *memLedger
	entitlements *fakeEntitlements
	orch         *Orchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.mp4")
	require.NoError(t, os.WriteFile(sourcePath, []byte("video"), 0644))

	f := &orchestratorFixture{
		source:  entity.MediaAsset{Path: sourcePath, Kind: entity.MediaKindVideo, Extension: "mp4", SizeBytes: 5},
		trimmer: &fakeTrimmer{dir: dir},
		store:   &fakeMediaStore{dir: dir},
		provider: &fakeProvider{
			name:   entity.ProviderGPT5,
			result: &entity.AnalysisResult{Provider: entity.ProviderGPT5, Data: map[string]any{"quick_summary": "x"}, FrameCount: 15},
		},
		ledger:       newMemLedger(3),
		entitlements: &fakeEntitlements{unlimited: map[string]bool{}},
	}
	trimmedPath := filepath.Join(dir, "trimmed.mp4")
	f.prober = &fakeProber{byPath: map[string]entity.VideoMetrics{
		sourcePath:  entity.NewVideoMetrics(1920, 1080, 30, 300, "mp4"),
		trimmedPath: entity.NewVideoMetrics(1920, 1080, 30, 60, "mp4"),
	}}
	f.orch = NewOrchestrator(
		f.trimmer,
		NewQualityGate(f.prober, defaultThresholds),
		newRegistry(t, f.provider),
		f.ledger,
		f.entitlements,
		f.store,
		zap.NewNop(),
	)
	return f
}

func (f *orchestratorFixture) request() entity.AnalysisRequest {
	return entity.AnalysisRequest{
		UserID:   "user-1",
		Media:    f.source,
		Sport:    entity.SportGolf,
		Provider: entity.ProviderGPT5,
		Notes:    entity.UserNotes{"shape": "draw"},
	}
}

func (f *orchestratorFixture) balance(t *testing.T) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	return b
}

func TestExecuteSpendsOneCreditOnSuccess(t *testing.T) {
	f := newOrchestratorFixture(t)

	result, err := f.orch.Execute(context.Background(), f.request())
	require.NoError(t, err)

	assert.True(t, result.Metered)
	require.NotNil(t, result.CreditsRemaining)
	assert.Equal(t, int64(2), *result.CreditsRemaining)
	assert.Equal(t, int64(2), f.balance(t))
	assert.Equal(t, entity.SportGolf, result.Sport)
	assert.Equal(t, f.source.Path, f.provider.gotMedia.Path)
	assert.Equal(t, "draw", f.provider.gotNotes["shape"])
	assert.FileExists(t, f.source.Path)
}

func TestExecuteTrimsAndRemovesTrimmedCopy(t *testing.T) {
	f := newOrchestratorFixture(t)
	req := f.request()
	req.TimeRange = &entity.TimeRange{Start: 1, End: 3}

	_, err := f.orch.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.trimmer.calls)
	assert.Equal(t, "trimmed.mp4", filepath.Base(f.provider.gotMedia.Path))
	assert.NoFileExists(t, f.provider.gotMedia.Path)
	assert.FileExists(t, f.source.Path)
}

func TestExecuteTrimFailureTouchesNothing(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.trimmer.err = &entity.TrimError{Diagnostic: "moov atom not found", Err: errors.New("exit status 1")}
	req := f.request()
	req.TimeRange = &entity.TimeRange{Start: 1, End: 3}

	_, err := f.orch.Execute(context.Background(), req)
	assert.Equal(t, entity.ErrorKindTrim, entity.KindOf(err))
	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.ledger.spends)
	assert.FileExists(t, f.source.Path)
}

func TestExecuteQualityFailureSpendsNothing(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.prober.byPath[f.source.Path] = entity.NewVideoMetrics(320, 240, 30, 3000, "mp4")

	_, err := f.orch.Execute(context.Background(), f.request())
	var qErr *entity.QualityError
	require.ErrorAs(t, err, &qErr)
	assert.Len(t, qErr.Issues, 2)
	assert.True(t, entity.IsClientError(err))
	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.ledger.spends)
	assert.Equal(t, int64(3), f.balance(t))
}

func TestExecuteRejectsBadRequests(t *testing.T) {
	f := newOrchestratorFixture(t)

	req := f.request()
	req.TimeRange = &entity.TimeRange{Start: 3, End: 3}
	_, err := f.orch.Execute(context.Background(), req)
	assert.Equal(t, entity.ErrorKindValidation, entity.KindOf(err))
	assert.Zero(t, f.trimmer.calls)

	req = f.request()
	req.UserID = ""
	_, err = f.orch.Execute(context.Background(), req)
	assert.Equal(t, entity.ErrorKindValidation, entity.KindOf(err))
}

func TestExecuteUnknownKeysAreConfigurationErrors(t *testing.T) {
	f := newOrchestratorFixture(t)

	req := f.request()
	req.Provider = "gpt-2"
	_, err := f.orch.Execute(context.Background(), req)
	assert.Equal(t, entity.ErrorKindConfiguration, entity.KindOf(err))

	req = f.request()
	req.Sport = "curling"
	_, err = f.orch.Execute(context.Background(), req)
	assert.Equal(t, entity.ErrorKindConfiguration, entity.KindOf(err))

	assert.Zero(t, f.ledger.spends)
}

func TestExecuteInsufficientCreditNeverCallsProvider(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.ledger.balances["user-1"] = 0

	_, err := f.orch.Execute(context.Background(), f.request())
	var cErr *entity.InsufficientCreditError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, int64(0), cErr.Balance)
	assert.Zero(t, f.provider.calls)
}

func TestExecuteRefundsOnProviderFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind entity.ErrorKind
	}{
		{name: "provider", err: &entity.ProviderError{Provider: entity.ProviderGPT5, Stage: entity.StageFailed, Err: errors.New("503")}, kind: entity.ErrorKindProvider},
		{name: "parse", err: entity.NewParseError(entity.ProviderGPT5, "not json", errors.New("invalid character")), kind: entity.ErrorKindParse},
		{name: "extraction", err: &entity.ExtractionError{Msg: "decode frame 250"}, kind: entity.ErrorKindExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)
			f.provider.err = tt.err

			result, err := f.orch.Execute(context.Background(), f.request())
			assert.Nil(t, result)
			assert.Equal(t, tt.kind, entity.KindOf(err))
			assert.Equal(t, 1, f.ledger.spends)
			assert.Equal(t, 1, f.ledger.adds)
			assert.Equal(t, int64(3), f.balance(t))
		})
	}
}

func TestExecuteSkipsMeteringForUnlimitedUsers(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.entitlements.unlimited["user-1"] = true
	f.ledger.balances["user-1"] = 0

	result, err := f.orch.Execute(context.Background(), f.request())
	require.NoError(t, err)
	assert.False(t, result.Metered)
	assert.Nil(t, result.CreditsRemaining)
	assert.Zero(t, f.ledger.spends)
}

func TestExecuteEntitlementLookupFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.entitlements.err = errors.New("subscriptions unavailable")

	_, err := f.orch.Execute(context.Background(), f.request())
	assert.Equal(t, entity.ErrorKindInternal, entity.KindOf(err))
	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.ledger.spends)
}

func TestExecuteConcurrentRequestsNeverOverspend(t *testing.T) {
	f := newOrchestratorFixture(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, refused int
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Execute(context.Background(), f.request())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if entity.KindOf(err) == entity.ErrorKindInsufficientCredit {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 3, refused)
	assert.Equal(t, int64(0), f.balance(t))
}
