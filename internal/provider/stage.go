package provider

import "github.com/oskarjolofsson/GSA1.0/internal/domain/entity"

// StageFunc observes every stage a provider invocation enters.
type StageFunc func(provider entity.ProviderName, stage entity.Stage)

// Tracker follows one invocation through
// PREPARING -> SENT -> ACTIVE|FAILED -> PARSED|PARSE_ERROR.
type Tracker struct {
	provider entity.ProviderName
	stage    entity.Stage
	observe  StageFunc
}

func newTracker(provider entity.ProviderName, observe StageFunc) *Tracker {
	t := &Tracker{provider: provider, observe: observe}
	t.Advance(entity.StagePreparing)
	return t
}

func (t *Tracker) Stage() entity.Stage { return t.stage }

func (t *Tracker) Advance(stage entity.Stage) {
	t.stage = stage
	if t.observe != nil {
		t.observe(t.provider, stage)
	}
}

// Fail wraps err as a ProviderError at the current stage. Errors already in
// the domain taxonomy pass through unchanged.
func (t *Tracker) Fail(err error) error {
	if err == nil {
		return nil
	}
	if entity.KindOf(err) != entity.ErrorKindInternal {
		return err
	}
	return &entity.ProviderError{Provider: t.provider, Stage: t.stage, Err: err}
}
