package provider

import (
	"context"
	"time"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/sport"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Provider analyzes a swing video with one remote vision model.
type Provider interface {
	Name() entity.ProviderName
	Analyze(ctx context.Context, video entity.MediaAsset, instruction sport.Instruction, notes entity.UserNotes) (*entity.AnalysisResult, error)
}

// Payload is the prepared request content: inline frames or a remote file.
type Payload struct {
	Images     []port.InlineImage
	File       *port.RemoteFile
	FrameCount int
}

// PrepareFunc turns the video into request content. A non-nil cleanup is
// always run by the pipeline, on success and on error.
type PrepareFunc func(ctx context.Context, video entity.MediaAsset, tr *Tracker) (Payload, func(), error)

// InvokeFunc makes the single remote model call and returns its raw text.
type InvokeFunc func(ctx context.Context, system, prompt string, payload Payload) (string, error)

type PipelineConfig struct {
	Name    entity.ProviderName
	Prepare PrepareFunc
	Invoke  InvokeFunc
	Breaker BreakerSettings
	OnStage StageFunc
	Logger  *zap.Logger
}

// Pipeline is the shared analyze skeleton. Concrete providers differ only in
// how they prepare content and invoke the model.
type Pipeline struct {
	name    entity.ProviderName
	prepare PrepareFunc
	invoke  InvokeFunc
	breaker *gobreaker.CircuitBreaker[string]
	onStage StageFunc
	logger  *zap.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		name:    cfg.Name,
		prepare: cfg.Prepare,
		invoke:  cfg.Invoke,
		breaker: newBreaker(string(cfg.Name), cfg.Breaker, logger),
		onStage: cfg.OnStage,
		logger:  logger.With(zap.String("provider", string(cfg.Name))),
	}
}

func (p *Pipeline) Name() entity.ProviderName { return p.name }

func (p *Pipeline) Analyze(ctx context.Context, video entity.MediaAsset, instruction sport.Instruction, notes entity.UserNotes) (*entity.AnalysisResult, error) {
	tr := newTracker(p.name, p.onStage)

	payload, cleanup, err := p.prepare(ctx, video, tr)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, tr.Fail(err)
	}
	if tr.Stage() == entity.StagePreparing {
		tr.Advance(entity.StageSent)
	}

	prompt := sport.UserPrompt(notes)
	start := time.Now()
	text, err := p.breaker.Execute(func() (string, error) {
		return p.invoke(ctx, instruction.SystemPrompt, prompt, payload)
	})
	if err != nil {
		tr.Advance(entity.StageFailed)
		p.logger.Warn("model invocation failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, &entity.ProviderError{Provider: p.name, Stage: entity.StageFailed, Err: err}
	}
	if tr.Stage() != entity.StageActive {
		tr.Advance(entity.StageActive)
	}

	data, raw, err := ParseObject(p.name, text)
	if err != nil {
		tr.Advance(entity.StageParseError)
		return nil, err
	}
	tr.Advance(entity.StageParsed)

	p.logger.Info("analysis parsed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("frames", payload.FrameCount),
	)
	return &entity.AnalysisResult{
		Provider:    p.name,
		Sport:       instruction.Sport,
		Data:        data,
		Raw:         raw,
		FrameCount:  payload.FrameCount,
		CompletedAt: time.Now().UTC(),
	}, nil
}
