package provider

import (
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeFrames Mode = "frames"
	ModeUpload Mode = "upload"
)

type CatalogEntry struct {
	Name  entity.ProviderName
	Mode  Mode
	Model string
}

// Catalog lists every provider the service knows about.
var Catalog = []CatalogEntry{
	{Name: entity.ProviderGPT5, Mode: ModeFrames, Model: "gpt-5"},
	{Name: entity.ProviderGPT5Nano, Mode: ModeFrames, Model: "gpt-5-nano"},
	{Name: entity.ProviderGPT52, Mode: ModeFrames, Model: "gpt-5.2"},
	{Name: entity.ProviderGemini25Flash, Mode: ModeUpload, Model: "gemini-2.5-flash"},
	{Name: entity.ProviderGemini25FlashLite, Mode: ModeUpload, Model: "gemini-2.5-flash-lite"},
	{Name: entity.ProviderGemini25Pro, Mode: ModeUpload, Model: "gemini-2.5-pro"},
	{Name: entity.ProviderGemini3ProPreview, Mode: ModeUpload, Model: "gemini-3-pro-preview"},
}

type CatalogDeps struct {
	// FrameModel serves frames-mode entries; nil leaves them unregistered.
	FrameModel port.FrameModel
	// VideoModel serves upload-mode entries; nil leaves them unregistered.
	VideoModel port.VideoModel
	Sampler    port.FrameSampler
	Redactor   port.Redactor
	FrameCount int
	Poll       PollConfig
	Breaker    BreakerSettings
	OnStage    StageFunc
	Logger     *zap.Logger
}

// NewCatalogRegistry builds a pipeline for every catalog entry whose model
// client is configured.
func NewCatalogRegistry(deps CatalogDeps) (*Registry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var providers []Provider
	for _, e := range Catalog {
		cfg := PipelineConfig{Name: e.Name, Breaker: deps.Breaker, OnStage: deps.OnStage, Logger: logger}
		switch e.Mode {
		case ModeFrames:
			if deps.FrameModel == nil {
				continue
			}
			cfg.Prepare = FramesMode(deps.Sampler, deps.Redactor, deps.FrameCount, logger)
			cfg.Invoke = FramesInvoke(deps.FrameModel, e.Model)
		case ModeUpload:
			if deps.VideoModel == nil {
				continue
			}
			cfg.Prepare = UploadMode(deps.VideoModel, deps.Poll, logger)
			cfg.Invoke = FileInvoke(deps.VideoModel, e.Model)
		}
		providers = append(providers, NewPipeline(cfg))
	}
	if len(providers) == 0 {
		logger.Warn("no provider clients configured, every analysis will be rejected")
	}
	return NewRegistry(providers...)
}
