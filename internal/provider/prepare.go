package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"go.uber.org/zap"
)

// FramesMode samples count frames, redacts each in index order and sends them
// inline. A nil redactor skips redaction.
func FramesMode(sampler port.FrameSampler, redactor port.Redactor, count int, logger *zap.Logger) PrepareFunc {
	return func(ctx context.Context, video entity.MediaAsset, tr *Tracker) (Payload, func(), error) {
		set, err := sampler.Sample(ctx, video, count)
		if err != nil {
			return Payload{}, nil, err
		}
		cleanup := func() {
			if err := set.Remove(); err != nil && !errors.Is(err, entity.ErrFrameSetConsumed) {
				logger.Warn("failed to remove frames", zap.Error(err))
			}
		}

		frames, err := set.Frames()
		if err != nil {
			return Payload{}, cleanup, err
		}

		images := make([]port.InlineImage, 0, len(frames))
		redacted := 0
		for _, f := range frames {
			if redactor != nil {
				n, err := redactor.Redact(ctx, f.Asset)
				if err != nil {
					return Payload{}, cleanup, err
				}
				redacted += n
			}
			data, err := os.ReadFile(f.Asset.Path)
			if err != nil {
				return Payload{}, cleanup, &entity.ExtractionError{Msg: fmt.Sprintf("read frame %d", f.Index), Err: err}
			}
			images = append(images, port.InlineImage{MIMEType: f.Asset.MIMEType(), Data: data})
		}

		logger.Debug("frames prepared", zap.Int("frames", len(images)), zap.Int("faces_redacted", redacted))
		return Payload{Images: images, FrameCount: len(images)}, cleanup, nil
	}
}

type PollConfig struct {
	Interval time.Duration
	MaxPolls int
}

// UploadMode uploads the whole video and blocks until the remote copy is
// ACTIVE, polling at a fixed interval. The remote copy is always deleted.
func UploadMode(model port.VideoModel, poll PollConfig, logger *zap.Logger) PrepareFunc {
	return func(ctx context.Context, video entity.MediaAsset, tr *Tracker) (Payload, func(), error) {
		file, err := model.Upload(ctx, video.Path, video.MIMEType())
		if err != nil {
			return Payload{}, nil, tr.Fail(fmt.Errorf("upload %s: %w", video.Name(), err))
		}
		cleanup := func() {
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := model.Delete(dctx, file.Name); err != nil {
				logger.Warn("failed to delete remote file", zap.String("file", file.Name), zap.Error(err))
			}
		}
		tr.Advance(entity.StageSent)

		file, err = waitActive(ctx, model, file, poll, tr)
		if err != nil {
			return Payload{}, cleanup, err
		}
		return Payload{File: &file}, cleanup, nil
	}
}

func waitActive(ctx context.Context, model port.VideoModel, file port.RemoteFile, poll PollConfig, tr *Tracker) (port.RemoteFile, error) {
	for i := 0; ; i++ {
		switch file.State {
		case port.RemoteFileActive:
			tr.Advance(entity.StageActive)
			return file, nil
		case port.RemoteFileFailed:
			tr.Advance(entity.StageFailed)
			return file, tr.Fail(fmt.Errorf("remote processing of %s failed: %s", file.Name, file.FailureReason))
		}
		if i >= poll.MaxPolls {
			return file, tr.Fail(fmt.Errorf("%s not active after %d polls", file.Name, poll.MaxPolls))
		}

		select {
		case <-ctx.Done():
			return file, tr.Fail(ctx.Err())
		case <-time.After(poll.Interval):
		}

		next, err := model.Status(ctx, file.Name)
		if err != nil {
			return file, tr.Fail(fmt.Errorf("status of %s: %w", file.Name, err))
		}
		file = next
	}
}

// FramesInvoke calls a FrameModel with the prepared inline images.
func FramesInvoke(model port.FrameModel, modelID string) InvokeFunc {
	return func(ctx context.Context, system, prompt string, payload Payload) (string, error) {
		if len(payload.Images) == 0 {
			return "", errors.New("no frames to send")
		}
		return model.GenerateFromImages(ctx, modelID, system, prompt, payload.Images)
	}
}

// FileInvoke calls a VideoModel referencing the uploaded file.
func FileInvoke(model port.VideoModel, modelID string) InvokeFunc {
	return func(ctx context.Context, system, prompt string, payload Payload) (string, error) {
		if payload.File == nil {
			return "", errors.New("no uploaded file to reference")
		}
		return model.GenerateFromFile(ctx, modelID, system, prompt, *payload.File)
	}
}
