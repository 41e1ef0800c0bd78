package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Analyzer runs one analysis request. Orchestrator implements it.
type Analyzer interface {
	Execute(ctx context.Context, req entity.AnalysisRequest) (*entity.AnalysisResult, error)
	// Refund gives back the credit of a metered result that was never delivered.
	Refund(ctx context.Context, userID string) error
}

const completeWriteAttempts = 3

type ProcessAnalysisUseCase struct {
	repo         port.AnalysisJobRepository
	storage      port.ObjectStorage
	media        port.MediaStore
	analyzer     Analyzer
	publisher    port.StatusPublisher
	dlq          port.DLQPublisher
	notifier     port.FailureNotifier
	logger       *zap.Logger
	maxRetry     int
	signedURLTTL time.Duration
}

type ProcessAnalysisConfig struct {
	MaxRetries   int
	SignedURLTTL time.Duration
}

func NewProcessAnalysisUseCase(
	repo port.AnalysisJobRepository,
	storage port.ObjectStorage,
	media port.MediaStore,
	analyzer Analyzer,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessAnalysisConfig,
) *ProcessAnalysisUseCase {
	return &ProcessAnalysisUseCase{
		repo:         repo,
		storage:      storage,
		media:        media,
		analyzer:     analyzer,
		publisher:    publisher,
		dlq:          dlq,
		notifier:     notifier,
		logger:       logger,
		maxRetry:     cfg.MaxRetries,
		signedURLTTL: cfg.SignedURLTTL,
	}
}

// Execute handles one analysis.requested delivery. A returned error asks the
// consumer to requeue; permanent failures are handled here and return nil.
func (uc *ProcessAnalysisUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ProcessAnalysisUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.AnalysisRequestedMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.JobID == uuid.Nil || msg.UserID == "" || msg.VideoKey == "" {
		uc.logger.Error("message missing required fields", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: job_id, user_id and video_key are required")
		return nil
	}
	if msg.Sport == "" {
		msg.Sport = entity.SportGolf
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.String("job.provider", string(msg.Provider)),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewAnalysisJob(msg.UserID, msg.VideoKey, msg.Sport, msg.Provider, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, dropping redelivery")
		return nil
	}
	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, entity.ErrorKindInternal, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runAnalysis(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessAnalysisUseCase) runAnalysis(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	asset, err := uc.download(dlCtx, msg.VideoKey)
	spanDl.End()
	if err != nil {
		log.Error("failed to fetch video", zap.Error(err))
		if entity.IsClientError(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, entity.KindOf(err), err.Error(), log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, entity.KindOf(err), "download_video: "+err.Error(), log)
	}
	defer func() {
		if err := uc.media.Remove(asset); err != nil {
			log.Warn("failed to remove ingested video", zap.Error(err))
		}
	}()
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	result, err := uc.analyzer.Execute(ctx, entity.AnalysisRequest{
		UserID:    msg.UserID,
		Media:     asset,
		TimeRange: msg.TimeRange(),
		Sport:     msg.Sport,
		Provider:  msg.Provider,
		Notes:     msg.Notes,
	})
	if err != nil {
		log.Error("analysis failed", zap.Error(err), zap.String("error_kind", string(entity.KindOf(err))))
		if entity.IsRetryable(err) {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, entity.KindOf(err), err.Error(), log)
		}
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, entity.KindOf(err), err.Error(), log)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	job.MarkCompleted(body)
	if err := uc.saveCompleted(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		// The redelivery analyzes again and charges again, so this run's
		// credit goes back before requeueing.
		if result.Metered {
			if rerr := uc.analyzer.Refund(ctx, msg.UserID); rerr != nil {
				log.Error("failed to refund undelivered analysis", zap.Error(rerr))
			}
		}
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, true, log)

	log.Info("job completed successfully",
		zap.String("provider", string(result.Provider)),
		zap.Int("frame_count", result.FrameCount),
		zap.Bool("metered", result.Metered),
	)
	return nil
}

// saveCompleted persists a finished job. The result is already paid for,
// so the write outlives the delivery context and is retried briefly.
func (uc *ProcessAnalysisUseCase) saveCompleted(ctx context.Context, job *entity.AnalysisJob) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= completeWriteAttempts; attempt++ {
		if err = uc.repo.Update(wctx, job); err == nil {
			return nil
		}
		if attempt == completeWriteAttempts {
			break
		}
		select {
		case <-wctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return err
}

var errVideoNotFound = errors.New("video not found in storage")

// download streams the object into the local media store.
func (uc *ProcessAnalysisUseCase) download(ctx context.Context, key string) (entity.MediaAsset, error) {
	ok, err := uc.storage.Exists(ctx, key)
	if err != nil {
		return entity.MediaAsset{}, fmt.Errorf("stat object: %w", err)
	}
	if !ok {
		return entity.MediaAsset{}, entity.NewValidationError("video_key", "%s: %q", errVideoNotFound, key)
	}

	rc, err := uc.storage.Get(ctx, key)
	if err != nil {
		return entity.MediaAsset{}, fmt.Errorf("get object: %w", err)
	}
	defer rc.Close()

	return uc.media.Ingest(rc, path.Base(key), entity.MediaKindVideo)
}

func (uc *ProcessAnalysisUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	kind entity.ErrorKind,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(kind, errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, kind, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, false, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessAnalysisUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	kind entity.ErrorKind,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(kind, errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, string(kind)+": "+errMsg)

	uc.publishStatus(ctx, job, false, log)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job)
	}

	return nil
}

func (uc *ProcessAnalysisUseCase) publishStatus(ctx context.Context, job *entity.AnalysisJob, withURL bool, log *zap.Logger) {
	statusMsg := entity.AnalysisStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		Sport:        job.Sport,
		Provider:     job.Provider,
		Result:       job.Result,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	if withURL {
		url, err := uc.storage.SignedURL(ctx, job.VideoKey, uc.signedURLTTL)
		if err != nil {
			log.Warn("failed to sign video url", zap.Error(err))
		}
		statusMsg.VideoURL = url
	}

	if err := uc.publisher.PublishStatus(ctx, statusMsg); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
