package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/sport"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/metrics"
	"github.com/oskarjolofsson/GSA1.0/internal/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const creditsPerAnalysis int64 = 1

type ProviderResolver interface {
	Get(name entity.ProviderName) (provider.Provider, error)
}

// Orchestrator runs one analysis request end to end:
// trim, quality gate, resolve, reserve credit, analyze, refund on failure.
type Orchestrator struct {
	trimmer      port.Trimmer
	gate         *QualityGate
	providers    ProviderResolver
	ledger       port.CreditLedger
	entitlements port.EntitlementChecker
	store        port.MediaStore
	logger       *zap.Logger
}

func NewOrchestrator(
	trimmer port.Trimmer,
	gate *QualityGate,
	providers ProviderResolver,
	ledger port.CreditLedger,
	entitlements port.EntitlementChecker,
	store port.MediaStore,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		trimmer:      trimmer,
		gate:         gate,
		providers:    providers,
		ledger:       ledger,
		entitlements: entitlements,
		store:        store,
		logger:       logger,
	}
}

// Execute never spends a credit on a failed analysis. The caller keeps
// ownership of req.Media; a trimmed copy made here is removed before return.
func (o *Orchestrator) Execute(ctx context.Context, req entity.AnalysisRequest) (result *entity.AnalysisResult, err error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "Orchestrator.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.user_id", req.UserID),
		attribute.String("analysis.provider", string(req.Provider)),
		attribute.String("analysis.sport", string(req.Sport)),
	)
	log := o.logger.With(zap.String("user_id", req.UserID), zap.String("provider", string(req.Provider)))

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(entity.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.AnalysesTotal.WithLabelValues(string(req.Provider), outcome).Inc()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	media := req.Media
	if req.TimeRange != nil {
		err := o.stage(ctx, "trim", func(ctx context.Context) error {
			trimmed, err := o.trimmer.Trim(ctx, req.Media, req.TimeRange.Start, req.TimeRange.End)
			if err != nil {
				return err
			}
			media = trimmed
			return nil
		})
		if err != nil {
			return nil, err
		}
		defer func() {
			if rmErr := o.store.Remove(media); rmErr != nil {
				log.Warn("failed to remove trimmed video", zap.String("path", media.Path), zap.Error(rmErr))
			}
		}()
	}

	err = o.stage(ctx, "quality_gate", func(ctx context.Context) error {
		report, err := o.gate.Evaluate(ctx, media)
		if err != nil {
			return err
		}
		if !report.Valid {
			return &entity.QualityError{Issues: report.Issues}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	instruction, err := sport.Lookup(req.Sport)
	if err != nil {
		return nil, err
	}
	p, err := o.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	metered, remaining, err := o.reserve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	err = o.stage(ctx, "analyze", func(ctx context.Context) error {
		result, err = p.Analyze(ctx, media, instruction, req.Notes)
		return err
	})
	if err != nil {
		if metered {
			o.refund(ctx, req.UserID, log)
		}
		return nil, err
	}

	result.Metered = metered
	if metered {
		result.CreditsRemaining = &remaining
	}
	metrics.FramesSampledTotal.Add(float64(result.FrameCount))

	log.Info("analysis completed",
		zap.Bool("metered", metered),
		zap.Int("frames", result.FrameCount),
	)
	return result, nil
}

// reserve takes one credit before the provider call unless the user has an
// unlimited entitlement.
func (o *Orchestrator) reserve(ctx context.Context, userID string) (metered bool, remaining int64, err error) {
	err = o.stage(ctx, "reserve_credit", func(ctx context.Context) error {
		if o.entitlements != nil {
			unlimited, err := o.entitlements.HasUnlimitedEntitlement(ctx, userID)
			if err != nil {
				return fmt.Errorf("check entitlement: %w", err)
			}
			if unlimited {
				metrics.CreditOperationsTotal.WithLabelValues("unmetered").Inc()
				return nil
			}
		}

		res, err := o.ledger.Spend(ctx, userID, creditsPerAnalysis)
		if err != nil {
			return fmt.Errorf("spend credit: %w", err)
		}
		if !res.OK {
			metrics.CreditOperationsTotal.WithLabelValues("refused").Inc()
			return &entity.InsufficientCreditError{UserID: userID, Balance: res.Remaining}
		}
		metrics.CreditOperationsTotal.WithLabelValues("reserved").Inc()
		metered, remaining = true, res.Remaining
		return nil
	})
	return metered, remaining, err
}

func (o *Orchestrator) refund(ctx context.Context, userID string, log *zap.Logger) {
	if err := o.Refund(ctx, userID); err != nil {
		log.Error("failed to refund reserved credit", zap.Error(err))
	}
}

// Refund returns the credit taken for one metered analysis. It runs on a
// detached context so a cancelled request still gets its credit back.
func (o *Orchestrator) Refund(ctx context.Context, userID string) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	balance, err := o.ledger.Add(rctx, userID, creditsPerAnalysis)
	if err != nil {
		return fmt.Errorf("refund credit: %w", err)
	}
	metrics.CreditOperationsTotal.WithLabelValues("refunded").Inc()
	o.logger.Info("reserved credit refunded", zap.String("user_id", userID), zap.Int64("balance", balance))
	return nil
}

func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
