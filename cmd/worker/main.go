package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	badgerledger "github.com/oskarjolofsson/GSA1.0/internal/infra/badger"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/config"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/disk"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/email"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/ffmpeg"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/gemini"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/metrics"
	miniostorage "github.com/oskarjolofsson/GSA1.0/internal/infra/minio"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/openai"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/postgres"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/privacy"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/rabbitmq"
	"github.com/oskarjolofsson/GSA1.0/internal/infra/tracing"
	"github.com/oskarjolofsson/GSA1.0/internal/provider"
	"github.com/oskarjolofsson/GSA1.0/internal/usecase"
	"github.com/oskarjolofsson/GSA1.0/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const serviceName = "gsa-analysis-worker"

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting " + serviceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.JaegerEndpoint,
		SampleRatio: cfg.TraceSampling,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	fatalOnErr(postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir), "run migrations")

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOVideoBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusRoutingKey)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Media pipeline
	media, err := disk.NewStore(cfg.IngestDir)
	fatalOnErr(err, "create ingest store")

	runner := ffmpeg.NewCommandRunner()
	prober := ffmpeg.NewProber(cfg.FFprobePath, runner)
	sampler := ffmpeg.NewSampler(cfg.FFmpegPath, runner, prober, media, log)
	trimmer := ffmpeg.NewTrimmer(cfg.FFmpegPath, runner, prober, media, log)

	// Providers
	registry, err := provider.NewCatalogRegistry(catalogDeps(ctx, cfg, sampler, log))
	fatalOnErr(err, "build provider registry")
	log.Info("providers registered", zap.Strings("providers", registry.Names()))

	// Credits
	ledger, closeLedger := buildLedger(cfg, pool)
	defer closeLedger()
	entitlements := postgres.NewEntitlementChecker(pool)

	gate := usecase.NewQualityGate(prober, usecase.QualityThresholds{
		MinWidth:    cfg.MinWidth,
		MinHeight:   cfg.MinHeight,
		MinDuration: cfg.MinDuration,
		MaxDuration: cfg.MaxDuration,
	})
	orchestrator := usecase.NewOrchestrator(trimmer, gate, registry, ledger, entitlements, media, log)

	// Use case
	repo := postgres.NewAnalysisJobRepository(pool)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewProcessAnalysisUseCase(
		repo, storage, media, orchestrator,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessAnalysisConfig{
			MaxRetries:   cfg.MaxRetries,
			SignedURLTTL: cfg.SignedURLTTL,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.NewHandler(
		metrics.ReadinessCheck{Name: "postgres", Check: pool.Ping},
		metrics.ReadinessCheck{Name: "minio", Check: storage.Ping},
	), log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL: cfg.RabbitMQURL,
		Topology: rabbitmq.Topology{
			Exchange:          cfg.RabbitMQExchange,
			RequestQueue:      cfg.RabbitMQRequestQueue,
			RequestRoutingKey: cfg.RabbitMQRequestRoutingKey,
			StatusQueue:       cfg.RabbitMQStatusQueue,
			StatusRoutingKey:  cfg.RabbitMQStatusRoutingKey,
			DLQ:               cfg.RabbitMQDLQ,
		},
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info(serviceName+" started, consuming messages", zap.Int("workers", cfg.WorkerCount))

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info(serviceName + " stopped")
}

// catalogDeps leaves a model client unset when its key is missing, so the
// registry only offers providers that can actually be called.
func catalogDeps(ctx context.Context, cfg *config.Config, sampler port.FrameSampler, log *zap.Logger) provider.CatalogDeps {
	deps := provider.CatalogDeps{
		Sampler:    sampler,
		FrameCount: cfg.FrameCount,
		Poll:       provider.PollConfig{Interval: cfg.PollInterval, MaxPolls: cfg.MaxPolls},
		Breaker: provider.BreakerSettings{
			FailureThreshold: cfg.BreakerFailureThreshold,
			OpenTimeout:      cfg.BreakerOpenTimeout,
		},
		OnStage: metrics.ObserveProviderStage,
		Logger:  log,
	}

	if cfg.RedactionEnabled {
		detector, err := privacy.NewPigoDetector(cfg.FaceCascadePath, cfg.FaceMinSize, cfg.FaceScoreCutoff)
		fatalOnErr(err, "load face cascade")
		deps.Redactor = privacy.NewRedactor(detector, log)
	} else {
		log.Warn("face redaction disabled, frames are sent unmodified")
	}

	if cfg.OpenAIAPIKey != "" {
		model, err := openai.NewFrameModel(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL})
		fatalOnErr(err, "create openai client")
		deps.FrameModel = model
	}
	if cfg.GeminiAPIKey != "" {
		model, err := gemini.NewVideoModel(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL})
		fatalOnErr(err, "create gemini client")
		deps.VideoModel = model
	}
	return deps
}

func buildLedger(cfg *config.Config, pool *pgxpool.Pool) (port.CreditLedger, func()) {
	if cfg.LedgerBackend == "badger" {
		db, err := badgerledger.Open(cfg.LedgerDir)
		fatalOnErr(err, "open badger ledger")
		return badgerledger.NewCreditLedger(db, cfg.StartingGrant), func() { _ = db.Close() }
	}
	return postgres.NewCreditLedger(pool, cfg.StartingGrant), func() {}
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
