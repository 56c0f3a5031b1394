package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"prepmate/internal/config"
	"prepmate/internal/infra/scorer"
	"prepmate/internal/infra/telemetry"
	"prepmate/internal/observability/logging"
	"prepmate/internal/observability/metrics"
	"prepmate/internal/observability/slo"
	"prepmate/internal/resilience/breaker"
	"prepmate/internal/resilience/eventbuffer"
	"prepmate/internal/resilience/idempotency"
	"prepmate/internal/resilience/retry"
	scoreUC "prepmate/internal/usecase/score"
	pkgconfig "prepmate/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	resilienceConfig, err := config.LoadResilienceConfig()
	if err != nil {
		logger.Error("failed to load resilience configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("resilience configuration loaded",
		slog.Int("breaker_failure_threshold", resilienceConfig.Breaker.FailureThreshold),
		slog.Int("retry_total_budget", resilienceConfig.Retry.TotalBudget),
		slog.Duration("idempotency_ttl", resilienceConfig.Idempotency.TTL),
		slog.Int("buffer_max_size", resilienceConfig.Buffer.MaxSize))

	// Context canceled on SIGINT/SIGTERM drives the whole shutdown sequence.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brk := breaker.New(breaker.Config{
		Name:             "scoring-api",
		FailureThreshold: resilienceConfig.Breaker.FailureThreshold,
		SuccessThreshold: resilienceConfig.Breaker.SuccessThreshold,
		Timeout:          resilienceConfig.Breaker.Timeout,
		TimeWindow:       resilienceConfig.Breaker.TimeWindow,
		Metrics:          metrics.BreakerRecorder{},
	})

	store := idempotency.NewStore(idempotency.Config{
		Metrics: metrics.IdempotencyRecorder{},
	})

	executor := retry.NewExecutor(retry.Config{
		Name: "score-answer",
		Policy: retry.Policy{
			MaxAttempts: resilienceConfig.Retry.FullMaxAttempts,
			BaseDelay:   resilienceConfig.Retry.BaseDelay,
			MaxDelay:    resilienceConfig.Retry.MaxDelay,
			Jitter:      true,
		},
		Breaker: brk,
		Metrics: metrics.RetryRecorder{},
	})
	fast := retry.FastProbePolicy()
	fast.MaxAttempts = resilienceConfig.Retry.FastMaxAttempts
	full := retry.Policy{
		MaxAttempts: resilienceConfig.Retry.FullMaxAttempts,
		BaseDelay:   resilienceConfig.Retry.BaseDelay,
		MaxDelay:    resilienceConfig.Retry.MaxDelay,
		Jitter:      true,
	}
	retrier := retry.NewTwoPhase(executor, fast, full, resilienceConfig.Retry.TotalBudget)

	events := setupEventBuffers(logger, resilienceConfig.Buffer)

	sc := createScorer(logger)

	service := scoreUC.NewService(scoreUC.Config{
		Scorer:   sc,
		Store:    store,
		Breaker:  brk,
		Retrier:  retrier,
		Events:   events,
		DedupTTL: resilienceConfig.Idempotency.TTL,
	})
	service.StartEventPump(ctx)

	events.StartAll()

	startMetricsServer(ctx, logger, brk)

	c := startCronJobs(logger, store, events, brk, resilienceConfig.Idempotency.CleanupInterval)

	logger.Info("worker started",
		slog.String("provider", sc.Name()),
		slog.String("breaker", brk.Name()))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := events.ShutdownAll(shutdownCtx); err != nil {
		logger.Error("event buffer shutdown incomplete", slog.Any("error", err))
	}
	service.WaitEventPump()

	logger.Info("worker stopped")
}

// setupEventBuffers creates the telemetry buffer manager and installs the
// configured sink on each resilience event buffer. Sink preference: webhook
// when configured, then Sentry, then structured logs.
func setupEventBuffers(logger *slog.Logger, cfg config.BufferConfig) *eventbuffer.Manager {
	manager := eventbuffer.NewManager(eventbuffer.Config{
		MaxSize:       cfg.MaxSize,
		FlushInterval: cfg.FlushInterval,
		MaxWaitTime:   cfg.MaxWaitTime,
		MaxRetries:    cfg.MaxRetries,
		Metrics:       metrics.BufferRecorder{},
	})

	sink := createSink(logger)
	logger.Info("telemetry sink initialized", slog.String("sink", sink.Name()))

	for _, eventType := range []string{
		scoreUC.EventTypeBreakerStateChange,
		scoreUC.EventTypeRetryExhausted,
		scoreUC.EventTypeScoringFallback,
	} {
		manager.Buffer(eventType).SetFlushHandler(sink.Deliver)
	}

	return manager
}

// createSink selects the telemetry sink from environment configuration.
// A misconfigured webhook or Sentry DSN falls back to the log sink rather
// than aborting startup.
func createSink(logger *slog.Logger) telemetry.Sink {
	if pkgconfig.GetEnvBool("TELEMETRY_WEBHOOK_ENABLED", false) {
		webhookURL := os.Getenv("TELEMETRY_WEBHOOK_URL")
		sink, err := telemetry.NewWebhookSink(telemetry.WebhookConfig{
			Enabled: true,
			URL:     webhookURL,
			Source:  os.Getenv("TELEMETRY_SOURCE"),
		})
		if err != nil {
			logger.Warn("invalid telemetry webhook, falling back to log sink",
				slog.String("host", hostOf(webhookURL)),
				slog.Any("error", err))
		} else {
			return sink
		}
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		sink, err := telemetry.NewSentrySink(telemetry.SentryConfig{
			DSN:         dsn,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
		})
		if err != nil {
			logger.Warn("sentry sink initialization failed, falling back to log sink",
				slog.Any("error", err))
		} else {
			return sink
		}
	}

	return telemetry.NewLogSink(slog.Default())
}

// hostOf extracts the host of a URL for logging without leaking tokens
// embedded in the path or query.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Host
}

// createScorer creates a scorer based on the SCORER_PROVIDER environment
// variable. Missing API keys are fatal: a silently disabled scorer would
// hide misconfiguration until the first submission.
func createScorer(logger *slog.Logger) scorer.Scorer {
	scorerConfig, err := scorer.LoadConfig()
	if err != nil {
		logger.Error("failed to load scorer configuration", slog.Any("error", err))
		os.Exit(1)
	}

	switch scorerConfig.Provider {
	case scorer.ProviderClaude:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when SCORER_PROVIDER=claude")
			os.Exit(1)
		}
		logger.Info("Using Claude API for scoring", slog.String("provider", "claude"))
		return scorer.NewClaude(apiKey, *scorerConfig)
	case scorer.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when SCORER_PROVIDER=openai")
			os.Exit(1)
		}
		logger.Info("Using OpenAI API for scoring", slog.String("provider", "openai"))
		return scorer.NewOpenAI(apiKey, *scorerConfig)
	default:
		logger.Info("AI scoring disabled, using noop scorer")
		return scorer.NewNoOp()
	}
}

// startCronJobs schedules periodic maintenance: idempotency cleanup, a
// safety-net flush of all buffers, and SLO gauge refreshes.
func startCronJobs(
	logger *slog.Logger,
	store *idempotency.Store,
	events *eventbuffer.Manager,
	brk *breaker.Breaker,
	cleanupInterval time.Duration,
) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every "+cleanupInterval.String(), func() {
		removed := store.Cleanup()
		if removed > 0 {
			logger.Info("idempotency cleanup completed",
				slog.Int("removed", removed),
				slog.Int("remaining", store.Len()))
		}
	})
	if err != nil {
		logger.Error("failed to schedule idempotency cleanup", slog.Any("error", err))
		os.Exit(1)
	}

	// Auto-flush tickers already run per buffer; this sweep covers anything
	// they left behind and refreshes the delivery SLO gauge from aggregate
	// stats.
	_, err = c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		flushed := events.FlushAll(ctx)
		if flushed > 0 {
			logger.Info("scheduled flush completed", slog.Int("events", flushed))
		}

		updateSLOGauges(events, brk)
	})
	if err != nil {
		logger.Error("failed to schedule buffer flush", slog.Any("error", err))
		os.Exit(1)
	}

	c.Start()
	return c
}

// updateSLOGauges recomputes the SLO gauges from buffer and breaker stats.
func updateSLOGauges(events *eventbuffer.Manager, brk *breaker.Breaker) {
	var flushed, dropped, failed int64
	for _, stats := range events.Stats() {
		flushed += stats.FlushedEvents
		dropped += stats.DroppedEvents
		failed += stats.FailedEvents
	}
	if total := flushed + dropped + failed; total > 0 {
		slo.UpdateEventDelivery(float64(flushed) / float64(total))
	}

	openRatio := 0.0
	if brk.State() == breaker.StateOpen {
		openRatio = 1.0
	}
	slo.UpdateBreakerOpenRatio(openRatio)
}
