package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wealthdesk/advisor-ai-platform/cmd/mainconfig"
	"github.com/wealthdesk/advisor-ai-platform/internal/api/router"
	"github.com/wealthdesk/advisor-ai-platform/internal/booking"
	appconfig "github.com/wealthdesk/advisor-ai-platform/internal/config"
	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
	"github.com/wealthdesk/advisor-ai-platform/internal/observability/metrics"
	"github.com/wealthdesk/advisor-ai-platform/internal/scheduling"
	"github.com/wealthdesk/advisor-ai-platform/internal/webchat"
	"github.com/wealthdesk/advisor-ai-platform/pkg/logging"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if !envLoaded {
		logger.Debug("no .env file found, using environment variables")
	}
	logger.Info("starting advisor-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	store := buildSessionStore(cfg, logger)
	llm := buildLLMClient(cfg, logger)

	var classifier dialogue.Classifier
	registry := prometheus.NewRegistry()
	dialogueMetrics := metrics.NewDialogueMetrics(registry)
	rules := dialogue.NewRuleClassifier()
	if llm != nil {
		remote := dialogue.NewLLMClassifier(llm, cfg.BedrockModelID)
		classifier = dialogue.NewTieredClassifier(remote, rules, cfg.ClassifierConfidence, logger.Logger, dialogueMetrics)
	} else {
		classifier = rules
	}

	calendar := scheduling.NewCalendar(time.Local, nil)
	bookings := booking.NewService(calendar, nil)

	var transcripts *dialogue.TranscriptStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		transcripts = dialogue.NewTranscriptStore(db)
	}

	engine, err := dialogue.NewEngine(dialogue.EngineConfig{
		Store:              store,
		Classifier:         classifier,
		Topics:             dialogue.NewTopicResolver(llm, cfg.BedrockModelID),
		Slots:              calendar,
		Bookings:           bookings,
		Transcripts:        transcripts,
		Metrics:            dialogueMetrics,
		Logger:             logger.Logger,
		TimeZoneLabel:      cfg.TimeZoneLabel,
		OverrideConfidence: 0,
	})
	if err != nil {
		logger.Error("failed to build dialogue engine", "error", err)
		os.Exit(1)
	}

	service := dialogue.NewEngineService(engine)
	dialogueHandler := dialogue.NewHandler(service, logger)
	webchatHandler := webchat.NewHandler(service, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		DialogueHandler: dialogueHandler,
		WebchatHandler:  webchatHandler,
		WebchatToken:    cfg.WebchatToken,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildSessionStore(cfg *appconfig.Config, logger *logging.Logger) dialogue.SessionStore {
	if cfg.SessionStoreBackend != "redis" {
		logger.Info("using in-memory session store")
		return dialogue.NewInMemoryStore()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
	return dialogue.NewRedisStore(client, cfg.SessionTTL, otel.Tracer("advisor.cmd.api"))
}

func buildLLMClient(cfg *appconfig.Config, logger *logging.Logger) dialogue.LLMClient {
	var clients []dialogue.LLMClient

	switch cfg.LLMProvider {
	case "bedrock":
		clients = append(clients, buildBedrock(cfg, logger))
	case "gemini":
		clients = append(clients, buildGemini(cfg, logger))
	case "none", "":
		logger.Info("no LLM provider configured, using deterministic extraction only")
		return nil
	default:
		// "auto": Bedrock primary, Gemini fallback, whichever is configured.
		if cfg.BedrockModelID != "" {
			clients = append(clients, buildBedrock(cfg, logger))
		}
		if cfg.GeminiAPIKey != "" {
			clients = append(clients, buildGemini(cfg, logger))
		}
	}

	var usable []dialogue.LLMClient
	for _, c := range clients {
		if c != nil {
			usable = append(usable, c)
		}
	}
	switch len(usable) {
	case 0:
		return nil
	case 1:
		return usable[0]
	default:
		return dialogue.NewFallbackLLMClient(usable[0], usable[1], logger.Logger)
	}
}

func buildBedrock(cfg *appconfig.Config, logger *logging.Logger) dialogue.LLMClient {
	if cfg.BedrockModelID == "" {
		logger.Warn("bedrock provider selected but BEDROCK_MODEL_ID is empty")
		return nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil
	}
	return dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
}

func buildGemini(cfg *appconfig.Config, logger *logging.Logger) dialogue.LLMClient {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("gemini provider selected but GEMINI_API_KEY is empty")
		return nil
	}
	client, err := dialogue.NewGeminiLLMClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to init gemini client", "error", err)
		return nil
	}
	return client
}
