// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketing-workers/internal/common/agent"
	awsc "marketing-workers/internal/common/aws"
	"marketing-workers/internal/common/cache"
	"marketing-workers/internal/common/camunda"
	"marketing-workers/internal/common/config"
	"marketing-workers/internal/common/database"
	"marketing-workers/internal/common/gemini"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/observability"
	"marketing-workers/internal/repository"
	"marketing-workers/pkg/registry"

	// Competitor workers
	dc "marketing-workers/internal/workers/competitor/discover-competitors"
	mc "marketing-workers/internal/workers/competitor/manage-competitors"

	// Marketing insight workers
	ac "marketing-workers/internal/workers/marketing/analyze-competitors"
	si "marketing-workers/internal/workers/marketing/search-insights"

	// Content workers
	gpi "marketing-workers/internal/workers/content/generate-post-image"
	gsp "marketing-workers/internal/workers/content/generate-social-posts"
	msp "marketing-workers/internal/workers/content/manage-social-post"

	// Platform, viability and communication workers
	sn "marketing-workers/internal/workers/communication/send-notification"
	spc "marketing-workers/internal/workers/platform/save-platform-config"
	av "marketing-workers/internal/workers/viability/assess-viability"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// registration binds a task type to its handler.
type registration struct {
	taskType string
	handle   camunda.HandlerFunc
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing.JaegerEndpoint); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if err := esClient.EnsureInsightsIndex(ctx, cfg.Database.Elasticsearch.InsightsIndex); err != nil {
		// search-insights degrades to the cache without an index
		zapLog.Warn("insights index unavailable", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared stores and clients ---
	store := cache.NewStore(redis.Client, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.TTL)*time.Second, log)
	competitors := repository.NewCompetitorRepository(pg.DB)
	posts := repository.NewPostRepository(pg.DB)
	platformConfigs := repository.NewPlatformConfigRepository(pg.DB)
	insightsIndex := repository.NewInsightsIndex(esClient.Client, cfg.Database.Elasticsearch.InsightsIndex)

	agentClient := agent.New(agent.Config{
		AgentBaseURL:     cfg.APIs.Agent.BaseURL,
		AgentTimeout:     config.GetDuration(cfg.APIs.Agent.Timeout),
		AgentMaxRetries:  cfg.APIs.Agent.MaxRetries,
		SocialBaseURL:    cfg.APIs.Social.BaseURL,
		SocialTimeout:    config.GetDuration(cfg.APIs.Social.Timeout),
		SocialMaxRetries: cfg.APIs.Social.MaxRetries,
		ImageBaseURL:     cfg.APIs.ImageGeneration.BaseURL,
		ImageAPIKey:      cfg.APIs.ImageGeneration.APIKey,
		ImageTimeout:     config.GetDuration(cfg.APIs.ImageGeneration.Timeout),
	})

	var geminiClient *gemini.Client
	if cfg.APIs.GenAI.APIKey != "" {
		geminiClient, err = gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIs.GenAI.APIKey,
			Model:   cfg.APIs.GenAI.Model,
			Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
		})
		if err != nil {
			zapLog.Warn("gemini disabled", zap.Error(err))
			geminiClient = nil
		}
	}

	var (
		emailSender sn.EmailSender
		smsSender   sn.SMSSender
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := awsc.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Warn("aws notifications disabled", zap.Error(err))
		} else {
			if awsCfg.SES.Enabled {
				emailSender = awsc.NewSESClient(sdkCfg, awsCfg.SES.FromEmail)
			}
			if awsCfg.SNS.Enabled {
				smsSender = awsc.NewSNSClient(sdkCfg)
			}
		}
	}
	zapLog.Info("All external service clients initialized",
		zap.Bool("gemini", geminiClient != nil),
		zap.Bool("email", emailSender != nil),
		zap.Bool("sms", smsSender != nil),
	)

	// --- Build handlers ---
	dcCfg := dc.LoadConfig()
	dcCfg.Timeout = workerTimeout(cfg, dc.TaskType, dcCfg.Timeout)

	mcCfg := mc.LoadConfig()
	mcCfg.Timeout = workerTimeout(cfg, mc.TaskType, mcCfg.Timeout)

	acCfg := ac.LoadConfig()
	acCfg.Timeout = workerTimeout(cfg, ac.TaskType, acCfg.Timeout)
	if cfg.Analysis.InsightsWait > 0 {
		acCfg.InsightsWait = config.GetDuration(cfg.Analysis.InsightsWait)
	}

	siCfg := si.LoadConfig()
	siCfg.Timeout = workerTimeout(cfg, si.TaskType, siCfg.Timeout)

	gspCfg := gsp.LoadConfig()
	gspCfg.Timeout = workerTimeout(cfg, gsp.TaskType, gspCfg.Timeout)
	if len(cfg.Analysis.Platforms) > 0 {
		gspCfg.DefaultPlatforms = cfg.Analysis.Platforms
	}

	mspCfg := msp.LoadConfig()
	mspCfg.Timeout = workerTimeout(cfg, msp.TaskType, mspCfg.Timeout)

	gpiCfg := gpi.LoadConfig()
	gpiCfg.Timeout = workerTimeout(cfg, gpi.TaskType, gpiCfg.Timeout)
	if cfg.APIs.ImageGeneration.PlaceholderURL != "" {
		gpiCfg.PlaceholderURL = cfg.APIs.ImageGeneration.PlaceholderURL
	}

	spcCfg := spc.LoadConfig()
	spcCfg.Timeout = workerTimeout(cfg, spc.TaskType, spcCfg.Timeout)

	avCfg := av.LoadConfig()
	avCfg.Timeout = workerTimeout(cfg, av.TaskType, avCfg.Timeout)

	snCfg := sn.LoadConfig()
	snCfg.Timeout = workerTimeout(cfg, sn.TaskType, snCfg.Timeout)
	snCfg.EmailEnabled = emailSender != nil
	snCfg.SMSEnabled = smsSender != nil

	registrations := []registration{
		{dc.TaskType, dc.NewHandler(dcCfg, agentClient, store, competitors, log).Handle},
		{mc.TaskType, mc.NewHandler(mcCfg, store, competitors, log).Handle},
		{ac.TaskType, ac.NewHandler(acCfg, agentClient, store, competitors, insightsIndex, log).Handle},
		{si.TaskType, si.NewHandler(siCfg, insightsIndex, store, log).Handle},
		{gsp.TaskType, gsp.NewHandler(gspCfg, agentClient, geminiClient, store, posts, log).Handle},
		{msp.TaskType, msp.NewHandler(mspCfg, agentClient, store, posts, log).Handle},
		{gpi.TaskType, gpi.NewHandler(gpiCfg, agentClient, store, posts, log).Handle},
		{spc.TaskType, spc.NewHandler(spcCfg, agentClient, platformConfigs, log).Handle},
		{av.TaskType, av.NewHandler(avCfg, agentClient, geminiClient, store, log).Handle},
		{sn.TaskType, sn.NewHandler(snCfg, emailSender, smsSender, log).Handle},
	}

	checkRegistry(cfg, registrations, zapLog)

	// --- Start workers ---
	var workers []*camunda.CamundaWorker
	for _, r := range registrations {
		wcfg := config.GetWorkerConfig(cfg, r.taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", r.taskType))
			continue
		}
		maxJobs := wcfg.MaxJobsActive
		if maxJobs <= 0 {
			maxJobs = cfg.Camunda.MaxJobsActive
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      r.taskType,
			MaxJobsActive: maxJobs,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, r.handle, obs, log))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ready", "time": time.Now().Format(time.RFC3339)}
		code := http.StatusOK
		for name, check := range map[string]func() error{
			"zeebe":    func() error { return zeebe.HealthCheck(checkCtx) },
			"postgres": func() error { return pg.Ping(checkCtx) },
			"redis":    func() error { return redis.Ping(checkCtx) },
		} {
			if err := check(); err != nil {
				checks[name] = err.Error()
				checks["status"] = "not_ready"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// workerTimeout prefers the per-worker timeout from config.yaml.
func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if wcfg, ok := cfg.Workers[taskType]; ok && wcfg.Timeout > 0 {
		return config.GetDuration(wcfg.Timeout)
	}
	return fallback
}

// checkRegistry compares the registered task types with the activity
// registry. Strict mode turns any mismatch into a startup failure.
func checkRegistry(cfg *config.Config, registrations []registration, log *zap.Logger) {
	fail := log.Warn
	if cfg.App.StrictRegistry {
		fail = log.Fatal
	}

	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		fail("activity registry unavailable", zap.String("path", cfg.RegistryPath), zap.Error(err))
		return
	}
	if err := reg.Validate(); err != nil {
		fail("activity registry invalid", zap.Error(err))
		return
	}

	taskTypes := make([]string, 0, len(registrations))
	for _, r := range registrations {
		taskTypes = append(taskTypes, r.taskType)
	}
	if missing := reg.Missing(taskTypes...); len(missing) > 0 {
		fail("task types missing from activity registry", zap.Strings("taskTypes", missing))
		return
	}
	log.Info("activity registry loaded", zap.Int("activities", len(reg.Activities)))
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
