package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"consultancy_backend/internal/adapters"
	appsrepo "consultancy_backend/internal/applications/repository"
	authadapter "consultancy_backend/internal/auth/adapter"
	authrepo "consultancy_backend/internal/auth/repository"
	"consultancy_backend/internal/automation"
	docsrepo "consultancy_backend/internal/documents/repository"
	"consultancy_backend/internal/email"
	"consultancy_backend/internal/events"
	"consultancy_backend/internal/notification"
	"consultancy_backend/internal/scheduler"
	scoringrepo "consultancy_backend/internal/scoring/repository"
	studentsrepo "consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/tasks"
	"consultancy_backend/platform/ai/llm"
	"consultancy_backend/platform/ai/moonshot"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/db"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/redislock"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/adk/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	redisClient, err := redislock.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	val := validator.New()

	// Worker-side automation wiring (no HTTP handlers required).
	studentRepo := studentsrepo.New(pool)
	studentChecker := adapters.NewStudentChecker(studentRepo)
	users := authadapter.NewUserProviderAdapter(authrepo.New(pool))

	tasksModule, err := tasks.NewModule(pool, eventBus, val)
	if err != nil {
		log.Error("failed to initialize tasks module", "error", err)
		panic("failed to initialize tasks module: " + err.Error())
	}

	notificationModule := notification.New(sender, users, studentChecker, log)
	notificationModule.RegisterHandlers(eventBus)

	automationModule, err := automation.NewModule(ctx, pool, automation.Deps{
		Snapshots: adapters.NewAutomationSnapshotLoader(
			studentRepo,
			appsrepo.New(pool),
			docsrepo.New(pool),
			scoringrepo.New(pool),
			tasksModule.Service(),
		),
		Tasks:   adapters.NewAutomationTaskCreator(tasksModule.Service()),
		Mailer:  adapters.NewAutomationMailer(sender, users),
		Invoker: initInvoker(cfg),
		Locker:  redislock.New(redisClient, cfg.GetAutomationLockTTL()),
	}, cfg, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize automation module", "error", err)
		panic("failed to initialize automation module: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewAutomationDispatcher(client, cfg.GetAutomationInterval(), log)
	go dispatcher.Run(ctx)

	cleanupInterval := getDurationEnv("AUTOMATION_RUN_CLEANUP_INTERVAL", time.Hour)
	retention := time.Duration(getPositiveIntEnv("AUTOMATION_RUN_RETENTION_DAYS", 30)) * 24 * time.Hour
	runCleanup := scheduler.NewAutomationRunCleanup(automationModule.Repository(), log, cleanupInterval, retention)
	go runCleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, automationModule.Runner(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func initInvoker(cfg config.LLMConfig) *llm.Invoker {
	var m model.LLM
	if cfg.IsLLMEnabled() {
		m = moonshot.NewModel(moonshot.Config{
			APIKey:  cfg.GetMoonshotAPIKey(),
			BaseURL: cfg.GetMoonshotBaseURL(),
			Model:   cfg.GetMoonshotModel(),
		})
	}
	return llm.NewInvoker(m, 0)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
