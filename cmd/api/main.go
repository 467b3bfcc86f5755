package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultancy_backend/internal/adapters"
	"consultancy_backend/internal/adapters/storage"
	"consultancy_backend/internal/applications"
	"consultancy_backend/internal/auth"
	"consultancy_backend/internal/automation"
	"consultancy_backend/internal/documents"
	"consultancy_backend/internal/email"
	"consultancy_backend/internal/events"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/internal/http/router"
	"consultancy_backend/internal/notification"
	"consultancy_backend/internal/scoring"
	"consultancy_backend/internal/students"
	"consultancy_backend/internal/tasks"
	"consultancy_backend/platform/ai/llm"
	"consultancy_backend/platform/ai/moonshot"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/db"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/phone"
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

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	locker, closeLocker := initRunLocker(cfg, log)
	defer closeLocker()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	storageSvc := initStorage(ctx, cfg, log)
	invoker := initInvoker(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	studentsModule, err := students.NewModule(pool, eventBus, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), val)
	mustModule(log, "students", err)
	studentChecker := adapters.NewStudentChecker(studentsModule.Repository())

	applicationsModule, err := applications.NewModule(pool, studentChecker, val)
	mustModule(log, "applications", err)

	documentsModule, err := documents.NewModule(pool, studentChecker, storageSvc, cfg.GetMinioBucketStudentDocuments(), val)
	mustModule(log, "documents", err)

	tasksModule, err := tasks.NewModule(pool, eventBus, val)
	mustModule(log, "tasks", err)

	signals := adapters.NewScoringSignalLoader(studentsModule.Repository(), applicationsModule.Repository())
	scoringModule := scoring.NewModule(pool, signals, cfg, eventBus, val, log)

	authModule, err := auth.NewModule(pool, cfg, sender, val, log)
	mustModule(log, "auth", err)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, authModule.Users(), studentChecker, log)
	notificationModule.RegisterHandlers(eventBus)

	automationModule, err := automation.NewModule(ctx, pool, automation.Deps{
		Snapshots: adapters.NewAutomationSnapshotLoader(
			studentsModule.Repository(),
			applicationsModule.Repository(),
			documentsModule.Repository(),
			scoringModule.Repository(),
			tasksModule.Service(),
		),
		Tasks:   adapters.NewAutomationTaskCreator(tasksModule.Service()),
		Mailer:  adapters.NewAutomationMailer(sender, authModule.Users()),
		Invoker: invoker,
		Locker:  locker,
	}, cfg, eventBus, val, log)
	mustModule(log, "automation", err)

	if seeded, err := automationModule.Service().SeedDefaults(ctx); err != nil {
		log.Warn("failed to seed default automation rules", "error", err)
	} else if seeded > 0 {
		log.Info("seeded default automation rules", "count", seeded)
	}

	if created, err := authModule.Service().EnsureBootstrapAdmin(ctx); err != nil {
		log.Warn("failed to create bootstrap admin", "error", err)
	} else if created {
		log.Info("bootstrap admin created", "email", cfg.GetBootstrapAdminEmail())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		MetricsEnabled: cfg.MetricsEnabled,
		Modules: []apphttp.Module{
			authModule,
			studentsModule,
			applicationsModule,
			documentsModule,
			tasksModule,
			scoringModule,
			automationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		// Let in-flight automation runs record their outcome.
		automationModule.Runner().Wait()
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func mustModule(log *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	log.Error("failed to initialize module", "module", name, "error", err)
	panic("failed to initialize " + name + " module: " + err.Error())
}

func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.StorageService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; document uploads disabled")
		return storage.Disabled{}
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketStudentDocuments()
	if err := withRetry(ctx, log, "ensure student-documents bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "studentDocumentsBucket", bucket)
	return storageSvc
}

func initInvoker(cfg config.LLMConfig, log *logger.Logger) *llm.Invoker {
	var m model.LLM
	if cfg.IsLLMEnabled() {
		m = moonshot.NewModel(moonshot.Config{
			APIKey:  cfg.GetMoonshotAPIKey(),
			BaseURL: cfg.GetMoonshotBaseURL(),
			Model:   cfg.GetMoonshotModel(),
		})
		log.Info("llm drafting enabled", "model", m.Name())
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; automation drafts use templates")
	}
	return llm.NewInvoker(m, 0)
}

func initRunLocker(cfg *config.Config, log *logger.Logger) (*redislock.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL not configured; the automation run-lock must be shared with the scheduler")
		panic("REDIS_URL is required for the automation run-lock")
	}

	client, err := redislock.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}

	return redislock.New(client, cfg.GetAutomationLockTTL()), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
