package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/api"
	assistantapi "github.com/jacfrist/student-support-assistant/internal/api/assistant"
	chatapi "github.com/jacfrist/student-support-assistant/internal/api/chat"
	"github.com/jacfrist/student-support-assistant/internal/config"
	ingestsync "github.com/jacfrist/student-support-assistant/internal/ingest/sync"
	"github.com/jacfrist/student-support-assistant/internal/ingest/watch"
	"github.com/jacfrist/student-support-assistant/internal/integration/ai"
	"github.com/jacfrist/student-support-assistant/internal/integration/knowledge"
	"github.com/jacfrist/student-support-assistant/internal/integration/notify"
	"github.com/jacfrist/student-support-assistant/internal/pkg/validator"
	"github.com/jacfrist/student-support-assistant/internal/relevance"
	"github.com/jacfrist/student-support-assistant/internal/repository"
	assistantuc "github.com/jacfrist/student-support-assistant/internal/usecase/assistant"
	chatuc "github.com/jacfrist/student-support-assistant/internal/usecase/chat"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	assistantRepo := repository.NewAssistantPostgres(db)
	documentRepo := repository.NewDocumentPostgres(db)
	conversationRepo := repository.NewConversationPostgres(db)
	logger.Info("Repositories initialized")

	// Initialize connectors
	notifyConnector := notify.NewConnector(cfg.NotifyConnectorCfg, logger)

	// Initialize external service connectors (with mock support)
	var aiConnector chatuc.AIConnector
	var knowledgeConnector chatuc.KnowledgeConnector

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		aiConnector = ai.NewMockConnector(logger)
		knowledgeConnector = knowledge.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		aiConnector = ai.NewConnector(cfg.AIConnectorCfg, logger)
		knowledgeConnector = knowledge.NewConnector(cfg.KnowledgeConnectorCfg, documentRepo, logger)
	}

	// Initialize validators
	requestValidator := validator.NewValidator()
	logger.Info("Validators initialized")

	// Initialize ingestion pipeline
	syncer := ingestsync.NewSyncer(documentRepo, logger)
	watchManager := watch.NewManager(syncer, documentRepo, assistantRepo, notifyConnector, logger)
	selector := relevance.NewSelector(nil)
	logger.Info("Ingestion pipeline initialized")

	// Initialize use cases
	assistantUC := assistantuc.NewUsecase(
		assistantRepo,
		documentRepo,
		syncer,
		watchManager,
		requestValidator,
		cfg.ChatCfg.CacheTTL,
		logger,
	)

	chatUC := chatuc.NewUsecase(
		assistantUC,
		documentRepo,
		conversationRepo,
		selector,
		aiConnector,
		knowledgeConnector,
		cfg.ChatCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	// Resume folder monitoring for assistants registered before this start
	if err := resumeMonitoring(ctx, assistantRepo, watchManager, logger); err != nil {
		logger.Warn("Failed to resume folder monitoring", zap.Error(err))
	}

	// Setup API handlers
	assistantHandler := assistantapi.NewHandler(assistantUC, requestValidator)
	chatHandler := chatapi.NewHandler(chatUC, assistantUC, requestValidator)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(assistantHandler, chatHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:  server,
		db:      db,
		watcher: watchManager,
		logger:  logger,
	}, nil
}

// resumeMonitoring restarts fsnotify watches for every active assistant.
// A missing folder is logged by the watch manager and skipped.
func resumeMonitoring(
	ctx context.Context,
	assistants repository.AssistantRepository,
	watcher *watch.Manager,
	logger *zap.Logger,
) error {
	active, err := assistants.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, a := range active {
		if err := watcher.StartMonitoring(a); err != nil {
			logger.Warn("Failed to start monitoring",
				zap.String("assistant_id", a.ID),
				zap.String("folder_path", a.FolderPath),
				zap.Error(err),
			)
		}
	}

	logger.Info("Folder monitoring resumed", zap.Int("assistant_count", len(active)))
	return nil
}
