package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/chatforge/backend/internal/application/billing"
	botapp "github.com/chatforge/backend/internal/application/bot"
	channelapp "github.com/chatforge/backend/internal/application/channel"
	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	eventapp "github.com/chatforge/backend/internal/application/event"
	featureflagapp "github.com/chatforge/backend/internal/application/featureflag"
	identityapp "github.com/chatforge/backend/internal/application/identity"
	integrationapp "github.com/chatforge/backend/internal/application/integration"
	knowledgeapp "github.com/chatforge/backend/internal/application/knowledge"
	reviewapp "github.com/chatforge/backend/internal/application/review"
	widgetapp "github.com/chatforge/backend/internal/application/widget"
	"github.com/chatforge/backend/internal/domain/ai"
	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/identity"
	"github.com/chatforge/backend/internal/infrastructure/aiprovider"
	"github.com/chatforge/backend/internal/infrastructure/auth"
	infraBilling "github.com/chatforge/backend/internal/infrastructure/billing"
	"github.com/chatforge/backend/internal/infrastructure/cache"
	"github.com/chatforge/backend/internal/infrastructure/channels"
	"github.com/chatforge/backend/internal/infrastructure/commerce"
	"github.com/chatforge/backend/internal/infrastructure/config"
	"github.com/chatforge/backend/internal/infrastructure/crawler"
	"github.com/chatforge/backend/internal/infrastructure/crm"
	"github.com/chatforge/backend/internal/infrastructure/crypto"
	"github.com/chatforge/backend/internal/infrastructure/event"
	"github.com/chatforge/backend/internal/infrastructure/extract"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/chatforge/backend/internal/infrastructure/persistence"
	"github.com/chatforge/backend/internal/infrastructure/scheduler"
	"github.com/chatforge/backend/internal/infrastructure/storage"
	"github.com/chatforge/backend/internal/infrastructure/telemetry"
	"github.com/chatforge/backend/internal/interfaces/http/handler"
	"github.com/chatforge/backend/internal/interfaces/http/middleware"
	"github.com/chatforge/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/chatforge/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			ChatForge Backend API
//	@version		1.0
//	@description	Multi-tenant AI chatbot platform backend service

//	@contact.name	ChatForge Support
//	@contact.url	https://github.com/chatforge/backend
//	@contact.email	support@chatforge.io

//	@license.name	MIT

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChatForge Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// OpenTelemetry metrics (no-op when disabled)
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Shared Redis client (history cache, flag cache, usage meters, token blacklist)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis not reachable at startup", zap.Error(err))
	}

	// Credential sealer for channel/commerce/CRM secrets at rest
	sealer, err := crypto.NewAESGCMSealerFromHex(cfg.Credentials.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize credential sealer", zap.Error(err))
	}

	// Initialize repositories
	botRepo := persistence.NewGormBotRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	chunkRepo := persistence.NewGormChunkRepository(db.DB)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	channelAccountRepo := persistence.NewGormChannelAccountRepository(db.DB, sealer)
	commerceAccountRepo := persistence.NewGormCommerceAccountRepository(db.DB, sealer)
	crmAccountRepo := persistence.NewGormCRMAccountRepository(db.DB, sealer)
	reviewRepo := persistence.NewGormReviewRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	planFeatureRepo := persistence.NewGormPlanFeatureRepository(db.DB)
	flagRepo := persistence.NewGormFeatureFlagRepository(db.DB)
	flagOverrideRepo := persistence.NewGormFlagOverrideRepository(db.DB)
	flagAuditLogRepo := persistence.NewGormFlagAuditLogRepository(db.DB)
	usageRecordRepo := persistence.NewUsageRecordRepository(db.DB)
	usageMeterRepo := persistence.NewUsageMeterRepository(db.DB, redisClient)
	usageQuotaRepo := persistence.NewUsageQuotaRepository(db.DB)
	usageHistoryRepo := persistence.NewUsageHistoryRepository(db.DB)
	usageReportLogRepo := persistence.NewUsageReportLogRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Inject outbox publisher into repositories whose aggregates raise events
	botRepo.SetOutboxEventSaver(outboxPublisher)
	conversationRepo.SetOutboxEventSaver(outboxPublisher)

	// AI provider registry; only providers with an API key are registered
	providers := ai.NewProviderRegistry()
	if cfg.AI.OpenAI.APIKey != "" {
		providerCfg := aiprovider.NewOpenAIConfig(cfg.AI.OpenAI.APIKey)
		if cfg.AI.OpenAI.BaseURL != "" {
			providerCfg.BaseURL = cfg.AI.OpenAI.BaseURL
		}
		if cfg.AI.OpenAI.EmbeddingModel != "" {
			providerCfg.EmbeddingModel = cfg.AI.OpenAI.EmbeddingModel
		}
		if cfg.AI.RequestTimeout > 0 {
			providerCfg.Timeout = cfg.AI.RequestTimeout
		}
		adapter, err := aiprovider.NewOpenAIAdapter(providerCfg)
		if err != nil {
			log.Fatal("Failed to create OpenAI adapter", zap.Error(err))
		}
		if err := providers.Register(adapter); err != nil {
			log.Fatal("Failed to register OpenAI provider", zap.Error(err))
		}
		log.Info("AI provider registered", zap.String("provider", "openai"))
	}
	if cfg.AI.Anthropic.APIKey != "" {
		providerCfg := aiprovider.NewAnthropicConfig(cfg.AI.Anthropic.APIKey)
		if cfg.AI.Anthropic.BaseURL != "" {
			providerCfg.BaseURL = cfg.AI.Anthropic.BaseURL
		}
		if cfg.AI.Anthropic.Version != "" {
			providerCfg.APIVersion = cfg.AI.Anthropic.Version
		}
		if cfg.AI.RequestTimeout > 0 {
			providerCfg.Timeout = cfg.AI.RequestTimeout
		}
		adapter, err := aiprovider.NewAnthropicAdapter(providerCfg)
		if err != nil {
			log.Fatal("Failed to create Anthropic adapter", zap.Error(err))
		}
		if err := providers.Register(adapter); err != nil {
			log.Fatal("Failed to register Anthropic provider", zap.Error(err))
		}
		log.Info("AI provider registered", zap.String("provider", "anthropic"))
	}
	if cfg.AI.Gemini.APIKey != "" {
		providerCfg := aiprovider.NewGeminiConfig(cfg.AI.Gemini.APIKey)
		if cfg.AI.Gemini.EmbeddingModel != "" {
			providerCfg.EmbeddingModel = cfg.AI.Gemini.EmbeddingModel
		}
		adapter, err := aiprovider.NewGeminiAdapter(providerCfg)
		if err != nil {
			log.Fatal("Failed to create Gemini adapter", zap.Error(err))
		}
		if err := providers.Register(adapter); err != nil {
			log.Fatal("Failed to register Gemini provider", zap.Error(err))
		}
		log.Info("AI provider registered", zap.String("provider", "gemini"))
	}

	// Channel connectors; account credentials are supplied per request,
	// so every connector is registered with its defaults
	connectors := channel.NewConnectorRegistry()
	telegramConn, err := channels.NewTelegramConnector(nil)
	if err != nil {
		log.Fatal("Failed to create Telegram connector", zap.Error(err))
	}
	whatsappConn, err := channels.NewWhatsAppConnector(nil)
	if err != nil {
		log.Fatal("Failed to create WhatsApp connector", zap.Error(err))
	}
	slackConn, err := channels.NewSlackConnector(nil)
	if err != nil {
		log.Fatal("Failed to create Slack connector", zap.Error(err))
	}
	discordConn, err := channels.NewDiscordConnector(nil)
	if err != nil {
		log.Fatal("Failed to create Discord connector", zap.Error(err))
	}
	for _, conn := range []channel.ChannelConnector{telegramConn, whatsappConn, slackConn, discordConn} {
		if err := connectors.Register(conn); err != nil {
			log.Fatal("Failed to register channel connector", zap.Error(err))
		}
	}

	// Commerce and CRM platform adapters
	shopifyAdapter, err := commerce.NewShopifyAdapter(nil)
	if err != nil {
		log.Fatal("Failed to create Shopify adapter", zap.Error(err))
	}
	wooAdapter, err := commerce.NewWooCommerceAdapter(nil)
	if err != nil {
		log.Fatal("Failed to create WooCommerce adapter", zap.Error(err))
	}
	commerceRegistry := commerce.NewRegistry(shopifyAdapter, wooAdapter)

	hubspotAdapter, err := crm.NewHubSpotAdapter(nil)
	if err != nil {
		log.Fatal("Failed to create HubSpot adapter", zap.Error(err))
	}
	crmRegistry := crm.NewRegistry(hubspotAdapter)

	// Object storage for uploaded knowledge documents
	var objectStorage knowledgeapp.ObjectStorageService
	if cfg.Storage.Bucket != "" && cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
		log.Info("Object storage configured", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		objectStorage = storage.NewStubObjectStorage()
		log.Warn("Object storage not configured, document files will not be persisted")
	}

	// Headless browser fetcher for URL ingestion
	var pageFetcher knowledgeapp.PageFetcher
	if cfg.Crawler.Enabled {
		chromeFetcher, err := crawler.NewChromedpFetcher(&crawler.ChromedpConfig{
			Timeout:     cfg.Crawler.Timeout,
			UserAgent:   cfg.Crawler.UserAgent,
			MaxBodySize: cfg.Crawler.MaxBodySize,
			Logger:      log,
		})
		if err != nil {
			log.Fatal("Failed to initialize crawler", zap.Error(err))
		}
		pageFetcher = chromeFetcher
		log.Info("Crawler enabled", zap.Duration("timeout", cfg.Crawler.Timeout))
	}
	textExtractor := extract.NewTextExtractor()

	// Redis-backed caches
	historyCache := cache.NewRedisHistoryCache(redisClient, cfg.Engine.HistoryCacheTTL)
	flagCache := cache.NewRedisFeatureFlagCacheWithClient(redisClient)
	flagInvalidator := cache.NewRedisFlagCacheInvalidatorWithClient(redisClient)

	// Auth infrastructure
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := auth.NewRedisTokenBlacklistWithClient(redisClient)

	// Stripe billing (optional; the platform degrades to plan defaults without it)
	stripeConfig := &infraBilling.StripeConfig{
		SecretKey:              cfg.Stripe.SecretKey,
		PublishableKey:         cfg.Stripe.PublishableKey,
		WebhookSecret:          cfg.Stripe.WebhookSecret,
		IsTestMode:             cfg.Stripe.IsTestMode,
		DefaultCurrency:        cfg.Stripe.DefaultCurrency,
		PriceIDs:               cfg.Stripe.PriceIDs,
		SuccessURL:             cfg.Stripe.SuccessURL,
		CancelURL:              cfg.Stripe.CancelURL,
		BillingPortalReturnURL: cfg.Stripe.BillingPortalReturnURL,
	}
	var stripeAdapter *infraBilling.StripeAdapter
	if cfg.Stripe.SecretKey != "" {
		stripeAdapter, err = infraBilling.NewStripeAdapter(stripeConfig, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
		}
		log.Info("Stripe billing enabled", zap.Bool("test_mode", cfg.Stripe.IsTestMode))
	} else {
		log.Warn("Stripe not configured, metered billing disabled")
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	quotaService := billingapp.NewQuotaService(
		usageQuotaRepo, usageRecordRepo, usageMeterRepo, tenantRepo,
		nil, log, billingapp.DefaultQuotaServiceConfig(),
	)
	botService := botapp.NewBotService(botRepo, quotaService, log)
	retriever := persistence.NewInProcessRetriever(chunkRepo, log)
	documentService := knowledgeapp.NewDocumentService(
		documentRepo, chunkRepo, objectStorage, quotaService, botService, log,
	)
	ingestionService := knowledgeapp.NewIngestionService(
		documentRepo, chunkRepo, botRepo, objectStorage, pageFetcher, textExtractor,
		providers, usageRecordRepo,
		knowledgeapp.IngestionConfig{
			EmbedBatchSize:       cfg.Ingestion.EmbedBatchSize,
			DefaultEmbedProvider: ai.ProviderName(cfg.Engine.EmbedFallback),
		},
		log,
	)
	commerceContextService := integrationapp.NewCommerceContextService(commerceAccountRepo, commerceRegistry, log)
	replyEngine := conversationapp.NewReplyEngine(
		botRepo, conversationRepo, messageRepo, documentRepo, usageRecordRepo,
		providers, retriever, historyCache, quotaService, commerceContextService,
		conversationapp.EngineConfig{
			HistoryWindow: cfg.Engine.HistoryWindow,
			EmbedFallback: ai.ProviderName(cfg.Engine.EmbedFallback),
		},
		log,
	)
	conversationService := conversationapp.NewConversationService(
		conversationRepo, messageRepo, replyEngine, historyCache, cfg.Engine.IdleWindow, log,
	)
	channelAccountService := channelapp.NewAccountService(channelAccountRepo, connectors, quotaService, botService, log)
	webhookService := channelapp.NewWebhookService(channelAccountRepo, connectors, conversationService, log)
	reviewService := reviewapp.NewReviewService(reviewRepo, log)
	widgetService := widgetapp.NewWidgetService(botRepo, conversationService, reviewService, jwtService, log)
	integrationAccountService := integrationapp.NewAccountService(
		commerceAccountRepo, crmAccountRepo, commerceRegistry, crmRegistry, log,
	)

	// Identity services
	authService := identityapp.NewAuthService(userRepo, jwtService, tokenBlacklist, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, tenantRepo, log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, log)

	// Feature flag services
	flagService := featureflagapp.NewFlagService(flagRepo, flagAuditLogRepo, outboxRepo, log)
	overrideService := featureflagapp.NewOverrideService(flagRepo, flagOverrideRepo, flagAuditLogRepo, outboxRepo, log)
	evaluationService := featureflagapp.NewCachedEvaluationService(flagRepo, flagOverrideRepo, flagCache, log)

	// Billing services
	stripeWebhookService := billingapp.NewStripeWebhookService(billingapp.StripeWebhookServiceConfig{
		Config:     stripeConfig,
		TenantRepo: tenantRepo,
		EventBus:   eventBus,
		Logger:     log,
	})
	subscriptionRepo := billingapp.NewGormSubscriptionRepository(db.DB, stripeAdapter, log)
	resourceCounter := billingapp.NewGormResourceCounter(db.DB)
	usageSnapshotService := billingapp.NewUsageSnapshotService(
		usageHistoryRepo, tenantRepo, resourceCounter, log,
		billingapp.DefaultUsageSnapshotServiceConfig(),
	)
	var usageReportingService *billingapp.UsageReportingService
	if stripeAdapter != nil {
		usageReportingService = billingapp.NewUsageReportingService(
			stripeAdapter, usageRecordRepo, usageReportLogRepo, subscriptionRepo,
			log, billingapp.DefaultUsageReportingConfig(),
		)
	}

	// Register event handlers for cross-context integration
	// Bot archived -> deactivate its channel accounts
	botArchivedHandler := channelapp.NewBotArchivedHandler(channelAccountService, log)
	eventBus.Subscribe(botArchivedHandler)

	// Visitor identified -> push lead to connected CRM
	leadSyncHandler := integrationapp.NewLeadSyncHandler(crmAccountRepo, crmRegistry, cfg.App.DashboardURL, log)
	eventBus.Subscribe(leadSyncHandler)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor drains the outbox_events table into the event bus
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
		}
		outboxProcessorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			outboxProcessorConfig.CleanupRetention = cfg.Event.CleanupRetention
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Trial sweep scheduler (expires overdue trials daily)
	if cfg.Scheduler.Enabled {
		maintenanceExecutor := scheduler.NewMaintenanceExecutor(tenantService, ingestionService, cfg.Ingestion.BatchSize, log)
		maintenanceScheduler := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, maintenanceExecutor, log)
		if err := maintenanceScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
		}
		defer func() {
			if err := maintenanceScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping maintenance scheduler", zap.Error(err))
			}
		}()

		cronConfig := scheduler.DefaultCronTriggerConfig()
		if cfg.Scheduler.TrialSweepCron != "" {
			cronConfig.CronSpec = cfg.Scheduler.TrialSweepCron
		}
		cronTrigger, err := scheduler.NewCronTrigger(cronConfig, maintenanceScheduler, log)
		if err != nil {
			log.Fatal("Failed to create cron trigger", zap.Error(err))
		}
		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			if err := cronTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
		}()
		log.Info("Trial sweep scheduler started", zap.String("cron", cronConfig.CronSpec))
	}

	// Background ingestion worker (chunk + embed pending documents)
	if cfg.Ingestion.Enabled {
		ingestionSchedulerConfig := scheduler.DefaultIngestionSchedulerConfig()
		ingestionSchedulerConfig.Enabled = true
		if cfg.Ingestion.PollInterval > 0 {
			ingestionSchedulerConfig.PollInterval = cfg.Ingestion.PollInterval
		}
		if cfg.Ingestion.BatchSize > 0 {
			ingestionSchedulerConfig.BatchSize = cfg.Ingestion.BatchSize
		}
		ingestionScheduler := scheduler.NewIngestionScheduler(ingestionService, log, ingestionSchedulerConfig)
		if err := ingestionScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start ingestion scheduler", zap.Error(err))
		}
		defer func() {
			if err := ingestionScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping ingestion scheduler", zap.Error(err))
			}
		}()
		log.Info("Ingestion scheduler started",
			zap.Duration("poll_interval", ingestionSchedulerConfig.PollInterval),
			zap.Int("batch_size", ingestionSchedulerConfig.BatchSize),
		)
	}

	// Metered usage reporting to Stripe
	if usageReportingService != nil {
		reportingScheduler := scheduler.NewUsageReportingScheduler(usageReportingService, log, scheduler.DefaultUsageReportingSchedulerConfig())
		if err := reportingScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start usage reporting scheduler", zap.Error(err))
		}
		defer func() {
			if err := reportingScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping usage reporting scheduler", zap.Error(err))
			}
		}()
		log.Info("Usage reporting scheduler started")
	}

	// Daily usage snapshots for the history endpoint
	snapshotScheduler := scheduler.NewUsageSnapshotScheduler(usageSnapshotService, log, scheduler.DefaultUsageSnapshotSchedulerConfig())
	if err := snapshotScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start usage snapshot scheduler", zap.Error(err))
	}
	defer func() {
		if err := snapshotScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping usage snapshot scheduler", zap.Error(err))
		}
	}()

	// Business metrics collection
	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:        meterProvider.Meter("chatforge.business"),
			Logger:       log,
			ChatProvider: telemetry.NewGormChatMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormTenantProvider(db.DB), 0)
			defer businessMetrics.Stop()
		}
	}

	// Per-tenant usage tracker feeding the billing pipeline
	usageTrackerConfig := middleware.DefaultUsageTrackerConfig()
	usageTrackerConfig.MeterProvider = meterProvider
	usageTrackerConfig.Logger = log
	usageTracker, err := middleware.NewUsageTracker(usageTrackerConfig, usageRecordRepo)
	if err != nil {
		log.Fatal("Failed to initialize usage tracker", zap.Error(err))
	}
	usageTracker.Start()
	defer func() {
		if err := usageTracker.Stop(context.Background()); err != nil {
			log.Error("Error stopping usage tracker", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	botHandler := handler.NewBotHandler(botService)
	channelHandler := handler.NewChannelHandler(channelAccountService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	documentHandler := handler.NewDocumentHandler(documentService)
	featureFlagHandler := handler.NewFeatureFlagHandler(flagService, evaluationService, overrideService)
	integrationHandler := handler.NewIntegrationHandler(integrationAccountService)
	planFeatureHandler := handler.NewPlanFeatureHandler(tenantRepo, planFeatureRepo)
	reviewHandler := handler.NewReviewHandler(reviewService)
	stripeWebhookHandler := handler.NewStripeWebhookHandler(stripeWebhookService)
	subscriptionHandler := handler.NewSubscriptionHandler(tenantRepo, planFeatureRepo, userRepo, botRepo, documentRepo, usageRecordRepo)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	systemHandler := handler.NewSystemHandler()
	tenantHandler := handler.NewTenantHandler(tenantService)
	usageHandler := handler.NewUsageHandler(tenantRepo, userRepo, botRepo, documentRepo, usageRecordRepo)
	userHandler := handler.NewUserHandler(userService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	widgetHandler := handler.NewWidgetHandler(widgetService)

	// SSE stream pushing flag changes to connected dashboards
	sseHandler := handler.NewFeatureFlagSSEHandler(flagInvalidator)
	if err := sseHandler.Start(); err != nil {
		log.Fatal("Failed to start feature flag SSE handler", zap.Error(err))
	}
	defer sseHandler.Stop()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Metrics - Record HTTP metrics
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// HTTP metrics
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// JWT authentication for dashboard API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/auth/register",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     cfg.Swagger.Enabled,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, jwtMiddleware),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	// Channel webhook endpoints (no authentication; connectors verify signatures)
	webhookGroup := engine.Group("/api/v1/webhooks")
	webhookGroup.GET("/:channel/:account_id", webhookHandler.Verify)
	webhookGroup.POST("/:channel/:account_id", webhookHandler.Receive)
	webhookGroup.POST("/stripe", stripeWebhookHandler.HandleStripeWebhook)

	// Public widget endpoints with their own CORS policy and rate limits
	widgetCORS := middleware.CORSConfig{
		AllowOrigins:  cfg.Widget.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	widgetLimiter := middleware.NewRateLimiter(cfg.HTTP.WidgetRateLimitRequests, cfg.HTTP.WidgetRateLimitWindow)
	widgetGroup := engine.Group("/api/v1/widget")
	widgetGroup.Use(middleware.CORSWithConfig(widgetCORS))
	widgetGroup.Use(middleware.RateLimitByKey(widgetLimiter, func(c *gin.Context) string {
		if key := c.Param("widget_key"); key != "" {
			return key
		}
		return c.ClientIP()
	}))
	widgetGroup.GET("/:widget_key/config", widgetHandler.GetConfig)
	widgetGroup.POST("/:widget_key/session", widgetHandler.StartSession)
	widgetSession := widgetGroup.Group("")
	widgetSession.Use(middleware.WidgetAuthMiddleware(jwtService))
	widgetSession.POST("/messages", widgetHandler.SendMessage)
	widgetSession.POST("/reviews", widgetHandler.SubmitReview)

	// Public approved reviews for the widget rating screen
	engine.GET("/api/v1/public/bots/:bot_id/reviews", reviewHandler.ListPublic)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtMiddleware)
	r.Use(middleware.TrackAPIUsage(usageTracker))

	// Auth routes (login/refresh/register are public via JWT skip paths)
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authRoutes.Use(middleware.RateLimit(authLimiter))
	}
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.RefreshToken)
	authRoutes.POST("/register", tenantHandler.Register)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.GET("/me", authHandler.GetCurrentUser)
	authRoutes.PUT("/password", authHandler.ChangePassword)

	// Bot domain (bots, their documents and review stats)
	botRoutes := router.NewDomainGroup("bots", "/bots")
	botRoutes.POST("", middleware.TrackBotCreation(usageTracker), botHandler.Create)
	botRoutes.GET("", botHandler.List)
	botRoutes.GET("/stats", botHandler.GetStats)
	botRoutes.GET("/:bot_id", botHandler.GetByID)
	botRoutes.PUT("/:bot_id", botHandler.Update)
	botRoutes.DELETE("/:bot_id", botHandler.Delete)
	botRoutes.PUT("/:bot_id/model-settings", botHandler.UpdateModelSettings)
	botRoutes.PUT("/:bot_id/widget-settings", botHandler.UpdateWidgetSettings)
	botRoutes.PUT("/:bot_id/retrieval", botHandler.SetRetrieval)
	botRoutes.POST("/:bot_id/publish", botHandler.Publish)
	botRoutes.POST("/:bot_id/unpublish", botHandler.Unpublish)
	botRoutes.POST("/:bot_id/archive", botHandler.Archive)
	botRoutes.POST("/:bot_id/rotate-widget-key", botHandler.RotateWidgetKey)
	// Knowledge ingestion entry points
	botRoutes.POST("/:bot_id/documents/upload", middleware.TrackDocumentUpload(usageTracker), documentHandler.Upload)
	botRoutes.POST("/:bot_id/documents/url", documentHandler.AddURL)
	botRoutes.POST("/:bot_id/documents/text", documentHandler.AddText)
	// Review aggregates for the bot dashboard
	botRoutes.GET("/:bot_id/reviews/stats", reviewHandler.Stats)

	// Knowledge document management
	documentRoutes := router.NewDomainGroup("documents", "/documents")
	documentRoutes.GET("", documentHandler.List)
	documentRoutes.GET("/:id", documentHandler.GetByID)
	documentRoutes.DELETE("/:id", documentHandler.Delete)
	documentRoutes.POST("/:id/rename", documentHandler.Rename)
	documentRoutes.POST("/:id/reprocess", documentHandler.Reprocess)
	documentRoutes.GET("/:id/download-url", documentHandler.GetDownloadURL)

	// Channel accounts
	channelRoutes := router.NewDomainGroup("channels", "/channels")
	channelRoutes.POST("", middleware.TrackChannelConnection(usageTracker), channelHandler.Create)
	channelRoutes.GET("", channelHandler.List)
	channelRoutes.GET("/:id", channelHandler.Get)
	channelRoutes.DELETE("/:id", channelHandler.Delete)
	channelRoutes.POST("/:id/rename", channelHandler.Rename)
	channelRoutes.PUT("/:id/credentials", channelHandler.UpdateCredentials)
	channelRoutes.POST("/:id/activate", channelHandler.Activate)
	channelRoutes.POST("/:id/deactivate", channelHandler.Deactivate)

	// Conversations (dashboard inbox)
	conversationRoutes := router.NewDomainGroup("conversations", "/conversations")
	conversationRoutes.GET("", conversationHandler.List)
	conversationRoutes.GET("/:id", conversationHandler.Get)
	conversationRoutes.GET("/:id/messages", conversationHandler.GetTranscript)
	conversationRoutes.POST("/:id/hand-off", conversationHandler.HandOff)
	conversationRoutes.POST("/:id/close", conversationHandler.Close)
	conversationRoutes.POST("/:id/reopen", conversationHandler.Reopen)

	// Review moderation
	reviewRoutes := router.NewDomainGroup("reviews", "/reviews")
	reviewRoutes.GET("", reviewHandler.List)
	reviewRoutes.GET("/:id", reviewHandler.Get)
	reviewRoutes.DELETE("/:id", reviewHandler.Delete)
	reviewRoutes.POST("/:id/approve", reviewHandler.Approve)
	reviewRoutes.POST("/:id/reject", reviewHandler.Reject)

	// Commerce and CRM integrations
	integrationRoutes := router.NewDomainGroup("integrations", "/integrations")
	integrationRoutes.POST("/commerce", integrationHandler.ConnectCommerce)
	integrationRoutes.GET("/commerce", integrationHandler.ListCommerce)
	integrationRoutes.GET("/commerce/:id", integrationHandler.GetCommerce)
	integrationRoutes.DELETE("/commerce/:id", integrationHandler.DisconnectCommerce)
	integrationRoutes.PUT("/commerce/:id/credentials", integrationHandler.UpdateCommerceCredentials)
	integrationRoutes.POST("/commerce/:id/activate", integrationHandler.ActivateCommerce)
	integrationRoutes.POST("/commerce/:id/deactivate", integrationHandler.DeactivateCommerce)
	integrationRoutes.POST("/crm", integrationHandler.ConnectCRM)
	integrationRoutes.GET("/crm", integrationHandler.ListCRM)
	integrationRoutes.GET("/crm/:id", integrationHandler.GetCRM)
	integrationRoutes.DELETE("/crm/:id", integrationHandler.DisconnectCRM)
	integrationRoutes.PUT("/crm/:id/credentials", integrationHandler.UpdateCRMCredentials)
	integrationRoutes.POST("/crm/:id/activate", integrationHandler.ActivateCRM)
	integrationRoutes.POST("/crm/:id/deactivate", integrationHandler.DeactivateCRM)

	// User management
	userRoutes := router.NewDomainGroup("users", "/users")
	userRoutes.POST("", userHandler.Create)
	userRoutes.GET("", userHandler.List)
	userRoutes.GET("/stats/count", userHandler.Count)
	userRoutes.GET("/:id", userHandler.GetByID)
	userRoutes.PUT("/:id", userHandler.Update)
	userRoutes.PUT("/:id/role", userHandler.SetRole)
	userRoutes.DELETE("/:id", userHandler.Delete)
	userRoutes.POST("/:id/activate", userHandler.Activate)
	userRoutes.POST("/:id/deactivate", userHandler.Deactivate)
	userRoutes.POST("/:id/lock", userHandler.Lock)
	userRoutes.POST("/:id/unlock", userHandler.Unlock)
	userRoutes.POST("/:id/reset-password", userHandler.ResetPassword)
	userRoutes.POST("/:id/force-logout", authHandler.ForceLogout)

	// Tenant administration
	identityRoutes := router.NewDomainGroup("identity", "/identity")
	identityRoutes.POST("/tenants", tenantHandler.Create)
	identityRoutes.GET("/tenants", tenantHandler.List)
	identityRoutes.GET("/tenants/stats", tenantHandler.GetStats)
	identityRoutes.GET("/tenants/stats/count", tenantHandler.Count)
	identityRoutes.GET("/tenants/:id", tenantHandler.GetByID)
	identityRoutes.GET("/tenants/code/:code", tenantHandler.GetByCode)
	identityRoutes.PUT("/tenants/:id", tenantHandler.Update)
	identityRoutes.PUT("/tenants/:id/config", tenantHandler.UpdateConfig)
	identityRoutes.PUT("/tenants/:id/plan", tenantHandler.SetPlan)
	identityRoutes.DELETE("/tenants/:id", tenantHandler.Delete)
	identityRoutes.POST("/tenants/:id/convert-trial", tenantHandler.ConvertTrial)
	identityRoutes.POST("/tenants/:id/activate", tenantHandler.Activate)
	identityRoutes.POST("/tenants/:id/deactivate", tenantHandler.Deactivate)
	identityRoutes.POST("/tenants/:id/suspend", tenantHandler.Suspend)

	// Usage, quota and subscription views for the current tenant
	billingRoutes := router.NewDomainGroup("billing", "")
	billingRoutes.GET("/tenants/current/usage", usageHandler.GetCurrentUsage)
	billingRoutes.GET("/usage/history", usageHandler.GetUsageHistory)
	billingRoutes.GET("/quotas", usageHandler.GetQuotas)
	billingRoutes.GET("/features", planFeatureHandler.GetCurrentTenantFeatures)
	billingRoutes.GET("/billing/subscription/current", subscriptionHandler.GetCurrentSubscription)

	// Platform administration (plan catalogs, per-tenant usage)
	adminRoutes := router.NewDomainGroup("admin", "/admin")
	adminRoutes.Use(middleware.RequireRole(identity.UserRoleAdmin))
	adminRoutes.GET("/plans", planFeatureHandler.ListPlans)
	adminRoutes.GET("/plans/:plan/features", planFeatureHandler.GetPlanFeatures)
	adminRoutes.PUT("/plans/:plan/features", planFeatureHandler.UpdatePlanFeatures)
	adminRoutes.GET("/tenants/:id/usage", usageHandler.GetTenantUsageByAdmin)

	// Feature flags
	featureFlagRoutes := router.NewDomainGroup("feature-flags", "/feature-flags")
	featureFlagRoutes.GET("", featureFlagHandler.ListFlags)
	featureFlagRoutes.POST("", featureFlagHandler.CreateFlag)
	featureFlagRoutes.GET("/stream", sseHandler.Stream)
	featureFlagRoutes.POST("/evaluate-batch", featureFlagHandler.BatchEvaluate)
	featureFlagRoutes.POST("/client-config", featureFlagHandler.GetClientConfig)
	featureFlagRoutes.GET("/:key", featureFlagHandler.GetFlag)
	featureFlagRoutes.PUT("/:key", featureFlagHandler.UpdateFlag)
	featureFlagRoutes.DELETE("/:key", featureFlagHandler.ArchiveFlag)
	featureFlagRoutes.POST("/:key/enable", featureFlagHandler.EnableFlag)
	featureFlagRoutes.POST("/:key/disable", featureFlagHandler.DisableFlag)
	featureFlagRoutes.POST("/:key/evaluate", featureFlagHandler.EvaluateFlag)
	featureFlagRoutes.GET("/:key/overrides", featureFlagHandler.ListOverrides)
	featureFlagRoutes.POST("/:key/overrides", featureFlagHandler.CreateOverride)
	featureFlagRoutes.DELETE("/:key/overrides/:id", featureFlagHandler.DeleteOverride)
	featureFlagRoutes.GET("/:key/audit-logs", featureFlagHandler.GetAuditLogs)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Outbox operations are owner-only: they expose raw event payload
	// metadata and can requeue side effects.
	outboxRoutes := systemRoutes.Group("outbox", "/outbox")
	outboxRoutes.Use(middleware.RequireRole(identity.UserRoleOwner))
	outboxRoutes.GET("/stats", outboxHandler.GetStats)
	outboxRoutes.GET("/dead", outboxHandler.ListDeadLetters)
	outboxRoutes.POST("/dead/retry", outboxHandler.RetryAllDeadLetters)
	outboxRoutes.POST("/dead/:entry_id/retry", outboxHandler.RetryDeadLetter)

	// Register all domain groups
	r.Register(authRoutes).
		Register(botRoutes).
		Register(documentRoutes).
		Register(channelRoutes).
		Register(conversationRoutes).
		Register(reviewRoutes).
		Register(integrationRoutes).
		Register(userRoutes).
		Register(identityRoutes).
		Register(billingRoutes).
		Register(adminRoutes).
		Register(featureFlagRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
