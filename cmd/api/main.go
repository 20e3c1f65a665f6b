package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/adapters/cache"
	"github.com/setuhealth/setu/backend/internal/adapters/database"
	"github.com/setuhealth/setu/backend/internal/adapters/events"
	"github.com/setuhealth/setu/backend/internal/adapters/search"
	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/api/middleware"
	"github.com/setuhealth/setu/backend/internal/api/routes"
	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/consultation"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/openai"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/redis"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/typesense"
	"github.com/setuhealth/setu/backend/internal/infrastructure/notifications"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	"github.com/setuhealth/setu/backend/internal/intake"
	"github.com/setuhealth/setu/backend/pkg/config"
	"github.com/setuhealth/setu/backend/pkg/secrets"
)

func main() {
	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Deployment secrets are exported into the environment before config is read
	overlay, err := secrets.ApplyVaultSecrets(ctx, secrets.LoadVaultConfigFromEnv(""))
	if err != nil {
		log.Warn().Err(err).Str("path", overlay.Path).Msg("failed to load secrets from Vault")
	} else if overlay.Enabled {
		log.Info().
			Interface("exported", overlay.Exported).
			Interface("kept", overlay.Kept).
			Int("ignored", overlay.Ignored).
			Msg("secrets loaded from Vault")
	}
	if len(overlay.Missing) > 0 {
		log.Warn().Interface("missing", overlay.Missing).Msg("required secrets not set; using development defaults")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Initialize Redis client; the API works without caching and falls back to
	// an in-process event bus
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without cache")
		eventBus = events.NewMemoryEventBus()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	// Initialize Typesense client
	var searchRepo repositories.HospitalSearchRepository
	typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, hospital search falls back to the database")
	} else {
		if err := typesenseClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to init Typesense schema")
		}
		searchRepo = search.NewTypesenseAdapter(typesenseClient)
	}

	// Initialize adapters
	var hospitalRepo repositories.HospitalRepository = database.NewHospitalAdapter(pgClient)
	if cacheProvider != nil {
		hospitalRepo = database.NewCachedHospitalAdapter(hospitalRepo, cacheProvider)
		go func() {
			if err := services.NewCacheWarmingService(hospitalRepo).WarmCache(ctx); err != nil {
				log.Warn().Err(err).Msg("cache warming failed")
			}
		}()
	}
	patientRepo := database.NewPatientAdapter(pgClient)
	ambulanceRepo := database.NewAmbulanceAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)

	// Initialize the language model; every AI endpoint has a rule-based fallback
	var triageAI providers.TriageAIProvider
	if cfg.OpenAI.Configured() {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client")
		} else {
			triageAI = openaiClient
		}
	} else {
		log.Warn().Msg("OPENAI_API_KEY is not set; AI endpoints return fallback responses")
	}

	rules := services.DefaultSeverityRules()
	if cfg.Triage.RulesFile != "" {
		loaded, err := services.LoadSeverityRules(cfg.Triage.RulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Triage.RulesFile).Msg("failed to load severity rules")
		}
		rules = loaded
	}

	// Initialize services
	var alerter services.CriticalAlerter
	if cfg.WhatsApp.Enabled() {
		sender, err := notifications.NewWhatsAppCloudSender(&cfg.WhatsApp)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize WhatsApp sender; critical alerts disabled")
		} else {
			alerter = services.NewAlertService(sender, cfg.WhatsApp.AlertTo)
		}
	}

	triageService := services.NewTriageService(triageAI, rules, metrics)
	patientService := services.NewPatientService(patientRepo, alerter)
	hospitalService := services.NewHospitalService(hospitalRepo, searchRepo, eventBus)
	ambulanceService := services.NewAmbulanceService(ambulanceRepo, hospitalRepo, eventBus)
	authService := services.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	documentService := services.NewDocumentService(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, triageService)

	// Server-hosted consultations run the intake state machine for browser clients
	machine := intake.NewMachine(intake.Config{
		PromptDelay: cfg.Intake.PromptDelay,
		AutoListen:  cfg.Intake.AutoListen,
		Classify:    triageService.ClassifySeverity,
	})
	consultations := consultation.NewManager(ctx, machine,
		consultation.NewTriageGateway(triageService),
		consultation.NewPatientRegistry(patientService),
		cfg.Consultation)
	defer consultations.Close()

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	var responseCache handlers.ResponseCache
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
		responseCache = cacheMiddleware
	}

	// Set up router
	router := routes.NewRouter(routes.Handlers{
		Patient:      handlers.NewPatientHandler(patientService),
		Hospital:     handlers.NewHospitalHandler(hospitalService, responseCache),
		Ambulance:    handlers.NewAmbulanceHandler(ambulanceService),
		AI:           handlers.NewAIHandler(triageService),
		Document:     handlers.NewDocumentHandler(documentService, cfg.Uploads.MaxBytes),
		Auth:         handlers.NewAuthHandler(authService),
		Consultation: handlers.NewConsultationHandler(consultations),
		Tracking:     handlers.NewTrackingHandler(eventBus, ambulanceService, cfg.Server.AllowedOrigins),
	}, routes.Options{
		Authenticator:   authService,
		CacheMiddleware: cacheMiddleware,
		Metrics:         metrics,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		UploadDir:       documentService.Dir(),
	})

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // No timeout for SSE streaming
		IdleTimeout:       120 * time.Second,
		// streams end when ctx is cancelled on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", serverAddr).
			Bool("ai_configured", triageService.AIConfigured()).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close event bus
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	log.Info().Msg("server stopped")
}
