package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/config"
	"github.com/windfall/lingo_service/internal/handler/http"
	"github.com/windfall/lingo_service/internal/handler/ws"
	"github.com/windfall/lingo_service/internal/logger"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/scheduler"
	"github.com/windfall/lingo_service/internal/server"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Msg("Starting lingo_service")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc := cfg.Location()

	// Initialize Postgres client
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	postgresClient, err := client.NewPostgresClient(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Postgres client")
	}
	log.Info().Msg("Postgres client initialized")

	// Initialize Redis client
	var redisClient *client.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client")
		} else {
			log.Info().Msg("Redis client initialized")
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, speaking replies and cross-instance notifications disabled")
	}

	// Chat and transcription providers, in fallback order
	var (
		chatProviders []service.ChatProvider
		transcribers  []service.Transcriber
		openaiClient  *client.OpenAIClient
	)
	if cfg.GroqKey != "" {
		groq := client.NewGroqClient(cfg.GroqKey, cfg.GroqBaseURL).
			WithModel(cfg.GroqChatModel).
			WithWhisperModel(cfg.GroqWhisperModel)
		chatProviders = append(chatProviders, groq)
		transcribers = append(transcribers, groq)
		log.Info().Msg("Groq client initialized")
	}
	if cfg.OpenAIKey != "" {
		openaiClient = client.NewOpenAIClient(cfg.OpenAIKey).
			WithModel(cfg.OpenAIChatModel).
			WithTTSModel(cfg.OpenAITTSModel)
		chatProviders = append(chatProviders, openaiClient)
		transcribers = append(transcribers, openaiClient)
		log.Info().Msg("OpenAI client initialized")
	}
	if cfg.GeminiKey != "" {
		gemini, err := client.NewGeminiClient(ctx, cfg.GeminiKey)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			chatProviders = append(chatProviders, gemini.WithModel(cfg.GeminiModel))
			log.Info().Msg("Gemini client initialized")
		}
	}
	if len(chatProviders) == 0 {
		log.Warn().Msg("No AI provider configured, AI endpoints will fail")
	}

	// Azure AI Speech: pronunciation assessment and the preferred TTS voice
	var (
		assessor      service.PronunciationAssessor
		ttsProviders  []tts.Provider
		speechEnabled = cfg.AzureAISpeechKey != "" && cfg.AzureServiceRegion != ""
	)
	if speechEnabled {
		azure := client.NewAzureSpeechClient(cfg.AzureAISpeechKey, cfg.AzureServiceRegion)
		assessor = azure
		ttsProviders = append(ttsProviders, tts.NewAzureProvider(azure))
		log.Info().Msg("Azure Speech client initialized")
	} else {
		log.Warn().Msg("Azure Speech not configured, pronunciation assessment disabled")
	}
	if openaiClient != nil {
		ttsProviders = append(ttsProviders, tts.NewOpenAIProvider(openaiClient, cfg.OpenAITTSVoice))
	}

	// Object storage for generated audio
	var store tts.Store
	switch cfg.StorageProvider {
	case "gcs":
		if cfg.GCSBucket != "" {
			gcs, err := client.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.StoragePublicURL)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize GCS storage")
			} else {
				defer gcs.Close()
				store = gcs
				log.Info().Str("bucket", cfg.GCSBucket).Msg("GCS storage initialized")
			}
		}
	default:
		if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" && cfg.S3Endpoint != "" {
			s3, err := client.NewS3Storage(ctx,
				cfg.S3AccessKeyID,
				cfg.S3SecretAccessKey,
				cfg.S3Endpoint,
				cfg.S3Region,
				cfg.S3Bucket,
				cfg.StoragePublicURL,
			)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize S3 storage")
			} else {
				store = s3
				log.Info().Str("bucket", cfg.S3Bucket).Msg("S3 storage initialized")
			}
		}
	}

	var audio service.AudioPublisher
	if store != nil {
		var cache tts.Cache
		if redisClient != nil {
			cache = redisClient
		}
		audio = tts.NewPublisher(tts.NewSynthesizer(log, ttsProviders...), store, cache, log)
	} else {
		log.Warn().Msg("Object storage not configured, audio generation disabled")
	}

	var accounts service.AccountDeleter
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		accounts = client.NewSupabaseAdminClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
	} else {
		log.Warn().Msg("Supabase admin API not configured, auth users are kept on account deletion")
	}

	// Initialize repositories
	lessonRepo := repository.NewPostgresLessonRepository(postgresClient)
	bookmarkRepo := repository.NewPostgresBookmarkRepository(postgresClient)
	historyRepo := repository.NewPostgresHistoryRepository(postgresClient)
	listenLaterRepo := repository.NewPostgresListenLaterRepository(postgresClient)
	playlistRepo := repository.NewPostgresPlaylistRepository(postgresClient)
	feedbackRepo := repository.NewPostgresFeedbackRepository(postgresClient)
	notificationRepo := repository.NewPostgresNotificationRepository(postgresClient)
	deviceRepo := repository.NewPostgresDeviceTokenRepository(postgresClient)
	radioRepo := repository.NewPostgresRadioRepository(postgresClient)
	settingsRepo := repository.NewPostgresSettingsRepository(postgresClient)
	profileRepo := repository.NewPostgresProfileRepository(postgresClient)
	gamificationRepo := repository.NewPostgresGamificationRepository(postgresClient)

	// Notification sockets. With Redis every instance relays to its own
	// connections.
	var (
		pubsub  server.PubSub
		queue   service.ReplyQueue
		runLock scheduler.RunLock
	)
	if redisClient != nil {
		pubsub = redisClient
		queue = redisClient
		runLock = redisClient
	}

	// Initialize services
	authService := service.NewAuthService(cfg.SupabaseJWTSecret)
	gamificationService := service.NewGamificationService(gamificationRepo, loc)
	historyService := service.NewHistoryService(historyRepo, gamificationService)
	aiService := service.NewAIService(chatProviders, transcribers, audio, log)
	lessonService := service.NewLessonService(lessonRepo, aiService, log)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, lessonRepo)
	listenLaterService := service.NewListenLaterService(listenLaterRepo, lessonRepo)
	playlistService := service.NewPlaylistService(playlistRepo, lessonRepo)
	feedbackService := service.NewFeedbackService(feedbackRepo)
	radioService := service.NewRadioService(radioRepo, aiService, log)
	readingService := service.NewReadingService(lessonRepo, historyService, aiService)
	speakingService := service.NewSpeakingService(assessor, aiService, historyService, queue, log)
	userService := service.NewUserService(profileRepo, settingsRepo, profileRepo, gamificationService, accounts, log)
	syncService := service.NewSyncService(historyService, historyRepo, bookmarkRepo, lessonRepo, userService, settingsRepo, log)

	hub := server.NewWebSocketHub(log, pubsub, cfg.CORSAllowedOrigins)
	notificationService := service.NewNotificationService(notificationRepo, deviceRepo, gamificationRepo, hub, loc, log)
	hub.SetHandler(ws.NewHandler(log, notificationService))
	go hub.Run(ctx)

	// Initialize handlers
	checks := map[string]http.Pinger{"postgres": postgresClient}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	handlers := server.Handlers{
		Health:        http.NewHealthHandler(checks),
		AI:            http.NewAIHandler(log, aiService),
		Lessons:       http.NewLessonHandler(log, lessonService),
		Bookmarks:     http.NewBookmarkHandler(log, bookmarkService),
		History:       http.NewHistoryHandler(log, historyService),
		ListenLater:   http.NewListenLaterHandler(log, listenLaterService),
		Playlists:     http.NewPlaylistHandler(log, playlistService),
		Feedback:      http.NewFeedbackHandler(log, feedbackService),
		Notifications: http.NewNotificationHandler(log, notificationService),
		Radio:         http.NewRadioHandler(log, radioService),
		Reading:       http.NewReadingHandler(log, readingService),
		Speaking:      http.NewSpeakingHandler(log, speakingService),
		Sync:          http.NewSyncHandler(log, syncService),
		Users:         http.NewUserHandler(log, userService),
	}

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(cfg, log, handlers, authService, hub)

	// Practice reminders
	if cfg.ReminderEnabled {
		reminders, err := scheduler.NewReminderScheduler(notificationService, runLock, cfg.ReminderSchedule, loc, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create reminder scheduler")
		}
		if err := reminders.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start reminder scheduler")
		}
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Str("timezone", loc.String()).
		Msg("Servers started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down servers...")
	handlers.Health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stops the hub and the reminder scheduler.
	cancel()

	// Tutor replies still being prepared are pushed before Redis closes.
	speakingService.Wait()

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	postgresClient.Close()

	log.Info().Msg("Server stopped")
}
