package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Database (Supabase Postgres connection string)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Supabase
	SupabaseURL            string `envconfig:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseJWTSecret      string `envconfig:"SUPABASE_JWT_SECRET"`

	// OpenAI
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	OpenAITTSModel  string `envconfig:"OPENAI_TTS_MODEL" default:"tts-1"`
	OpenAITTSVoice  string `envconfig:"OPENAI_TTS_VOICE" default:"nova"`

	// Groq (OpenAI-compatible API)
	GroqKey          string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL      string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GroqChatModel    string `envconfig:"GROQ_CHAT_MODEL" default:"llama-3.3-70b-versatile"`
	GroqWhisperModel string `envconfig:"GROQ_WHISPER_MODEL" default:"whisper-large-v3"`

	// Gemini (optional, last chat provider)
	GeminiKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiModel string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Azure AI Speech
	AzureAISpeechKey   string `envconfig:"AZURE_AI_SPEECH_KEY"`
	AzureServiceRegion string `envconfig:"AZURE_SERVICE_REGION"`

	// Redis
	RedisURL string `envconfig:"REDIS_URL"`

	// Object storage
	StorageProvider    string `envconfig:"STORAGE_PROVIDER" default:"s3"`
	S3Endpoint         string `envconfig:"S3_ENDPOINT"`
	S3Region           string `envconfig:"S3_REGION" default:"auto"`
	S3AccessKeyID      string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey  string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket           string `envconfig:"S3_BUCKET" default:"audio"`
	StoragePublicURL   string `envconfig:"STORAGE_PUBLIC_URL"`
	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`

	// Localization and time
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"vi"`
	Timezone        string `envconfig:"APP_TIMEZONE" default:"Asia/Ho_Chi_Minh"`

	// Scheduler. The reminder job runs hourly and picks the users whose
	// reminder_hour matches the current hour in Timezone.
	ReminderSchedule string `envconfig:"REMINDER_SCHEDULE" default:"0 * * * *"`
	ReminderEnabled  bool   `envconfig:"REMINDER_ENABLED" default:"true"`

	// AI rate limiting, per user
	AIRateLimit float64 `envconfig:"AI_RATE_LIMIT" default:"0.5"`
	AIRateBurst int     `envconfig:"AI_RATE_BURST" default:"5"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Accept-Language,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required in %s", c.Environment)
	}
	switch c.StorageProvider {
	case "s3", "gcs":
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q (use s3 or gcs)", c.StorageProvider)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location returns the application timezone. Streaks and reminders are
// computed against calendar days in this zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
