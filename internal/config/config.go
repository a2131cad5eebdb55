package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the settings used to verify tokens issued by the
// external identity provider. There is no session management here.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains the Gemini integration settings.
type LLMConfig struct {
	// GeminiAPIKey is the shared key used for queued work. BYOK users
	// supply their own key at call time instead.
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`

	// StoryModel is the text model used for story-structure generation.
	StoryModel string `mapstructure:"story_model" validate:"required"`

	// ImageModel is the model used for scene image generation.
	ImageModel string `mapstructure:"image_model" validate:"required"`

	// EncryptionKey is the 32-byte key (hex, 64 chars) used to encrypt
	// stored BYOK keys.
	EncryptionKey string `mapstructure:"encryption_key" validate:"required,len=64,hexadecimal"`
}

// QueueConfig tunes the background processing pipeline.
type QueueConfig struct {
	// ProcessInterval is how often the scheduler invokes the processor.
	// The history of the system shows both 30s and 5m; the interval is a
	// tunable, defaulting to the larger value to conserve quota.
	ProcessInterval time.Duration `mapstructure:"process_interval" validate:"required"`

	// CleanupInterval is how often the maintenance pass (old rate windows,
	// old terminal jobs) runs.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"required"`

	// SceneDelay is the fixed pacing delay between scene generations,
	// bounded below by the rate limit's minimum safe spacing (6s at 10 RPM).
	SceneDelay time.Duration `mapstructure:"scene_delay" validate:"min=0"`

	// SecondsPerJob is the fixed per-job time assumption behind the
	// queue's wait estimate.
	SecondsPerJob int `mapstructure:"seconds_per_job" validate:"required,gt=0"`
}
