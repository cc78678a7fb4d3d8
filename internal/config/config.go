package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Deployment modes. Local and dev deployments share a single Twilio project;
// production resolves per-account subaccount credentials.
const (
	DeploymentModeLocal      = "local"
	DeploymentModeDev        = "dev"
	DeploymentModeProduction = "production"
)

// DefaultConnectionTimeout bounds the outbound speech-agent handshake.
const DefaultConnectionTimeout = 15 * time.Second

// Config holds the receptionist gateway configuration
type Config struct {
	Port           string
	DeploymentMode string

	// Speech-agent platform (ElevenLabs ConvAI) configuration
	ConvAIAPIKey  string
	ConvAIBaseURL string

	// Shared Twilio credentials for local/dev deployments
	TwilioAccountSID string
	TwilioAuthToken  string

	// Instance identifier for multi-pod monitoring and call routing
	InstanceID string

	// Audio archive configuration
	AudioArchiveEnabled bool
	AudioArchiveBucket  string

	EnableCORS     bool
	MaxConnections int
}

// LoadFromEnv loads the gateway configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Port:           getEnvOrDefault("PORT", "8082"),
		DeploymentMode: strings.ToLower(getEnvOrDefault("DEPLOYMENT_MODE", DeploymentModeProduction)),

		ConvAIAPIKey:  getEnvOrDefault("CONVAI_API_KEY", ""),
		ConvAIBaseURL: getEnvOrDefault("CONVAI_BASE_URL", "https://api.elevenlabs.io"),

		TwilioAccountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),

		InstanceID: getDynamicInstanceID(),

		AudioArchiveEnabled: getEnvAsBoolOrDefault("AUDIO_ARCHIVE_ENABLED", false),
		AudioArchiveBucket:  getEnvOrDefault("AUDIO_ARCHIVE_BUCKET", ""),

		EnableCORS:     getEnvAsBoolOrDefault("ENABLE_CORS", true),
		MaxConnections: getEnvAsIntOrDefault("MAX_CONNECTIONS", 50),
	}
}

// IsSharedTwilioDeployment reports whether the deployment uses the
// environment-level Twilio credentials instead of per-account ones.
func (c *Config) IsSharedTwilioDeployment() bool {
	return c.DeploymentMode == DeploymentModeLocal || c.DeploymentMode == DeploymentModeDev
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDynamicInstanceID generates a unique identifier for this service instance.
// It first tries the system hostname (pod name in K8s) and falls back to a
// timestamp-based ID.
func getDynamicInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("voice-service-%d", time.Now().UnixNano())
}
