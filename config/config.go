package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type MetaConfig struct {
	VerifyToken  string
	AppID        string
	AppSecret    string
	GraphBaseURL string // Optional with default
	CallbackURL  string // Public webhook URL, probed by the health monitor
}

// IsConfigured returns true if all required Meta platform configuration is present
func (c MetaConfig) IsConfigured() bool {
	return c.VerifyToken != "" &&
		c.AppID != "" &&
		c.AppSecret != "" &&
		c.CallbackURL != ""
}

type AnthropicConfig struct {
	APIKey string
}

// IsConfigured returns true if the AI completion provider is usable
func (c AnthropicConfig) IsConfigured() bool {
	return c.APIKey != ""
}

type AlertConfig struct {
	SlackWebhookURL string
	LogsURL         string
}

// IsConfigured returns true if operator alerting can be delivered
func (c AlertConfig) IsConfigured() bool {
	return c.SlackWebhookURL != ""
}

type RealtimeConfig struct {
	SharedKey string
}

// IsConfigured returns true if dashboard realtime connections can authenticate
func (c RealtimeConfig) IsConfigured() bool {
	return c.SharedKey != ""
}

type AppConfig struct {
	// Core configuration (always required)
	DatabaseURL        string
	DatabaseSchema     string
	TokenEncryptionKey string
	Port               string // Optional with default "8080"
	CORSAllowedOrigins string // Optional with default "*"
	Environment        string
	UseStrictConfig    bool // If true, error when any integration is not fully configured

	// Integration configurations (grouped)
	MetaConfig      MetaConfig
	AnthropicConfig AnthropicConfig
	AlertConfig     AlertConfig
	RealtimeConfig  RealtimeConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	// Core required configuration
	databaseURL, err := getEnvRequired("DB_URL")
	if err != nil {
		return nil, err
	}

	databaseSchema, err := getEnvRequired("DB_SCHEMA")
	if err != nil {
		return nil, err
	}

	tokenEncryptionKey, err := getEnvRequired("TOKEN_ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		// Core configuration
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		TokenEncryptionKey: tokenEncryptionKey,
		Port:               getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins: getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "dev"),
		UseStrictConfig:    getEnvWithDefault("USE_STRICT_CONFIG", "true") == "true",

		// Meta platform configuration
		MetaConfig: MetaConfig{
			VerifyToken:  os.Getenv("META_VERIFY_TOKEN"),
			AppID:        os.Getenv("META_APP_ID"),
			AppSecret:    os.Getenv("META_APP_SECRET"),
			GraphBaseURL: getEnvWithDefault("META_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
			CallbackURL:  os.Getenv("WEBHOOK_CALLBACK_URL"),
		},

		// AI completion configuration (optional)
		AnthropicConfig: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		},

		// Operator alerting configuration (optional)
		AlertConfig: AlertConfig{
			SlackWebhookURL: os.Getenv("SLACK_ALERT_WEBHOOK_URL"),
			LogsURL:         os.Getenv("SERVER_LOGS_URL"),
		},

		// Realtime dashboard configuration
		RealtimeConfig: RealtimeConfig{
			SharedKey: os.Getenv("REALTIME_SHARED_KEY"),
		},
	}

	// Log which integrations are configured
	if config.MetaConfig.IsConfigured() {
		log.Printf("✅ Meta platform integration configured")
	} else {
		log.Printf("⚠️ Meta platform integration not configured - webhook processing will be disabled")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("meta platform integration is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.AnthropicConfig.IsConfigured() {
		log.Printf("✅ AI completion provider configured")
	} else {
		log.Printf("⚠️ AI completion provider not configured - auto-reply AI fallback will be disabled")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("AI completion provider is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.AlertConfig.IsConfigured() {
		log.Printf("✅ Operator alerting configured")
	} else {
		log.Printf("⚠️ Operator alerting not configured - alerts will only be logged")
	}

	if config.RealtimeConfig.IsConfigured() {
		log.Printf("✅ Realtime dashboard channel configured")
	} else {
		log.Printf("⚠️ Realtime shared key not configured - dashboard connections will be rejected")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("realtime shared key is not configured (USE_STRICT_CONFIG=true)")
		}
	}

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
