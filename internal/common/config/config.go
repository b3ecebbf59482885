// internal/common/config/config.go
package config

import (
	"fmt"

	"drift-workers/internal/risk"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Risk          RiskConfig              `mapstructure:"risk"`
	Session       SessionConfig           `mapstructure:"session"`
	Seed          SeedConfig              `mapstructure:"seed"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	RegistryPath  string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Domain Configuration ---

// RiskConfig is the weighting profile a fresh session starts with.
type RiskConfig struct {
	StalledThresholdDays float64 `mapstructure:"stalled_threshold_days"`
	WeightAmount         float64 `mapstructure:"weight_amount"`
	WeightStage          float64 `mapstructure:"weight_stage"`
	WeightInactivity     float64 `mapstructure:"weight_inactivity"`
	WeightNotes          float64 `mapstructure:"weight_notes"`
}

// Profile converts the section into an engine weighting profile.
func (r RiskConfig) Profile() risk.WeightingProfile {
	return risk.WeightingProfile{
		StalledThresholdDays: r.StalledThresholdDays,
		RiskWeightAmount:     r.WeightAmount,
		RiskWeightStage:      r.WeightStage,
		RiskWeightInactivity: r.WeightInactivity,
		RiskWeightNotes:      r.WeightNotes,
	}
}

type SessionConfig struct {
	TTL       int    `mapstructure:"ttl"` // minutes
	KeyPrefix string `mapstructure:"key_prefix"`
}

type SeedConfig struct {
	DealsPath string `mapstructure:"deals_path"`
}

// IntegrationConfig holds settings for AWS and the LLM provider.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled       bool   `mapstructure:"enabled"`
			AlertTopicARN string `mapstructure:"alert_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	Gemini struct {
		APIKey           string  `mapstructure:"api_key"`
		Model            string  `mapstructure:"model"`
		Temperature      float64 `mapstructure:"temperature"`
		Timeout          int     `mapstructure:"timeout"` // milliseconds
		FallbackTemplate bool    `mapstructure:"fallback_template"`
	} `mapstructure:"gemini"`
}

// NotificationConfig drives the risk digest and high-risk alerts.
type NotificationConfig struct {
	DigestSchedule  string `mapstructure:"digest_schedule"`
	DigestRecipient string `mapstructure:"digest_recipient"`
	AlertsEnabled   bool   `mapstructure:"alerts_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}
