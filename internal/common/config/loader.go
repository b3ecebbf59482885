// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadedEnvFile is the .env path picked up by the last Load, empty if none.
var LoadedEnvFile string

// Load reads configs/config.yaml merged with configs/config.<APP_ENVIRONMENT>.yaml.
func Load() (*Config, error) {
	LoadedEnvFile = loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	LoadedEnvFile = loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(v, &cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	fill := func(dst *string, env string) {
		if *dst == "" {
			if val := os.Getenv(env); val != "" {
				*dst = val
			}
		}
	}
	fill(&cfg.Integrations.Gemini.APIKey, "GEMINI_API_KEY")
	fill(&cfg.Integrations.Gemini.APIKey, "GOOGLE_API_KEY")
	fill(&cfg.Database.Postgres.User, "DB_USER")
	fill(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	fill(&cfg.Integrations.AWS.SNS.AlertTopicARN, "DRIFT_ALERT_TOPIC_ARN")
}

// applyDefaults sets default values for optional configuration fields. The
// risk section is only defaulted as a whole, so an explicit zero weight in
// YAML is kept.
func applyDefaults(v *viper.Viper, cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "drift-workers"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if !v.IsSet("risk") {
		cfg.Risk = RiskConfig{
			StalledThresholdDays: 14,
			WeightAmount:         0.4,
			WeightStage:          0.3,
			WeightInactivity:     0.2,
			WeightNotes:          0.1,
		}
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 720
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "drift:session"
	}

	if cfg.Seed.DealsPath == "" {
		cfg.Seed.DealsPath = "configs/deals.json"
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = "configs/activity-registry.json"
	}

	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Integrations.Gemini.Model == "" {
		cfg.Integrations.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Integrations.Gemini.Timeout == 0 {
		cfg.Integrations.Gemini.Timeout = 30000
	}

	if cfg.Notifications.DigestSchedule == "" {
		cfg.Notifications.DigestSchedule = "0 8 * * 1-5"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if pg := cfg.Database.Postgres; pg.Enabled {
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if pg.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.FromEmail == "" {
		return fmt.Errorf("integrations.aws.ses.from_email is required")
	}
	if cfg.Integrations.AWS.SNS.Enabled && cfg.Integrations.AWS.SNS.AlertTopicARN == "" {
		return fmt.Errorf("integrations.aws.sns.alert_topic_arn is required")
	}

	if cfg.Risk.StalledThresholdDays <= 0 {
		return fmt.Errorf("risk.stalled_threshold_days must be positive")
	}
	weights := map[string]float64{
		"risk.weight_amount":     cfg.Risk.WeightAmount,
		"risk.weight_stage":      cfg.Risk.WeightStage,
		"risk.weight_inactivity": cfg.Risk.WeightInactivity,
		"risk.weight_notes":      cfg.Risk.WeightNotes,
	}
	for key, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", key, w)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
