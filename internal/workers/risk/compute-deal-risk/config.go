// internal/workers/risk/compute-deal-risk/config.go
package computedealrisk

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
