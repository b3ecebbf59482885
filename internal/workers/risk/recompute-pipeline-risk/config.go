// internal/workers/risk/recompute-pipeline-risk/config.go
package recomputepipelinerisk

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
