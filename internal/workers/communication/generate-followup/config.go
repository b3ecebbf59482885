// internal/workers/communication/generate-followup/config.go
package generatefollowup

import "time"

type Config struct {
	Timeout time.Duration
}

// LoadConfig leaves room for the LLM request timeout inside the job timeout.
func LoadConfig() *Config {
	return &Config{
		Timeout: 45 * time.Second,
	}
}
