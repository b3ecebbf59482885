// internal/workers/communication/send-risk-digest/config.go
package sendriskdigest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
