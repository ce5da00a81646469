// internal/workers/sow/check-template-compatibility/config.go
package checkcompatibility

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
