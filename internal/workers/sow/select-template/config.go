// internal/workers/sow/select-template/config.go
package selecttemplate

import "time"

type Config struct {
	Timeout      time.Duration
	AuditEnabled bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		AuditEnabled: true,
	}
}
