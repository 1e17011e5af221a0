// internal/workers/travel/detect-groups/config.go
package detectgroups

import (
	"time"

	"travel-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Config{Timeout: timeout}
}
