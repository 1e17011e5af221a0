// internal/workers/travel/rank-flights/config.go
package rankflights

import (
	"time"

	"travel-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// TopN caps rankedOffers when the job does not ask for a size. Zero keeps all.
	TopN int
}

func LoadConfig(wcfg config.WorkerConfig, topN int) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		Timeout: timeout,
		TopN:    topN,
	}
}
