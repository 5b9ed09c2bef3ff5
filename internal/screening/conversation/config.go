package conversation

import (
	"time"

	"applicant-screening/internal/common/config"
)

type Config struct {
	SchedulingURL string
	TurnTimeout   time.Duration
	HistoryLimit  int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		SchedulingURL: cfg.Screening.SchedulingURL,
		TurnTimeout:   config.GetDuration(cfg.Screening.TurnTimeout),
		HistoryLimit:  200,
	}
}
