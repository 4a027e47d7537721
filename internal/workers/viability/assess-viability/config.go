package assessviability

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultAgent string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      60 * time.Second,
		DefaultAgent: "viability_assessment",
	}
}
