package analyzecompetitors

import "time"

type Config struct {
	Timeout time.Duration
	// InsightsWait is how long the backend gets between the analyze call and the insights fetch.
	InsightsWait time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      90 * time.Second,
		InsightsWait: 4 * time.Second,
	}
}
