package discovercompetitors

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      60 * time.Second,
		DefaultLimit: 5,
		MaxLimit:     20,
	}
}
