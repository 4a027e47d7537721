package generatesocialposts

import "time"

type Config struct {
	Timeout          time.Duration
	DefaultCount     int
	MaxCount         int
	DefaultPlatforms []string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          60 * time.Second,
		DefaultCount:     3,
		MaxCount:         20,
		DefaultPlatforms: []string{"linkedin", "tiktok"},
	}
}
