package managecompetitors

import "time"

type Config struct {
	Timeout         time.Duration
	MetadataTimeout time.Duration
	FetchMetadata   bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MetadataTimeout: 5 * time.Second,
		FetchMetadata:   true,
	}
}
