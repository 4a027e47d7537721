package generatepostimage

import "time"

type Config struct {
	Timeout        time.Duration
	PlaceholderURL string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        45 * time.Second,
		PlaceholderURL: "https://placehold.co",
	}
}
