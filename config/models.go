package config

import "time"

// ServiceLimit caps the number of concurrent calls to one upstream service.
type ServiceLimit struct {
	Size int `mapstructure:"size"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	APIKey       string        `mapstructure:"api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SerperConfig configures the web search API.
type SerperConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// WeatherConfig configures WeatherAPI.
type WeatherConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// AmadeusConfig configures the flight search API.
type AmadeusConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// WikipediaConfig configures the article and image search endpoints.
type WikipediaConfig struct {
	ArticlesURL string `mapstructure:"articles_url"`
	CommonsURL  string `mapstructure:"commons_url"`
}

// PlannerConfig sizes the plan job queue.
type PlannerConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retention time.Duration `mapstructure:"retention"`
}

// CacheConfig selects where tool results are cached.
type CacheConfig struct {
	Driver   string        `mapstructure:"driver"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
}

// Config holds the application configuration.
type Config struct {
	Title          string                  `mapstructure:"title"`
	ListenAddress  string                  `mapstructure:"listen_address"`
	RequestTimeout time.Duration           `mapstructure:"request_timeout"`
	RateLimit      int                     `mapstructure:"rate_limit"`
	LLM            LLMConfig               `mapstructure:"llm"`
	Serper         SerperConfig            `mapstructure:"serper"`
	Weather        WeatherConfig           `mapstructure:"weather"`
	Amadeus        AmadeusConfig           `mapstructure:"amadeus"`
	Wikipedia      WikipediaConfig         `mapstructure:"wikipedia"`
	Planner        PlannerConfig           `mapstructure:"planner"`
	Cache          CacheConfig             `mapstructure:"cache"`
	Services       map[string]ServiceLimit `mapstructure:"services"`
}

// Limits flattens the per-service limits for the concurrency manager.
func (c *Config) Limits() map[string]int {
	limits := make(map[string]int, len(c.Services))
	for name, l := range c.Services {
		limits[name] = l.Size
	}
	return limits
}
