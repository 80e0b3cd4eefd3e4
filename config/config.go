package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TRAVEL_LISTEN_ADDRESS or TRAVEL_LLM_MODEL.
const EnvPrefix = "TRAVEL"

// MissingKeysError lists every required credential that is not set.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// legacyEnv maps config keys to the plain variable names used in .env files.
var legacyEnv = map[string][]string{
	"llm.api_key":        {"OPENAI_API_KEY"},
	"llm.gemini_api_key": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"serper.api_key":     {"SERPER_API_KEY"},
	"weather.api_key":    {"WEATHER_API_KEY"},
	"amadeus.api_key":    {"AMADEUS_API_KEY"},
	"amadeus.api_secret": {"AMADEUS_API_SECRET"},
	"cache.redis_url":    {"REDIS_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "AI Travel Planner")
	v.SetDefault("listen_address", "0.0.0.0:7860")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("rate_limit", 10)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("serper.api_key", "")
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "http://api.weatherapi.com/v1")
	v.SetDefault("amadeus.api_key", "")
	v.SetDefault("amadeus.api_secret", "")
	v.SetDefault("amadeus.base_url", "https://test.api.amadeus.com")
	v.SetDefault("wikipedia.articles_url", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("wikipedia.commons_url", "https://commons.wikimedia.org/w/api.php")

	v.SetDefault("planner.workers", 2)
	v.SetDefault("planner.queue_size", 64)
	v.SetDefault("planner.timeout", 15*time.Minute)
	v.SetDefault("planner.retention", time.Hour)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "travelplanner:")

	v.SetDefault("services.llm.size", 4)
	v.SetDefault("services.serper.size", 8)
	v.SetDefault("services.weather.size", 8)
	v.SetDefault("services.amadeus.size", 4)
	v.SetDefault("services.wikipedia.size", 8)
	v.SetDefault("services.browse.size", 8)
}

// LoadConfig reads .env, the optional YAML config file and the environment, then validates the result.
// An empty configFile means defaults and environment only.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var configuration Config
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks structural settings and that every required API key is present.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen_address is required")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisURL == "" {
		return errors.New("cache.redis_url is required when cache.driver is redis")
	}
	if c.Planner.Workers <= 0 {
		return errors.New("planner.workers must be positive")
	}

	var missing []string
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.LLM.Provider == "gemini" && c.LLM.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.Serper.APIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if c.Weather.APIKey == "" {
		missing = append(missing, "WEATHER_API_KEY")
	}
	if c.Amadeus.APIKey == "" {
		missing = append(missing, "AMADEUS_API_KEY")
	}
	if c.Amadeus.APISecret == "" {
		missing = append(missing, "AMADEUS_API_SECRET")
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	return nil
}
