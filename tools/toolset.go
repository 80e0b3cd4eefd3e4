package tools

import (
	"travelplanner/backend"
	"travelplanner/config"
)

// Toolset is every integration built from one configuration, sharing an Env.
type Toolset struct {
	Serper    *Serper
	Wikipedia *Wikipedia
	Browser   *Browser
	Weather   *Weather
	Amadeus   *Amadeus
}

// NewToolset wires each integration to its configured base URL and credentials.
func NewToolset(cfg *config.Config, env *Env) *Toolset {
	timeout := cfg.RequestTimeout
	return &Toolset{
		Serper: NewSerper(backend.NewBackendClient(cfg.Serper.BaseURL, timeout), cfg.Serper.APIKey, env),
		Wikipedia: NewWikipedia(
			backend.NewBackendClient(cfg.Wikipedia.ArticlesURL, timeout),
			backend.NewBackendClient(cfg.Wikipedia.CommonsURL, timeout),
			env,
		),
		Browser: NewBrowser(timeout, env),
		Weather: NewWeather(backend.NewBackendClient(cfg.Weather.BaseURL, timeout), cfg.Weather.APIKey, env),
		Amadeus: NewAmadeus(backend.NewBackendClient(cfg.Amadeus.BaseURL, timeout), cfg.Amadeus.APIKey, cfg.Amadeus.APISecret, env),
	}
}
