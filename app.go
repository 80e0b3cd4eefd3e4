package main

import (
	"context"
	"fmt"

	"travelplanner/cache"
	"travelplanner/config"
	"travelplanner/llm"
	"travelplanner/logging"
	"travelplanner/manager"
	"travelplanner/planner"
	"travelplanner/tools"
)

// defaultServiceSlots sizes the pool for services without a configured limit.
const defaultServiceSlots = 4

// app holds the long-lived components shared by the commands.
type app struct {
	cfg     *config.Config
	cache   cache.Cache
	limiter cache.Cache
	manager *manager.ConcurrencyManager
	planner *planner.Planner

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logging.GetLogger()

	c, closeCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("error creating cache: %w", err)
	}
	a := &app{cfg: cfg, cache: c, limiter: c, closers: []func() error{closeCache}}

	if cfg.Cache.Driver == "none" {
		// Rate limiting still needs somewhere to count.
		mem := cache.NewMemoryCache()
		a.limiter = mem
		a.closers = append(a.closers, mem.Close)
	}

	a.manager = manager.NewConcurrencyManager(cfg.Limits(), defaultServiceSlots)

	provider, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error creating language model: %w", err)
	}
	provider = llm.WithLimit(provider, a.manager)

	toolset := tools.NewToolset(cfg, &tools.Env{Manager: a.manager, Cache: c, CacheTTL: cfg.Cache.TTL})
	a.planner = planner.New(provider, toolset)

	log.Infof("Using %s model %s with %s cache", cfg.LLM.Provider, cfg.LLM.Model, cfg.Cache.Driver)
	return a, nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Shutdown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.GetLogger().Warnf("Error closing resource: %v", err)
		}
	}
}
