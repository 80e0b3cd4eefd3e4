// Package tools holds the HTTP integrations the agents can call: web search, Wikipedia,
// page browsing, weather and flight search. Each integration has a typed Go API, a markdown
// formatter and an agent-facing adapter built with NewFuncTool.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"travelplanner/cache"
	"travelplanner/logging"
	"travelplanner/manager"
)

// Upstream service names, used as concurrency-manager keys.
const (
	ServiceSerper    = "serper"
	ServiceWikipedia = "wikipedia"
	ServiceBrowse    = "browse"
	ServiceWeather   = "weather"
	ServiceAmadeus   = "amadeus"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}

// Env is what every tool shares: the concurrency manager and the result cache.
type Env struct {
	Manager  *manager.ConcurrencyManager
	Cache    cache.Cache
	CacheTTL time.Duration
}

// run executes fn under the service's concurrency slot, serving and storing successful results in
// the cache. Errors are never cached.
func (e *Env) run(ctx context.Context, service, key string, fn func(context.Context) (string, error)) (string, error) {
	if e == nil {
		return fn(ctx)
	}
	if e.Cache != nil && key != "" {
		if val, ok, err := e.Cache.Get(ctx, key); err != nil {
			log.Warnf("Cache read failed for %s: %v", service, err)
		} else if ok {
			log.Debugf("Cache hit for %s", service)
			return val, nil
		}
	}

	var out string
	call := func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	}
	var err error
	if e.Manager != nil {
		err = e.Manager.Do(ctx, service, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}

	if e.Cache != nil && key != "" {
		if err := e.Cache.Set(ctx, key, out, e.CacheTTL); err != nil {
			log.Warnf("Cache write failed for %s: %v", service, err)
		}
	}
	return out, nil
}

// FuncTool adapts a function to the agent tool interface.
type FuncTool struct {
	name        string
	description string
	parameters  string
	fn          func(ctx context.Context, input json.RawMessage) (string, error)
}

// NewFuncTool wraps fn as an agent tool.
func NewFuncTool(name, description, parameters string, fn func(ctx context.Context, input json.RawMessage) (string, error)) *FuncTool {
	return &FuncTool{name: name, description: description, parameters: parameters, fn: fn}
}

func (t *FuncTool) Name() string        { return t.name }
func (t *FuncTool) Description() string { return t.description }
func (t *FuncTool) Parameters() string  { return t.parameters }

// Call runs the tool with the model's JSON input.
func (t *FuncTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	return t.fn(ctx, input)
}

// decodeArgs fills args from a JSON object. A bare JSON string is assigned to *primary instead,
// since models often pass just the query.
func decodeArgs(input json.RawMessage, args any, primary *string) error {
	trimmed := strings.TrimSpace(string(input))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return fmt.Errorf("invalid input: %w", err)
		}
		if primary == nil {
			return fmt.Errorf("expected a JSON object, got a string")
		}
		*primary = s
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), args); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
