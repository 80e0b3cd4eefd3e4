package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/cache"
	"travelplanner/manager"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	mem := cache.NewMemoryCache()
	cm := manager.NewConcurrencyManager(map[string]int{ServiceSerper: 1}, 2)
	t.Cleanup(func() {
		mem.Close()
		cm.Shutdown()
	})
	return &Env{Manager: cm, Cache: mem, CacheTTL: time.Minute}
}

func TestEnvRunCachesSuccessOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		return "result", nil
	}
	out, err := env.run(ctx, ServiceSerper, "k", fn)
	require.NoError(t, err)
	assert.Equal(t, "result", out)

	out, err = env.run(ctx, ServiceSerper, "k", fn)
	require.NoError(t, err)
	assert.Equal(t, "result", out)
	assert.Equal(t, 1, calls)

	failing := func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	}
	_, err = env.run(ctx, ServiceSerper, "bad", failing)
	require.Error(t, err)
	_, err = env.run(ctx, ServiceSerper, "bad", failing)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestEnvRunNil(t *testing.T) {
	var env *Env
	out, err := env.run(context.Background(), ServiceWeather, "k", func(context.Context) (string, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", out)
}

func TestDecodeArgs(t *testing.T) {
	var args struct {
		Query string `json:"query"`
		Num   int    `json:"num"`
	}
	require.NoError(t, decodeArgs(json.RawMessage(`{"query":"paris","num":3}`), &args, &args.Query))
	assert.Equal(t, "paris", args.Query)
	assert.Equal(t, 3, args.Num)

	args.Query = ""
	require.NoError(t, decodeArgs(json.RawMessage(`"rome"`), &args, &args.Query))
	assert.Equal(t, "rome", args.Query)

	assert.Error(t, decodeArgs(json.RawMessage(`"rome"`), &args, nil))
	assert.Error(t, decodeArgs(json.RawMessage(`{not json`), &args, &args.Query))
}
