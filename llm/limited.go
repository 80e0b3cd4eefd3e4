package llm

import (
	"context"

	"travelplanner/manager"
)

// ServiceName is the concurrency-manager key for model calls.
const ServiceName = "llm"

type limited struct {
	provider Provider
	manager  *manager.ConcurrencyManager
}

// WithLimit runs every completion of p inside one of the manager's "llm" slots.
func WithLimit(p Provider, m *manager.ConcurrencyManager) Provider {
	if m == nil {
		return p
	}
	return &limited{provider: p, manager: m}
}

func (l *limited) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	var reply string
	err := l.manager.Do(ctx, ServiceName, func(ctx context.Context) error {
		var err error
		reply, err = l.provider.Complete(ctx, system, messages)
		return err
	})
	return reply, err
}
