package handler

import (
	"context"
	"time"

	"travelplanner/manager"
	"travelplanner/planner"
	"travelplanner/queue"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Data    any     `json:"data,omitempty"`
	Error   *string `json:"error,omitempty"`
	Message string  `json:"message"`
}

// PlanView is a job with its three tabs rendered to HTML.
type PlanView struct {
	Job           queue.Job `json:"job"`
	StatusHTML    string    `json:"status_html"`
	ReasoningHTML string    `json:"reasoning_html"`
	PlanHTML      string    `json:"plan_html"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string                    `json:"status"`
	Initialized bool                      `json:"agents_initialized"`
	Queued      int                       `json:"queued"`
	Processing  int                       `json:"processing"`
	Services    []manager.MetricsSnapshot `json:"services"`
}

// Jobs is the part of the plan queue the handlers use.
type Jobs interface {
	Enqueue(req planner.Request) (queue.Job, error)
	Get(id string) (queue.Job, error)
	Cancel(id string) error
	Subscribe(id string) (<-chan planner.Progress, func(), error)
	Stats() (queued, processing int)
}

// Initializer prepares the agents ahead of the first plan.
type Initializer interface {
	Initialize(ctx context.Context) (string, error)
	Initialized() bool
}

// Limiter is a sliding-window request counter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
