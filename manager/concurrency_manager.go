package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultService is the slot pool shared by services without a configured limit.
const DefaultService = "default"

// AcquireTimeout bounds how long a caller waits for a free slot.
const AcquireTimeout = 75 * time.Second

// ErrBusy is returned when no slot became free within AcquireTimeout.
var ErrBusy = errors.New("upstream service busy")

// ServiceMetrics holds the metrics for a specific upstream service.
type ServiceMetrics struct {
	Service                string
	QueueSize              int
	ProcessingCount        int
	Limit                  int
	LastLogTime            time.Time
	queueSizeChanged       bool
	processingCountChanged bool
	mu                     sync.Mutex
}

// MetricsSnapshot is a point-in-time copy of ServiceMetrics.
type MetricsSnapshot struct {
	Service    string `json:"service"`
	Queued     int    `json:"queued"`
	Processing int    `json:"processing"`
	Limit      int    `json:"limit"`
}

// ConcurrencyManager caps concurrent calls per upstream service and tracks their metrics.
type ConcurrencyManager struct {
	semMap         map[string]chan struct{}
	metricsMap     map[string]*ServiceMetrics
	mu             sync.Mutex
	defaultSize    int
	acquireTimeout time.Duration
	closed         chan struct{}
	closeOnce      sync.Once
}

// NewConcurrencyManager initializes a ConcurrencyManager with per-service limits and a default limit
// for everything else.
func NewConcurrencyManager(limits map[string]int, defaultSize int) *ConcurrencyManager {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	cm := &ConcurrencyManager{
		semMap:         make(map[string]chan struct{}),
		metricsMap:     make(map[string]*ServiceMetrics),
		defaultSize:    defaultSize,
		acquireTimeout: AcquireTimeout,
		closed:         make(chan struct{}),
	}

	for name, size := range limits {
		if size <= 0 {
			log.Warnf("Service '%s' has invalid size %d. Setting to default size %d.", name, size, 10)
			size = 10
		}
		cm.semMap[name] = make(chan struct{}, size)
		cm.metricsMap[name] = &ServiceMetrics{Service: name, Limit: size}
	}

	if _, ok := cm.semMap[DefaultService]; !ok {
		cm.semMap[DefaultService] = make(chan struct{}, cm.defaultSize)
		cm.metricsMap[DefaultService] = &ServiceMetrics{Service: DefaultService, Limit: cm.defaultSize}
	}

	for _, metrics := range cm.metricsMap {
		go cm.monitorMetrics(metrics)
	}

	return cm
}

// Acquire waits for a slot for the given service. The returned release func must be called exactly once.
// Waiting stops when ctx is done or after the acquire timeout.
func (cm *ConcurrencyManager) Acquire(ctx context.Context, service string) (func(), error) {
	cm.mu.Lock()
	sem, exists := cm.semMap[service]
	if !exists {
		sem = cm.semMap[DefaultService]
		service = DefaultService
	}
	metrics := cm.metricsMap[service]
	timeout := cm.acquireTimeout
	cm.mu.Unlock()

	metrics.incrementQueue()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		metrics.incrementProcessing()
		metrics.decrementQueue()

		var once sync.Once
		return func() {
			once.Do(func() {
				metrics.decrementProcessing()
				<-sem
			})
		}, nil
	case <-ctx.Done():
		metrics.decrementQueue()
		return nil, ctx.Err()
	case <-timer.C:
		metrics.decrementQueue()
		return nil, fmt.Errorf("%w: %s", ErrBusy, service)
	}
}

// Do runs fn while holding a slot for service.
func (cm *ConcurrencyManager) Do(ctx context.Context, service string, fn func(context.Context) error) error {
	release, err := cm.Acquire(ctx, service)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Snapshot returns the current metrics for every service, sorted by name.
func (cm *ConcurrencyManager) Snapshot() []MetricsSnapshot {
	cm.mu.Lock()
	all := make([]*ServiceMetrics, 0, len(cm.metricsMap))
	for _, m := range cm.metricsMap {
		all = append(all, m)
	}
	cm.mu.Unlock()

	out := make([]MetricsSnapshot, 0, len(all))
	for _, m := range all {
		m.mu.Lock()
		out = append(out, MetricsSnapshot{
			Service:    m.Service,
			Queued:     m.QueueSize,
			Processing: m.ProcessingCount,
			Limit:      m.Limit,
		})
		m.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// monitorMetrics logs a service's metrics at most once a second, and only when they changed.
func (cm *ConcurrencyManager) monitorMetrics(metrics *ServiceMetrics) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cm.closed:
			return
		case <-ticker.C:
		}

		metrics.mu.Lock()
		currentTime := time.Now()
		if (metrics.queueSizeChanged || metrics.processingCountChanged) &&
			currentTime.Sub(metrics.LastLogTime) >= time.Second {
			log.Infof("Service: %s | Queued: %d | Processing: %d",
				metrics.Service, metrics.QueueSize, metrics.ProcessingCount)
			metrics.LastLogTime = currentTime
			metrics.resetChangeFlags()
		}
		metrics.mu.Unlock()
	}
}

func (m *ServiceMetrics) incrementQueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueSize++
	m.queueSizeChanged = true
}

func (m *ServiceMetrics) decrementQueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueSize > 0 {
		m.QueueSize--
		m.queueSizeChanged = true
	}
}

func (m *ServiceMetrics) incrementProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessingCount++
	m.processingCountChanged = true
}

func (m *ServiceMetrics) decrementProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProcessingCount > 0 {
		m.ProcessingCount--
		m.processingCountChanged = true
	}
}

func (m *ServiceMetrics) resetChangeFlags() {
	m.queueSizeChanged = false
	m.processingCountChanged = false
}

// Shutdown stops the metric monitors.
func (cm *ConcurrencyManager) Shutdown() {
	cm.closeOnce.Do(func() { close(cm.closed) })
}
