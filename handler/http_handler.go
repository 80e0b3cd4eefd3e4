package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"travelplanner/manager"
	"travelplanner/planner"
	"travelplanner/queue"
)

// Options configures the HTTP surface.
type Options struct {
	Title          string
	RateLimit      int
	AllowedOrigins []string
}

// HTTPHandler serves the web form and the JSON API.
type HTTPHandler struct {
	Jobs               Jobs
	Initializer        Initializer
	ConcurrencyManager *manager.ConcurrencyManager
	Limiter            Limiter
	Options            Options

	engine *gin.Engine
}

// NewHTTPHandler creates a new instance of HTTPHandler with all routes registered.
func NewHTTPHandler(jobs Jobs, initializer Initializer, cm *manager.ConcurrencyManager, limiter Limiter, opts Options) *HTTPHandler {
	if opts.Title == "" {
		opts.Title = "AI Travel Planner"
	}
	h := &HTTPHandler{
		Jobs:               jobs,
		Initializer:        initializer,
		ConcurrencyManager: cm,
		Limiter:            limiter,
		Options:            opts,
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logAndReturnError(c, "Internal Server Error", http.StatusInternalServerError, fmt.Sprintf("panic serving %s: %v", c.Request.URL.Path, recovered))
	}))
	r.Use(logRequest())
	r.SetHTMLTemplate(pageTemplates)

	limit := rateLimitIP(limiter, opts.RateLimit)

	r.GET("/", h.index)
	r.POST("/plan", limit, h.submitPlan)
	r.GET("/plans/:id", h.planPage)
	r.GET("/health", h.health)

	api := r.Group("/api", cors(opts.AllowedOrigins))
	{
		api.POST("/agents/init", h.initAgents)
		api.POST("/plans", limit, h.createPlan)
		api.GET("/plans/:id", h.getPlan)
		api.GET("/plans/:id/events", h.streamPlan)
		api.DELETE("/plans/:id", h.cancelPlan)
		api.OPTIONS("/*path", func(c *gin.Context) {})
	}

	h.engine = r
	return h
}

// ServeHTTP implements the http.Handler interface for HTTPHandler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) initAgents(c *gin.Context) {
	status, err := h.Initializer.Initialize(c.Request.Context())
	if err != nil {
		logAndReturnError(c, status, http.StatusInternalServerError, fmt.Sprintf("Agent initialization failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, Response{Data: gin.H{"status": status}, Message: status})
}

func (h *HTTPHandler) createPlan(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		logAndReturnError(c, "Bad Request: invalid JSON", http.StatusBadRequest, fmt.Sprintf("Invalid plan request: %v", err))
		return
	}
	job, err := h.Jobs.Enqueue(req)
	if err != nil {
		logAndReturnError(c, err.Error(), statusFor(err))
		return
	}
	c.Header("Location", "/api/plans/"+job.ID)
	c.JSON(http.StatusAccepted, Response{Data: job, Message: "plan queued"})
}

func (h *HTTPHandler) getPlan(c *gin.Context) {
	job, err := h.Jobs.Get(c.Param("id"))
	if err != nil {
		logAndReturnError(c, err.Error(), statusFor(err))
		return
	}
	c.JSON(http.StatusOK, Response{Data: renderPlan(job, job.Progress), Message: string(job.State)})
}

func (h *HTTPHandler) cancelPlan(c *gin.Context) {
	id := c.Param("id")
	if err := h.Jobs.Cancel(id); err != nil {
		logAndReturnError(c, err.Error(), statusFor(err))
		return
	}
	job, err := h.Jobs.Get(id)
	if err != nil {
		logAndReturnError(c, err.Error(), statusFor(err))
		return
	}
	c.JSON(http.StatusOK, Response{Data: job, Message: "cancel requested"})
}

func (h *HTTPHandler) health(c *gin.Context) {
	queued, processing := h.Jobs.Stats()
	status := HealthStatus{
		Status:      "ok",
		Initialized: h.Initializer.Initialized(),
		Queued:      queued,
		Processing:  processing,
		Services:    []manager.MetricsSnapshot{},
	}
	if h.ConcurrencyManager != nil {
		status.Services = h.ConcurrencyManager.Snapshot()
	}
	c.JSON(http.StatusOK, Response{Data: status, Message: "ok"})
}
