package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"travelplanner/planner"
	"travelplanner/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Raw HTML in model output is escaped; only markdown is rendered.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const (
	statusPlaceholder    = "Waiting to start..."
	reasoningPlaceholder = "The planning process will appear here once planning starts."
	planPlaceholder      = "Your travel plan will appear here when ready."
)

var examples = []planner.Request{
	{Origin: "New York", Destination: "Paris", Dates: "June 10-17, 2025", Interests: "Art, cuisine, architecture"},
	{Origin: "San Francisco", Destination: "Kyoto", Dates: "September 5-15, 2025", Interests: "Historical sites, gardens, traditional culture"},
	{Origin: "London", Destination: "Barcelona", Dates: "April 20-27, 2025", Interests: "Beaches, food, nightlife"},
}

var tips = []string{
	"Be specific about your interests to get better recommendations",
	"Include your travel dates in a clear format",
	"For destinations, you can specify cities, regions, or countries",
	"The first search might take a bit longer as the system initializes",
	"Check the different tabs to see your plan's progress",
}

func renderMarkdown(md, placeholder string) string {
	if md == "" {
		md = placeholder
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		log.Warnf("Markdown rendering failed: %v", err)
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}

// renderPlan renders p, the latest progress of job, for display.
func renderPlan(job queue.Job, p planner.Progress) PlanView {
	job.Progress = p
	status := p.Status
	if status == "" && job.State.Finished() && job.Error != "" {
		status = "# Plan " + string(job.State) + "\n\n" + job.Error
	}
	return PlanView{
		Job:           job,
		StatusHTML:    renderMarkdown(status, statusPlaceholder),
		ReasoningHTML: renderMarkdown(p.Reasoning, reasoningPlaceholder),
		PlanHTML:      renderMarkdown(p.Plan, planPlaceholder),
	}
}

type indexPage struct {
	Title    string
	Error    string
	Request  planner.Request
	Examples []planner.Request
	Tips     []string
}

type planPage struct {
	Title         string
	View          PlanView
	StatusHTML    template.HTML
	ReasoningHTML template.HTML
	PlanHTML      template.HTML
}

func (h *HTTPHandler) renderIndex(c *gin.Context, code int, req planner.Request, errMsg string) {
	c.HTML(code, "index.html", indexPage{
		Title:    h.Options.Title,
		Error:    errMsg,
		Request:  req,
		Examples: examples,
		Tips:     tips,
	})
}

func (h *HTTPHandler) index(c *gin.Context) {
	h.renderIndex(c, http.StatusOK, planner.Request{}, "")
}

func (h *HTTPHandler) submitPlan(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBind(&req); err != nil {
		log.Errorf("Invalid form submission: %v", err)
		h.renderIndex(c, http.StatusBadRequest, req, "Please fill in every field.")
		return
	}
	job, err := h.Jobs.Enqueue(req)
	if err != nil {
		log.Errorf("Plan submission rejected: %v", err)
		msg := err.Error()
		if errors.Is(err, queue.ErrQueueFull) {
			msg = "The planner is busy right now. Please try again in a few minutes."
		}
		h.renderIndex(c, statusFor(err), req, msg)
		return
	}
	c.Redirect(http.StatusSeeOther, "/plans/"+job.ID)
}

func (h *HTTPHandler) planPage(c *gin.Context) {
	job, err := h.Jobs.Get(c.Param("id"))
	if err != nil {
		log.Errorf("Plan page %s: %v", c.Param("id"), err)
		h.renderIndex(c, statusFor(err), planner.Request{}, "That plan does not exist or has expired.")
		return
	}
	view := renderPlan(job, job.Progress)
	c.HTML(http.StatusOK, "plan.html", planPage{
		Title:         h.Options.Title,
		View:          view,
		StatusHTML:    template.HTML(view.StatusHTML),
		ReasoningHTML: template.HTML(view.ReasoningHTML),
		PlanHTML:      template.HTML(view.PlanHTML),
	})
}
