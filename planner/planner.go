// Package planner runs the five research steps that turn a trip request into a travel report.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"travelplanner/agent"
	"travelplanner/llm"
	"travelplanner/logging"
	"travelplanner/tools"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}

// ErrInvalidRequest is returned when a required request field is empty.
var ErrInvalidRequest = errors.New("invalid request")

// TotalSteps is the number of steps in every plan.
const TotalSteps = 5

// Request is one traveler's form submission.
type Request struct {
	Origin      string `json:"origin" form:"origin"`
	Destination string `json:"destination" form:"destination"`
	Dates       string `json:"dates" form:"dates"`
	Interests   string `json:"interests" form:"interests"`
}

// Normalize trims every field and reports the first missing one.
func (r *Request) Normalize() error {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.Dates = strings.TrimSpace(r.Dates)
	r.Interests = strings.TrimSpace(r.Interests)

	for _, f := range []struct{ name, value string }{
		{"origin", r.Origin},
		{"destination", r.Destination},
		{"dates", r.Dates},
		{"interests", r.Interests},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRequest, f.name)
		}
	}
	return nil
}

// Progress is a snapshot of a running plan, rendered as the Status, AI Reasoning and Travel Plan tabs.
type Progress struct {
	Step      int    `json:"step"`
	Total     int    `json:"total"`
	Status    string `json:"status"`
	Reasoning string `json:"reasoning"`
	Plan      string `json:"plan,omitempty"`
	Done      bool   `json:"done"`
	Err       string `json:"error,omitempty"`
}

// Agents is the set of agents one plan uses.
type Agents struct {
	Web      *agent.Agent
	Travel   *agent.Agent
	Reporter *agent.Agent
}

// Planner builds agents and runs plans. Each plan gets its own agents so concurrent plans never share
// chat memory.
type Planner struct {
	provider llm.Provider
	toolset  *tools.Toolset

	mu          sync.Mutex
	initialized bool
}

// New creates a planner that builds its agents from provider and toolset.
func New(provider llm.Provider, toolset *tools.Toolset) *Planner {
	return &Planner{provider: provider, toolset: toolset}
}

func (p *Planner) newAgents() (*Agents, error) {
	if p.provider == nil {
		return nil, errors.New("no language model configured")
	}
	ts := p.toolset
	if ts == nil || ts.Serper == nil || ts.Wikipedia == nil || ts.Browser == nil || ts.Weather == nil || ts.Amadeus == nil {
		return nil, errors.New("toolset is incomplete")
	}
	return &Agents{
		Web:      agent.NewWebResearchAgent(p.provider, ts),
		Travel:   agent.NewTravelAgent(p.provider, ts),
		Reporter: agent.NewReporterAgent(p.provider),
	}, nil
}

// Initialize checks that all three agents can be built and returns the status line shown to the user.
func (p *Planner) Initialize(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return fmt.Sprintf("❌ Error initializing agents: %v", err), err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.newAgents(); err != nil {
		p.initialized = false
		log.Errorf("Error initializing agents: %v", err)
		return fmt.Sprintf("❌ Error initializing agents: %v", err), err
	}
	if !p.initialized {
		log.Infoln("Agents initialized")
	}
	p.initialized = true
	return "✅ Agents initialized successfully!", nil
}

// Initialized reports whether Initialize has succeeded.
func (p *Planner) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

type step struct {
	running          string
	runningReasoning string
	done             string
	doneReasoning    string
	startMessage     string
	doneMessage      string
	run              func(ctx context.Context) string
}

// Plan runs the five steps for req in order, calling onProgress before and after each one. The
// returned string is the final report.
func (p *Planner) Plan(ctx context.Context, req Request, onProgress func(Progress)) (string, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	if err := req.Normalize(); err != nil {
		return "", err
	}

	if !p.Initialized() {
		if status, err := p.Initialize(ctx); err != nil {
			onProgress(Progress{Total: TotalSteps, Status: status, Reasoning: "Agents not initialized properly", Done: true, Err: err.Error()})
			return "", err
		}
	}
	agents, err := p.newAgents()
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("# 🔍 Planning Your Trip...\n\n"+
		"👤 From: **%s**\n"+
		"🌍 To: **%s**\n"+
		"📅 When: **%s**\n"+
		"❤️ Interests: **%s**\n\n"+
		"## Current Status:\n", req.Origin, req.Destination, req.Dates, req.Interests)
	reasoningHeader := "## 💭 Planning Process\n\nStarting research for your trip...\n"

	var destinationReport, eventsReport, weatherReport, flightsReport, finalReport string
	steps := []step{
		{
			running:          fmt.Sprintf("Researching %s tourism information...", req.Destination),
			runningReasoning: fmt.Sprintf("Gathering information about %s...", req.Destination),
			done:             "Completed destination research",
			doneReasoning:    fmt.Sprintf("Completed research on %s including attractions and points of interest based on your preferences.", req.Destination),
			startMessage:     fmt.Sprintf("⏳ Researching %s...", req.Destination),
			doneMessage:      "✅ Destination research complete",
			run: func(ctx context.Context) string {
				destinationReport = agent.ResearchDestination(ctx, agents.Web, req.Destination, req.Interests)
				return destinationReport
			},
		},
		{
			running:          fmt.Sprintf("Finding events in %s during %s...", req.Destination, req.Dates),
			runningReasoning: fmt.Sprintf("Searching for events and activities in %s during %s...", req.Destination, req.Dates),
			done:             "Completed events research",
			doneReasoning:    "Found relevant events and activities taking place during your stay.",
			startMessage:     fmt.Sprintf("⏳ Finding events in %s...", req.Destination),
			doneMessage:      "✅ Events research complete",
			run: func(ctx context.Context) string {
				eventsReport = agent.ResearchEvents(ctx, agents.Web, req.Destination, req.Dates, req.Interests)
				return eventsReport
			},
		},
		{
			running:          fmt.Sprintf("Checking weather forecasts for %s...", req.Destination),
			runningReasoning: fmt.Sprintf("Analyzing typical and forecasted weather conditions for %s during %s...", req.Destination, req.Dates),
			done:             "Completed weather forecast",
			doneReasoning:    "Compiled weather information to help you pack appropriately.",
			startMessage:     "⏳ Checking weather conditions...",
			doneMessage:      "✅ Weather research complete",
			run: func(ctx context.Context) string {
				weatherReport = agent.ResearchWeather(ctx, agents.Travel, req.Destination, req.Dates)
				return weatherReport
			},
		},
		{
			running:          fmt.Sprintf("Searching flights from %s to %s...", req.Origin, req.Destination),
			runningReasoning: fmt.Sprintf("Finding optimal flight options between %s and %s...", req.Origin, req.Destination),
			done:             "Completed flight search",
			doneReasoning:    "Identified flight options with the best combinations of price and convenience.",
			startMessage:     fmt.Sprintf("⏳ Searching flights from %s to %s...", req.Origin, req.Destination),
			doneMessage:      "✅ Flight search complete",
			run: func(ctx context.Context) string {
				flightsReport = agent.SearchFlights(ctx, agents.Travel, req.Origin, req.Destination, req.Dates)
				return flightsReport
			},
		},
		{
			running:          "Creating your comprehensive travel plan...",
			runningReasoning: "Organizing all gathered information into a comprehensive travel plan...",
			done:             "Completed travel plan",
			doneReasoning:    "All tasks complete! Your personalized travel plan is now ready in the Travel Plan tab.",
			startMessage:     "⏳ Creating comprehensive travel plan...",
			doneMessage:      "✅ Travel plan generation complete!",
			run: func(ctx context.Context) string {
				finalReport = agent.WriteTravelReport(ctx, agents.Reporter, destinationReport, eventsReport, weatherReport, flightsReport)
				return finalReport
			},
		},
	}

	var completed strings.Builder
	var messages []string
	for i, s := range steps {
		n := i + 1
		if err := ctx.Err(); err != nil {
			return "", p.fail(err, messages, n-1, onProgress)
		}

		messages = append(messages, s.startMessage)
		onProgress(Progress{
			Step:      n,
			Total:     TotalSteps,
			Status:    header + completed.String() + fmt.Sprintf("🔄 **Step %d/%d:** %s\n", n, TotalSteps, s.running),
			Reasoning: reasoningHeader + s.runningReasoning + "\n",
		})

		log.Infof("Plan for %s: step %d/%d started", req.Destination, n, TotalSteps)
		if err := runStep(ctx, s.run); err != nil {
			return "", p.fail(err, messages, n, onProgress)
		}
		messages = append(messages, s.doneMessage)
		fmt.Fprintf(&completed, "✅ **Step %d/%d:** %s\n", n, TotalSteps, s.done)

		if n < TotalSteps {
			onProgress(Progress{
				Step:      n,
				Total:     TotalSteps,
				Status:    header + completed.String(),
				Reasoning: reasoningHeader + s.doneReasoning + "\n",
			})
		}
	}

	onProgress(Progress{
		Step:      TotalSteps,
		Total:     TotalSteps,
		Status:    header + completed.String() + "\n## 🎉 Your travel plan is ready! See the full report in the Travel Plan tab.",
		Reasoning: reasoningHeader + steps[TotalSteps-1].doneReasoning + "\n",
		Plan:      finalReport,
		Done:      true,
	})
	log.Infof("Plan for %s complete", req.Destination)
	return finalReport, nil
}

// runStep runs fn, turning a panic into an error so one broken step cannot take the worker down.
func runStep(ctx context.Context, fn func(context.Context) string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn(ctx)
	return ctx.Err()
}

func (p *Planner) fail(err error, messages []string, step int, onProgress func(Progress)) error {
	log.Errorf("Error creating travel plan: %v", err)
	onProgress(Progress{
		Step:      step,
		Total:     TotalSteps,
		Status:    ErrorReport(err, messages),
		Reasoning: "An error occurred during planning",
		Done:      true,
		Err:       err.Error(),
	})
	return err
}

// ErrorReport renders a failed plan with the progress made before the failure.
func ErrorReport(err error, messages []string) string {
	var sb strings.Builder
	sb.WriteString("# Error Creating Travel Plan\n\n")
	fmt.Fprintf(&sb, "An error occurred while generating your travel plan: %v\n\n", err)
	sb.WriteString("Progress before error:\n")
	for _, m := range messages {
		fmt.Fprintf(&sb, "- %s\n", m)
	}
	return sb.String()
}
