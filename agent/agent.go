package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"travelplanner/llm"
	"travelplanner/logging"
)

// ErrMaxIterations is returned when the model keeps calling tools past the iteration budget.
var ErrMaxIterations = errors.New("reached max iterations")

// scratchTokenLimit bounds the tool-call transcript kept for a single Chat call.
const scratchTokenLimit = 16000

// Tool is a function the model may call by name with a JSON argument object.
type Tool interface {
	Name() string
	Description() string
	Parameters() string
	Call(ctx context.Context, input json.RawMessage) (string, error)
}

// Agent drives a language model through a Thought / Action / Observation loop.
type Agent struct {
	Name          string
	SystemPrompt  string
	MaxIterations int

	provider llm.Provider
	tools    map[string]Tool
	memory   *llm.Memory
	log      *logrus.Entry
}

// New creates an agent. memoryTokens bounds the chat history carried between Chat calls.
func New(name string, provider llm.Provider, systemPrompt string, tools []Tool, memoryTokens, maxIterations int) *Agent {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &Agent{
		Name:          name,
		SystemPrompt:  systemPrompt,
		MaxIterations: maxIterations,
		provider:      provider,
		tools:         byName,
		memory:        llm.NewMemory(memoryTokens),
		log:           logging.GetLogger().WithField("agent", name),
	}
}

// ToolNames lists the registered tools in name order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for n := range a.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Chat sends prompt to the model, executing tool calls until it produces an answer.
func (a *Agent) Chat(ctx context.Context, prompt string) (string, error) {
	a.memory.Add(llm.Message{Role: llm.RoleUser, Content: prompt})
	scratch := llm.NewMemory(scratchTokenLimit)
	system := a.buildSystemPrompt()

	for i := 0; i < a.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		reply, err := a.provider.Complete(ctx, system, append(a.memory.Messages(), scratch.Messages()...))
		if err != nil {
			return "", err
		}

		step := ParseStep(reply)
		if step.Thought != "" {
			a.log.Debugf("Thought: %s", step.Thought)
		}
		if step.Action == "" {
			a.memory.Add(llm.Message{Role: llm.RoleAssistant, Content: step.Answer})
			return step.Answer, nil
		}

		a.log.Debugf("Action: %s %s", step.Action, step.Input)
		observation := a.invoke(ctx, step)
		scratch.Add(
			llm.Message{Role: llm.RoleAssistant, Content: strings.TrimSpace(reply)},
			llm.Message{Role: llm.RoleUser, Content: "Observation: " + observation},
		)
	}
	return "", fmt.Errorf("%s: %w (%d)", a.Name, ErrMaxIterations, a.MaxIterations)
}

// invoke runs a tool call; every failure becomes an observation the model can react to.
func (a *Agent) invoke(ctx context.Context, step Step) string {
	tool, ok := a.tools[step.Action]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s", step.Action, strings.Join(a.ToolNames(), ", "))
	}
	out, err := tool.Call(ctx, step.Input)
	if err != nil {
		a.log.Warnf("Tool %s failed: %v", step.Action, err)
		return fmt.Sprintf("Error: %s failed: %v", step.Action, err)
	}
	return out
}

func (a *Agent) buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(a.SystemPrompt)
	sb.WriteString("\n\n")

	if len(a.tools) > 0 {
		sb.WriteString("You have access to the following tools:\n")
		for _, name := range a.ToolNames() {
			t := a.tools[name]
			fmt.Fprintf(&sb, "- %s: %s\n  Parameters: %s\n", t.Name(), t.Description(), t.Parameters())
		}
		sb.WriteString("\nTo use a tool, reply with exactly:\n")
		sb.WriteString("Thought: <one reasoning step>\n")
		sb.WriteString("Action: <one tool name>\n")
		sb.WriteString("Action Input: <JSON object with the tool parameters>\n\n")
		sb.WriteString("Then stop and wait for the Observation.\n\n")
	}
	sb.WriteString("When you have everything you need, reply with:\n")
	sb.WriteString("Thought: <final reasoning step>\n")
	sb.WriteString("Answer: <your final answer in markdown>\n")
	return sb.String()
}
