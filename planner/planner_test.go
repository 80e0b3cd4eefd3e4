package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/config"
	"travelplanner/llm"
	"travelplanner/tools"
)

// countingProvider answers every prompt immediately with "report <n>".
type countingProvider struct {
	mu     sync.Mutex
	n      int
	onCall func(n int)
}

func (p *countingProvider) Complete(_ context.Context, _ string, _ []llm.Message) (string, error) {
	p.mu.Lock()
	p.n++
	n := p.n
	p.mu.Unlock()
	if p.onCall != nil {
		p.onCall(n)
	}
	return fmt.Sprintf("Thought: done\nAnswer: report %d", n), nil
}

func testToolset() *tools.Toolset {
	return tools.NewToolset(&config.Config{}, nil)
}

func validRequest() Request {
	return Request{Origin: " New York ", Destination: "Paris", Dates: "June 10-17, 2025", Interests: "Art, cuisine"}
}

func TestRequestNormalize(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Normalize())
	assert.Equal(t, "New York", req.Origin)

	req.Interests = "   "
	err := req.Normalize()
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "interests is required")
}

func TestPlanRunsAllSteps(t *testing.T) {
	p := New(&countingProvider{}, testToolset())

	var snapshots []Progress
	report, err := p.Plan(context.Background(), validRequest(), func(pr Progress) {
		snapshots = append(snapshots, pr)
	})
	require.NoError(t, err)
	assert.Equal(t, "report 5", report)

	require.Len(t, snapshots, 10)
	first := snapshots[0]
	assert.Equal(t, 1, first.Step)
	assert.True(t, strings.HasPrefix(first.Status, "# 🔍 Planning Your Trip...\n\n👤 From: **New York**\n"))
	assert.True(t, strings.HasSuffix(first.Status, "🔄 **Step 1/5:** Researching Paris tourism information...\n"))
	assert.Equal(t, "## 💭 Planning Process\n\nStarting research for your trip...\nGathering information about Paris...\n", first.Reasoning)

	assert.True(t, strings.HasSuffix(snapshots[2].Status,
		"✅ **Step 1/5:** Completed destination research\n🔄 **Step 2/5:** Finding events in Paris during June 10-17, 2025...\n"))

	last := snapshots[len(snapshots)-1]
	assert.True(t, last.Done)
	assert.Equal(t, "report 5", last.Plan)
	assert.Contains(t, last.Status, "✅ **Step 5/5:** Completed travel plan\n\n## 🎉 Your travel plan is ready!")
	assert.Empty(t, last.Err)
	for _, s := range snapshots[:len(snapshots)-1] {
		assert.False(t, s.Done)
		assert.Empty(t, s.Plan)
	}
	assert.True(t, p.Initialized())
}

func TestPlanInvalidRequest(t *testing.T) {
	p := New(&countingProvider{}, testToolset())
	called := false
	_, err := p.Plan(context.Background(), Request{Destination: "Paris"}, func(Progress) { called = true })
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.False(t, called)
}

func TestPlanCanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &countingProvider{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	p := New(provider, testToolset())

	var last Progress
	_, err := p.Plan(ctx, validRequest(), func(pr Progress) { last = pr })
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, last.Done)
	assert.Equal(t, 2, last.Step)
	assert.Equal(t, "An error occurred during planning", last.Reasoning)
	assert.Equal(t, "# Error Creating Travel Plan\n\n"+
		"An error occurred while generating your travel plan: context canceled\n\n"+
		"Progress before error:\n"+
		"- ⏳ Researching Paris...\n"+
		"- ✅ Destination research complete\n"+
		"- ⏳ Finding events in Paris...\n", last.Status)
}

func TestInitializeFailure(t *testing.T) {
	p := New(nil, testToolset())
	status, err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(status, "❌ Error initializing agents:"))

	var last Progress
	_, err = p.Plan(context.Background(), validRequest(), func(pr Progress) { last = pr })
	require.Error(t, err)
	assert.Equal(t, "Agents not initialized properly", last.Reasoning)
	assert.True(t, last.Done)
}

func TestInitializeSuccess(t *testing.T) {
	p := New(&countingProvider{}, testToolset())
	status, err := p.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "✅ Agents initialized successfully!", status)
}
