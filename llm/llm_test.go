package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/backend"
	"travelplanner/config"
)

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "You are a Travel Agent.", req.Messages[0].Content)
		assert.Equal(t, RoleUser, req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Answer: hi"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI(backend.NewBackendClient(srv.URL, time.Second), "sk-test", "gpt-4o", 0.2)
	out, err := p.Complete(context.Background(), "You are a Travel Agent.", []Message{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "Answer: hi", out)
}

func TestOpenAICompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := backend.NewBackendClient(srv.URL, time.Second)

	_, err := NewOpenAI(client, "bad", "m", 0).Complete(context.Background(), "", nil)
	var statusErr *backend.StatusError
	assert.ErrorAs(t, err, &statusErr)

	_, err = NewOpenAI(client, "good", "m", 0).Complete(context.Background(), "", nil)
	assert.ErrorContains(t, err, "no choices")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "llama"})
	assert.Error(t, err)

	p, err := New(context.Background(), config.LLMConfig{Provider: "openai", BaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, p)
}

func TestMemoryTrimsOldestFirst(t *testing.T) {
	m := NewMemory(10)
	m.Add(Message{Role: RoleUser, Content: strings.Repeat("a", 20)})
	m.Add(Message{Role: RoleAssistant, Content: strings.Repeat("b", 20)})
	assert.Len(t, m.Messages(), 2)

	m.Add(Message{Role: RoleUser, Content: strings.Repeat("c", 8)})
	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleAssistant, msgs[0].Role)

	m.Add(Message{Role: RoleUser, Content: strings.Repeat("d", 400)})
	msgs = m.Messages()
	require.Len(t, msgs, 1, "the newest message survives even when it alone exceeds the limit")
	assert.Equal(t, 100, EstimateTokens(msgs[0].Content))

	m.Reset()
	assert.Empty(t, m.Messages())
}
