package llm

import "sync"

// charsPerToken is the rough ratio used to estimate token counts without a tokenizer.
const charsPerToken = 4

// Memory is a chat history bounded by an estimated token budget.
// The oldest messages are dropped first; the newest message is always kept.
type Memory struct {
	mu         sync.Mutex
	tokenLimit int
	messages   []Message
}

// NewMemory creates a chat history bounded to about tokenLimit tokens.
func NewMemory(tokenLimit int) *Memory {
	return &Memory{tokenLimit: tokenLimit}
}

// EstimateTokens approximates the token count of s.
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// Add appends msgs and drops the oldest messages that no longer fit.
func (m *Memory) Add(msgs ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
	m.trim()
}

// Messages returns a copy of the retained history.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

func (m *Memory) trim() {
	if m.tokenLimit <= 0 {
		return
	}
	total := 0
	for _, msg := range m.messages {
		total += EstimateTokens(msg.Content)
	}
	for len(m.messages) > 1 && total > m.tokenLimit {
		total -= EstimateTokens(m.messages[0].Content)
		m.messages = m.messages[1:]
	}
}
