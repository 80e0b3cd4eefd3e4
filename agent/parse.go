package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Step is one parsed model reply. Action is empty when the reply is a final answer.
type Step struct {
	Thought string
	Action  string
	Input   json.RawMessage
	Answer  string
}

var (
	answerRe      = regexp.MustCompile(`(?m)^\s*Answer:\s*`)
	actionRe      = regexp.MustCompile(`(?m)^\s*Action:\s*(.+?)\s*$`)
	actionInputRe = regexp.MustCompile(`(?m)^\s*Action Input:\s*`)
	observationRe = regexp.MustCompile(`(?m)^\s*Observation:`)
	thoughtRe     = regexp.MustCompile(`(?m)^\s*Thought:\s*(.*)$`)
)

// ParseStep reads a reply in the Thought/Action/Action Input/Answer format.
// Replies that contain neither an Action nor an Answer are taken as the answer verbatim.
func ParseStep(reply string) Step {
	var step Step
	if m := thoughtRe.FindStringSubmatch(reply); m != nil {
		step.Thought = strings.TrimSpace(m[1])
	}

	answerLoc := answerRe.FindStringIndex(reply)
	actionLoc := actionRe.FindStringSubmatchIndex(reply)

	if answerLoc != nil && (actionLoc == nil || answerLoc[0] < actionLoc[0]) {
		step.Answer = strings.TrimSpace(reply[answerLoc[1]:])
		return step
	}
	if actionLoc == nil {
		step.Answer = strings.TrimSpace(stripThought(reply))
		return step
	}

	step.Action = strings.Trim(reply[actionLoc[2]:actionLoc[3]], "`\"' ")
	rest := reply[actionLoc[1]:]
	if loc := actionInputRe.FindStringIndex(rest); loc != nil {
		raw := rest[loc[1]:]
		if obs := observationRe.FindStringIndex(raw); obs != nil {
			raw = raw[:obs[0]]
		}
		step.Input = normalizeInput(raw)
	} else {
		step.Input = json.RawMessage("{}")
	}
	return step
}

// normalizeInput returns raw as JSON, wrapping anything that is not valid JSON into a JSON string.
func normalizeInput(raw string) json.RawMessage {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	// Models sometimes append prose after the object.
	if strings.HasPrefix(s, "{") {
		if end := strings.LastIndex(s, "}"); end > 0 && json.Valid([]byte(s[:end+1])) {
			return json.RawMessage(s[:end+1])
		}
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func stripThought(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "Thought:") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		return s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "Thought:"))
}
