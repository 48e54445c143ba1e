// Package payload defines the messages bullhorn delivers into agent sessions.
//
// A Payload is a value type: a kind, the message content, and optional
// structured metadata. Render produces the exact byte sequence written to the
// target, and is a pure function of the payload's fields. The same payload
// renders identically regardless of which delivery mechanism (stdin pipe,
// terminal forging, tmux send-keys) carries it.
package payload

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what a payload is for. The kind selects the rendering
// template; it never changes delivery behavior.
type Kind string

const (
	// Context is a real-time context update for the agent.
	Context Kind = "context"
	// Warning flags a condition the agent should know about.
	Warning Kind = "warning"
	// Block reports a blocker that needs the agent's attention.
	Block Kind = "block"
	// Completion announces that an upstream task finished.
	Completion Kind = "completion"
	// Progress reports percentage progress on a related task.
	Progress Kind = "progress"
	// UserPrompt renders as raw content, indistinguishable from text the
	// user typed at the session.
	UserPrompt Kind = "user_prompt"
)

// metaProgressKey is the metadata key Progress payloads read their
// percentage from.
const metaProgressKey = "progress_percentage"

// Payload is an immutable injection message.
type Payload struct {
	Kind     Kind                       `json:"kind"`
	Content  string                     `json:"content"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// NewContext returns a context-update payload.
func NewContext(content string) Payload {
	return Payload{Kind: Context, Content: content}
}

// NewWarning returns a warning payload.
func NewWarning(content string) Payload {
	return Payload{Kind: Warning, Content: content}
}

// NewBlock returns a blocker payload.
func NewBlock(content string) Payload {
	return Payload{Kind: Block, Content: content}
}

// NewCompletion returns a completion notification with metadata details.
func NewCompletion(summary string, metadata map[string]json.RawMessage) Payload {
	return Payload{Kind: Completion, Content: summary, Metadata: metadata}
}

// NewProgress returns a progress payload carrying the given percentage.
func NewProgress(percentage int, message string) Payload {
	p := Payload{Kind: Progress, Content: message}
	return p.WithMetadata(metaProgressKey, percentage)
}

// NewUserPrompt returns a payload that renders as raw user input.
func NewUserPrompt(prompt string) Payload {
	return Payload{Kind: UserPrompt, Content: prompt}
}

// WithMetadata returns a copy of the payload with the given key set.
// Values that cannot be marshaled are stored as JSON null.
func (p Payload) WithMetadata(key string, value any) Payload {
	meta := make(map[string]json.RawMessage, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	raw, err := json.Marshal(value)
	if err != nil {
		raw = json.RawMessage("null")
	}
	meta[key] = raw
	p.Metadata = meta
	return p
}

// ProgressPercentage returns the percentage stored in the payload metadata,
// or 0 when the key is absent or malformed.
func (p Payload) ProgressPercentage() int {
	raw, ok := p.Metadata[metaProgressKey]
	if !ok {
		return 0
	}
	var pct int
	if err := json.Unmarshal(raw, &pct); err != nil {
		return 0
	}
	return pct
}

// Render converts the payload to the text injected into the target session.
// The output is deterministic: rendering the same payload twice yields
// identical text.
func (p Payload) Render() string {
	switch p.Kind {
	case Context:
		return fmt.Sprintf("\n\n📋 REAL-TIME CONTEXT UPDATE:\n%s\n", p.Content)

	case Warning:
		return fmt.Sprintf("\n\n⚠️ WARNING:\n%s\n", p.Content)

	case Block:
		return fmt.Sprintf(
			"\n\n🚨 BLOCKER - ATTENTION NEEDED:\n%s\n\nPlease review this blocker and adjust your approach.\n",
			p.Content)

	case Completion:
		details := ""
		if len(p.Metadata) > 0 {
			if pretty, err := json.MarshalIndent(p.Metadata, "", "  "); err == nil {
				details = fmt.Sprintf("\n\nDetails:\n%s", pretty)
			}
		}
		return fmt.Sprintf("\n\n✅ COMPLETION NOTIFICATION:\n%s%s\n", p.Content, details)

	case Progress:
		return fmt.Sprintf("\n\n📊 PROGRESS UPDATE [%d %%]:\n%s\n",
			p.ProgressPercentage(), p.Content)

	case UserPrompt:
		// Raw content: the target must not be able to tell this apart
		// from user-typed text.
		return p.Content

	default:
		return p.Content
	}
}

// JSON returns the payload serialized as indented JSON.
func (p Payload) JSON() (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}
	return string(data), nil
}
